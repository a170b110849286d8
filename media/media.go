// Package media loads resolved media descriptors into the emulation. A
// descriptor is the engine's view of an asset the external catalog has
// already resolved: a local path, an expected sha256, and a size. The
// package verifies the descriptor against the file on disk, loads the
// bytes, and mounts them into one of the machine's media slots (TOS ROM,
// floppy drive A/B).
package media

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atarist-core/emucore/curated"
	"github.com/atarist-core/emucore/logger"
)

// Descriptor is a resolved media asset as handed over by the catalog
// collaborator. SHA256 may be empty, in which case the hash is computed on
// load rather than checked.
type Descriptor struct {
	ID     string
	Path   string
	SHA256 string
	Size   int64
}

// Image is a loaded media asset: the descriptor it was loaded from (with
// SHA256 and Size filled in) plus the data itself and the detected kind.
type Image struct {
	Descriptor Descriptor
	Name       string
	Kind       Kind
	Data       []byte
}

// Kind classifies loaded media by fingerprint, not by file extension
// alone.
type Kind int

const (
	KindUnknown Kind = iota
	KindTOS
	KindFloppy
)

func (k Kind) String() string {
	switch k {
	case KindTOS:
		return "tos"
	case KindFloppy:
		return "floppy"
	}
	return "unknown"
}

// Load reads the file named by the descriptor, verifies size and sha256
// where the descriptor declares them, and fingerprints the data.
func Load(d Descriptor) (*Image, error) {
	if strings.TrimSpace(d.Path) == "" {
		return nil, curated.New(curated.CategoryMedia, curated.CodeMediaAttachFailed, false,
			"media: descriptor has no path")
	}

	path, err := filepath.Abs(d.Path)
	if err != nil {
		return nil, curated.New(curated.CategoryMedia, curated.CodeMediaAttachFailed, false,
			"media: %v", err)
	}
	d.Path = path

	f, err := os.Open(path)
	if err != nil {
		return nil, curated.New(curated.CategoryMedia, curated.CodeMediaAttachFailed, false,
			"media: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, curated.New(curated.CategoryMedia, curated.CodeMediaAttachFailed, false,
			"media: %v", err)
	}

	if d.Size > 0 && d.Size != int64(len(data)) {
		return nil, curated.New(curated.CategoryMedia, curated.CodeMediaFormatInvalid, false,
			"media: size mismatch: descriptor says %d, file is %d", d.Size, len(data))
	}
	d.Size = int64(len(data))

	hash := fmt.Sprintf("%x", sha256.Sum256(data))
	if d.SHA256 != "" && !strings.EqualFold(d.SHA256, hash) {
		return nil, curated.New(curated.CategoryMedia, curated.CodeMediaFormatInvalid, false,
			"media: unexpected sha256 hash value")
	}
	d.SHA256 = hash

	img := &Image{
		Descriptor: d,
		Name:       NameFromFilename(path),
		Kind:       fingerprint(data),
		Data:       data,
	}

	logger.Logf(logger.Allow, "media", "loaded %s (%s, %d bytes)", img.Name, img.Kind, d.Size)
	return img, nil
}
