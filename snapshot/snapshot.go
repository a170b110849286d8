// Package snapshot persists and rehydrates whole-machine state records. A
// record is a fixed binary header (magic, schema version, JSON metadata,
// sha256 of the trailer) followed by length-prefixed per-component state
// blocks in the profile's component order. Writes are atomic: staged under
// a .staging directory, fsynced, then renamed into place; the on-disk
// index is rewritten the same way. Reads verify the checksum before any
// block is handed to a component.
package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/atarist-core/emucore/curated"
	"github.com/atarist-core/emucore/logger"
	"github.com/atarist-core/emucore/media"
)

// SchemaVersion is the current snapshot wire-format version.
const SchemaVersion uint32 = 1

var magic = [8]byte{'A', 'T', 'S', 'T', 'S', 'N', 'A', 'P'}

// Meta is the identifying metadata of one snapshot record.
type Meta struct {
	SnapshotID    string            `json:"snapshot_id"`
	Name          string            `json:"name"`
	SchemaVersion uint32            `json:"schema_version"`
	Profile       string            `json:"profile"`
	EngineABI     string            `json:"engine_abi"`
	ModuleABI     map[string]string `json:"module_abi"`
	SavedAtUs     int64             `json:"saved_at_us"`

	TickCounter  uint64 `json:"tick_counter"`
	CycleCounter uint64 `json:"cycle_counter"`

	Bindings []media.Binding `json:"bindings"`
}

// ComponentState is one component's serialised state block.
type ComponentState struct {
	Name string
	Data []byte
}

// Record is a complete snapshot: metadata, trailer checksum, and the
// ordered component blocks.
type Record struct {
	Meta
	SHA256     string
	Components []ComponentState
}

// Dir returns the canonical snapshots directory under root.
func Dir(root string) string { return filepath.Join(root, "snapshots") }

// Path returns the canonical file path for a snapshot id under root.
func Path(root, id string) string {
	return filepath.Join(Dir(root), id+".bin")
}

func saveError(err error) error {
	return curated.New(curated.CategorySnapshot, curated.CodeSnapshotSaveFailed, false,
		"snapshot: %v", err)
}

// encodeTrailer serialises the component blocks: a block count, then per
// block a length-prefixed name and a length-prefixed payload.
func encodeTrailer(components []ComponentState) ([]byte, error) {
	var b bytes.Buffer
	if err := binary.Write(&b, binary.BigEndian, uint32(len(components))); err != nil {
		return nil, err
	}
	for _, c := range components {
		if err := binary.Write(&b, binary.BigEndian, uint16(len(c.Name))); err != nil {
			return nil, err
		}
		b.WriteString(c.Name)
		if err := binary.Write(&b, binary.BigEndian, uint32(len(c.Data))); err != nil {
			return nil, err
		}
		b.Write(c.Data)
	}
	return b.Bytes(), nil
}

func decodeTrailer(r io.Reader) ([]ComponentState, error) {
	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	components := make([]ComponentState, 0, count)
	for i := uint32(0); i < count; i++ {
		var nameLen uint16
		if err := binary.Read(r, binary.BigEndian, &nameLen); err != nil {
			return nil, err
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, err
		}
		var dataLen uint32
		if err := binary.Read(r, binary.BigEndian, &dataLen); err != nil {
			return nil, err
		}
		data := make([]byte, dataLen)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, err
		}
		components = append(components, ComponentState{Name: string(name), Data: data})
	}
	return components, nil
}

// Write persists rec atomically under root and returns the canonical path.
// The record's SHA256 field is filled in as a side effect.
func Write(root string, rec *Record) (string, error) {
	trailer, err := encodeTrailer(rec.Components)
	if err != nil {
		return "", saveError(err)
	}
	sum := sha256.Sum256(trailer)
	rec.SHA256 = fmt.Sprintf("%x", sum)
	rec.Meta.SchemaVersion = SchemaVersion

	metaJSON, err := json.Marshal(rec.Meta)
	if err != nil {
		return "", saveError(err)
	}

	var b bytes.Buffer
	b.Write(magic[:])
	binary.Write(&b, binary.BigEndian, SchemaVersion)
	binary.Write(&b, binary.BigEndian, uint32(len(metaJSON)))
	b.Write(metaJSON)
	b.Write(sum[:])
	b.Write(trailer)

	staging := filepath.Join(Dir(root), ".staging")
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return "", saveError(err)
	}

	part := filepath.Join(staging, rec.SnapshotID+".part")
	f, err := os.Create(part)
	if err != nil {
		return "", saveError(err)
	}
	if _, err := f.Write(b.Bytes()); err != nil {
		f.Close()
		os.Remove(part)
		return "", saveError(err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(part)
		return "", saveError(err)
	}
	if err := f.Close(); err != nil {
		os.Remove(part)
		return "", saveError(err)
	}

	final := Path(root, rec.SnapshotID)
	if err := os.Rename(part, final); err != nil {
		os.Remove(part)
		return "", saveError(err)
	}

	logger.Logf(logger.Allow, "snapshot", "wrote %s (%d components, %d bytes)",
		rec.SnapshotID, len(rec.Components), b.Len())
	return final, nil
}

// Read loads and checksum-verifies the snapshot at path.
func Read(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, curated.New(curated.CategorySnapshot, curated.CodeSnapshotNotFound, false,
				"snapshot: %v", err)
		}
		return nil, restoreError(err)
	}
	defer f.Close()

	var gotMagic [8]byte
	if _, err := io.ReadFull(f, gotMagic[:]); err != nil {
		return nil, restoreError(err)
	}
	if gotMagic != magic {
		return nil, restoreError(fmt.Errorf("%s is not a snapshot file", path))
	}

	var schemaVersion, metaLen uint32
	if err := binary.Read(f, binary.BigEndian, &schemaVersion); err != nil {
		return nil, restoreError(err)
	}
	if err := binary.Read(f, binary.BigEndian, &metaLen); err != nil {
		return nil, restoreError(err)
	}
	metaJSON := make([]byte, metaLen)
	if _, err := io.ReadFull(f, metaJSON); err != nil {
		return nil, restoreError(err)
	}

	rec := &Record{}
	if err := json.Unmarshal(metaJSON, &rec.Meta); err != nil {
		return nil, restoreError(err)
	}
	rec.Meta.SchemaVersion = schemaVersion

	var sum [32]byte
	if _, err := io.ReadFull(f, sum[:]); err != nil {
		return nil, restoreError(err)
	}

	trailer, err := io.ReadAll(f)
	if err != nil {
		return nil, restoreError(err)
	}
	if sha256.Sum256(trailer) != sum {
		return nil, restoreError(fmt.Errorf("checksum mismatch in %s", path))
	}
	rec.SHA256 = fmt.Sprintf("%x", sum)

	rec.Components, err = decodeTrailer(bytes.NewReader(trailer))
	if err != nil {
		return nil, restoreError(err)
	}
	return rec, nil
}

func restoreError(err error) error {
	return curated.New(curated.CategorySnapshot, curated.CodeSnapshotRestoreFailed, false,
		"snapshot: %v", err)
}
