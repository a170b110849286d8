package media

import (
	"github.com/atarist-core/emucore/curated"
	"github.com/atarist-core/emucore/logger"
)

const sectorSize = 512

// Floppy wraps a raw sector-dump image and serves sector reads/writes to
// the disk controller. Geometry is derived from the image size: 9 or 10
// sectors per track. Sides are not modelled: tracks index the image
// linearly.
type Floppy struct {
	image          *Image
	sectorsPerTrack int
	writeProtected bool
	dirty          bool
}

// NewFloppy derives the geometry of img and wraps it for the controller.
func NewFloppy(img *Image, writeProtected bool) (*Floppy, error) {
	if img.Kind != KindFloppy {
		return nil, curated.New(curated.CategoryMedia, curated.CodeMediaFormatInvalid, false,
			"media: %s is not a floppy image", img.Name)
	}

	spt := 9
	if len(img.Data)%(10*sectorSize) == 0 && len(img.Data)%(9*sectorSize) != 0 {
		spt = 10
	}

	return &Floppy{
		image:           img,
		sectorsPerTrack: spt,
		writeProtected:  writeProtected,
	}, nil
}

func (f *Floppy) offset(track, sector uint8) (int, bool) {
	if sector == 0 || int(sector) > f.sectorsPerTrack {
		return 0, false
	}
	o := (int(track)*f.sectorsPerTrack + int(sector) - 1) * sectorSize
	if o+sectorSize > len(f.image.Data) {
		return 0, false
	}
	return o, true
}

// ReadSector returns a copy of the named sector, or false if the sector is
// outside the image's geometry.
func (f *Floppy) ReadSector(track, sector uint8) ([]byte, bool) {
	o, ok := f.offset(track, sector)
	if !ok {
		return nil, false
	}
	out := make([]byte, sectorSize)
	copy(out, f.image.Data[o:o+sectorSize])
	return out, true
}

// WriteSector overwrites the named sector in the in-memory image. The
// change is not flushed to disk; the image is a mounted copy.
func (f *Floppy) WriteSector(track, sector uint8, data []byte) bool {
	if f.writeProtected || len(data) != sectorSize {
		return false
	}
	o, ok := f.offset(track, sector)
	if !ok {
		return false
	}
	copy(f.image.Data[o:o+sectorSize], data)
	f.dirty = true
	return true
}

func (f *Floppy) WriteProtected() bool { return f.writeProtected }

// Dirty reports whether any sector has been written since mount.
func (f *Floppy) Dirty() bool { return f.dirty }

// Name returns the display name of the mounted image.
func (f *Floppy) Name() string { return f.image.Name }

// Slots is the machine's media mount table: one TOS ROM slot and two
// floppy drives. The zero value is an empty table.
type Slots struct {
	TOS    *Image
	Floppy [2]*Floppy
}

// Binding is the persisted record of one mounted asset, written into
// snapshots so a restore can report what was mounted at save time.
type Binding struct {
	Slot   string `json:"slot"`
	ID     string `json:"id"`
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
}

// AttachTOS mounts a TOS image into the ROM slot. The slot must be empty;
// TOS is not hot-swappable.
func (s *Slots) AttachTOS(img *Image) error {
	if img.Kind != KindTOS {
		return curated.New(curated.CategoryMedia, curated.CodeMediaFormatInvalid, false,
			"media: %s is not a TOS image", img.Name)
	}
	if s.TOS != nil {
		return curated.New(curated.CategoryMedia, curated.CodeMediaAttachFailed, false,
			"media: TOS slot is already occupied by %s", s.TOS.Name)
	}
	s.TOS = img
	logger.Logf(logger.Allow, "media", "TOS %04x mounted", TOSVersion(img.Data))
	return nil
}

// AttachFloppy mounts a floppy image into drive 0 or 1, replacing whatever
// was there.
func (s *Slots) AttachFloppy(drive int, f *Floppy) error {
	if drive < 0 || drive >= len(s.Floppy) {
		return curated.New(curated.CategoryMedia, curated.CodeMediaAttachFailed, false,
			"media: no drive %d", drive)
	}
	s.Floppy[drive] = f
	logger.Logf(logger.Allow, "media", "drive %d: %s mounted", drive, f.Name())
	return nil
}

// Eject removes the floppy from the named drive. Ejecting an empty drive
// is a no-op.
func (s *Slots) Eject(drive int) error {
	if drive < 0 || drive >= len(s.Floppy) {
		return curated.New(curated.CategoryMedia, curated.CodeMediaAttachFailed, false,
			"media: no drive %d", drive)
	}
	s.Floppy[drive] = nil
	return nil
}

// Bindings enumerates the currently mounted assets, TOS slot first.
func (s *Slots) Bindings() []Binding {
	var out []Binding
	if s.TOS != nil {
		out = append(out, Binding{
			Slot:   "tos",
			ID:     s.TOS.Descriptor.ID,
			Path:   s.TOS.Descriptor.Path,
			SHA256: s.TOS.Descriptor.SHA256,
		})
	}
	for i, f := range s.Floppy {
		if f == nil {
			continue
		}
		out = append(out, Binding{
			Slot:   "floppy" + string(rune('a'+i)),
			ID:     f.image.Descriptor.ID,
			Path:   f.image.Descriptor.Path,
			SHA256: f.image.Descriptor.SHA256,
		})
	}
	return out
}
