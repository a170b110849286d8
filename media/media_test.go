package media_test

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atarist-core/emucore/curated"
	"github.com/atarist-core/emucore/media"
)

func writeImage(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func tosImage() []byte {
	data := make([]byte, 192*1024)
	data[0] = 0x60 // BRA.S
	data[1] = 0x2e
	data[2] = 0x01 // version 1.04
	data[3] = 0x04
	return data
}

func floppyImage() []byte {
	return make([]byte, 80*9*512)
}

func TestLoadVerifiesHash(t *testing.T) {
	data := tosImage()
	path := writeImage(t, "tos104.img", data)

	img, err := media.Load(media.Descriptor{ID: "rom.tos.1.04.uk", Path: path})
	require.NoError(t, err)
	assert.Equal(t, media.KindTOS, img.Kind)
	assert.Equal(t, "tos104", img.Name)
	assert.Equal(t, fmt.Sprintf("%x", sha256.Sum256(data)), img.Descriptor.SHA256)
	assert.Equal(t, uint16(0x0104), media.TOSVersion(img.Data))

	_, err = media.Load(media.Descriptor{Path: path, SHA256: "feedface"})
	assert.Equal(t, curated.CodeMediaFormatInvalid, curated.CodeOf(err))

	_, err = media.Load(media.Descriptor{Path: path, Size: 1})
	assert.Equal(t, curated.CodeMediaFormatInvalid, curated.CodeOf(err))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := media.Load(media.Descriptor{Path: filepath.Join(t.TempDir(), "nope.st")})
	assert.Equal(t, curated.CodeMediaAttachFailed, curated.CodeOf(err))
}

func TestFloppyGeometry(t *testing.T) {
	path := writeImage(t, "game.st", floppyImage())
	img, err := media.Load(media.Descriptor{Path: path})
	require.NoError(t, err)
	require.Equal(t, media.KindFloppy, img.Kind)

	f, err := media.NewFloppy(img, false)
	require.NoError(t, err)

	sec, ok := f.ReadSector(0, 1)
	require.True(t, ok)
	assert.Len(t, sec, 512)

	// sector numbering starts at 1
	_, ok = f.ReadSector(0, 0)
	assert.False(t, ok)
	_, ok = f.ReadSector(0, 10)
	assert.False(t, ok)
	_, ok = f.ReadSector(80, 1)
	assert.False(t, ok)

	payload := make([]byte, 512)
	payload[0] = 0xaa
	require.True(t, f.WriteSector(3, 5, payload))
	back, ok := f.ReadSector(3, 5)
	require.True(t, ok)
	assert.Equal(t, uint8(0xaa), back[0])
	assert.True(t, f.Dirty())
}

func TestFloppyWriteProtect(t *testing.T) {
	path := writeImage(t, "game.st", floppyImage())
	img, err := media.Load(media.Descriptor{Path: path})
	require.NoError(t, err)

	f, err := media.NewFloppy(img, true)
	require.NoError(t, err)
	assert.True(t, f.WriteProtected())
	assert.False(t, f.WriteSector(0, 1, make([]byte, 512)))
	assert.False(t, f.Dirty())
}

func TestSlots(t *testing.T) {
	tosPath := writeImage(t, "tos.img", tosImage())
	tos, err := media.Load(media.Descriptor{ID: "rom.tos.1.04.uk", Path: tosPath})
	require.NoError(t, err)

	diskPath := writeImage(t, "game.st", floppyImage())
	disk, err := media.Load(media.Descriptor{ID: "disk.game", Path: diskPath})
	require.NoError(t, err)
	floppy, err := media.NewFloppy(disk, false)
	require.NoError(t, err)

	var slots media.Slots
	require.NoError(t, slots.AttachTOS(tos))
	assert.Equal(t, curated.CodeMediaAttachFailed, curated.CodeOf(slots.AttachTOS(tos)))
	assert.Equal(t, curated.CodeMediaFormatInvalid, curated.CodeOf(slots.AttachTOS(disk)))

	require.NoError(t, slots.AttachFloppy(0, floppy))
	assert.Equal(t, curated.CodeMediaAttachFailed, curated.CodeOf(slots.AttachFloppy(2, floppy)))

	b := slots.Bindings()
	require.Len(t, b, 2)
	assert.Equal(t, "tos", b[0].Slot)
	assert.Equal(t, "floppya", b[1].Slot)
	assert.Equal(t, "disk.game", b[1].ID)

	require.NoError(t, slots.Eject(0))
	assert.Len(t, slots.Bindings(), 1)
}
