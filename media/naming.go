package media

import (
	"path/filepath"
	"slices"
	"strings"
)

// FileExtensions is the list of file extensions that are recognised by the
// media package.
var FileExtensions = [...]string{
	".IMG", ".ROM", ".TOS", ".ST", ".MSA", ".BIN",
}

// NameFromFilename converts a filename to a shortened version suitable for
// display. The recognised extension is dropped; an unrecognised extension
// is kept so the oddity stays visible.
func NameFromFilename(filename string) string {
	name := filepath.Base(filename)
	ext := strings.ToUpper(filepath.Ext(filename))
	if slices.Contains(FileExtensions[:], ext) {
		name = strings.TrimSuffix(name, filepath.Ext(filename))
	}
	return name
}
