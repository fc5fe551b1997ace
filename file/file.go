package file

import (
	"path/filepath"
	"strings"

	"github.com/jsphweid/harmonybeat/model"
)

// CreateFileNumMap numbers paths in the order given.
func CreateFileNumMap(paths []string) model.FileNumToMidiPath {
	res := make(model.FileNumToMidiPath)
	for i, v := range paths {
		res[uint32(i)] = v
	}
	return res
}

// SongName is the name a song recorded from path gets: the file name
// without directory or extension.
func SongName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
