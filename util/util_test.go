package util

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClamp(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(3, Clamp(5, 1, 3))
	assert.Equal(1, Clamp(-2, 1, 3))
	assert.Equal(0.5, Clamp(0.5, 0.0, 1.0))
}

func TestSum(t *testing.T) {
	assert.Equal(t, uint64(10), Sum([]int{1, 2, 3, 4}))
	assert.Equal(t, uint64(0), Sum([]uint8{}))
}

func TestSortedKeys(t *testing.T) {
	m := map[string]int{"c": 1, "a": 2, "b": 3}
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(m))

	keys := GetKeys(m)
	sort.Strings(keys)
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestGatherAllMidiPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.mid", "b.MIDI", "notes.txt", "sub/c.mid"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0777))
		require.NoError(t, os.WriteFile(p, []byte{}, 0666))
	}

	all, err := GatherAllMidiPaths(dir, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	some, err := GatherAllMidiPaths(dir, 2)
	require.NoError(t, err)
	assert.Len(t, some, 2)

	_, err = GatherAllMidiPaths(filepath.Join(dir, "missing"), 0)
	assert.Error(t, err)
}
