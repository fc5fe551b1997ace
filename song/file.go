package song

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jsphweid/harmonybeat/logging"
	"github.com/jsphweid/harmonybeat/model"
	"github.com/jsphweid/harmonybeat/util"
	"github.com/pkg/errors"
)

const indexFile = "index.json"

// FileStore keeps one JSON file per song plus an index.json of summaries.
// The index is rewritten at most once per quiet period; call Flush before
// exiting.
type FileStore struct {
	dir    string
	logger *log.Logger

	mu        sync.Mutex
	index     map[string]model.SongSummary
	debounced func(func())

	// serializes index.json writes
	flushMu sync.Mutex
	closed  bool
}

func NewFileStore(dir string, logger *log.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0777); err != nil {
		return nil, errors.Wrap(err, "creating songs dir")
	}
	f := &FileStore{
		dir:       dir,
		logger:    logging.OrDiscard(logger),
		index:     make(map[string]model.SongSummary),
		debounced: debounce.New(200 * time.Millisecond),
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		if filepath.Base(p) == indexFile {
			continue
		}
		s, err := readSong(p)
		if err != nil {
			f.logger.Warn("skipping unreadable song", "path", p, "err", err)
			continue
		}
		f.index[s.ID] = model.Summarize(s)
	}
	return f, nil
}

func (f *FileStore) path(id string) (string, bool) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." || id+".json" == indexFile {
		return "", false
	}
	return filepath.Join(f.dir, id+".json"), true
}

func readSong(path string) (model.Song, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Song{}, err
	}
	var s model.Song
	if err := json.Unmarshal(data, &s); err != nil {
		return model.Song{}, errors.Wrapf(err, "decoding %s", path)
	}
	return s, nil
}

func (f *FileStore) Put(ctx context.Context, s model.Song) (model.Song, error) {
	if err := ctx.Err(); err != nil {
		return model.Song{}, err
	}
	if err := s.Validate(); err != nil {
		return model.Song{}, err
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	p, ok := f.path(s.ID)
	if !ok {
		return model.Song{}, errors.Wrapf(model.ErrInvalidSong, "bad id %q", s.ID)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return model.Song{}, err
	}
	if err := os.WriteFile(p, data, 0666); err != nil {
		return model.Song{}, errors.Wrap(err, "writing song")
	}

	f.mu.Lock()
	f.index[s.ID] = model.Summarize(s)
	f.mu.Unlock()
	f.debounced(f.flushLogged)
	f.logger.Debug("saved song", "id", s.ID, "name", s.Name)
	return s, nil
}

func (f *FileStore) Get(ctx context.Context, id string) (model.Song, error) {
	if err := ctx.Err(); err != nil {
		return model.Song{}, err
	}
	p, ok := f.path(id)
	if !ok {
		return model.Song{}, ErrNotFound
	}
	s, err := readSong(p)
	if os.IsNotExist(errors.Cause(err)) {
		return model.Song{}, ErrNotFound
	}
	return s, err
}

func (f *FileStore) List(ctx context.Context) ([]model.Song, error) {
	f.mu.Lock()
	ids := util.SortedKeys(f.index)
	f.mu.Unlock()

	res := make([]model.Song, 0, len(ids))
	for _, id := range ids {
		s, err := f.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	sortSongs(res)
	return res, nil
}

func (f *FileStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, ok := f.path(id)
	if !ok {
		return ErrNotFound
	}
	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	f.mu.Lock()
	delete(f.index, id)
	f.mu.Unlock()
	f.debounced(f.flushLogged)
	return nil
}

// Size is how many bytes the song takes on disk.
func (f *FileStore) Size(id string) (int64, error) {
	path, ok := f.path(id)
	if !ok {
		return 0, errors.Wrapf(ErrNotFound, "bad id %q", id)
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return 0, errors.Wrap(ErrNotFound, id)
	}
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Summaries is the in-memory index, sorted by id.
func (f *FileStore) Summaries() []model.SongSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := make([]model.SongSummary, 0, len(f.index))
	for _, id := range util.SortedKeys(f.index) {
		res = append(res, f.index[id])
	}
	return res
}

// Flush writes index.json now.
func (f *FileStore) Flush() error {
	f.flushMu.Lock()
	defer f.flushMu.Unlock()
	if f.closed {
		return nil
	}
	data, err := json.MarshalIndent(f.Summaries(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(f.dir, indexFile), data, 0666)
}

// Close writes the index one last time. Pending debounced writes become
// no-ops.
func (f *FileStore) Close() error {
	err := f.Flush()
	f.flushMu.Lock()
	f.closed = true
	f.flushMu.Unlock()
	return err
}

func (f *FileStore) flushLogged() {
	if err := f.Flush(); err != nil {
		f.logger.Error("could not write song index", "err", err)
	}
}
