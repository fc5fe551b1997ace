package song

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jsphweid/harmonybeat/model"
)

type MemoryStore struct {
	mu    sync.RWMutex
	songs map[string]model.Song
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{songs: make(map[string]model.Song)}
}

func (m *MemoryStore) Put(ctx context.Context, s model.Song) (model.Song, error) {
	if err := ctx.Err(); err != nil {
		return model.Song{}, err
	}
	if err := s.Validate(); err != nil {
		return model.Song{}, err
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.songs[s.ID] = clone(s)
	return clone(s), nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (model.Song, error) {
	if err := ctx.Err(); err != nil {
		return model.Song{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.songs[id]
	if !ok {
		return model.Song{}, ErrNotFound
	}
	return clone(s), nil
}

func (m *MemoryStore) List(ctx context.Context) ([]model.Song, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	res := make([]model.Song, 0, len(m.songs))
	for _, s := range m.songs {
		res = append(res, clone(s))
	}
	m.mu.RUnlock()
	sortSongs(res)
	return res, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.songs[id]; !ok {
		return ErrNotFound
	}
	delete(m.songs, id)
	return nil
}
