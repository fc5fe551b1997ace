// Package song persists finished songs. Stores hand back copies; callers
// may keep and mutate what they get.
package song

import (
	"context"
	"fmt"
	"sort"

	"github.com/jsphweid/harmonybeat/constants"
	"github.com/jsphweid/harmonybeat/model"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("song not found")

type Store interface {
	// Put validates s, assigns an ID when it has none and saves it.
	Put(ctx context.Context, s model.Song) (model.Song, error)
	Get(ctx context.Context, id string) (model.Song, error)
	List(ctx context.Context) ([]model.Song, error)
	Delete(ctx context.Context, id string) error
}

// Add saves s as a new song. A name already in the library gets a " (n)"
// suffix and a non-positive base score is replaced with the default.
func Add(ctx context.Context, store Store, s model.Song) (model.Song, error) {
	if s.BaseScore <= 0 {
		s.BaseScore = constants.DefaultBaseScore
	}
	if err := s.Validate(); err != nil {
		return model.Song{}, err
	}
	existing, err := store.List(ctx)
	if err != nil {
		return model.Song{}, err
	}
	names := make(map[string]bool, len(existing))
	for _, e := range existing {
		names[e.Name] = true
	}
	name := s.Name
	for counter := 1; names[name]; counter++ {
		name = fmt.Sprintf("%s (%d)", s.Name, counter)
	}
	s.Name = name
	s.ID = ""
	return store.Put(ctx, s)
}

func sortSongs(songs []model.Song) {
	sort.SliceStable(songs, func(i, j int) bool {
		a, b := songs[i], songs[j]
		if a.RecordedAt != b.RecordedAt {
			return a.RecordedAt < b.RecordedAt
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}

// clone deep-copies the parts of a song a caller could mutate.
func clone(s model.Song) model.Song {
	c := s
	c.Chart = append(model.Chart(nil), s.Chart...)
	if s.Quantized != nil {
		q := *s.Quantized
		c.Quantized = &q
	}
	if s.MusicalScore != nil {
		m := *s.MusicalScore
		c.MusicalScore = &m
	}
	if s.HarmonicAnalysis != nil {
		a := *s.HarmonicAnalysis
		a.Suggestions = append([]model.Suggestion(nil), s.HarmonicAnalysis.Suggestions...)
		c.HarmonicAnalysis = &a
	}
	return c
}
