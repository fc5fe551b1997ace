package model

import (
	"github.com/pkg/errors"
)

var ErrInvalidSong = errors.New("invalid song")

type RecordedNote struct {
	Time  float64 `json:"time"`
	Lane  string  `json:"lane"`
	Pitch string  `json:"pitch,omitempty"`

	QuantizedTime    *float64          `json:"quantizedTime,omitempty"`
	HarmonicAnalysis *HarmonicAnalysis `json:"harmonicAnalysis,omitempty"`
}

// At is the time the note lands on the chart.
func (n RecordedNote) At() float64 {
	if n.QuantizedTime != nil {
		return *n.QuantizedTime
	}
	return n.Time
}

func (n RecordedNote) ChartEvent() ChartEvent {
	return ChartEvent{Time: n.At(), Lane: n.Lane, Pitch: n.Pitch}
}

type Song struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	BaseScore int    `json:"baseScore"`
	Chart     Chart  `json:"chart"`

	Quantized        *bool             `json:"quantized,omitempty"`
	HarmonicAnalysis *SequenceAnalysis `json:"harmonicAnalysis,omitempty"`
	MusicalScore     *int              `json:"musicalScore,omitempty"`

	// unix millis
	RecordedAt int64   `json:"recordedAt,omitempty"`
	DurationMs float64 `json:"duration,omitempty"`
}

func (s Song) Validate() error {
	if s.Name == "" {
		return errors.Wrap(ErrInvalidSong, "missing name")
	}
	if s.BaseScore <= 0 {
		return errors.Wrapf(ErrInvalidSong, "base score must be positive, got %d", s.BaseScore)
	}
	if err := ValidateChart(s.Chart); err != nil {
		return errors.Wrap(ErrInvalidSong, err.Error())
	}
	return nil
}

type FileNumToMidiPath = map[uint32]string
