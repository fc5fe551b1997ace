// Package recording captures live input and turns it into a Song.
package recording

import (
	"math"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jsphweid/harmonybeat/config"
	"github.com/jsphweid/harmonybeat/constants"
	"github.com/jsphweid/harmonybeat/event"
	"github.com/jsphweid/harmonybeat/harmony"
	"github.com/jsphweid/harmonybeat/logging"
	"github.com/jsphweid/harmonybeat/model"
	"github.com/jsphweid/harmonybeat/quantize"
	"github.com/pkg/errors"
)

var ErrNotRecording = errors.New("not recording")

type Options struct {
	Quantizer *quantize.Quantizer
	// also decides which lane is melodic
	Harmony *harmony.Engine

	Observer event.Observer
	Logger   *log.Logger
	// defaults to time.Now
	Now func() time.Time
}

type Recorder struct {
	quantizer   *quantize.Quantizer
	harmony     *harmony.Engine
	melodicLane string
	observer    event.Observer
	logger      *log.Logger
	now         func() time.Time

	recording bool
	name      string
	baseScore int
	notes     []model.RecordedNote
}

func New(opts Options) (*Recorder, error) {
	if opts.Quantizer == nil || opts.Harmony == nil {
		return nil, errors.Wrap(config.ErrInvalidConfiguration, "recorder needs a quantizer and a harmony engine")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Recorder{
		quantizer:   opts.Quantizer,
		harmony:     opts.Harmony,
		melodicLane: opts.Harmony.MelodicLane(),
		observer:    event.OrDiscard(opts.Observer),
		logger:      logging.OrDiscard(opts.Logger),
		now:         opts.Now,
	}, nil
}

// Start begins a new take. A non-positive base score falls back to the default.
func (r *Recorder) Start(name string, baseScore int) error {
	if name == "" {
		return errors.Wrap(model.ErrInvalidSong, "missing name")
	}
	if baseScore <= 0 {
		baseScore = constants.DefaultBaseScore
	}
	r.recording = true
	r.name = name
	r.baseScore = baseScore
	r.notes = nil
	r.logger.Info("recording started", "name", name)
	return nil
}

func (r *Recorder) Recording() bool { return r.recording }

// Cancel throws the current take away.
func (r *Recorder) Cancel() {
	r.recording = false
	r.notes = nil
}

// Notes returns a copy of what has been recorded so far.
func (r *Recorder) Notes() []model.RecordedNote {
	res := make([]model.RecordedNote, len(r.notes))
	copy(res, r.notes)
	return res
}

// Record captures one press. Melodic presses without a pitch get one from
// the harmony engine; every melodic note is classified against the chord
// playing right now.
func (r *Recorder) Record(lane, pitch string, elapsed float64) (model.RecordedNote, error) {
	if !r.recording {
		return model.RecordedNote{}, ErrNotRecording
	}
	if err := (model.ChartEvent{Time: elapsed, Lane: lane}).Validate(); err != nil {
		return model.RecordedNote{}, err
	}
	if lane == model.EndLane {
		return model.RecordedNote{}, errors.Wrap(model.ErrInvalidChartEvent, "END cannot be recorded")
	}

	note := model.RecordedNote{Time: elapsed, Lane: lane}
	if r.quantizer.Enabled() {
		t := r.quantizer.QuantizeTime(elapsed)
		note.QuantizedTime = &t
	}
	if lane == r.melodicLane {
		if pitch == "" {
			pitch = r.harmony.NextSmartNote(true).String()
		}
		note.Pitch = pitch
		analysis := r.harmony.AnalyzeNote(pitch)
		note.HarmonicAnalysis = &analysis
		r.observer.Notify(event.NoteClassified{Lane: lane, Pitch: pitch, Time: note.At(), Analysis: analysis})
	} else {
		note.Pitch = pitch
	}
	r.notes = append(r.notes, note)
	r.logger.Debug("recorded", "lane", lane, "pitch", note.Pitch, "time", note.At())
	return note, nil
}

// Finish closes the take: END goes 2s after the last note, the chart is
// quantized when enabled and then scored against the progression.
func (r *Recorder) Finish() (model.Song, error) {
	if !r.recording {
		return model.Song{}, ErrNotRecording
	}
	r.recording = false

	notes := r.Notes()
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].Time < notes[j].Time
	})
	var last float64
	if len(notes) > 0 {
		last = notes[len(notes)-1].Time
	}
	notes = append(notes, model.RecordedNote{Time: last + constants.EndMarkerPadMs, Lane: model.EndLane})

	// the setting at the end of the take applies to every note, whatever
	// it was when each note was recorded
	quantized := r.quantizer.Enabled()
	if quantized {
		notes = r.quantizer.QuantizeRecordedChart(notes)
	} else {
		for i := range notes {
			notes[i].QuantizedTime = nil
		}
	}
	song := BuildSong(r.name, r.baseScore, notes, r.harmony)
	song.Quantized = &quantized
	song.RecordedAt = r.now().UnixMilli()

	r.logger.Info("recording finished", "name", song.Name, "notes", len(song.Chart)-1, "musicalScore", *song.MusicalScore)
	return song, nil
}

// BuildSong scores an already finished list of notes. END must be the
// latest note. The chart is ordered by effective time, earliest original
// first on ties.
func BuildSong(name string, baseScore int, notes []model.RecordedNote, engine *harmony.Engine) model.Song {
	ordered := make([]model.RecordedNote, len(notes))
	copy(ordered, notes)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].At() != ordered[j].At() {
			return ordered[i].At() < ordered[j].At()
		}
		return ordered[i].Time < ordered[j].Time
	})
	chart := make(model.Chart, 0, len(ordered))
	for _, n := range ordered {
		chart = append(chart, n.ChartEvent())
	}
	analysis := engine.AnalyzeRecordedSequence(chart)
	score := MusicalScore(analysis)
	return model.Song{
		Name:             name,
		BaseScore:        baseScore,
		Chart:            chart,
		HarmonicAnalysis: &analysis,
		MusicalScore:     &score,
		DurationMs:       chart[len(chart)-1].Time,
	}
}

// MusicalScore is harmonicFit as a percentage plus a bonus for a take with
// no clashes.
func MusicalScore(a model.SequenceAnalysis) int {
	bonus := 0.0
	if a.ClashCount() == 0 {
		bonus = constants.NoClashBonus
	}
	return int(math.Round(a.HarmonicFit*100 + bonus))
}
