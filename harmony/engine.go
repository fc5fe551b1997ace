// Package harmony tracks the chord progression and judges and generates
// notes against it.
//
// The engine is stateful: SmartLeadNote remembers the note it returned and
// uses it to weight the next pick when voice leading is on. Tests that
// depend on generated notes must seed the Rand and account for the order
// of calls.
package harmony

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jsphweid/harmonybeat/chord"
	"github.com/jsphweid/harmonybeat/config"
	"github.com/jsphweid/harmonybeat/constants"
	"github.com/jsphweid/harmonybeat/event"
	"github.com/jsphweid/harmonybeat/logging"
	"github.com/jsphweid/harmonybeat/model"
	"github.com/jsphweid/harmonybeat/transport"
	"github.com/jsphweid/harmonybeat/util"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

type Kind string

const (
	KindChordTone   Kind = "chord_tone"
	KindScaleTone   Kind = "scale_tone"
	KindExtension   Kind = "extension"
	KindPassingTone Kind = "passing_tone"
	KindMixed       Kind = "mixed"
)

const (
	chordToneStrength = 1.0
	extensionStrength = 0.9
	scaleToneStrength = 0.7
	clashStrength     = 0.3

	keyCenter = "A minor"
)

type Options struct {
	Clock            *transport.Clock
	Progression      chord.Progression
	Extensions       map[string][]chord.Note
	Scale            chord.Scale
	PassingScale     chord.Scale
	MeasuresPerChord int
	// only notes in this lane are judged against the chords
	MelodicLane      string

	VoiceLeading  bool
	AutoHarmonize bool
	// probability that NextSmartNote asks for a chord tone
	Strength float64

	Rand     *rand.Rand
	Observer event.Observer
	Logger   *log.Logger
}

// OptionsFromSettings fills the musical defaults and copies the toggles
// from s.
func OptionsFromSettings(s config.Settings, clock *transport.Clock) Options {
	return Options{
		Clock:            clock,
		MeasuresPerChord: s.MeasuresPerChord,
		MelodicLane:      s.MelodicLane,
		VoiceLeading:     s.VoiceLeading,
		AutoHarmonize:    s.AutoHarmonize,
		Strength:         s.HarmonizationStrength,
	}
}

// Engine is not safe for concurrent use; a session serializes access.
type Engine struct {
	clock            *transport.Clock
	progression      chord.Progression
	extensions       map[string][]chord.Note
	scale            chord.Scale
	passingScale     chord.Scale
	measuresPerChord int
	melodicLane      string

	voiceLeading  bool
	autoHarmonize bool
	strength      float64

	rng      *rand.Rand
	observer event.Observer
	logger   *log.Logger

	index int
	last  *chord.Note
}

func New(opts Options) (*Engine, error) {
	if opts.Clock == nil {
		return nil, errors.Wrap(config.ErrInvalidConfiguration, "harmony engine needs a clock")
	}
	if opts.MeasuresPerChord < 1 {
		return nil, errors.Wrapf(config.ErrInvalidConfiguration, "measures per chord must be >= 1, got %d", opts.MeasuresPerChord)
	}
	if opts.Progression == nil {
		opts.Progression = chord.DefaultProgression
	}
	if len(opts.Progression) == 0 {
		return nil, errors.Wrap(config.ErrInvalidConfiguration, "empty chord progression")
	}
	if opts.Extensions == nil {
		opts.Extensions = chord.Extensions
	}
	if opts.Scale.Notes == nil {
		opts.Scale = chord.APentatonic
	}
	if opts.PassingScale.Notes == nil {
		opts.PassingScale = chord.ANaturalMinor
	}
	if opts.MelodicLane == "" {
		opts.MelodicLane = constants.LaneRight
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		clock:            opts.Clock,
		progression:      opts.Progression,
		extensions:       opts.Extensions,
		scale:            opts.Scale,
		passingScale:     opts.PassingScale,
		measuresPerChord: opts.MeasuresPerChord,
		melodicLane:      opts.MelodicLane,
		voiceLeading:     opts.VoiceLeading,
		autoHarmonize:    opts.AutoHarmonize,
		strength:         util.Clamp(opts.Strength, 0, 1),
		rng:              opts.Rand,
		observer:         event.OrDiscard(opts.Observer),
		logger:           logging.OrDiscard(opts.Logger),
	}, nil
}

func (e *Engine) Progression() chord.Progression { return e.progression }
func (e *Engine) Index() int                      { return e.index }
func (e *Engine) MelodicLane() string             { return e.melodicLane }

// Advance moves to the next chord, wrapping at the end of the progression.
func (e *Engine) Advance() {
	e.index = (e.index + 1) % len(e.progression)
	c := e.CurrentChord()
	e.logger.Debug("chord changed", "index", e.index, "chord", c.Name)
	e.observer.Notify(event.ChordChanged{Index: e.index, Name: c.Name})
}

// Reset returns to the first chord and forgets the last generated note.
func (e *Engine) Reset() {
	e.index = 0
	e.last = nil
}

func (e *Engine) CurrentChord() chord.Chord {
	return e.progression[e.index]
}

func (e *Engine) CurrentChordName() string {
	return e.CurrentChord().Name
}

func (e *Engine) CurrentRootNote() chord.Note {
	return e.CurrentChord().Root
}

func (e *Engine) MeasuresPerChord() int {
	return e.measuresPerChord
}

// ChordPeriodMs is how long each chord lasts at the clock's current tempo.
func (e *Engine) ChordPeriodMs() float64 {
	return float64(e.measuresPerChord) * e.clock.MsPerMeasure()
}

// ChordIndexAtTime is where an on-time progression clock started at zero
// would be at t. It ignores the live index.
func (e *Engine) ChordIndexAtTime(t float64) int {
	if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return 0
	}
	return int(math.Floor(t/e.ChordPeriodMs())) % len(e.progression)
}

func (e *Engine) ChordAtTime(t float64) chord.Chord {
	return e.progression[e.ChordIndexAtTime(t)]
}

func (e *Engine) AutoHarmonize() bool { return e.autoHarmonize }
func (e *Engine) VoiceLeading() bool  { return e.voiceLeading }

func (e *Engine) ToggleAutoHarmonize() bool {
	e.autoHarmonize = !e.autoHarmonize
	return e.autoHarmonize
}

func (e *Engine) ToggleVoiceLeading() bool {
	e.voiceLeading = !e.voiceLeading
	return e.voiceLeading
}

func (e *Engine) HarmonizationStrength() float64 { return e.strength }

// SetHarmonizationStrength clamps strength to [0, 1].
func (e *Engine) SetHarmonizationStrength(strength float64) {
	if math.IsNaN(strength) {
		return
	}
	e.strength = util.Clamp(strength, 0, 1)
}

// LastNote is the most recent note handed out by SmartLeadNote.
func (e *Engine) LastNote() (chord.Note, bool) {
	if e.last == nil {
		return chord.Note{}, false
	}
	return *e.last, true
}

func (e *Engine) extensionsOf(c chord.Chord) []chord.Note {
	return e.extensions[c.Name]
}

// scaleOnlyTones are the scale notes whose pitch class is not in c.
func (e *Engine) scaleOnlyTones(c chord.Chord) []chord.Note {
	var res []chord.Note
	for _, n := range e.scale.Notes {
		if !c.Contains(n.PitchClass) {
			res = append(res, n)
		}
	}
	return res
}

// passingTones are the diatonic letters missing from c, placed in octave 4.
func (e *Engine) passingTones(c chord.Chord) []chord.Note {
	var res []chord.Note
	seen := make(map[int]bool)
	for _, n := range e.passingScale.Notes {
		if seen[n.PitchClass] || c.Contains(n.PitchClass) {
			continue
		}
		seen[n.PitchClass] = true
		res = append(res, n.InOctave(chord.DefaultOctave))
	}
	return res
}

// Candidates lists the notes SmartLeadNote would draw from for kind.
// Repeated entries count as extra weight.
func (e *Engine) Candidates(kind Kind) []chord.Note {
	c := e.CurrentChord()
	var res []chord.Note
	switch kind {
	case KindChordTone:
		res = append(res, c.Tones...)
	case KindScaleTone:
		res = e.scaleOnlyTones(c)
	case KindExtension:
		res = append(res, e.extensionsOf(c)...)
	case KindPassingTone:
		res = e.passingTones(c)
	default:
		res = append(res, c.Tones...)
		res = append(res, c.Tones...)
		res = append(res, e.scale.Notes[:util.Min(3, len(e.scale.Notes))]...)
	}
	if len(res) == 0 {
		res = append(res, c.Tones...)
	}
	return res
}

// SmartLeadNote picks a note of the requested kind that fits the current
// chord and remembers it for voice leading.
func (e *Engine) SmartLeadNote(kind Kind) chord.Note {
	candidates := e.Candidates(kind)
	var weights []int
	if e.voiceLeading && e.last != nil {
		candidates, weights = VoiceLeadingWeights(candidates, *e.last)
	}
	n := WeightedPick(candidates, weights, e.rng)
	e.last = &n
	return n
}

// NextSmartNote chooses the kind of note from the harmonization strength:
// a chord tone with probability strength, otherwise an extension (30% of
// the time when allowed) or a scale tone.
func (e *Engine) NextSmartNote(allowExtensions bool) chord.Note {
	kind := KindChordTone
	if e.rng.Float64() > e.strength {
		if allowExtensions && e.rng.Float64() > 0.7 {
			kind = KindExtension
		} else {
			kind = KindScaleTone
		}
	}
	return e.SmartLeadNote(kind)
}

// AnalyzeNote judges pitch against the current chord.
func (e *Engine) AnalyzeNote(pitch string) model.HarmonicAnalysis {
	return e.AnalyzeNoteWithChord(pitch, e.CurrentChord())
}

// AnalyzeNoteWithChord classifies pitch against c. The first match wins:
// chord tone, extension, scale tone, else a clash with the nearest chord
// tone as suggestion. Unparseable pitches get the neutral analysis.
func (e *Engine) AnalyzeNoteWithChord(pitch string, c chord.Chord) model.HarmonicAnalysis {
	n, err := chord.ParseNote(pitch)
	if err != nil || len(c.Tones) == 0 {
		return model.NeutralAnalysis()
	}
	if c.Contains(n.PitchClass) {
		return model.HarmonicAnalysis{Fits: true, Strength: chordToneStrength, Classification: model.ChordTone}
	}
	for _, ext := range e.extensionsOf(c) {
		if ext.PitchClass == n.PitchClass {
			return model.HarmonicAnalysis{Fits: true, Strength: extensionStrength, Classification: model.Extension}
		}
	}
	if e.scale.Contains(n.PitchClass) {
		return model.HarmonicAnalysis{Fits: true, Strength: scaleToneStrength, Classification: model.ScaleTone}
	}
	return model.HarmonicAnalysis{
		Fits:           false,
		Strength:       clashStrength,
		Classification: model.Clash,
		Suggestion:     c.Nearest(n).String(),
	}
}

// Harmonize stacks the other current chord tones under or over pitch. Each
// added tone keeps its voicing octave clamped to one octave of the melody.
func (e *Engine) Harmonize(pitch string) []string {
	n, err := chord.ParseNote(pitch)
	if err != nil {
		return []string{pitch}
	}
	res := []string{pitch}
	for _, t := range e.CurrentChord().Tones {
		if t.PitchClass == n.PitchClass {
			continue
		}
		octave := util.Clamp(t.Octave, n.Octave-1, n.Octave+1)
		res = append(res, t.InOctave(octave).String())
	}
	return res
}

// AnalyzeRecordedSequence judges each note against the chord an on-time
// progression would have been playing at the note's time. END markers are
// skipped; unpitched notes and notes outside the melodic lane count as
// neutral.
func (e *Engine) AnalyzeRecordedSequence(notes []model.ChartEvent) model.SequenceAnalysis {
	res := model.SequenceAnalysis{Suggestions: []model.Suggestion{}}
	var strengths []float64
	for i, n := range notes {
		if n.IsEnd() {
			continue
		}
		analysis := model.NeutralAnalysis()
		c := e.ChordAtTime(n.Time)
		if n.Lane == e.melodicLane && n.Pitch != "" {
			analysis = e.AnalyzeNoteWithChord(n.Pitch, c)
		}
		strengths = append(strengths, analysis.Strength)
		if !analysis.Fits && analysis.Suggestion != "" {
			res.Suggestions = append(res.Suggestions, model.Suggestion{
				Index:     i,
				Original:  n.Pitch,
				Suggested: analysis.Suggestion,
				Reason:    analysis.Classification,
				Time:      n.Time,
				Chord:     c.Name,
			})
		}
	}
	if len(strengths) > 0 {
		res.HarmonicFit = util.Clamp(stat.Mean(strengths, nil), 0, 1)
	}
	return res
}

func (e *Engine) RecordingSuggestions() model.RecordingSuggestions {
	c := e.CurrentChord()
	return model.RecordingSuggestions{
		Strong:        chord.Names(c.Tones),
		Good:          chord.Names(e.scale.Notes[:util.Min(4, len(e.scale.Notes))]),
		Sophisticated: chord.Names(e.extensionsOf(c)),
	}
}

func (e *Engine) MusicalContext() model.MusicalContext {
	c := e.CurrentChord()
	return model.MusicalContext{
		CurrentChord:     c.Name,
		KeyCenter:        keyCenter,
		ChordTones:       chord.Names(c.Tones),
		ScaleTones:       chord.Names(e.scale.Notes),
		Suggestions:      e.RecordingSuggestions(),
		ProgressPosition: fmt.Sprintf("%d/%d", e.index+1, len(e.progression)),
		RootNote:         c.Root.String(),
	}
}
