package harmony

import (
	"math/rand"
	"testing"

	"github.com/jsphweid/harmonybeat/chord"
	"github.com/jsphweid/harmonybeat/config"
	"github.com/jsphweid/harmonybeat/event"
	"github.com/jsphweid/harmonybeat/model"
	"github.com/jsphweid/harmonybeat/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, mutate ...func(*Options)) *Engine {
	clock, err := transport.New(120, model.TimeSignature{Numerator: 4, Denominator: 4}, model.Sixteenth)
	require.NoError(t, err)
	opts := Options{
		Clock:            clock,
		MeasuresPerChord: 2,
		VoiceLeading:     true,
		Strength:         0.7,
		Rand:             rand.New(rand.NewSource(7)),
	}
	for _, m := range mutate {
		m(&opts)
	}
	e, err := New(opts)
	require.NoError(t, err)
	return e
}

func TestAnalyzeNoteOverAMinor(t *testing.T) {
	e := newEngine(t)
	require.Equal(t, "Am", e.CurrentChordName())

	assert := assert.New(t)
	assert.Equal(model.HarmonicAnalysis{Fits: true, Strength: 1.0, Classification: model.ChordTone}, e.AnalyzeNote("C4"))

	clash := e.AnalyzeNote("F4")
	assert.False(clash.Fits)
	assert.Equal(0.3, clash.Strength)
	assert.Equal(model.Clash, clash.Classification)
	assert.Equal("E4", clash.Suggestion)
}

func TestAnalyzeNoteClassifications(t *testing.T) {
	e := newEngine(t)
	cases := map[string]model.Classification{
		"A3":  model.ChordTone,
		"E5":  model.ChordTone,
		"G4":  model.Extension,
		"B2":  model.Extension,
		"D4":  model.Extension,
		"F#4": model.Clash,
		"A#4": model.Clash,
	}
	for pitch, want := range cases {
		assert.Equal(t, want, e.AnalyzeNote(pitch).Classification, pitch)
	}
}

func TestAnalyzeNoteScaleToneOverF(t *testing.T) {
	e := newEngine(t)
	e.Advance()
	require.Equal(t, "F", e.CurrentChordName())

	// F chord A C F, extensions E D G, pentatonic A C D E G
	got := e.AnalyzeNote("G4")
	assert.Equal(t, model.Extension, got.Classification)
	assert.Equal(t, 0.9, got.Strength)
}

func TestAnalyzeNoteExtensionOverC(t *testing.T) {
	e := newEngine(t)
	e.Advance()
	e.Advance()
	require.Equal(t, "C", e.CurrentChordName())

	// F over C is the 11th, offered as a color tone
	got := e.AnalyzeNote("F4")
	assert.Equal(t, model.HarmonicAnalysis{Fits: true, Strength: 0.9, Classification: model.Extension}, got)
}

func TestAnalyzeNoteScaleTone(t *testing.T) {
	e := newEngine(t, func(o *Options) {
		o.Extensions = map[string][]chord.Note{}
	})

	got := e.AnalyzeNote("D4")
	assert.Equal(t, model.HarmonicAnalysis{Fits: true, Strength: 0.7, Classification: model.ScaleTone}, got)
}

func TestChordToneBeatsExtension(t *testing.T) {
	e := newEngine(t, func(o *Options) {
		o.Extensions = map[string][]chord.Note{
			"Am": chord.MustParseAll("A4", "C5", "E5"),
		}
	})
	for _, pitch := range []string{"A4", "C5", "E5", "A2"} {
		assert.Equal(t, model.ChordTone, e.AnalyzeNote(pitch).Classification, pitch)
	}
}

func TestChordToneAlwaysWinsForEveryChord(t *testing.T) {
	e := newEngine(t)
	for range e.Progression() {
		c := e.CurrentChord()
		for pc := 0; pc < 12; pc++ {
			n := chord.Note{PitchClass: pc, Octave: 4}
			got := e.AnalyzeNote(n.String())
			if c.Contains(pc) {
				assert.Equal(t, model.ChordTone, got.Classification, "%s over %s", n, c.Name)
			}
			assert.GreaterOrEqual(t, got.Strength, 0.0)
			assert.LessOrEqual(t, got.Strength, 1.0)
		}
		e.Advance()
	}
}

func TestUnknownPitchIsNeutral(t *testing.T) {
	e := newEngine(t)
	assert.Equal(t, model.NeutralAnalysis(), e.AnalyzeNote("kick"))
	assert.Equal(t, model.NeutralAnalysis(), e.AnalyzeNoteWithChord("C4", chord.Chord{Name: "N.C."}))
}

func TestProgressionCycles(t *testing.T) {
	rec := &event.Recorder{}
	e := newEngine(t, func(o *Options) { o.Observer = rec })

	var names []string
	for i := 0; i < len(e.Progression()); i++ {
		e.Advance()
		names = append(names, e.CurrentChordName())
	}

	assert := assert.New(t)
	assert.Equal(0, e.Index())
	assert.Equal([]string{"F", "C", "G", "Am"}, names)
	changes := rec.OfKind(event.KindChordChanged)
	require.Len(t, changes, 4)
	assert.Equal(event.ChordChanged{Index: 1, Name: "F"}, changes[0])
}

func TestChordAtTime(t *testing.T) {
	e := newEngine(t)

	assert := assert.New(t)
	assert.Equal(4000.0, e.ChordPeriodMs())
	assert.Equal("Am", e.ChordAtTime(0).Name)
	assert.Equal("Am", e.ChordAtTime(3999).Name)
	assert.Equal("F", e.ChordAtTime(4000).Name)
	assert.Equal("G", e.ChordAtTime(12500).Name)
	assert.Equal("Am", e.ChordAtTime(16000).Name)
	assert.Equal("Am", e.ChordAtTime(-5).Name)
}

// The live index only agrees with the time-indexed lookup when advances
// land on schedule.
func TestLiveAndTimeIndexedChordsAgreeWhenOnTime(t *testing.T) {
	e := newEngine(t)
	period := e.ChordPeriodMs()
	next := period
	for ts := 0.0; ts < period*9; ts += 250 {
		for ts >= next {
			e.Advance()
			next += period
		}
		assert.Equal(t, e.ChordAtTime(ts).Name, e.CurrentChordName(), "t=%v", ts)
	}
}

func TestLiveAndTimeIndexedChordsDivergeWhenAdvanceIsLate(t *testing.T) {
	e := newEngine(t)
	period := e.ChordPeriodMs()

	// the timer fires 300ms late; a note at period+100 was heard over Am
	noteTime := period + 100
	live := e.CurrentChordName()
	e.Advance()

	assert.Equal(t, "Am", live)
	assert.Equal(t, "F", e.ChordAtTime(noteTime).Name)
	assert.NotEqual(t, live, e.ChordAtTime(noteTime).Name)
}

func TestAnalyzeRecordedSequence(t *testing.T) {
	e := newEngine(t)
	notes := []model.ChartEvent{
		{Time: 0, Lane: "ArrowRight", Pitch: "C4"},
		{Time: 4000, Lane: "ArrowRight", Pitch: "F4"},
		{Time: 8000, Lane: "ArrowRight", Pitch: "F#4"},
		{Time: 10000, Lane: "ArrowLeft", Pitch: "F#4"},
		{Time: 12000, Lane: "ArrowLeft"},
		{Time: 14000, Lane: model.EndLane},
	}
	res := e.AnalyzeRecordedSequence(notes)

	assert := assert.New(t)
	// the pitched note outside the melodic lane counts as neutral
	assert.InDelta((1+1+0.3+1+1)/5.0, res.HarmonicFit, 1e-9)
	require.Len(t, res.Suggestions, 1)
	assert.Equal(model.Suggestion{
		Index:     2,
		Original:  "F#4",
		Suggested: "G4",
		Reason:    model.Clash,
		Time:      8000,
		Chord:     "C",
	}, res.Suggestions[0])
	assert.Equal(1, res.ClashCount())
}

func TestAnalyzeEmptySequence(t *testing.T) {
	e := newEngine(t)
	res := e.AnalyzeRecordedSequence(nil)

	assert.Equal(t, 0.0, res.HarmonicFit)
	assert.NotNil(t, res.Suggestions)
	assert.Empty(t, res.Suggestions)
}

func TestHarmonizeClampsOctaves(t *testing.T) {
	e := newEngine(t)

	assert := assert.New(t)
	assert.Equal([]string{"C4", "A3", "E4"}, e.Harmonize("C4"))
	assert.Equal([]string{"C6", "A5", "E5"}, e.Harmonize("C6"))
	assert.Equal([]string{"F4", "A3", "C4", "E4"}, e.Harmonize("F4"))
	assert.Equal([]string{"nope"}, e.Harmonize("nope"))
}

func TestCandidates(t *testing.T) {
	e := newEngine(t)

	assert := assert.New(t)
	assert.Equal([]string{"A3", "C4", "E4"}, chord.Names(e.Candidates(KindChordTone)))
	assert.Equal([]string{"D4", "G4", "D5"}, chord.Names(e.Candidates(KindScaleTone)))
	assert.Equal([]string{"G4", "B4", "D5"}, chord.Names(e.Candidates(KindExtension)))
	assert.Equal([]string{"B4", "D4", "F4", "G4"}, chord.Names(e.Candidates(KindPassingTone)))
	assert.Equal([]string{"A3", "C4", "E4", "A3", "C4", "E4", "A3", "C4", "D4"}, chord.Names(e.Candidates(KindMixed)))
}

func TestVoiceLeadingWeights(t *testing.T) {
	ranked, weights := VoiceLeadingWeights(chord.MustParseAll("A3", "C4", "E4"), chord.MustParse("D4"))

	assert := assert.New(t)
	assert.Equal([]string{"C4", "E4", "A3"}, chord.Names(ranked))
	assert.Equal([]int{5, 4, 3}, weights)

	_, many := VoiceLeadingWeights(chord.MustParseAll("A3", "B3", "C4", "D4", "E4", "F4", "G4"), chord.MustParse("A3"))
	assert.Equal([]int{5, 4, 3, 2, 1, 1, 1}, many)
}

func TestWeightedPickRespectsWeights(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		assert.Equal(t, "b", WeightedPick([]string{"a", "b", "c"}, []int{0, 3, 0}, rng))
	}
}

func TestWeightedPickFavorsHeavyCandidates(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	counts := map[string]int{}
	for i := 0; i < 6000; i++ {
		counts[WeightedPick([]string{"near", "far"}, []int{5, 1}, rng)]++
	}
	assert.Greater(t, counts["near"], counts["far"]*3)
}

func TestSmartLeadNoteIsReproducibleWithSeed(t *testing.T) {
	gen := func() []string {
		e := newEngine(t, func(o *Options) { o.Rand = rand.New(rand.NewSource(42)) })
		var res []string
		for i := 0; i < 20; i++ {
			res = append(res, e.SmartLeadNote(KindMixed).String())
			if i%5 == 4 {
				e.Advance()
			}
		}
		return res
	}
	assert.Equal(t, gen(), gen())
}

func TestSmartLeadNoteRemembersLastNote(t *testing.T) {
	e := newEngine(t)
	_, ok := e.LastNote()
	require.False(t, ok)

	n := e.SmartLeadNote(KindChordTone)
	last, ok := e.LastNote()

	assert.True(t, ok)
	assert.Equal(t, n, last)
	assert.Contains(t, e.Candidates(KindChordTone), n)

	e.Reset()
	_, ok = e.LastNote()
	assert.False(t, ok)
}

func TestNextSmartNoteFollowsStrength(t *testing.T) {
	e := newEngine(t)
	e.SetHarmonizationStrength(1)
	for i := 0; i < 30; i++ {
		assert.Contains(t, e.Candidates(KindChordTone), e.NextSmartNote(true))
	}

	e.SetHarmonizationStrength(0)
	for i := 0; i < 30; i++ {
		assert.Contains(t, e.Candidates(KindScaleTone), e.NextSmartNote(false))
	}
}

func TestToggles(t *testing.T) {
	e := newEngine(t)

	assert := assert.New(t)
	assert.True(e.ToggleAutoHarmonize())
	assert.False(e.ToggleVoiceLeading())
	e.SetHarmonizationStrength(3)
	assert.Equal(1.0, e.HarmonizationStrength())
	e.SetHarmonizationStrength(-1)
	assert.Equal(0.0, e.HarmonizationStrength())
}

func TestMusicalContext(t *testing.T) {
	e := newEngine(t)
	e.Advance()
	ctx := e.MusicalContext()

	assert := assert.New(t)
	assert.Equal("F", ctx.CurrentChord)
	assert.Equal("A minor", ctx.KeyCenter)
	assert.Equal("2/4", ctx.ProgressPosition)
	assert.Equal("F3", ctx.RootNote)
	assert.Equal([]string{"F3", "A3", "C4"}, ctx.ChordTones)
	assert.Equal([]string{"A3", "C4", "D4", "E4"}, ctx.Suggestions.Good)
	assert.Equal([]string{"E4", "D5", "G4"}, ctx.Suggestions.Sophisticated)
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(Options{MeasuresPerChord: 2})
	assert.ErrorIs(t, err, config.ErrInvalidConfiguration)

	clock, err := transport.New(120, model.TimeSignature{Numerator: 4, Denominator: 4}, model.Sixteenth)
	require.NoError(t, err)
	_, err = New(Options{Clock: clock})
	assert.ErrorIs(t, err, config.ErrInvalidConfiguration)

	_, err = New(Options{Clock: clock, MeasuresPerChord: 1, Progression: chord.Progression{}})
	assert.ErrorIs(t, err, config.ErrInvalidConfiguration)
}
