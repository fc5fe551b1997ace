package session

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/jsphweid/harmonybeat/config"
	"github.com/jsphweid/harmonybeat/event"
	"github.com/jsphweid/harmonybeat/model"
	"github.com/jsphweid/harmonybeat/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cueRecorder struct {
	cues []event.SoundCue
}

func (c *cueRecorder) Render(cue event.SoundCue) {
	c.cues = append(c.cues, cue)
}

func testSettings() config.Settings {
	s := config.Default()
	s.BPM = 120
	return s
}

func newManualSession(t *testing.T, settings config.Settings) (*Session, *event.Recorder, *cueRecorder) {
	rec := &event.Recorder{}
	cues := &cueRecorder{}
	s, err := New(Options{
		Settings:    settings,
		Observer:    rec,
		Sound:       cues,
		Rand:        rand.New(rand.NewSource(5)),
		ManualClock: true,
	})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	return s, rec, cues
}

func TestGameplayHitsAreVoiced(t *testing.T) {
	s, _, cues := newManualSession(t, testSettings())
	chart := model.Chart{
		{Time: 0, Lane: "ArrowLeft"},
		{Time: 500, Lane: "ArrowRight", Pitch: "C4"},
		{Time: 8000, Lane: model.EndLane},
	}
	require.NoError(t, s.LoadChart(chart))

	require.NoError(t, s.Update(0))
	require.NoError(t, s.Update(500))
	j, ok, err := s.Press("ArrowLeft", 2500)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, scheduler.FeedbackPerfect, j.Feedback)

	_, ok, err = s.Press("ArrowRight", 3000)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Update(9000))

	assert := assert.New(t)
	assert.True(s.Done())
	assert.Equal(Stats{Score: 800, Hits: 2, Misses: 0}, s.Stats())
	require.Len(t, cues.cues, 2)
	assert.Equal(event.SoundCue{Instrument: "kick", Velocity: 127, ScheduleTime: 2500}, cues.cues[0])
	assert.Equal("lead", cues.cues[1].Instrument)
	assert.Equal("C4", cues.cues[1].Pitch)
}

func TestMissesAreVoiced(t *testing.T) {
	s, rec, cues := newManualSession(t, testSettings())
	require.NoError(t, s.LoadChart(model.Chart{{Time: 0, Lane: "ArrowUp"}, {Time: 100, Lane: model.EndLane}}))

	require.NoError(t, s.Update(0))
	require.NoError(t, s.Update(3500))

	require.Len(t, cues.cues, 1)
	assert.Equal(t, "miss", cues.cues[0].Instrument)
	assert.Equal(t, "C#2", cues.cues[0].Pitch)
	assert.Len(t, rec.OfKind(event.KindNoteMissed), 1)
	assert.Equal(t, 1, s.Stats().Misses)
}

func TestManualClockAdvancesChords(t *testing.T) {
	s, rec, _ := newManualSession(t, testSettings())
	require.NoError(t, s.LoadChart(model.Chart{{Time: 20000, Lane: model.EndLane}}))

	require.NoError(t, s.Update(3999))
	assert.Equal(t, "Am", s.CurrentChordName())
	require.NoError(t, s.Update(4000))
	assert.Equal(t, "F", s.CurrentChordName())
	require.NoError(t, s.Update(16000))
	assert.Equal(t, "Am", s.CurrentChordName())

	assert.Len(t, rec.OfKind(event.KindChordChanged), 4)
	assert.Equal(t, "1/4", s.MusicalContext().ProgressPosition)
}

func TestManualClockEmitsBeats(t *testing.T) {
	s, rec, _ := newManualSession(t, testSettings())
	require.NoError(t, s.LoadChart(model.Chart{{Time: 20000, Lane: model.EndLane}}))

	for _, ts := range []float64{0, 100, 250, 500, 520, 2000} {
		require.NoError(t, s.Update(ts))
	}

	beats := rec.OfKind(event.KindBeat)
	require.Len(t, beats, 3)
	assert.Equal(t, model.Downbeat, beats[0].(event.Beat).Type)
	assert.Equal(t, model.OnBeat, beats[1].(event.Beat).Type)
	assert.Equal(t, 500.0, beats[1].(event.Beat).Time)
	assert.Equal(t, model.Downbeat, beats[2].(event.Beat).Type)
	assert.Equal(t, 1, beats[2].(event.Beat).Position.Measure)
}

func TestRecordingWithAutoHarmonize(t *testing.T) {
	settings := testSettings()
	settings.AutoHarmonize = true
	s, rec, cues := newManualSession(t, settings)

	require.NoError(t, s.StartRecording("jam", 350))
	_, err := s.Record("ArrowRight", "C4", 0)
	require.NoError(t, err)
	_, err = s.Record("ArrowLeft", "", 130)
	require.NoError(t, err)
	song, err := s.FinishRecording()
	require.NoError(t, err)

	assert := assert.New(t)
	require.Len(t, cues.cues, 4)
	assert.Equal([]string{"C4", "A3", "E4"}, []string{cues.cues[0].Pitch, cues.cues[1].Pitch, cues.cues[2].Pitch})
	assert.Equal("kick", cues.cues[3].Instrument)
	assert.Equal(125.0, cues.cues[3].ScheduleTime)
	assert.Len(song.Chart, 3)
	assert.Len(rec.OfKind(event.KindNoteClassified), 1)
}

func TestRecordingFollowsChordsOnManualClock(t *testing.T) {
	s, _, _ := newManualSession(t, testSettings())
	require.NoError(t, s.StartRecording("over F", 350))

	n, err := s.Record("ArrowRight", "F4", 4000)
	require.NoError(t, err)
	assert.Equal(t, model.ChordTone, n.HarmonicAnalysis.Classification)
}

func TestTimersStopSynchronously(t *testing.T) {
	settings := testSettings()
	// 10ms beats, 80ms chords
	settings.BPM = 6000
	rec := &event.Recorder{}
	s, err := New(Options{Settings: settings, Observer: rec})
	require.NoError(t, err)
	require.NoError(t, s.LoadChart(model.Chart{{Time: 0, Lane: "ArrowLeft"}, {Time: 60000, Lane: model.EndLane}}))
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Update(0))

	time.Sleep(300 * time.Millisecond)
	s.Stop()
	seen := len(rec.Events)

	assert := assert.New(t)
	assert.NotEmpty(rec.OfKind(event.KindChordChanged))
	assert.NotEmpty(rec.OfKind(event.KindBeat))
	assert.Empty(s.Active())

	time.Sleep(200 * time.Millisecond)
	assert.Equal(seen, len(rec.Events))
	assert.ErrorIs(s.Update(1000), scheduler.ErrSessionStopped)
	_, _, err = s.Press("ArrowLeft", 1000)
	assert.ErrorIs(err, scheduler.ErrSessionStopped)
	assert.ErrorIs(s.Start(context.Background()), scheduler.ErrSessionStopped)

	s.Stop()
}

func TestCancelledContextStopsTimers(t *testing.T) {
	settings := testSettings()
	settings.BPM = 6000
	rec := &event.Recorder{}
	s, err := New(Options{Settings: settings, Observer: rec})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()
	s.Stop()

	seen := len(rec.Events)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, seen, len(rec.Events))
}

func TestSessionsAreIndependent(t *testing.T) {
	run := func() int {
		s, err := New(Options{Settings: testSettings(), Rand: rand.New(rand.NewSource(9)), ManualClock: true})
		if err != nil {
			return -1
		}
		if err := s.StartRecording("same", 350); err != nil {
			return -1
		}
		for i := 0; i < 32; i++ {
			if _, err := s.Record("ArrowRight", "", float64(i*500)); err != nil {
				return -1
			}
		}
		song, err := s.FinishRecording()
		if err != nil {
			return -1
		}
		return *song.MusicalScore
	}

	want := run()
	results := make([]int, 8)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = run()
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
	assert.NotEqual(t, -1, want)
}

func TestNewRejectsInvalidSettings(t *testing.T) {
	settings := testSettings()
	settings.BPM = 0
	_, err := New(Options{Settings: settings})
	assert.ErrorIs(t, err, config.ErrInvalidConfiguration)
}

func TestSetBPMValidates(t *testing.T) {
	s, _, _ := newManualSession(t, testSettings())

	assert.ErrorIs(t, s.SetBPM(-4), config.ErrInvalidConfiguration)
	assert.Equal(t, 120.0, s.Settings().BPM)
	require.NoError(t, s.SetBPM(60))
	assert.Equal(t, 1, s.Position(1000).TotalBeats)
}

func TestLoadChartRejectsMalformed(t *testing.T) {
	s, _, _ := newManualSession(t, testSettings())
	require.NoError(t, s.LoadChart(model.Chart{{Time: 0, Lane: "ArrowLeft"}, {Time: 900, Lane: model.EndLane}}))
	require.NoError(t, s.Update(0))

	err := s.LoadChart(model.Chart{{Time: 0}})
	assert.ErrorIs(t, err, model.ErrInvalidChartEvent)
	assert.Len(t, s.Active(), 1)
}

func TestQuantizationToggles(t *testing.T) {
	s, _, _ := newManualSession(t, testSettings())
	s.SetQuantize(false)
	require.NoError(t, s.SetResolution(model.Quarter))

	info := s.QuantizationInfo()
	assert.False(t, info.Enabled)
	assert.Equal(t, 500.0, info.Interval)
	assert.Len(t, s.Markers(0, 2000), 5)
	assert.ErrorIs(t, s.SetResolution("triplet"), config.ErrInvalidConfiguration)
}
