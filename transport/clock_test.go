package transport

import (
	"math"
	"testing"

	"github.com/jsphweid/harmonybeat/config"
	"github.com/jsphweid/harmonybeat/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fourFour = model.TimeSignature{Numerator: 4, Denominator: 4}

func newClock(t *testing.T, bpm float64, res model.Resolution) *Clock {
	c, err := New(bpm, fourFour, res)
	require.NoError(t, err)
	return c
}

func TestTimingAt120BPM(t *testing.T) {
	c := newClock(t, 120, model.Sixteenth)

	assert := assert.New(t)
	assert.Equal(500.0, c.MsPerBeat())
	assert.Equal(2000.0, c.MsPerMeasure())
	assert.Equal(125.0, c.Interval())
}

func TestPosition(t *testing.T) {
	c := newClock(t, 120, model.Sixteenth)

	assert := assert.New(t)
	assert.Equal(model.MusicalPosition{}, c.Position(0))
	assert.Equal(model.MusicalPosition{Measure: 0, Beat: 1, Subdivision: 1, TotalBeats: 1}, c.Position(630))
	assert.Equal(model.MusicalPosition{Measure: 1, Beat: 2, Subdivision: 3, TotalBeats: 6}, c.Position(2000+1000+375))
	assert.Equal(model.MusicalPosition{}, c.Position(-40))
}

func TestPositionMonotonic(t *testing.T) {
	c := newClock(t, 128, model.Sixteenth)
	prev := c.Position(0).TotalBeats
	for elapsed := 0.0; elapsed < 20000; elapsed += 7.3 {
		cur := c.Position(elapsed).TotalBeats
		assert.LessOrEqual(t, prev, cur, "elapsed=%v", elapsed)
		prev = cur
	}
}

func TestIsOnBeat(t *testing.T) {
	c := newClock(t, 120, model.Sixteenth)

	assert := assert.New(t)
	assert.True(c.IsOnBeat(0, 50))
	assert.True(c.IsOnBeat(1030, 50))
	assert.True(c.IsOnBeat(970, 50))
	assert.False(c.IsOnBeat(1250, 50))
	assert.True(c.IsOnMeasure(4010, 50))
	assert.False(c.IsOnMeasure(4500, 50))
}

func TestPositionOnGridAtInexactTempos(t *testing.T) {
	for bpm := 40.0; bpm <= 240; bpm++ {
		c := newClock(t, bpm, model.Sixteenth)
		for step := int64(0); step < 256; step++ {
			pos := c.Position(float64(step) * c.Interval())
			require.Equal(t, c.StepPosition(step), pos, "bpm=%v step=%v", bpm, step)
		}
	}

	c := newClock(t, 41, model.Sixteenth)
	assert.Equal(t, model.MusicalPosition{Measure: 0, Beat: 3, Subdivision: 0, TotalBeats: 3}, c.Position(12*c.Interval()))
}

func TestIsOnBeatBeforeZero(t *testing.T) {
	c := newClock(t, 120, model.Sixteenth)

	assert := assert.New(t)
	assert.False(c.IsOnBeat(-250, 50))
	assert.True(c.IsOnBeat(-10, 50))
	assert.True(c.IsOnBeat(-480, 50))
	assert.False(c.IsOnMeasure(-1000, 50))
	assert.True(c.IsOnMeasure(-2030, 50))
}

func TestSetBPMRejectsBadValues(t *testing.T) {
	c := newClock(t, 120, model.Sixteenth)
	for _, bpm := range []float64{0, -10, math.NaN(), math.Inf(1)} {
		err := c.SetBPM(bpm)
		assert.ErrorIs(t, err, config.ErrInvalidConfiguration)
	}
	assert.Equal(t, 120.0, c.BPM())

	_, err := New(0, fourFour, model.Sixteenth)
	assert.ErrorIs(t, err, config.ErrInvalidConfiguration)
}

func TestSetBPMOnlyAffectsLaterComputations(t *testing.T) {
	c := newClock(t, 120, model.Quarter)
	before := c.Position(1000)
	require.NoError(t, c.SetBPM(60))
	after := c.Position(1000)

	assert.Equal(t, 2, before.TotalBeats)
	assert.Equal(t, 1, after.TotalBeats)
}

func TestMeasureBoundaries(t *testing.T) {
	c := newClock(t, 120, model.Sixteenth)
	b := c.MeasureBoundaries(5000)

	assert := assert.New(t)
	assert.Len(b, 3)
	assert.Equal(4000.0, b[2].Time)
	assert.Equal(2, b[2].Measure)
}
