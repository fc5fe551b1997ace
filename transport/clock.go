// Package transport converts elapsed milliseconds into musical positions.
package transport

import (
	"math"

	"github.com/jsphweid/harmonybeat/config"
	"github.com/jsphweid/harmonybeat/model"
)

// Clock is a fixed-tempo transport. A beat is always a quarter note; the
// time signature denominator is validated but does not scale the beat.
type Clock struct {
	bpm        float64
	signature  model.TimeSignature
	resolution model.Resolution
}

func New(bpm float64, signature model.TimeSignature, resolution model.Resolution) (*Clock, error) {
	if err := config.ValidateBPM(bpm); err != nil {
		return nil, err
	}
	if err := config.ValidateTimeSignature(signature); err != nil {
		return nil, err
	}
	if err := config.ValidateResolution(resolution); err != nil {
		return nil, err
	}
	return &Clock{bpm: bpm, signature: signature, resolution: resolution}, nil
}

func FromSettings(s config.Settings) (*Clock, error) {
	return New(s.BPM, s.TimeSignature, s.Resolution)
}

func (c *Clock) BPM() float64                       { return c.bpm }
func (c *Clock) TimeSignature() model.TimeSignature { return c.signature }
func (c *Clock) Resolution() model.Resolution       { return c.resolution }

// SetBPM only affects computations made after it returns.
func (c *Clock) SetBPM(bpm float64) error {
	if err := config.ValidateBPM(bpm); err != nil {
		return err
	}
	c.bpm = bpm
	return nil
}

func (c *Clock) SetResolution(r model.Resolution) error {
	if err := config.ValidateResolution(r); err != nil {
		return err
	}
	c.resolution = r
	return nil
}

func (c *Clock) MsPerBeat() float64 {
	return 60000 / c.bpm
}

func (c *Clock) MsPerMeasure() float64 {
	return c.MsPerBeat() * float64(c.signature.Numerator)
}

func (c *Clock) BeatsPerMeasure() int {
	return c.signature.Numerator
}

// Interval is the grid step of the active resolution in ms.
func (c *Clock) Interval() float64 {
	return c.MsPerBeat() / float64(c.resolution.Divisions())
}

// gridEpsilon absorbs float error when a time sits on a grid point.
const gridEpsilon = 1e-6

// Position treats negative elapsed time as zero.
func (c *Clock) Position(elapsed float64) model.MusicalPosition {
	if elapsed < 0 {
		elapsed = 0
	}
	steps := elapsed / c.Interval()
	if r := math.Round(steps); math.Abs(steps-r) < gridEpsilon {
		steps = r
	}
	return c.StepPosition(int64(math.Floor(steps)))
}

// StepPosition is the position of grid point step, counted from zero at
// the active resolution.
func (c *Clock) StepPosition(step int64) model.MusicalPosition {
	if step < 0 {
		step = 0
	}
	div := int64(c.resolution.Divisions())
	perMeasure := int64(c.BeatsPerMeasure())
	totalBeats := step / div
	return model.MusicalPosition{
		Measure:     int(totalBeats / perMeasure),
		Beat:        int(totalBeats % perMeasure),
		Subdivision: int(step % div),
		TotalBeats:  int(totalBeats),
	}
}

func (c *Clock) IsOnBeat(elapsed, tolerance float64) bool {
	return near(elapsed, c.MsPerBeat(), tolerance)
}

func (c *Clock) IsOnMeasure(elapsed, tolerance float64) bool {
	return near(elapsed, c.MsPerMeasure(), tolerance)
}

// near reports whether t is within tolerance of a multiple of period. The
// offset is floored so times before zero keep the same grid.
func near(t, period, tolerance float64) bool {
	offset := t - math.Floor(t/period)*period
	return offset <= tolerance || offset >= period-tolerance
}

// MeasureBoundaries lists the start of every measure that begins before duration.
func (c *Clock) MeasureBoundaries(duration float64) []model.MeasureBoundary {
	var res []model.MeasureBoundary
	msPerMeasure := c.MsPerMeasure()
	for i := 0; float64(i)*msPerMeasure < duration; i++ {
		res = append(res, model.MeasureBoundary{Time: float64(i) * msPerMeasure, Measure: i})
	}
	return res
}
