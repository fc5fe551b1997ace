// Package quantize snaps times to the musical grid of a transport.Clock.
package quantize

import (
	"math"
	"sort"

	"github.com/jsphweid/harmonybeat/config"
	"github.com/jsphweid/harmonybeat/model"
	"github.com/jsphweid/harmonybeat/transport"
)

type Quantizer struct {
	clock   *transport.Clock
	enabled bool
}

func New(clock *transport.Clock, enabled bool) *Quantizer {
	return &Quantizer{clock: clock, enabled: enabled}
}

func (q *Quantizer) Clock() *transport.Clock { return q.clock }
func (q *Quantizer) Enabled() bool           { return q.enabled }
func (q *Quantizer) SetEnabled(enabled bool) { q.enabled = enabled }

func (q *Quantizer) Resolution() model.Resolution {
	return q.clock.Resolution()
}

func (q *Quantizer) SetResolution(r model.Resolution) error {
	return q.clock.SetResolution(r)
}

func (q *Quantizer) Interval() float64 {
	return q.clock.Interval()
}

// QuantizeTime snaps t to the nearest grid point. It always snaps; callers
// decide whether quantization is enabled.
func (q *Quantizer) QuantizeTime(t float64) float64 {
	interval := q.Interval()
	return math.Round(t/interval) * interval
}

func (q *Quantizer) NextQuantizedTime(t float64) float64 {
	interval := q.Interval()
	return math.Ceil(t/interval) * interval
}

func (q *Quantizer) Info() model.QuantizationInfo {
	return model.QuantizationInfo{
		Enabled:       q.enabled,
		Resolution:    q.clock.Resolution(),
		Interval:      q.Interval(),
		BPM:           q.clock.BPM(),
		TimeSignature: q.clock.TimeSignature(),
	}
}

// Markers walks every grid point in [start, end]. It can be consumed once.
type Markers struct {
	clock    *transport.Clock
	interval float64
	step     int64
	end      float64
}

func (q *Quantizer) Markers(start, end float64) *Markers {
	interval := q.Interval()
	return &Markers{
		clock:    q.clock,
		interval: interval,
		step:     int64(math.Ceil(start / interval)),
		end:      end,
	}
}

// Next returns the following marker, or false once the range is exhausted.
func (m *Markers) Next() (model.BeatMarker, bool) {
	t := float64(m.step) * m.interval
	if t > m.end {
		return model.BeatMarker{}, false
	}
	pos := m.clock.StepPosition(m.step)
	m.step++
	typ := model.BeatTypeOf(pos)
	return model.BeatMarker{
		Time:       t,
		Position:   pos,
		IsDownbeat: typ == model.Downbeat,
		IsBeat:     pos.Subdivision == 0,
		Type:       typ,
	}, true
}

func (q *Quantizer) BeatMarkers(start, end float64) []model.BeatMarker {
	var res []model.BeatMarker
	it := q.Markers(start, end)
	for m, ok := it.Next(); ok; m, ok = it.Next() {
		res = append(res, m)
	}
	return res
}

type noteKey struct {
	time float64
	lane string
}

// QuantizeRecordedChart snaps every note and drops later duplicates: when
// two notes land on the same (time, lane) the one recorded first survives.
// Recording order is the original time; equal originals keep input order.
func (q *Quantizer) QuantizeRecordedChart(notes []model.RecordedNote) []model.RecordedNote {
	byOriginal := make([]model.RecordedNote, len(notes))
	copy(byOriginal, notes)
	sort.SliceStable(byOriginal, func(i, j int) bool {
		return byOriginal[i].Time < byOriginal[j].Time
	})

	seen := make(map[noteKey]bool)
	res := make([]model.RecordedNote, 0, len(notes))
	for _, n := range byOriginal {
		t := q.QuantizeTime(n.Time)
		key := noteKey{time: t, lane: n.Lane}
		if seen[key] {
			continue
		}
		seen[key] = true
		n.QuantizedTime = &t
		res = append(res, n)
	}

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].At() < res[j].At()
	})
	return res
}

func (q *Quantizer) Preview(notes []model.RecordedNote) []model.QuantizePreview {
	res := make([]model.QuantizePreview, 0, len(notes))
	for _, n := range notes {
		t := q.QuantizeTime(n.Time)
		res = append(res, model.QuantizePreview{
			Lane:          n.Lane,
			OriginalTime:  n.Time,
			QuantizedTime: t,
			Position:      q.clock.Position(t),
			Adjustment:    t - n.Time,
		})
	}
	return res
}

// IdealRecordingMeasures is the number of whole measures needed to cover
// requestedSeconds.
func (q *Quantizer) IdealRecordingMeasures(requestedSeconds float64) int {
	return int(math.Ceil(requestedSeconds * 1000 / q.clock.MsPerMeasure()))
}

// IdealRecordingDuration rounds requestedSeconds up to whole measures.
func (q *Quantizer) IdealRecordingDuration(requestedSeconds float64) float64 {
	return float64(q.IdealRecordingMeasures(requestedSeconds)) * q.clock.MsPerMeasure() / 1000
}

func FromSettings(s config.Settings) (*Quantizer, error) {
	clock, err := transport.FromSettings(s)
	if err != nil {
		return nil, err
	}
	return New(clock, s.QuantizeEnabled), nil
}
