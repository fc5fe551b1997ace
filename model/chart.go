package model

import (
	"encoding/json"
	"math"

	"github.com/pkg/errors"
)

const EndLane = "END"

var ErrInvalidChartEvent = errors.New("invalid chart event")

type ChartEvent struct {
	Time float64 `json:"time"`
	Lane string  `json:"lane"`

	// only set for events on the melodic lane
	Pitch string `json:"pitch,omitempty"`
}

func (e ChartEvent) IsEnd() bool {
	return e.Lane == EndLane
}

func (e ChartEvent) Validate() error {
	if e.Lane == "" {
		return errors.Wrap(ErrInvalidChartEvent, "missing lane")
	}
	if math.IsNaN(e.Time) || math.IsInf(e.Time, 0) || e.Time < 0 {
		return errors.Wrapf(ErrInvalidChartEvent, "bad time %v", e.Time)
	}
	return nil
}

type Chart = []ChartEvent

// ValidateChart checks every event, ascending order and a single terminal END.
func ValidateChart(chart Chart) error {
	if len(chart) == 0 {
		return errors.Wrap(ErrInvalidChartEvent, "empty chart")
	}
	for i, e := range chart {
		if err := e.Validate(); err != nil {
			return errors.Wrapf(err, "event %d", i)
		}
		if i > 0 && e.Time < chart[i-1].Time {
			return errors.Wrapf(ErrInvalidChartEvent, "event %d out of order", i)
		}
		if e.IsEnd() && i != len(chart)-1 {
			return errors.Wrapf(ErrInvalidChartEvent, "END at %d is not the last event", i)
		}
	}
	if !chart[len(chart)-1].IsEnd() {
		return errors.Wrap(ErrInvalidChartEvent, "chart does not end with END")
	}
	return nil
}

// wire form used to tell a missing field apart from a zero one
type rawChartEvent struct {
	Time  *float64 `json:"time"`
	Lane  *string  `json:"lane"`
	Key   *string  `json:"key"`
	Pitch string   `json:"pitch"`
}

// ParseChart decodes and validates a JSON chart. "key" is accepted as an
// alias of "lane" for charts exported by older clients.
func ParseChart(data []byte) (Chart, error) {
	var raw []rawChartEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(ErrInvalidChartEvent, err.Error())
	}
	chart := make(Chart, 0, len(raw))
	for i, r := range raw {
		lane := r.Lane
		if lane == nil {
			lane = r.Key
		}
		if r.Time == nil || lane == nil {
			return nil, errors.Wrapf(ErrInvalidChartEvent, "event %d: missing time or lane", i)
		}
		chart = append(chart, ChartEvent{Time: *r.Time, Lane: *lane, Pitch: r.Pitch})
	}
	if err := ValidateChart(chart); err != nil {
		return nil, err
	}
	return chart, nil
}
