package session

import (
	"context"
	"sort"

	"github.com/jsphweid/harmonybeat/config"
	"github.com/jsphweid/harmonybeat/model"
	"github.com/jsphweid/harmonybeat/scheduler"
	"github.com/pkg/errors"
)

// 60fps
const FrameMs = 1000.0 / 60

// Input is a scripted press.
type Input struct {
	Time float64 `json:"time"`
	Lane string  `json:"lane"`
}

// AutoInputs presses every event as it crosses the target line.
func AutoInputs(settings config.Settings, chart model.Chart) []Input {
	travel := scheduler.OptionsFromSettings(settings, nil).TravelMs()
	var res []Input
	for _, e := range chart {
		if !e.IsEnd() {
			res = append(res, Input{Time: e.Time + travel, Lane: e.Lane})
		}
	}
	return res
}

// PlayChart runs a manual-clock session over chart one frame at a time.
// Each input is applied in the first frame at or after its time and judged
// at its own time. It stops once the chart is done.
func PlayChart(opts Options, chart model.Chart, inputs []Input) (Stats, error) {
	opts.ManualClock = true
	sess, err := New(opts)
	if err != nil {
		return Stats{}, err
	}
	defer sess.Stop()
	if err := sess.Start(context.Background()); err != nil {
		return Stats{}, err
	}
	if err := sess.LoadChart(chart); err != nil {
		return Stats{}, err
	}

	inputs = append([]Input(nil), inputs...)
	sort.SliceStable(inputs, func(i, j int) bool {
		return inputs[i].Time < inputs[j].Time
	})

	// the last event has left the playfield by then
	so := scheduler.OptionsFromSettings(opts.Settings, nil)
	limit := chart[len(chart)-1].Time + (so.SpawnPosition-so.FarBoundary)/so.Speed*1000 + 2*FrameMs

	next := 0
	for elapsed := 0.0; !sess.Done() && elapsed <= limit; elapsed += FrameMs {
		if err := sess.Update(elapsed); err != nil {
			return Stats{}, err
		}
		for next < len(inputs) && inputs[next].Time <= elapsed {
			in := inputs[next]
			if _, _, err := sess.Press(in.Lane, in.Time); err != nil {
				return Stats{}, err
			}
			next++
		}
	}
	stats := sess.Stats()
	sess.logger.Debug("played", "score", stats.Score, "hits", stats.Hits, "misses", stats.Misses)
	return stats, nil
}

// RecordPerformance replays timed presses through a manual-clock session's
// recorder and returns the finished song.
func RecordPerformance(opts Options, name string, baseScore int, performance []model.ChartEvent) (model.Song, error) {
	opts.ManualClock = true
	sess, err := New(opts)
	if err != nil {
		return model.Song{}, err
	}
	defer sess.Stop()
	if err := sess.Start(context.Background()); err != nil {
		return model.Song{}, err
	}
	if err := sess.StartRecording(name, baseScore); err != nil {
		return model.Song{}, err
	}
	for i, e := range performance {
		if e.IsEnd() {
			continue
		}
		if _, err := sess.Record(e.Lane, e.Pitch, e.Time); err != nil {
			return model.Song{}, errors.Wrapf(err, "note %d", i)
		}
	}
	return sess.FinishRecording()
}
