// Package scheduler spawns chart events, moves them toward the target and
// judges input against them.
package scheduler

import (
	"fmt"
	"math"

	"github.com/charmbracelet/log"
	"github.com/jsphweid/harmonybeat/config"
	"github.com/jsphweid/harmonybeat/constants"
	"github.com/jsphweid/harmonybeat/event"
	"github.com/jsphweid/harmonybeat/logging"
	"github.com/jsphweid/harmonybeat/model"
	"github.com/jsphweid/harmonybeat/quantize"
	"github.com/pkg/errors"
)

var ErrSessionStopped = errors.New("session stopped")

const (
	FeedbackPerfect = "Perfect!!"
	FeedbackGood    = "Good!"
	FeedbackOK      = "OK"

	perfectAccuracy = 0.95
	weakAccuracy    = 0.30
)

type State int

const (
	Spawned State = iota
	Hit
	Missed
)

func (s State) String() string {
	switch s {
	case Spawned:
		return "spawned"
	case Hit:
		return "hit"
	case Missed:
		return "missed"
	}
	return "unknown"
}

type Options struct {
	// px per second
	Speed          float64
	SpawnPosition  float64
	TargetPosition float64
	FarBoundary    float64
	Tolerance      float64

	BaseScore    int
	PerfectBonus int

	// optional; flags events that spawn on a beat
	Quantizer       *quantize.Quantizer
	OnBeatTolerance float64

	Observer event.Observer
	Logger   *log.Logger
}

func OptionsFromSettings(s config.Settings, q *quantize.Quantizer) Options {
	return Options{
		Speed:           s.ScrollSpeed,
		SpawnPosition:   constants.SpawnPosition,
		TargetPosition:  constants.TargetPosition,
		FarBoundary:     constants.FarBoundary,
		Tolerance:       s.HitTolerance,
		BaseScore:       s.BaseScore,
		PerfectBonus:    constants.PerfectBonus,
		Quantizer:       q,
		OnBeatTolerance: constants.OnBeatToleranceMs,
	}
}

// TravelMs is how long an event takes from spawn to the target line.
func (o Options) TravelMs() float64 {
	return (o.SpawnPosition - o.TargetPosition) / o.Speed * 1000
}

type ActiveEvent struct {
	ID        int
	Event     model.ChartEvent
	SpawnTime float64
	Position  float64
	OnBeat    bool
	State     State
}

type Judgement struct {
	ID       int
	Event    model.ChartEvent
	Accuracy float64
	Points   int
	Feedback string
}

// Scheduler is not safe for concurrent use; a session serializes access.
type Scheduler struct {
	opts     Options
	observer event.Observer
	logger   *log.Logger

	chart      model.Chart
	cursor     int
	active     []*ActiveEvent
	endSpawned bool
	nextID     int
	stopped    bool

	score  int
	hits   int
	misses int
}

func New(opts Options) (*Scheduler, error) {
	if !(opts.Speed > 0) || math.IsInf(opts.Speed, 0) {
		return nil, errors.Wrapf(config.ErrInvalidConfiguration, "scroll speed must be positive, got %v", opts.Speed)
	}
	if !(opts.Tolerance > 0) {
		return nil, errors.Wrapf(config.ErrInvalidConfiguration, "hit tolerance must be positive, got %v", opts.Tolerance)
	}
	if opts.BaseScore <= 0 {
		return nil, errors.Wrapf(config.ErrInvalidConfiguration, "base score must be positive, got %d", opts.BaseScore)
	}
	return &Scheduler{
		opts:     opts,
		observer: event.OrDiscard(opts.Observer),
		logger:   logging.OrDiscard(opts.Logger),
	}, nil
}

// Load validates chart and starts it from the top. An invalid chart is
// rejected and whatever was loaded before keeps running.
func (s *Scheduler) Load(chart model.Chart) error {
	if s.stopped {
		return ErrSessionStopped
	}
	if err := model.ValidateChart(chart); err != nil {
		return err
	}
	s.chart = make(model.Chart, len(chart))
	copy(s.chart, chart)
	s.rewind()
	s.logger.Debug("chart loaded", "events", len(chart))
	return nil
}

func (s *Scheduler) rewind() {
	s.cursor = 0
	s.active = nil
	s.endSpawned = false
	s.nextID = 0
	s.score, s.hits, s.misses = 0, 0, 0
}

// Reset replays the loaded chart from the beginning.
func (s *Scheduler) Reset() {
	s.rewind()
	s.stopped = false
}

// Stop drops every active event. Later calls to Update are rejected.
func (s *Scheduler) Stop() {
	s.stopped = true
	s.active = nil
}

func (s *Scheduler) positionAt(a *ActiveEvent, elapsed float64) float64 {
	return s.opts.SpawnPosition - ((elapsed-a.SpawnTime)/1000)*s.opts.Speed
}

// Update spawns everything due by elapsed, moves active events and expires
// the ones past the far boundary.
func (s *Scheduler) Update(elapsed float64) error {
	if s.stopped {
		return ErrSessionStopped
	}
	for s.cursor < len(s.chart) && s.chart[s.cursor].Time <= elapsed {
		s.spawn(s.chart[s.cursor])
		s.cursor++
	}

	remaining := s.active[:0]
	for _, a := range s.active {
		a.Position = s.positionAt(a, elapsed)
		if a.Position < s.opts.FarBoundary {
			s.resolve(a, Missed)
			s.misses++
			s.logger.Debug("missed", "id", a.ID, "lane", a.Event.Lane, "time", elapsed)
			s.observer.Notify(event.NoteMissed{ID: a.ID, Event: a.Event, Time: elapsed})
			continue
		}
		remaining = append(remaining, a)
	}
	s.active = remaining
	return nil
}

func (s *Scheduler) spawn(e model.ChartEvent) {
	if e.IsEnd() {
		s.endSpawned = true
		return
	}
	a := &ActiveEvent{
		ID:        s.nextID,
		Event:     e,
		SpawnTime: e.Time,
		Position:  s.opts.SpawnPosition,
	}
	if q := s.opts.Quantizer; q != nil {
		a.OnBeat = q.Clock().IsOnBeat(e.Time, s.opts.OnBeatTolerance)
	}
	s.nextID++
	s.active = append(s.active, a)
	s.logger.Debug("spawned", "id", a.ID, "lane", e.Lane, "time", e.Time)
	s.observer.Notify(event.NoteSpawned{ID: a.ID, Event: e, SpawnTime: a.SpawnTime, OnBeat: a.OnBeat})
}

func (s *Scheduler) resolve(a *ActiveEvent, to State) {
	if a.State != Spawned {
		panic(fmt.Sprintf("scheduler: event %d resolved as %s after already being %s", a.ID, to, a.State))
	}
	a.State = to
}

// Hit judges a press on lane at elapsed. It returns false when no event in
// the lane is inside the tolerance window; such presses change nothing.
func (s *Scheduler) Hit(lane string, elapsed float64) (Judgement, bool) {
	if s.stopped {
		return Judgement{}, false
	}
	best := -1
	bestDistance := math.Inf(1)
	for i, a := range s.active {
		if a.Event.Lane != lane || a.State != Spawned {
			continue
		}
		d := math.Abs(s.opts.TargetPosition - s.positionAt(a, elapsed))
		if d < bestDistance {
			best, bestDistance = i, d
		}
	}
	if best == -1 || bestDistance >= s.opts.Tolerance {
		return Judgement{}, false
	}

	a := s.active[best]
	s.resolve(a, Hit)
	s.active = append(s.active[:best], s.active[best+1:]...)

	accuracy := (s.opts.Tolerance - bestDistance) / s.opts.Tolerance
	points, feedback := s.Points(accuracy)
	s.score += points
	s.hits++

	j := Judgement{ID: a.ID, Event: a.Event, Accuracy: accuracy, Points: points, Feedback: feedback}
	s.logger.Debug("hit", "id", a.ID, "lane", lane, "accuracy", accuracy, "points", points)
	s.observer.Notify(event.NoteHit{ID: a.ID, Event: a.Event, Time: elapsed, Accuracy: accuracy, Points: points, Feedback: feedback})
	return j, true
}

// Points maps accuracy onto the scoring tiers.
func (s *Scheduler) Points(accuracy float64) (int, string) {
	switch {
	case accuracy > perfectAccuracy:
		return s.opts.BaseScore + s.opts.PerfectBonus, FeedbackPerfect
	case accuracy < weakAccuracy:
		return int(math.Round(float64(s.opts.BaseScore) * 0.5)), FeedbackOK
	default:
		return s.opts.BaseScore, FeedbackGood
	}
}

// Done reports whether END has spawned and nothing is left on the field.
func (s *Scheduler) Done() bool {
	return s.endSpawned && len(s.active) == 0
}

// Active returns a snapshot of the unresolved events.
func (s *Scheduler) Active() []ActiveEvent {
	res := make([]ActiveEvent, len(s.active))
	for i, a := range s.active {
		res[i] = *a
	}
	return res
}

func (s *Scheduler) Chart() model.Chart { return s.chart }
func (s *Scheduler) Score() int         { return s.score }
func (s *Scheduler) Hits() int          { return s.hits }
func (s *Scheduler) Misses() int        { return s.misses }
func (s *Scheduler) Stopped() bool      { return s.stopped }
