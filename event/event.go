// Package event carries what the engine reports to renderers. Sound and
// visual renderers subscribe through Observer; the engine never draws or
// plays anything itself.
package event

import "github.com/jsphweid/harmonybeat/model"

type Kind int

const (
	KindNoteSpawned Kind = iota
	KindNoteHit
	KindNoteMissed
	KindChordChanged
	KindNoteClassified
	KindBeat
)

func (k Kind) String() string {
	switch k {
	case KindNoteSpawned:
		return "NoteSpawned"
	case KindNoteHit:
		return "NoteHit"
	case KindNoteMissed:
		return "NoteMissed"
	case KindChordChanged:
		return "ChordChanged"
	case KindNoteClassified:
		return "NoteClassified"
	case KindBeat:
		return "Beat"
	}
	return "Unknown"
}

type Event interface {
	Kind() Kind
}

type NoteSpawned struct {
	ID        int
	Event     model.ChartEvent
	SpawnTime float64
	OnBeat    bool
}

type NoteHit struct {
	ID       int
	Event    model.ChartEvent
	Time     float64
	Accuracy float64
	Points   int
	Feedback string
}

type NoteMissed struct {
	ID    int
	Event model.ChartEvent
	Time  float64
}

type ChordChanged struct {
	Index int
	Name  string
}

type NoteClassified struct {
	Lane     string
	Pitch    string
	Time     float64
	Analysis model.HarmonicAnalysis
}

type Beat struct {
	Time     float64
	Position model.MusicalPosition
	Type     model.BeatType
}

func (NoteSpawned) Kind() Kind    { return KindNoteSpawned }
func (NoteHit) Kind() Kind        { return KindNoteHit }
func (NoteMissed) Kind() Kind     { return KindNoteMissed }
func (ChordChanged) Kind() Kind   { return KindChordChanged }
func (NoteClassified) Kind() Kind { return KindNoteClassified }
func (Beat) Kind() Kind           { return KindBeat }

type Observer interface {
	Notify(Event)
}

type Func func(Event)

func (f Func) Notify(e Event) { f(e) }

// Multi fans one event out to every observer in order.
type Multi []Observer

func (m Multi) Notify(e Event) {
	for _, o := range m {
		if o != nil {
			o.Notify(e)
		}
	}
}

type discard struct{}

func (discard) Notify(Event) {}

var Discard Observer = discard{}

func OrDiscard(o Observer) Observer {
	if o == nil {
		return Discard
	}
	return o
}

// Recorder keeps everything it is notified of. Handy for tests and the
// headless play command.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Notify(e Event) {
	r.Events = append(r.Events, e)
}

func (r *Recorder) OfKind(k Kind) []Event {
	var res []Event
	for _, e := range r.Events {
		if e.Kind() == k {
			res = append(res, e)
		}
	}
	return res
}

// SoundCue is what a sound renderer receives: pitch is empty for
// unpitched instruments.
type SoundCue struct {
	Instrument   string
	Pitch        string
	Velocity     uint8
	ScheduleTime float64
}

type SoundRenderer interface {
	Render(SoundCue)
}
