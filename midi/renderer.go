package midi

import (
	"sync"

	"github.com/jsphweid/harmonybeat/chord"
	"github.com/jsphweid/harmonybeat/event"
	"github.com/jsphweid/harmonybeat/transport"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// TrackRenderer is a sound renderer that writes every cue it receives into
// a MIDI file instead of playing it.
type TrackRenderer struct {
	clock *transport.Clock

	mu   sync.Mutex
	cues []event.SoundCue
}

func NewTrackRenderer(clock *transport.Clock) *TrackRenderer {
	return &TrackRenderer{clock: clock}
}

func (r *TrackRenderer) Render(cue event.SoundCue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cues = append(r.cues, cue)
}

func (r *TrackRenderer) Cues() []event.SoundCue {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.SoundCue(nil), r.cues...)
}

func cueKey(cue event.SoundCue) (channel, key uint8, ok bool) {
	if cue.Pitch != "" {
		n, err := chord.ParseNote(cue.Pitch)
		if err != nil || n.MIDI() < 0 || n.MIDI() > 127 {
			return 0, 0, false
		}
		if cue.Instrument == "lead" {
			return melodicChannel, uint8(n.MIDI()), true
		}
		return cueChannel, uint8(n.MIDI()), true
	}
	k, found := instrumentDrums[cue.Instrument]
	return drumChannel, k, found
}

// SMF renders the cues so far. Cues that cannot be voiced are skipped.
func (r *TrackRenderer) SMF() (*smf.SMF, error) {
	sm, err := newSMF(r.clock)
	if err != nil {
		return nil, err
	}
	var msgs []timedMsg
	var end uint32
	for _, cue := range r.Cues() {
		channel, key, ok := cueKey(cue)
		if !ok {
			continue
		}
		tick := msToTicks(r.clock, cue.ScheduleTime)
		msgs = append(msgs,
			timedMsg{tick: tick, bytes: midi.NoteOn(channel, key, cue.Velocity)},
			timedMsg{tick: tick + noteLengthTicks, off: true, bytes: midi.NoteOff(channel, key)},
		)
		if tick+noteLengthTicks > end {
			end = tick + noteLengthTicks
		}
	}
	if err := sm.Add(writeTrack(msgs, end)); err != nil {
		return nil, err
	}
	return sm, nil
}
