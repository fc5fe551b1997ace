// Package midi moves songs and performances in and out of Standard MIDI
// Files.
package midi

import (
	"bytes"
	"io"
	"math"
	"os"
	"sort"

	"github.com/jsphweid/harmonybeat/chord"
	"github.com/jsphweid/harmonybeat/constants"
	"github.com/jsphweid/harmonybeat/model"
	"github.com/jsphweid/harmonybeat/transport"
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	TicksPerQuarter = 960

	drumChannel    = 9
	melodicChannel = 0
	cueChannel     = 1

	// a sixteenth
	noteLengthTicks = TicksPerQuarter / 4
)

// General MIDI percussion keys for the drum lanes.
var LaneDrums = map[string]uint8{
	constants.LaneLeft: 36,
	constants.LaneDown: 38,
	constants.LaneUp:   42,
}

var instrumentDrums = map[string]uint8{
	"kick":  36,
	"snare": 38,
	"hihat": 42,
}

func ReadMidiFile(filepath string) (*smf.SMF, error) {
	dat, err := os.ReadFile(filepath)
	if err != nil {
		return nil, errors.Wrap(err, "error reading midi file")
	}
	return ReadMidi(bytes.NewReader(dat))
}

func ReadMidi(r io.Reader) (s *smf.SMF, e error) {
	// handle panics
	// https://github.com/gomidi/midi/issues/20
	defer func() {
		if r := recover(); r != nil {
			s, e = nil, errors.Errorf("error parsing midi file... %v", r)
		}
	}()

	res, err := smf.ReadFrom(r)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing midi file")
	}
	return res, nil
}

// drumLane maps GM percussion onto the three drum lanes.
func drumLane(key uint8) string {
	switch {
	case key <= 36:
		return constants.LaneLeft
	case key >= 37 && key <= 40:
		return constants.LaneDown
	default:
		return constants.LaneUp
	}
}

// ImportPerformance turns note-ons into presses: channel 10 goes to the drum
// lanes, everything else is played on melodicLane with its pitch.
func ImportPerformance(s *smf.SMF, melodicLane string) []model.ChartEvent {
	var res []model.ChartEvent
	for _, events := range s.Tracks {
		var absTicks int64
		for _, ev := range events {
			absTicks += int64(ev.Delta)
			var channel, key, velocity uint8
			if !midi.Message(ev.Message).GetNoteStart(&channel, &key, &velocity) {
				continue
			}
			// microseconds to ms
			t := float64(s.TimeAt(absTicks)) / 1000
			if channel == drumChannel {
				res = append(res, model.ChartEvent{Time: t, Lane: drumLane(key)})
			} else {
				res = append(res, model.ChartEvent{Time: t, Lane: melodicLane, Pitch: chord.FromMIDI(int(key)).String()})
			}
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Time < res[j].Time
	})
	return res
}

// Tempo is the first tempo in s, or fallback when it has none.
func Tempo(s *smf.SMF, fallback float64) float64 {
	changes := s.TempoChanges()
	if len(changes) > 0 && changes[0].BPM > 0 {
		return changes[0].BPM
	}
	return fallback
}

type timedMsg struct {
	tick  uint32
	off   bool
	bytes []byte
}

func msToTicks(clock *transport.Clock, ms float64) uint32 {
	if ms <= 0 {
		return 0
	}
	return uint32(math.Round(ms / clock.MsPerBeat() * TicksPerQuarter))
}

// writeTrack emits msgs in tick order, note-offs first on shared ticks,
// and closes the track at end.
func writeTrack(msgs []timedMsg, end uint32) smf.Track {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].tick != msgs[j].tick {
			return msgs[i].tick < msgs[j].tick
		}
		return msgs[i].off && !msgs[j].off
	})
	var track smf.Track
	var last uint32
	for _, m := range msgs {
		track.Add(m.tick-last, m.bytes)
		last = m.tick
	}
	if end < last {
		end = last
	}
	track.Close(end - last)
	return track
}

func newSMF(clock *transport.Clock) (*smf.SMF, error) {
	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(TicksPerQuarter)

	sig := clock.TimeSignature()
	var track0 smf.Track
	track0.Add(0, smf.MetaMeter(uint8(sig.Numerator), uint8(sig.Denominator)))
	track0.Add(0, smf.MetaTempo(clock.BPM()))
	track0.Close(0)
	if err := sm.Add(track0); err != nil {
		return nil, errors.Wrap(err, "error adding tempo track")
	}
	return sm, nil
}

// SongToSMF writes the chart of song as sixteenth notes. Drum lanes become
// GM percussion, pitched events play on channel 1, END closes the track.
func SongToSMF(song model.Song, clock *transport.Clock) (*smf.SMF, error) {
	sm, err := newSMF(clock)
	if err != nil {
		return nil, err
	}
	var msgs []timedMsg
	var end uint32
	for _, e := range song.Chart {
		tick := msToTicks(clock, e.Time)
		if e.IsEnd() {
			end = tick
			continue
		}
		channel, key, ok := eventKey(e)
		if !ok {
			continue
		}
		msgs = append(msgs,
			timedMsg{tick: tick, bytes: midi.NoteOn(channel, key, 100)},
			timedMsg{tick: tick + noteLengthTicks, off: true, bytes: midi.NoteOff(channel, key)},
		)
	}
	if err := sm.Add(writeTrack(msgs, end)); err != nil {
		return nil, errors.Wrap(err, "error adding song track")
	}
	return sm, nil
}

func eventKey(e model.ChartEvent) (channel, key uint8, ok bool) {
	if e.Pitch != "" {
		n, err := chord.ParseNote(e.Pitch)
		if err != nil || n.MIDI() < 0 || n.MIDI() > 127 {
			return 0, 0, false
		}
		return melodicChannel, uint8(n.MIDI()), true
	}
	if k, found := LaneDrums[e.Lane]; found {
		return drumChannel, k, true
	}
	return 0, 0, false
}

func WriteSong(w io.Writer, song model.Song, clock *transport.Clock) error {
	sm, err := SongToSMF(song, clock)
	if err != nil {
		return err
	}
	_, err = sm.WriteTo(w)
	return err
}

// Excerpt copies mf from ticksOffset on, keeping at most maxNotes note
// messages per track. Other messages are kept with their delta squashed so
// tempo and meter still apply.
func Excerpt(mf *smf.SMF, ticksOffset uint64, maxNotes int) *smf.SMF {
	res := smf.New()
	res.TimeFormat = mf.TimeFormat

	for _, track := range mf.Tracks {
		var newTrack smf.Track
		var absTicks uint64
		var numNoteOnOff int
		closed := false
	TrackEventLoop:
		for _, evt := range track {
			absTicks += uint64(evt.Delta)
			switch {
			case evt.Message.Is(midi.NoteOnMsg),
				evt.Message.Is(midi.NoteOffMsg):
				if absTicks >= ticksOffset {
					newTrack = append(newTrack, evt)
					numNoteOnOff += 1
					if numNoteOnOff >= maxNotes {
						newTrack.Close(0)
						closed = true
						break TrackEventLoop
					}
				}
			case isEndOfTrack(evt.Message):
			default:
				if evt.Delta > 1 {
					evt.Delta = 1
				}
				newTrack = append(newTrack, evt)
			}
		}
		if !closed {
			newTrack.Close(0)
		}
		res.Tracks = append(res.Tracks, newTrack)
	}
	return res
}

func isEndOfTrack(msg smf.Message) bool {
	return len(msg) >= 2 && msg[0] == 0xFF && msg[1] == 0x2F
}

// MsToTicks converts a chart time into ticks at clock's tempo.
func MsToTicks(clock *transport.Clock, ms float64) uint64 {
	return uint64(msToTicks(clock, ms))
}
