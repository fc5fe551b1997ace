// Package session ties one clock, quantizer, harmony engine, scheduler and
// recorder together for a single game or recording session.
//
// Every method locks the session, so the per-frame loop and the timer
// goroutines (chord progression, metronome) never interleave. Observers and
// sound renderers are called with the lock held and must not call back into
// the session.
package session

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jsphweid/harmonybeat/chord"
	"github.com/jsphweid/harmonybeat/config"
	"github.com/jsphweid/harmonybeat/constants"
	"github.com/jsphweid/harmonybeat/event"
	"github.com/jsphweid/harmonybeat/harmony"
	"github.com/jsphweid/harmonybeat/logging"
	"github.com/jsphweid/harmonybeat/model"
	"github.com/jsphweid/harmonybeat/quantize"
	"github.com/jsphweid/harmonybeat/recording"
	"github.com/jsphweid/harmonybeat/scheduler"
	"github.com/jsphweid/harmonybeat/transport"
)

const (
	recordVelocity = 100
	missVelocity   = 60
)

type Options struct {
	Settings config.Settings
	Observer event.Observer
	Sound    event.SoundRenderer
	Logger   *log.Logger
	Rand     *rand.Rand

	// ManualClock turns off the timer goroutines. Chords and beats then
	// follow the elapsed time passed to Update, as an on-time transport
	// would.
	ManualClock bool
	Now         func() time.Time
}

type Session struct {
	mu sync.Mutex

	settings  config.Settings
	clock     *transport.Clock
	quantizer *quantize.Quantizer
	harmony   *harmony.Engine
	scheduler *scheduler.Scheduler
	recorder  *recording.Recorder

	observer event.Observer
	sound    event.SoundRenderer
	logger   *log.Logger
	now      func() time.Time

	manual      bool
	started     bool
	stopped     bool
	startedAt   time.Time
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	lastBeat    int
	nextChordAt float64
}

type discardSound struct{}

func (discardSound) Render(event.SoundCue) {}

func New(opts Options) (*Session, error) {
	s := opts.Settings
	if err := s.Validate(); err != nil {
		return nil, err
	}
	logger := logging.OrDiscard(opts.Logger)
	if opts.Sound == nil {
		opts.Sound = discardSound{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	clock, err := transport.FromSettings(s)
	if err != nil {
		return nil, err
	}
	sess := &Session{
		settings:  s,
		clock:     clock,
		quantizer: quantize.New(clock, s.QuantizeEnabled),
		observer:  event.OrDiscard(opts.Observer),
		sound:     opts.Sound,
		logger:    logger,
		now:       opts.Now,
		manual:    opts.ManualClock,
		lastBeat:  -1,
	}
	// misses get a sound before being passed on
	observer := event.Func(sess.notify)

	hopts := harmony.OptionsFromSettings(s, clock)
	hopts.Rand = opts.Rand
	hopts.Observer = observer
	hopts.Logger = logger.With("component", "harmony")
	if sess.harmony, err = harmony.New(hopts); err != nil {
		return nil, err
	}

	sopts := scheduler.OptionsFromSettings(s, sess.quantizer)
	sopts.Observer = observer
	sopts.Logger = logger.With("component", "scheduler")
	if sess.scheduler, err = scheduler.New(sopts); err != nil {
		return nil, err
	}

	sess.recorder, err = recording.New(recording.Options{
		Quantizer: sess.quantizer,
		Harmony:   sess.harmony,
		Observer:  observer,
		Logger:    logger.With("component", "recording"),
		Now:       opts.Now,
	})
	if err != nil {
		return nil, err
	}
	sess.nextChordAt = sess.harmony.ChordPeriodMs()
	return sess, nil
}

func (s *Session) notify(e event.Event) {
	if m, ok := e.(event.NoteMissed); ok {
		s.sound.Render(event.SoundCue{
			Instrument:   constants.MissInstrument,
			Pitch:        constants.MissPitch,
			Velocity:     missVelocity,
			ScheduleTime: m.Time,
		})
	}
	s.observer.Notify(e)
}

// Start marks time zero and, unless the clock is manual, launches the
// chord progression and metronome timers.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return scheduler.ErrSessionStopped
	}
	if s.started {
		return nil
	}
	s.started = true
	s.startedAt = s.now()
	if s.manual {
		return nil
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(2)
	go s.runProgression(ctx)
	go s.runMetronome(ctx)
	s.logger.Info("session started", "bpm", s.clock.BPM(), "chordPeriodMs", s.harmony.ChordPeriodMs())
	return nil
}

func (s *Session) runProgression(ctx context.Context) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		period := s.harmony.ChordPeriodMs()
		s.mu.Unlock()

		t := time.NewTimer(time.Duration(period * float64(time.Millisecond)))
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
			s.mu.Lock()
			if !s.stopped {
				s.harmony.Advance()
			}
			s.mu.Unlock()
		}
	}
}

func (s *Session) runMetronome(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(constants.MetronomeIntervalMs * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if !s.stopped {
				s.tick(s.elapsedLocked())
			}
			s.mu.Unlock()
		}
	}
}

// tick emits a Beat the first time each beat is reached.
func (s *Session) tick(elapsed float64) {
	pos := s.clock.Position(elapsed)
	if pos.TotalBeats <= s.lastBeat {
		return
	}
	s.lastBeat = pos.TotalBeats
	onBeat := model.MusicalPosition{Measure: pos.Measure, Beat: pos.Beat, TotalBeats: pos.TotalBeats}
	s.observer.Notify(event.Beat{
		Time:     float64(pos.TotalBeats) * s.clock.MsPerBeat(),
		Position: onBeat,
		Type:     model.BeatTypeOf(onBeat),
	})
}

func (s *Session) syncChords(elapsed float64) {
	for elapsed >= s.nextChordAt {
		s.harmony.Advance()
		s.nextChordAt += s.harmony.ChordPeriodMs()
	}
}

func (s *Session) elapsedLocked() float64 {
	if !s.started {
		return 0
	}
	return float64(s.now().Sub(s.startedAt)) / float64(time.Millisecond)
}

// Elapsed is the wall-clock time since Start in ms.
func (s *Session) Elapsed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsedLocked()
}

// Stop cancels both timers, clears the field and waits for the timer
// goroutines to exit. Nothing is emitted once it returns.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
	s.scheduler.Stop()
	s.recorder.Cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Debug("session stopped")
}

func (s *Session) LoadChart(chart model.Chart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduler.Load(chart)
}

// Update runs one frame at elapsed ms.
func (s *Session) Update(elapsed float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return scheduler.ErrSessionStopped
	}
	if s.manual {
		s.syncChords(elapsed)
		s.tick(elapsed)
	}
	return s.scheduler.Update(elapsed)
}

// Press judges a gameplay press. A hit is voiced on the lane's instrument;
// the melodic lane plays the chart pitch or a generated one.
func (s *Session) Press(lane string, elapsed float64) (scheduler.Judgement, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return scheduler.Judgement{}, false, scheduler.ErrSessionStopped
	}
	j, ok := s.scheduler.Hit(lane, elapsed)
	if !ok {
		return j, false, nil
	}
	pitch := ""
	if lane == s.settings.MelodicLane {
		pitch = j.Event.Pitch
		if pitch == "" {
			pitch = s.harmony.NextSmartNote(true).String()
		}
	}
	s.voice(lane, pitch, velocityFor(j.Accuracy), elapsed)
	return j, true, nil
}

func velocityFor(accuracy float64) uint8 {
	return uint8(math.Round(40 + accuracy*87))
}

// voice renders one cue, plus the rest of the chord when auto-harmonize is on.
func (s *Session) voice(lane, pitch string, velocity uint8, at float64) {
	instrument, ok := constants.HitSounds[lane]
	if !ok {
		instrument = lane
	}
	pitches := []string{pitch}
	if pitch != "" && s.harmony.AutoHarmonize() {
		pitches = s.harmony.Harmonize(pitch)
		if notes, err := chord.ParseAll(pitches); err == nil {
			s.logger.Debug("harmonized", "melody", pitch, "voicing", chord.KeyOf(notes))
		}
	}
	for _, p := range pitches {
		s.sound.Render(event.SoundCue{Instrument: instrument, Pitch: p, Velocity: velocity, ScheduleTime: at})
	}
}

func (s *Session) StartRecording(name string, baseScore int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return scheduler.ErrSessionStopped
	}
	return s.recorder.Start(name, baseScore)
}

// Record captures a press while recording and voices it.
func (s *Session) Record(lane, pitch string, elapsed float64) (model.RecordedNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return model.RecordedNote{}, scheduler.ErrSessionStopped
	}
	if s.manual {
		s.syncChords(elapsed)
	}
	n, err := s.recorder.Record(lane, pitch, elapsed)
	if err != nil {
		return n, err
	}
	s.voice(lane, n.Pitch, recordVelocity, n.At())
	return n, nil
}

func (s *Session) FinishRecording() (model.Song, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recorder.Finish()
}

func (s *Session) AdvanceChord() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		s.harmony.Advance()
	}
}

// SetBPM only affects what is computed after it returns. The chord timer
// picks up the new period on its next cycle.
func (s *Session) SetBPM(bpm float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.clock.SetBPM(bpm); err != nil {
		return err
	}
	s.settings.BPM = bpm
	return nil
}

func (s *Session) SetQuantize(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quantizer.SetEnabled(enabled)
	s.settings.QuantizeEnabled = enabled
}

func (s *Session) SetResolution(r model.Resolution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.quantizer.SetResolution(r); err != nil {
		return err
	}
	s.settings.Resolution = r
	return nil
}

func (s *Session) ToggleAutoHarmonize() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.harmony.ToggleAutoHarmonize()
}

func (s *Session) ToggleVoiceLeading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.harmony.ToggleVoiceLeading()
}

func (s *Session) Settings() config.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Session) Position(elapsed float64) model.MusicalPosition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.Position(elapsed)
}

func (s *Session) Markers(start, end float64) []model.BeatMarker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quantizer.BeatMarkers(start, end)
}

func (s *Session) QuantizationInfo() model.QuantizationInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quantizer.Info()
}

func (s *Session) MusicalContext() model.MusicalContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.harmony.MusicalContext()
}

func (s *Session) CurrentChordName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.harmony.CurrentChordName()
}

func (s *Session) Active() []scheduler.ActiveEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduler.Active()
}

func (s *Session) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduler.Done()
}

type Stats struct {
	Score  int `json:"score"`
	Hits   int `json:"hits"`
	Misses int `json:"misses"`
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Score: s.scheduler.Score(), Hits: s.scheduler.Hits(), Misses: s.scheduler.Misses()}
}
