package vad

import "time"

// Detector states
type State int

const (
	StateIdle State = iota
	StateSpeaking
)

// Reference hysteresis thresholds: fast to detect onset, slower to
// confirm the end so trailing speech is not truncated.
const (
	DefaultSpeechFrames  = 3
	DefaultSilenceFrames = 8
)

// EventKind identifies what, if anything, a pushed frame triggered.
type EventKind int

const (
	EventNone EventKind = iota
	EventSpeechStarted
	EventSpeechEnded
)

// Event is the outcome of pushing one frame. For EventSpeechEnded, Samples
// holds the drained turn signal and Duration the elapsed speaking time.
type Event struct {
	Kind      EventKind
	StartTime time.Time
	Duration  time.Duration
	Samples   []float32
}

// Config tunes a Detector. Zero values select the reference thresholds.
type Config struct {
	RMSThreshold  float64
	SpeechFrames  int
	SilenceFrames int
	Now           func() time.Time
}

// Detector is the per-connection turn-taking state machine. It consumes a
// sequence of classified frames and emits turn boundaries with hysteresis
// so a single loud or quiet frame cannot flip the state. Not safe for
// concurrent use; each connection owns its own instance.
type Detector struct {
	cfg        Config
	state      State
	voicedRun  int
	silentRun  int
	turnStart  time.Time
	buffer     Accumulator
}

// NewDetector creates a detector with the given config, applying the
// reference defaults for unset fields.
func NewDetector(cfg Config) *Detector {
	if cfg.RMSThreshold == 0 {
		cfg.RMSThreshold = DefaultRMSThreshold
	}
	if cfg.SpeechFrames == 0 {
		cfg.SpeechFrames = DefaultSpeechFrames
	}
	if cfg.SilenceFrames == 0 {
		cfg.SilenceFrames = DefaultSilenceFrames
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Detector{cfg: cfg}
}

// State returns the current machine state.
func (d *Detector) State() State {
	return d.state
}

// Buffered returns the number of samples held for the in-progress turn.
func (d *Detector) Buffered() int {
	return d.buffer.Len()
}

// Push classifies one frame and advances the state machine. Frames are
// accepted into the turn buffer for every frame seen while speaking,
// including the silent frames that eventually confirm the end; the
// transcriber tolerates the silence padding.
func (d *Detector) Push(frame []float32) Event {
	voiced := IsVoiced(frame, d.cfg.RMSThreshold)
	if voiced {
		d.voicedRun++
		d.silentRun = 0
	} else {
		d.silentRun++
		d.voicedRun = 0
	}

	switch d.state {
	case StateIdle:
		if voiced && d.voicedRun >= d.cfg.SpeechFrames {
			d.state = StateSpeaking
			d.turnStart = d.cfg.Now()
			d.silentRun = 0
			d.buffer.Append(frame)
			return Event{Kind: EventSpeechStarted, StartTime: d.turnStart}
		}

	case StateSpeaking:
		d.buffer.Append(frame)
		if !voiced && d.silentRun >= d.cfg.SilenceFrames {
			d.state = StateIdle
			start := d.turnStart
			duration := d.cfg.Now().Sub(start)
			samples := d.buffer.DrainAndClear()
			d.voicedRun = 0
			d.silentRun = 0
			return Event{
				Kind:      EventSpeechEnded,
				StartTime: start,
				Duration:  duration,
				Samples:   samples,
			}
		}
	}

	return Event{Kind: EventNone}
}

// Reset discards any in-progress turn, returning the detector to idle.
// Used when a connection closes mid-utterance.
func (d *Detector) Reset() {
	d.state = StateIdle
	d.voicedRun = 0
	d.silentRun = 0
	d.buffer.DrainAndClear()
}
