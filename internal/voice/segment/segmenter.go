// Package segment turns a stream of VAD-classified audio frames into
// bounded utterances.
//
// The Segmenter is a three-state machine (idle, speaking, hangover) with a
// dead zone between its speech and silence thresholds so the state does
// not flap at the detection boundary, and a hangover period that absorbs
// mid-sentence pauses without truncating an utterance. A pre-roll ring
// buffer seeds each new utterance with the frames immediately preceding
// the threshold crossing, recovering soft onsets.
package segment

import "fmt"

// State is the segmenter's detection state.
type State int

const (
	// StateIdle means no speech is in progress.
	StateIdle State = iota

	// StateSpeaking means speech is in progress with no trailing silence.
	StateSpeaking

	// StateHangover means speech is in progress but trailing silence is
	// accumulating toward the utterance end.
	StateHangover
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpeaking:
		return "speaking"
	case StateHangover:
		return "hangover"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// EventKind identifies what, if anything, a processed frame triggered.
type EventKind int

const (
	// EventNone means the frame changed no externally visible state.
	EventNone EventKind = iota

	// EventSpeechStarted means this frame began a new utterance.
	EventSpeechStarted

	// EventSpeechEnded means this frame completed an utterance.
	EventSpeechEnded
)

// Event is the result of processing one frame.
type Event struct {
	Kind EventKind

	// Utterance holds the completed utterance's PCM bytes, pre-roll prefix
	// included. Set only when Kind is EventSpeechEnded. The slice is owned
	// by the caller; the segmenter starts a fresh buffer immediately.
	Utterance []byte
}

// Config tunes the segmenter. All fields are required.
type Config struct {
	// SpeechThreshold is the probability above which a frame is speech.
	SpeechThreshold float64

	// SilenceThreshold is the probability below which a frame is silence.
	// Probabilities between the two thresholds are ambiguous: they extend
	// an active utterance without advancing the silence count.
	SilenceThreshold float64

	// SilenceFramesRequired is the number of consecutive silence frames
	// that end an active utterance.
	SilenceFramesRequired int

	// PrerollFrames is the pre-roll ring buffer capacity.
	PrerollFrames int
}

// Segmenter consumes classified frames and produces utterances.
// Not safe for concurrent use; the session's receive loop is the only
// caller.
type Segmenter struct {
	cfg     Config
	preroll *PrerollBuffer

	state        State
	silenceCount int
	utterance    []byte
}

// New creates a Segmenter. Returns an error when cfg is incoherent.
func New(cfg Config) (*Segmenter, error) {
	if cfg.SpeechThreshold <= 0 || cfg.SpeechThreshold > 1 {
		return nil, fmt.Errorf("segment: SpeechThreshold %.2f out of range (0, 1]", cfg.SpeechThreshold)
	}
	if cfg.SilenceThreshold <= 0 || cfg.SilenceThreshold >= cfg.SpeechThreshold {
		return nil, fmt.Errorf("segment: SilenceThreshold %.2f must be in (0, SpeechThreshold)", cfg.SilenceThreshold)
	}
	if cfg.SilenceFramesRequired < 1 {
		return nil, fmt.Errorf("segment: SilenceFramesRequired must be at least 1")
	}
	if cfg.PrerollFrames < 0 {
		return nil, fmt.Errorf("segment: PrerollFrames must not be negative")
	}
	return &Segmenter{
		cfg:     cfg,
		preroll: NewPrerollBuffer(cfg.PrerollFrames),
	}, nil
}

// State returns the current detection state.
func (s *Segmenter) State() State {
	return s.state
}

// Speaking reports whether an utterance is in progress.
func (s *Segmenter) Speaking() bool {
	return s.state != StateIdle
}

// Process advances the state machine by one frame with speech probability
// p. The pre-roll buffer is updated after the decision, so an utterance is
// never seeded with the frame that triggered detection twice.
func (s *Segmenter) Process(frame []byte, p float64) Event {
	ev := s.decide(frame, p)
	s.preroll.Push(frame)
	return ev
}

func (s *Segmenter) decide(frame []byte, p float64) Event {
	switch {
	case p > s.cfg.SpeechThreshold:
		s.silenceCount = 0
		started := s.state == StateIdle
		if started {
			s.seedFromPreroll()
		}
		s.state = StateSpeaking
		s.appendFrame(frame)
		if started {
			return Event{Kind: EventSpeechStarted}
		}
		return Event{Kind: EventNone}

	case p < s.cfg.SilenceThreshold:
		if s.state == StateIdle {
			return Event{Kind: EventNone}
		}
		// Hangover frames are retained so a resumed sentence keeps its
		// pause, and the trailing silence helps the transcriber find the
		// utterance end.
		s.state = StateHangover
		s.appendFrame(frame)
		s.silenceCount++
		if s.silenceCount >= s.cfg.SilenceFramesRequired {
			utterance := s.utterance
			s.reset()
			return Event{Kind: EventSpeechEnded, Utterance: utterance}
		}
		return Event{Kind: EventNone}

	default:
		// Ambiguous band: extend an active utterance without advancing or
		// resetting the silence count.
		if s.state != StateIdle {
			s.appendFrame(frame)
		}
		return Event{Kind: EventNone}
	}
}

// Reset returns the segmenter to idle, discarding any partial utterance
// and the pre-roll contents.
func (s *Segmenter) Reset() {
	s.reset()
	s.preroll.Reset()
}

func (s *Segmenter) reset() {
	s.state = StateIdle
	s.silenceCount = 0
	s.utterance = nil
}

func (s *Segmenter) seedFromPreroll() {
	for _, f := range s.preroll.Snapshot() {
		s.utterance = append(s.utterance, f...)
	}
}

func (s *Segmenter) appendFrame(frame []byte) {
	s.utterance = append(s.utterance, frame...)
}
