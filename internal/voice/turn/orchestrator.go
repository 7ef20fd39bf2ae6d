// Package turn orchestrates one end-to-end utterance-to-reply cycle.
//
// The Orchestrator runs as a detached unit spawned by the session's
// receive loop: preprocess, transcribe, filter, correct, respond,
// localize, synthesize. A per-session single-flight guard ensures at most
// one turn is in flight; the guard is released on every exit path so no
// failure can wedge the session. All protocol messages of one turn are
// sent in strict order and turns never interleave.
package turn

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/tablevox/tablevox/internal/observe"
	"github.com/tablevox/tablevox/internal/store"
	"github.com/tablevox/tablevox/internal/transcript"
	"github.com/tablevox/tablevox/internal/voice/preprocess"
	"github.com/tablevox/tablevox/internal/voice/synth"
	"github.com/tablevox/tablevox/pkg/audio"
	"github.com/tablevox/tablevox/pkg/provider/respond"
	"github.com/tablevox/tablevox/pkg/provider/transcribe"
	"github.com/tablevox/tablevox/pkg/provider/translate"
)

// repeatPrompt is the reply sent when a transcript is rejected as a
// transcription artifact.
const repeatPrompt = "Sorry, I didn't catch that. Could you say it again?"

// processingFailedMsg is the generic client-facing message for any
// external-service failure. Internal detail stays in the logs.
const processingFailedMsg = "failed to process audio"

// Sender delivers a turn's protocol messages to the client in order.
// Implementations belong to the connection's session.
type Sender interface {
	ProcessingStart() error
	ProcessingEnd() error
	Transcript(text string) error
	ResponseText(text string) error
	Error(message string) error

	synth.Emitter
}

// Config tunes the orchestrator.
type Config struct {
	// SampleRate of utterance audio in Hz.
	SampleRate int

	// BaseLanguage is the transcriber's fixed working language. Replies
	// are generated in it and localized afterwards when the session
	// language differs.
	BaseLanguage string

	// MenuVocabulary lists the venue's menu item names.
	MenuVocabulary []string

	// TurnTimeout bounds one full turn. Zero disables the deadline.
	TurnTimeout time.Duration
}

// Orchestrator runs turns. Safe for concurrent use across sessions; the
// per-session guard serializes turns within one session.
type Orchestrator struct {
	cfg Config

	pre         *preprocess.Preprocessor
	transcriber transcribe.Transcriber
	filter      *transcript.Filter
	corrector   *transcript.MenuCorrector
	responder   respond.Responder
	translator  translate.Translator
	streamer    *synth.Streamer
	turns       store.Store
	metrics     *observe.Metrics

	vocabularyHint string
}

// Option is a functional option for Orchestrator.
type Option func(*Orchestrator)

// WithCorrector attaches a phonetic menu corrector applied to accepted
// transcripts. When nil (the default), transcripts pass through unchanged.
func WithCorrector(c *transcript.MenuCorrector) Option {
	return func(o *Orchestrator) { o.corrector = c }
}

// WithTranslator attaches a translator used to localize replies when the
// session language differs from the base language. Without one, replies
// stay in the base language.
func WithTranslator(t translate.Translator) Option {
	return func(o *Orchestrator) { o.translator = t }
}

// WithStreamer attaches a synthesis streamer. Without one, replies are
// text-only.
func WithStreamer(s *synth.Streamer) Option {
	return func(o *Orchestrator) { o.streamer = s }
}

// WithStore attaches a turn log. Writes are best-effort; a store failure
// never fails the turn.
func WithStore(st store.Store) Option {
	return func(o *Orchestrator) { o.turns = st }
}

// WithMetrics overrides the default metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New creates an Orchestrator.
func New(cfg Config, pre *preprocess.Preprocessor, tr transcribe.Transcriber, f *transcript.Filter, r respond.Responder, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:            cfg,
		pre:            pre,
		transcriber:    tr,
		filter:         f,
		responder:      r,
		vocabularyHint: strings.Join(cfg.MenuVocabulary, ", "),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}
	return o
}

// Process runs one utterance through the full turn. It is designed to be
// called as a goroutine from the receive loop; it never panics the caller
// and releases the single-flight guard on every path.
//
// When a turn is already in flight the utterance is dropped with a log and
// a counter. Queueing it would replay stale speech after a long reply, so
// dropping is the lesser surprise.
func (o *Orchestrator) Process(ctx context.Context, sess *Session, sender Sender, utterance []byte) {
	if !sess.TryBeginTurn() {
		observe.Logger(ctx).Warn("utterance dropped, turn already in flight",
			"session_id", sess.ID,
			"bytes", len(utterance),
		)
		o.metrics.TurnsDropped.Add(ctx, 1)
		return
	}
	defer sess.EndTurn()

	if o.cfg.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.TurnTimeout)
		defer cancel()
	}

	ctx, span := observe.StartSpan(ctx, "voice.turn",
		trace.WithAttributes(attribute.String("session_id", sess.ID)),
	)
	defer span.End()

	start := time.Now()
	status := o.run(ctx, sess, sender, utterance)
	o.metrics.TurnDuration.Record(ctx, time.Since(start).Seconds())
	o.metrics.TurnsCompleted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// run executes the turn body and returns a status label for metrics.
func (o *Orchestrator) run(ctx context.Context, sess *Session, sender Sender, utterance []byte) string {
	log := observe.Logger(ctx).With("session_id", sess.ID)

	if err := sender.ProcessingStart(); err != nil {
		log.Debug("send processing_start failed", "error", err)
		return "send_failed"
	}
	defer func() {
		if err := sender.ProcessingEnd(); err != nil {
			log.Debug("send processing_end failed", "error", err)
		}
	}()

	// Preprocess. Rejections are expected for stray noise captures.
	preStart := time.Now()
	clean, err := o.pre.Process(utterance)
	o.metrics.PreprocessDuration.Record(ctx, time.Since(preStart).Seconds())
	if err != nil {
		if preprocess.IsRejection(err) {
			log.Debug("utterance rejected", "reason", err)
			o.metrics.RecordRejection(ctx, rejectionLabel(err))
			return "rejected"
		}
		log.Error("preprocess failed", "error", err)
		o.sendError(sender, log)
		return "error"
	}

	// Transcribe.
	wav := audio.EncodeWAV(clean, o.cfg.SampleRate, 1)
	trStart := time.Now()
	result, err := o.transcriber.Transcribe(ctx, wav, transcribe.Request{
		Language:       o.cfg.BaseLanguage,
		VocabularyHint: o.vocabularyHint,
	})
	o.metrics.TranscribeDuration.Record(ctx, time.Since(trStart).Seconds())
	if err != nil {
		log.Error("transcription failed", "error", err)
		o.metrics.RecordProviderError(ctx, "transcribe", "transcribe")
		o.sendError(sender, log)
		return "error"
	}
	text := strings.TrimSpace(result.Text)
	if text == "" {
		log.Debug("empty transcript, dropping utterance")
		return "empty"
	}

	// Filter.
	verdict := o.filter.Check(text, o.vocabularyHint, sess.Language)
	if !verdict.Accepted {
		o.handleHallucination(ctx, sess, sender, verdict, log)
		return "hallucination"
	}
	sess.ResetHallucinations()

	// Phonetic menu correction.
	corrected := text
	if o.corrector != nil {
		var corrections []transcript.Correction
		corrected, corrections = o.corrector.Correct(text)
		for _, c := range corrections {
			log.Debug("menu item corrected",
				"original", c.Original,
				"corrected", c.Corrected,
				"confidence", c.Confidence,
			)
		}
	}
	if err := sender.Transcript(corrected); err != nil {
		log.Debug("send transcript failed", "error", err)
		return "send_failed"
	}

	// Agent reply.
	respStart := time.Now()
	reply, err := o.responder.Respond(ctx, corrected, respond.SessionContext{
		SessionID:      sess.ID,
		Language:       o.cfg.BaseLanguage,
		MenuVocabulary: o.cfg.MenuVocabulary,
		History:        sess.History(),
	})
	o.metrics.RespondDuration.Record(ctx, time.Since(respStart).Seconds())
	if err != nil {
		log.Error("agent response failed", "error", err)
		o.metrics.RecordProviderError(ctx, "respond", "respond")
		o.sendError(sender, log)
		return "error"
	}

	// Localize for the session language.
	spoken := o.localize(ctx, reply, sess.Language, log)
	if err := sender.ResponseText(spoken); err != nil {
		log.Debug("send response_text failed", "error", err)
		return "send_failed"
	}

	// Synthesize.
	if o.streamer != nil {
		synthStart := time.Now()
		err := o.streamer.Stream(ctx, spoken, &sess.Stop, sender)
		o.metrics.SynthesizeDuration.Record(ctx, time.Since(synthStart).Seconds())
		if err != nil {
			log.Error("synthesis failed", "error", err)
			o.metrics.RecordProviderError(ctx, "synthesize", "synthesize")
			o.sendError(sender, log)
			return "error"
		}
	}

	sess.AppendExchange(corrected, spoken)
	o.saveTurn(sess, corrected, spoken, log)
	return "ok"
}

// handleHallucination applies the tiered recovery policy: first rejection
// gets a spoken repeat prompt, second gets text only so the speaker does
// not re-capture the prompt as new speech, third and later are dropped
// silently to break the feedback loop entirely.
func (o *Orchestrator) handleHallucination(ctx context.Context, sess *Session, sender Sender, v transcript.Verdict, log *slog.Logger) {
	count := sess.RecordHallucination()
	log.Warn("transcript rejected as hallucination",
		"reason", string(v.Reason),
		"consecutive", count,
		"text", v.Text,
	)
	o.metrics.RecordHallucination(ctx, string(v.Reason))

	switch {
	case count == 1:
		if err := sender.ResponseText(repeatPrompt); err != nil {
			log.Debug("send repeat prompt failed", "error", err)
			return
		}
		if o.streamer != nil {
			if err := o.streamer.Stream(ctx, repeatPrompt, &sess.Stop, sender); err != nil {
				log.Debug("synthesize repeat prompt failed", "error", err)
			}
		}
	case count == 2:
		if err := sender.ResponseText(repeatPrompt); err != nil {
			log.Debug("send repeat prompt failed", "error", err)
		}
	default:
		// Silent drop.
	}
}

// localize translates reply into lang when it differs from the base
// language. Translation failure falls back to the untranslated reply.
func (o *Orchestrator) localize(ctx context.Context, reply, lang string, log *slog.Logger) string {
	if lang == "" || lang == o.cfg.BaseLanguage || o.translator == nil {
		return reply
	}
	translated, err := o.translator.Translate(ctx, reply, lang)
	if err != nil {
		log.Warn("reply localization failed, sending base language", "error", err, "target", lang)
		o.metrics.RecordProviderError(ctx, "translate", "translate")
		return reply
	}
	return translated
}

// saveTurn appends the turn to the store. Best-effort: uses its own
// timeout so a slow store cannot hold the session guard.
func (o *Orchestrator) saveTurn(sess *Session, transcriptText, reply string, log *slog.Logger) {
	if o.turns == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := o.turns.SaveTurn(ctx, store.Turn{
		SessionID:  sess.ID,
		Transcript: transcriptText,
		Reply:      reply,
		Language:   sess.Language,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		log.Warn("turn log write failed", "error", err)
	}
}

func (o *Orchestrator) sendError(sender Sender, log *slog.Logger) {
	if err := sender.Error(processingFailedMsg); err != nil {
		log.Debug("send error message failed", "error", err)
	}
}

// rejectionLabel maps a preprocess rejection to its metric label.
func rejectionLabel(err error) string {
	switch {
	case errors.Is(err, preprocess.ErrTooShort):
		return "too_short"
	case errors.Is(err, preprocess.ErrAllSilence):
		return "all_silence"
	case errors.Is(err, preprocess.ErrTrimmedTooShort):
		return "trimmed_too_short"
	}
	return "other"
}
