// Command tablevox is the Tablevox voice ordering server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/tablevox/tablevox/internal/config"
	"github.com/tablevox/tablevox/internal/health"
	"github.com/tablevox/tablevox/internal/observe"
	"github.com/tablevox/tablevox/internal/resilience"
	"github.com/tablevox/tablevox/internal/server"
	"github.com/tablevox/tablevox/internal/store"
	"github.com/tablevox/tablevox/internal/store/postgres"
	"github.com/tablevox/tablevox/internal/transcript"
	"github.com/tablevox/tablevox/internal/voice/preprocess"
	"github.com/tablevox/tablevox/internal/voice/segment"
	"github.com/tablevox/tablevox/internal/voice/synth"
	"github.com/tablevox/tablevox/internal/voice/turn"
	"github.com/tablevox/tablevox/pkg/provider/respond"
	respondanyllm "github.com/tablevox/tablevox/pkg/provider/respond/anyllm"
	respondopenai "github.com/tablevox/tablevox/pkg/provider/respond/openai"
	"github.com/tablevox/tablevox/pkg/provider/synthesize"
	"github.com/tablevox/tablevox/pkg/provider/synthesize/elevenlabs"
	"github.com/tablevox/tablevox/pkg/provider/transcribe"
	"github.com/tablevox/tablevox/pkg/provider/transcribe/openaicompat"
	"github.com/tablevox/tablevox/pkg/provider/transcribe/whisper"
	"github.com/tablevox/tablevox/pkg/provider/translate"
	translateanyllm "github.com/tablevox/tablevox/pkg/provider/translate/anyllm"
	"github.com/tablevox/tablevox/pkg/provider/vad"
)

// sampleRate is the pipeline's fixed audio format: PCM16 mono 16 kHz.
const sampleRate = 16000

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "tablevox: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "tablevox: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("tablevox starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "tablevox",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("telemetry init failed", "err", err)
		return 1
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	providers, err := buildProviders(cfg)
	if err != nil {
		slog.Error("provider construction failed", "err", err)
		return 1
	}

	var turnStore store.Store
	var pgStore *postgres.Store
	if cfg.Store.PostgresDSN != "" {
		pgStore, err = postgres.New(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			slog.Error("postgres connect failed", "err", err)
			return 1
		}
		defer pgStore.Close()
		if err := pgStore.Migrate(ctx); err != nil {
			slog.Error("postgres migration failed", "err", err)
			return 1
		}
		turnStore = pgStore
		slog.Info("turn log store connected")
	}

	orch, err := buildOrchestrator(cfg, providers, turnStore)
	if err != nil {
		slog.Error("pipeline construction failed", "err", err)
		return 1
	}

	srv := buildServer(cfg, providers.vadEngine, orch, turnStore)

	mux := http.NewServeMux()
	srv.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	buildHealth(pgStore).Register(mux)

	httpSrv := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: mux,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if cfg.Server.TLS != nil {
			err = httpSrv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = httpSrv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping")
		shCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shCtx)
	})

	slog.Info("server ready", "listen_addr", cfg.Server.ListenAddr)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// providers bundles the constructed pipeline backends.
type providers struct {
	vadEngine   vad.Engine
	transcriber transcribe.Transcriber
	translator  translate.Translator
	responder   respond.Responder
	synthesizer synthesize.Synthesizer
	voice       synthesize.Voice
}

// buildProviders instantiates every provider named in cfg. The transcriber
// and responder are mandatory; config validation has already enforced
// that. External backends are wrapped in circuit breakers so one failing
// service degrades the feature instead of wedging sessions.
func buildProviders(cfg *config.Config) (*providers, error) {
	ps := &providers{}
	breaker := resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{},
	}

	engine, err := vad.NewEnergyEngine()
	if err != nil {
		return nil, fmt.Errorf("vad: %w", err)
	}
	ps.vadEngine = engine
	slog.Info("provider created", "kind", "vad", "name", "energy")

	// Transcriber.
	entry := cfg.Providers.Transcribe
	var tr transcribe.Transcriber
	switch entry.Name {
	case "whisper-native":
		tr, err = whisper.New(entry.ModelPath)
	default: // openai-compat
		var opts []openaicompat.Option
		if entry.BaseURL != "" {
			opts = append(opts, openaicompat.WithBaseURL(entry.BaseURL))
		}
		if entry.Model != "" {
			opts = append(opts, openaicompat.WithModel(entry.Model))
		}
		tr = openaicompat.New(entry.APIKey, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("transcribe provider %q: %w", entry.Name, err)
	}
	ps.transcriber = resilience.NewTranscribeFallback(tr, entry.Name, breaker)
	slog.Info("provider created", "kind", "transcribe", "name", entry.Name)

	// Responder.
	entry = cfg.Providers.Respond
	var rp respond.Responder
	switch entry.Name {
	case "openai":
		var opts []respondopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, respondopenai.WithBaseURL(entry.BaseURL))
		}
		rp, err = respondopenai.New(entry.APIKey, entry.Model, opts...)
	default: // anthropic, gemini, ollama via any-llm
		rp, err = respondanyllm.New(entry.Name, entry.Model, backendOpts(entry))
	}
	if err != nil {
		return nil, fmt.Errorf("respond provider %q: %w", entry.Name, err)
	}
	ps.responder = resilience.NewRespondFallback(rp, entry.Name, breaker)
	slog.Info("provider created", "kind", "respond", "name", entry.Name)

	// Translator (optional).
	if entry = cfg.Providers.Translate; entry.Name != "" {
		ps.translator, err = translateanyllm.New(entry.Name, entry.Model, backendOpts(entry)...)
		if err != nil {
			return nil, fmt.Errorf("translate provider %q: %w", entry.Name, err)
		}
		slog.Info("provider created", "kind", "translate", "name", entry.Name)
	}

	// Synthesizer (optional; text-only sessions without one).
	if entry = cfg.Providers.Synthesize; entry.Name != "" {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		sy, err := elevenlabs.New(entry.APIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("synthesize provider %q: %w", entry.Name, err)
		}
		ps.synthesizer = resilience.NewSynthesizeFallback(sy, entry.Name, breaker)
		ps.voice = synthesize.Voice{ID: entry.VoiceID}
		slog.Info("provider created", "kind", "synthesize", "name", entry.Name, "voice_id", entry.VoiceID)
	}

	return ps, nil
}

// backendOpts maps a provider entry onto any-llm client options.
func backendOpts(entry config.ProviderEntry) []anyllmlib.Option {
	var opts []anyllmlib.Option
	if entry.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
	}
	if entry.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
	}
	return opts
}

func buildOrchestrator(cfg *config.Config, ps *providers, turnStore store.Store) (*turn.Orchestrator, error) {
	pre, err := preprocess.New(preprocess.Config{
		SampleRate:        sampleRate,
		MinSegmentSeconds: cfg.Preprocess.MinSegmentSeconds,
		MinTrimmedSeconds: cfg.Preprocess.MinTrimmedSeconds,
	})
	if err != nil {
		return nil, err
	}

	filter := transcript.NewFilter(transcript.FilterConfig{
		MaxWords:     cfg.Filter.MaxWords,
		BaseLanguage: cfg.Pipeline.Language,
	})

	opts := []turn.Option{
		turn.WithStore(turnStore),
	}
	if len(cfg.Menu.Vocabulary) > 0 {
		opts = append(opts, turn.WithCorrector(transcript.NewMenuCorrector(cfg.Menu.Vocabulary)))
	}
	if ps.translator != nil {
		opts = append(opts, turn.WithTranslator(ps.translator))
	}
	if ps.synthesizer != nil {
		opts = append(opts, turn.WithStreamer(synth.NewStreamer(ps.synthesizer, ps.voice)))
	}

	return turn.New(turn.Config{
		SampleRate:     sampleRate,
		BaseLanguage:   cfg.Pipeline.Language,
		MenuVocabulary: cfg.Menu.Vocabulary,
		TurnTimeout:    cfg.Pipeline.TurnTimeout,
	}, pre, ps.transcriber, filter, ps.responder, opts...), nil
}

func buildServer(cfg *config.Config, engine vad.Engine, orch *turn.Orchestrator, turnStore store.Store) *server.Server {
	var opts []server.Option
	if turnStore != nil {
		opts = append(opts, server.WithStore(turnStore))
	}
	return server.New(server.Config{
		SampleRate:  sampleRate,
		ReadTimeout: cfg.Server.ReadTimeout,
		Language:    cfg.Pipeline.Language,
		Segment: segment.Config{
			SpeechThreshold:       cfg.Voice.SpeechThreshold,
			SilenceThreshold:      cfg.Voice.SilenceThreshold,
			SilenceFramesRequired: cfg.Voice.SilenceFramesRequired,
			PrerollFrames:         cfg.Voice.PrerollFrames,
		},
	}, engine, orch, opts...)
}

// buildHealth registers readiness probes for the configured dependencies.
func buildHealth(pg *postgres.Store) *health.Handler {
	var probes []health.Probe
	if pg != nil {
		probes = append(probes, health.Probe{
			Name:  "postgres",
			Check: pg.Ping,
		})
	}
	return health.New(probes...)
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
