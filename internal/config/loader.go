package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"vad":        {"energy"},
	"transcribe": {"openai-compat", "whisper-native"},
	"translate":  {"openai", "anthropic", "gemini", "ollama"},
	"respond":    {"openai", "anthropic", "gemini", "ollama"},
	"synthesize": {"elevenlabs"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.ReadTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must not be negative"))
	}

	// Voice thresholds
	if cfg.Voice.SpeechThreshold <= 0 || cfg.Voice.SpeechThreshold > 1 {
		errs = append(errs, fmt.Errorf("voice.speech_threshold %.2f is out of range (0, 1]", cfg.Voice.SpeechThreshold))
	}
	if cfg.Voice.SilenceThreshold <= 0 || cfg.Voice.SilenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("voice.silence_threshold %.2f is out of range (0, 1]", cfg.Voice.SilenceThreshold))
	}
	if cfg.Voice.SilenceThreshold >= cfg.Voice.SpeechThreshold {
		errs = append(errs, fmt.Errorf("voice.silence_threshold %.2f must be below voice.speech_threshold %.2f",
			cfg.Voice.SilenceThreshold, cfg.Voice.SpeechThreshold))
	}
	if cfg.Voice.SilenceFramesRequired < 1 {
		errs = append(errs, fmt.Errorf("voice.silence_frames_required must be at least 1"))
	}
	if cfg.Voice.PrerollFrames < 0 {
		errs = append(errs, fmt.Errorf("voice.preroll_frames must not be negative"))
	}

	// Preprocess
	if cfg.Preprocess.MinSegmentSeconds <= 0 {
		errs = append(errs, fmt.Errorf("preprocess.min_segment_seconds must be positive"))
	}
	if cfg.Preprocess.MinTrimmedSeconds <= 0 {
		errs = append(errs, fmt.Errorf("preprocess.min_trimmed_seconds must be positive"))
	}
	if cfg.Preprocess.MinTrimmedSeconds > cfg.Preprocess.MinSegmentSeconds {
		errs = append(errs, fmt.Errorf("preprocess.min_trimmed_seconds %.2f must not exceed preprocess.min_segment_seconds %.2f",
			cfg.Preprocess.MinTrimmedSeconds, cfg.Preprocess.MinSegmentSeconds))
	}

	// Filter
	if cfg.Filter.MaxWords < 1 {
		errs = append(errs, fmt.Errorf("filter.max_words must be at least 1"))
	}

	// Pipeline
	if cfg.Pipeline.TurnTimeout <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.turn_timeout must be positive"))
	}
	if len(cfg.Pipeline.Language) != 2 {
		errs = append(errs, fmt.Errorf("pipeline.language %q must be a two-letter ISO 639-1 code", cfg.Pipeline.Language))
	}

	// Provider name validation, warn for unknown provider names.
	validateProviderName("vad", cfg.Providers.VAD.Name)
	validateProviderName("transcribe", cfg.Providers.Transcribe.Name)
	validateProviderName("translate", cfg.Providers.Translate.Name)
	validateProviderName("respond", cfg.Providers.Respond.Name)
	validateProviderName("synthesize", cfg.Providers.Synthesize.Name)

	// Provider availability
	if cfg.Providers.Transcribe.Name == "" {
		errs = append(errs, fmt.Errorf("providers.transcribe is required"))
	}
	if cfg.Providers.Respond.Name == "" {
		errs = append(errs, fmt.Errorf("providers.respond is required"))
	}
	if cfg.Providers.Synthesize.Name == "" {
		slog.Warn("providers.synthesize is not configured; replies will be text-only")
	}
	if cfg.Providers.Synthesize.Name != "" && cfg.Providers.Synthesize.VoiceID == "" {
		errs = append(errs, fmt.Errorf("providers.synthesize.voice_id is required when a synthesize provider is configured"))
	}
	if cfg.Providers.Transcribe.Name == "whisper-native" && cfg.Providers.Transcribe.ModelPath == "" {
		errs = append(errs, fmt.Errorf("providers.transcribe.model_path is required for the whisper-native provider"))
	}

	// Store availability
	if cfg.Store.PostgresDSN == "" {
		slog.Warn("store.postgres_dsn is empty; turns will not be persisted")
	}

	// Menu duplicate detection
	itemsSeen := make(map[string]int, len(cfg.Menu.Vocabulary))
	for i, item := range cfg.Menu.Vocabulary {
		if item == "" {
			errs = append(errs, fmt.Errorf("menu.vocabulary[%d] must not be empty", i))
			continue
		}
		if prev, ok := itemsSeen[item]; ok {
			errs = append(errs, fmt.Errorf("menu.vocabulary[%d] %q is a duplicate of menu.vocabulary[%d]", i, item, prev))
		}
		itemsSeen[item] = i
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
