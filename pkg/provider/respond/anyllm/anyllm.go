// Package anyllm provides a respond.Responder backed by
// github.com/mozilla-ai/any-llm-go, allowing the ordering agent to run
// against OpenAI, Anthropic, Gemini, Ollama, and other chat backends.
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/tablevox/tablevox/pkg/provider/respond"
)

const defaultSystemPrompt = "You are a friendly restaurant voice assistant. " +
	"Help the guest order from the menu, answer short questions about dishes, " +
	"and confirm each change to the order. Keep replies brief and speakable: " +
	"one or two short sentences, no lists, no markdown."

// Responder implements respond.Responder by wrapping any-llm-go.
// Safe for concurrent use.
type Responder struct {
	backend      anyllmlib.Provider
	model        string
	systemPrompt string
}

// Compile-time check that *Responder satisfies respond.Responder.
var _ respond.Responder = (*Responder)(nil)

// Option is a functional option for Responder.
type Option func(*Responder)

// WithSystemPrompt replaces the built-in ordering-assistant system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(r *Responder) { r.systemPrompt = prompt }
}

// New creates a Responder backed by the named any-llm-go provider
// ("openai", "anthropic", "gemini", or "ollama") and model. backendOpts are
// any-llm-go options (API key, base URL); without an API key option the
// backend reads its conventional environment variable.
func New(providerName, model string, backendOpts []anyllmlib.Option, opts ...Option) (*Responder, error) {
	if model == "" {
		return nil, fmt.Errorf("anyllm respond: model must not be empty")
	}
	backend, err := createBackend(providerName, backendOpts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm respond: create %q backend: %w", providerName, err)
	}

	r := &Responder{
		backend:      backend,
		model:        model,
		systemPrompt: defaultSystemPrompt,
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Respond implements [respond.Responder].
func (r *Responder) Respond(ctx context.Context, transcript string, sctx respond.SessionContext) (string, error) {
	messages := []anyllmlib.Message{
		{Role: anyllmlib.RoleSystem, Content: r.buildSystemPrompt(sctx)},
	}
	for _, ex := range sctx.History {
		messages = append(messages,
			anyllmlib.Message{Role: anyllmlib.RoleUser, Content: ex.User},
			anyllmlib.Message{Role: anyllmlib.RoleAssistant, Content: ex.Agent},
		)
	}
	messages = append(messages, anyllmlib.Message{Role: anyllmlib.RoleUser, Content: transcript})

	resp, err := r.backend.Completion(ctx, anyllmlib.CompletionParams{
		Model:    r.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("anyllm respond: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("anyllm respond: empty choices in response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.ContentString()), nil
}

// buildSystemPrompt appends the session's menu vocabulary and language to
// the base prompt.
func (r *Responder) buildSystemPrompt(sctx respond.SessionContext) string {
	var sb strings.Builder
	sb.WriteString(r.systemPrompt)
	if len(sctx.MenuVocabulary) > 0 {
		sb.WriteString("\n\nMenu items: ")
		sb.WriteString(strings.Join(sctx.MenuVocabulary, ", "))
		sb.WriteString(".")
	}
	if sctx.Language != "" {
		sb.WriteString("\nReply in the language with ISO 639-1 code ")
		sb.WriteString(sctx.Language)
		sb.WriteString(".")
	}
	return sb.String()
}

// createBackend creates the underlying any-llm-go provider.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama", providerName)
	}
}
