// Package anyllm provides a translate.Translator backed by
// github.com/mozilla-ai/any-llm-go, so translation can run against OpenAI,
// Anthropic, Gemini, Ollama, and other chat-completion backends through one
// configuration knob.
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

	"github.com/tablevox/tablevox/pkg/provider/translate"
)

// systemPrompt constrains the model to bare translation output. Chat models
// love to add commentary; the pipeline needs only the translated text.
const systemPrompt = "You are a translation engine. Translate the user's text into the language identified by the ISO 639-1 code %q. Preserve meaning, names of dishes, and numbers exactly. If the text is already in the target language, return it unchanged. Respond with the translated text only, no explanations."

// Translator implements [translate.Translator] by prompting a chat model.
// Safe for concurrent use.
type Translator struct {
	backend anyllmlib.Provider
	model   string
}

// Compile-time check that *Translator satisfies translate.Translator.
var _ translate.Translator = (*Translator)(nil)

// New creates a Translator backed by the named any-llm-go provider
// ("openai", "anthropic", "gemini", or "ollama") and model.
//
// opts are any-llm-go configuration options such as anyllmlib.WithAPIKey or
// anyllmlib.WithBaseURL. Without an API key option, the backend falls back
// to its conventional environment variable.
func New(providerName, model string, opts ...anyllmlib.Option) (*Translator, error) {
	if model == "" {
		return nil, fmt.Errorf("anyllm translate: model must not be empty")
	}

	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm translate: create %q backend: %w", providerName, err)
	}
	return &Translator{backend: backend, model: model}, nil
}

// Translate implements [translate.Translator].
func (t *Translator) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if targetLanguage == "" {
		return "", fmt.Errorf("anyllm translate: targetLanguage must not be empty")
	}

	resp, err := t.backend.Completion(ctx, anyllmlib.CompletionParams{
		Model: t.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: fmt.Sprintf(systemPrompt, targetLanguage)},
			{Role: anyllmlib.RoleUser, Content: text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("anyllm translate: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("anyllm translate: empty choices in response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.ContentString()), nil
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
