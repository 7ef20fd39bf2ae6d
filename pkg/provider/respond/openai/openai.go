// Package openai provides a respond.Responder backed by the OpenAI chat
// completions API.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/tablevox/tablevox/pkg/provider/respond"
)

// defaultSystemPrompt frames the agent as a restaurant ordering assistant.
// Deployments override it per venue via WithSystemPrompt.
const defaultSystemPrompt = "You are a friendly restaurant voice assistant. " +
	"Help the guest order from the menu, answer short questions about dishes, " +
	"and confirm each change to the order. Keep replies brief and speakable: " +
	"one or two short sentences, no lists, no markdown."

// Responder implements respond.Responder using the OpenAI API.
type Responder struct {
	client       oai.Client
	model        string
	systemPrompt string
}

// Compile-time check that *Responder satisfies respond.Responder.
var _ respond.Responder = (*Responder)(nil)

// config holds optional configuration for the responder.
type config struct {
	baseURL      string
	systemPrompt string
	timeout      time.Duration
}

// Option is a functional option for Responder.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithSystemPrompt replaces the built-in ordering-assistant system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(c *config) { c.systemPrompt = prompt }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// New constructs a new OpenAI Responder.
func New(apiKey, model string, opts ...Option) (*Responder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai respond: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai respond: model must not be empty")
	}

	cfg := &config{systemPrompt: defaultSystemPrompt}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	return &Responder{
		client:       oai.NewClient(reqOpts...),
		model:        model,
		systemPrompt: cfg.systemPrompt,
	}, nil
}

// Respond implements [respond.Responder].
func (r *Responder) Respond(ctx context.Context, transcript string, sctx respond.SessionContext) (string, error) {
	messages := []oai.ChatCompletionMessageParamUnion{
		oai.SystemMessage(r.buildSystemPrompt(sctx)),
	}
	for _, ex := range sctx.History {
		messages = append(messages, oai.UserMessage(ex.User))
		messages = append(messages, oai.AssistantMessage(ex.Agent))
	}
	messages = append(messages, oai.UserMessage(transcript))

	resp, err := r.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model:    oai.ChatModel(r.model),
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("openai respond: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai respond: empty choices in response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// buildSystemPrompt appends the session's menu vocabulary and language to
// the base prompt so the agent stays on-menu.
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
