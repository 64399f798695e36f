// Package openai provides a responder backed directly by the OpenAI API.
// It implements the llm.Responder interface.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/llm"
)

// defaultSystemPrompt frames replies for speech output rather than a screen.
const defaultSystemPrompt = "You are a helpful voice assistant. " +
	"Answer briefly and conversationally; your reply will be read aloud. " +
	"Do not use markdown, lists, or other formatting."

// Compile-time interface assertion.
var _ llm.Responder = (*Responder)(nil)

// Responder implements llm.Responder using the OpenAI API.
type Responder struct {
	client       oai.Client
	model        string
	systemPrompt string
}

// config holds optional configuration for the responder.
type config struct {
	baseURL      string
	organization string
	timeout      time.Duration
	systemPrompt string
}

// Option is a functional option for Responder.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL. Useful for
// OpenAI-compatible local servers.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithOrganization sets the OpenAI organization ID on all requests.
func WithOrganization(org string) Option {
	return func(c *config) { c.organization = org }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithSystemPrompt replaces the default voice-assistant persona.
func WithSystemPrompt(prompt string) Option {
	return func(c *config) { c.systemPrompt = prompt }
}

// New constructs a new OpenAI Responder.
func New(apiKey string, model string, opts ...Option) (*Responder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
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
	if cfg.organization != "" {
		reqOpts = append(reqOpts, option.WithOrganization(cfg.organization))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Responder{client: client, model: model, systemPrompt: cfg.systemPrompt}, nil
}

// Generate implements llm.Responder.
func (r *Responder) Generate(ctx context.Context, command, background string) (string, error) {
	if strings.TrimSpace(command) == "" {
		return "", fmt.Errorf("openai: command must not be empty")
	}

	system := r.systemPrompt
	if b := strings.TrimSpace(background); b != "" {
		system += "\n\nCurrent context:\n" + b
	}

	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(r.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(system),
			oai.UserMessage(command),
		},
	}

	resp, err := r.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response")
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", fmt.Errorf("openai: model returned an empty reply")
	}
	return reply, nil
}
