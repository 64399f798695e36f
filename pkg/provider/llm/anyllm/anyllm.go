// Package anyllm provides a universal responder backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, and
// more. It implements the llm.Responder interface.
//
// Usage:
//
//	r, err := anyllm.New("ollama", "llama3.2", anyllmlib.WithBaseURL("http://localhost:11434"))
//	r, err := anyllm.NewAnthropic("claude-3-5-sonnet-latest", anyllmlib.WithAPIKey("sk-ant-..."))
//	reply, err := r.Generate(ctx, "what's on my schedule", background)
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/llm"
)

// defaultSystemPrompt frames replies for speech output rather than a screen.
const defaultSystemPrompt = "You are a helpful voice assistant. " +
	"Answer briefly and conversationally; your reply will be read aloud. " +
	"Do not use markdown, lists, or other formatting."

// Compile-time interface assertion.
var _ llm.Responder = (*Responder)(nil)

// Responder implements llm.Responder by wrapping github.com/mozilla-ai/any-llm-go.
type Responder struct {
	backend      anyllmlib.Provider
	model        string
	systemPrompt string
}

// New creates a new Responder backed by the given LLM provider name.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "deepseek", "mistral", "groq", "llamacpp", "llamafile".
//
// model is the specific model to use (e.g., "gpt-4o", "llama3.2").
//
// opts are any-llm-go configuration options (e.g., anyllmlib.WithAPIKey,
// anyllmlib.WithBaseURL). If no API key option is provided, the provider
// falls back to the relevant environment variable (OPENAI_API_KEY,
// ANTHROPIC_API_KEY, etc.).
func New(providerName string, model string, opts ...anyllmlib.Option) (*Responder, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}

	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}

	return &Responder{
		backend:      backend,
		model:        model,
		systemPrompt: defaultSystemPrompt,
	}, nil
}

// NewOpenAI creates a Responder backed by OpenAI.
// Without options, it reads the OPENAI_API_KEY environment variable.
func NewOpenAI(model string, opts ...anyllmlib.Option) (*Responder, error) {
	return New("openai", model, opts...)
}

// NewAnthropic creates a Responder backed by Anthropic.
// Without options, it reads the ANTHROPIC_API_KEY environment variable.
func NewAnthropic(model string, opts ...anyllmlib.Option) (*Responder, error) {
	return New("anthropic", model, opts...)
}

// NewOllama creates a Responder backed by Ollama (local inference).
// Without options, it connects to http://localhost:11434.
func NewOllama(model string, opts ...anyllmlib.Option) (*Responder, error) {
	return New("ollama", model, opts...)
}

// SetSystemPrompt replaces the default voice-assistant persona. Must be
// called before the Responder is shared between goroutines.
func (r *Responder) SetSystemPrompt(prompt string) {
	if strings.TrimSpace(prompt) != "" {
		r.systemPrompt = prompt
	}
}

// createBackend creates the underlying any-llm-go provider for the given
// provider name.
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
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile", providerName)
	}
}

// Generate implements llm.Responder.
func (r *Responder) Generate(ctx context.Context, command, background string) (string, error) {
	if strings.TrimSpace(command) == "" {
		return "", fmt.Errorf("anyllm: command must not be empty")
	}

	params := anyllmlib.CompletionParams{
		Model: r.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: buildSystemMessage(r.systemPrompt, background)},
			{Role: anyllmlib.RoleUser, Content: command},
		},
	}

	resp, err := r.backend.Completion(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anyllm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("anyllm: empty choices in response")
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.ContentString())
	if reply == "" {
		return "", fmt.Errorf("anyllm: model returned an empty reply")
	}
	return reply, nil
}

// buildSystemMessage appends the assembled background context, when present,
// to the persona prompt.
func buildSystemMessage(systemPrompt, background string) string {
	background = strings.TrimSpace(background)
	if background == "" {
		return systemPrompt
	}
	return systemPrompt + "\n\nCurrent context:\n" + background
}
