package anyllm

import (
	"strings"
	"testing"
)

func TestNew_Validation(t *testing.T) {
	if _, err := New("", "gpt-4o"); err == nil {
		t.Error("expected error for empty provider name")
	}
	if _, err := New("openai", ""); err == nil {
		t.Error("expected error for empty model")
	}
	if _, err := New("not-a-provider", "some-model"); err == nil {
		t.Error("expected error for unsupported provider")
	}
}

func TestNew_SupportedProviders(t *testing.T) {
	for _, name := range []string{"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile"} {
		t.Run(name, func(t *testing.T) {
			if _, err := New(name, "some-model"); err != nil {
				t.Errorf("New(%q): %v", name, err)
			}
		})
	}
}

func TestBuildSystemMessage(t *testing.T) {
	prompt := "You are a voice assistant."

	if got := buildSystemMessage(prompt, ""); got != prompt {
		t.Errorf("empty background should leave prompt unchanged, got %q", got)
	}
	if got := buildSystemMessage(prompt, "   "); got != prompt {
		t.Errorf("whitespace background should leave prompt unchanged, got %q", got)
	}

	got := buildSystemMessage(prompt, "tasks: buy milk")
	if !strings.HasPrefix(got, prompt) {
		t.Errorf("system message must start with the persona, got %q", got)
	}
	if !strings.Contains(got, "tasks: buy milk") {
		t.Errorf("system message must carry the background, got %q", got)
	}
}

func TestSetSystemPrompt(t *testing.T) {
	r, err := New("ollama", "llama3.2")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.SetSystemPrompt("Speak like a pirate.")
	if r.systemPrompt != "Speak like a pirate." {
		t.Errorf("systemPrompt: got %q", r.systemPrompt)
	}
	r.SetSystemPrompt("   ")
	if r.systemPrompt != "Speak like a pirate." {
		t.Error("blank prompt must not replace the existing one")
	}
}
