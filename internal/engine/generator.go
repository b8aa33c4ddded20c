package engine

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/prompt"
	"github.com/sells-group/outreach-cli/pkg/anthropic"
	"github.com/sells-group/outreach-cli/pkg/ollama"
)

// Generator turns a prompt into raw model text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Pinger is implemented by generators that can cheaply check availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OllamaGenerator generates through a local Ollama server.
type OllamaGenerator struct {
	Client ollama.Client
	Model  string
}

// Generate implements Generator.
func (g *OllamaGenerator) Generate(ctx context.Context, text string) (string, error) {
	resp, err := g.Client.Generate(ctx, prompt.NewRequest(g.Model, text))
	if err != nil {
		return "", err
	}
	return resp.Response, nil
}

// Ping lists installed models and checks the configured one is present.
func (g *OllamaGenerator) Ping(ctx context.Context) error {
	tags, err := g.Client.Tags(ctx)
	if err != nil {
		return err
	}
	for _, m := range tags.Models {
		if m.Name == g.Model || m.Name == g.Model+":latest" {
			return nil
		}
	}
	return eris.Errorf("ollama: model %q is not installed", g.Model)
}

const anthropicSystem = "You write short, friendly lines for B2B cleaning-services sales emails. Follow the requested format exactly."

// AnthropicGenerator generates through the Anthropic Messages API.
type AnthropicGenerator struct {
	Client    anthropic.Client
	Model     string
	MaxTokens int64
}

// Generate implements Generator.
func (g *AnthropicGenerator) Generate(ctx context.Context, text string) (string, error) {
	resp, err := g.Client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     g.Model,
		MaxTokens: g.MaxTokens,
		System:    anthropicSystem,
		Messages:  []anthropic.Message{{Role: "user", Content: text}},
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

var (
	_ Generator = (*OllamaGenerator)(nil)
	_ Pinger    = (*OllamaGenerator)(nil)
	_ Generator = (*AnthropicGenerator)(nil)
)
