// Package ai implements the provider fallback chain that narrates audits and
// answers follow-up questions. Providers are optional; with none configured
// the chain degrades to deterministic synthesis and never errors.
package ai

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider is one model backend the chain can try.
type Provider interface {
	Name() string
	Generate(ctx context.Context, system, user string) (string, error)
}

// llmProvider adapts a langchaingo model to the Provider interface.
type llmProvider struct {
	name  string
	model llms.Model
}

func (p *llmProvider) Name() string { return p.name }

func (p *llmProvider) Generate(ctx context.Context, system, user string) (string, error) {
	resp, err := p.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	})
	if err != nil {
		return "", fmt.Errorf("%s generate: %w", p.name, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", fmt.Errorf("%s returned no content", p.name)
	}
	return resp.Choices[0].Content, nil
}

// NewOpenAI builds the OpenAI provider. Empty token means disabled (nil, nil).
func NewOpenAI(token, model string) (Provider, error) {
	if token == "" {
		return nil, nil
	}
	llm, err := openai.New(openai.WithToken(token), openai.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("init openai: %w", err)
	}
	return &llmProvider{name: "openai", model: llm}, nil
}

// NewAnthropic builds the Anthropic provider. Empty token means disabled.
func NewAnthropic(token, model string) (Provider, error) {
	if token == "" {
		return nil, nil
	}
	llm, err := anthropic.New(anthropic.WithToken(token), anthropic.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("init anthropic: %w", err)
	}
	return &llmProvider{name: "anthropic", model: llm}, nil
}

// NewOllama builds the local Ollama provider. The server URL is its
// credential equivalent: empty means disabled.
func NewOllama(serverURL, model string) (Provider, error) {
	if serverURL == "" {
		return nil, nil
	}
	llm, err := ollama.New(ollama.WithServerURL(serverURL), ollama.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("init ollama: %w", err)
	}
	return &llmProvider{name: "ollama", model: llm}, nil
}
