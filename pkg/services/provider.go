package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"FitCoachAI/pkg/config"
)

// Chat roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	ErrProviderDisabled = errors.New("completion provider is not configured")
	ErrEmptyReply       = errors.New("completion provider returned an empty reply")
)

type ChatMessage struct {
	Role    string
	Content string
}

// Provider turns a prompt (system prompt, history, new user turn) into a
// single assistant reply.
type Provider interface {
	Name() string
	Complete(ctx context.Context, msgs []ChatMessage) (string, error)
	// Stream calls onDelta for every partial chunk and returns the full reply.
	Stream(ctx context.Context, msgs []ChatMessage, onDelta func(string)) (string, error)
}

type ProviderOptions struct {
	Kind        string // openai | gemini | mock
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	Timeout     time.Duration
}

// ProviderOptionsFromConfig selects the provider settings from the loaded config.
func ProviderOptionsFromConfig() ProviderOptions {
	opts := ProviderOptions{
		Kind:        config.LLMProvider,
		Temperature: config.LLMTemperature,
		Timeout:     time.Duration(config.LLMTimeoutSeconds) * time.Second,
	}
	switch config.LLMProvider {
	case "openai":
		opts.APIKey = config.OpenAIAPIKey
		opts.Model = config.OpenAIModel
		opts.BaseURL = config.OpenAIBaseURL
	case "gemini":
		opts.APIKey = config.GeminiAPIKey
		opts.Model = config.GeminiModel
	}
	return opts
}

// NewProvider builds the provider named by opts.Kind.
func NewProvider(ctx context.Context, opts ProviderOptions) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Kind)) {
	case "openai":
		return NewOpenAIProvider(opts)
	case "gemini":
		return NewGeminiProvider(ctx, opts)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown completion provider %q", opts.Kind)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
