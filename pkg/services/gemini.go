package services

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"FitCoachAI/pkg/logger"
)

const defaultGeminiModel = "gemini-2.0-flash"

type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

var newGeminiClient = func(ctx context.Context, cfg *genai.ClientConfig) (*genai.Client, error) {
	return genai.NewClient(ctx, cfg)
}

type GeminiProvider struct {
	models      geminiModels
	model       string
	temperature float64
	opts        ProviderOptions
}

func NewGeminiProvider(ctx context.Context, opts ProviderOptions) (*GeminiProvider, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set: %w", ErrProviderDisabled)
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := newGeminiClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	logger.L().Debug("gemini provider ready", zap.String("model", model))
	return &GeminiProvider{
		models:      client.Models,
		model:       model,
		temperature: opts.Temperature,
		opts:        opts,
	}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

// request splits system turns into the system instruction; assistant turns
// are sent with the "model" role.
func (p *GeminiProvider) request(msgs []ChatMessage) ([]*genai.Content, *genai.GenerateContentConfig) {
	var system []string
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(p.temperature)),
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	return contents, cfg
}

func (p *GeminiProvider) Complete(ctx context.Context, msgs []ChatMessage) (string, error) {
	ctx, cancel := withTimeout(ctx, p.opts.Timeout)
	defer cancel()

	contents, cfg := p.request(msgs)
	resp, err := p.models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := strings.TrimSpace(candidateText(resp))
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

func (p *GeminiProvider) Stream(ctx context.Context, msgs []ChatMessage, onDelta func(string)) (string, error) {
	ctx, cancel := withTimeout(ctx, p.opts.Timeout)
	defer cancel()

	contents, cfg := p.request(msgs)
	var full strings.Builder
	for resp, err := range p.models.GenerateContentStream(ctx, p.model, contents, cfg) {
		if err != nil {
			return "", fmt.Errorf("gemini stream: %w", err)
		}
		delta := candidateText(resp)
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	text := strings.TrimSpace(full.String())
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}
