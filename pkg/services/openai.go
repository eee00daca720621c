package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"FitCoachAI/pkg/logger"
)

const defaultOpenAIModel = "gpt-4o-mini"

type OpenAIProvider struct {
	client      openai.Client
	model       string
	temperature float64
	opts        ProviderOptions
}

func NewOpenAIProvider(opts ProviderOptions) (*OpenAIProvider, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set: %w", ErrProviderDisabled)
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultOpenAIModel
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithHTTPClient(&http.Client{}),
		// a failed completion surfaces as a 500, it is never retried
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	logger.L().Debug("openai provider ready", zap.String("model", model))
	return &OpenAIProvider{
		client:      openai.NewClient(reqOpts...),
		model:       model,
		temperature: opts.Temperature,
		opts:        opts,
	}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) params(msgs []ChatMessage) openai.ChatCompletionNewParams {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: out,
	}
	if p.temperature > 0 {
		params.Temperature = openai.Float(p.temperature)
	}
	return params
}

func (p *OpenAIProvider) Complete(ctx context.Context, msgs []ChatMessage) (string, error) {
	ctx, cancel := withTimeout(ctx, p.opts.Timeout)
	defer cancel()

	resp, err := p.client.Chat.Completions.New(ctx, p.params(msgs))
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

func (p *OpenAIProvider) Stream(ctx context.Context, msgs []ChatMessage, onDelta func(string)) (string, error) {
	ctx, cancel := withTimeout(ctx, p.opts.Timeout)
	defer cancel()

	stream := p.client.Chat.Completions.NewStreaming(ctx, p.params(msgs))
	defer stream.Close()

	var b strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		b.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("openai stream: %w", err)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}
