package services

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MockProvider answers locally with a canned coaching outline. It lets the
// server run without any API key.
type MockProvider struct {
	// ChunkSize and Delay shape the streamed output.
	ChunkSize int
	Delay     time.Duration
}

func NewMockProvider() *MockProvider {
	return &MockProvider{ChunkSize: 24, Delay: 40 * time.Millisecond}
}

func (p *MockProvider) Name() string { return "mock" }

func (p *MockProvider) Complete(ctx context.Context, msgs []ChatMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return coachReply(msgs), nil
}

func (p *MockProvider) Stream(ctx context.Context, msgs []ChatMessage, onDelta func(string)) (string, error) {
	full := coachReply(msgs)
	step := p.ChunkSize
	if step <= 0 {
		step = len(full)
	}
	for i := 0; i < len(full); i += step {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		end := min(i+step, len(full))
		if onDelta != nil {
			onDelta(full[i:end])
		}
		if p.Delay > 0 {
			sleepWithContext(ctx, p.Delay)
		}
	}
	return full, nil
}

func coachReply(msgs []ChatMessage) string {
	var last string
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			last = strings.TrimSpace(msgs[i].Content)
			break
		}
	}
	if last == "" {
		last = "your question"
	}
	b := &strings.Builder{}
	fmt.Fprintf(b, "Coaching notes for: %s\n\n", truncate(last, 80))
	fmt.Fprintln(b, "Training:")
	fmt.Fprintln(b, "- Warm up for 5 to 10 minutes before every session.")
	fmt.Fprintln(b, "- Train each major muscle group twice a week with progressive overload.")
	fmt.Fprintln(b, "\nNutrition:")
	fmt.Fprintln(b, "- Aim for protein at every meal and keep hydrated.")
	fmt.Fprintln(b, "\nRecovery:")
	fmt.Fprint(b, "- Sleep 7 to 9 hours and schedule at least one rest day.")
	return b.String()
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
