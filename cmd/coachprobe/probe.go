package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	svc "FitCoachAI/pkg/services"
)

// Probe modes: the bare question versus the question behind the coach prompt.
const (
	modeBaseline = "baseline"
	modeCoached  = "coached"
)

type Query struct {
	Q        string `json:"q"`
	OffTopic bool   `json:"off_topic"`
}

type ResultItem struct {
	Query      string `json:"query"`
	OffTopic   bool   `json:"off_topic"`
	Mode       string `json:"mode"`
	Response   string `json:"response"`
	Error      string `json:"error,omitempty"`
	Declined   bool   `json:"declined"`
	DurationMs int64  `json:"duration_ms"`
	Timestamp  string `json:"timestamp"`
}

// Failed reports whether the reply missed the expected behaviour: off-topic
// questions should be declined, fitness questions answered.
func (r ResultItem) Failed() bool {
	if r.Error != "" {
		return true
	}
	return r.Declined != r.OffTopic
}

type ModeStats struct {
	Runs          int     `json:"runs"`
	Errors        int     `json:"errors"`
	Failures      int     `json:"failures"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

type RunSummary struct {
	RunID        string               `json:"run_id"`
	StartedAt    string               `json:"started_at"`
	EndedAt      string               `json:"ended_at"`
	Env          string               `json:"env"`
	Provider     string               `json:"provider"`
	TotalQueries int                  `json:"total_queries"`
	Modes        map[string]ModeStats `json:"modes"`
	McNemar      McNemarResult        `json:"mcnemar"`
	Results      []ResultItem         `json:"results"`
}

// parseQueries accepts ["q1", ...] or [{"q": "...", "off_topic": true}, ...].
func parseQueries(data []byte) ([]Query, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid queries file: %w", err)
	}
	out := make([]Query, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, Query{Q: s})
			}
			continue
		}
		var q Query
		if err := json.Unmarshal(item, &q); err == nil {
			if q.Q = strings.TrimSpace(q.Q); q.Q != "" {
				out = append(out, q)
			}
		}
	}
	if len(out) == 0 {
		return nil, errors.New("queries file is empty or malformed")
	}
	return out, nil
}

func readQueries(path string) ([]Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read queries: %w", err)
	}
	return parseQueries(data)
}

// filterQueries keeps the queries selected by only, a comma separated list
// of 1-based indexes or substrings. An empty selection keeps everything.
func filterQueries(queries []Query, only string) []Query {
	if strings.TrimSpace(only) == "" {
		return queries
	}
	wanted := map[int]bool{}
	var subs []string
	for _, tok := range strings.Split(only, ",") {
		v := strings.ToLower(strings.TrimSpace(tok))
		if v == "" {
			continue
		}
		if n, err := strconv.Atoi(v); err == nil {
			if n >= 1 && n <= len(queries) {
				wanted[n-1] = true
			}
			continue
		}
		subs = append(subs, v)
	}
	var out []Query
	for i, q := range queries {
		keep := wanted[i]
		ql := strings.ToLower(q.Q)
		for _, sub := range subs {
			if strings.Contains(ql, sub) {
				keep = true
				break
			}
		}
		if keep {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return queries
	}
	return out
}

func promptFor(mode, q string) []svc.ChatMessage {
	if mode == modeCoached {
		return svc.BuildPrompt(nil, q)
	}
	return []svc.ChatMessage{{Role: svc.RoleUser, Content: q}}
}

// declined guesses whether a reply is the coach's polite refusal.
func declined(resp string) bool {
	s := strings.ToLower(resp)
	for _, marker := range []string{"fitness-related", "only answer fitness", "only help with fitness", "only respond to fitness"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

func runOnce(ctx context.Context, p svc.Provider, q Query, mode string, timeout time.Duration) ResultItem {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	t0 := time.Now()
	resp, err := p.Complete(ctx, promptFor(mode, q.Q))
	r := ResultItem{
		Query:      q.Q,
		OffTopic:   q.OffTopic,
		Mode:       mode,
		Response:   strings.TrimSpace(resp),
		Declined:   declined(resp),
		DurationMs: time.Since(t0).Milliseconds(),
		Timestamp:  time.Now().Format(time.RFC3339),
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

func summarize(results []ResultItem) (map[string]ModeStats, McNemarResult) {
	stats := map[string]ModeStats{}
	var baseFail, coachFail []bool
	for _, r := range results {
		s := stats[r.Mode]
		s.Runs++
		if r.Error != "" {
			s.Errors++
		}
		if r.Failed() {
			s.Failures++
		}
		s.AvgDurationMs += float64(r.DurationMs)
		stats[r.Mode] = s

		switch r.Mode {
		case modeBaseline:
			baseFail = append(baseFail, r.Failed())
		case modeCoached:
			coachFail = append(coachFail, r.Failed())
		}
	}
	for mode, s := range stats {
		if s.Runs > 0 {
			s.AvgDurationMs /= float64(s.Runs)
		}
		stats[mode] = s
	}
	n := min(len(baseFail), len(coachFail))
	return stats, mcnemar(baseFail[:n], coachFail[:n])
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func writeCSV(path string, items []ResultItem) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	_ = w.Write([]string{"query", "off_topic", "mode", "declined", "duration_ms", "error", "response"})
	for _, it := range items {
		_ = w.Write([]string{
			it.Query,
			strconv.FormatBool(it.OffTopic),
			it.Mode,
			strconv.FormatBool(it.Declined),
			strconv.FormatInt(it.DurationMs, 10),
			it.Error,
			it.Response,
		})
	}
	w.Flush()
	return w.Error()
}
