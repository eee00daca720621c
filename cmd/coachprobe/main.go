// Command coachprobe runs a list of questions through the configured
// completion provider, with and without the coach prompt, and writes the
// replies to results/<run>.json and .csv.
//
// Environment: COACHPROBE_QUERIES (default cmd/coachprobe/queries.json),
// COACHPROBE_OUT (default cmd/coachprobe/results), COACHPROBE_ONLY,
// COACHPROBE_TIMEOUT_SEC, COACHPROBE_SLEEP_MS.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"FitCoachAI/pkg/config"
	"FitCoachAI/pkg/logger"
	svc "FitCoachAI/pkg/services"
)

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil && v >= 0 {
		return v
	}
	return def
}

func main() {
	log := logger.New(logger.Options{Level: "info"})
	logger.SetGlobal(log)
	defer log.Sync()

	if err := config.Load(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	if config.LLMProvider == "mock" {
		log.Warn("LLM_PROVIDER=mock: replies are canned, results only exercise the pipeline")
	}

	ctx := context.Background()
	provider, err := svc.NewProvider(ctx, svc.ProviderOptionsFromConfig())
	if err != nil {
		log.Fatal("provider", zap.Error(err))
	}

	queries, err := readQueries(envOr("COACHPROBE_QUERIES", filepath.Join("cmd", "coachprobe", "queries.json")))
	if err != nil {
		log.Fatal("queries", zap.Error(err))
	}
	queries = filterQueries(queries, os.Getenv("COACHPROBE_ONLY"))

	timeout := time.Duration(envInt("COACHPROBE_TIMEOUT_SEC", 40)) * time.Second
	pause := time.Duration(envInt("COACHPROBE_SLEEP_MS", 600)) * time.Millisecond

	started := time.Now()
	runID := fmt.Sprintf("probe-%s-%s", started.Format("20060102-150405"), uuid.NewString()[:6])

	results := make([]ResultItem, 0, len(queries)*2)
	for _, q := range queries {
		for _, mode := range []string{modeBaseline, modeCoached} {
			r := runOnce(ctx, provider, q, mode, timeout)
			results = append(results, r)
			log.Info("probe",
				zap.String("mode", mode),
				zap.String("query", truncate(q.Q, 64)),
				zap.Int64("duration_ms", r.DurationMs),
				zap.Bool("declined", r.Declined),
				zap.String("error", r.Error),
			)
			time.Sleep(pause)
		}
	}

	modes, mc := summarize(results)
	summary := RunSummary{
		RunID:        runID,
		StartedAt:    started.Format(time.RFC3339),
		EndedAt:      time.Now().Format(time.RFC3339),
		Env:          config.AppEnv,
		Provider:     provider.Name(),
		TotalQueries: len(queries),
		Modes:        modes,
		McNemar:      mc,
		Results:      results,
	}

	outDir := envOr("COACHPROBE_OUT", filepath.Join("cmd", "coachprobe", "results"))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		log.Fatal("create results dir", zap.Error(err))
	}
	jsonPath := filepath.Join(outDir, runID+".json")
	csvPath := filepath.Join(outDir, runID+".csv")
	if err := writeJSON(jsonPath, summary); err != nil {
		log.Fatal("write json", zap.Error(err))
	}
	if err := writeCSV(csvPath, results); err != nil {
		log.Fatal("write csv", zap.Error(err))
	}
	log.Info("saved", zap.String("json", jsonPath), zap.String("csv", csvPath))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
