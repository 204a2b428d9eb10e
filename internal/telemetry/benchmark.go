package telemetry

import (
	"context"
	"time"

	"github.com/theRebelliousNerd/selectorcache/internal/cache"
	"github.com/theRebelliousNerd/selectorcache/internal/normalizer"
)

// BenchmarkResult reports how a batch of replayed inputs scored against a
// single query, and how long the batch took end to end.
type BenchmarkResult struct {
	Query    string
	Inputs   []string
	Scores   []float64
	Duration time.Duration
}

// RunBenchmark replays rawInputs against query through cache.ScoreBatch,
// which fans SemanticJaccard scoring out across an errgroup. A live Get's
// reverse tier uses the same SemanticJaccard function but scores its
// candidates one at a time, without an errgroup.
func RunBenchmark(ctx context.Context, query string, rawInputs []string) (BenchmarkResult, error) {
	normalized := normalizer.Normalize(query)
	start := time.Now()
	scores, err := cache.ScoreBatch(ctx, normalized, rawInputs)
	elapsed := time.Since(start)
	if err != nil {
		return BenchmarkResult{}, err
	}
	return BenchmarkResult{Query: query, Inputs: rawInputs, Scores: scores, Duration: elapsed}, nil
}

// Best returns the input with the highest score and its score, or ("", 0)
// if the result carries no inputs.
func (r BenchmarkResult) Best() (string, float64) {
	if len(r.Inputs) == 0 {
		return "", 0
	}
	bestIdx := 0
	for i, s := range r.Scores {
		if s > r.Scores[bestIdx] {
			bestIdx = i
		}
	}
	return r.Inputs[bestIdx], r.Scores[bestIdx]
}
