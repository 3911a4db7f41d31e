package evaluate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shanehull/preminder/internal/ai"
	"github.com/shanehull/preminder/internal/types"
)

type stubResponse struct {
	verdict types.Verdict
	err     error
}

// stubOracle answers by link. Unknown links are classified {false, false}.
type stubOracle struct {
	mu        sync.Mutex
	responses map[string][]stubResponse
	calls     atomic.Int32
}

func (s *stubOracle) Classify(_ context.Context, r types.SearchResult, _ string, _ time.Time) (types.Verdict, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	queue := s.responses[r.Link]
	if len(queue) == 0 {
		return types.Verdict{}, nil
	}
	resp := queue[0]
	if len(queue) > 1 {
		s.responses[r.Link] = queue[1:]
	}
	if resp.err != nil {
		return types.Verdict{}, resp.err
	}
	return resp.verdict, nil
}

var refDate = time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

func result(n int) types.SearchResult {
	return types.SearchResult{
		Title:   fmt.Sprintf("Result %d", n),
		Snippet: fmt.Sprintf("Snippet %d", n),
		Link:    fmt.Sprintf("https://example.com/%d", n),
	}
}

func fastOptions() Options {
	return Options{Concurrency: 3, Retries: 2, Backoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestEvaluate_MalformedJudgmentFailsClosed(t *testing.T) {
	results := []types.SearchResult{result(1), result(2), result(3)}
	oracle := &stubOracle{responses: map[string][]stubResponse{
		results[0].Link: {{verdict: types.Verdict{TopicRelevant: true, FutureDated: true}}},
		results[1].Link: {{err: fmt.Errorf("%w: bad text", ai.ErrUnparseable)}},
		results[2].Link: {{verdict: types.Verdict{TopicRelevant: true}}},
	}}
	e := New(oracle, zap.NewNop(), fastOptions())

	verdicts, summary := e.Evaluate(context.Background(), results, "q", refDate)

	require.Len(t, verdicts, 3)
	assert.Equal(t, types.Verdict{TopicRelevant: true, FutureDated: true}, verdicts[0])
	assert.Equal(t, types.Verdict{}, verdicts[1])
	assert.Equal(t, types.Verdict{TopicRelevant: true}, verdicts[2])
	assert.Equal(t, types.Summary{Total: 3, Relevant: 2, FutureDated: 1, RelevantAndFuture: 1}, summary)
	assert.Equal(t, int32(3), oracle.calls.Load(), "unparseable output must not be retried")
}

func TestEvaluate_RetriesTransportErrors(t *testing.T) {
	r := result(1)
	oracle := &stubOracle{responses: map[string][]stubResponse{
		r.Link: {
			{err: errors.New("connection reset")},
			{verdict: types.Verdict{TopicRelevant: true, FutureDated: true}},
		},
	}}
	e := New(oracle, zap.NewNop(), fastOptions())

	verdicts, _ := e.Evaluate(context.Background(), []types.SearchResult{r}, "q", refDate)
	assert.True(t, verdicts[0].Actionable())
	assert.Equal(t, int32(2), oracle.calls.Load())
}

func TestEvaluate_ExhaustedRetriesFailClosed(t *testing.T) {
	r := result(1)
	boom := stubResponse{err: errors.New("quota exceeded")}
	oracle := &stubOracle{responses: map[string][]stubResponse{r.Link: {boom}}}
	e := New(oracle, zap.NewNop(), fastOptions())

	verdicts, summary := e.Evaluate(context.Background(), []types.SearchResult{r}, "q", refDate)
	assert.Equal(t, types.Verdict{}, verdicts[0])
	assert.Equal(t, 0, summary.RelevantAndFuture)
	assert.Equal(t, int32(3), oracle.calls.Load())
}

type panicOracle struct{}

func (panicOracle) Classify(context.Context, types.SearchResult, string, time.Time) (types.Verdict, error) {
	panic("boom")
}

func TestEvaluate_OraclePanicFailsClosed(t *testing.T) {
	e := New(panicOracle{}, zap.NewNop(), fastOptions())
	verdicts, summary := e.Evaluate(context.Background(), []types.SearchResult{result(1), result(2)}, "q", refDate)
	assert.Equal(t, []types.Verdict{{}, {}}, verdicts)
	assert.Equal(t, 2, summary.Total)
}

func TestEvaluate_BlankResultSkipsOracle(t *testing.T) {
	oracle := &stubOracle{}
	e := New(oracle, zap.NewNop(), fastOptions())

	verdicts, summary := e.Evaluate(context.Background(), []types.SearchResult{{Link: "https://example.com/blank"}}, "q", refDate)
	assert.Equal(t, []types.Verdict{{}}, verdicts)
	assert.Equal(t, 1, summary.Total)
	assert.Zero(t, oracle.calls.Load())
}

func TestEvaluate_Empty(t *testing.T) {
	e := New(&stubOracle{}, zap.NewNop(), fastOptions())
	verdicts, summary := e.Evaluate(context.Background(), nil, "q", refDate)
	assert.Empty(t, verdicts)
	assert.Equal(t, types.Summary{}, summary)
}

func TestSummarize_Invariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		n := rng.Intn(10)
		verdicts := make([]types.Verdict, n)
		for j := range verdicts {
			verdicts[j] = types.Verdict{TopicRelevant: rng.Intn(2) == 1, FutureDated: rng.Intn(2) == 1}
		}

		s := Summarize(verdicts)
		assert.Equal(t, n, s.Total)
		assert.LessOrEqual(t, s.RelevantAndFuture, min(s.Relevant, s.FutureDated))
		assert.Len(t, Actionable(make([]types.SearchResult, n), verdicts), s.RelevantAndFuture)
	}
}

func TestActionable_PreservesOrder(t *testing.T) {
	results := []types.SearchResult{result(1), result(2), result(3)}
	verdicts := []types.Verdict{
		{TopicRelevant: true, FutureDated: true},
		{TopicRelevant: true},
		{TopicRelevant: true, FutureDated: true},
	}
	assert.Equal(t, []types.SearchResult{result(1), result(3)}, Actionable(results, verdicts))
}

func TestCombine(t *testing.T) {
	results := []types.SearchResult{result(1)}
	verdicts := []types.Verdict{{FutureDated: true}}
	combined := Combine(results, verdicts)
	require.Len(t, combined, 1)
	assert.Equal(t, "Result 1", combined[0].Title)
	assert.True(t, combined[0].FutureDated)
	assert.False(t, combined[0].TopicRelevant)
}
