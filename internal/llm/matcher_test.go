package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/txmatch/internal/common"
	"github.com/Veraticus/txmatch/internal/model"
	"github.com/Veraticus/txmatch/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() MatcherConfig {
	cfg := DefaultMatcherConfig()
	cfg.Logger = common.DiscardLogger()
	cfg.RateLimit = 0
	cfg.LeafOnly = false
	cfg.Retry = common.RetryOptions{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
	}
	return cfg
}

func TestNewFallbackMatcher_Validation(t *testing.T) {
	chart := testutil.StandardChart(t)

	_, err := NewFallbackMatcher(nil, chart, testConfig())
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	_, err = NewFallbackMatcher(NewMockClient(), nil, testConfig())
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	m, err := NewFallbackMatcher(NewMockClient(), chart, testConfig())
	require.NoError(t, err)
	assert.Equal(t, "llm", m.Name())
}

func TestFallbackMatcher_Process(t *testing.T) {
	chart := testutil.StandardChart(t)
	office := testutil.MustAccount(t, chart, testutil.AccountOfficeSupplies)

	client := NewMockClient().
		Reply("DELTA AIR", `{"account_number": "6100", "confidence": 0.95}`).
		Reply("ACME CORP", `{"account_number": "6200", "confidence": 0.95}`).
		Reply("LOWBALL", `{"account_number": "6200", "confidence": 0.4}`).
		Reply("TIED", `{"account_number": "6200", "confidence": 0.7}`).
		Reply("GARBAGE", `no idea`).
		Reply("NAN", "ACCOUNT: 6200\nCONFIDENCE: NaN").
		Fail("TIMEOUT", fmt.Errorf("%w: connection reset", common.ErrProviderUnavailable)).
		Fail("REJECTED", errors.New("bad request"))

	m, err := NewFallbackMatcher(client, chart, testConfig())
	require.NoError(t, err)

	unmatched := testutil.Txn("1", "DELTA AIR", "-300.00")
	upgraded := testutil.Txn("2", "ACME CORP", "-10.00")
	upgraded.AddMatch(office, 0.7, model.SourceRule)
	kept := testutil.Txn("3", "LOWBALL", "-10.00")
	kept.AddMatch(office, 0.7, model.SourceRule)
	tied := testutil.Txn("4", "TIED", "-10.00")
	tied.AddMatch(office, 0.7, model.SourceRule)
	garbage := testutil.Txn("5", "GARBAGE", "-1.00")
	failing := testutil.Txn("6", "TIMEOUT", "-1.00")
	rejected := testutil.Txn("7", "REJECTED", "-1.00")
	notANumber := testutil.Txn("8", "NAN", "-1.00")
	notANumber.AddMatch(office, 0.5, model.SourceRule)

	txns := []*model.Transaction{unmatched, upgraded, kept, tied, garbage, failing, rejected, notANumber, nil}
	require.NoError(t, m.Process(context.Background(), txns))

	assert.Equal(t, model.SourceLLM, unmatched.Source())
	assert.Equal(t, testutil.AccountTravel, unmatched.Account().Number)

	assert.Equal(t, model.SourceLLM, upgraded.Source())
	assert.Equal(t, testutil.AccountSoftware, upgraded.Account().Number)
	assert.InDelta(t, 0.95, upgraded.Confidence(), 1e-9)
	assert.Len(t, upgraded.AlternativeMatches(), 2)

	assert.Equal(t, model.SourceRule, kept.Source())
	assert.Len(t, kept.AlternativeMatches(), 1, "lower confidence reply is not recorded")

	assert.Equal(t, model.SourceRule, tied.Source(), "ties keep the earlier match")
	assert.Len(t, tied.AlternativeMatches(), 2, "tied reply is recorded as an alternative")
	assert.True(t, tied.NeedsReview())

	assert.False(t, garbage.IsMatched())
	assert.False(t, failing.IsMatched())
	assert.False(t, rejected.IsMatched())

	assert.Equal(t, model.SourceRule, notANumber.Source())
	assert.InDelta(t, 0.5, notANumber.Confidence(), 1e-9)
	assert.Len(t, notANumber.AlternativeMatches(), 1, "NaN reply leaves the transaction untouched")

	// Only the provider failure is retried; the plain error is not.
	assert.Equal(t, 9, client.CallCount())
}

func TestFallbackMatcher_CachesIdenticalPrompts(t *testing.T) {
	chart := testutil.StandardChart(t)
	client := NewMockClient().Reply("NETFLIX", `{"account_number": "6200", "confidence": 0.9}`)

	m, err := NewFallbackMatcher(client, chart, testConfig())
	require.NoError(t, err)

	a := testutil.Txn("a", "NETFLIX", "-15.49")
	b := testutil.Txn("b", "NETFLIX", "-15.49")

	assert.True(t, m.MatchTransaction(context.Background(), a))
	assert.True(t, m.MatchTransaction(context.Background(), b))
	assert.Equal(t, 1, client.CallCount())
	assert.Equal(t, 1, m.cache.size())
}

func TestFallbackMatcher_BoundedConcurrency(t *testing.T) {
	chart := testutil.StandardChart(t)

	var mu sync.Mutex
	var inFlight, peak int
	client := ClientFunc(func(_ context.Context, _ string) (string, error) {
		mu.Lock()
		inFlight++
		peak = max(peak, inFlight)
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return `{"account_number": "6200", "confidence": 0.9}`, nil
	})

	cfg := testConfig()
	cfg.Concurrency = 2
	cfg.CacheTTL = 0

	var progressCalls int
	var progressMu sync.Mutex
	cfg.Progress = func(done, total int) {
		progressMu.Lock()
		defer progressMu.Unlock()
		progressCalls++
		assert.LessOrEqual(t, done, total)
	}

	m, err := NewFallbackMatcher(client, chart, cfg)
	require.NoError(t, err)

	txns := make([]*model.Transaction, 8)
	for i := range txns {
		txns[i] = testutil.Txn(string(rune('a'+i)), "VENDOR "+string(rune('A'+i)), "-1.00")
	}
	require.NoError(t, m.Process(context.Background(), txns))

	assert.LessOrEqual(t, peak, 2)
	assert.Equal(t, len(txns), progressCalls)
	for _, txn := range txns {
		assert.Equal(t, model.SourceLLM, txn.Source())
	}
}

func TestFallbackMatcher_CancelledContextStopsScheduling(t *testing.T) {
	chart := testutil.StandardChart(t)
	client := NewMockClient()
	client.Default = `{"account_number": "6200", "confidence": 0.9}`

	m, err := NewFallbackMatcher(client, chart, testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	txn := testutil.Txn("a", "ANYTHING", "-1.00")
	err = m.Process(ctx, []*model.Transaction{txn})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, client.CallCount())
	assert.False(t, txn.IsMatched())
}

func TestFallbackMatcher_CallTimeout(t *testing.T) {
	chart := testutil.StandardChart(t)
	client := ClientFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	cfg := testConfig()
	cfg.CallTimeout = 10 * time.Millisecond
	cfg.Retry.MaxAttempts = 1

	m, err := NewFallbackMatcher(client, chart, cfg)
	require.NoError(t, err)

	txn := testutil.Txn("a", "SLOW", "-1.00")
	require.NoError(t, m.Process(context.Background(), []*model.Transaction{txn}))
	assert.False(t, txn.IsMatched())
}
