package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Veraticus/txmatch/internal/common"
	"github.com/Veraticus/txmatch/internal/model"
	"github.com/sourcegraph/conc/pool"
)

// ProgressFunc is called after each transaction of a fallback pass finishes.
// It may be called from several goroutines at once.
type ProgressFunc func(done, total int)

// MatcherConfig configures a FallbackMatcher.
type MatcherConfig struct {
	Logger      *slog.Logger
	Progress    ProgressFunc
	Retry       common.RetryOptions
	CacheTTL    time.Duration
	CallTimeout time.Duration
	Concurrency int
	RateLimit   int // requests per minute, 0 disables limiting
	MaxAccounts int // accounts listed in the prompt
	LeafOnly    bool
}

// DefaultMatcherConfig returns the default configuration.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		Retry: common.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
		CacheTTL:    15 * time.Minute,
		CallTimeout: DefaultTimeout,
		Concurrency: 5,
		RateLimit:   60,
		MaxAccounts: DefaultMaxAccounts,
		LeafOnly:    true,
	}
}

// FallbackMatcher asks a text-generation service to pick an account for each
// transaction it is given.
type FallbackMatcher struct {
	client      Client
	chart       *model.ChartOfAccounts
	logger      *slog.Logger
	progress    ProgressFunc
	cache       *replyCache
	limiter     *rateLimiter
	summary     string
	retry       common.RetryOptions
	callTimeout time.Duration
	concurrency int
	leafOnly    bool
}

// NewFallbackMatcher creates a fallback matcher over chart.
func NewFallbackMatcher(client Client, chart *model.ChartOfAccounts, cfg MatcherConfig) (*FallbackMatcher, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: llm client is required", common.ErrMissingConfig)
	}
	if chart == nil || chart.Len() == 0 {
		return nil, fmt.Errorf("%w: chart of accounts is required", common.ErrMissingConfig)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = DefaultTimeout
	}
	retry := cfg.Retry
	if retry.Logger == nil {
		retry.Logger = logger
	}

	return &FallbackMatcher{
		client:      client,
		chart:       chart,
		logger:      logger,
		progress:    cfg.Progress,
		cache:       newReplyCache(cfg.CacheTTL),
		limiter:     newRateLimiter(cfg.RateLimit),
		summary:     chartSummary(chart, cfg.MaxAccounts),
		retry:       retry,
		callTimeout: callTimeout,
		concurrency: concurrency,
		leafOnly:    cfg.LeafOnly,
	}, nil
}

// Name identifies the matcher in logs.
func (m *FallbackMatcher) Name() string {
	return "llm"
}

// Process matches transactions concurrently, at most Concurrency at a time.
// Failures are isolated per transaction. Cancelling ctx stops scheduling new
// calls; the context error is returned once in-flight calls have finished.
func (m *FallbackMatcher) Process(ctx context.Context, transactions []*model.Transaction) error {
	total := len(transactions)
	var done, applied atomic.Int64

	p := pool.New().WithMaxGoroutines(m.concurrency)
	for _, txn := range transactions {
		if ctx.Err() != nil {
			break
		}
		if txn == nil {
			continue
		}
		p.Go(func() {
			if m.MatchTransaction(ctx, txn) {
				applied.Add(1)
			}
			n := done.Add(1)
			if m.progress != nil {
				m.progress(int(n), total)
			}
		})
	}
	p.Wait()

	m.logger.Info("fallback pass complete",
		"transactions", total,
		"attempted", done.Load(),
		"matched", applied.Load())

	return ctx.Err()
}

// MatchTransaction requests a match for one transaction and applies it when
// its confidence is at least the transaction's current confidence. It reports
// whether a match was added.
func (m *FallbackMatcher) MatchTransaction(ctx context.Context, txn *model.Transaction) bool {
	prompt := buildPrompt(txn, m.summary)

	text, err := m.generate(ctx, prompt)
	if err != nil {
		m.logger.Warn("fallback request failed",
			"transaction_id", txn.ID,
			"description", txn.Description,
			"error", err)
		return false
	}

	reply := ParseReply(text, m.chart, m.leafOnly)
	if !reply.OK() {
		m.logger.Warn("discarding fallback reply",
			"transaction_id", txn.ID,
			"description", txn.Description,
			"reason", reply.Reason)
		return false
	}

	current := txn.Confidence()
	if txn.IsMatched() && reply.Confidence < current {
		m.logger.Debug("fallback match below current match",
			"transaction_id", txn.ID,
			"account", reply.Account.Number,
			"confidence", reply.Confidence,
			"current_confidence", current)
		return false
	}

	txn.AddMatch(reply.Account, reply.Confidence, model.SourceLLM)
	m.logger.Debug("fallback match added",
		"transaction_id", txn.ID,
		"account", reply.Account.Number,
		"confidence", reply.Confidence,
		"reasoning", reply.Reasoning)
	return true
}

// generate returns the reply for prompt from the cache or the client, with
// rate limiting, a per-attempt timeout and retries.
func (m *FallbackMatcher) generate(ctx context.Context, prompt string) (string, error) {
	key := cacheKey(prompt)
	if reply, ok := m.cache.get(key); ok {
		return reply, nil
	}

	var reply string
	err := common.WithRetry(ctx, func() error {
		if err := m.limiter.wait(ctx); err != nil {
			return common.Permanent(err)
		}

		callCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
		defer cancel()

		text, err := m.client.Generate(callCtx, prompt)
		if err != nil {
			return err
		}
		reply = text
		return nil
	}, m.retry)
	if err != nil {
		return "", err
	}

	m.cache.set(key, reply)
	return reply, nil
}
