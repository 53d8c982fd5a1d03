package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/txmatch/internal/common"
	"github.com/hashicorp/go-retryablehttp"
)

// maxResponseBytes caps how much of a provider response is read.
const maxResponseBytes = 1 << 20

// newHTTPClient returns a pooled client that retries dropped connections.
// Status codes are left to the caller so rate limits reach common.WithRetry.
func newHTTPClient(timeout time.Duration, logger *slog.Logger) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = logger
	rc.CheckRetry = retryConnectionErrors
	rc.HTTPClient.Timeout = timeout
	rc.HTTPClient.Transport = &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return rc.StandardClient()
}

func retryConnectionErrors(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err == nil {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// postJSON sends payload to url and decodes a 200 response into out. A 429
// maps to common.ErrRateLimit; a 5xx or a connection failure maps to
// common.ErrProviderUnavailable. Anything else is marked permanent.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return common.Permanent(fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return common.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %w", common.ErrProviderUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %w", common.ErrProviderUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", common.ErrRateLimit, snippet(data))
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w (status %d): %s", common.ErrProviderUnavailable, resp.StatusCode, snippet(data))
	case resp.StatusCode != http.StatusOK:
		return common.Permanent(fmt.Errorf("API error (status %d): %s", resp.StatusCode, snippet(data)))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return common.Permanent(fmt.Errorf("failed to parse response: %w", err))
	}
	return nil
}

func snippet(data []byte) string {
	const limit = 300
	if len(data) > limit {
		return string(data[:limit]) + "..."
	}
	return string(data)
}
