// Package inference wraps the external classification/extraction service as an
// opaque HTTP dependency. Calls are idempotent per document (extraction per
// document+type), so a retry after a timeout cannot double-apply a result.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/paperledger/paperledger/internal/observability"
	"github.com/paperledger/paperledger/internal/shared"
)

// Client is the gateway used by the classifier and extractor services.
type Client interface {
	Classify(ctx context.Context, req ClassifyRequest) (ClassifyResult, error)
	Extract(ctx context.Context, req ExtractRequest) (ExtractResult, error)
}

// Options configure the HTTP client behaviour.
type Options struct {
	BaseURL       string
	Token         string
	Timeout       time.Duration
	RetryAttempts int
	RetryBackoff  time.Duration
}

type httpClient struct {
	opts    Options
	client  *http.Client
	logger  *slog.Logger
	metrics *observability.Metrics
	sleep   func(context.Context, time.Duration) error
}

// NewClient builds the HTTP gateway client.
func NewClient(opts Options, logger *slog.Logger, metrics *observability.Metrics) Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 250 * time.Millisecond
	}
	return &httpClient{
		opts:    opts,
		client:  &http.Client{Timeout: opts.Timeout},
		logger:  logger,
		metrics: metrics,
		sleep:   sleepCtx,
	}
}

func (c *httpClient) Classify(ctx context.Context, req ClassifyRequest) (ClassifyResult, error) {
	var result ClassifyResult
	key := "classify:" + req.DocumentID
	err := c.call(ctx, "classify", "/v1/classify", key, req, &result)
	return result, err
}

func (c *httpClient) Extract(ctx context.Context, req ExtractRequest) (ExtractResult, error) {
	var result ExtractResult
	key := fmt.Sprintf("extract:%s:%s", req.DocumentID, req.DocumentType)
	err := c.call(ctx, "extract", "/v1/extract", key, req, &result)
	return result, err
}

// call performs the request with exponential backoff. Transient failures
// (network errors, 5xx, 429) are retried up to the configured attempt count;
// other 4xx responses fail immediately.
func (c *httpClient) call(ctx context.Context, operation, path, idempotencyKey string, payload, target any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("inference: marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			backoff := c.opts.RetryBackoff << (attempt - 1)
			if err := c.sleep(ctx, backoff); err != nil {
				return fmt.Errorf("inference: %w: %w", shared.ErrExternalService, err)
			}
		}
		retry, err := c.attempt(ctx, path, idempotencyKey, body, target)
		if err == nil {
			c.metrics.ObserveInference(operation, "ok")
			return nil
		}
		lastErr = err
		if !retry {
			c.metrics.ObserveInference(operation, "rejected")
			return err
		}
		c.logger.Warn("inference call failed",
			slog.String("operation", operation),
			slog.Int("attempt", attempt+1),
			slog.Any("error", err))
	}
	c.metrics.ObserveInference(operation, "exhausted")
	return fmt.Errorf("inference: %w after %d attempts: %w", shared.ErrExternalService, c.opts.RetryAttempts, lastErr)
}

func (c *httpClient) attempt(ctx context.Context, path, idempotencyKey string, body []byte, target any) (retry bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("inference: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return true, fmt.Errorf("inference: send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, fmt.Errorf("inference: read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return true, fmt.Errorf("inference: service returned %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return false, fmt.Errorf("inference: service rejected request: %d %s", resp.StatusCode, string(raw))
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return false, fmt.Errorf("inference: parse response: %w", err)
	}
	return false, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
