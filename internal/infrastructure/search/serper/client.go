package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/avelasco/answer-engine/internal/core/domain"
	"github.com/avelasco/answer-engine/internal/infrastructure/resilience"
)

const defaultResultCount = 10

// Client queries the serper.dev search API. A shared rate limiter keeps
// concurrent query cycles inside the plan's request budget.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
	numResults int
}

func New(apiKey, baseURL string, ratePerSecond int, executor *resilience.Executor) *Client {
	if baseURL == "" {
		baseURL = "https://google.serper.dev/search"
	}
	if ratePerSecond <= 0 {
		ratePerSecond = 5
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(ratePerSecond), ratePerSecond),
		executor:   executor,
		numResults: defaultResultCount,
	}
}

func (c *Client) Search(ctx context.Context, query string) ([]domain.WebResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("serper: api key not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("serper: rate limit wait: %w", err)
	}

	var results []domain.WebResult
	err := c.executor.Execute(ctx, "serper_search", func(ctx context.Context) error {
		out, err := c.doSearch(ctx, query)
		if err != nil {
			return err
		}
		results = out
		return nil
	}, classifyHTTPError)
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Client) doSearch(ctx context.Context, query string) ([]domain.WebResult, error) {
	body, err := json.Marshal(map[string]any{
		"q":   query,
		"num": c.numResults,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serper search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(raw))}
	}

	var searchResp struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.WebResult, 0, len(searchResp.Organic))
	for _, r := range searchResp.Organic {
		out = append(out, domain.WebResult{
			Link:    r.Link,
			Title:   r.Title,
			Snippet: r.Snippet,
		})
	}
	return out, nil
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	if e.body != "" {
		return fmt.Sprintf("serper search status %d: %s", e.status, e.body)
	}
	return fmt.Sprintf("serper search status %d", e.status)
}

func classifyHTTPError(err error) resilience.ErrorClassification {
	var statusErr *statusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.status == http.StatusTooManyRequests || statusErr.status >= 500:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		default:
			return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
		}
	}
	return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
}
