package smoketest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/tes/internal/domain/registration"
	"github.com/okian/tes/pkg/logger"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// getJSON fetches url into v and fails on a non-200 status.
func (c *HTTPClient) getJSON(ctx context.Context, url string, v any) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// submitDrafts posts drafts concurrently and returns the outcome per index.
func submitDrafts(ctx context.Context, config *Config, drafts []Draft, stats *Stats) []string {
	log := logger.Get()
	log.Info(ctx, "submitting registrations",
		logger.Int("count", len(drafts)),
		logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/api/registrations"
	outcomes := make([]string, len(drafts))

	// Duplicates must follow their original, so drafts that reuse an
	// email are sent after the first wave completes.
	var first, second []int
	for i, d := range drafts {
		if d.Expect == OutcomeDuplicate {
			second = append(second, i)
		} else {
			first = append(first, i)
		}
	}

	for _, wave := range [][]int{first, second} {
		var g errgroup.Group
		g.SetLimit(max(1, config.Workers))
		for _, i := range wave {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				outcomes[i] = submitSingle(ctx, client, url, drafts[i])
				if config.Verbose {
					log.Debug(ctx, "submitted", logger.Int("index", i), logger.String("outcome", outcomes[i]))
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, o := range outcomes {
		if o != "" {
			stats.add(o)
		}
	}
	log.Info(ctx, "registration submission completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("invalid", stats.Invalid),
		logger.Int("throttled", stats.Throttled),
		logger.Int("mismatched", stats.Mismatched),
		logger.Int("failed", stats.Failed))
	return outcomes
}

// submitSingle posts one draft and classifies the response.
func submitSingle(ctx context.Context, client *HTTPClient, url string, d Draft) string {
	resp, err := client.Post(ctx, url, d.Draft)
	if err != nil {
		return OutcomeFailed
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusAccepted:
		return OutcomeAccepted
	case http.StatusOK:
		return OutcomeDuplicate
	case http.StatusUnprocessableEntity:
		var body struct {
			Errors registration.Errors `json:"errors"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return OutcomeFailed
		}
		if !maps.Equal(body.Errors, registration.Validate(d.Draft)) {
			return OutcomeMismatch
		}
		return OutcomeInvalid
	case http.StatusTooManyRequests:
		return OutcomeThrottled
	default:
		return OutcomeFailed
	}
}

// subscribe posts one newsletter or early-access address.
func subscribe(ctx context.Context, client *HTTPClient, baseURL, email, source string) (int, error) {
	resp, err := client.Post(ctx, baseURL+"/api/subscriptions", map[string]string{"email": email, "source": source})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
