package aiclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	xhttp "GapScout/pkg/http"
)

// HTTPServiceBase centralizes client construction and JSON POST handling
// for model endpoints.
type HTTPServiceBase struct {
	baseURL string
	headers map[string]string
	client  *xhttp.Client
}

func NewHTTPServiceBase(baseURL string, timeout time.Duration, headers map[string]string, opts ...xhttp.ClientOption) *HTTPServiceBase {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	h := map[string]string{"Content-Type": "application/json"}
	for k, v := range headers {
		h[k] = v
	}
	opts = append([]xhttp.ClientOption{xhttp.WithTimeout(timeout)}, opts...)
	return &HTTPServiceBase{
		baseURL: baseURL,
		headers: h,
		client:  xhttp.NewClient(opts...),
	}
}

// PostJSON posts payload to path under baseURL and decodes JSON into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("ai http client not initialized")
	}
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     b.baseURL + path,
		Headers: b.headers,
		Body:    payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

// PostJSONWithRetry retries transient failures up to attempts times.
// Client errors other than 429 are returned immediately.
func (b *HTTPServiceBase) PostJSONWithRetry(ctx context.Context, path string, payload interface{}, dest interface{}, attempts int) error {
	if attempts <= 1 {
		return b.PostJSON(ctx, path, payload, dest)
	}
	var err error
	for i := 1; i <= attempts; i++ {
		err = b.PostJSON(ctx, path, payload, dest)
		if err == nil {
			return nil
		}
		code := xhttp.StatusCode(err)
		if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
			return err
		}
		if i == attempts {
			break
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
