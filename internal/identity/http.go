package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

type resolveRequest struct {
	AuthToken string `json:"authToken"`
}

type resolveResponse struct {
	Username string `json:"username"`
}

// HTTPResolver asks a remote identity service: POST {base}/session/resolve.
// 401, 403 and 404 mean the token is unknown; 5xx and transport errors are retried.
type HTTPResolver struct {
	baseURL      string
	serviceToken string
	http         *fasthttp.Client

	timeout  time.Duration
	retryMax int
}

type Option func(*HTTPResolver)

func WithTimeout(d time.Duration) Option {
	return func(r *HTTPResolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithRetry(max int) Option {
	return func(r *HTTPResolver) { r.retryMax = max }
}

// WithServiceToken sends "Authorization: Bearer <token>" on every call.
func WithServiceToken(tok string) Option {
	return func(r *HTTPResolver) { r.serviceToken = strings.TrimSpace(tok) }
}

func NewHTTPResolver(baseURL string, opts ...Option) *HTTPResolver {
	r := &HTTPResolver{
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:     &fasthttp.Client{ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second, MaxConnsPerHost: 64},
		timeout:  3 * time.Second,
		retryMax: 3,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *HTTPResolver) Resolve(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrUnauthorized
	}
	payload, err := json.Marshal(resolveRequest{AuthToken: token})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(r.baseURL + "/session/resolve")
	req.Header.SetContentType("application/json")
	if r.serviceToken != "" {
		req.Header.Set("Authorization", "Bearer "+r.serviceToken)
	}
	req.SetBody(payload)

	attempts := r.retryMax
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := r.http.DoDeadline(req, resp, r.deadline(ctx)); err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
		} else {
			switch status := resp.StatusCode(); {
			case status == fasthttp.StatusUnauthorized, status == fasthttp.StatusForbidden, status == fasthttp.StatusNotFound:
				return "", ErrUnauthorized
			case status >= 200 && status < 300:
				var out resolveResponse
				if err := json.Unmarshal(resp.Body(), &out); err != nil {
					return "", fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
				}
				if strings.TrimSpace(out.Username) == "" {
					return "", ErrUnauthorized
				}
				return strings.TrimSpace(out.Username), nil
			default:
				lastErr = fmt.Errorf("%w: status=%d body=%s", ErrUnavailable, status, truncate(string(resp.Body()), 256))
				if !shouldRetryStatus(status) {
					return "", lastErr
				}
			}
		}
		if attempt == attempts {
			break
		}
		if err := sleepWithContext(ctx, backoffDuration(attempt)); err != nil {
			return "", lastErr
		}
	}
	return "", lastErr
}

func (r *HTTPResolver) deadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(r.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 50 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
