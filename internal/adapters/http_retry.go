package adapters

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"extension-mirror/internal/shared"
)

const defaultHTTPRetries = 5
const defaultHTTPRetryDelay = 200 * time.Millisecond
const defaultHTTPTimeout = 60 * time.Second
const maxHTTPRetryDelay = 2 * time.Second

// HTTPOptions tunes the retrying client shared by the marketplace and
// upstream adapters. Retries counts the retries after the first attempt.
type HTTPOptions struct {
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	UserAgent  string
}

func NewHTTPOptions(timeoutSec int, retries int, retryDelayMs int) HTTPOptions {
	return HTTPOptions{
		Timeout:    normalizeHTTPTimeout(timeoutSec),
		Retries:    normalizeHTTPRetries(retries),
		RetryDelay: normalizeHTTPRetryDelay(retryDelayMs),
		UserAgent:  "extension-mirror",
	}
}

type httpResponse struct {
	Status int
	Header http.Header
	Body   []byte
	URL    string
}

func (r httpResponse) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

func (r httpResponse) statusError(msg string) error {
	code := errbuilder.CodeInternal
	switch {
	case r.Status == http.StatusNotFound:
		code = errbuilder.CodeNotFound
	case r.Status == http.StatusUnauthorized || r.Status == http.StatusForbidden:
		code = errbuilder.CodePermissionDenied
	case r.Status == http.StatusTooManyRequests || r.Status >= http.StatusInternalServerError:
		code = errbuilder.CodeUnavailable
	}
	return errbuilder.New().
		WithCode(code).
		WithMsg(msg).
		WithCause(shared.HTTPStatusErrorWithBody(r.Status, r.URL, strings.TrimSpace(string(r.Body))))
}

// retryingClient retries transport errors, 5xx and 429 with exponential
// backoff and jitter. Other statuses are returned to the caller as is.
type retryingClient struct {
	client  *http.Client
	options HTTPOptions
	name    string
}

func newRetryingClient(name string, options HTTPOptions) retryingClient {
	if options.Retries <= 0 {
		options.Retries = defaultHTTPRetries
	}
	if options.RetryDelay <= 0 {
		options.RetryDelay = defaultHTTPRetryDelay
	}
	if options.Timeout <= 0 {
		options.Timeout = defaultHTTPTimeout
	}
	return retryingClient{
		client:  &http.Client{Timeout: options.Timeout},
		options: options,
		name:    name,
	}
}

// do calls build for every attempt so request bodies can be replayed. A
// request is tried once plus up to Retries more times.
func (c retryingClient) do(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (httpResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= c.options.Retries; attempt++ {
		if ctx.Err() != nil {
			return httpResponse{}, ctx.Err()
		}
		response, retry, err := c.once(ctx, build)
		if err == nil && !retry {
			return response, nil
		}
		if err == nil {
			err = response.statusError(fmt.Sprintf("%s request failed", c.name))
		}
		lastErr = err
		if attempt == c.options.Retries {
			break
		}
		delay := c.retryDelay(attempt)
		log.Debug().
			Err(err).
			Str("client", c.name).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("retrying request")
		select {
		case <-ctx.Done():
			return httpResponse{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	if lastErr == nil {
		lastErr = errbuilder.New().
			WithCode(errbuilder.CodeUnavailable).
			WithMsg(fmt.Sprintf("%s request failed", c.name))
	}
	return httpResponse{}, lastErr
}

func (c retryingClient) once(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (httpResponse, bool, error) {
	req, err := build(ctx)
	if err != nil {
		return httpResponse{}, false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to create %s request", c.name)).
			WithCause(err)
	}
	if req.Header.Get("User-Agent") == "" && c.options.UserAgent != "" {
		req.Header.Set("User-Agent", c.options.UserAgent)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return httpResponse{}, false, ctx.Err()
		}
		return httpResponse{}, true, errbuilder.New().
			WithCode(errbuilder.CodeUnavailable).
			WithMsg(fmt.Sprintf("%s request failed", c.name)).
			WithCause(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return httpResponse{}, true, errbuilder.New().
			WithCode(errbuilder.CodeUnavailable).
			WithMsg(fmt.Sprintf("failed to read %s response", c.name)).
			WithCause(err)
	}
	response := httpResponse{Status: resp.StatusCode, Header: resp.Header, Body: body, URL: req.URL.String()}
	retry := resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests
	return response, retry, nil
}

func (c retryingClient) retryDelay(attempt int) time.Duration {
	delay := c.options.RetryDelay * time.Duration(1<<attempt)
	if delay > maxHTTPRetryDelay {
		delay = maxHTTPRetryDelay
	}
	jitter := time.Duration(time.Now().UnixNano() % int64(delay/2+1))
	return delay + jitter
}

func normalizeHTTPTimeout(value int) time.Duration {
	timeout := time.Duration(value) * time.Second
	if timeout <= 0 {
		return defaultHTTPTimeout
	}
	return timeout
}

func normalizeHTTPRetries(value int) int {
	if value <= 0 {
		return defaultHTTPRetries
	}
	return value
}

func normalizeHTTPRetryDelay(value int) time.Duration {
	delay := time.Duration(value) * time.Millisecond
	if delay <= 0 {
		return defaultHTTPRetryDelay
	}
	return delay
}
