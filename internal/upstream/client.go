package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
	// maxBodySize caps how much of an upstream response is buffered.
	maxBodySize = 16 << 20
	// maxErrorBody caps how much of a failed response is kept for logging.
	maxErrorBody = 4 << 10
)

// Response is a successful upstream reply, relayed unchanged.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Status)
}

// Client issues credentialed GET requests against one upstream base URL.
// It never retries; each call maps to exactly one outbound request.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a Client for baseURL that injects apiKey as the api_key
// query parameter; an empty apiKey sends none. A zero timeout selects the
// default.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

// BaseURL returns the configured base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL builds the full request URL for path, with the credential placed first
// and params following in their insertion order.
func (c *Client) URL(path string, params *Params) string {
	q := (&Params{}).AddIfPresent("api_key", c.apiKey)
	if params != nil {
		q.pairs = append(q.pairs, params.pairs...)
	}
	if q.Len() == 0 {
		return c.baseURL + path
	}
	return c.baseURL + path + "?" + q.Encode()
}

// Get performs one GET request and returns the upstream body on 2xx.
func (c *Client) Get(ctx context.Context, path string, params *Params) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(path, params), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", path, scrubKey(err, c.apiKey))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Status: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", path, err)
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("%s response exceeds %d bytes", path, maxBodySize)
	}

	return &Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// Outcome classifies the result of a call for metrics and logs.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var se *StatusError
	switch {
	case errors.As(err, &se):
		return fmt.Sprintf("status_%dxx", se.Status/100)
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

// scrubKey keeps the credential out of transport errors, which embed the
// request URL.
func scrubKey(err error, apiKey string) error {
	if apiKey == "" || !strings.Contains(err.Error(), apiKey) {
		return err
	}
	return &scrubbedError{msg: strings.ReplaceAll(err.Error(), apiKey, "REDACTED"), err: err}
}

type scrubbedError struct {
	msg string
	err error
}

func (e *scrubbedError) Error() string { return e.msg }
func (e *scrubbedError) Unwrap() error { return e.err }
