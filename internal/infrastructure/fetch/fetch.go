// Package fetch holds the bounded HTTP GET shared by the scraping adapters.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"ContentEnricher/internal/domain"
)

// BrowserUserAgent is sent to sites that refuse obvious bots.
const BrowserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// ErrTooLarge is returned when a body exceeds the configured limit.
var ErrTooLarge = errors.New("response body exceeds limit")

// Options tune a single request.
type Options struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
	Accept    string
}

// Response is a fully read body plus the headers callers care about.
type Response struct {
	Body        []byte
	ContentType string
	FinalURL    string
}

// Get performs a GET and reads at most opts.MaxBytes. Timeouts and non-2xx
// statuses come back as domain transient errors.
func Get(ctx context.Context, client *http.Client, rawURL string, opts Options) (Response, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = BrowserUserAgent
	}
	req.Header.Set("User-Agent", ua)
	if opts.Accept != "" {
		req.Header.Set("Accept", opts.Accept)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Response{}, domain.Transient("fetch "+rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Response{}, domain.Transient("fetch "+rawURL, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	reader := io.Reader(resp.Body)
	if opts.MaxBytes > 0 {
		reader = io.LimitReader(resp.Body, opts.MaxBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return Response{}, domain.Transient("read "+rawURL, err)
	}
	if opts.MaxBytes > 0 && int64(len(body)) > opts.MaxBytes {
		return Response{}, fmt.Errorf("%s: %w", rawURL, ErrTooLarge)
	}

	return Response{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// Head reports whether a HEAD request answers with 2xx.
func Head(ctx context.Context, client *http.Client, rawURL string, timeout time.Duration) bool {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", BrowserUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}
