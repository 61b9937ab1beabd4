// Package grobid is a client for the GROBID full-text extraction service, which turns
// scholarly PDFs into TEI XML.
package grobid

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kubun/internal/config"
	"github.com/hyperjump/kubun/internal/tei"
)

const (
	fulltextPath = "/api/processFulltextDocument"
	alivePath    = "/api/isalive"
	maxBackoff   = 30 * time.Second
)

var (
	// ErrOverloaded is returned when GROBID answers 503; the request may succeed later.
	ErrOverloaded = errors.New("grobid overloaded")
	// ErrInvalidResponse is returned when GROBID answers 200 with something that is not TEI.
	ErrInvalidResponse = errors.New("grobid returned empty or invalid TEI")
)

// StatusError is a non-retryable HTTP error from GROBID.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("grobid HTTP %d: %s", e.Code, e.Body)
}

// Client sends PDFs to GROBID. Safe for concurrent use; at most Concurrency requests
// are in flight at once.
type Client struct {
	baseURL           string
	http              *http.Client
	maxRetries        int
	consolidateHeader bool
	sem               chan struct{}
	backoff           func(attempt int) time.Duration
	logger            *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger for the client.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithBackoff replaces the retry delay function.
func WithBackoff(f func(attempt int) time.Duration) Option {
	return func(c *Client) {
		c.backoff = f
	}
}

// New creates a client from cfg.
func New(cfg *config.GrobidConfig, opts ...Option) *Client {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	c := &Client{
		baseURL:           strings.TrimRight(cfg.URL, "/"),
		http:              &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		maxRetries:        cfg.MaxRetries,
		consolidateHeader: cfg.ConsolidateHeader,
		sem:               make(chan struct{}, concurrency),
		backoff:           Backoff,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backoff returns the delay before retry attempt n (0-indexed): exponential from one
// second, capped at 30s, plus up to 50% jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(min(attempt, 5))) * time.Second
	if base > maxBackoff {
		base = maxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(base) / 2))
	return base + jitter
}

// IsRetryable reports whether err is worth retrying: overload or a transport failure.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrOverloaded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// ConvertPDF uploads the PDF read from r and returns the TEI XML. Overload and
// connection failures are retried up to MaxRetries times.
func (c *Client) ConvertPDF(ctx context.Context, filename string, r io.Reader) ([]byte, error) {
	pdf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	for attempt := 0; ; attempt++ {
		out, err := c.convertOnce(ctx, filename, pdf)
		if err == nil {
			return out, nil
		}
		if !IsRetryable(err) || attempt >= c.maxRetries || ctx.Err() != nil {
			return nil, err
		}
		delay := c.backoff(attempt)
		c.logger.Warn("grobid request failed, retrying",
			zap.String("file", filename),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (c *Client) convertOnce(ctx context.Context, filename string, pdf []byte) ([]byte, error) {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-c.sem }()

	body, contentType, err := multipartBody(filename, pdf, c.consolidateHeader)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+fulltextPath, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/xml")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("grobid request: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read grobid response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, ErrOverloaded
	case resp.StatusCode != http.StatusOK:
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	case !tei.IsTEI(data):
		return nil, ErrInvalidResponse
	}
	c.logger.Debug("grobid conversion done",
		zap.String("file", filename),
		zap.Int("bytes", len(data)),
		zap.Duration("took", time.Since(start)))
	return data, nil
}

func multipartBody(filename string, pdf []byte, consolidate bool) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("input", filename)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(pdf); err != nil {
		return nil, "", fmt.Errorf("write form file: %w", err)
	}
	if consolidate {
		if err := w.WriteField("consolidateHeader", "1"); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// Alive reports whether the GROBID service answers its liveness probe.
func (c *Client) Alive(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+alivePath, nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64))
	return resp.StatusCode == http.StatusOK && strings.TrimSpace(string(data)) == "true"
}
