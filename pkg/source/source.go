// Package source loads document bytes from files, file:// and http(s) URLs,
// or standard input, and decodes declared text encodings into UTF-8.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/usestring/recordflat/pkg/contenttype"
	"github.com/usestring/recordflat/pkg/pathengine"
)

// DefaultMaxBytes caps how much a single source may hold.
const DefaultMaxBytes int64 = 256 << 20

// Stdin is the locator that reads standard input.
const Stdin = "-"

// Loader fetches source documents.
type Loader struct {
	httpClient *http.Client
	maxBytes   int64
	stdin      io.Reader
	userAgent  string
}

// Option is a functional option for configuring the Loader.
type Option func(*Loader)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(l *Loader) {
		l.httpClient = httpClient
	}
}

// WithMaxBytes limits the size of a loaded source. n <= 0 keeps the default.
func WithMaxBytes(n int64) Option {
	return func(l *Loader) {
		if n > 0 {
			l.maxBytes = n
		}
	}
}

// WithStdin replaces os.Stdin for the "-" locator.
func WithStdin(r io.Reader) Option {
	return func(l *Loader) {
		l.stdin = r
	}
}

// WithUserAgent sets the User-Agent header sent with HTTP requests.
func WithUserAgent(ua string) Option {
	return func(l *Loader) {
		l.userAgent = ua
	}
}

// New creates a new Loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		httpClient: http.DefaultClient,
		maxBytes:   DefaultMaxBytes,
		stdin:      os.Stdin,
		userAgent:  "recordflat",
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Source is a loaded document.
type Source struct {
	Locator string
	Data    []byte

	// ContentType is the response media type for HTTP sources.
	ContentType string

	// Format is guessed from the content type or the locator's extension;
	// Unknown when neither says.
	Format contenttype.Format
}

// StatusError is returned for HTTP responses with a 4xx or 5xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Load reads the document at locator. Every failure is a
// *pathengine.SourceError.
func (l *Loader) Load(ctx context.Context, locator string) (*Source, error) {
	src, err := l.load(ctx, locator)
	if err != nil {
		return nil, &pathengine.SourceError{Locator: locator, Err: err}
	}
	return src, nil
}

func (l *Loader) load(ctx context.Context, locator string) (*Source, error) {
	if strings.TrimSpace(locator) == "" {
		return nil, errors.New("empty locator")
	}
	if locator == Stdin {
		data, err := l.readAll(l.stdin)
		if err != nil {
			return nil, err
		}
		return &Source{Locator: locator, Data: data}, nil
	}

	u, err := url.Parse(locator)
	if err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return l.fetch(ctx, u)
		case "file":
			return l.readFile(locator, u.Path)
		}
	}
	return l.readFile(locator, locator)
}

func (l *Loader) readFile(locator, path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := l.readAll(f)
	if err != nil {
		return nil, err
	}
	return &Source{
		Locator: locator,
		Data:    data,
		Format:  contenttype.FromPath(path),
	}, nil
}

func (l *Loader) fetch(ctx context.Context, u *url.URL) (*Source, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		slog.Debug("HTTP request failed",
			slog.String("url", u.Redacted()),
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		slog.Debug("HTTP request returned error",
			slog.String("url", u.Redacted()),
			slog.Int("status", resp.StatusCode),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	data, err := l.readAll(resp.Body)
	if err != nil {
		return nil, err
	}

	ct := resp.Header.Get("Content-Type")
	format := contenttype.Classify(ct)
	if format == contenttype.Unknown {
		format = contenttype.FromPath(u.Path)
	}

	slog.Debug("HTTP request completed",
		slog.String("url", u.Redacted()),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(data)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return &Source{
		Locator:     u.String(),
		Data:        data,
		ContentType: ct,
		Format:      format,
	}, nil
}

// readAll reads r up to the size limit.
func (l *Loader) readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("larger than %d bytes", l.maxBytes)
	}
	return data, nil
}
