// Package extract runs extraction requests end to end: load the source, parse
// or reuse the document, flatten it, and record what happened.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/usestring/recordflat/internal/cache"
	"github.com/usestring/recordflat/internal/mapping"
	"github.com/usestring/recordflat/internal/metrics"
	"github.com/usestring/recordflat/pkg/contenttype"
	"github.com/usestring/recordflat/pkg/flatreader"
	"github.com/usestring/recordflat/pkg/flatten"
	"github.com/usestring/recordflat/pkg/pathengine"
	"github.com/usestring/recordflat/pkg/source"
	"github.com/usestring/recordflat/pkg/table"
)

// InlineLocator labels requests whose document is passed as Body.
const InlineLocator = "inline"

// ErrTimeout is returned when an extraction outlives its deadline.
var ErrTimeout = errors.New("extraction timed out")

// Request describes one extraction.
type Request struct {
	Name string

	// Locator is where to load the document from; ignored when Body is set.
	Locator string
	Body    []byte

	// Format of the document. Unknown means guess from the source.
	Format contenttype.Format

	Iterator   string
	References []string
	Mode       flatten.Mode
	Encoding   string
}

// RequestFromRule converts a mapping rule, resolving its source against
// baseDir.
func RequestFromRule(r mapping.Rule, baseDir string) Request {
	return Request{
		Name:       r.Name,
		Locator:    r.Locator(baseDir),
		Format:     r.Format(),
		Iterator:   r.Iterator,
		References: r.References,
		Mode:       r.ParsedMode(),
		Encoding:   r.Encoding,
	}
}

// Result is a finished extraction.
type Result struct {
	RunID    string
	Name     string
	Locator  string
	Format   contenttype.Format
	Mode     flatten.Mode // resolved; Default for flat formats
	Table    *table.Table
	Duration time.Duration
	Cached   bool // the parsed document came from the cache
}

// Outcome pairs a request with its result or error.
type Outcome struct {
	Request Request
	Result  *Result
	Err     error
}

// Service runs extractions.
type Service struct {
	loader  *source.Loader
	engines *pathengine.Registry
	docs    *cache.DocumentCache
	metrics *metrics.Metrics
	timeout time.Duration
	workers int
	flights singleflight.Group
}

// Option is a functional option for configuring the Service.
type Option func(*Service)

// WithDocumentCache reuses parsed local documents across calls.
func WithDocumentCache(c *cache.DocumentCache) Option {
	return func(s *Service) {
		s.docs = c
	}
}

// WithMetrics records every extraction in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTimeout bounds each extraction. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}

// WithWorkers sets how many extractions RunAll runs at once.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// New creates a Service.
func New(loader *source.Loader, engines *pathengine.Registry, opts ...Option) *Service {
	s := &Service{
		loader:  loader,
		engines: engines,
		workers: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engines returns the engine registry the service extracts with.
func (s *Service) Engines() *pathengine.Registry {
	return s.engines
}

// Run performs one extraction. The work runs in its own goroutine; when the
// deadline passes first, Run returns ErrTimeout and the late result is
// discarded.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	runID := uuid.NewString()
	start := time.Now()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if s.metrics != nil {
		s.metrics.ExtractionsInFlight.Inc()
		defer s.metrics.ExtractionsInFlight.Dec()
	}

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := s.run(ctx, req)
		done <- outcome{res: res, err: err}
	}()

	var res *Result
	var err error
	select {
	case o := <-done:
		res, err = o.res, o.err
	case <-ctx.Done():
		err = ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %s: %w", ErrTimeout, time.Since(start).Round(time.Millisecond), err)
	}

	duration := time.Since(start)
	format := labelOf(req.Format)
	if res != nil {
		format = labelOf(res.Format)
	}

	attrs := []any{
		slog.String("run_id", runID),
		slog.String("name", req.Name),
		slog.String("locator", locatorOf(req)),
		slog.String("format", format),
		slog.Int64("duration_ms", duration.Milliseconds()),
	}

	if err != nil {
		status := metrics.StatusError
		if errors.Is(err, ErrTimeout) {
			status = metrics.StatusTimeout
		}
		if s.metrics != nil {
			s.metrics.RecordExtraction(format, status, 0, duration)
		}
		slog.Warn("extraction failed", append(attrs, slog.String("error", err.Error()))...)
		return nil, err
	}

	res.RunID = runID
	res.Duration = duration
	if s.metrics != nil {
		s.metrics.RecordExtraction(format, metrics.StatusSuccess, res.Table.Len(), duration)
	}
	slog.Info("extraction completed", append(attrs,
		slog.Int("rows", res.Table.Len()),
		slog.Bool("cached", res.Cached),
	)...)
	return res, nil
}

// RunAll runs independent extractions in parallel, at most WithWorkers at a
// time. A failing request does not stop the others; outcomes keep the order
// of reqs. The error is non-nil only when ctx ends before every request
// started.
func (s *Service) RunAll(ctx context.Context, reqs []Request) ([]Outcome, error) {
	out := make([]Outcome, len(reqs))
	for i, req := range reqs {
		out[i].Request = req
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i := range reqs {
		if err := gctx.Err(); err != nil {
			for j := i; j < len(reqs); j++ {
				out[j].Err = err
			}
			_ = g.Wait()
			return out, err
		}
		g.Go(func() error {
			res, err := s.Run(gctx, reqs[i])
			out[i].Result = res
			out[i].Err = err
			return nil
		})
	}

	_ = g.Wait()
	return out, nil
}

// run does the work of Run without timing or reporting.
func (s *Service) run(ctx context.Context, req Request) (*Result, error) {
	if len(req.Body) == 0 && strings.TrimSpace(req.Locator) == "" {
		return nil, &pathengine.SourceError{Err: errors.New("no source given")}
	}

	if key := s.cacheKey(req); key != "" {
		if s.docs != nil {
			doc, ok := s.docs.Get(key)
			if s.metrics != nil {
				s.metrics.RecordCacheLookup(ok)
			}
			if ok {
				return s.flattenDocument(req, doc, true)
			}
		}

		// Concurrent requests for the same file load and parse it once.
		v, err, _ := s.flights.Do(key, func() (any, error) {
			data, format, err := s.load(ctx, req)
			if err != nil {
				return nil, err
			}
			return s.parse(req, format, data)
		})
		if err != nil {
			return nil, err
		}
		doc := v.(*pathengine.Document)
		if s.docs != nil {
			s.docs.Put(key, doc)
		}
		return s.flattenDocument(req, doc, false)
	}

	data, format, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}

	if format.Flat() {
		t, err := flatreader.ReadBytes(data, format, req.References)
		if err != nil {
			return nil, withLocator(err, locatorOf(req))
		}
		return &Result{Name: req.Name, Locator: locatorOf(req), Format: format, Table: t}, nil
	}

	doc, err := s.parse(req, format, data)
	if err != nil {
		return nil, err
	}
	return s.flattenDocument(req, doc, false)
}

// load fetches the document and decodes it into UTF-8.
func (s *Service) load(ctx context.Context, req Request) ([]byte, contenttype.Format, error) {
	data, format, contentType, err := s.fetch(ctx, req)
	if err != nil {
		return nil, format, err
	}

	encoding := req.Encoding
	if encoding == "" && format != contenttype.XML {
		// XML parsers honour the prolog's encoding themselves.
		encoding = contenttype.Charset(contentType)
	}
	data, err = source.Decode(data, encoding)
	if err != nil {
		return nil, format, withLocator(err, locatorOf(req))
	}
	return data, format, nil
}

func (s *Service) parse(req Request, format contenttype.Format, data []byte) (*pathengine.Document, error) {
	eng, err := s.engines.Get(format)
	if err != nil {
		return nil, err
	}
	doc, err := eng.Parse(data)
	if err != nil {
		return nil, withLocator(err, locatorOf(req))
	}
	return doc, nil
}

func (s *Service) flattenDocument(req Request, doc *pathengine.Document, cached bool) (*Result, error) {
	eng, err := s.engines.Get(doc.Format())
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Iterator) == "" {
		return nil, &pathengine.ExprError{Kind: pathengine.ErrInvalidPath, Err: errors.New("iterator is required")}
	}

	mode := req.Mode.Resolve(doc.Format())
	t, err := flatten.Extract(eng, doc, req.Iterator, req.References, mode)
	if err != nil {
		return nil, err
	}
	return &Result{
		Name:    req.Name,
		Locator: locatorOf(req),
		Format:  doc.Format(),
		Mode:    mode,
		Table:   t,
		Cached:  cached,
	}, nil
}

// fetch returns the document bytes and the resolved format.
func (s *Service) fetch(ctx context.Context, req Request) ([]byte, contenttype.Format, string, error) {
	var data []byte
	var guessed contenttype.Format
	var contentType string

	if len(req.Body) > 0 {
		data = req.Body
	} else {
		src, err := s.loader.Load(ctx, req.Locator)
		if err != nil {
			return nil, contenttype.Unknown, "", err
		}
		data, guessed, contentType = src.Data, src.Format, src.ContentType
	}

	format := req.Format
	if format == contenttype.Unknown {
		format = guessed
	}
	if format == contenttype.Unknown {
		format = contenttype.Sniff(data)
	}
	if s.metrics != nil {
		s.metrics.RecordSource(labelOf(format), len(data))
	}
	if format == contenttype.Unknown {
		return nil, format, "", fmt.Errorf("%w: cannot tell the format of %s, set it explicitly", pathengine.ErrUnsupportedFormat, locatorOf(req))
	}
	return data, format, contentType, nil
}

// cacheKey identifies a local file by path, size and modification time so an
// edited file is parsed again. Inline bodies, stdin and remote sources are
// not cached.
func (s *Service) cacheKey(req Request) string {
	if len(req.Body) > 0 || req.Locator == source.Stdin || req.Format.Flat() {
		return ""
	}

	path := req.Locator
	if u, err := url.Parse(req.Locator); err == nil && len(u.Scheme) > 1 {
		if !strings.EqualFold(u.Scheme, "file") {
			return ""
		}
		path = u.Path
	}

	format := req.Format
	if format == contenttype.Unknown {
		format = contenttype.FromPath(path)
	}
	if !format.Hierarchical() {
		return ""
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ""
	}
	stamp := strconv.FormatInt(info.Size(), 10) + "@" + strconv.FormatInt(info.ModTime().UnixNano(), 10)
	return cache.Key(path+"#"+stamp, format, req.Encoding)
}

func locatorOf(req Request) string {
	if len(req.Body) > 0 {
		return InlineLocator
	}
	return req.Locator
}

func labelOf(f contenttype.Format) string {
	if f == contenttype.Unknown {
		return "unknown"
	}
	return string(f)
}

// withLocator fills in the locator of a SourceError that came from memory.
func withLocator(err error, locator string) error {
	var srcErr *pathengine.SourceError
	if errors.As(err, &srcErr) && srcErr.Locator == "" {
		return &pathengine.SourceError{Locator: locator, Err: srcErr.Err}
	}
	return err
}
