// Package pathengine evaluates iterator and reference path expressions over
// parsed hierarchical documents.
//
// Every format is served by an Engine with the same contract, so callers that
// flatten records never branch on the document format:
//
//	eng, err := pathengine.For(contenttype.XML)
//	doc, err := eng.Parse(data)
//	recs, err := eng.SelectRecords(doc, "/library/book")
//	v, err := eng.ExtractField(recs[0], "author")
//
// JSON and YAML documents are queried with jq (github.com/itchyny/gojq); a
// JSONPath subset is accepted and translated into jq. XML and HTML documents
// are queried with XPath 1.0 (github.com/antchfx/xpath).
//
// Engines and Documents are safe for concurrent use.
package pathengine

import (
	"fmt"

	"github.com/usestring/recordflat/pkg/contenttype"
)

// Engine evaluates path expressions for one document format.
type Engine interface {
	// Format returns the format this engine parses.
	Format() contenttype.Format

	// Parse materializes a whole document. Failures wrap ErrSourceUnreadable.
	Parse(data []byte) (*Document, error)

	// SelectRecords returns the nodes matched by iterator in document order.
	// No match is an empty slice, not an error.
	SelectRecords(doc *Document, iterator string) ([]Record, error)

	// ExtractField resolves reference relative to rec.
	ExtractField(rec Record, reference string) (Value, error)

	// ValidateIterator compiles iterator without evaluating it.
	ValidateIterator(iterator string) error

	// ValidateReference compiles reference without evaluating it.
	ValidateReference(reference string) error
}

// Document is an immutable parsed document.
type Document struct {
	format contenttype.Format
	root   any

	// order maps tree nodes to their pre-order position. Only set for
	// pointer-based trees (XML, HTML).
	order map[any]int
}

// Format returns the format the document was parsed as.
func (d *Document) Format() contenttype.Format {
	return d.format
}

// Root returns the parsed root: a JSON-compatible value for JSON and YAML,
// *xmlquery.Node for XML, *html.Node for HTML.
func (d *Document) Root() any {
	return d.root
}

func (d *Document) position(n any) (int, bool) {
	i, ok := d.order[n]
	return i, ok
}

// Record is one node selected by an iterator.
type Record struct {
	node any
	doc  *Document
}

// Node returns the underlying tree node.
func (r Record) Node() any {
	return r.node
}

// Document returns the document the record belongs to.
func (r Record) Document() *Document {
	return r.doc
}

// role tells compile errors apart.
type role uint8

const (
	roleIterator role = iota
	roleReference
)

func (r role) String() string {
	if r == roleIterator {
		return "iterator"
	}
	return "reference"
}

const defaultCacheSize = 256

type options struct {
	cacheSize int
}

// Option configures an engine.
type Option func(*options)

// WithCacheSize sets how many compiled expressions an engine keeps.
func WithCacheSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.cacheSize = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{cacheSize: defaultCacheSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// For returns a new engine for a hierarchical format.
func For(f contenttype.Format, opts ...Option) (Engine, error) {
	switch f {
	case contenttype.JSON:
		return NewJSON(opts...), nil
	case contenttype.YAML:
		return NewYAML(opts...), nil
	case contenttype.XML:
		return NewXML(opts...), nil
	case contenttype.HTML:
		return NewHTML(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q has no path engine", ErrUnsupportedFormat, string(f))
	}
}

// Registry hands out one shared engine per format so compiled expressions
// are reused across documents.
type Registry struct {
	engines map[contenttype.Format]Engine
}

// NewRegistry creates engines for every hierarchical format.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		engines: map[contenttype.Format]Engine{
			contenttype.JSON: NewJSON(opts...),
			contenttype.YAML: NewYAML(opts...),
			contenttype.XML:  NewXML(opts...),
			contenttype.HTML: NewHTML(opts...),
		},
	}
}

// Get returns the engine for f.
func (r *Registry) Get(f contenttype.Format) (Engine, error) {
	if eng, ok := r.engines[f]; ok {
		return eng, nil
	}
	return nil, fmt.Errorf("%w: %q has no path engine", ErrUnsupportedFormat, string(f))
}
