package pathengine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/usestring/recordflat/pkg/contenttype"
)

// jqProgram is a compiled iterator or reference.
type jqProgram struct {
	code *gojq.Code

	// spread expands array results into their elements (JSONPath iterators
	// that stop on a container, e.g. "$.items").
	spread bool
}

// jsonEngine evaluates jq and JSONPath over JSON-compatible trees.
type jsonEngine struct {
	format   contenttype.Format
	programs *exprCache[*jqProgram]
}

// NewJSON creates the JSON engine.
func NewJSON(opts ...Option) Engine {
	return newJSONEngine(contenttype.JSON, opts)
}

func newJSONEngine(f contenttype.Format, opts []Option) *jsonEngine {
	o := buildOptions(opts)
	return &jsonEngine{
		format:   f,
		programs: newExprCache[*jqProgram](o.cacheSize),
	}
}

func (e *jsonEngine) Format() contenttype.Format {
	return e.format
}

// Parse decodes a single JSON value. Numbers keep integer precision.
func (e *jsonEngine) Parse(data []byte) (*Document, error) {
	root, err := decodeJSON(data)
	if err != nil {
		return nil, &SourceError{Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	return &Document{format: e.format, root: root}, nil
}

func (e *jsonEngine) SelectRecords(doc *Document, iterator string) ([]Record, error) {
	if !e.accepts(doc) {
		return nil, wrongDocument(e, doc)
	}
	prog, err := e.compile(roleIterator, iterator)
	if err != nil {
		return nil, err
	}

	values := prog.run(doc.root)
	recs := make([]Record, 0, len(values))
	for _, v := range values {
		recs = append(recs, Record{node: v, doc: doc})
	}
	return recs, nil
}

func (e *jsonEngine) ExtractField(rec Record, reference string) (Value, error) {
	prog, err := e.compile(roleReference, reference)
	if err != nil {
		return Value{}, err
	}

	values := prog.run(rec.node)
	texts := make([]string, 0, len(values))
	for _, v := range values {
		texts = append(texts, renderJSON(v))
	}
	return FromMatches(texts), nil
}

func (e *jsonEngine) ValidateIterator(iterator string) error {
	_, err := e.compile(roleIterator, iterator)
	return err
}

func (e *jsonEngine) ValidateReference(reference string) error {
	_, err := e.compile(roleReference, reference)
	return err
}

func (e *jsonEngine) accepts(doc *Document) bool {
	return doc != nil && (doc.format == contenttype.JSON || doc.format == contenttype.YAML)
}

func (e *jsonEngine) compile(r role, expr string) (*jqProgram, error) {
	return e.programs.get(r, expr, func() (*jqProgram, error) {
		src, spread, err := toJQ(r, expr)
		if err != nil {
			return nil, exprError(r, expr, err)
		}

		query, err := gojq.Parse(src)
		if err != nil {
			var parseErr *gojq.ParseError
			if errors.As(err, &parseErr) {
				return nil, exprError(r, expr, fmt.Errorf("at position %d: %w", parseErr.Offset, err))
			}
			return nil, exprError(r, expr, err)
		}

		code, err := gojq.Compile(query)
		if err != nil {
			return nil, exprError(r, expr, err)
		}

		return &jqProgram{code: code, spread: spread}, nil
	})
}

// run collects every non-null output. Runtime errors such as indexing a
// string are treated as no match.
func (p *jqProgram) run(input any) []any {
	var out []any
	iter := p.code.Run(input)

	for {
		v, ok := iter.Next()
		if !ok {
			break
		}

		if _, isErr := v.(error); isErr {
			continue
		}

		// Skip nil values
		if v == nil {
			continue
		}

		if arr, isArr := v.([]any); isArr && p.spread {
			for _, el := range arr {
				if el != nil {
					out = append(out, el)
				}
			}
			continue
		}

		out = append(out, v)
	}

	return out
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after top-level value")
	}
	return normalizeNumbers(v), nil
}

// normalizeNumbers replaces json.Number with the numeric types gojq
// understands: int, *big.Int or float64.
func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		s := string(val)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil && i >= math.MinInt && i <= math.MaxInt {
			return int(i)
		}
		if !strings.ContainsAny(s, ".eE") {
			if b, ok := new(big.Int).SetString(s, 10); ok {
				return b
			}
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		for k, child := range val {
			val[k] = normalizeNumbers(child)
		}
		return val
	case []any:
		for i, child := range val {
			val[i] = normalizeNumbers(child)
		}
		return val
	default:
		return v
	}
}

// renderJSON turns a matched value into cell text. Scalars render bare;
// containers render as compact JSON.
func renderJSON(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case float64:
		return formatNumber(val)
	case *big.Int:
		return val.String()
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(val); err != nil {
			return fmt.Sprint(val)
		}
		return strings.TrimSuffix(buf.String(), "\n")
	}
}

// formatNumber renders integral floats without a fraction and large
// magnitudes in exponent form, the way jq prints them.
func formatNumber(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 0) {
		if f > 0 {
			return "Infinity"
		}
		return "-Infinity"
	}
	if math.Abs(f) >= 1e17 || (f != 0 && math.Abs(f) < 1e-5) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func wrongDocument(e Engine, doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", ErrUnsupportedFormat)
	}
	return fmt.Errorf("%w: %s engine cannot read a %s document", ErrUnsupportedFormat, e.Format(), doc.format)
}
