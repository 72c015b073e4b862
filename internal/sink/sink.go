// Package sink writes extracted tables to files and databases.
package sink

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/usestring/recordflat/pkg/table"
)

// Sink stores named tables.
type Sink interface {
	Write(ctx context.Context, name string, t *table.Table) error
	Close() error
}

// Output encodings for Encode.
const (
	EncodingCSV   = "csv"
	EncodingJSON  = "json"
	EncodingJSONL = "jsonl"
)

// Encode writes t to w as csv, json (one document) or jsonl (one object per
// row). CSV cannot express null, so null cells are written empty.
func Encode(w io.Writer, t *table.Table, encoding string) error {
	switch strings.ToLower(encoding) {
	case EncodingCSV, "":
		return writeCSV(w, t)
	case EncodingJSON:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	case EncodingJSONL:
		return writeJSONLines(w, "", t)
	default:
		return fmt.Errorf("unknown output encoding %q (want csv, json or jsonl)", encoding)
	}
}

func writeCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, cell := range row {
			if cell == nil {
				rec[i] = ""
			} else {
				rec[i] = *cell
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeJSONLines writes one object per row with keys in column order. A
// non-empty name is added under "_table".
func writeJSONLines(w io.Writer, name string, t *table.Table) error {
	var buf bytes.Buffer
	for _, row := range t.Rows {
		buf.Reset()
		buf.WriteByte('{')
		seen := make(map[string]bool, len(t.Columns))
		first := true
		if name != "" {
			writeMember(&buf, "_table", &name)
			first = false
		}
		for i, col := range t.Columns {
			if seen[col] {
				continue
			}
			seen[col] = true
			if !first {
				buf.WriteByte(',')
			}
			first = false
			writeMember(&buf, col, row[i])
		}
		buf.WriteString("}\n")
		if _, err := w.Write(buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func writeMember(buf *bytes.Buffer, key string, val *string) {
	writeJSONString(buf, key)
	buf.WriteByte(':')
	if val == nil {
		buf.WriteString("null")
		return
	}
	writeJSONString(buf, *val)
}

func writeJSONString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	buf.Truncate(buf.Len() - 1) // drop the encoder's newline
}

// CSVDir writes each table to <dir>/<name>.csv.
type CSVDir struct {
	dir string
}

// NewCSVDir creates dir if needed.
func NewCSVDir(dir string) (*CSVDir, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &CSVDir{dir: dir}, nil
}

func (s *CSVDir) Write(_ context.Context, name string, t *table.Table) error {
	path := filepath.Join(s.dir, FileName(name)+".csv")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeCSV(f, t); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func (s *CSVDir) Close() error {
	return nil
}

// JSONLines appends every table's rows to one stream, tagging each row with
// its table name.
type JSONLines struct {
	w      io.Writer
	closer io.Closer
}

// NewJSONLines writes to w. Close closes w when it is an io.Closer other than
// os.Stdout.
func NewJSONLines(w io.Writer) *JSONLines {
	s := &JSONLines{w: w}
	if c, ok := w.(io.Closer); ok && w != os.Stdout {
		s.closer = c
	}
	return s
}

// CreateJSONLines creates (or truncates) the file at path.
func CreateJSONLines(path string) (*JSONLines, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return NewJSONLines(f), nil
}

func (s *JSONLines) Write(_ context.Context, name string, t *table.Table) error {
	return writeJSONLines(s.w, name, t)
}

func (s *JSONLines) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Multi writes every table to all sinks.
type Multi []Sink

func (m Multi) Write(ctx context.Context, name string, t *table.Table) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, name, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// FileName makes a table name safe to use as a file name.
func FileName(name string) string {
	s := strings.Trim(unsafeName.ReplaceAllString(name, "_"), ".")
	if s == "" {
		return "table"
	}
	return s
}
