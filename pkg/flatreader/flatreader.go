// Package flatreader reads delimited text files into the same table shape the
// hierarchical extractors produce.
package flatreader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/usestring/recordflat/pkg/contenttype"
	"github.com/usestring/recordflat/pkg/pathengine"
	"github.com/usestring/recordflat/pkg/table"
)

// ErrColumnNotFound is returned when a requested column is not in the header.
var ErrColumnNotFound = errors.New("column not found")

// Read parses r as CSV or TSV and returns the requested columns in the given
// order. An empty column list selects every header column. Cells are kept as
// text; a row shorter than the header yields null cells.
func Read(r io.Reader, format contenttype.Format, columns []string) (*table.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	switch format {
	case contenttype.CSV:
		cr.Comma = ','
	case contenttype.TSV:
		cr.Comma = '\t'
		cr.LazyQuotes = true
	default:
		return nil, fmt.Errorf("%w: %q is not a flat format", pathengine.ErrUnsupportedFormat, string(format))
	}

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &pathengine.SourceError{Err: errors.New("missing header row")}
	}
	if err != nil {
		return nil, &pathengine.SourceError{Err: fmt.Errorf("invalid %s: %w", format, err)}
	}
	header = append([]string(nil), header...)
	if len(header) > 0 {
		header[0] = trimBOM(header[0])
	}

	if len(columns) == 0 {
		columns = header
	}

	index := make(map[string]int, len(header))
	for i := len(header) - 1; i >= 0; i-- {
		index[header[i]] = i
	}
	positions := make([]int, len(columns))
	for i, c := range columns {
		pos, ok := index[c]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, c)
		}
		positions[i] = pos
	}

	t := table.New(columns)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &pathengine.SourceError{Err: fmt.Errorf("invalid %s: %w", format, err)}
		}

		row := make(table.Row, len(positions))
		for i, pos := range positions {
			if pos < len(rec) {
				row[i] = table.Text(rec[pos])
			}
		}
		t.Append(row)
	}
	return t, nil
}

// ReadBytes is Read over an in-memory buffer.
func ReadBytes(data []byte, format contenttype.Format, columns []string) (*table.Table, error) {
	return Read(bytes.NewReader(data), format, columns)
}

func trimBOM(s string) string {
	const bom = "\ufeff"
	if len(s) >= len(bom) && s[:len(bom)] == bom {
		return s[len(bom):]
	}
	return s
}
