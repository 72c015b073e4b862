// Package flatten turns records selected from a hierarchical document into a
// fixed-column table.
//
// Each record is resolved into a WideRow (reference to Value), expanded into
// FlatRows by a left-to-right cross product over its multi-valued references,
// and the rows of all records are concatenated in document order. The
// resulting table always has exactly the requested references as columns.
package flatten

import (
	"github.com/usestring/recordflat/pkg/contenttype"
	"github.com/usestring/recordflat/pkg/pathengine"
	"github.com/usestring/recordflat/pkg/table"
)

// WideRow holds the extracted value of every reference for one record.
// A reference with no entry reads as Absent.
type WideRow map[string]pathengine.Value

// FlatRow maps each reference to one cell; nil is null.
type FlatRow map[string]*string

// Extract flattens the records doc yields for iterator. All references are
// compiled before any record is visited, so a malformed reference fails the
// call even when nothing matches.
func Extract(eng pathengine.Engine, doc *pathengine.Document, iterator string, refs []string, mode Mode) (*table.Table, error) {
	mode = mode.Resolve(eng.Format())
	unique := distinct(refs)

	for _, ref := range unique {
		if err := eng.ValidateReference(ref); err != nil {
			return nil, err
		}
	}

	recs, err := eng.SelectRecords(doc, iterator)
	if err != nil {
		return nil, err
	}

	perRecord := make([][]FlatRow, 0, len(recs))
	for _, rec := range recs {
		wide := make(WideRow, len(unique))
		for _, ref := range unique {
			v, err := eng.ExtractField(rec, ref)
			if err != nil {
				return nil, err
			}
			wide[ref] = v
		}
		perRecord = append(perRecord, Normalize(wide, refs, mode))
	}

	return Build(perRecord, refs), nil
}

// Bytes parses data as format and flattens it with a fresh engine.
func Bytes(data []byte, format contenttype.Format, iterator string, refs []string, mode Mode) (*table.Table, error) {
	eng, err := pathengine.For(format)
	if err != nil {
		return nil, err
	}
	doc, err := eng.Parse(data)
	if err != nil {
		return nil, err
	}
	return Extract(eng, doc, iterator, refs, mode)
}

// Normalize expands one record into flat rows. References are visited left to
// right: a Single value is assigned to every row, a Multi value of length k
// replaces each row by k copies carrying the values in order, and an empty
// value assigns null. Under DropIncomplete a record with any empty reference
// yields no rows. Default behaves like KeepNull.
//
// A reference listed twice is expanded once.
func Normalize(wide WideRow, refs []string, mode Mode) []FlatRow {
	unique := distinct(refs)

	if mode == DropIncomplete {
		for _, ref := range unique {
			if wide[ref].Empty() {
				return nil
			}
		}
	}

	acc := []FlatRow{make(FlatRow, len(unique))}
	for _, ref := range unique {
		v := wide[ref]
		switch {
		case v.Kind() == pathengine.Single:
			s := v.At(0)
			for _, row := range acc {
				row[ref] = &s
			}
		case v.Kind() == pathengine.Multi && v.Len() > 0:
			next := make([]FlatRow, 0, len(acc)*v.Len())
			for _, row := range acc {
				for _, text := range v.Texts() {
					replica := row.clone()
					replica[ref] = table.Text(text)
					next = append(next, replica)
				}
			}
			acc = next
		default:
			for _, row := range acc {
				row[ref] = nil
			}
		}
	}
	return acc
}

// Align projects rows onto refs, in that order. A reference no row carries
// becomes an all-null column.
func Align(rows []FlatRow, refs []string) *table.Table {
	t := table.New(refs)
	for _, row := range rows {
		cells := make(table.Row, len(refs))
		for i, ref := range refs {
			cells[i] = row[ref]
		}
		t.Append(cells)
	}
	return t
}

// Build concatenates per-record rows in record order and aligns them.
func Build(perRecord [][]FlatRow, refs []string) *table.Table {
	var n int
	for _, rows := range perRecord {
		n += len(rows)
	}
	all := make([]FlatRow, 0, n)
	for _, rows := range perRecord {
		all = append(all, rows...)
	}
	return Align(all, refs)
}

func (r FlatRow) clone() FlatRow {
	cp := make(FlatRow, len(r)+1)
	for k, v := range r {
		cp[k] = v
	}
	return cp
}

func distinct(refs []string) []string {
	seen := make(map[string]struct{}, len(refs))
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}
