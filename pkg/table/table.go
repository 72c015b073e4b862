// Package table defines the flat, fixed-column result shared by the
// hierarchical extractors and the flat-format reader.
package table

// Row is one table row. Cells are positional over Table.Columns; a nil cell
// is a null.
type Row []*string

// Table is an ordered sequence of rows sharing one column list.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// New creates an empty table with a copy of the given columns.
func New(columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{
		Columns: cols,
		Rows:    make([]Row, 0),
	}
}

// Text returns a pointer to s, for building non-null cells.
func Text(s string) *string {
	return &s
}

// Append adds a row. The row must have one cell per column.
func (t *Table) Append(r Row) {
	t.Rows = append(t.Rows, r)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of the first column named name, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Value returns the cell at row i under the first column named name.
// The boolean is false when the cell is null or the column does not exist.
func (t *Table) Value(i int, name string) (string, bool) {
	col := t.Index(name)
	if col < 0 || i < 0 || i >= len(t.Rows) {
		return "", false
	}
	cell := t.Rows[i][col]
	if cell == nil {
		return "", false
	}
	return *cell, true
}

// Column returns every cell of the first column named name, in row order.
func (t *Table) Column(name string) []*string {
	col := t.Index(name)
	if col < 0 {
		return nil
	}
	out := make([]*string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[col]
	}
	return out
}

// Head returns a shallow copy limited to the first n rows. The second result
// reports whether rows were cut off. n <= 0 means no limit.
func (t *Table) Head(n int) (*Table, bool) {
	if n <= 0 || len(t.Rows) <= n {
		return t, false
	}
	return &Table{
		Columns: t.Columns,
		Rows:    t.Rows[:n],
	}, true
}

// Records renders the rows as maps keyed by column name. Duplicated column
// names collapse into one key.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, 0, len(t.Rows))
	for _, r := range t.Rows {
		m := make(map[string]any, len(t.Columns))
		for i, c := range t.Columns {
			if r[i] == nil {
				m[c] = nil
			} else {
				m[c] = *r[i]
			}
		}
		out = append(out, m)
	}
	return out
}
