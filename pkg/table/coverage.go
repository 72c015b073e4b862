package table

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// ColumnCoverage summarizes how often a column carries a value.
type ColumnCoverage struct {
	Column        string  `json:"column"`
	NonNull       int     `json:"non_null"`
	Null          int     `json:"null"`
	NullFrequency float64 `json:"null_frequency"` // 0.0-1.0

	present *roaring.Bitmap
}

// Present returns the bitmap of row indices with a non-null cell.
func (c ColumnCoverage) Present() *roaring.Bitmap {
	if c.present == nil {
		return roaring.New()
	}
	return c.present
}

// Coverage computes per-column null statistics, one entry per column in
// column order.
func (t *Table) Coverage() []ColumnCoverage {
	out := make([]ColumnCoverage, len(t.Columns))
	for col, name := range t.Columns {
		bm := roaring.New()
		for i, r := range t.Rows {
			if r[col] != nil {
				bm.Add(uint32(i))
			}
		}

		nonNull := int(bm.GetCardinality())
		cov := ColumnCoverage{
			Column:  name,
			NonNull: nonNull,
			Null:    len(t.Rows) - nonNull,
			present: bm,
		}
		if len(t.Rows) > 0 {
			cov.NullFrequency = float64(cov.Null) / float64(len(t.Rows))
		}
		out[col] = cov
	}
	return out
}

// CompleteRows returns the indices of rows where every column is non-null.
func (t *Table) CompleteRows() *roaring.Bitmap {
	all := roaring.New()
	if len(t.Rows) == 0 {
		return all
	}
	all.AddRange(0, uint64(len(t.Rows)))
	for _, cov := range t.Coverage() {
		all = roaring.And(all, cov.Present())
	}
	return all
}
