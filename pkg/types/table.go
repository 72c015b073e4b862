package types

// ColumnCoverage reports how many cells of a column carry a value.
type ColumnCoverage struct {
	Column        string  `json:"column"`
	NonNull       int     `json:"non_null"`
	Null          int     `json:"null"`
	NullFrequency float64 `json:"null_frequency"`
}

// TableResult is one extracted table as returned by the tools. Rows may be a
// preview; RowCount is always the full count.
type TableResult struct {
	Name       string           `json:"name,omitempty"`
	RunID      string           `json:"run_id,omitempty"`
	Locator    string           `json:"locator"`
	Format     string           `json:"format"`
	Mode       string           `json:"mode,omitempty"`
	Columns    []string         `json:"columns,omitzero"`
	Rows       [][]*string      `json:"rows,omitzero"`
	RowCount   int              `json:"row_count"`
	Truncated  bool             `json:"truncated,omitempty"`
	Coverage   []ColumnCoverage `json:"coverage,omitzero"`
	DurationMs int64            `json:"duration_ms"`
	Cached     bool             `json:"cached,omitempty"`
	Hints      []string         `json:"hints,omitempty"`
}

// RuleFailure is a mapping rule that did not produce a table.
type RuleFailure struct {
	Name  string `json:"name"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

// MappingRunResult is the outcome of running every rule of a mapping.
type MappingRunResult struct {
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Tables    []TableResult `json:"tables,omitzero"`
	Failures  []RuleFailure `json:"failures,omitzero"`
}

// ExpressionCheck is the verdict on one iterator or reference expression.
type ExpressionCheck struct {
	Valid      bool   `json:"valid"`
	Format     string `json:"format"`
	Kind       string `json:"kind"`
	Expression string `json:"expression"`
	Error      string `json:"error,omitempty"`
}

// MappingSchema carries the JSON Schema of mapping files.
type MappingSchema struct {
	Resource ResourceRef `json:"resource"`
	Schema   any         `json:"schema,omitempty"`
}
