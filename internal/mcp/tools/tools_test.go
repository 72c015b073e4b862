package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/recordflat/internal/config"
	"github.com/usestring/recordflat/internal/extract"
	"github.com/usestring/recordflat/internal/mapping"
	"github.com/usestring/recordflat/pkg/pathengine"
	"github.com/usestring/recordflat/pkg/source"
)

const libraryXML = `<library>
  <book id="b1"><title>Dune</title><author>Herbert</author></book>
  <book id="b2"><title>Emma</title></book>
</library>`

func newDeps(t *testing.T) *Deps {
	t.Helper()
	cfg := config.Load()
	cfg.PreviewRows = 1
	svc := extract.New(source.New(), pathengine.NewRegistry(), extract.WithTimeout(5*time.Second))
	return &Deps{Service: svc, Config: cfg}
}

func codeOfErr(t *testing.T, err error) string {
	t.Helper()
	var coded *CodedError
	require.True(t, errors.As(err, &coded), "expected CodedError, got %v", err)
	return coded.Code
}

func TestFlattenDocument(t *testing.T) {
	d := newDeps(t)
	h := ToolFlattenDocument(d)

	_, out, err := h(context.Background(), nil, FlattenDocumentInput{
		Body:       libraryXML,
		Format:     "xml",
		Iterator:   "/library/book",
		References: []string{"@id", "title", "author"},
		MaxRows:    -1,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"@id", "title", "author"}, out.Columns)
	assert.Equal(t, 2, out.RowCount)
	require.Len(t, out.Rows, 2)
	assert.Nil(t, out.Rows[1][2])
	assert.Equal(t, "keep-null", out.Mode)
	assert.False(t, out.Truncated)
	require.Len(t, out.Coverage, 3)
	assert.Equal(t, 1, out.Coverage[2].Null)
}

func TestFlattenDocument_Preview(t *testing.T) {
	d := newDeps(t)
	_, out, err := ToolFlattenDocument(d)(context.Background(), nil, FlattenDocumentInput{
		Body:       libraryXML,
		Iterator:   "/library/book",
		References: []string{"title"},
	})
	require.NoError(t, err)
	assert.Len(t, out.Rows, 1)
	assert.Equal(t, 2, out.RowCount)
	assert.True(t, out.Truncated)
	assert.Contains(t, out.Hints[len(out.Hints)-1], "Showing 1 of 2 rows")
}

func TestFlattenDocument_Errors(t *testing.T) {
	d := newDeps(t)
	h := ToolFlattenDocument(d)
	ctx := context.Background()

	tests := []struct {
		name  string
		input FlattenDocumentInput
		code  string
	}{
		{"no source", FlattenDocumentInput{Iterator: "/a"}, ErrCodeInvalidInput},
		{"both sources", FlattenDocumentInput{Source: "a.xml", Body: "<a/>", Iterator: "/a"}, ErrCodeInvalidInput},
		{"stdin", FlattenDocumentInput{Source: "-", Iterator: "/a"}, ErrCodeInvalidInput},
		{"no iterator", FlattenDocumentInput{Body: "<a/>"}, ErrCodeInvalidInput},
		{"bad format", FlattenDocumentInput{Body: "<a/>", Format: "pdf", Iterator: "/a"}, ErrCodeInvalidInput},
		{"flat format", FlattenDocumentInput{Body: "a,b", Format: "csv", Iterator: "/a"}, ErrCodeInvalidInput},
		{"bad mode", FlattenDocumentInput{Body: "<a/>", Iterator: "/a", Mode: "sometimes"}, ErrCodeInvalidInput},
		{"bad iterator", FlattenDocumentInput{Body: "<a/>", Format: "xml", Iterator: "/a["}, ErrCodeInvalidExpression},
		{"bad reference", FlattenDocumentInput{Body: "<a/>", Format: "xml", Iterator: "/a", References: []string{"b[["}}, ErrCodeInvalidExpression},
		{"unparseable", FlattenDocumentInput{Body: `{"a":`, Format: "json", Iterator: "$.a"}, ErrCodeSourceUnreadable},
		{"missing file", FlattenDocumentInput{Source: filepath.Join(t.TempDir(), "nope.xml"), Iterator: "/a"}, ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := h(ctx, nil, tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.code, codeOfErr(t, err))
		})
	}
}

func TestReadFlatFile(t *testing.T) {
	d := newDeps(t)
	h := ToolReadFlatFile(d)

	_, out, err := h(context.Background(), nil, ReadFlatFileInput{
		Body:    "sku,price,stock\nA1,3.50,4\nB2,\n",
		Columns: []string{"stock", "sku"},
		MaxRows: -1,
	})
	require.NoError(t, err)
	assert.Equal(t, "csv", out.Format)
	assert.Equal(t, []string{"stock", "sku"}, out.Columns)
	require.Len(t, out.Rows, 2)
	assert.Nil(t, out.Rows[1][0])
	assert.Equal(t, "B2", *out.Rows[1][1])
	assert.Empty(t, out.Mode)

	path := filepath.Join(t.TempDir(), "prices.tsv")
	require.NoError(t, os.WriteFile(path, []byte("sku\tprice\nA1\t3.50\n"), 0o644))
	_, out, err = h(context.Background(), nil, ReadFlatFileInput{Source: path})
	require.NoError(t, err)
	assert.Equal(t, "tsv", out.Format)
	assert.Equal(t, 1, out.RowCount)

	_, _, err = h(context.Background(), nil, ReadFlatFileInput{Body: "a,b\n1,2\n", Columns: []string{"c"}})
	assert.Equal(t, ErrCodeInvalidInput, codeOfErr(t, err))

	_, _, err = h(context.Background(), nil, ReadFlatFileInput{Body: "<a/>", Format: "xml"})
	assert.Equal(t, ErrCodeInvalidInput, codeOfErr(t, err))
}

func TestRunMapping(t *testing.T) {
	d := newDeps(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "library.xml"), []byte(libraryXML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prices.csv"), []byte("sku,price\nA1,3\n"), 0o644))

	mappingPath := filepath.Join(dir, "mapping.yaml")
	require.NoError(t, os.WriteFile(mappingPath, []byte(`rules:
  - name: books
    source: library.xml
    iterator: /library/book
    references: [title, author]
  - name: prices
    source: prices.csv
  - name: broken
    source: missing.xml
    iterator: /a
    references: [b]
`), 0o644))

	_, out, err := ToolRunMapping(d)(context.Background(), nil, RunMappingInput{Path: mappingPath, MaxRows: -1})
	require.NoError(t, err)

	assert.Equal(t, 2, out.Succeeded)
	assert.Equal(t, 1, out.Failed)
	require.Len(t, out.Tables, 2)
	assert.Equal(t, "books", out.Tables[0].Name)
	assert.Equal(t, 2, out.Tables[0].RowCount)
	assert.Equal(t, "prices", out.Tables[1].Name)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, "broken", out.Failures[0].Name)
	assert.Equal(t, ErrCodeNotFound, out.Failures[0].Code)
}

func TestRunMapping_Inline(t *testing.T) {
	d := newDeps(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "library.xml")
	require.NoError(t, os.WriteFile(path, []byte(libraryXML), 0o644))

	text := fmt.Sprintf(`{"rules": [{"name": "books", "source": %q, "iterator": "/library/book", "references": ["title"]}]}`, path)
	_, out, err := ToolRunMapping(d)(context.Background(), nil, RunMappingInput{Mapping: text, Syntax: "json"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Succeeded)
}

func TestRunMapping_Errors(t *testing.T) {
	d := newDeps(t)
	h := ToolRunMapping(d)
	ctx := context.Background()

	_, _, err := h(ctx, nil, RunMappingInput{})
	assert.Equal(t, ErrCodeInvalidInput, codeOfErr(t, err))

	_, _, err = h(ctx, nil, RunMappingInput{Mapping: "rules: []"})
	assert.Equal(t, ErrCodeInvalidInput, codeOfErr(t, err))
	assert.ErrorIs(t, err, mapping.ErrInvalidMapping)

	_, _, err = h(ctx, nil, RunMappingInput{Mapping: "rules:\n  - name: a\n    source: '-'\n    source_type: csv\n"})
	assert.Equal(t, ErrCodeInvalidInput, codeOfErr(t, err))

	_, _, err = h(ctx, nil, RunMappingInput{Path: filepath.Join(t.TempDir(), "none.yaml")})
	assert.Equal(t, ErrCodeNotFound, codeOfErr(t, err))
}

func TestValidateExpression(t *testing.T) {
	d := newDeps(t)
	h := ToolValidateExpression(d)
	ctx := context.Background()

	tests := []struct {
		input ValidateExpressionInput
		valid bool
	}{
		{ValidateExpressionInput{Format: "json", Expression: "$.items[*]"}, true},
		{ValidateExpressionInput{Format: "json", Expression: "$.items["}, false},
		{ValidateExpressionInput{Format: "yaml", Expression: ".name", Kind: "reference"}, true},
		{ValidateExpressionInput{Format: "xml", Expression: "/library/book"}, true},
		{ValidateExpressionInput{Format: "xml", Expression: "count(", Kind: "reference"}, false},
		{ValidateExpressionInput{Format: "html", Expression: "//tr[td]"}, true},
	}
	for _, tt := range tests {
		_, out, err := h(ctx, nil, tt.input)
		require.NoError(t, err)
		assert.Equal(t, tt.valid, out.Valid, tt.input.Expression)
		if !tt.valid {
			assert.NotEmpty(t, out.Error)
		}
	}

	_, _, err := h(ctx, nil, ValidateExpressionInput{Format: "csv", Expression: "a"})
	assert.Equal(t, ErrCodeInvalidInput, codeOfErr(t, err))
	_, _, err = h(ctx, nil, ValidateExpressionInput{Format: "xml", Expression: "/a", Kind: "column"})
	assert.Equal(t, ErrCodeInvalidInput, codeOfErr(t, err))
}

func TestMappingSchema(t *testing.T) {
	_, out, err := ToolMappingSchema(newDeps(t))(context.Background(), nil, MappingSchemaInput{})
	require.NoError(t, err)
	assert.Equal(t, mapping.SchemaURI, out.Resource.URI)
	schema, ok := out.Schema.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, schema, "properties")
}

func TestWrapError(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{fmt.Errorf("%w after 1s: %w", extract.ErrTimeout, context.DeadlineExceeded), ErrCodeTimeout},
		{&pathengine.ExprError{Kind: pathengine.ErrInvalidReference, Expr: "x"}, ErrCodeInvalidExpression},
		{&pathengine.SourceError{Locator: "u", Err: &source.StatusError{StatusCode: 404}}, ErrCodeNotFound},
		{&pathengine.SourceError{Locator: "u", Err: &source.StatusError{StatusCode: 500}}, ErrCodeSourceUnreadable},
		{fmt.Errorf("%w: pdf", pathengine.ErrUnsupportedFormat), ErrCodeInvalidInput},
		{errors.New("boom"), ErrCodeInternal},
	}
	for _, tt := range tests {
		err := WrapError(tt.err)
		assert.Equal(t, tt.code, codeOfErr(t, err), tt.err.Error())
		assert.ErrorIs(t, err, tt.err)
	}

	assert.Nil(t, WrapError(nil))
	coded := ErrInvalidInput("x")
	assert.Same(t, coded, WrapError(coded))
}
