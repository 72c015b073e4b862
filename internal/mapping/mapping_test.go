package mapping

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/recordflat/pkg/contenttype"
	"github.com/usestring/recordflat/pkg/flatten"
)

const yamlMapping = `
rules:
  - name: books
    source: library.xml
    iterator: /library/book
    references: [title, author, "@id"]
  - name: people
    source: https://example.com/people
    source_type: json
    iterator: $.people[*]
    references: [name, tags]
    mode: keep-null
  - name: prices
    source: prices.csv
    references: [sku, price]
`

func problems(t *testing.T, err error) []string {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidMapping)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	return verr.Problems
}

func containsProblem(ps []string, parts ...string) bool {
	for _, p := range ps {
		ok := true
		for _, part := range parts {
			if !strings.Contains(p, part) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func TestParse_YAML(t *testing.T) {
	f, err := Parse([]byte(yamlMapping), SyntaxYAML)
	require.NoError(t, err)
	require.Len(t, f.Rules, 3)

	books := f.Rules[0]
	assert.Equal(t, contenttype.XML, books.Format())
	assert.Equal(t, []string{"title", "author", "@id"}, books.References)
	assert.Equal(t, flatten.Default, books.ParsedMode())

	people := f.Rules[1]
	assert.Equal(t, contenttype.JSON, people.Format())
	assert.Equal(t, flatten.KeepNull, people.ParsedMode())

	assert.Equal(t, contenttype.CSV, f.Rules[2].Format())
}

func TestParse_TOML(t *testing.T) {
	data := `
[[rules]]
name = "books"
source = "library.xml"
iterator = "/library/book"
references = ["title", "author"]
mode = "drop-incomplete"
`
	f, err := Parse([]byte(data), SyntaxTOML)
	require.NoError(t, err)
	require.Len(t, f.Rules, 1)
	assert.Equal(t, flatten.DropIncomplete, f.Rules[0].ParsedMode())
}

func TestParse_JSON(t *testing.T) {
	data := `{"rules": [{"name": "a", "source": "a.yaml", "iterator": "$.items", "references": ["id"], "encoding": "latin1"}]}`
	f, err := Parse([]byte(data), SyntaxJSON)
	require.NoError(t, err)
	assert.Equal(t, contenttype.YAML, f.Rules[0].Format())
	assert.Equal(t, "latin1", f.Rules[0].Encoding)
}

func TestParse_SchemaViolations(t *testing.T) {
	ps := problems(t, func() error {
		_, err := Parse([]byte(`{"rules": [{"name": "a", "iterator": "/x", "references": ["y"], "colour": "red"}]}`), SyntaxJSON)
		return err
	}())

	assert.True(t, containsProblem(ps, "/rules/0", "source"), ps)
	assert.True(t, containsProblem(ps, "/rules/0", "colour"), ps)
}

func TestParse_EmptyRules(t *testing.T) {
	ps := problems(t, func() error {
		_, err := Parse([]byte(`rules: []`), SyntaxYAML)
		return err
	}())
	assert.True(t, containsProblem(ps, "/rules"), ps)
}

func TestParse_BadMode(t *testing.T) {
	ps := problems(t, func() error {
		_, err := Parse([]byte(`{"rules": [{"name": "a", "source": "a.xml", "iterator": "/x", "references": ["y"], "mode": "explode"}]}`), SyntaxJSON)
		return err
	}())
	assert.True(t, containsProblem(ps, "/rules/0/mode"), ps)
}

func TestParse_RuleConsistency(t *testing.T) {
	data := `
rules:
  - name: a
    source: data.xml
  - name: a
    source: data.bin
  - name: c
    source: data.csv
    iterator: /x
`
	ps := problems(t, func() error {
		_, err := Parse([]byte(data), SyntaxYAML)
		return err
	}())

	assert.True(t, containsProblem(ps, "/rules/0", "iterator is required"), ps)
	assert.True(t, containsProblem(ps, "/rules/0", "references are required"), ps)
	assert.True(t, containsProblem(ps, "/rules/1", "duplicate rule name"), ps)
	assert.True(t, containsProblem(ps, "/rules/1", "set source_type"), ps)
	assert.True(t, containsProblem(ps, "/rules/2", "iterator does not apply"), ps)
}

func TestParse_SyntaxErrors(t *testing.T) {
	_, err := Parse([]byte("rules: ["), SyntaxYAML)
	assert.ErrorIs(t, err, ErrInvalidMapping)

	_, err = Parse([]byte("rules = "), SyntaxTOML)
	assert.ErrorIs(t, err, ErrInvalidMapping)

	_, err = Parse([]byte(""), SyntaxYAML)
	assert.ErrorIs(t, err, ErrInvalidMapping)

	_, err = Parse([]byte("{}"), Syntax("ini"))
	assert.ErrorIs(t, err, ErrInvalidMapping)
}

func TestLoadFile_ResolvesRelativeSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapping.yml")
	require.NoError(t, os.WriteFile(path, []byte(yamlMapping), 0o644))

	f, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "library.xml"), f.Rules[0].Locator(f.BaseDir))
	assert.Equal(t, "https://example.com/people", f.Rules[1].Locator(f.BaseDir))

	stdin := Rule{Source: "-"}
	assert.Equal(t, "-", stdin.Locator(f.BaseDir))
}

func TestSyntaxFromPath(t *testing.T) {
	assert.Equal(t, SyntaxTOML, SyntaxFromPath("m.TOML"))
	assert.Equal(t, SyntaxJSON, SyntaxFromPath("m.json"))
	assert.Equal(t, SyntaxYAML, SyntaxFromPath("m.yaml"))
	assert.Equal(t, SyntaxYAML, SyntaxFromPath("mapping"))
}

func TestSchemaJSON(t *testing.T) {
	raw, err := SchemaJSON()
	require.NoError(t, err)

	var s map[string]any
	require.NoError(t, json.Unmarshal(raw, &s))
	assert.Equal(t, "recordflat mapping", s["title"])

	props, ok := s["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "rules")
	assert.NotContains(t, props, "BaseDir")
}
