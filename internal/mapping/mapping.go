// Package mapping loads rule files that describe which records to extract
// from which sources.
//
// A mapping file lists rules; each rule names a source, its format, and
// either an iterator plus references (hierarchical sources) or a column list
// (flat sources):
//
//	rules:
//	  - name: books
//	    source: library.xml
//	    iterator: /library/book
//	    references: [title, author, "@id"]
//
// Files may be written in YAML, TOML or JSON. All three are converted to one
// JSON value, validated against the schema from Schema, and decoded.
package mapping

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/usestring/recordflat/pkg/contenttype"
	"github.com/usestring/recordflat/pkg/flatten"
	"github.com/usestring/recordflat/pkg/pathengine"
	"github.com/usestring/recordflat/pkg/source"
)

// Syntax is the notation a mapping file is written in.
type Syntax string

const (
	SyntaxYAML Syntax = "yaml"
	SyntaxTOML Syntax = "toml"
	SyntaxJSON Syntax = "json"
)

// SyntaxFromPath picks the syntax from a file extension, defaulting to YAML.
func SyntaxFromPath(path string) Syntax {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return SyntaxTOML
	case ".json":
		return SyntaxJSON
	default:
		return SyntaxYAML
	}
}

// File is a parsed mapping file.
type File struct {
	Rules []Rule `json:"rules" jsonschema:"minItems=1" jsonschema_description:"Extraction rules, run independently of each other."`

	// BaseDir resolves relative source paths. Set by LoadFile.
	BaseDir string `json:"-"`
}

// Rule describes one table to extract.
type Rule struct {
	Name       string   `json:"name" jsonschema:"minLength=1,pattern=^[A-Za-z0-9_.-]+$" jsonschema_description:"Unique rule name, also used as output table name."`
	Source     string   `json:"source" jsonschema:"minLength=1" jsonschema_description:"File path, file:// or http(s):// URL, or - for stdin."`
	SourceType string   `json:"source_type,omitempty" jsonschema:"enum=json,enum=yaml,enum=xml,enum=html,enum=csv,enum=tsv" jsonschema_description:"Source format. Guessed from the source when omitted."`
	Iterator   string   `json:"iterator,omitempty" jsonschema_description:"Path selecting the repeating record nodes (jq or JSONPath for JSON/YAML, XPath for XML/HTML)."`
	References []string `json:"references,omitempty" jsonschema_description:"Field paths relative to each record; for csv/tsv, the columns to read."`
	Mode       string   `json:"mode,omitempty" jsonschema:"enum=default,enum=keep-null,enum=drop-incomplete" jsonschema_description:"What to do with records missing a reference."`
	Encoding   string   `json:"encoding,omitempty" jsonschema_description:"Text encoding label of the source, e.g. latin1 or shift_jis."`
}

// Format resolves the rule's source format from source_type or the
// source's extension.
func (r Rule) Format() contenttype.Format {
	if r.SourceType != "" {
		return contenttype.Parse(r.SourceType)
	}
	return contenttype.FromPath(r.Source)
}

// ParsedMode returns the rule's mode. Invalid names have been rejected by
// Parse, so they read as Default here.
func (r Rule) ParsedMode() flatten.Mode {
	m, _ := flatten.ParseMode(r.Mode)
	return m
}

// Locator returns the source locator with relative file paths resolved
// against baseDir.
func (r Rule) Locator(baseDir string) string {
	if baseDir == "" || r.Source == source.Stdin || filepath.IsAbs(r.Source) {
		return r.Source
	}
	if u, err := url.Parse(r.Source); err == nil && len(u.Scheme) > 1 {
		return r.Source
	}
	return filepath.Join(baseDir, r.Source)
}

// ValidationError lists every problem found in a mapping file.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid mapping: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid mapping: %d problems: %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// ErrInvalidMapping is matched by every *ValidationError.
var ErrInvalidMapping = errors.New("invalid mapping")

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidMapping
}

// LoadFile reads and parses the mapping at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mapping: %w", err)
	}
	f, err := Parse(data, SyntaxFromPath(path))
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolving mapping directory: %w", err)
	}
	f.BaseDir = abs
	return f, nil
}

// Parse decodes a mapping written in syntax, validates it against the schema
// and checks rule consistency. Problems are reported together as a
// *ValidationError.
func Parse(data []byte, syntax Syntax) (*File, error) {
	doc, err := toJSON(data, syntax)
	if err != nil {
		return nil, &ValidationError{Problems: []string{err.Error()}}
	}

	if problems := validateSchema(doc); len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	var f File
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, &ValidationError{Problems: []string{err.Error()}}
	}

	if problems := f.check(); len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return &f, nil
}

// toJSON converts any supported syntax into JSON text.
func toJSON(data []byte, syntax Syntax) ([]byte, error) {
	var v any
	switch syntax {
	case SyntaxJSON:
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
	case SyntaxTOML:
		if err := toml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("parsing TOML: %w", err)
		}
	case SyntaxYAML, "":
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
		v = pathengine.ConvertYAMLToJSON(v)
	default:
		return nil, fmt.Errorf("unknown mapping syntax %q", syntax)
	}
	if v == nil {
		return nil, errors.New("empty mapping")
	}
	return json.Marshal(v)
}

// check enforces what the schema cannot express.
func (f *File) check() []string {
	var problems []string
	seen := make(map[string]bool, len(f.Rules))

	for i, r := range f.Rules {
		at := fmt.Sprintf("/rules/%d", i)
		if seen[r.Name] {
			problems = append(problems, fmt.Sprintf("%s: duplicate rule name %q", at, r.Name))
		}
		seen[r.Name] = true

		format := r.Format()
		switch {
		case format == contenttype.Unknown:
			problems = append(problems, fmt.Sprintf("%s: cannot tell the format of %q, set source_type", at, r.Source))
		case format.Hierarchical():
			if strings.TrimSpace(r.Iterator) == "" {
				problems = append(problems, fmt.Sprintf("%s: iterator is required for %s sources", at, format))
			}
			if len(r.References) == 0 {
				problems = append(problems, fmt.Sprintf("%s: references are required for %s sources", at, format))
			}
		case format.Flat():
			if r.Iterator != "" {
				problems = append(problems, fmt.Sprintf("%s: iterator does not apply to %s sources", at, format))
			}
		}

		if _, err := flatten.ParseMode(r.Mode); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", at, err))
		}
	}

	sort.Strings(problems)
	return problems
}
