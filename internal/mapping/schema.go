package mapping

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// SchemaURI names the mapping schema as an MCP resource.
const SchemaURI = "recordflat://schema/mapping"

// Schema reflects the JSON Schema of a mapping file from the File type.
func Schema() *invopop.Schema {
	r := &invopop.Reflector{
		ExpandedStruct:             true,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: false,
	}
	s := r.Reflect(&File{})
	s.Title = "recordflat mapping"
	s.Description = "Rules that flatten hierarchical or delimited sources into tables."
	return s
}

// SchemaJSON returns the indented JSON text of Schema.
func SchemaJSON() ([]byte, error) {
	return json.MarshalIndent(Schema(), "", "  ")
}

var (
	compiledOnce sync.Once
	compiled     *jsonschema.Schema
	compileErr   error
)

// compiledSchema compiles Schema once for validation.
func compiledSchema() (*jsonschema.Schema, error) {
	compiledOnce.Do(func() {
		raw, err := SchemaJSON()
		if err != nil {
			compileErr = fmt.Errorf("marshaling schema: %w", err)
			return
		}

		// Add the schema as a resource (doc must be a decoded JSON value)
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			compileErr = fmt.Errorf("unmarshaling schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("mapping.json", doc); err != nil {
			compileErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile("mapping.json")
	})
	return compiled, compileErr
}

// validateSchema checks JSON text against the mapping schema and returns
// readable problems, sorted.
func validateSchema(doc []byte) []string {
	s, err := compiledSchema()
	if err != nil {
		return []string{err.Error()}
	}

	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc))
	if err != nil {
		return []string{fmt.Sprintf("invalid JSON: %v", err)}
	}

	if err := s.Validate(v); err != nil {
		return validationProblems(err)
	}
	return nil
}

// printer is a default English printer for localized error messages.
var printer = message.NewPrinter(language.English)

func validationProblems(err error) []string {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return []string{err.Error()}
	}

	byPath := make(map[string]map[string]bool)
	collectErrors(verr, byPath)

	var out []string
	for path, msgs := range byPath {
		for msg := range msgs {
			if path == "" {
				out = append(out, msg)
			} else {
				out = append(out, path+": "+msg)
			}
		}
	}
	if len(out) == 0 {
		out = append(out, err.Error())
	}
	sort.Strings(out)
	return out
}

// collectErrors recursively collects leaf errors (those without causes).
func collectErrors(err *jsonschema.ValidationError, byPath map[string]map[string]bool) {
	path := ""
	if len(err.InstanceLocation) > 0 {
		path = "/" + strings.Join(err.InstanceLocation, "/")
	}

	if err.ErrorKind != nil && len(err.Causes) == 0 {
		msg := err.ErrorKind.LocalizedString(printer)
		if !strings.HasPrefix(msg, "$ref ") && !strings.HasPrefix(msg, "doesn't validate with") {
			if byPath[path] == nil {
				byPath[path] = make(map[string]bool)
			}
			byPath[path][msg] = true
		}
	}

	for _, cause := range err.Causes {
		collectErrors(cause, byPath)
	}
}
