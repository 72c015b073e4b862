// Package contenttype maps media types, file names and source-type labels
// onto the source formats recordflat can read.
package contenttype

import (
	"mime"
	"path/filepath"
	"strings"
)

// Format identifies a source document format.
type Format string

const (
	JSON    Format = "json"
	YAML    Format = "yaml"
	XML     Format = "xml"
	HTML    Format = "html"
	CSV     Format = "csv"
	TSV     Format = "tsv"
	Unknown Format = ""
)

// Hierarchical reports whether documents of this format are trees that need
// an iterator to select records.
func (f Format) Hierarchical() bool {
	switch f {
	case JSON, YAML, XML, HTML:
		return true
	}
	return false
}

// Flat reports whether the format is read by the flat-format reader.
func (f Format) Flat() bool {
	return f == CSV || f == TSV
}

// Parse resolves a source-type label ("JSON", "xml", "yml", "TSV", ...).
// Returns Unknown for labels it does not recognize.
func Parse(label string) Format {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "json", "jsonpath", "jq":
		return JSON
	case "yaml", "yml":
		return YAML
	case "xml", "xpath":
		return XML
	case "html", "htm", "xhtml":
		return HTML
	case "csv":
		return CSV
	case "tsv", "tab":
		return TSV
	default:
		return Unknown
	}
}

// Classify returns the format for a content-type header value.
// Uses mime.ParseMediaType to strip parameters (charset, boundary, etc.)
// before matching. Falls back to strings.ToLower for malformed values.
func Classify(contentType string) Format {
	if contentType == "" {
		return Unknown
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}

	// JSON: application/json, application/vnd.*+json, any containing "json"
	if strings.Contains(mediaType, "json") {
		return JSON
	}

	// HTML: text/html, application/xhtml+xml
	if mediaType == "text/html" || mediaType == "application/xhtml+xml" {
		return HTML
	}

	// XML: application/xml, text/xml, application/vnd.*+xml, any containing "xml"
	if strings.Contains(mediaType, "xml") {
		return XML
	}

	// YAML: application/yaml, text/yaml, application/x-yaml
	if strings.Contains(mediaType, "yaml") {
		return YAML
	}

	switch mediaType {
	case "text/csv":
		return CSV
	case "text/tab-separated-values":
		return TSV
	}

	return Unknown
}

// Charset returns the charset parameter of a content-type header value, or
// an empty string.
func Charset(contentType string) string {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}

// FromPath returns the format implied by a file name or URL path extension.
func FromPath(p string) Format {
	if i := strings.IndexAny(p, "?#"); i >= 0 && strings.Contains(p, "://") {
		p = p[:i]
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(p)), ".")
	if ext == "" {
		return Unknown
	}
	return Parse(ext)
}

// Sniff guesses a hierarchical format from the first bytes of a document.
// It never reports a flat format.
func Sniff(data []byte) Format {
	s := strings.TrimLeft(string(head(data, 512)), " \t\r\n\ufeff")
	lower := strings.ToLower(s)
	switch {
	case s == "":
		return Unknown
	case s[0] == '{' || s[0] == '[':
		return JSON
	case strings.HasPrefix(lower, "<!doctype html") || strings.HasPrefix(lower, "<html"):
		return HTML
	case s[0] == '<':
		return XML
	case strings.HasPrefix(s, "---") || strings.Contains(s, ":\n") || strings.Contains(s, ": "):
		return YAML
	}
	return Unknown
}

func head(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
