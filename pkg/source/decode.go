package source

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/usestring/recordflat/pkg/pathengine"
)

// Decode converts data from the named encoding into UTF-8. The label is any
// WHATWG encoding name ("latin1", "shift_jis", "utf-16le", ...). A byte order
// mark always wins over the label and is stripped.
//
// With an empty label the data must be UTF-8 already, after BOM handling.
// XML whose prolog declares another encoding is passed through untouched for
// its parser to decode.
func Decode(data []byte, label string) ([]byte, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		out, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
		if err != nil {
			return nil, &pathengine.SourceError{Err: fmt.Errorf("decoding: %w", err)}
		}
		if !utf8.Valid(out) && !declaresOtherEncoding(out) {
			return nil, &pathengine.SourceError{Err: errors.New("invalid utf-8 text, set the source encoding")}
		}
		return out, nil
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, &pathengine.SourceError{Err: fmt.Errorf("unknown encoding %q", label)}
	}

	name, _ := htmlindex.Name(enc)
	if name == "utf-8" {
		out, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
		if err != nil {
			return nil, &pathengine.SourceError{Err: fmt.Errorf("decoding: %w", err)}
		}
		if !utf8.Valid(out) {
			return nil, &pathengine.SourceError{Err: fmt.Errorf("invalid %s text", name)}
		}
		return out, nil
	}

	out, _, err := transform.Bytes(unicode.BOMOverride(enc.NewDecoder()), data)
	if err != nil {
		return nil, &pathengine.SourceError{Err: fmt.Errorf("decoding %s: %w", name, err)}
	}
	return out, nil
}

var xmlDeclEncoding = regexp.MustCompile(`^\s*<\?xml\s[^>]*?\bencoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)

// declaresOtherEncoding reports whether data starts with an XML declaration
// naming an encoding other than UTF-8.
func declaresOtherEncoding(data []byte) bool {
	m := xmlDeclEncoding.FindSubmatch(data)
	if m == nil {
		return false
	}
	enc, err := htmlindex.Get(string(m[1]))
	if err != nil {
		return false
	}
	name, _ := htmlindex.Name(enc)
	return name != "utf-8"
}
