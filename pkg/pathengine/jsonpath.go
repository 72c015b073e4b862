package pathengine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Expressions with this prefix, or starting with '.' or '(', are handed to
// jq verbatim. Everything else is read as JSONPath.
const jqPrefix = "jq:"

type stepKind uint8

const (
	stepChild stepKind = iota
	stepIndex
	stepWildcard
	stepDescendant
	stepDescendantWildcard
)

type step struct {
	kind    stepKind
	keys    []string
	indices []int
}

// jsonPath is a parsed JSONPath subset: $, @, .key, ['key'], ['a','b'],
// [n], [n,m], [*], .*, ..key and ..*.
type jsonPath struct {
	steps []step
}

// nativeJQ reports whether s is a jq expression and returns its source.
func nativeJQ(s string) (string, bool) {
	if strings.HasPrefix(s, jqPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(s, jqPrefix)), true
	}
	if strings.HasPrefix(s, ".") || strings.HasPrefix(s, "(") {
		return s, true
	}
	return "", false
}

// toJQ turns an iterator or reference into jq source. The boolean asks the
// caller to expand array results into their elements.
func toJQ(r role, expr string) (string, bool, error) {
	s := strings.TrimSpace(expr)
	if s == "" {
		return "", false, errors.New("empty expression")
	}
	if src, ok := nativeJQ(s); ok {
		if src == "" {
			return "", false, errors.New("empty jq expression")
		}
		return src, false, nil
	}

	p, err := parseJSONPath(s)
	if err != nil {
		return "", false, err
	}
	if r == roleIterator {
		return p.jq(false), !p.endsOnSelection(), nil
	}
	return p.jq(true), false, nil
}

func parseJSONPath(s string) (*jsonPath, error) {
	p := &jsonPath{}
	i := 0

	switch s[0] {
	case '$', '@':
		// "@id" and "$ref" are keys; the sigil alone is the root or current node.
		if name, n := readName(s, 1); name != "" {
			p.steps = append(p.steps, step{kind: stepChild, keys: []string{s[:n]}})
			i = n
		} else {
			i = 1
		}
	case '[':
		// bracket first, e.g. ['a b'].c
	default:
		name, n := readName(s, 0)
		if name == "" {
			return nil, fmt.Errorf("unexpected %q at offset 0", s[0])
		}
		p.steps = append(p.steps, step{kind: stepChild, keys: []string{name}})
		i = n
	}

	for i < len(s) {
		switch s[i] {
		case '.':
			if i+1 < len(s) && s[i+1] == '.' {
				i += 2
				if i < len(s) && s[i] == '*' {
					p.steps = append(p.steps, step{kind: stepDescendantWildcard})
					i++
					continue
				}
				name, n := readName(s, i)
				if name == "" {
					return nil, fmt.Errorf("expected a name after '..' at offset %d", i)
				}
				p.steps = append(p.steps, step{kind: stepDescendant, keys: []string{name}})
				i = n
				continue
			}

			i++
			if i < len(s) && s[i] == '*' {
				p.steps = append(p.steps, step{kind: stepWildcard})
				i++
				continue
			}
			name, n := readName(s, i)
			if name == "" {
				return nil, fmt.Errorf("expected a name after '.' at offset %d", i)
			}
			p.steps = append(p.steps, step{kind: stepChild, keys: []string{name}})
			i = n

		case '[':
			st, n, err := parseBracket(s, i)
			if err != nil {
				return nil, err
			}
			p.steps = append(p.steps, st)
			i = n

		default:
			return nil, fmt.Errorf("unexpected %q at offset %d", s[i], i)
		}
	}

	return p, nil
}

// readName reads an unquoted member name starting at i.
func readName(s string, i int) (string, int) {
	j := i
	for j < len(s) && s[j] != '.' && s[j] != '[' && s[j] != ']' {
		j++
	}
	return s[i:j], j
}

// parseBracket parses [*], [n,...] or ['key',...] starting at the '['.
func parseBracket(s string, start int) (step, int, error) {
	end := -1
	var quote byte
	for j := start + 1; j < len(s); j++ {
		c := s[j]
		switch {
		case quote != 0 && c == '\\':
			j++
		case quote != 0 && c == quote:
			quote = 0
		case quote == 0 && (c == '\'' || c == '"'):
			quote = c
		case quote == 0 && c == ']':
			end = j
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		return step{}, 0, fmt.Errorf("unterminated '[' at offset %d", start)
	}

	body := strings.TrimSpace(s[start+1 : end])
	if body == "*" {
		return step{kind: stepWildcard}, end + 1, nil
	}
	if body == "" {
		return step{}, 0, fmt.Errorf("empty brackets at offset %d", start)
	}

	parts, err := splitUnion(body)
	if err != nil {
		return step{}, 0, fmt.Errorf("bad brackets at offset %d: %w", start, err)
	}

	if isQuoted(parts[0]) {
		st := step{kind: stepChild}
		for _, part := range parts {
			if !isQuoted(part) {
				return step{}, 0, fmt.Errorf("mixed names and indices at offset %d", start)
			}
			st.keys = append(st.keys, unquote(part))
		}
		return st, end + 1, nil
	}

	st := step{kind: stepIndex}
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return step{}, 0, fmt.Errorf("bad index %q at offset %d", part, start)
		}
		st.indices = append(st.indices, n)
	}
	return st, end + 1, nil
}

// splitUnion splits a bracket body on commas outside quotes.
func splitUnion(body string) ([]string, error) {
	var parts []string
	var quote byte
	last := 0
	for j := 0; j < len(body); j++ {
		c := body[j]
		switch {
		case quote != 0 && c == '\\':
			j++
		case quote != 0 && c == quote:
			quote = 0
		case quote == 0 && (c == '\'' || c == '"'):
			quote = c
		case quote == 0 && c == ',':
			parts = append(parts, strings.TrimSpace(body[last:j]))
			last = j + 1
		}
	}
	if quote != 0 {
		return nil, errors.New("unterminated quote")
	}
	parts = append(parts, strings.TrimSpace(body[last:]))
	for _, p := range parts {
		if p == "" {
			return nil, errors.New("empty union member")
		}
	}
	return parts, nil
}

func isQuoted(s string) bool {
	return len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0]
}

func unquote(s string) string {
	inner := s[1 : len(s)-1]
	var sb strings.Builder
	for j := 0; j < len(inner); j++ {
		if inner[j] == '\\' && j+1 < len(inner) {
			j++
		}
		sb.WriteByte(inner[j])
	}
	return sb.String()
}

// endsOnSelection reports whether the last step already iterates elements.
func (p *jsonPath) endsOnSelection() bool {
	if len(p.steps) == 0 {
		return false
	}
	switch p.steps[len(p.steps)-1].kind {
	case stepWildcard, stepIndex, stepDescendantWildcard:
		return true
	}
	return false
}

const fanOut = `if type == "array" then .[] else . end`

// jq renders the path as jq source. With spread set, arrays met after each
// step are expanded, so a dotted reference reaches every repeated leaf.
func (p *jsonPath) jq(spread bool) string {
	parts := []string{"."}
	for _, st := range p.steps {
		parts = append(parts, st.jq())
		if spread && st.kind != stepWildcard && st.kind != stepDescendantWildcard {
			parts = append(parts, fanOut)
		}
	}
	return strings.Join(parts, " | ")
}

func (st step) jq() string {
	switch st.kind {
	case stepChild:
		return union(st.keys, func(k string) string { return ".[" + quoteJQ(k) + "]?" })
	case stepIndex:
		idx := make([]string, len(st.indices))
		for i, n := range st.indices {
			idx[i] = strconv.Itoa(n)
		}
		return union(idx, func(n string) string { return ".[" + n + "]?" })
	case stepWildcard:
		return ".[]?"
	case stepDescendant:
		return ".. | " + union(st.keys, func(k string) string { return ".[" + quoteJQ(k) + "]?" })
	case stepDescendantWildcard:
		return ".. | .[]?"
	default:
		return "."
	}
}

func union(items []string, render func(string) string) string {
	if len(items) == 1 {
		return render(items[0])
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = render(it)
	}
	return "(" + strings.Join(out, ", ") + ")"
}

// quoteJQ quotes a key as a jq string literal. JSON string syntax is valid jq.
func quoteJQ(k string) string {
	b, _ := json.Marshal(k)
	return string(b)
}
