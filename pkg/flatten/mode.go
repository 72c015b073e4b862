package flatten

import (
	"fmt"
	"strings"

	"github.com/usestring/recordflat/pkg/contenttype"
)

// Mode selects what happens to a record whose references resolve to nothing.
type Mode uint8

const (
	// Default resolves to the format's own policy, see Mode.Resolve.
	Default Mode = iota
	// KeepNull keeps the record and puts null in the empty columns.
	KeepNull
	// DropIncomplete discards a record when any reference is empty.
	DropIncomplete
)

func (m Mode) String() string {
	switch m {
	case KeepNull:
		return "keep-null"
	case DropIncomplete:
		return "drop-incomplete"
	default:
		return "default"
	}
}

// ParseMode reads a mode name. The empty string and "default" give Default.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return Default, nil
	case "keep-null", "keep_null", "keepnull":
		return KeepNull, nil
	case "drop-incomplete", "drop_incomplete", "dropincomplete":
		return DropIncomplete, nil
	default:
		return Default, fmt.Errorf("unknown mode %q (want keep-null or drop-incomplete)", s)
	}
}

// Resolve replaces Default with the policy of format f: JSON and YAML drop
// incomplete records, XML and HTML keep them with nulls.
func (m Mode) Resolve(f contenttype.Format) Mode {
	if m != Default {
		return m
	}
	switch f {
	case contenttype.JSON, contenttype.YAML:
		return DropIncomplete
	default:
		return KeepNull
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
