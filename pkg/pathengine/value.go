package pathengine

// Kind tags the variant held by a Value.
type Kind uint8

const (
	// Absent means the reference matched nothing under the record.
	Absent Kind = iota
	// Single means exactly one leaf matched.
	Single
	// Multi means a sequence of leaves matched.
	Multi
)

func (k Kind) String() string {
	switch k {
	case Absent:
		return "absent"
	case Single:
		return "single"
	case Multi:
		return "multi"
	default:
		return "unknown"
	}
}

// Value is the result of resolving one reference against one record.
//
// A Multi value with zero elements is representable and keeps its kind;
// Empty reports true for it and for Absent alike.
type Value struct {
	kind  Kind
	texts []string
}

// AbsentValue returns the Absent variant.
func AbsentValue() Value {
	return Value{kind: Absent}
}

// SingleValue returns a Single variant holding s.
func SingleValue(s string) Value {
	return Value{kind: Single, texts: []string{s}}
}

// MultiValue returns a Multi variant holding a copy of texts, whatever its
// length.
func MultiValue(texts []string) Value {
	cp := make([]string, len(texts))
	copy(cp, texts)
	return Value{kind: Multi, texts: cp}
}

// FromMatches picks the variant for a list of matched leaves: Absent for
// none, Single for one, Multi otherwise.
func FromMatches(texts []string) Value {
	switch len(texts) {
	case 0:
		return AbsentValue()
	case 1:
		return SingleValue(texts[0])
	default:
		return MultiValue(texts)
	}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind {
	return v.kind
}

// Empty reports whether the value carries no text at all.
func (v Value) Empty() bool {
	return len(v.texts) == 0
}

// Len returns the number of texts held: 0 for Absent, 1 for Single.
func (v Value) Len() int {
	return len(v.texts)
}

// Text returns the text of a Single value.
func (v Value) Text() (string, bool) {
	if v.kind != Single {
		return "", false
	}
	return v.texts[0], true
}

// At returns the i-th text. It panics when i is out of range.
func (v Value) At(i int) string {
	return v.texts[i]
}

// Texts returns a copy of all texts in match order.
func (v Value) Texts() []string {
	cp := make([]string, len(v.texts))
	copy(cp, v.texts)
	return cp
}
