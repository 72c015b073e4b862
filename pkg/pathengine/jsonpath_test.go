package pathengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToJQ_Iterator(t *testing.T) {
	tests := []struct {
		expr   string
		src    string
		spread bool
	}{
		{"$", ".", true},
		{"$.items", `. | .["items"]?`, true},
		{"$.items[*]", `. | .["items"]? | .[]?`, false},
		{"$['a b'][0,2]", `. | .["a b"]? | (.[0]?, .[2]?)`, false},
		{"$..*", ". | .. | .[]?", false},
		{".items[]", ".items[]", false},
		{"jq: .items | .[]", ".items | .[]", false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			src, spread, err := toJQ(roleIterator, tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.src, src)
			assert.Equal(t, tt.spread, spread)
		})
	}
}

func TestToJQ_Reference(t *testing.T) {
	src, spread, err := toJQ(roleReference, "address.city")
	require.NoError(t, err)
	assert.False(t, spread)
	assert.Equal(t, `. | .["address"]? | `+fanOut+` | .["city"]? | `+fanOut, src)

	src, _, err = toJQ(roleReference, `$["x","y"]`)
	require.NoError(t, err)
	assert.Equal(t, `. | (.["x"]?, .["y"]?) | `+fanOut, src)

	src, _, err = toJQ(roleReference, "@id")
	require.NoError(t, err)
	assert.Equal(t, `. | .["@id"]? | `+fanOut, src)

	src, _, err = toJQ(roleReference, "$ref.x")
	require.NoError(t, err)
	assert.Equal(t, `. | .["$ref"]? | `+fanOut+` | .["x"]? | `+fanOut, src)

	src, _, err = toJQ(roleReference, "@..name")
	require.NoError(t, err)
	assert.Equal(t, `. | .. | .["name"]? | `+fanOut, src)
}

func TestToJQ_Errors(t *testing.T) {
	for _, expr := range []string{
		"",
		"jq:",
		"$.",
		"$..",
		"$.a[",
		"$.a[]",
		"$['a',1]",
		"$[1,]",
		"$['open]",
		"$.a]",
	} {
		_, _, err := toJQ(roleIterator, expr)
		assert.Error(t, err, expr)
	}
}

func TestParseJSONPath_Quoting(t *testing.T) {
	p, err := parseJSONPath(`$['it\'s'].x`)
	require.NoError(t, err)
	require.Len(t, p.steps, 2)
	assert.Equal(t, []string{"it's"}, p.steps[0].keys)
	assert.Equal(t, []string{"x"}, p.steps[1].keys)
}

func TestValue_Variants(t *testing.T) {
	assert.Equal(t, Absent, FromMatches(nil).Kind())
	assert.True(t, AbsentValue().Empty())

	single := FromMatches([]string{"a"})
	assert.Equal(t, Single, single.Kind())
	assert.Equal(t, 1, single.Len())

	multi := FromMatches([]string{"a", "b"})
	assert.Equal(t, Multi, multi.Kind())
	assert.Equal(t, "b", multi.At(1))
	_, ok := multi.Text()
	assert.False(t, ok)

	empty := MultiValue(nil)
	assert.Equal(t, Multi, empty.Kind())
	assert.True(t, empty.Empty())
	assert.Equal(t, "multi", empty.Kind().String())
}

func TestValue_CopiesInput(t *testing.T) {
	in := []string{"a", "b"}
	v := MultiValue(in)
	in[0] = "z"
	assert.Equal(t, []string{"a", "b"}, v.Texts())

	out := v.Texts()
	out[1] = "z"
	assert.Equal(t, "b", v.At(1))
}
