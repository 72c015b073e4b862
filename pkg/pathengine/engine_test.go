package pathengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/recordflat/pkg/contenttype"
)

const peopleJSON = `{"people": [{"name": "Ann", "phones": ["1", "2"]}, {"name": "Bob"}]}`

const libraryXML = `<library>
  <book id="1"><author>Ann</author><author>Bob</author><title>T1</title></book>
  <book id="2"><title>T2</title></book>
</library>`

func parse(t *testing.T, eng Engine, data string) *Document {
	t.Helper()
	doc, err := eng.Parse([]byte(data))
	require.NoError(t, err)
	return doc
}

func texts(t *testing.T, eng Engine, recs []Record, ref string) [][]string {
	t.Helper()
	out := make([][]string, len(recs))
	for i, rec := range recs {
		v, err := eng.ExtractField(rec, ref)
		require.NoError(t, err)
		out[i] = v.Texts()
	}
	return out
}

func TestFor_Formats(t *testing.T) {
	for _, f := range []contenttype.Format{contenttype.JSON, contenttype.YAML, contenttype.XML, contenttype.HTML} {
		eng, err := For(f)
		require.NoError(t, err)
		assert.Equal(t, f, eng.Format())
	}

	_, err := For(contenttype.CSV)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRegistry_Get(t *testing.T) {
	reg := NewRegistry(WithCacheSize(8))

	eng, err := reg.Get(contenttype.XML)
	require.NoError(t, err)
	again, err := reg.Get(contenttype.XML)
	require.NoError(t, err)
	assert.Same(t, eng, again)

	_, err = reg.Get(contenttype.TSV)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestJSON_SelectRecords_JSONPath(t *testing.T) {
	eng := NewJSON()
	doc := parse(t, eng, peopleJSON)

	recs, err := eng.SelectRecords(doc, "$.people[*]")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Same(t, doc, recs[0].Document())

	// An iterator stopping on an array selects its elements.
	recs, err = eng.SelectRecords(doc, "$.people")
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestJSON_SelectRecords_NativeJQ(t *testing.T) {
	eng := NewJSON()
	doc := parse(t, eng, peopleJSON)

	recs, err := eng.SelectRecords(doc, `.people[] | select(.name == "Bob")`)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, [][]string{{"Bob"}}, texts(t, eng, recs, ".name"))

	recs, err = eng.SelectRecords(doc, "jq: .people[0]")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Ann"}}, texts(t, eng, recs, "name"))
}

func TestJSON_SelectRecords_NoMatch(t *testing.T) {
	eng := NewJSON()
	doc := parse(t, eng, peopleJSON)

	recs, err := eng.SelectRecords(doc, "$.missing[*]")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestJSON_ExtractField_Kinds(t *testing.T) {
	eng := NewJSON()
	doc := parse(t, eng, peopleJSON)
	recs, err := eng.SelectRecords(doc, "$.people[*]")
	require.NoError(t, err)

	v, err := eng.ExtractField(recs[0], "name")
	require.NoError(t, err)
	assert.Equal(t, Single, v.Kind())
	s, ok := v.Text()
	assert.True(t, ok)
	assert.Equal(t, "Ann", s)

	v, err = eng.ExtractField(recs[0], "phones")
	require.NoError(t, err)
	assert.Equal(t, Multi, v.Kind())
	assert.Equal(t, []string{"1", "2"}, v.Texts())

	v, err = eng.ExtractField(recs[1], "phones")
	require.NoError(t, err)
	assert.Equal(t, Absent, v.Kind())
	assert.True(t, v.Empty())
}

func TestJSON_ExtractField_DottedThroughArrays(t *testing.T) {
	eng := NewJSON()
	doc := parse(t, eng, `{"address": [{"city": "Oslo"}, {"city": "Rome"}, {"zip": "1"}]}`)
	recs, err := eng.SelectRecords(doc, "$")
	require.NoError(t, err)
	require.Len(t, recs, 1)

	assert.Equal(t, [][]string{{"Oslo", "Rome"}}, texts(t, eng, recs, "address.city"))
	assert.Equal(t, [][]string{{"Oslo", "Rome"}}, texts(t, eng, recs, "$..city"))
}

func TestJSON_ExtractField_SigilKeys(t *testing.T) {
	eng := NewJSON()
	doc := parse(t, eng, `{"items": [{"@id": "urn:a", "$ref": "#/b", "name": "A"}]}`)
	recs, err := eng.SelectRecords(doc, "$.items[*]")
	require.NoError(t, err)
	require.Len(t, recs, 1)

	assert.Equal(t, [][]string{{"urn:a"}}, texts(t, eng, recs, "@id"))
	assert.Equal(t, [][]string{{"#/b"}}, texts(t, eng, recs, "$ref"))
	assert.Equal(t, [][]string{{"urn:a"}}, texts(t, eng, recs, "['@id']"))
	assert.Equal(t, [][]string{{"A"}}, texts(t, eng, recs, "@.name"))
	assert.NoError(t, eng.ValidateReference("@id"))
}

func TestJSON_ExtractField_Rendering(t *testing.T) {
	eng := NewJSON()
	doc := parse(t, eng, `{"i": 1, "f": 2.5, "big": 12345678901234567890, "b": true, "o": {"x": "<1>"}, "n": null}`)
	recs, err := eng.SelectRecords(doc, "$")
	require.NoError(t, err)
	require.Len(t, recs, 1)

	cases := map[string]string{
		"i":   "1",
		"f":   "2.5",
		"big": "12345678901234567890",
		"b":   "true",
		"o":   `{"x":"<1>"}`,
	}
	for ref, want := range cases {
		assert.Equal(t, [][]string{{want}}, texts(t, eng, recs, ref), ref)
	}

	// null counts as no match
	assert.Equal(t, [][]string{{}}, texts(t, eng, recs, "n"))
}

func TestJSON_Parse_Invalid(t *testing.T) {
	eng := NewJSON()

	_, err := eng.Parse([]byte(`{"a": `))
	assert.ErrorIs(t, err, ErrSourceUnreadable)

	_, err = eng.Parse([]byte(`{} {}`))
	assert.ErrorIs(t, err, ErrSourceUnreadable)
}

func TestJSON_InvalidExpressions(t *testing.T) {
	eng := NewJSON()
	doc := parse(t, eng, peopleJSON)

	_, err := eng.SelectRecords(doc, "$.people[")
	assert.ErrorIs(t, err, ErrInvalidPath)

	var exprErr *ExprError
	require.ErrorAs(t, err, &exprErr)
	assert.Equal(t, "$.people[", exprErr.Expr)

	assert.ErrorIs(t, eng.ValidateReference(".name["), ErrInvalidReference)
	assert.ErrorIs(t, eng.ValidateIterator(""), ErrInvalidPath)
	assert.NoError(t, eng.ValidateIterator("$.people[*]"))
	assert.NoError(t, eng.ValidateReference("name"))
}

func TestJSON_WrongDocument(t *testing.T) {
	doc := parse(t, NewXML(), libraryXML)

	_, err := NewJSON().SelectRecords(doc, "$")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestJSON_CompiledExpressionsAreCached(t *testing.T) {
	eng := NewJSON().(*jsonEngine)

	require.NoError(t, eng.ValidateReference("name"))
	require.NoError(t, eng.ValidateReference("name"))
	require.NoError(t, eng.ValidateIterator("name"))
	assert.Equal(t, 2, eng.programs.Len())

	require.Error(t, eng.ValidateReference(".name["))
	assert.Equal(t, 2, eng.programs.Len())
}

func TestYAML_SelectAndExtract(t *testing.T) {
	eng := NewYAML()
	doc := parse(t, eng, `
people:
  - name: Ann
    age: 30
    joined: 2020-01-02T03:04:05Z
  - name: Bob
`)
	assert.Equal(t, contenttype.YAML, doc.Format())

	recs, err := eng.SelectRecords(doc, "$.people[*]")
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, [][]string{{"Ann"}, {"Bob"}}, texts(t, eng, recs, "name"))
	assert.Equal(t, [][]string{{"30"}, {}}, texts(t, eng, recs, "age"))
	assert.Equal(t, [][]string{{"2020-01-02T03:04:05Z"}, {}}, texts(t, eng, recs, "joined"))
}

func TestYAML_Parse_Invalid(t *testing.T) {
	_, err := NewYAML().Parse([]byte("a: [1, 2"))
	assert.ErrorIs(t, err, ErrSourceUnreadable)
}

func TestConvertYAMLToJSON(t *testing.T) {
	in := map[string]any{
		"n":    int64(3),
		"keys": map[any]any{1: "one"},
		"list": []any{uint64(4), "x"},
	}
	out := ConvertYAMLToJSON(in)
	assert.Equal(t, map[string]any{
		"n":    3,
		"keys": map[string]any{"1": "one"},
		"list": []any{4, "x"},
	}, out)
}

func TestXML_SelectRecords_DocumentOrder(t *testing.T) {
	eng := NewXML()
	doc := parse(t, eng, libraryXML)

	recs, err := eng.SelectRecords(doc, "/library/book")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, [][]string{{"1"}, {"2"}}, texts(t, eng, recs, "@id"))

	recs, err = eng.SelectRecords(doc, "//title | //author")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Ann"}, {"Bob"}, {"T1"}, {"T2"}}, texts(t, eng, recs, "."))
}

func TestXML_SelectRecords_AttributeSelectsOwner(t *testing.T) {
	eng := NewXML()
	doc := parse(t, eng, libraryXML)

	recs, err := eng.SelectRecords(doc, "//book/@id")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, [][]string{{"T1"}, {"T2"}}, texts(t, eng, recs, "title"))
}

func TestXML_ExtractField_Kinds(t *testing.T) {
	eng := NewXML()
	doc := parse(t, eng, libraryXML)
	recs, err := eng.SelectRecords(doc, "/library/book")
	require.NoError(t, err)
	require.Len(t, recs, 2)

	v, err := eng.ExtractField(recs[0], "author")
	require.NoError(t, err)
	assert.Equal(t, Multi, v.Kind())
	assert.Equal(t, []string{"Ann", "Bob"}, v.Texts())

	v, err = eng.ExtractField(recs[1], "author")
	require.NoError(t, err)
	assert.Equal(t, Absent, v.Kind())

	v, err = eng.ExtractField(recs[0], "count(author)")
	require.NoError(t, err)
	assert.Equal(t, Single, v.Kind())
	assert.Equal(t, []string{"2"}, v.Texts())
}

func TestXML_ExtractField_EmptyElementIsEmptyText(t *testing.T) {
	eng := NewXML()
	doc := parse(t, eng, `<r><x><n/></x><x><n></n><n>b</n></x><x/></r>`)
	recs, err := eng.SelectRecords(doc, "/r/x")
	require.NoError(t, err)
	require.Len(t, recs, 3)

	v, err := eng.ExtractField(recs[0], "n")
	require.NoError(t, err)
	assert.Equal(t, Single, v.Kind())
	assert.Equal(t, []string{""}, v.Texts())

	assert.Equal(t, [][]string{{""}, {"", "b"}, {}}, texts(t, eng, recs, "n"))
}

func TestXML_ScalarIterator(t *testing.T) {
	eng := NewXML()
	doc := parse(t, eng, libraryXML)

	_, err := eng.SelectRecords(doc, "count(//book)")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestXML_InvalidExpressions(t *testing.T) {
	eng := NewXML()

	assert.ErrorIs(t, eng.ValidateIterator("/library/book["), ErrInvalidPath)
	assert.ErrorIs(t, eng.ValidateReference("author[@"), ErrInvalidReference)
	assert.ErrorIs(t, eng.ValidateReference("  "), ErrInvalidReference)
	assert.NoError(t, eng.ValidateReference("@id"))
}

func TestXML_Parse_NoRootElement(t *testing.T) {
	eng := NewXML()

	_, err := eng.Parse([]byte(""))
	assert.ErrorIs(t, err, ErrSourceUnreadable)

	_, err = eng.Parse([]byte("just text"))
	assert.ErrorIs(t, err, ErrSourceUnreadable)
}

func TestXML_WrongDocument(t *testing.T) {
	doc := parse(t, NewJSON(), peopleJSON)

	_, err := NewXML().SelectRecords(doc, "/a")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestHTML_TableRows(t *testing.T) {
	eng := NewHTML()
	doc := parse(t, eng, `<html><body><table>
<tr><td>a</td><td>b</td></tr>
<tr><td>c</td></tr>
</table></body></html>`)

	recs, err := eng.SelectRecords(doc, "//tr")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, texts(t, eng, recs, "td"))
}
