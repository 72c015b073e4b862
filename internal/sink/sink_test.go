package sink

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/recordflat/pkg/table"
)

func sampleTable() *table.Table {
	t := table.New([]string{"name", "note"})
	t.Append(table.Row{table.Text("Ann"), table.Text(`says "hi", <b>`)})
	t.Append(table.Row{table.Text("Bob"), nil})
	return t
}

func TestEncode_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleTable(), EncodingCSV))
	assert.Equal(t, "name,note\nAnn,\"says \"\"hi\"\", <b>\"\nBob,\n", buf.String())
}

func TestEncode_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleTable(), EncodingJSON))
	assert.JSONEq(t, `{"columns":["name","note"],"rows":[["Ann","says \"hi\", <b>"],["Bob",null]]}`, buf.String())
}

func TestEncode_JSONL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleTable(), EncodingJSONL))
	assert.Equal(t, `{"name":"Ann","note":"says \"hi\", <b>"}`+"\n"+`{"name":"Bob","note":null}`+"\n", buf.String())
}

func TestEncode_JSONLDuplicateColumns(t *testing.T) {
	tbl := table.New([]string{"a", "b", "a"})
	tbl.Append(table.Row{table.Text("1"), table.Text("2"), table.Text("1")})

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, tbl, EncodingJSONL))
	assert.Equal(t, `{"a":"1","b":"2"}`+"\n", buf.String())
}

func TestEncode_Unknown(t *testing.T) {
	err := Encode(&bytes.Buffer{}, sampleTable(), "xlsx")
	assert.ErrorContains(t, err, "xlsx")
}

func TestCSVDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s, err := NewCSVDir(dir)
	require.NoError(t, err)

	require.NoError(t, s.Write(context.Background(), "people/list", sampleTable()))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(filepath.Join(dir, "people_list.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Bob,\n")
}

func TestJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	s, err := CreateJSONLines(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "a", sampleTable()))
	require.NoError(t, s.Write(ctx, "b", sampleTable()))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	require.Len(t, lines, 4)
	assert.Equal(t, `{"_table":"a","name":"Ann","note":"says \"hi\", <b>"}`, string(lines[0]))
	assert.Equal(t, `{"_table":"b","name":"Bob","note":null}`, string(lines[3]))
}

func TestSQLite(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "out.db"))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "people", sampleTable()))
	// Rewriting replaces the previous table.
	require.NoError(t, s.Write(ctx, "people", sampleTable()))

	var count int
	require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM "people"`).Scan(&count))
	assert.Equal(t, 2, count)

	var nulls int
	require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM "people" WHERE "note" IS NULL`).Scan(&nulls))
	assert.Equal(t, 1, nulls)
}

func TestSQLite_DuplicateColumns(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "out.db"))
	require.NoError(t, err)
	defer s.Close()

	tbl := table.New([]string{"a", "a", `we"ird`})
	tbl.Append(table.Row{table.Text("1"), table.Text("1"), nil})

	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "t", tbl))

	var a, a2 string
	require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT "a", "a_2" FROM "t"`).Scan(&a, &a2))
	assert.Equal(t, "1", a)
	assert.Equal(t, "1", a2)
}

func TestMulti(t *testing.T) {
	dir := t.TempDir()
	csvDir, err := NewCSVDir(dir)
	require.NoError(t, err)
	var buf bytes.Buffer

	m := Multi{csvDir, NewJSONLines(&buf)}
	require.NoError(t, m.Write(context.Background(), "people", sampleTable()))
	require.NoError(t, m.Close())

	assert.FileExists(t, filepath.Join(dir, "people.csv"))
	assert.Contains(t, buf.String(), `"_table":"people"`)
}

func TestColumnNames(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "a_2", "a_3"}, columnNames([]string{"a", "b", "a", "a"}))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "people_list", FileName("people/list"))
	assert.Equal(t, "table", FileName(".."))
	assert.Equal(t, "a.b-c_d", FileName("a.b-c_d"))
}
