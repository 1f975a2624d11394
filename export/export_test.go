package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/chhz0/polytasks/types"
	"github.com/stretchr/testify/require"
)

var sample = []types.Task{
	{ID: "a", Text: "Buy milk", Completed: false},
	{ID: "b", Text: "Walk, the dog", Completed: true},
}

func TestExportJSONKeepsOrder(t *testing.T) {
	t.Parallel()

	out, err := Export(sample, "json")
	require.NoError(t, err)

	var got []types.Task
	require.NoError(t, json.Unmarshal(out, &got))
	require.Equal(t, sample, got)

	out, err = Export(nil, "JSON")
	require.NoError(t, err)
	require.JSONEq(t, "[]", string(out))
}

func TestExportCSVQuotesText(t *testing.T) {
	t.Parallel()

	out, err := Export(sample, "csv")
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"id", "text", "completed"},
		{"a", "Buy milk", "false"},
		{"b", "Walk, the dog", "true"},
	}, rows)
}

func TestExportPDFProducesDocument(t *testing.T) {
	t.Parallel()

	out, err := Export(sample, "pdf")
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestExportUnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := Export(sample, "xml")
	require.Error(t, err)
}

func TestCounter(t *testing.T) {
	t.Parallel()

	require.Equal(t, "0 tasks remaining", Counter(0))
	require.Equal(t, "1 task remaining", Counter(1))
	require.Equal(t, "2 tasks remaining", Counter(Remaining(append(sample, types.Task{ID: "c", Text: "x"}))))
	require.Equal(t, "application/pdf", ContentType("PDF"))
	require.Equal(t, "application/json", ContentType("json"))
}
