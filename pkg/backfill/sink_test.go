package backfill_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genomehubs/backfill/pkg/backfill"
)

var testHeaders = []string{"genbankAccession", "taxId", "versionStatus"}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestTSVSink_WritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.tsv")

	sink, err := backfill.NewTSVSink(path, testHeaders)
	require.NoError(t, err)

	require.NoError(t, sink.Append([]backfill.Row{
		{"genbankAccession": "GCA_000002035.1", "taxId": "7955", "versionStatus": "superseded"},
	}))
	require.NoError(t, sink.Close())

	// Reopening for append must not duplicate the header.
	sink, err = backfill.NewTSVSink(path, testHeaders)
	require.NoError(t, err)
	require.NoError(t, sink.Append([]backfill.Row{
		{"genbankAccession": "GCA_000002035.2", "taxId": "7955", "versionStatus": "superseded"},
	}))
	require.NoError(t, sink.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 3)
	assert.Equal(t, "genbankAccession\ttaxId\tversionStatus", lines[0])
	assert.Equal(t, "GCA_000002035.1\t7955\tsuperseded", lines[1])
	assert.Equal(t, "GCA_000002035.2\t7955\tsuperseded", lines[2])
}

func TestTSVSink_GroupLandsTogether(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.tsv")

	sink, err := backfill.NewTSVSink(path, testHeaders)
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.Append([]backfill.Row{
		{"genbankAccession": "GCA_000000002.1", "taxId": "1", "versionStatus": "superseded"},
		{"genbankAccession": "GCA_000000002.2", "taxId": "1", "versionStatus": "superseded"},
	}))

	lines := readLines(t, path)
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "GCA_000000002.1")
	assert.Contains(t, lines[2], "GCA_000000002.2")
}

func TestTSVSink_MissingAndDirtyFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.tsv")

	sink, err := backfill.NewTSVSink(path, testHeaders)
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.Append([]backfill.Row{
		{"genbankAccession": "GCA_000000002.1", "versionStatus": "with\ttab\nand newline"},
	}))

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, "GCA_000000002.1\tNone\twith tab and newline", lines[1])
}

func TestTSVSink_EmptyAppendIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.tsv")

	sink, err := backfill.NewTSVSink(path, testHeaders)
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.Append(nil))

	lines := readLines(t, path)
	assert.Len(t, lines, 1)
}

func TestTSVSink_AppendAfterCloseFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.tsv")

	sink, err := backfill.NewTSVSink(path, testHeaders)
	require.NoError(t, err)
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	err = sink.Append([]backfill.Row{{"genbankAccession": "x"}})
	require.Error(t, err)
}

func TestNewTSVSink_RequiresHeaders(t *testing.T) {
	_, err := backfill.NewTSVSink(filepath.Join(t.TempDir(), "out.tsv"), nil)
	require.Error(t, err)
}
