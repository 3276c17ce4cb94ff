package main

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genomehubs/backfill/pkg/backfill"
	"github.com/genomehubs/backfill/pkg/backfill/checkpoint"
)

func TestReportToRow(t *testing.T) {
	payload := json.RawMessage(`{
		"accession": "GCA_000002035.3",
		"paired_accession": "GCF_000002035.5",
		"organism": {"tax_id": 7955, "organism_name": "Danio rerio"},
		"assembly_info": {"assembly_name": "GRCz10", "release_date": "2014-09-09", "submitter": "Genome Reference Consortium"}
	}`)

	row, err := reportToRow(payload, backfill.VersionStatusSuperseded)
	require.NoError(t, err)

	assert.Equal(t, "GCA_000002035_3", row["assemblyId"])
	assert.Equal(t, "GCA_000002035.3", row["genbankAccession"])
	assert.Equal(t, "GCF_000002035.5", row["refseqAccession"])
	assert.Equal(t, "GRCz10", row["assemblyName"])
	assert.Equal(t, "7955", row["taxId"])
	assert.Equal(t, "Danio rerio", row["organismName"])
	assert.Equal(t, "2014-09-09", row["releaseDate"])
	assert.Equal(t, "superseded", row["versionStatus"])
}

func TestReportToRow_RefSeqAccessionSwapsPair(t *testing.T) {
	payload := json.RawMessage(`{
		"accession": "GCF_000001405.39",
		"paired_accession": "GCA_000001405.28",
		"organism": {"tax_id": 9606}
	}`)

	row, err := reportToRow(payload, backfill.VersionStatusSuperseded)
	require.NoError(t, err)
	assert.Equal(t, "GCA_000001405.28", row["genbankAccession"])
	assert.Equal(t, "GCF_000001405.39", row["refseqAccession"])
}

func TestReportToRow_RejectsEmptyReport(t *testing.T) {
	_, err := reportToRow(json.RawMessage(`{}`), backfill.VersionStatusSuperseded)
	require.Error(t, err)
}

func TestOpenCheckpoint_SelectsStoreByExtension(t *testing.T) {
	dir := t.TempDir()

	fileStore, err := openCheckpoint(filepath.Join(dir, "ckpt.json"))
	require.NoError(t, err)
	defer fileStore.Close()
	assert.IsType(t, &checkpoint.FileStore{}, fileStore)

	dbStore, err := openCheckpoint(filepath.Join(dir, "ckpt.db"))
	require.NoError(t, err)
	defer dbStore.Close()
	assert.IsType(t, &checkpoint.SQLiteStore{}, dbStore)
}
