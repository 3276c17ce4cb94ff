package backfill

import "encoding/json"

// Version status values for the output's versionStatus column.
const (
	VersionStatusCurrent    = "current"
	VersionStatusSuperseded = "superseded"
)

// Row is one output record, keyed by column name.
type Row map[string]string

// RecordParser turns a fetched assembly report payload into an output row.
// Implementations own the field-extraction schema; the engine only
// guarantees the payload shape matches what current-version records use and
// tags each row with its version status.
type RecordParser interface {
	ToRow(payload json.RawMessage, versionStatus string) (Row, error)
}

// RecordParserFunc adapts a function to the RecordParser interface.
type RecordParserFunc func(payload json.RawMessage, versionStatus string) (Row, error)

// ToRow implements RecordParser.
func (f RecordParserFunc) ToRow(payload json.RawMessage, versionStatus string) (Row, error) {
	return f(payload, versionStatus)
}
