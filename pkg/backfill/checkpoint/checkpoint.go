// Package checkpoint provides durable tracking of fully-processed root
// accessions, so an interrupted backfill run can resume without repeating
// or losing completed work.
package checkpoint

import (
	"encoding/json"
	"sort"
	"time"
)

// Version is the current checkpoint format version.
// Increment when making breaking changes to the checkpoint structure.
const Version = 1

// Checkpoint is the persisted set of completed root accessions.
// Membership is only granted once every discovered version of a root has
// been fetched and emitted; it is never revoked within a run.
type Checkpoint struct {
	Version      int       `json:"version"`
	ProcessedIDs []string  `json:"processed_ids"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Marshal serializes a checkpoint to JSON with a stable ID ordering.
func (c *Checkpoint) Marshal() ([]byte, error) {
	sort.Strings(c.ProcessedIDs)
	return json.MarshalIndent(c, "", "  ")
}

// Unmarshal deserializes a checkpoint from JSON.
func Unmarshal(data []byte) (*Checkpoint, error) {
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
