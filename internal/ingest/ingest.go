// Package ingest turns order files dropped into an inbox directory into jobs.
//
// Supported files:
//
//	.json  a list of entries, or {"entries": [...]}
//	.txt   one entry; the file name is the entry id
//	.eml   one entry; Subject and From are taken from the headers
package ingest

import (
	"context"

	"github.com/joseph-ayodele/orders-intake/internal/entity"
)

// Result is the per-file ingest outcome.
type Result struct {
	SourcePath   string
	JobID        string
	Entries      int
	Deduplicated bool
	HashHex      string
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// JobStarter creates a job for entries and schedules it.
type JobStarter interface {
	StartJob(ctx context.Context, entries []entity.Entry) (string, error)
}

// JobStarterFunc adapts a function to JobStarter.
type JobStarterFunc func(ctx context.Context, entries []entity.Entry) (string, error)

func (f JobStarterFunc) StartJob(ctx context.Context, entries []entity.Entry) (string, error) {
	return f(ctx, entries)
}
