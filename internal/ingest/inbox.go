package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Inbox ingests order files. A file whose content was already ingested is
// reported as deduplicated and starts no job.
type Inbox struct {
	starter     JobStarter
	logger      *slog.Logger
	AllowedExts map[string]struct{} // lowercased sans '.'; nil -> default set

	mu   sync.Mutex
	seen map[string]string // content hash -> job id
}

func NewInbox(starter JobStarter, logger *slog.Logger) *Inbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{starter: starter, logger: logger, seen: map[string]string{}}
}

func (i *Inbox) IngestPath(ctx context.Context, path string) (Result, error) {
	out := Result{SourcePath: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	out.SourcePath = abs
	if !allowed(abs, i.AllowedExts) {
		return out, fmt.Errorf("unsupported or missing extension: %q", filepath.Ext(abs))
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return out, fmt.Errorf("read: %w", err)
	}
	sum := sha256.Sum256(data)
	out.HashHex = hex.EncodeToString(sum[:])

	i.mu.Lock()
	if jobID, ok := i.seen[out.HashHex]; ok {
		i.mu.Unlock()
		out.JobID, out.Deduplicated = jobID, true
		i.logger.Info("ingest.file.dedup", "path", abs, "job_id", jobID)
		return out, nil
	}
	i.mu.Unlock()

	entries, err := parseFile(abs, data)
	if err != nil {
		return out, err
	}
	out.Entries = len(entries)

	jobID, err := i.starter.StartJob(ctx, entries)
	if err != nil {
		return out, fmt.Errorf("start job: %w", err)
	}
	out.JobID = jobID

	i.mu.Lock()
	i.seen[out.HashHex] = jobID
	i.mu.Unlock()

	i.logger.Info("ingest.file.ok", "path", abs, "job_id", jobID, "entries", len(entries))
	return out, nil
}

// IngestDirectory walks root, skips hidden if requested,
// and calls IngestPath for each file. Returns per-file results + aggregate stats.
func (i *Inbox) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]Result, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []Result
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, Result{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !allowed(path, i.AllowedExts) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			r.Err = err.Error()
			results = append(results, r)
			stats.Failed++
			i.logger.Warn("ingest.file.failed", "path", path, "err", err)
			return nil
		}
		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}
