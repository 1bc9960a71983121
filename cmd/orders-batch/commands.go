package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/orders-intake/internal/async"
	"github.com/joseph-ayodele/orders-intake/internal/common"
	"github.com/joseph-ayodele/orders-intake/internal/core"
	"github.com/joseph-ayodele/orders-intake/internal/entity"
	"github.com/joseph-ayodele/orders-intake/internal/ingest"
	"github.com/joseph-ayodele/orders-intake/internal/orders"
	"github.com/joseph-ayodele/orders-intake/internal/reference"
	"github.com/joseph-ayodele/orders-intake/internal/repository"
)

func migrateCmd() *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := common.LoadConfig()
			db, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if down {
				return db.MigrateDown()
			}
			return db.Migrate()
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "revert every migration")
	return cmd
}

func seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace reference data with the contents of a JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var b reference.Bundle
			if err := readJSON(file, &b); err != nil {
				return err
			}
			cfg := common.LoadConfig()
			db, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			b.Index()
			if err := repository.NewReferenceRepository(db, logger).Seed(cmd.Context(), &b); err != nil {
				return err
			}
			fmt.Printf("seeded %d customers, %d families, %d colors, %d options\n",
				len(b.Customers), len(b.Families), len(b.Colors), len(b.Options))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "reference bundle JSON (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runCmd() *cobra.Command {
	var input, xlsxOut, summaryOut string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Extract orders from an entries file and hold them for review",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var entries []entity.Entry
			if err := readJSON(input, &entries); err != nil {
				return err
			}
			ctx := cmd.Context()
			return withDeps(ctx, true, func(d *core.Deps) error {
				job, err := d.Processor.CreateJob(ctx, entries)
				if err != nil {
					return err
				}
				if err := d.Processor.RunJob(ctx, job.ID); err != nil {
					return err
				}
				batch, err := d.Processor.Review(ctx, job.ID)
				if err != nil {
					return err
				}
				valid, invalid := orders.Partition(batch.Records)

				if xlsxOut != "" {
					data, err := d.Exporter.OrdersXLSX(valid, invalid)
					if err != nil {
						return err
					}
					if err := os.WriteFile(xlsxOut, data, 0o644); err != nil {
						return fmt.Errorf("write %s: %w", xlsxOut, err)
					}
				}
				if summaryOut != "" {
					job, err = d.Processor.Job(ctx, job.ID)
					if err != nil {
						return err
					}
					summary := ""
					if job.FailureSummary != nil {
						summary = *job.FailureSummary
					}
					if err := os.WriteFile(summaryOut, []byte(summary), 0o644); err != nil {
						return fmt.Errorf("write %s: %w", summaryOut, err)
					}
				}
				fmt.Printf("job %s awaiting review: %d valid, %d invalid records\n", job.ID, len(valid), len(invalid))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "entries JSON file (required)")
	cmd.Flags().StringVar(&xlsxOut, "xlsx", "", "write extracted records to this XLSX file")
	cmd.Flags().StringVar(&summaryOut, "summary", "", "write the markdown failure summary to this file")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func approveCmd() *cobra.Command {
	var jobFlag, edits string
	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Approve a job's review batch, optionally with edited records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := parseJob(jobFlag)
			if err != nil {
				return err
			}
			var edited []entity.OrderRecord
			if edits != "" {
				if err := readJSON(edits, &edited); err != nil {
					return err
				}
			}
			ctx := cmd.Context()
			return withDeps(ctx, false, func(d *core.Deps) error {
				res, err := d.Processor.Approve(ctx, id, edited)
				if err != nil {
					return err
				}
				fmt.Printf("job %s completed: %d orders saved, %d invalid\n", id, len(res.Valid), len(res.Invalid))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&jobFlag, "job", "", "job id (required)")
	cmd.Flags().StringVar(&edits, "edits", "", "JSON file with edited records")
	_ = cmd.MarkFlagRequired("job")
	return cmd
}

func rejectCmd() *cobra.Command {
	var jobFlag string
	cmd := &cobra.Command{
		Use:   "reject",
		Short: "Reject a job's review batch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := parseJob(jobFlag)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return withDeps(ctx, false, func(d *core.Deps) error {
				if err := d.Processor.Reject(ctx, id); err != nil {
					return err
				}
				fmt.Printf("job %s rejected\n", id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&jobFlag, "job", "", "job id (required)")
	_ = cmd.MarkFlagRequired("job")
	return cmd
}

func exportCmd() *cobra.Command {
	var jobFlag, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a completed job's saved orders to XLSX",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := parseJob(jobFlag)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return withDeps(ctx, false, func(d *core.Deps) error {
				data, err := d.Exporter.JobXLSX(ctx, id)
				if err != nil {
					return err
				}
				return os.WriteFile(out, data, 0o644)
			})
		},
	}
	cmd.Flags().StringVar(&jobFlag, "job", "", "job id (required)")
	cmd.Flags().StringVar(&out, "out", "orders.xlsx", "output XLSX path")
	_ = cmd.MarkFlagRequired("job")
	return cmd
}

func ingestCmd() *cobra.Command {
	var dir string
	var workers int
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Start a job for every order file in a directory and wait for extraction",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, true, func(d *core.Deps) error {
				queue := async.NewProcessorQueue(d.Processor, logger, async.WithWorkers(workers))
				inbox := ingest.NewInbox(ingest.JobStarterFunc(func(ctx context.Context, entries []entity.Entry) (string, error) {
					job, err := d.Processor.CreateJob(ctx, entries)
					if err != nil {
						return "", err
					}
					return job.ID.String(), queue.Enqueue(ctx, async.Job{JobID: job.ID, SubmittedAt: time.Now()})
				}), logger)

				results, stats, err := inbox.IngestDirectory(ctx, dir, true)
				queue.Shutdown(ctx)
				if err != nil {
					return err
				}
				for _, r := range results {
					switch {
					case r.Err != "":
						fmt.Printf("FAIL  %s: %s\n", r.SourcePath, r.Err)
					case r.Deduplicated:
						fmt.Printf("DUP   %s (job %s)\n", r.SourcePath, r.JobID)
					default:
						fmt.Printf("OK    %s -> job %s (%d entries)\n", r.SourcePath, r.JobID, r.Entries)
					}
				}
				fmt.Printf("scanned %d, matched %d, jobs %d, duplicates %d, failed %d\n",
					stats.Scanned, stats.Matched, stats.Succeeded-stats.Deduplicated, stats.Deduplicated, stats.Failed)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory of .json, .txt or .eml order files (required)")
	cmd.Flags().IntVar(&workers, "workers", 2, "jobs extracted in parallel")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func parseJob(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: --job must be a UUID", common.ErrInvalidInput)
	}
	return id, nil
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: parse %s: %v", common.ErrInvalidInput, path, err)
	}
	return nil
}
