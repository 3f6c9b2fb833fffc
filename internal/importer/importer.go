// Package importer ingests scan batch files from disk. Each file holds
// one JSON batch of scan elements; elements run through the same ingest
// pipeline as the API and the queue worker.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"medikon.dev/scan-pipeline/internal/ingest"
	"medikon.dev/scan-pipeline/pkg/scan"
)

// Importer walks a directory of scan batch files and stores their
// processing results.
type Importer struct {
	logger    *slog.Logger
	processor *ingest.Processor
}

// Config holds the configuration for the Importer.
type Config struct {
	Logger    *slog.Logger
	Processor *ingest.Processor
}

// FileOutcome reports what happened to one batch file.
type FileOutcome struct {
	Path string
	// Stored is the number of elements persisted from the file.
	Stored int
	// Skipped is the number of elements dropped for invalid data.
	Skipped int
	// DevicesCreated counts devices registered on first sight.
	DevicesCreated int
	// Err is set when the file itself could not be read or parsed.
	Err error
}

// Summary aggregates the outcomes of one import run.
type Summary struct {
	Files          int
	FailedFiles    int
	Stored         int
	Skipped        int
	DevicesCreated int
}

// New creates a new Importer instance.
func New(cfg *Config) (*Importer, error) {
	if cfg == nil {
		return nil, errors.New("importer config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Processor == nil {
		return nil, errors.New("ingest processor cannot be nil")
	}

	return &Importer{
		logger:    cfg.Logger,
		processor: cfg.Processor,
	}, nil
}

// Run imports every *.json batch file in dir, in name order. Files that
// cannot be read or parsed are logged and skipped; the run continues.
// A storage failure aborts the run, since every remaining element would
// hit the same backend.
func (imp *Importer) Run(ctx context.Context, dir string) (Summary, []FileOutcome, error) {
	var summary Summary

	entries, err := os.ReadDir(dir)
	if err != nil {
		return summary, nil, fmt.Errorf("failed to read import directory: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)

	if len(files) == 0 {
		imp.logger.Warn("no batch files found", "dir", dir)
		return summary, nil, nil
	}

	outcomes := make([]FileOutcome, 0, len(files))
	for _, path := range files {
		outcome := imp.importFile(ctx, path)
		outcomes = append(outcomes, outcome)

		summary.Files++
		summary.Stored += outcome.Stored
		summary.Skipped += outcome.Skipped
		summary.DevicesCreated += outcome.DevicesCreated

		if outcome.Err != nil {
			if !isFileError(outcome.Err) {
				return summary, outcomes, fmt.Errorf("%s: %w", path, outcome.Err)
			}
			summary.FailedFiles++
			imp.logger.Error("skipping unreadable batch file",
				"path", path,
				"error", outcome.Err,
			)
		}
	}

	imp.logger.Info("import run completed",
		"files", summary.Files,
		"failed_files", summary.FailedFiles,
		"stored", summary.Stored,
		"skipped", summary.Skipped,
		"devices_created", summary.DevicesCreated,
	)

	return summary, outcomes, nil
}

// fileError marks problems with the batch file itself, as opposed to
// failures of the store behind it.
type fileError struct {
	err error
}

func (e *fileError) Error() string { return e.err.Error() }
func (e *fileError) Unwrap() error { return e.err }

func isFileError(err error) bool {
	var fe *fileError
	return errors.As(err, &fe)
}

// importFile ingests a single batch file, element by element in key
// order. Invalid elements are skipped and counted; the file keeps
// processing.
func (imp *Importer) importFile(ctx context.Context, path string) FileOutcome {
	outcome := FileOutcome{Path: path}

	raw, err := os.ReadFile(path) // #nosec G304 - path comes from the import directory listing
	if err != nil {
		outcome.Err = &fileError{err: fmt.Errorf("failed to read file: %w", err)}
		return outcome
	}

	var batch scan.Batch
	if err := json.Unmarshal(raw, &batch); err != nil {
		outcome.Err = &fileError{err: fmt.Errorf("failed to parse batch: %w", err)}
		return outcome
	}

	for _, key := range batch.Keys() {
		result, err := imp.processor.Process(ctx, batch[key])
		if err != nil {
			var invalid *ingest.InvalidElementError
			if errors.As(err, &invalid) {
				imp.logger.Warn("skipping invalid scan element",
					"path", path,
					"element", key,
					"error", err,
				)
				outcome.Skipped++
				continue
			}

			outcome.Err = fmt.Errorf("element %q: %w", key, err)
			return outcome
		}

		outcome.Stored++
		if result.DeviceCreated {
			outcome.DevicesCreated++
		}
	}

	imp.logger.Info("batch file imported",
		"path", path,
		"stored", outcome.Stored,
		"skipped", outcome.Skipped,
	)

	return outcome
}
