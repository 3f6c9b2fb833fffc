// Package report builds per-device summaries of stored processing
// results and renders them as a text report.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gonum.org/v1/gonum/stat"

	"medikon.dev/scan-pipeline/internal/store"
)

// DeviceStore is the device persistence the generator depends on.
type DeviceStore interface {
	List(ctx context.Context) ([]store.Device, error)
}

// ResultStore is the result persistence the generator depends on.
type ResultStore interface {
	ListByDevice(ctx context.Context, deviceID int32) ([]store.ProcessingResult, error)
}

// Generator builds reports from the store.
type Generator struct {
	logger  *slog.Logger
	devices DeviceStore
	results ResultStore
}

// Config holds the configuration for the Generator.
type Config struct {
	Logger  *slog.Logger
	Devices DeviceStore
	Results ResultStore
}

// DeviceSummary holds the aggregate statistics for one device.
type DeviceSummary struct {
	DeviceID     int32
	DeviceName   string
	ResultCount  int
	TotalSamples int64

	// Mean and sample standard deviation of the per-run averages.
	// Deviations are zero when fewer than two runs exist.
	MeanBefore   float64
	StdDevBefore float64
	MeanAfter    float64
	StdDevAfter  float64
}

// Report is a point-in-time summary of every registered device.
type Report struct {
	GeneratedAt  time.Time
	Devices      []DeviceSummary
	TotalResults int
}

// New creates a new Generator instance.
func New(cfg *Config) (*Generator, error) {
	if cfg == nil {
		return nil, errors.New("report config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Devices == nil {
		return nil, errors.New("device store cannot be nil")
	}

	if cfg.Results == nil {
		return nil, errors.New("result store cannot be nil")
	}

	return &Generator{
		logger:  cfg.Logger,
		devices: cfg.Devices,
		results: cfg.Results,
	}, nil
}

// Build reads every device and its results and computes the summary
// statistics.
func (g *Generator) Build(ctx context.Context) (*Report, error) {
	devices, err := g.devices.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	report := &Report{
		GeneratedAt: time.Now().UTC(),
		Devices:     make([]DeviceSummary, 0, len(devices)),
	}

	for i := range devices {
		device := &devices[i]

		results, err := g.results.ListByDevice(ctx, device.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list results for device %d: %w", device.ID, err)
		}

		report.Devices = append(report.Devices, summarize(device, results))
		report.TotalResults += len(results)
	}

	g.logger.Info("report built",
		"devices", len(report.Devices),
		"results", report.TotalResults,
	)

	return report, nil
}

// summarize aggregates one device's processing results.
func summarize(device *store.Device, results []store.ProcessingResult) DeviceSummary {
	summary := DeviceSummary{
		DeviceID:    device.ID,
		DeviceName:  device.DeviceName,
		ResultCount: len(results),
	}

	if len(results) == 0 {
		return summary
	}

	before := make([]float64, len(results))
	after := make([]float64, len(results))
	for i := range results {
		before[i] = results[i].AverageBeforeNormalization
		after[i] = results[i].AverageAfterNormalization
		summary.TotalSamples += int64(results[i].DataSize)
	}

	summary.MeanBefore = stat.Mean(before, nil)
	summary.MeanAfter = stat.Mean(after, nil)
	if len(results) > 1 {
		summary.StdDevBefore = stat.StdDev(before, nil)
		summary.StdDevAfter = stat.StdDev(after, nil)
	}

	return summary
}

// Write renders the report as text.
func (r *Report) Write(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Scan processing report, generated %s\n",
		r.GeneratedAt.Format(time.RFC3339)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Devices: %d  Results: %d\n\n",
		len(r.Devices), r.TotalResults); err != nil {
		return err
	}

	for i := range r.Devices {
		d := &r.Devices[i]
		if _, err := fmt.Fprintf(w, "Device %d: %s\n", d.DeviceID, d.DeviceName); err != nil {
			return err
		}
		if d.ResultCount == 0 {
			if _, err := fmt.Fprintf(w, "  no processing results\n\n"); err != nil {
				return err
			}
			continue
		}
		_, err := fmt.Fprintf(w,
			"  runs: %d  samples: %d\n"+
				"  avg before normalization: mean %.4f  stddev %.4f\n"+
				"  avg after normalization:  mean %.4f  stddev %.4f\n\n",
			d.ResultCount, d.TotalSamples,
			d.MeanBefore, d.StdDevBefore,
			d.MeanAfter, d.StdDevAfter,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// WriteFile writes the report to the given path.
func (r *Report) WriteFile(path string) error {
	file, err := os.Create(path) // #nosec G304 - path is the operator-chosen report destination
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}

	if err := r.Write(file); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}

	return nil
}
