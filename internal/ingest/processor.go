// Package ingest turns raw scan elements into stored processing
// results: parse, normalize, register the device, store the summary.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"medikon.dev/scan-pipeline/internal/store"
	"medikon.dev/scan-pipeline/pkg/metrics"
	"medikon.dev/scan-pipeline/pkg/normalize"
	"medikon.dev/scan-pipeline/pkg/scan"
)

// DeviceStore is the device persistence the processor depends on.
type DeviceStore interface {
	FindOrCreate(ctx context.Context, name string) (*store.Device, bool, error)
}

// ResultStore is the result persistence the processor depends on.
type ResultStore interface {
	Create(ctx context.Context, result *store.ProcessingResult) error
}

// Processor parses scan elements, normalizes their samples and stores
// the resulting statistics.
type Processor struct {
	logger  *slog.Logger
	devices DeviceStore
	results ResultStore
	source  string
	metrics *metrics.IngestMetrics // Optional metrics
}

// Config holds the configuration for the Processor.
type Config struct {
	Logger  *slog.Logger
	Devices DeviceStore
	Results ResultStore
	// Source labels this processor's entry point in metrics
	// (api, queue or import).
	Source string
}

// InvalidElementError marks an element that failed validation or
// normalization. Storage failures are returned unwrapped, so callers
// can tell bad input from a bad backend.
type InvalidElementError struct {
	Err error
}

func (e *InvalidElementError) Error() string {
	return e.Err.Error()
}

func (e *InvalidElementError) Unwrap() error {
	return e.Err
}

// Outcome describes one stored scan element.
type Outcome struct {
	Device        *store.Device
	Result        *store.ProcessingResult
	DeviceCreated bool
}

// BatchSummary reports how much of a batch was stored.
type BatchSummary struct {
	Processed      int
	DevicesCreated int
}

// NewProcessor creates a new Processor instance.
func NewProcessor(cfg *Config) (*Processor, error) {
	if cfg == nil {
		return nil, errors.New("processor config cannot be nil")
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

	if cfg.Source == "" {
		return nil, errors.New("source cannot be empty")
	}

	return &Processor{
		logger:  cfg.Logger,
		devices: cfg.Devices,
		results: cfg.Results,
		source:  cfg.Source,
	}, nil
}

// SetMetrics sets the metrics collector for this processor.
// This should be called before processing starts.
func (p *Processor) SetMetrics(m *metrics.IngestMetrics) {
	p.metrics = m
}

// Process validates one element, normalizes its samples and stores the
// summary under the element's device, registering the device on first
// sight.
func (p *Processor) Process(ctx context.Context, element scan.Element) (*Outcome, error) {
	// Track duration
	var timer *prometheus.Timer
	if p.metrics != nil {
		timer = prometheus.NewTimer(p.metrics.ProcessDuration.WithLabelValues(p.source))
		defer timer.ObserveDuration()
	}

	outcome, err := p.process(ctx, element)
	if err != nil {
		if p.metrics != nil {
			p.metrics.ElementsProcessed.WithLabelValues(p.source, "error").Inc()
		}
		return nil, err
	}

	if p.metrics != nil {
		p.metrics.ElementsProcessed.WithLabelValues(p.source, "success").Inc()
		p.metrics.ResultsStored.Inc()
		if outcome.DeviceCreated {
			p.metrics.DevicesCreated.Inc()
		}
	}

	return outcome, nil
}

func (p *Processor) process(ctx context.Context, element scan.Element) (*Outcome, error) {
	if err := element.Validate(); err != nil {
		return nil, &InvalidElementError{Err: err}
	}

	values, err := element.Values()
	if err != nil {
		return nil, &InvalidElementError{Err: err}
	}

	summary, err := normalize.Apply(values)
	if err != nil {
		return nil, &InvalidElementError{Err: err}
	}

	device, created, err := p.devices.FindOrCreate(ctx, element.DeviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to register device: %w", err)
	}
	if created {
		p.logger.Info("registered new device",
			"device_id", device.ID,
			"device_name", device.DeviceName,
		)
	}

	result := &store.ProcessingResult{
		DeviceID:                   device.ID,
		AverageBeforeNormalization: summary.AverageBefore,
		AverageAfterNormalization:  summary.AverageAfter,
		DataSize:                   int32(summary.DataSize),
	}
	if err := p.results.Create(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to store processing result: %w", err)
	}

	p.logger.Debug("scan element processed",
		"device_id", device.ID,
		"device_name", device.DeviceName,
		"data_size", result.DataSize,
		"average_before", result.AverageBeforeNormalization,
		"average_after", result.AverageAfterNormalization,
	)

	return &Outcome{
		Device:        device,
		Result:        result,
		DeviceCreated: created,
	}, nil
}

// ProcessBatch processes a keyed batch of elements in key order. It
// stops at the first failure; elements stored before the failure stay
// stored.
func (p *Processor) ProcessBatch(ctx context.Context, batch scan.Batch) (BatchSummary, error) {
	var summary BatchSummary

	for _, key := range batch.Keys() {
		outcome, err := p.Process(ctx, batch[key])
		if err != nil {
			return summary, fmt.Errorf("element %q: %w", key, err)
		}

		summary.Processed++
		if outcome.DeviceCreated {
			summary.DevicesCreated++
		}
	}

	return summary, nil
}
