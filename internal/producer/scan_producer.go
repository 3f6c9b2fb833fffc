// Package producer generates synthetic scan traffic and publishes it to
// the scan queue for load and integration testing.
package producer

import (
	"context"
	"encoding/json"
	"math/rand"

	"github.com/prometheus/client_golang/prometheus"

	"medikon.dev/scan-pipeline/pkg/generator"
	"medikon.dev/scan-pipeline/pkg/metrics"
	"medikon.dev/scan-pipeline/pkg/mq"
)

// Scan matrix dimension bounds for generated elements.
const (
	minRows = 8
	maxRows = 32
	minCols = 8
	maxCols = 64
)

// Producer manages a simulated device fleet and publishes scan elements
// to a message queue.
type Producer struct {
	MQClient mq.ClientInterface
	Devices  []*generator.ScannerDevice

	generators map[string]*generator.ScanDataGenerator
	metrics    *metrics.GeneratorMetrics // Optional metrics
}

// NewProducer creates a new producer with a random fleet of simulated
// scanner devices.
// Note: Uses math/rand for fleet generation which is acceptable for simulation data.
func NewProducer(mqClient mq.ClientInterface) *Producer {
	deviceCount := rand.Intn(5) + 1 // #nosec G404 - weak random is acceptable for test data generation
	devices := make([]*generator.ScannerDevice, 0, deviceCount)
	generators := make(map[string]*generator.ScanDataGenerator, deviceCount)
	for range deviceCount {
		device := generator.NewScannerDevice()
		if device == nil {
			continue
		}
		devices = append(devices, device)
		generators[device.Name] = generator.NewScanGenerator(device.Name)
	}

	return &Producer{
		MQClient:   mqClient,
		Devices:    devices,
		generators: generators,
	}
}

// SetMetrics sets the metrics collector for this producer.
// This should be called before publishing starts.
func (p *Producer) SetMetrics(m *metrics.GeneratorMetrics) {
	p.metrics = m
	if m != nil {
		m.DevicesSimulated.Add(float64(len(p.Devices)))
	}
}

// RandomScan generates a scan element for a random fleet device and
// publishes it to the message queue.
// Note: Uses math/rand for device selection which is acceptable for simulation data.
func (p *Producer) RandomScan(ctx context.Context) error {
	device := p.Devices[rand.Intn(len(p.Devices))] // #nosec G404 - weak random is acceptable for simulation

	// Track duration
	var timer *prometheus.Timer
	if p.metrics != nil {
		timer = prometheus.NewTimer(p.metrics.GenerationDuration.WithLabelValues(device.Modality))
		defer timer.ObserveDuration()
	}

	rows := minRows + rand.Intn(maxRows-minRows+1) // #nosec G404
	cols := minCols + rand.Intn(maxCols-minCols+1) // #nosec G404
	element := p.generators[device.Name].GenerateElement(rows, cols)

	message, err := json.Marshal(element)
	if err != nil {
		if p.metrics != nil {
			p.metrics.GenerationFailures.WithLabelValues(device.Modality, "marshal_error").Inc()
		}
		return err
	}

	if err := p.MQClient.Push(ctx, message); err != nil {
		if p.metrics != nil {
			p.metrics.GenerationFailures.WithLabelValues(device.Modality, "push_error").Inc()
		}
		return err
	}

	if p.metrics != nil {
		p.metrics.ScansGenerated.WithLabelValues(device.Modality).Inc()
		p.metrics.SamplesProduced.Add(float64(rows * cols))
	}

	return nil
}
