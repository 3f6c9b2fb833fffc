// Package generator produces synthetic imaging devices and scan data
// for load and integration testing.
package generator

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"medikon.dev/scan-pipeline/pkg/scan"
)

// Sample values are 12-bit, matching the acquisition hardware.
const maxSampleValue = 4095

// ScannerDevice describes a simulated imaging device.
type ScannerDevice struct {
	Name      string
	Timestamp time.Time
	Modality  string `fake:"{randomstring:[MRI,CT,XR,US,PET]}"`
	Hospital  string `fake:"{company}"`
	City      string `fake:"{city}"`
	Serial    int    `fake:"{number:1000,9999}"`
}

// ScanDataGenerator produces scan sample matrices for a single device.
type ScanDataGenerator struct {
	deviceName    string
	baseline      float64
	noise         float64
	gainDrift     float64 // Simulates detector gain drifting across rows
	hotPixelRate  float64
	deadPixelRate float64
}

// NewScannerDevice creates a simulated device with a fleet-style name
// such as MRI-SPRING-4821.
func NewScannerDevice() *ScannerDevice {
	var device ScannerDevice
	err := gofakeit.Struct(&device)
	if err != nil {
		return nil
	}
	device.Timestamp = time.Now()
	device.Name = fmt.Sprintf("%s-%s-%d", device.Modality, siteCode(device.City), device.Serial)
	return &device
}

// siteCode derives a short site tag from a city name.
func siteCode(city string) string {
	cleaned := make([]rune, 0, 6)
	for _, r := range strings.ToUpper(city) {
		if r >= 'A' && r <= 'Z' {
			cleaned = append(cleaned, r)
		}
		if len(cleaned) == 6 {
			break
		}
	}
	if len(cleaned) == 0 {
		return "SITE"
	}
	return string(cleaned)
}

// NewScanGenerator creates a generator with per-device acquisition
// characteristics.
// Note: Uses math/rand which is acceptable for simulation data.
func NewScanGenerator(deviceName string) *ScanDataGenerator {
	return &ScanDataGenerator{
		deviceName:    deviceName,
		baseline:      400 + rand.Float64()*1600,         // #nosec G404 - weak random is acceptable for test data generation
		noise:         20 + rand.Float64()*60,            // Detector noise amplitude
		gainDrift:     (rand.Float64() - 0.5) * 0.1,      // Up to ±5% across the field
		hotPixelRate:  0.002 + rand.Float64()*0.003,      // 0.2-0.5% hot pixels
		deadPixelRate: 0.001 + rand.Float64()*0.004,      // 0.1-0.5% dead pixels
	}
}

// GenerateSample produces one detector sample at the given position in
// a rows x cols field.
func (g *ScanDataGenerator) GenerateSample(row, col, rows, cols int) int {
	// Field falloff (brightest at the centre of the field of view)
	ry := (float64(row)/float64(rows-1) - 0.5) * 2
	rx := (float64(col)/float64(cols-1) - 0.5) * 2
	if rows == 1 {
		ry = 0
	}
	if cols == 1 {
		rx = 0
	}
	falloff := 1 - 0.3*(rx*rx+ry*ry)

	// Gain drift across rows
	drift := 1 + g.gainDrift*float64(row)/float64(rows)

	// Random noise
	noise := (rand.Float64() - 0.5) * 2 * g.noise // #nosec G404 - weak random is acceptable for simulation

	value := g.baseline*falloff*drift + noise

	// Hot pixels saturate the detector
	if rand.Float64() < g.hotPixelRate { // #nosec G404
		value = maxSampleValue - rand.Float64()*50
	}

	// Dead pixels read out as zero
	if rand.Float64() < g.deadPixelRate { // #nosec G404
		value = 0
	}

	// Clamp to the detector range
	value = math.Max(0, math.Min(maxSampleValue, value))

	return int(math.Round(value))
}

// GenerateRow produces one space-separated row of samples.
func (g *ScanDataGenerator) GenerateRow(row, rows, cols int) string {
	samples := make([]string, cols)
	for col := 0; col < cols; col++ {
		samples[col] = strconv.Itoa(g.GenerateSample(row, col, rows, cols))
	}
	return strings.Join(samples, " ")
}

// GenerateElement produces a complete scan element with a rows x cols
// sample matrix.
func (g *ScanDataGenerator) GenerateElement(rows, cols int) scan.Element {
	data := make([]string, rows)
	for row := 0; row < rows; row++ {
		data[row] = g.GenerateRow(row, rows, cols)
	}
	return scan.Element{
		DeviceName: g.deviceName,
		Data:       data,
	}
}
