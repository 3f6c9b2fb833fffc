// Package scan defines the wire format for scan submissions: the JSON
// payload accepted by the ingest API, published to the scan queue, and read
// from import files.
package scan

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrDeviceNameRequired is returned when an element has no device name.
	ErrDeviceNameRequired = errors.New("scan: device name is required")

	// ErrNoData is returned when an element carries no data rows.
	ErrNoData = errors.New("scan: no data rows")
)

// Element is one device submission: the device's name and the raw sample
// rows captured by the scanner. Each row is a line of space-separated
// integer samples, e.g. "78 83 21".
type Element struct {
	DeviceName string   `json:"deviceName"`
	Data       []string `json:"data"`
}

// Batch is the ingest payload: elements keyed by an arbitrary client label.
type Batch map[string]Element

// Validate checks that the element names a device and carries data rows.
func (e Element) Validate() error {
	if strings.TrimSpace(e.DeviceName) == "" {
		return ErrDeviceNameRequired
	}
	if len(e.Data) == 0 {
		return ErrNoData
	}
	return nil
}

// Values parses the element's data rows into a single flat sample slice.
// Rows must be non-blank and contain only integer tokens.
func (e Element) Values() ([]float64, error) {
	if len(e.Data) == 0 {
		return nil, ErrNoData
	}

	values := make([]float64, 0, len(e.Data))
	for i, row := range e.Data {
		fields := strings.Fields(row)
		if len(fields) == 0 {
			return nil, fmt.Errorf("scan: row %d is blank", i+1)
		}
		for _, field := range fields {
			sample, err := strconv.Atoi(field)
			if err != nil {
				return nil, fmt.Errorf("scan: row %d: invalid sample %q", i+1, field)
			}
			values = append(values, float64(sample))
		}
	}

	return values, nil
}

// Keys returns the batch's element keys in ascending order. Processing
// elements in key order keeps result creation deterministic for a batch.
func (b Batch) Keys() []string {
	keys := make([]string, 0, len(b))
	for key := range b {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
