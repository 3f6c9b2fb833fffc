// Package normalize implements peak normalization of scan samples and the
// summary statistics recorded for each processing run.
package normalize

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrNoSamples is returned when a scan contains no sample values.
	ErrNoSamples = errors.New("normalize: no samples")

	// ErrZeroPeak is returned when the peak sample value is zero, which
	// would make the scaling step divide by zero.
	ErrZeroPeak = errors.New("normalize: peak sample value is zero")
)

// Summary holds the statistics recorded for one normalization run.
type Summary struct {
	// AverageBefore is the mean of the raw sample values.
	AverageBefore float64
	// AverageAfter is the mean of the samples after scaling by the peak.
	AverageAfter float64
	// DataSize is the number of samples processed.
	DataSize int
}

// Apply scales the samples by their peak value and returns the mean before
// and after scaling together with the sample count. The input slice is not
// modified.
func Apply(values []float64) (Summary, error) {
	if len(values) == 0 {
		return Summary{}, ErrNoSamples
	}

	peak := floats.Max(values)
	if peak == 0 {
		return Summary{}, ErrZeroPeak
	}

	before := stat.Mean(values, nil)

	scaled := make([]float64, len(values))
	floats.ScaleTo(scaled, 1/peak, values)
	after := stat.Mean(scaled, nil)

	return Summary{
		AverageBefore: before,
		AverageAfter:  after,
		DataSize:      len(values),
	}, nil
}
