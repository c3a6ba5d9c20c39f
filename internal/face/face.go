// Package face compares face descriptor vectors and talks to the external
// face-embedding extractor.
package face

import (
	"errors"
	"math"
)

// ErrDimensionMismatch is returned when two descriptors have different lengths.
var ErrDimensionMismatch = errors.New("face: descriptor dimension mismatch")

// DefaultThreshold is the maximum Euclidean distance accepted as a match.
const DefaultThreshold = 0.6

// Descriptor is a fixed-length numeric embedding of a face. Descriptors are
// only comparable when produced by the same extractor model.
type Descriptor []float64

// EuclideanDistance returns the L2 distance between a and b.
func EuclideanDistance(a, b Descriptor) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// Match reports whether the distance between stored and probe is within
// threshold. The threshold is inclusive: a distance exactly at the threshold
// accepts.
func Match(stored, probe Descriptor, threshold float64) (bool, float64, error) {
	dist, err := EuclideanDistance(stored, probe)
	if err != nil {
		return false, 0, err
	}
	return dist <= threshold, dist, nil
}
