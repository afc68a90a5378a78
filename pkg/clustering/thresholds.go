package clustering

import (
	"errors"
	"fmt"
)

const (
	DefaultClusterThreshold = 0.90
	DefaultSimilarThreshold = 0.80
)

var ErrInvalidThresholds = errors.New("invalid clustering thresholds")

type Thresholds struct {
	Cluster float64
	Similar float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Cluster: DefaultClusterThreshold, Similar: DefaultSimilarThreshold}
}

// NewThresholds validates both values are within [0,1] and clamps similar so it never
// exceeds cluster.
func NewThresholds(cluster, similar float64) (Thresholds, error) {
	if !inUnitRange(cluster) {
		return Thresholds{}, fmt.Errorf("%w: cluster threshold %.4f outside [0,1]", ErrInvalidThresholds, cluster)
	}
	if !inUnitRange(similar) {
		return Thresholds{}, fmt.Errorf("%w: similar threshold %.4f outside [0,1]", ErrInvalidThresholds, similar)
	}
	if similar > cluster {
		similar = cluster
	}
	return Thresholds{Cluster: cluster, Similar: similar}, nil
}

// Validate is the strict form used at configuration boundaries: similar > cluster is rejected
// rather than clamped.
func (t Thresholds) Validate() error {
	if !inUnitRange(t.Cluster) || !inUnitRange(t.Similar) {
		return fmt.Errorf("%w: thresholds must be within [0,1]", ErrInvalidThresholds)
	}
	if t.Similar > t.Cluster {
		return fmt.Errorf("%w: similar threshold %.2f exceeds cluster threshold %.2f", ErrInvalidThresholds, t.Similar, t.Cluster)
	}
	return nil
}

// inUnitRange is false for NaN as well as for values outside [0,1].
func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}
