package vector

import (
	"fmt"

	"github.com/coder/hnsw"
)

// Metric selects how vector similarity is computed.
type Metric string

const (
	MetricCosine    Metric = "cosine"
	MetricEuclidean Metric = "euclidean"
)

// DeveloperConfig is the developer-authored definition of a vector
// index. It is persisted verbatim inside the index record and survives
// schema version changes.
type DeveloperConfig struct {
	// Dimension is the fixed length of every indexed vector.
	Dimension int `json:"dimension"`

	// Metric is the similarity metric. Defaults to cosine.
	Metric Metric `json:"metric,omitempty"`
}

// Validate checks the config for structural errors.
func (c DeveloperConfig) Validate() error {
	if c.Dimension <= 0 {
		return fmt.Errorf("vector index dimension must be positive, got %d", c.Dimension)
	}
	switch c.Metric {
	case "", MetricCosine, MetricEuclidean:
		return nil
	default:
		return fmt.Errorf("unsupported metric %q", c.Metric)
	}
}

func (c DeveloperConfig) distanceFunc() hnsw.DistanceFunc {
	if c.Metric == MetricEuclidean {
		return hnsw.EuclideanDistance
	}
	return hnsw.CosineDistance
}
