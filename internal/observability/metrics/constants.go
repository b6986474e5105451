// Package metrics provides the Prometheus collectors for each component of the
// dataset explorer.
package metrics

// Histogram bucket layout constants.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms.
	BucketStart1ms = 0.001
	// BucketStart100ms is the starting bucket for 100ms histograms.
	BucketStart100ms = 0.1
	// BucketStart1KB is the starting bucket for byte size histograms.
	BucketStart1KB = 1024.0

	BucketFactor2 = 2
	BucketFactor4 = 4

	BucketCount8  = 8
	BucketCount10 = 10
	BucketCount12 = 12
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)
