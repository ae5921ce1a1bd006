// Package chunk implements the Chunker (C4): partitions a deduped,
// homogeneous bucket into contiguous subsequences whose parameter
// footprint never exceeds the configured safe limit.
package chunk

import "fmt"

// Chunk is one contiguous subsequence, identified by its index within
// the bucket and its row count, for logging/error-attribution
// purposes (spec §4.6.2 step 5.c names chunks by (kind, chunk_index)).
type Chunk[T any] struct {
	Index int
	Rows  []T
}

// Split partitions n items into chunks of at most chunkSize, preserving
// input order. The final partial chunk is permitted (spec §4.4). It
// asserts the parameter-budget invariant at construction time: the
// caller must pass a chunkSize already validated against
// chunkSize*colsPerRow <= safeLimit (config.BatchConfig.Validate does
// this at startup); Split re-checks it here as the critical-path
// assertion spec §4.6.5 demands.
func Split[T any](items []T, chunkSize, colsPerRow, safeLimit int) ([]Chunk[T], error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkSize*colsPerRow > safeLimit {
		return nil, fmt.Errorf(
			"chunk size %d would result in %d parameters, exceeding safe limit of %d",
			chunkSize, chunkSize*colsPerRow, safeLimit,
		)
	}

	if len(items) == 0 {
		return nil, nil
	}

	chunks := make([]Chunk[T], 0, (len(items)+chunkSize-1)/chunkSize)
	for start, idx := 0, 0; start < len(items); start, idx = start+chunkSize, idx+1 {
		end := start + chunkSize
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, Chunk[T]{Index: idx, Rows: items[start:end]})
	}
	return chunks, nil
}
