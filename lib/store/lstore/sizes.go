package lstore

import (
	"math"
	"sync"
)

// sizeBoundaries are the upper bounds of the value size buckets, from 16 bytes to 64 MB.
// Larger values land in one additional bucket.
var sizeBoundaries = []int{
	16, 64, 256, 1024, 4096, // bytes
	16384, 65536, 262144, 1048576, // KB
	4194304, 16777216, 67108864, // MB
}

// valueSizes tracks the distribution of the sizes of added values in exponential buckets.
//
// Thread-safe: all methods are safe for concurrent use
type valueSizes struct {
	mu      sync.RWMutex
	buckets []int64
	count   int64
	sum     int64
}

func newValueSizes() *valueSizes {
	return &valueSizes{buckets: make([]int64, len(sizeBoundaries)+1)}
}

// add records a single value size
func (h *valueSizes) add(size int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	bucket := len(sizeBoundaries)
	for i, boundary := range sizeBoundaries {
		if size <= boundary {
			bucket = i
			break
		}
	}

	h.buckets[bucket]++
	h.count++
	h.sum += int64(size)
}

// mean returns the average size of all recorded values
func (h *valueSizes) mean() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 {
		return 0
	}
	return int(h.sum / h.count)
}

// percentile estimates the size below which p percent (0-100) of the values fall.
// The estimate is the middle of the bucket that holds the percentile.
func (h *valueSizes) percentile(p int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 || p < 0 || p > 100 {
		return 0
	}

	target := max(int64(math.Ceil(float64(h.count)*float64(p)/100.0)), 1)
	cumulative := int64(0)

	for i, count := range h.buckets {
		cumulative += count
		if cumulative < target {
			continue
		}
		switch {
		case i == 0:
			return sizeBoundaries[0] / 2
		case i < len(sizeBoundaries):
			return (sizeBoundaries[i-1] + sizeBoundaries[i]) / 2
		default:
			return sizeBoundaries[len(sizeBoundaries)-1] * 2
		}
	}

	return int(h.sum / h.count)
}
