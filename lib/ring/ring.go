// Package ring provides a fixed-capacity ring of integer samples with an
// O(1) running sum, for sliding-window averages over recent measurements.
package ring

// DefaultCapacity is the window size used for frame timing series.
const DefaultCapacity = 31

// Buffer is a fixed-size circular buffer of int64 samples. Adding a sample
// beyond capacity evicts the oldest one. The running sum is updated in O(1)
// on every Add, so Average never walks the samples.
//
// Buffer is not safe for concurrent use; callers own it from a single loop.
type Buffer struct {
	samples []int64
	sum     int64
	count   int64
	head    int
}

// New creates a buffer holding at most capacity samples.
// A capacity of zero or less falls back to DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		samples: make([]int64, capacity),
	}
}

// Add records a new sample, evicting the oldest when the buffer is full.
func (b *Buffer) Add(value int64) {
	old := b.samples[b.head]
	b.samples[b.head] = value
	b.sum += value - old
	b.count++
	b.head++
	if b.head >= len(b.samples) {
		b.head = 0
	}
}

// Average returns the mean of the currently held samples. The second
// return value is false when no samples have been recorded yet.
func (b *Buffer) Average() (int64, bool) {
	switch {
	case b.count == 0:
		return 0, false
	case b.count < int64(len(b.samples)):
		return b.sum / b.count, true
	default:
		return b.sum / int64(len(b.samples)), true
	}
}

// Len returns the number of samples currently held, capped at capacity.
func (b *Buffer) Len() int {
	if b.count < int64(len(b.samples)) {
		return int(b.count)
	}
	return len(b.samples)
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return len(b.samples)
}

// Reset discards all samples.
func (b *Buffer) Reset() {
	for i := range b.samples {
		b.samples[i] = 0
	}
	b.sum = 0
	b.count = 0
	b.head = 0
}
