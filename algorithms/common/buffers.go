package common

// RingBuffer is a bounded sample buffer that keeps the most recent samples.
// Writing past capacity drops the oldest samples. It also counts every
// sample ever written so callers can address samples by absolute position.
type RingBuffer struct {
	buffer   []float64
	size     int
	writePos int
	count    int
	total    int64
}

// NewRingBuffer creates a ring holding at most size samples
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = 1
	}
	return &RingBuffer{
		buffer: make([]float64, size),
		size:   size,
	}
}

// Write appends data, overwriting the oldest samples when full
func (rb *RingBuffer) Write(data []float64) {
	if len(data) >= rb.size {
		copy(rb.buffer, data[len(data)-rb.size:])
		rb.writePos = 0
		rb.count = rb.size
		rb.total += int64(len(data))
		return
	}

	for _, sample := range data {
		rb.buffer[rb.writePos] = sample
		rb.writePos = (rb.writePos + 1) % rb.size
		if rb.count < rb.size {
			rb.count++
		}
	}
	rb.total += int64(len(data))
}

// Tail copies out the most recent n samples (or everything held when fewer)
// in chronological order.
func (rb *RingBuffer) Tail(n int) []float64 {
	if n > rb.count || n < 0 {
		n = rb.count
	}
	out := make([]float64, n)
	start := (rb.writePos - n + rb.size) % rb.size
	for i := range n {
		out[i] = rb.buffer[(start+i)%rb.size]
	}
	return out
}

// Len returns the number of samples currently held
func (rb *RingBuffer) Len() int {
	return rb.count
}

// Capacity returns the maximum number of samples held
func (rb *RingBuffer) Capacity() int {
	return rb.size
}

// Total returns the number of samples written since creation or the last Reset
func (rb *RingBuffer) Total() int64 {
	return rb.total
}

// Reset empties the buffer
func (rb *RingBuffer) Reset() {
	rb.writePos = 0
	rb.count = 0
	rb.total = 0
}
