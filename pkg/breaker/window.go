package breaker

import "time"

// callRecord is the outcome of one completed call through a breaker.
// Records are owned exclusively by their breaker's sliding window.
type callRecord struct {
	timestamp time.Time
	duration  time.Duration
	failure   bool
}

// slidingWindow is a fixed-capacity ring buffer of recent call outcomes.
//
// It retains at most capacity records, evicting the oldest record first when
// full. It is not safe for concurrent use on its own; the owning breaker's
// mutex guards all access.
type slidingWindow struct {
	records  []callRecord
	capacity int
	head     int // index of the oldest record
	count    int // number of retained records
}

// newSlidingWindow creates a window retaining at most capacity records.
func newSlidingWindow(capacity int) *slidingWindow {
	return &slidingWindow{
		records:  make([]callRecord, capacity),
		capacity: capacity,
	}
}

// record appends a call outcome, evicting the oldest record when the window
// is at capacity. O(1).
func (w *slidingWindow) record(rec callRecord) {
	if w.capacity == 0 {
		return
	}

	if w.count < w.capacity {
		w.records[(w.head+w.count)%w.capacity] = rec
		w.count++
		return
	}

	// At capacity: overwrite the oldest slot and advance the head.
	w.records[w.head] = rec
	w.head = (w.head + 1) % w.capacity
}

// size returns the number of retained records.
func (w *slidingWindow) size() int {
	return w.count
}

// failureRate returns the fraction of retained records that failed.
// It returns 0 for an empty window.
func (w *slidingWindow) failureRate() float64 {
	if w.count == 0 {
		return 0
	}

	failures := 0
	for i := 0; i < w.count; i++ {
		if w.records[(w.head+i)%w.capacity].failure {
			failures++
		}
	}

	return float64(failures) / float64(w.count)
}

// slowCallRate returns the fraction of retained records whose duration met
// or exceeded the slow-call threshold. It returns 0 for an empty window.
func (w *slidingWindow) slowCallRate(slowCallDuration time.Duration) float64 {
	if w.count == 0 {
		return 0
	}

	slow := 0
	for i := 0; i < w.count; i++ {
		if w.records[(w.head+i)%w.capacity].duration >= slowCallDuration {
			slow++
		}
	}

	return float64(slow) / float64(w.count)
}

// reset discards all retained records.
func (w *slidingWindow) reset() {
	w.head = 0
	w.count = 0
}
