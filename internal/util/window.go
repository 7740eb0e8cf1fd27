package util

import (
	"math"
	"time"

	"github.com/bits-and-blooms/bitset"
)

// Window tallies recent success/failure outcomes for circuit breaker thresholding.
type Window interface {
	ExecutionCount() uint
	FailureCount() uint
	FailureRate() uint
	SuccessCount() uint
	SuccessRate() uint
	RecordSuccess()
	RecordFailure()
	Reset()
}

// CountingWindow is a Window backed by a fixed-capacity bit-packed ring buffer: bit i records whether the outcome held
// in ring slot i was a success, each new outcome overwriting the oldest slot once the buffer is full.
type CountingWindow struct {
	bits         *bitset.BitSet
	capacity     uint
	currentIndex uint
	occupied     uint
	successes    uint
	failures     uint
}

// NewCountingWindow returns a CountingWindow with room for the last capacity outcomes.
func NewCountingWindow(capacity uint) *CountingWindow {
	if capacity == 0 {
		capacity = 1
	}
	return &CountingWindow{bits: bitset.New(capacity), capacity: capacity}
}

func (w *CountingWindow) indexAfter(i uint) uint {
	if i == w.capacity-1 {
		return 0
	}
	return i + 1
}

func (w *CountingWindow) setNext(success bool) {
	var previous int // -1 unset, 0 failure, 1 success
	if w.occupied < w.capacity {
		w.occupied++
		previous = -1
	} else if w.bits.Test(w.currentIndex) {
		previous = 1
	} else {
		previous = 0
	}

	w.bits.SetTo(w.currentIndex, success)
	w.currentIndex = w.indexAfter(w.currentIndex)

	if success {
		if previous != 1 {
			w.successes++
		}
		if previous == 0 {
			w.failures--
		}
	} else {
		if previous != 0 {
			w.failures++
		}
		if previous == 1 {
			w.successes--
		}
	}
}

func (w *CountingWindow) ExecutionCount() uint { return w.occupied }
func (w *CountingWindow) FailureCount() uint   { return w.failures }
func (w *CountingWindow) SuccessCount() uint   { return w.successes }

func (w *CountingWindow) FailureRate() uint {
	if w.occupied == 0 {
		return 0
	}
	return uint(math.Round(float64(w.failures) / float64(w.occupied) * 100))
}

func (w *CountingWindow) SuccessRate() uint {
	if w.occupied == 0 {
		return 0
	}
	return uint(math.Round(float64(w.successes) / float64(w.occupied) * 100))
}

func (w *CountingWindow) RecordSuccess() { w.setNext(true) }
func (w *CountingWindow) RecordFailure() { w.setNext(false) }

func (w *CountingWindow) Reset() {
	w.bits.ClearAll()
	w.currentIndex = 0
	w.occupied = 0
	w.successes = 0
	w.failures = 0
}

// bucket is one time slice of a TimedWindow.
type bucket struct {
	successes uint
	failures  uint
	startTime int64
}

func (b *bucket) reset() { b.successes, b.failures = 0, 0 }

// TimedWindow is a Window that aggregates outcomes into a fixed number of time buckets spanning a rolling period,
// rotating out buckets older than the period.
type TimedWindow struct {
	now        func() time.Time
	bucketSize time.Duration
	period     time.Duration

	buckets      []bucket
	currentIndex int
	successes    uint
	failures     uint
}

// NewTimedWindow returns a TimedWindow dividing period into bucketCount buckets.
func NewTimedWindow(bucketCount int, period time.Duration, now func() time.Time) *TimedWindow {
	if bucketCount < 1 {
		bucketCount = 1
	}
	buckets := make([]bucket, bucketCount)
	start := now().UnixNano()
	for i := range buckets {
		buckets[i].startTime = -1
	}
	buckets[0].startTime = start
	return &TimedWindow{
		now:        now,
		bucketSize: period / time.Duration(bucketCount),
		period:     period,
		buckets:    buckets,
	}
}

func (w *TimedWindow) nextIndex() int {
	w.currentIndex = (w.currentIndex + 1) % len(w.buckets)
	return w.currentIndex
}

func (w *TimedWindow) currentBucket() *bucket {
	cur := &w.buckets[w.currentIndex]
	elapsed := w.now().UnixNano() - cur.startTime
	toMove := int(elapsed / w.bucketSize.Nanoseconds())
	if toMove > len(w.buckets) {
		w.Reset()
		return &w.buckets[w.currentIndex]
	}
	for i := 0; i < toMove; i++ {
		previous := cur
		cur = &w.buckets[w.nextIndex()]
		w.successes -= cur.successes
		w.failures -= cur.failures
		cur.reset()
		if previous.startTime+w.bucketSize.Nanoseconds() > 0 {
			cur.startTime = previous.startTime + w.bucketSize.Nanoseconds()
		}
	}
	return cur
}

func (w *TimedWindow) ExecutionCount() uint { return w.successes + w.failures }
func (w *TimedWindow) FailureCount() uint   { return w.failures }
func (w *TimedWindow) SuccessCount() uint   { return w.successes }

func (w *TimedWindow) FailureRate() uint {
	total := w.ExecutionCount()
	if total == 0 {
		return 0
	}
	return uint(math.Round(float64(w.failures) / float64(total) * 100))
}

func (w *TimedWindow) SuccessRate() uint {
	total := w.ExecutionCount()
	if total == 0 {
		return 0
	}
	return uint(math.Round(float64(w.successes) / float64(total) * 100))
}

func (w *TimedWindow) RecordSuccess() {
	w.currentBucket().successes++
	w.successes++
}

func (w *TimedWindow) RecordFailure() {
	w.currentBucket().failures++
	w.failures++
}

func (w *TimedWindow) Reset() {
	start := w.now().UnixNano()
	for i := range w.buckets {
		w.buckets[i].reset()
		w.buckets[i].startTime = start
		start += w.bucketSize.Nanoseconds()
	}
	w.currentIndex = 0
	w.successes = 0
	w.failures = 0
}
