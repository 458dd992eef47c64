package supplier

import (
	"context"
	"time"
)

// RecordBuffer is the shared, fixed-capacity FIFO that every partition
// worker enqueues into and that Poll drains from. It is backed by a
// buffered channel: channel capacity bounds the buffer, and select with a
// timer gives the blocking-offer and blocking-first-then-nonblocking-drain
// semantics without a hand-rolled mutex+condvar queue.
type RecordBuffer struct {
	ch chan OrderedRecord
}

// NewRecordBuffer creates a buffer with the given fixed capacity.
func NewRecordBuffer(capacity int) *RecordBuffer {
	return &RecordBuffer{ch: make(chan OrderedRecord, capacity)}
}

// Offer attempts to enqueue rec, waiting up to timeout. It reports whether
// the record was accepted. A canceled ctx interrupts a blocking offer
// immediately, distinct from the offer simply timing out — callers can tell
// the two apart via ctx.Err() after Offer returns false.
func (b *RecordBuffer) Offer(ctx context.Context, rec OrderedRecord, timeout time.Duration) bool {
	if timeout <= 0 {
		select {
		case b.ch <- rec:
			return true
		default:
			return false
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case b.ch <- rec:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// Drain removes up to max records, waiting up to timeout for the first one;
// subsequent removals (up to max) are non-blocking. It returns the records
// removed, in FIFO order.
func (b *RecordBuffer) Drain(max int, timeout time.Duration) []OrderedRecord {
	if max <= 0 {
		return nil
	}

	out := make([]OrderedRecord, 0, max)

	var first OrderedRecord
	var ok bool

	if timeout <= 0 {
		select {
		case first, ok = <-b.ch:
		default:
			return out
		}
	} else {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case first, ok = <-b.ch:
		case <-timer.C:
			return out
		}
	}

	if !ok {
		return out
	}
	out = append(out, first)

	for len(out) < max {
		select {
		case rec, ok := <-b.ch:
			if !ok {
				return out
			}
			out = append(out, rec)
		default:
			return out
		}
	}

	return out
}

// drainAllNonBlocking removes every record currently buffered without
// blocking. Used only by the reseek protocol, whose scheduler-shutdown fence
// guarantees no worker is concurrently offering into this buffer.
func (b *RecordBuffer) drainAllNonBlocking() []OrderedRecord {
	var out []OrderedRecord
	for {
		select {
		case rec := <-b.ch:
			out = append(out, rec)
		default:
			return out
		}
	}
}

// Len reports the number of records currently buffered.
func (b *RecordBuffer) Len() int {
	return len(b.ch)
}

// Cap reports the buffer's fixed capacity.
func (b *RecordBuffer) Cap() int {
	return cap(b.ch)
}
