package supplier

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// PartitionResource is the per-assigned-partition state: an opaque cursor
// (nil once the shard is exhausted/closed), whether a
// tick has been armed since the last assign/reseek, and whether the caller
// has asked this worker to wind down. cursor is single-owner: written only
// by this partition's own worker tick, or by the façade during the
// scheduler-shutdown-fenced reseek protocol.
//
// ctx is canceled when the worker is stopped and when a reseek interrupts
// in-flight ticks (the reseek installs a fresh context before workers can be
// rearmed). It exists so a tick blocked inside buffer.Offer can be told "you
// were interrupted" rather than merely timing out — an interrupted offer
// drops the record without advancing the cursor, a timed-out offer rewinds
// the cursor to the unplaced record.
type PartitionResource struct {
	mu            sync.Mutex
	partition     StreamPartition
	cursor        *string
	started       bool
	stopRequested bool
	lastErr       error
	ctx           context.Context
	cancel        context.CancelFunc
}

func newPartitionResource(p StreamPartition) *PartitionResource {
	ctx, cancel := context.WithCancel(context.Background())
	return &PartitionResource{partition: p, ctx: ctx, cancel: cancel}
}

func (r *PartitionResource) snapshotCursor() *string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursor
}

func (r *PartitionResource) setCursor(c *string) {
	r.mu.Lock()
	r.cursor = c
	r.mu.Unlock()
}

func (r *PartitionResource) lastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

func (r *PartitionResource) context() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctx
}

// interrupt cancels the resource's context, unblocking a tick currently
// parked inside a blocking buffer offer. Unlike a stop it does not request
// the worker wind down: the reseek protocol interrupts every resource and
// then installs a fresh context via resetContext before workers can be
// rearmed.
func (r *PartitionResource) interrupt() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// resetContext replaces a context spent by interrupt so the next armed tick
// does not start out canceled.
func (r *PartitionResource) resetContext() {
	ctx, cancel := context.WithCancel(context.Background())
	r.mu.Lock()
	r.ctx = ctx
	r.cancel = cancel
	r.mu.Unlock()
}

// worker drives the fetch state machine for one partition. It
// holds no state of its own beyond a reference to its resource and the
// owning Supplier; PartitionResource is the only thing that survives across
// ticks.
type worker struct {
	sup *Supplier
	res *PartitionResource
}

// start arms the first tick for this partition. A no-op if a tick is
// already armed.
func (w *worker) start() {
	w.res.mu.Lock()
	already := w.res.started
	w.res.started = true
	w.res.stopRequested = false
	w.res.mu.Unlock()

	if already {
		return
	}

	w.log().Info("starting scheduled fetch for partition")
	w.rearm(w.sup.cfg.FetchDelay)
}

// stop requests this worker wind down: an in-flight tick does not rearm, and
// a tick that starts after the request marks the worker not-started and
// returns without fetching. Canceling the
// resource's context interrupts a tick currently blocked inside
// buffer.Offer, rather than letting it run to its full OfferTimeout.
func (w *worker) stop() {
	w.res.mu.Lock()
	w.res.stopRequested = true
	w.res.mu.Unlock()

	w.res.interrupt()
}

func (w *worker) log() *logrus.Entry {
	return w.sup.logger.WithFields(logrus.Fields{
		"stream":    w.res.partition.StreamID,
		"partition": w.res.partition.PartitionID,
	})
}

// rearm resubmits this worker's tick after delay, unless the worker is no
// longer started/has been asked to stop, or the scheduler rejects the
// submission — expected whenever a reseek has replaced the scheduler out
// from under this tick.
func (w *worker) rearm(delay time.Duration) {
	w.res.mu.Lock()
	shouldArm := w.res.started && !w.res.stopRequested
	w.res.mu.Unlock()

	if !shouldArm {
		return
	}

	sched := w.sup.currentScheduler()
	ctx := w.res.context()
	if err := sched.Schedule(func() { w.tick(ctx) }, delay); err != nil {
		w.log().Debug("scheduler rejected rearm, likely torn down by a concurrent seek or close")
	}
}

// fail marks the worker FAILED: records the error, stops rearming, and
// leaves started=false so a later assign/seek can bring it back to life.
func (w *worker) fail(err error) {
	w.res.mu.Lock()
	w.res.lastErr = err
	w.res.started = false
	w.res.mu.Unlock()

	w.log().WithError(err).Error("partition worker failed, will not retry")
}

// tick is the one-shot unit of work scheduled by Scheduler; it only ever
// rearms itself at the very end (or not at all), which is what keeps at
// most one tick in flight per partition.
func (w *worker) tick(ctx context.Context) {
	w.res.mu.Lock()
	stopRequested := w.res.stopRequested
	w.res.mu.Unlock()

	if stopRequested {
		w.res.mu.Lock()
		w.res.started = false
		w.res.stopRequested = false
		w.res.mu.Unlock()
		w.log().Info("worker stopped")
		return
	}

	cursor := w.res.snapshotCursor()

	if cursor == nil {
		accepted := w.sup.currentBuffer().Offer(ctx, endOfShardRecord(w.res.partition), w.sup.cfg.OfferTimeout)
		if !accepted {
			w.log().Warn("buffer full while offering end-of-shard marker, retrying")
			w.rearm(w.sup.cfg.BufferFullWait)
		}
		return
	}

	result, err := w.sup.client.GetRecords(ctx, *cursor, w.sup.cfg.RecordsPerFetch)
	if err != nil {
		w.handleFetchError(ctx, err, result)
		return
	}

	for _, raw := range result.Records {
		payloads, derr := w.sup.decoder.Decode(raw.Data)
		if derr != nil {
			w.fail(derr)
			return
		}

		rec := OrderedRecord{
			StreamID:       w.res.partition.StreamID,
			PartitionID:    w.res.partition.PartitionID,
			SequenceNumber: raw.SequenceNumber,
			Payloads:       payloads,
		}

		accepted := w.sup.currentBuffer().Offer(ctx, rec, w.sup.cfg.OfferTimeout)
		if accepted {
			continue
		}

		if ctx.Err() != nil {
			// Interrupted while waiting to offer: drop this record, do not
			// touch the cursor (it still points before this batch), so the
			// whole batch is re-fetched rather than just the tail.
			w.log().Warn("interrupted while offering record, retrying without advancing cursor")
			w.rearm(ExceptionRetryDelay)
			return
		}

		// Buffer full: this is the single re-entry point that guarantees
		// at-least-once delivery across backpressure. Re-request a cursor
		// positioned exactly at the record we couldn't place so the next
		// tick resumes there instead of re-reading the whole batch.
		w.log().Warn("buffer full, re-requesting cursor at the unplaced record and retrying")
		seq := raw.SequenceNumber
		newCursor, ierr := w.sup.client.GetShardIterator(ctx, w.res.partition.StreamID, w.res.partition.PartitionID, AtSequenceNumber, &seq)
		if ierr != nil {
			w.fail(ierr)
			return
		}
		w.res.setCursor(&newCursor)
		w.rearm(w.sup.cfg.BufferFullWait)
		return
	}

	w.res.setCursor(result.NextIterator)
	w.rearm(w.sup.cfg.FetchDelay)
}

// handleFetchError dispatches on the classified fetch error: throttling and
// transport errors rearm with a backoff, an expired iterator resumes from
// the result's next iterator when one exists, everything else is fatal.
func (w *worker) handleFetchError(ctx context.Context, err error, result *FetchResult) {
	switch serviceErrorCode(err) {
	case Throttled:
		delay := ThrottleBackoff
		if w.sup.cfg.FetchDelay > delay {
			delay = w.sup.cfg.FetchDelay
		}
		w.log().WithError(err).Warn("throttled, backing off")
		w.rearm(delay)

	case IteratorExpired:
		if result != nil {
			w.log().WithError(err).Warn("iterator expired, resuming from next iterator")
			w.res.setCursor(result.NextIterator)
			w.rearm(w.sup.cfg.FetchDelay)
			return
		}
		w.fail(err)

	case NotFound, InvalidArgument:
		w.fail(err)

	case RecoverableTransport:
		if ctx.Err() != nil {
			w.log().WithError(err).Warn("interrupted during fetch, retrying")
		} else {
			w.log().WithError(err).Warn("recoverable transport error, retrying")
		}
		w.rearm(ExceptionRetryDelay)

	default:
		w.fail(err)
	}
}
