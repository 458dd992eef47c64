// Package supplier implements a multi-partition record supplier over an
// append-only, sharded streaming log (a Kinesis-style stream): it maintains
// a cursor per assigned partition, drives background fetch workers at a
// regulated rate, and exposes a single bounded, blocking queue of ordered
// records to a downstream consumer.
//
// Credential acquisition, endpoint/region resolution, stream discovery
// beyond listing partition ids, and deaggregation of aggregated records are
// all external collaborators reached through the StreamClient and Decoder
// interfaces; this package only implements the core fetch/buffer/reseek
// machinery sitting between them and a caller.
package supplier

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Supplier is the public façade: assign partitions, seek them, and poll for
// records.
type Supplier struct {
	client  StreamClient
	decoder Decoder
	logger  *logrus.Logger
	cfg     Config

	mu         sync.RWMutex
	assignment map[StreamPartition]*PartitionResource
	buffer     *RecordBuffer

	schedMu   sync.Mutex
	scheduler *Scheduler

	checkPartitionsStarted atomic.Bool
	closed                 atomic.Bool
}

// NewSupplier builds a Supplier against client, applying opts over the
// package defaults. It fails with a *ConfigurationError if decoding is
// requested (WithDecoder) but the named decoder is not registered.
func NewSupplier(client StreamClient, opts ...Option) (*Supplier, error) {
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)

	s := &Supplier{
		client:     client,
		logger:     log,
		cfg:        defaultConfig(),
		assignment: make(map[StreamPartition]*PartitionResource),
	}

	applyOptions(s, opts...)

	decoderName := ""
	if s.cfg.DecoderEnabled {
		if s.cfg.DecoderName == "" {
			return nil, newConfigurationError("decoding enabled without a decoder name")
		}
		decoderName = s.cfg.DecoderName
	}
	decoder, err := lookupDecoder(decoderName)
	if err != nil {
		return nil, err
	}
	s.decoder = decoder

	s.buffer = NewRecordBuffer(s.cfg.BufferSize)
	s.scheduler = NewScheduler(s.cfg.FetchThreads)

	return s, nil
}

func (s *Supplier) currentScheduler() *Scheduler {
	s.schedMu.Lock()
	defer s.schedMu.Unlock()
	return s.scheduler
}

// currentBuffer resolves the shared buffer under the assignment lock, the
// same discipline Poll uses. reseek swaps the buffer field under the write
// lock, so an unsynchronized read from a worker tick would race the swap.
func (s *Supplier) currentBuffer() *RecordBuffer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buffer
}

func (s *Supplier) checkClosed(op string) error {
	if s.closed.Load() {
		return newStateError(op, "supplier is closed")
	}
	return nil
}

// Assign inserts a PartitionResource for each new partition in set and
// removes+stops any currently assigned partition no longer in set.
// Idempotent. A newly added partition's worker does not start until Start
// or the next Poll.
func (s *Supplier) Assign(set map[StreamPartition]struct{}) error {
	if err := s.checkClosed("assign"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for p := range set {
		if _, ok := s.assignment[p]; !ok {
			s.assignment[p] = newPartitionResource(p)
		}
	}

	for p, res := range s.assignment {
		if _, keep := set[p]; !keep {
			delete(s.assignment, p)
			(&worker{sup: s, res: res}).stop()
		}
	}

	return nil
}

// AddAssignment atomically adds p to the assignment if not already present,
// under the same lock as every other assignment mutation. Idempotent.
//
// Unlike composing GetAssignment+Assign, this is safe to call from multiple
// goroutines concurrently (e.g. one per partition a leasing.Coordinator
// acquires in parallel): a full-replace Assign(set) built from a stale
// GetAssignment snapshot can silently drop a partition another goroutine
// just added, stopping its worker even though it is still legitimately
// owned. AddAssignment has no such read-modify-write gap.
func (s *Supplier) AddAssignment(p StreamPartition) error {
	if err := s.checkClosed("addAssignment"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assignment[p]; !ok {
		s.assignment[p] = newPartitionResource(p)
	}
	return nil
}

// RemoveAssignment atomically removes p from the assignment, stopping its
// worker. Idempotent; a no-op if p is not currently assigned.
func (s *Supplier) RemoveAssignment(p StreamPartition) error {
	if err := s.checkClosed("removeAssignment"); err != nil {
		return err
	}

	s.mu.Lock()
	res, ok := s.assignment[p]
	if ok {
		delete(s.assignment, p)
	}
	s.mu.Unlock()

	if ok {
		(&worker{sup: s, res: res}).stop()
	}
	return nil
}

// Start arms every assigned worker once, if the one-shot
// checkPartitionsStarted flag is set, and clears the flag.
func (s *Supplier) Start() error {
	if err := s.checkClosed("start"); err != nil {
		return err
	}
	s.startAssignedIfNeeded()
	return nil
}

func (s *Supplier) startAssignedIfNeeded() {
	if !s.checkPartitionsStarted.CompareAndSwap(true, false) {
		return
	}

	s.mu.RLock()
	resources := make([]*PartitionResource, 0, len(s.assignment))
	for _, res := range s.assignment {
		resources = append(resources, res)
	}
	s.mu.RUnlock()

	for _, res := range resources {
		(&worker{sup: s, res: res}).start()
	}
}

// Seek reseeks partition p to AtSequenceNumber at seq, scoped to {p}. It
// fails with a StateError if p has not been assigned.
func (s *Supplier) Seek(ctx context.Context, p StreamPartition, seq string) error {
	if err := s.checkClosed("seek"); err != nil {
		return err
	}

	set := map[StreamPartition]struct{}{p: {}}
	return s.reseek(set, func(res *PartitionResource) error {
		cursor, err := s.client.GetShardIterator(ctx, p.StreamID, p.PartitionID, AtSequenceNumber, &seq)
		if err != nil {
			return err
		}
		res.setCursor(&cursor)
		return nil
	})
}

// SeekToEarliest reseeks each partition in set to TrimHorizon.
func (s *Supplier) SeekToEarliest(ctx context.Context, set map[StreamPartition]struct{}) error {
	return s.seekToType(ctx, set, TrimHorizon)
}

// SeekToLatest reseeks each partition in set to Latest.
func (s *Supplier) SeekToLatest(ctx context.Context, set map[StreamPartition]struct{}) error {
	return s.seekToType(ctx, set, Latest)
}

func (s *Supplier) seekToType(ctx context.Context, set map[StreamPartition]struct{}, iterType IteratorType) error {
	if err := s.checkClosed("seek"); err != nil {
		return err
	}

	return s.reseek(set, func(res *PartitionResource) error {
		cursor, err := s.client.GetShardIterator(ctx, res.partition.StreamID, res.partition.PartitionID, iterType, nil)
		if err != nil {
			return err
		}
		res.setCursor(&cursor)
		return nil
	})
}

// reseek repositions the partitions in set:
//  1. fully shut down the scheduler (bounded wait, then force)
//  2. install a fresh scheduler
//  3. rebuild the buffer keeping only records whose partition is not in set
//  4. for each partition in set, assign a new cursor via reassign, mark every
//     worker not-started, and set checkPartitionsStarted
//
// Steps 1-2 fence off any in-flight tick that might still enqueue a
// pre-seek record for a partition in set; step 3 is the logical truncation
// that preserves records of partitions not being reseeked. Before tearing
// the scheduler down, every resource's context is canceled so a tick parked
// inside a blocking buffer offer is interrupted immediately instead of
// running out its full OfferTimeout — an interrupted offer drops the record
// without advancing the cursor, so nothing is lost. Fresh contexts are
// installed before workers can be rearmed.
//
// A partition in set that has not been assigned is a StateError; an error
// acquiring a new cursor is recorded on the resource and returned. Either
// way the rest of set is still processed, and the first error observed is
// what the caller gets back.
func (s *Supplier) reseek(set map[StreamPartition]struct{}, reassign func(*PartitionResource) error) error {
	s.mu.RLock()
	for _, res := range s.assignment {
		res.interrupt()
	}
	s.mu.RUnlock()

	s.schedMu.Lock()
	s.scheduler = replaceScheduler(s.scheduler, s.cfg.FetchThreads, ExceptionRetryDelay)
	s.schedMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	retained := s.buffer.drainAllNonBlocking()
	newBuffer := NewRecordBuffer(s.cfg.BufferSize)
	for _, rec := range retained {
		if _, seeked := set[rec.Partition()]; seeked {
			continue
		}
		newBuffer.Offer(context.Background(), rec, 0)
	}
	s.buffer = newBuffer

	var firstErr error
	for p := range set {
		res, ok := s.assignment[p]
		if !ok {
			if firstErr == nil {
				firstErr = newStateError("seek", "partition has not been assigned")
			}
			continue
		}
		if err := reassign(res); err != nil {
			res.mu.Lock()
			res.lastErr = err
			res.mu.Unlock()
			s.logger.WithFields(logrus.Fields{"stream": p.StreamID, "partition": p.PartitionID}).WithError(err).Error("failed to acquire new cursor during reseek")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	for _, res := range s.assignment {
		res.mu.Lock()
		res.started = false
		res.mu.Unlock()
		res.resetContext()
	}
	s.checkPartitionsStarted.Store(true)
	return firstErr
}

// GetAssignment returns the set of currently assigned partitions. It fails
// with a StateError once the supplier is closed, so a caller can tell that
// apart from "legitimately unassigned".
func (s *Supplier) GetAssignment() ([]StreamPartition, error) {
	if err := s.checkClosed("getAssignment"); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]StreamPartition, 0, len(s.assignment))
	for p := range s.assignment {
		out = append(out, p)
	}
	return out, nil
}

// Poll drains up to MaxRecordsPerPoll records, waiting up to timeout,
// filtering out records whose partition is no longer assigned (stale
// survivors from before an Assign removal). It never returns an error: a
// canceled context returns an empty slice, matching "poll never raises on
// interrupt".
func (s *Supplier) Poll(ctx context.Context, timeout time.Duration) []OrderedRecord {
	if s.closed.Load() {
		return nil
	}

	s.startAssignedIfNeeded()

	drained := pollDrain(ctx, s.currentBuffer(), s.cfg.MaxRecordsPerPoll, timeout)
	if len(drained) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]OrderedRecord, 0, len(drained))
	for _, rec := range drained {
		if _, ok := s.assignment[rec.Partition()]; ok {
			out = append(out, rec)
		}
	}
	return out
}

// pollDrain drains buffer, respecting ctx cancellation as an interrupt that
// yields whatever has been drained so far (possibly empty), never an error.
func pollDrain(ctx context.Context, buffer *RecordBuffer, max int, timeout time.Duration) []OrderedRecord {
	if ctx.Err() != nil {
		return nil
	}

	done := make(chan []OrderedRecord, 1)
	go func() { done <- buffer.Drain(max, timeout) }()

	select {
	case recs := <-done:
		return recs
	case <-ctx.Done():
		return nil
	}
}

// GetEarliestSequenceNumber probes p with TrimHorizon.
func (s *Supplier) GetEarliestSequenceNumber(ctx context.Context, p StreamPartition) (string, error) {
	if err := s.checkClosed("getEarliestSequenceNumber"); err != nil {
		return "", err
	}
	return probeSequenceNumber(ctx, s.client, p, TrimHorizon, s.cfg.ProbeTimeout)
}

// GetLatestSequenceNumber probes p with Latest.
func (s *Supplier) GetLatestSequenceNumber(ctx context.Context, p StreamPartition) (string, error) {
	if err := s.checkClosed("getLatestSequenceNumber"); err != nil {
		return "", err
	}
	return probeSequenceNumber(ctx, s.client, p, Latest, s.cfg.ProbeTimeout)
}

// GetPosition is not supported for this stream model; it always fails.
func (s *Supplier) GetPosition(p StreamPartition) (string, error) {
	return "", newStateError("getPosition", "reading current position is not supported")
}

// GetPartitionIds delegates to the stream client's ListPartitions.
func (s *Supplier) GetPartitionIds(ctx context.Context, stream string) ([]string, error) {
	if err := s.checkClosed("getPartitionIds"); err != nil {
		return nil, err
	}
	return s.client.ListPartitions(ctx, stream)
}

// WorkerErrors returns a snapshot of the last fatal error recorded for each
// currently assigned partition that has one. A fatal worker failure is
// never surfaced through Poll; this is the operational visibility path.
func (s *Supplier) WorkerErrors() map[StreamPartition]error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[StreamPartition]error)
	for p, res := range s.assignment {
		if err := res.lastError(); err != nil {
			out[p] = err
		}
	}
	return out
}

// Close is idempotent: it clears the assignment (stopping all workers),
// shuts down the scheduler with a bounded wait, and marks the supplier
// closed. After Close, every public operation that returns an error fails
// with a StateError, except a second Close, which is a no-op. Poll has no
// error return and returns nil after Close; WorkerErrors returns an empty
// map.
func (s *Supplier) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	for p, res := range s.assignment {
		(&worker{sup: s, res: res}).stop()
		delete(s.assignment, p)
	}
	s.mu.Unlock()

	s.schedMu.Lock()
	sched := s.scheduler
	s.schedMu.Unlock()
	sched.Shutdown(ExceptionRetryDelay)

	return nil
}
