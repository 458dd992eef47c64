package supplier

import (
	"context"
	"fmt"
	"sync"
)

// fakeClient is a hand-written, in-memory StreamClient used by every test in
// this package — no network, no localstack, no generated mock.
//
// Iterator strings are deterministic and derived from
// (partition, iterType, sequence), so tests can pre-script the exact
// GetRecords response a given iterator resolves to without needing to
// parse anything back out at call time.
type fakeClient struct {
	mu sync.Mutex

	// responses, keyed by the exact iterator string GetRecords is called
	// with. Each key holds a FIFO queue so the same iterator can be
	// retried with different scripted outcomes (e.g. Throttled then ok).
	responses map[string][]scriptedResponse

	shardIteratorCalls  []shardIteratorCall
	getShardIteratorErr error

	partitionIDs []string
}

type shardIteratorCall struct {
	stream, partition string
	iterType          IteratorType
	sequence          *string
}

type scriptedResponse struct {
	result *FetchResult
	err    error
}

func newFakeClient() *fakeClient {
	return &fakeClient{responses: make(map[string][]scriptedResponse)}
}

// iteratorKey mirrors how this fake's GetShardIterator derives an iterator
// string, so tests can pre-script GetRecords responses against it.
func iteratorKey(partition string, iterType IteratorType, sequence *string) string {
	if sequence != nil {
		return fmt.Sprintf("%s#%s#%s", partition, iterType, *sequence)
	}
	return fmt.Sprintf("%s#%s", partition, iterType)
}

// script queues responses to be returned, in order, each time GetRecords is
// called with the iterator that key resolves to.
func (f *fakeClient) script(key string, responses ...scriptedResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[key] = append(f.responses[key], responses...)
}

func (f *fakeClient) GetShardIterator(ctx context.Context, stream, partition string, iterType IteratorType, sequence *string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.shardIteratorCalls = append(f.shardIteratorCalls, shardIteratorCall{stream, partition, iterType, sequence})

	if f.getShardIteratorErr != nil {
		return "", f.getShardIteratorErr
	}

	return iteratorKey(partition, iterType, sequence), nil
}

func (f *fakeClient) GetRecords(ctx context.Context, iterator string, limit int) (*FetchResult, error) {
	f.mu.Lock()
	queue := f.responses[iterator]
	if len(queue) == 0 {
		f.mu.Unlock()
		// Unscripted iterator: behave like an empty, still-open shard so
		// tests that don't care about tail behavior don't panic or loop
		// forever.
		return &FetchResult{Records: nil, NextIterator: strPtr(iterator)}, nil
	}
	next := queue[0]
	if len(queue) > 1 {
		f.responses[iterator] = queue[1:]
	} else {
		f.responses[iterator] = queue[:0]
	}
	f.mu.Unlock()

	return next.result, next.err
}

func (f *fakeClient) ListPartitions(ctx context.Context, stream string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.partitionIDs, nil
}

func strPtr(s string) *string { return &s }

func recordsOf(seqs ...string) []RawRecord {
	out := make([]RawRecord, 0, len(seqs))
	for _, seq := range seqs {
		out = append(out, RawRecord{SequenceNumber: seq, Data: []byte("payload-" + seq)})
	}
	return out
}
