package supplier

import (
	"context"
	"time"
)

// probeRecordsLimit is deliberately 1000, not 1: on a shard whose head is
// past retention and continuously trimming, a limit of 1 can loop
// indefinitely without ever landing on a live record.
const probeRecordsLimit = 1000

// probeSequenceNumber is the time-bounded discovery loop behind
// GetEarliestSequenceNumber/GetLatestSequenceNumber: resolve an
// initial iterator for (p, iterType), then repeatedly call GetRecords until
// either a record is seen (return its sequence number), the iterator goes
// nil (return EndOfShardSequenceNumber), or the deadline passes (return "").
func probeSequenceNumber(ctx context.Context, client StreamClient, p StreamPartition, iterType IteratorType, timeout time.Duration) (string, error) {
	iterator, err := client.GetShardIterator(ctx, p.StreamID, p.PartitionID, iterType, nil)
	if err != nil {
		if serviceErrorCode(err) != NotFound {
			return "", err
		}
		// Treat as missing and continue with a nil iterator below, which
		// immediately resolves to EndOfShard.
		iterator = ""
	}

	deadline := time.Now().Add(timeout)
	hasIterator := iterator != ""

	for hasIterator && time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return "", nil
		}

		result, err := client.GetRecords(ctx, iterator, probeRecordsLimit)
		if err != nil {
			if serviceErrorCode(err) == Throttled {
				select {
				case <-time.After(ThrottleBackoff):
				case <-ctx.Done():
					return "", nil
				}
				continue
			}
			return "", err
		}

		if len(result.Records) > 0 {
			return result.Records[0].SequenceNumber, nil
		}

		if result.NextIterator == nil {
			hasIterator = false
			break
		}
		iterator = *result.NextIterator
	}

	if !hasIterator {
		return EndOfShardSequenceNumber, nil
	}

	// deadline reached without ever landing on a record or a nil iterator.
	return "", nil
}
