package supplier

import "context"

// IteratorType selects how GetShardIterator positions the returned cursor.
type IteratorType string

const (
	AtSequenceNumber    IteratorType = "AT_SEQUENCE_NUMBER"
	AfterSequenceNumber IteratorType = "AFTER_SEQUENCE_NUMBER"
	TrimHorizon         IteratorType = "TRIM_HORIZON"
	Latest              IteratorType = "LATEST"
)

// FetchResult is the result of one GetRecords call. NextIterator is nil iff
// the shard is closed, split, or merged; an empty Records slice does not by
// itself imply closure.
type FetchResult struct {
	Records      []RawRecord
	NextIterator *string
}

// RawRecord is one record as handed back by the stream service, before
// decoding.
type RawRecord struct {
	SequenceNumber string
	Data           []byte
}

// StreamClient is the narrow port the core supplier uses to reach the
// stream service. Credential acquisition, endpoint/region resolution, and
// stream discovery beyond ListPartitions are explicitly out of scope for
// this interface and belong to its concrete implementations and their
// callers.
//
// Implementations classify their failures into *ServiceError at this
// boundary; callers branch on its Code and treat anything else as
// unrecoverable.
type StreamClient interface {
	// GetShardIterator resolves an iterator. sequence must be non-nil iff
	// iterType is AtSequenceNumber or AfterSequenceNumber.
	GetShardIterator(ctx context.Context, stream, partition string, iterType IteratorType, sequence *string) (string, error)

	// GetRecords fetches up to limit records starting at iterator.
	GetRecords(ctx context.Context, iterator string, limit int) (*FetchResult, error)

	// ListPartitions returns the set of partition ids currently readable on
	// stream.
	ListPartitions(ctx context.Context, stream string) ([]string, error)
}
