package supplier

// EndOfShardSequenceNumber is the reserved sequence number literal carried by
// the sentinel record emitted once a partition's cursor has gone permanently
// nil (the shard is closed, split, or merged and has no more records).
const EndOfShardSequenceNumber = "EOS"

// StreamPartition identifies a single shard of a single stream. Both fields
// are opaque strings supplied by the stream service; StreamPartition is
// value-comparable so it can be used directly as a map key.
type StreamPartition struct {
	StreamID    string
	PartitionID string
}

// OrderedRecord is one unit of delivery out of Poll. SequenceNumber is
// opaque and lexicographically comparable within a partition. Payloads is
// the (possibly decoded, possibly fanned-out) list of byte payloads for
// this record; it is empty only for the EndOfShard sentinel.
type OrderedRecord struct {
	StreamID       string
	PartitionID    string
	SequenceNumber string
	Payloads       [][]byte
}

// Partition returns the StreamPartition this record belongs to.
func (r OrderedRecord) Partition() StreamPartition {
	return StreamPartition{StreamID: r.StreamID, PartitionID: r.PartitionID}
}

// IsEndOfShard reports whether r is the end-of-shard sentinel.
func (r OrderedRecord) IsEndOfShard() bool {
	return r.SequenceNumber == EndOfShardSequenceNumber
}

func endOfShardRecord(p StreamPartition) OrderedRecord {
	return OrderedRecord{
		StreamID:       p.StreamID,
		PartitionID:    p.PartitionID,
		SequenceNumber: EndOfShardSequenceNumber,
		Payloads:       nil,
	}
}
