package supplier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeSequenceNumber_ReturnsFirstRecord(t *testing.T) {
	client := newFakeClient()
	p := StreamPartition{StreamID: "s", PartitionID: "0"}
	key := iteratorKey("0", TrimHorizon, nil)

	client.script(key, scriptedResponse{
		result: &FetchResult{Records: recordsOf("42"), NextIterator: strPtr(key + "#tail")},
	})

	seq, err := probeSequenceNumber(context.Background(), client, p, TrimHorizon, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "42", seq)
}

func TestProbeSequenceNumber_RetriesThroughThrottling(t *testing.T) {
	client := newFakeClient()
	p := StreamPartition{StreamID: "s", PartitionID: "0"}
	key := iteratorKey("0", TrimHorizon, nil)

	client.script(key,
		scriptedResponse{err: newServiceError(Throttled, errors.New("throughput exceeded"))},
		scriptedResponse{result: &FetchResult{Records: recordsOf("7"), NextIterator: strPtr(key + "#tail")}},
	)

	seq, err := probeSequenceNumber(context.Background(), client, p, TrimHorizon, ThrottleBackoff+time.Second)
	require.NoError(t, err)
	assert.Equal(t, "7", seq)
}

func TestProbeSequenceNumber_PropagatesUnrecoverableError(t *testing.T) {
	client := newFakeClient()
	p := StreamPartition{StreamID: "s", PartitionID: "0"}
	key := iteratorKey("0", TrimHorizon, nil)

	wantErr := newServiceError(Unrecoverable, errors.New("access denied"))
	client.script(key, scriptedResponse{err: wantErr})

	_, err := probeSequenceNumber(context.Background(), client, p, TrimHorizon, time.Second)
	assert.ErrorIs(t, err, wantErr)
}

func TestProbeSequenceNumber_MissingShardIsEndOfShard(t *testing.T) {
	client := newFakeClient()
	p := StreamPartition{StreamID: "s", PartitionID: "gone"}
	client.getShardIteratorErr = newServiceError(NotFound, errors.New("shard not found"))

	seq, err := probeSequenceNumber(context.Background(), client, p, TrimHorizon, time.Second)
	require.NoError(t, err)
	assert.Equal(t, EndOfShardSequenceNumber, seq)
}
