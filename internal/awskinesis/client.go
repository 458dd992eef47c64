// Package awskinesis is the concrete supplier.StreamClient implementation
// backed by aws-sdk-go-v2's Kinesis client. Apart from the demo commands
// under cmd/, which import the SDK to build their clients, it is the only
// package in this module that imports the AWS SDK directly: SDK failures are classified
// into the supplier's ServiceError taxonomy here, at the boundary, so
// everything above it talks to the narrow supplier.StreamClient port and
// never re-inspects an SDK type.
package awskinesis

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/kinesis/types"
	"github.com/aws/smithy-go"

	supplier "github.com/dbubel/kinesis-supplier"
)

// Client adapts *kinesis.Client to supplier.StreamClient.
type Client struct {
	api *kinesis.Client
}

// New wraps an already-configured *kinesis.Client. Credential acquisition
// and endpoint/region resolution happen before this call, via
// aws-sdk-go-v2/config, and are deliberately not this package's concern.
func New(api *kinesis.Client) *Client {
	return &Client{api: api}
}

func (c *Client) GetShardIterator(ctx context.Context, stream, partition string, iterType supplier.IteratorType, sequence *string) (string, error) {
	in := &kinesis.GetShardIteratorInput{
		StreamName:        aws.String(stream),
		ShardId:           aws.String(partition),
		ShardIteratorType: types.ShardIteratorType(iterType),
	}
	if sequence != nil {
		in.StartingSequenceNumber = sequence
	}

	out, err := c.api.GetShardIterator(ctx, in)
	if err != nil {
		return "", classify(err)
	}
	if out.ShardIterator == nil {
		return "", nil
	}
	return *out.ShardIterator, nil
}

func (c *Client) GetRecords(ctx context.Context, iterator string, limit int) (*supplier.FetchResult, error) {
	out, err := c.api.GetRecords(ctx, &kinesis.GetRecordsInput{
		ShardIterator: aws.String(iterator),
		Limit:         aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, classify(err)
	}

	records := make([]supplier.RawRecord, 0, len(out.Records))
	for _, r := range out.Records {
		if r.SequenceNumber == nil {
			continue
		}
		records = append(records, supplier.RawRecord{
			SequenceNumber: *r.SequenceNumber,
			Data:           r.Data,
		})
	}

	return &supplier.FetchResult{
		Records:      records,
		NextIterator: out.NextShardIterator,
	}, nil
}

func (c *Client) ListPartitions(ctx context.Context, stream string) ([]string, error) {
	var ids []string
	var nextToken *string

	for {
		in := &kinesis.ListShardsInput{}
		if nextToken != nil {
			in.NextToken = nextToken
		} else {
			in.StreamName = aws.String(stream)
		}

		out, err := c.api.ListShards(ctx, in)
		if err != nil {
			var notFound *types.ResourceNotFoundException
			if errors.As(err, &notFound) {
				return nil, classify(fmt.Errorf("listing shards for stream %q: %w", stream, err))
			}
			return nil, classify(err)
		}

		for _, s := range out.Shards {
			if s.ShardId == nil {
				continue
			}
			if s.SequenceNumberRange != nil && s.SequenceNumberRange.EndingSequenceNumber != nil {
				// closed shard, no longer independently readable
				continue
			}
			ids = append(ids, *s.ShardId)
		}

		if out.NextToken == nil {
			return ids, nil
		}
		nextToken = out.NextToken
	}
}

// classify turns a raw AWS SDK v2 error into a *supplier.ServiceError:
// named exception types are matched first, then network-shaped errors are
// treated as recoverable transport, and everything else is unrecoverable.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var already *supplier.ServiceError
	if errors.As(err, &already) {
		return err
	}

	var expired *types.ExpiredIteratorException
	if errors.As(err, &expired) {
		return &supplier.ServiceError{Code: supplier.IteratorExpired, Err: err}
	}

	var throughputExceeded *types.ProvisionedThroughputExceededException
	if errors.As(err, &throughputExceeded) {
		return &supplier.ServiceError{Code: supplier.Throttled, Err: err}
	}

	var kmsThrottle *types.KMSThrottlingException
	if errors.As(err, &kmsThrottle) {
		return &supplier.ServiceError{Code: supplier.Throttled, Err: err}
	}

	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return &supplier.ServiceError{Code: supplier.NotFound, Err: err}
	}

	var invalidArg *types.InvalidArgumentException
	if errors.As(err, &invalidArg) {
		return &supplier.ServiceError{Code: supplier.InvalidArgument, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &supplier.ServiceError{Code: supplier.RecoverableTransport, Err: err}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "RequestTimeout", "RequestTimeoutException":
			return &supplier.ServiceError{Code: supplier.RecoverableTransport, Err: err}
		}
	}

	return &supplier.ServiceError{Code: supplier.Unrecoverable, Err: err}
}
