// Command supplier-demo wires a Supplier against a local Kinesis-compatible
// endpoint (e.g. localstack) and prints every record it polls.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/sirupsen/logrus"

	kinsupplier "github.com/dbubel/kinesis-supplier"
	"github.com/dbubel/kinesis-supplier/internal/awskinesis"
)

const streamName = "test_stream"

func main() {
	endpointResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			PartitionID:   "aws",
			SigningRegion: "us-east-1",
			URL:           "http://localhost:4566",
		}, nil
	})

	cfg, err := config.LoadDefaultConfig(
		context.TODO(),
		config.WithRegion("us-east-1"),
		config.WithEndpointResolverWithOptions(endpointResolver),
	)
	if err != nil {
		fmt.Println(err.Error())
		return
	}

	l := logrus.New()
	l.SetLevel(logrus.DebugLevel)

	client := awskinesis.New(kinesis.NewFromConfig(cfg))

	sup, err := kinsupplier.NewSupplier(
		client,
		kinsupplier.WithLogger(l),
		kinsupplier.WithFetchDelay(250*time.Millisecond),
	)
	if err != nil {
		fmt.Println(err.Error())
		return
	}
	defer sup.Close()

	ctx := cancelOnSignal()

	ids, err := sup.GetPartitionIds(ctx, streamName)
	if err != nil {
		fmt.Println(err.Error())
		return
	}

	set := make(map[kinsupplier.StreamPartition]struct{}, len(ids))
	for _, id := range ids {
		set[kinsupplier.StreamPartition{StreamID: streamName, PartitionID: id}] = struct{}{}
	}
	if err := sup.Assign(set); err != nil {
		fmt.Println(err.Error())
		return
	}
	if err := sup.SeekToLatest(ctx, set); err != nil {
		fmt.Println(err.Error())
		return
	}

	for ctx.Err() == nil {
		for _, rec := range sup.Poll(ctx, time.Second) {
			l.WithFields(logrus.Fields{"partition": rec.PartitionID}).Debug(rec.SequenceNumber)
		}
	}
}

func cancelOnSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT)

	go func() {
		<-sigs
		cancel()
	}()

	return ctx
}
