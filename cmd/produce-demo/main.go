// Command produce-demo pushes sample records into a local Kinesis-compatible
// endpoint for manual exercise of supplier-demo.
package main

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
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
	client := kinesis.NewFromConfig(cfg)

	for i := 0; i < 10000; i++ {
		s := fmt.Sprintf("hello %d", i)
		hash := md5.Sum([]byte(s))
		hashString := hex.EncodeToString(hash[:])

		_, err := client.PutRecord(context.TODO(), &kinesis.PutRecordInput{
			Data:         []byte(s),
			PartitionKey: aws.String(hashString),
			StreamName:   aws.String(streamName),
		})
		if err != nil {
			fmt.Println(err.Error())
		}
		fmt.Println(s)

		time.Sleep(5 * time.Millisecond)
	}
}
