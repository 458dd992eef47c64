package awskinesis

import (
	"errors"
	"net"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/kinesis/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	supplier "github.com/dbubel/kinesis-supplier"
)

func codeOf(t *testing.T, err error) supplier.ErrorCode {
	t.Helper()
	var svcErr *supplier.ServiceError
	require.ErrorAs(t, err, &svcErr)
	return svcErr.Code
}

func TestClassify_KnownExceptionTypes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want supplier.ErrorCode
	}{
		{"expired iterator", &types.ExpiredIteratorException{}, supplier.IteratorExpired},
		{"provisioned throughput", &types.ProvisionedThroughputExceededException{}, supplier.Throttled},
		{"kms throttling", &types.KMSThrottlingException{}, supplier.Throttled},
		{"resource not found", &types.ResourceNotFoundException{}, supplier.NotFound},
		{"invalid argument", &types.InvalidArgumentException{}, supplier.InvalidArgument},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, codeOf(t, classify(tc.err)))
		})
	}
}

type fakeNetError struct{}

func (fakeNetError) Error() string   { return "network unreachable" }
func (fakeNetError) Timeout() bool   { return true }
func (fakeNetError) Temporary() bool { return true }

var _ net.Error = fakeNetError{}

func TestClassify_NetworkErrorIsRecoverable(t *testing.T) {
	assert.Equal(t, supplier.RecoverableTransport, codeOf(t, classify(fakeNetError{})))
}

func TestClassify_RequestTimeoutIsRecoverable(t *testing.T) {
	err := &smithy.GenericAPIError{Code: "RequestTimeout", Message: "request timed out"}
	assert.Equal(t, supplier.RecoverableTransport, codeOf(t, classify(err)))
}

func TestClassify_UnknownErrorIsUnrecoverable(t *testing.T) {
	assert.Equal(t, supplier.Unrecoverable, codeOf(t, classify(errors.New("boom"))))
}

func TestClassify_AlreadyClassifiedPassesThrough(t *testing.T) {
	classified := &supplier.ServiceError{Code: supplier.Throttled, Err: errors.New("already classified")}
	assert.Same(t, classified, classify(classified))
}

func TestClassify_NilIsNil(t *testing.T) {
	assert.Nil(t, classify(nil))
}
