package supplier

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceErrorCode_ClassifiedError(t *testing.T) {
	err := newServiceError(Throttled, errors.New("throughput exceeded"))
	assert.Equal(t, Throttled, serviceErrorCode(err))
}

func TestServiceErrorCode_WrappedClassifiedError(t *testing.T) {
	err := fmt.Errorf("fetching records: %w", newServiceError(IteratorExpired, errors.New("iterator expired")))
	assert.Equal(t, IteratorExpired, serviceErrorCode(err))
}

func TestServiceErrorCode_PlainErrorIsUnrecoverable(t *testing.T) {
	assert.Equal(t, Unrecoverable, serviceErrorCode(errors.New("boom")))
}

func TestServiceError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	svcErr := newServiceError(NotFound, inner)
	assert.ErrorIs(t, svcErr, inner)
}

func TestErrorCode_String(t *testing.T) {
	assert.Equal(t, "Throttled", Throttled.String())
	assert.Equal(t, "Unrecoverable", Unrecoverable.String())
}
