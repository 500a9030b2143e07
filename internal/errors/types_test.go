package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessage(t *testing.T) {
	err := New(ErrCodeValidationFailed, "envelope failed validation")
	assert.Equal(t, "VALIDATION_FAILED: envelope failed validation", err.Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(cause, ErrCodeTransportFailed, "failed to post envelope")

	assert.Contains(t, err.Error(), "TRANSPORT_FAILED")
	assert.Contains(t, err.Error(), "connection refused")
	assert.True(t, stderrors.Is(err, cause))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeMediaStorage, GetCode(New(ErrCodeMediaStorage, "disk full")))
	assert.Equal(t, ErrCodeInternalError, GetCode(fmt.Errorf("plain error")))
}

func TestWithContext(t *testing.T) {
	err := New(ErrCodeRateLimit, "too many requests").
		WithContext("ip", "10.0.0.1").
		WithContext("limit", 50)

	require.NotNil(t, err.Context)
	assert.Equal(t, "10.0.0.1", err.Context["ip"])
	assert.Equal(t, 50, err.Context["limit"])
}
