package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardError_Error(t *testing.T) {
	err := NewEstimateNotFoundError("est-1")
	assert.Contains(t, err.Error(), "ESTIMATE_NOT_FOUND")
	assert.Contains(t, err.Details, "est-1")
	assert.False(t, err.Retryable)
}

func TestIsErrorCode(t *testing.T) {
	err := NewQueryExecutionFailedError("load estimate", stderrors.New("conn refused"))

	assert.True(t, IsErrorCode(err, ErrCodeQueryExecutionFailed))
	assert.False(t, IsErrorCode(err, ErrCodeEstimateNotFound))
	assert.False(t, IsErrorCode(stderrors.New("plain"), ErrCodeQueryExecutionFailed))

	wrapped := fmt.Errorf("outer: %w", err)
	assert.True(t, IsErrorCode(wrapped, ErrCodeQueryExecutionFailed))
}

func TestGetRetryCount(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrCodeDatabaseConnectionFailed, 3},
		{ErrCodeQueryExecutionFailed, 3},
		{ErrCodeModelTimeout, 2},
		{ErrCodeBrokerTimeout, 2},
		{ErrCodeEmbeddingFailed, 2},
		{ErrCodeNotificationSendFailed, 2},
		{ErrCodeEstimateNotFound, 0},
		{ErrCodeModelResponseInvalid, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, GetRetryCount(tt.code))
		})
	}
}

func TestConvertToBPMNError(t *testing.T) {
	stdErr := NewEmbeddingFailedError(stderrors.New("quota exceeded"))

	bpmnErr := ConvertToBPMNError(stdErr)
	require.NotNil(t, bpmnErr)

	assert.Equal(t, "EMBEDDING_FAILED", bpmnErr.Code)
	assert.Equal(t, stdErr.Message, bpmnErr.Message)
	assert.True(t, bpmnErr.Retryable)
	assert.Equal(t, 2, bpmnErr.Retries)

	vars := bpmnErr.ToErrorVariables()
	assert.Equal(t, "EMBEDDING_FAILED", vars["errorCode"])
	assert.Equal(t, true, vars["retryable"])
}
