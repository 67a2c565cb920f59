// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Estimate pipeline errors
	ErrCodeEstimateNotFound      ErrorCode = "ESTIMATE_NOT_FOUND"
	ErrCodeRequestNotFound       ErrorCode = "REQUEST_NOT_FOUND"
	ErrCodeEstimateStatusInvalid ErrorCode = "ESTIMATE_STATUS_INVALID"
	ErrCodeLineItemPersistFailed ErrorCode = "LINE_ITEM_PERSIST_FAILED"

	// Model / embedding errors
	ErrCodeEmbeddingFailed      ErrorCode = "EMBEDDING_FAILED"
	ErrCodeModelResponseInvalid ErrorCode = "MODEL_RESPONSE_INVALID"
	ErrCodeModelTimeout         ErrorCode = "MODEL_TIMEOUT"

	// Infrastructure errors
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeBrokerTimeout            ErrorCode = "BROKER_TIMEOUT"
	ErrCodeNotificationSendFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// ConvertToBPMNError maps a StandardError onto the BPMN error contract.
func ConvertToBPMNError(err *StandardError) *BPMNError {
	return &BPMNError{
		Code:      string(err.Code),
		Message:   err.Message,
		Details:   err.Details,
		Retryable: err.Retryable,
		Retries:   GetRetryCount(err.Code),
	}
}

// IsErrorCode reports whether err is a StandardError carrying the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code == code
	}
	return false
}

// GetRetryCount returns the retry budget granted to a given error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed, ErrCodeQueryExecutionFailed:
		return 3
	case ErrCodeModelTimeout, ErrCodeBrokerTimeout, ErrCodeEmbeddingFailed, ErrCodeNotificationSendFailed:
		return 2
	default:
		return 0
	}
}

// ==========================
// 3. Error Constructors
// ==========================

// NewEstimateNotFoundError creates a non-retryable lookup error.
func NewEstimateNotFoundError(uuid string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEstimateNotFound,
		Message:   "Quote estimate not found",
		Details:   fmt.Sprintf("uuid: %s", uuid),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRequestNotFoundError creates a non-retryable lookup error.
func NewRequestNotFoundError(requestID int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeRequestNotFound,
		Message:   "Quote request not found",
		Details:   fmt.Sprintf("requestId: %d", requestID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEstimateStatusInvalidError creates a non-retryable state machine error.
func NewEstimateStatusInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEstimateStatusInvalid,
		Message:   "Invalid estimate status transition",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLineItemPersistFailedError creates a retryable persistence error.
func NewLineItemPersistFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLineItemPersistFailed,
		Message:   "Failed to persist estimate line item",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmbeddingFailedError creates a retryable embedding endpoint error.
func NewEmbeddingFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmbeddingFailed,
		Message:   "Embedding generation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewModelResponseInvalidError creates a non-retryable parse error carrying the
// raw model output for diagnostics.
func NewModelResponseInvalidError(raw string) *StandardError {
	return &StandardError{
		Code:      ErrCodeModelResponseInvalid,
		Message:   "Model response was not parseable JSON",
		Retryable: false,
		Metadata:  map[string]interface{}{"rawResponse": raw},
		Timestamp: time.Now().UTC(),
	}
}

// NewModelTimeoutError creates a retryable completion endpoint timeout error.
func NewModelTimeoutError(operation string) *StandardError {
	return &StandardError{
		Code:      ErrCodeModelTimeout,
		Message:   "Model endpoint timed out",
		Details:   fmt.Sprintf("operation: %s", operation),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewBrokerTimeoutError creates a retryable job broker timeout error.
func NewBrokerTimeoutError(operation string) *StandardError {
	return &StandardError{
		Code:      ErrCodeBrokerTimeout,
		Message:   "Job broker command timed out",
		Details:   fmt.Sprintf("operation: %s", operation),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification error.
func NewNotificationSendFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Failed to send estimate notification",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}
