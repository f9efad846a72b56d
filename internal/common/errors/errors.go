// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeRequiredDocumentMissing ErrorCode = "REQUIRED_DOCUMENT_MISSING"
	ErrCodeNoFinancialResources    ErrorCode = "NO_FINANCIAL_RESOURCES"
	ErrCodeInsufficientFunds       ErrorCode = "INSUFFICIENT_FUNDS"
	ErrCodeComplianceViolation     ErrorCode = "COMPLIANCE_VIOLATION"

	ErrCodeInputValidationFailed ErrorCode = "INPUT_VALIDATION_FAILED"
	ErrCodeParseError            ErrorCode = "PARSE_ERROR"

	ErrCodeGenerationFailed        ErrorCode = "GENERATION_FAILED"
	ErrCodeGenerationTimeout       ErrorCode = "GENERATION_TIMEOUT"
	ErrCodeGenerationOutputInvalid ErrorCode = "GENERATION_OUTPUT_INVALID"

	ErrCodeCacheUnavailable       ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata returns e with key set in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
	e.Metadata[key] = value
	return e
}

// AsStandardError finds a StandardError in err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the workflow engine.
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

// ToErrorVariables returns a map suitable for setting job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewRequiredDocumentMissingError reports a missing mandatory document category.
func NewRequiredDocumentMissingError(category string) *StandardError {
	return newError(ErrCodeRequiredDocumentMissing, "Required source document missing",
		fmt.Sprintf("category: %s", category), false, nil).WithMetadata("category", category)
}

// NewNoFinancialResourcesError reports an application with nothing documented.
func NewNoFinancialResourcesError() *StandardError {
	return newError(ErrCodeNoFinancialResources, "no financial resources documented", "", false, nil)
}

// NewInsufficientFundsError reports documented funds below the required total.
func NewInsufficientFundsError(available, required float64) *StandardError {
	return newError(ErrCodeInsufficientFunds, "documented funds below required",
		fmt.Sprintf("available: %.2f, required: %.2f", available, required), false, nil).
		WithMetadata("deficit", required-available)
}

// NewComplianceViolationError carries the rendered error findings.
func NewComplianceViolationError(findings []string) *StandardError {
	return newError(ErrCodeComplianceViolation, "Letter violates compliance rules",
		strings.Join(findings, "; "), false, nil).WithMetadata("findingCount", len(findings))
}

// NewInputValidationError creates a non-retryable input error.
func NewInputValidationError(details string) *StandardError {
	return newError(ErrCodeInputValidationFailed, "Input validation failed", details, false, nil)
}

// NewParseError wraps a decode failure.
func NewParseError(what string, err error) *StandardError {
	return newError(ErrCodeParseError, fmt.Sprintf("Failed to parse %s", what), err.Error(), false, err)
}

// NewGenerationFailedError creates a retryable text-generation error.
func NewGenerationFailedError(err error) *StandardError {
	return newError(ErrCodeGenerationFailed, "Section generation failed", err.Error(), true, err)
}

// NewGenerationTimeoutError creates a retryable timeout error.
func NewGenerationTimeoutError(err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return newError(ErrCodeGenerationTimeout, "Section generation timed out", details, true, err)
}

// NewGenerationOutputInvalidError reports a response that does not have the
// requested shape.
func NewGenerationOutputInvalidError(details string) *StandardError {
	return newError(ErrCodeGenerationOutputInvalid, "Generated sections have an invalid shape", details, true, nil)
}

// NewCacheUnavailableError creates a retryable cache error.
func NewCacheUnavailableError(err error) *StandardError {
	return newError(ErrCodeCacheUnavailable, "Generation cache unavailable", err.Error(), true, err)
}

// NewNotificationSendFailedError creates a retryable notification error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Failed to send notification",
		fmt.Sprintf("channel: %s, error: %s", channel, err.Error()), true, err)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeRequiredDocumentMissing: "REQUIRED_DOCUMENT_MISSING",
	ErrCodeNoFinancialResources:    "NO_FINANCIAL_RESOURCES",
	ErrCodeInsufficientFunds:       "INSUFFICIENT_FUNDS",
	ErrCodeComplianceViolation:     "COMPLIANCE_VIOLATION",
	ErrCodeInputValidationFailed:   "INPUT_VALIDATION_FAILED",
	ErrCodeParseError:              "INPUT_VALIDATION_FAILED",
	ErrCodeGenerationFailed:        "GENERATION_FAILED",
	ErrCodeGenerationTimeout:       "GENERATION_TIMEOUT",
	ErrCodeGenerationOutputInvalid: "GENERATION_FAILED",
	ErrCodeCacheUnavailable:        "CACHE_UNAVAILABLE",
	ErrCodeNotificationSendFailed:  "NOTIFICATION_SEND_FAILED",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeGenerationFailed,
		ErrCodeCacheUnavailable,
		ErrCodeNotificationSendFailed:
		return 3

	case ErrCodeGenerationOutputInvalid:
		return 2

	case ErrCodeGenerationTimeout:
		return 1

	default:
		return 0 // business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DOCUMENT"):
		return "DOCUMENTS"
	case strings.Contains(codeStr, "FINANCIAL") || strings.Contains(codeStr, "FUNDS"):
		return "FINANCE"
	case strings.Contains(codeStr, "COMPLIANCE"):
		return "COMPLIANCE"
	case strings.Contains(codeStr, "GENERATION"):
		return "AI"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "PARSE"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
