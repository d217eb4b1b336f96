package dto

import (
	"net/http"
	"strings"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeStorage is used when a persistence operation fails
	ErrCodeStorage = "ERR_STORAGE"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	// ErrCodeValidationRange is used when a value is out of range
	ErrCodeValidationRange = "ERR_VALIDATION_RANGE"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeStaleVersion is used when optimistic locking fails
	ErrCodeStaleVersion = "ERR_STALE_VERSION"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
	// ErrCodeInvalidLineItem is used when a document line item fails validation
	ErrCodeInvalidLineItem = "ERR_INVALID_LINE_ITEM"
	// ErrCodeTotalsMismatch is used when stored document totals disagree with recomputation
	ErrCodeTotalsMismatch = "ERR_TOTALS_MISMATCH"
	// ErrCodeNotAllocatable is used when a document cannot receive allocations
	ErrCodeNotAllocatable = "ERR_NOT_ALLOCATABLE"
	// ErrCodeAllocationExceedsBalance is used when an allocation exceeds the open balance
	ErrCodeAllocationExceedsBalance = "ERR_ALLOCATION_EXCEEDS_BALANCE"
	// ErrCodeAllocationSumMismatch is used when allocations do not sum to the payment total
	ErrCodeAllocationSumMismatch = "ERR_ALLOCATION_SUM_MISMATCH"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,
	ErrCodeStorage:  http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	// Resource errors
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeConflict:      http.StatusConflict,
	ErrCodeStaleVersion:  http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:             http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:             http.StatusUnprocessableEntity,
	ErrCodeNotAllocatable:           http.StatusUnprocessableEntity,
	ErrCodeAllocationExceedsBalance: http.StatusUnprocessableEntity,

	// Line item and totals problems are input-shaped -> 400 Bad Request
	ErrCodeInvalidLineItem:       http.StatusBadRequest,
	ErrCodeTotalsMismatch:        http.StatusBadRequest,
	ErrCodeAllocationSumMismatch: http.StatusBadRequest,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps domain error codes to the standardized codes
// carried on the wire
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":                  ErrCodeNotFound,
	"ALREADY_EXISTS":             ErrCodeAlreadyExists,
	"INVALID_INPUT":              ErrCodeInvalidInput,
	"INVALID_STATE":              ErrCodeInvalidState,
	"INVALID_LINE_ITEM":          ErrCodeInvalidLineItem,
	"TOTALS_MISMATCH":            ErrCodeTotalsMismatch,
	"DOCUMENT_NOT_ALLOCATABLE":   ErrCodeNotAllocatable,
	"ALLOCATION_EXCEEDS_BALANCE": ErrCodeAllocationExceedsBalance,
	"ALLOCATION_SUM_MISMATCH":    ErrCodeAllocationSumMismatch,
	"STALE_VERSION":              ErrCodeStaleVersion,
	"STORAGE_ERROR":              ErrCodeStorage,
	"VALIDATION_ERROR":           ErrCodeValidation,
	"BAD_REQUEST":                ErrCodeBadRequest,
	"INTERNAL_ERROR":             ErrCodeInternal,
	"DUPLICATE_PRODUCT":          ErrCodeAlreadyExists,
	"ITEM_NOT_FOUND":             ErrCodeNotFound,
	"NO_ITEMS":                   ErrCodeBusinessRule,
	"HAS_PAYMENTS":               ErrCodeBusinessRule,
	"ALREADY_ALLOCATED":          ErrCodeBusinessRule,
	"CURRENCY_MISMATCH":          ErrCodeBusinessRule,
}

// NormalizeErrorCode converts a domain error code to the standardized format
// Unmapped INVALID_* codes (rejected kinds, directions, amounts and the like)
// are treated as invalid input. Unknown codes return as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	if strings.HasPrefix(code, "INVALID_") {
		return ErrCodeInvalidInput
	}
	return code
}
