package ledger

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/openbooks/backend/internal/domain/shared/valueobject"
)

// Error codes for the allocation taxonomy. Every business-rule rejection is
// returned as a typed *shared.DomainError carrying one of these codes;
// callers branch on the code, the message is for display.
const (
	ErrCodeInvalidLineItem          = "INVALID_LINE_ITEM"
	ErrCodeTotalsMismatch           = "TOTALS_MISMATCH"
	ErrCodeDocumentNotAllocatable   = "DOCUMENT_NOT_ALLOCATABLE"
	ErrCodeAllocationExceedsBalance = "ALLOCATION_EXCEEDS_BALANCE"
	ErrCodeAllocationSumMismatch    = "ALLOCATION_SUM_MISMATCH"
	ErrCodeStaleVersion             = "STALE_VERSION"
	ErrCodeStorage                  = "STORAGE_ERROR"
)

// NewInvalidLineItemError reports a line item that fails validation
func NewInvalidLineItemError(reason string) *shared.DomainError {
	return shared.NewDomainError(ErrCodeInvalidLineItem, reason)
}

// NewTotalsMismatchError reports a document whose stored totals do not match
// recomputation from its items
func NewTotalsMismatchError(documentNumber string, stored, computed valueobject.Money) *shared.DomainError {
	return shared.NewDomainError(ErrCodeTotalsMismatch,
		fmt.Sprintf("Document %s stored total %s does not match computed total %s",
			documentNumber, stored, computed))
}

// NewDocumentNotAllocatableError reports an allocation against a document
// that is not in an allocatable state
func NewDocumentNotAllocatableError(documentID uuid.UUID, reason string) *shared.DomainError {
	return shared.NewDomainError(ErrCodeDocumentNotAllocatable,
		fmt.Sprintf("Document %s cannot receive allocations: %s", documentID, reason))
}

// NewAllocationExceedsBalanceError reports a proposed allocation larger than
// the document's remaining balance
func NewAllocationExceedsBalanceError(documentNumber string, proposed, remaining valueobject.Money) *shared.DomainError {
	return shared.NewDomainError(ErrCodeAllocationExceedsBalance,
		fmt.Sprintf("Allocation of %s to document %s exceeds remaining balance %s",
			proposed, documentNumber, remaining))
}

// NewAllocationSumMismatchError reports a payment whose allocation amounts do
// not sum to its declared total
func NewAllocationSumMismatchError(declared, allocated valueobject.Money) *shared.DomainError {
	return shared.NewDomainError(ErrCodeAllocationSumMismatch,
		fmt.Sprintf("Allocations sum to %s but payment total is %s", allocated, declared))
}

// NewStorageError wraps a failed storage operation in the taxonomy
func NewStorageError(err error) *shared.DomainError {
	return shared.NewDomainError(ErrCodeStorage, fmt.Sprintf("Storage operation failed: %v", err))
}
