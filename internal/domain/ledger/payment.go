package ledger

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/openbooks/backend/internal/domain/shared/valueobject"
)

// PaymentDirection represents the direction of cash movement
type PaymentDirection string

const (
	PaymentDirectionIncoming PaymentDirection = "INCOMING"
	PaymentDirectionOutgoing PaymentDirection = "OUTGOING"
)

// IsValid checks if the direction is valid
func (d PaymentDirection) IsValid() bool {
	return d == PaymentDirectionIncoming || d == PaymentDirectionOutgoing
}

// String returns the string representation of PaymentDirection
func (d PaymentDirection) String() string {
	return string(d)
}

// PaymentMethod represents the method of payment
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCheck        PaymentMethod = "CHECK"
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodOther        PaymentMethod = "OTHER"
)

// IsValid checks if the method is a valid PaymentMethod
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCheck,
		PaymentMethodCard, PaymentMethodOther:
		return true
	}
	return false
}

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusActive   PaymentStatus = "ACTIVE"
	PaymentStatusReversed PaymentStatus = "REVERSED"
)

// IsValid checks if the status is valid
func (s PaymentStatus) IsValid() bool {
	return s == PaymentStatusActive || s == PaymentStatusReversed
}

// Allocation represents the application of part of a payment to one document.
// It is a value object within the Payment aggregate, stored as JSONB.
type Allocation struct {
	ID             uuid.UUID         `json:"id"`
	PaymentID      uuid.UUID         `json:"payment_id"`
	DocumentID     uuid.UUID         `json:"document_id"`
	DocumentNumber string            `json:"document_number"` // Denormalized for display
	Amount         valueobject.Money `json:"amount"`
	AllocatedAt    time.Time         `json:"allocated_at"`
}

// NewAllocation creates a new allocation record
func NewAllocation(paymentID, documentID uuid.UUID, documentNumber string, amount valueobject.Money) Allocation {
	return Allocation{
		ID:             uuid.New(),
		PaymentID:      paymentID,
		DocumentID:     documentID,
		DocumentNumber: documentNumber,
		Amount:         amount,
		AllocatedAt:    time.Now(),
	}
}

// Allocations is a slice of Allocation that implements GORM Scanner/Valuer for JSONB storage
type Allocations []Allocation

// Value implements driver.Valuer interface for GORM to store as JSONB
func (a Allocations) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (a *Allocations) Scan(value interface{}) error {
	if value == nil {
		*a = Allocations{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan Allocations: unsupported type")
	}

	if len(bytes) == 0 {
		*a = Allocations{}
		return nil
	}

	return json.Unmarshal(bytes, a)
}

// Payment represents a payment aggregate root: one cash movement fully
// allocated across one or more documents of the same counterparty. Every
// allocation amount must be positive and the amounts always sum exactly to
// TotalAmount; a payment is never stored partially allocated.
type Payment struct {
	shared.BaseAggregateRoot
	PaymentNumber  string
	Direction      PaymentDirection
	Method         PaymentMethod
	CounterpartyID uuid.UUID
	TotalAmount    valueobject.Money
	Allocations    Allocations
	Status         PaymentStatus
	Reference      string
	PaymentDate    time.Time
	Remark         string
	ReversedAt     *time.Time
	ReversalReason string
}

// NewPayment creates a new payment with no allocations yet. The allocation
// engine attaches allocations before the payment is ever persisted.
func NewPayment(paymentNumber string, direction PaymentDirection, method PaymentMethod, counterpartyID uuid.UUID, totalAmount valueobject.Money, paymentDate time.Time) (*Payment, error) {
	if paymentNumber == "" {
		return nil, shared.NewDomainError("INVALID_PAYMENT_NUMBER", "Payment number cannot be empty")
	}
	if len(paymentNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_PAYMENT_NUMBER", "Payment number cannot exceed 50 characters")
	}
	if !direction.IsValid() {
		return nil, shared.NewDomainError("INVALID_DIRECTION", "Payment direction is not valid")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method is not valid")
	}
	if counterpartyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COUNTERPARTY", "Counterparty ID cannot be empty")
	}
	if !totalAmount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if paymentDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_DATE", "Payment date is required")
	}

	return &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		PaymentNumber:     paymentNumber,
		Direction:         direction,
		Method:            method,
		CounterpartyID:    counterpartyID,
		TotalAmount:       totalAmount,
		Allocations:       Allocations{},
		Status:            PaymentStatusActive,
		PaymentDate:       paymentDate,
	}, nil
}

// AddAllocation attaches an allocation to the payment. A document may appear
// at most once per payment; duplicate targets must be merged before this
// point.
func (p *Payment) AddAllocation(documentID uuid.UUID, documentNumber string, amount valueobject.Money) (*Allocation, error) {
	if p.Status != PaymentStatusActive {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot allocate payment in %s status", p.Status))
	}
	if documentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_DOCUMENT", "Document ID cannot be empty")
	}
	if documentNumber == "" {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_NUMBER", "Document number is required")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Allocation amount must be positive")
	}
	for _, alloc := range p.Allocations {
		if alloc.DocumentID == documentID {
			return nil, shared.NewDomainError("ALREADY_ALLOCATED", fmt.Sprintf("Already allocated to document %s", documentNumber))
		}
	}

	allocation := NewAllocation(p.ID, documentID, documentNumber, amount)
	p.Allocations = append(p.Allocations, allocation)
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return &allocation, nil
}

// AllocatedTotal returns the sum of all allocation amounts
func (p *Payment) AllocatedTotal() valueobject.Money {
	total := valueobject.Zero(p.TotalAmount.Currency())
	for _, alloc := range p.Allocations {
		total = total.MustAdd(alloc.Amount)
	}
	return total
}

// IsFullyAllocated returns true if the allocations sum exactly to the total
func (p *Payment) IsFullyAllocated() bool {
	return p.AllocatedTotal().Equals(p.TotalAmount)
}

// ValidateFullAllocation checks the allocation-sum invariant
func (p *Payment) ValidateFullAllocation() error {
	if !p.IsFullyAllocated() {
		return NewAllocationSumMismatchError(p.TotalAmount, p.AllocatedTotal())
	}
	return nil
}

// MarkReversed marks the payment as reversed, linking the reversal
func (p *Payment) MarkReversed(reason string) error {
	if p.Status != PaymentStatusActive {
		return shared.NewDomainError("INVALID_STATE", "Payment is already reversed")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Reversal reason is required")
	}

	now := time.Now()
	p.Status = PaymentStatusReversed
	p.ReversedAt = &now
	p.ReversalReason = reason
	p.UpdatedAt = now
	p.IncrementVersion()

	return nil
}

// IsActive returns true if the payment has not been reversed
func (p *Payment) IsActive() bool {
	return p.Status == PaymentStatusActive
}

// SetRemark sets the remark
func (p *Payment) SetRemark(remark string) {
	p.Remark = remark
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}
