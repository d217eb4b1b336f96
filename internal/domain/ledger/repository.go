package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/shared"
)

// DocumentFilter defines filtering options for document queries
type DocumentFilter struct {
	shared.Filter
	Kind           *DocumentKind   // Filter by document kind
	Status         *DocumentStatus // Filter by status
	CounterpartyID *uuid.UUID      // Filter by counterparty
	FromDate       *time.Time      // Filter by creation date range start
	ToDate         *time.Time      // Filter by creation date range end
	DueFrom        *time.Time      // Filter by due date range start
	DueTo          *time.Time      // Filter by due date range end
	Overdue        *bool           // Filter only overdue documents
	Search         string          // Match document number or counterparty name
}

// DocumentRepository defines the interface for document persistence
type DocumentRepository interface {
	// FindByID finds a document by ID with its line items
	FindByID(ctx context.Context, id uuid.UUID) (*Document, error)

	// FindByNumber finds a document by its document number
	FindByNumber(ctx context.Context, documentNumber string) (*Document, error)

	// FindAll finds documents matching the filter
	FindAll(ctx context.Context, filter DocumentFilter) ([]Document, error)

	// Count counts documents matching the filter
	Count(ctx context.Context, filter DocumentFilter) (int64, error)

	// FindAllocatable finds Open and PartiallyPaid documents for a counterparty
	FindAllocatable(ctx context.Context, counterpartyID uuid.UUID) ([]Document, error)

	// FindActiveForCounterparty finds all finalized, non-cancelled documents
	// for a counterparty (the source set for account recomputation)
	FindActiveForCounterparty(ctx context.Context, counterpartyID uuid.UUID) ([]Document, error)

	// Save creates or updates a document and its line items
	Save(ctx context.Context, document *Document) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, document *Document) error

	// GenerateNumber generates the next document number for a kind
	GenerateNumber(ctx context.Context, kind DocumentKind) (string, error)

	// Delete soft deletes a draft document
	Delete(ctx context.Context, id uuid.UUID) error
}

// PaymentFilter defines filtering options for payment queries
type PaymentFilter struct {
	shared.Filter
	Direction      *PaymentDirection
	Method         *PaymentMethod
	Status         *PaymentStatus
	CounterpartyID *uuid.UUID
	FromDate       *time.Time
	ToDate         *time.Time
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	// FindByID finds a payment by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByNumber finds a payment by its payment number
	FindByNumber(ctx context.Context, paymentNumber string) (*Payment, error)

	// FindAll finds payments matching the filter
	FindAll(ctx context.Context, filter PaymentFilter) ([]Payment, error)

	// Count counts payments matching the filter
	Count(ctx context.Context, filter PaymentFilter) (int64, error)

	// FindByDocument finds active payments with an allocation to a document
	FindByDocument(ctx context.Context, documentID uuid.UUID) ([]Payment, error)

	// Save creates or updates a payment
	Save(ctx context.Context, payment *Payment) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, payment *Payment) error

	// GenerateNumber generates the next payment number for a direction
	GenerateNumber(ctx context.Context, direction PaymentDirection) (string, error)
}

// LedgerAccountRepository defines the interface for ledger account persistence
type LedgerAccountRepository interface {
	// FindByCounterparty finds the account for a counterparty
	FindByCounterparty(ctx context.Context, counterpartyID uuid.UUID) (*LedgerAccount, error)

	// FindAll finds accounts with pagination
	FindAll(ctx context.Context, filter shared.Filter) ([]LedgerAccount, error)

	// Count counts all accounts
	Count(ctx context.Context) (int64, error)

	// ListCounterpartyIDs lists every counterparty that has an account
	ListCounterpartyIDs(ctx context.Context) ([]uuid.UUID, error)

	// Save creates or updates an account
	Save(ctx context.Context, account *LedgerAccount) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, account *LedgerAccount) error
}
