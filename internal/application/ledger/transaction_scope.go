package ledger

import (
	"context"

	"github.com/openbooks/backend/internal/domain/ledger"
)

// TransactionScope provides transactional access to ledger repositories.
// When a function is executed within a transaction scope, all repository operations
// will be part of the same database transaction and will be committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all ledger repositories within a transaction.
// All repositories returned share the same underlying database transaction.
//
// DDD Aggregate Boundary Notes:
//   - DocumentRepo: Repository for the Document aggregate root. Line items are child
//     entities persisted with the aggregate, never independently.
//   - PaymentRepo: Repository for the Payment aggregate root. Allocations are value
//     objects stored inside the payment row.
//   - AccountRepo: Repository for the derived LedgerAccount read model, recomputed
//     from documents inside the same transaction that mutates them.
type TransactionalRepositories interface {
	// DocumentRepo returns the document repository scoped to the current transaction
	DocumentRepo() ledger.DocumentRepository
	// PaymentRepo returns the payment repository scoped to the current transaction
	PaymentRepo() ledger.PaymentRepository
	// AccountRepo returns the ledger account repository scoped to the current transaction
	AccountRepo() ledger.LedgerAccountRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing or when transaction support is not required.
type NoOpTransactionScope struct {
	documentRepo ledger.DocumentRepository
	paymentRepo  ledger.PaymentRepository
	accountRepo  ledger.LedgerAccountRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	documentRepo ledger.DocumentRepository,
	paymentRepo ledger.PaymentRepository,
	accountRepo ledger.LedgerAccountRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		documentRepo: documentRepo,
		paymentRepo:  paymentRepo,
		accountRepo:  accountRepo,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// DocumentRepo returns the document repository.
func (s *NoOpTransactionScope) DocumentRepo() ledger.DocumentRepository {
	return s.documentRepo
}

// PaymentRepo returns the payment repository.
func (s *NoOpTransactionScope) PaymentRepo() ledger.PaymentRepository {
	return s.paymentRepo
}

// AccountRepo returns the ledger account repository.
func (s *NoOpTransactionScope) AccountRepo() ledger.LedgerAccountRepository {
	return s.accountRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
