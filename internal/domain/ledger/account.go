package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/openbooks/backend/internal/domain/shared/valueobject"
)

// LedgerAccount represents the running position of one counterparty. It is a
// derived read model: the source documents are authoritative, and the account
// is recomputed from them after every mutation rather than adjusted
// incrementally. Drift between the two is a bug surfaced by reconciliation.
type LedgerAccount struct {
	shared.BaseAggregateRoot
	CounterpartyID     uuid.UUID
	CounterpartyType   CounterpartyType
	CounterpartyName   string
	Currency           valueobject.Currency
	OutstandingBalance valueobject.Money
	TotalActivity      valueobject.Money
	OpenDocuments      int
	RecomputedAt       time.Time
}

// NewLedgerAccount creates an empty account for a counterparty
func NewLedgerAccount(counterpartyID uuid.UUID, counterpartyType CounterpartyType, counterpartyName string, currency valueobject.Currency) (*LedgerAccount, error) {
	if counterpartyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COUNTERPARTY", "Counterparty ID cannot be empty")
	}
	if !counterpartyType.IsValid() {
		return nil, shared.NewDomainError("INVALID_COUNTERPARTY_TYPE", "Counterparty type is not valid")
	}
	if counterpartyName == "" {
		return nil, shared.NewDomainError("INVALID_COUNTERPARTY_NAME", "Counterparty name cannot be empty")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}

	return &LedgerAccount{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		CounterpartyID:     counterpartyID,
		CounterpartyType:   counterpartyType,
		CounterpartyName:   counterpartyName,
		Currency:           currency,
		OutstandingBalance: valueobject.Zero(currency),
		TotalActivity:      valueobject.Zero(currency),
		RecomputedAt:       time.Now(),
	}, nil
}

// Recompute rebuilds the account from the counterparty's finalized,
// non-cancelled documents: outstanding balance is the sum of remaining
// balances, total activity the sum of document totals. Documents belonging
// to other counterparties are skipped rather than rejected; the caller is
// expected to pass the full set for this counterparty.
func (a *LedgerAccount) Recompute(docs []*Document) error {
	outstanding := valueobject.Zero(a.Currency)
	activity := valueobject.Zero(a.Currency)
	open := 0

	for _, doc := range docs {
		if doc.CounterpartyID != a.CounterpartyID {
			continue
		}
		if !doc.Status.IsFinalized() || doc.Status == DocumentStatusCancelled {
			continue
		}

		total, err := activity.Add(doc.Total)
		if err != nil {
			return shared.NewDomainError("CURRENCY_MISMATCH", err.Error())
		}
		activity = total

		remaining, err := outstanding.Add(doc.RemainingBalance())
		if err != nil {
			return shared.NewDomainError("CURRENCY_MISMATCH", err.Error())
		}
		outstanding = remaining

		if doc.Status.CanAllocate() {
			open++
		}
	}

	a.OutstandingBalance = outstanding
	a.TotalActivity = activity
	a.OpenDocuments = open
	a.RecomputedAt = time.Now()
	a.UpdatedAt = a.RecomputedAt
	a.IncrementVersion()

	return nil
}

// HasOutstandingBalance returns true if the counterparty still owes anything
func (a *LedgerAccount) HasOutstandingBalance() bool {
	return a.OutstandingBalance.IsPositive()
}
