package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/ledger"
	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/openbooks/backend/internal/domain/shared/valueobject"
)

// AccountService provides ledger account queries and reconciliation: since
// accounts are derived from documents, reconciliation recomputes every
// account and reports any drift between the stored and recomputed balances.
type AccountService struct {
	txScope      TransactionScope
	accountRepo  ledger.LedgerAccountRepository
	documentRepo ledger.DocumentRepository
}

// NewAccountService creates a new AccountService
func NewAccountService(txScope TransactionScope, accountRepo ledger.LedgerAccountRepository, documentRepo ledger.DocumentRepository) *AccountService {
	return &AccountService{
		txScope:      txScope,
		accountRepo:  accountRepo,
		documentRepo: documentRepo,
	}
}

// AccountResponse represents a ledger account in API responses
type AccountResponse struct {
	ID                 uuid.UUID         `json:"id"`
	CounterpartyID     uuid.UUID         `json:"counterparty_id"`
	CounterpartyType   string            `json:"counterparty_type"`
	CounterpartyName   string            `json:"counterparty_name"`
	Currency           string            `json:"currency"`
	OutstandingBalance valueobject.Money `json:"outstanding_balance"`
	TotalActivity      valueobject.Money `json:"total_activity"`
	OpenDocuments      int               `json:"open_documents"`
	RecomputedAt       time.Time         `json:"recomputed_at"`
	Version            int               `json:"version"`
}

// AccountDrift reports one account whose stored balance disagreed with the
// balance recomputed from its documents
type AccountDrift struct {
	CounterpartyID    uuid.UUID         `json:"counterparty_id"`
	CounterpartyName  string            `json:"counterparty_name"`
	StoredBalance     valueobject.Money `json:"stored_balance"`
	RecomputedBalance valueobject.Money `json:"recomputed_balance"`
	// Drift is the unsigned stored-minus-recomputed magnitude, Overstated
	// tells which way the stored balance was wrong.
	Drift      valueobject.Money `json:"drift"`
	Overstated bool              `json:"overstated"`
}

// ReconciliationReport summarizes a full reconciliation run
type ReconciliationReport struct {
	AccountsChecked int            `json:"accounts_checked"`
	DriftsFound     int            `json:"drifts_found"`
	Drifts          []AccountDrift `json:"drifts"`
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      time.Time      `json:"finished_at"`
}

// GetAccount gets the account for a counterparty
func (s *AccountService) GetAccount(ctx context.Context, counterpartyID uuid.UUID) (*AccountResponse, error) {
	account, err := s.accountRepo.FindByCounterparty(ctx, counterpartyID)
	if err != nil {
		return nil, err
	}
	return toAccountResponse(account), nil
}

// ListAccounts lists all accounts with pagination
func (s *AccountService) ListAccounts(ctx context.Context, page, pageSize int) ([]AccountResponse, int64, error) {
	filter := shared.DefaultFilter()
	if page > 0 {
		filter.Page = page
	}
	if pageSize > 0 {
		filter.PageSize = pageSize
	}

	accounts, err := s.accountRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.accountRepo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]AccountResponse, len(accounts))
	for i := range accounts {
		responses[i] = *toAccountResponse(&accounts[i])
	}
	return responses, total, nil
}

// RecomputeAccount rebuilds one counterparty's account from its documents
func (s *AccountService) RecomputeAccount(ctx context.Context, counterpartyID uuid.UUID) (*AccountResponse, error) {
	var account *ledger.LedgerAccount
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		account, err = repos.AccountRepo().FindByCounterparty(ctx, counterpartyID)
		if err != nil {
			return err
		}
		if err := recomputeAccount(ctx, repos, counterpartyID, nil); err != nil {
			return err
		}
		account, err = repos.AccountRepo().FindByCounterparty(ctx, counterpartyID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toAccountResponse(account), nil
}

// ReconcileAll recomputes every account and reports any drift found between
// the stored balances and the balances derived from the source documents.
// Each account is reconciled in its own transaction so one stale account
// does not abort the run.
func (s *AccountService) ReconcileAll(ctx context.Context) (*ReconciliationReport, error) {
	report := &ReconciliationReport{
		StartedAt: time.Now(),
		Drifts:    []AccountDrift{},
	}

	counterpartyIDs, err := s.accountRepo.ListCounterpartyIDs(ctx)
	if err != nil {
		return nil, err
	}

	for _, counterpartyID := range counterpartyIDs {
		err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			account, err := repos.AccountRepo().FindByCounterparty(ctx, counterpartyID)
			if err != nil {
				return err
			}
			stored := account.OutstandingBalance

			docs, err := repos.DocumentRepo().FindActiveForCounterparty(ctx, counterpartyID)
			if err != nil {
				return err
			}
			docPtrs := make([]*ledger.Document, len(docs))
			for i := range docs {
				docPtrs[i] = &docs[i]
			}
			if err := account.Recompute(docPtrs); err != nil {
				return err
			}

			if !stored.Equals(account.OutstandingBalance) {
				delta, err := stored.SubtractAllowingNegative(account.OutstandingBalance)
				if err != nil {
					return err
				}
				overstated := delta.IsPositive()
				if delta.IsNegative() {
					delta = delta.Negate()
				}
				report.Drifts = append(report.Drifts, AccountDrift{
					CounterpartyID:    counterpartyID,
					CounterpartyName:  account.CounterpartyName,
					StoredBalance:     stored,
					RecomputedBalance: account.OutstandingBalance,
					Drift:             delta,
					Overstated:        overstated,
				})
			}

			return repos.AccountRepo().Save(ctx, account)
		})
		if err != nil {
			return nil, err
		}
		report.AccountsChecked++
	}

	report.DriftsFound = len(report.Drifts)
	report.FinishedAt = time.Now()
	return report, nil
}

func toAccountResponse(a *ledger.LedgerAccount) *AccountResponse {
	return &AccountResponse{
		ID:                 a.ID,
		CounterpartyID:     a.CounterpartyID,
		CounterpartyType:   string(a.CounterpartyType),
		CounterpartyName:   a.CounterpartyName,
		Currency:           string(a.Currency),
		OutstandingBalance: a.OutstandingBalance,
		TotalActivity:      a.TotalActivity,
		OpenDocuments:      a.OpenDocuments,
		RecomputedAt:       a.RecomputedAt,
		Version:            a.Version,
	}
}
