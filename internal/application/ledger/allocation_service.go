package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/ledger"
	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/openbooks/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// AllocationService drives the payment allocation engine: applying one
// payment across documents atomically, and reversing a prior payment. Every
// command runs inside a single transaction scope so that either all affected
// aggregates are written or none are.
type AllocationService struct {
	txScope     TransactionScope
	paymentRepo ledger.PaymentRepository
}

// NewAllocationService creates a new AllocationService
func NewAllocationService(txScope TransactionScope, paymentRepo ledger.PaymentRepository) *AllocationService {
	return &AllocationService{
		txScope:     txScope,
		paymentRepo: paymentRepo,
	}
}

// AllocationInput is one caller-ordered allocation line of a payment request
type AllocationInput struct {
	DocumentRef uuid.UUID       `json:"document_ref" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
}

// ApplyPaymentRequest represents a request to apply a payment across documents
type ApplyPaymentRequest struct {
	Direction      string            `json:"direction" binding:"required"`
	Method         string            `json:"method" binding:"required"`
	CounterpartyID uuid.UUID         `json:"counterparty_id" binding:"required"`
	TotalAmount    decimal.Decimal   `json:"total_amount" binding:"required"`
	Currency       string            `json:"currency"`
	PaymentDate    time.Time         `json:"payment_date"`
	Reference      string            `json:"reference"`
	Remark         string            `json:"remark"`
	Allocations    []AllocationInput `json:"allocations" binding:"required,min=1"`
}

// AllocationResponse represents one allocation in API responses
type AllocationResponse struct {
	ID             uuid.UUID         `json:"id"`
	DocumentID     uuid.UUID         `json:"document_id"`
	DocumentNumber string            `json:"document_number"`
	Amount         valueobject.Money `json:"amount"`
	AllocatedAt    time.Time         `json:"allocated_at"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID             uuid.UUID            `json:"id"`
	PaymentNumber  string               `json:"payment_number"`
	Direction      string               `json:"direction"`
	Method         string               `json:"method"`
	CounterpartyID uuid.UUID            `json:"counterparty_id"`
	TotalAmount    valueobject.Money    `json:"total_amount"`
	Status         string               `json:"status"`
	Reference      string               `json:"reference,omitempty"`
	PaymentDate    time.Time            `json:"payment_date"`
	Allocations    []AllocationResponse `json:"allocations"`
	Remark         string               `json:"remark,omitempty"`
	ReversedAt     *time.Time           `json:"reversed_at,omitempty"`
	ReversalReason string               `json:"reversal_reason,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
	Version        int                  `json:"version"`
}

// PaymentListFilter defines filtering options for payment list queries
type PaymentListFilter struct {
	Direction      string     `form:"direction"`
	Method         string     `form:"method"`
	Status         string     `form:"status"`
	CounterpartyID *uuid.UUID `form:"counterparty_id"`
	FromDate       *time.Time `form:"from_date"`
	ToDate         *time.Time `form:"to_date"`
	Page           int        `form:"page"`
	PageSize       int        `form:"page_size"`
}

// mergedAllocation is one allocation line after duplicate document
// references have been combined. Order follows the first occurrence of each
// document in the request.
type mergedAllocation struct {
	documentRef uuid.UUID
	amount      valueobject.Money
}

// mergeAllocations combines duplicate document references by summing their
// amounts, preserving the caller's ordering by first occurrence
func mergeAllocations(inputs []AllocationInput, currency valueobject.Currency) ([]mergedAllocation, error) {
	merged := make([]mergedAllocation, 0, len(inputs))
	index := make(map[uuid.UUID]int, len(inputs))

	for _, input := range inputs {
		amount, err := valueobject.NewMoneyFromDecimal(input.Amount, currency)
		if err != nil {
			return nil, shared.NewDomainError("INVALID_AMOUNT",
				fmt.Sprintf("Allocation amount for document %s: %v", input.DocumentRef, err))
		}
		if pos, ok := index[input.DocumentRef]; ok {
			merged[pos].amount = merged[pos].amount.MustAdd(amount)
			continue
		}
		index[input.DocumentRef] = len(merged)
		merged = append(merged, mergedAllocation{documentRef: input.DocumentRef, amount: amount})
	}

	return merged, nil
}

// ApplyPayment validates and applies one payment across the requested
// documents. Preconditions run in three ordered passes over the caller's
// allocation order: document state and ownership first, then per-document
// balance limits, then the allocation-sum check. The first failure aborts
// the whole payment; on success every document, the payment and the
// counterparty's account are written in one transaction.
func (s *AllocationService) ApplyPayment(ctx context.Context, req ApplyPaymentRequest) (*PaymentResponse, error) {
	direction := ledger.PaymentDirection(req.Direction)
	if !direction.IsValid() {
		return nil, shared.NewDomainError("INVALID_DIRECTION", "Payment direction is not valid")
	}
	method := ledger.PaymentMethod(req.Method)
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method is not valid")
	}
	currency := valueobject.Currency(req.Currency)
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	totalAmount, err := valueobject.NewMoneyFromDecimal(req.TotalAmount, currency)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_AMOUNT", err.Error())
	}
	if len(req.Allocations) == 0 {
		return nil, shared.NewDomainError("INVALID_ALLOCATIONS", "At least one allocation is required")
	}
	paymentDate := req.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}

	merged, err := mergeAllocations(req.Allocations, currency)
	if err != nil {
		return nil, err
	}

	var payment *ledger.Payment
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		docs := make([]*ledger.Document, len(merged))

		// Pass 1: every document exists, belongs to the counterparty, is in
		// an allocatable state and its stored totals still agree with what
		// the items compute.
		for i, alloc := range merged {
			doc, err := repos.DocumentRepo().FindByID(ctx, alloc.documentRef)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return ledger.NewDocumentNotAllocatableError(alloc.documentRef, "document not found")
				}
				return err
			}
			if doc.CounterpartyID != req.CounterpartyID {
				return ledger.NewDocumentNotAllocatableError(doc.ID, "document belongs to a different counterparty")
			}
			if !doc.Status.CanAllocate() {
				return ledger.NewDocumentNotAllocatableError(doc.ID, fmt.Sprintf("document is in %s status", doc.Status))
			}
			if doc.Kind.SettlementDirection() != direction {
				return ledger.NewDocumentNotAllocatableError(doc.ID,
					fmt.Sprintf("%s documents are settled by %s payments", doc.Kind, doc.Kind.SettlementDirection()))
			}
			if err := doc.ValidateTotals(); err != nil {
				return err
			}
			docs[i] = doc
		}

		// Pass 2: every amount is positive and within the document's
		// remaining balance.
		for i, alloc := range merged {
			if !alloc.amount.IsPositive() {
				return shared.NewDomainError("INVALID_AMOUNT",
					fmt.Sprintf("Allocation to document %s must be positive", docs[i].DocumentNumber))
			}
			remaining := docs[i].RemainingBalance()
			exceeds, err := alloc.amount.GreaterThan(remaining)
			if err != nil {
				return shared.NewDomainError("INVALID_AMOUNT", err.Error())
			}
			if exceeds {
				return ledger.NewAllocationExceedsBalanceError(docs[i].DocumentNumber, alloc.amount, remaining)
			}
		}

		// Pass 3: the allocations consume the payment exactly.
		allocated := valueobject.Zero(currency)
		for _, alloc := range merged {
			allocated = allocated.MustAdd(alloc.amount)
		}
		if !allocated.Equals(totalAmount) {
			return ledger.NewAllocationSumMismatchError(totalAmount, allocated)
		}

		paymentNumber, err := repos.PaymentRepo().GenerateNumber(ctx, direction)
		if err != nil {
			return err
		}
		payment, err = ledger.NewPayment(paymentNumber, direction, method, req.CounterpartyID, totalAmount, paymentDate)
		if err != nil {
			return err
		}
		payment.Reference = req.Reference
		if req.Remark != "" {
			payment.SetRemark(req.Remark)
		}

		for i, alloc := range merged {
			if _, err := payment.AddAllocation(docs[i].ID, docs[i].DocumentNumber, alloc.amount); err != nil {
				return err
			}
			if err := docs[i].ApplyAllocation(alloc.amount); err != nil {
				return err
			}
			if err := repos.DocumentRepo().SaveWithLock(ctx, docs[i]); err != nil {
				return err
			}
		}
		if err := payment.ValidateFullAllocation(); err != nil {
			return err
		}
		if err := repos.PaymentRepo().Save(ctx, payment); err != nil {
			return err
		}

		return recomputeAccount(ctx, repos, req.CounterpartyID, docs[0])
	})
	if err != nil {
		return nil, err
	}

	return toPaymentResponse(payment), nil
}

// ReversePayment undoes a prior payment as its exact inverse: each document
// gets its allocation amount subtracted and its status re-derived, and the
// payment is marked reversed. Runs in one transaction.
func (s *AllocationService) ReversePayment(ctx context.Context, paymentID uuid.UUID, reason string) (*PaymentResponse, error) {
	if reason == "" {
		return nil, shared.NewDomainError("INVALID_REASON", "Reversal reason is required")
	}

	var payment *ledger.Payment
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		payment, err = repos.PaymentRepo().FindByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if !payment.IsActive() {
			return shared.NewDomainError("INVALID_STATE", "Payment is already reversed")
		}

		var firstDoc *ledger.Document
		for _, alloc := range payment.Allocations {
			doc, err := repos.DocumentRepo().FindByID(ctx, alloc.DocumentID)
			if err != nil {
				return err
			}
			if err := doc.RevertAllocation(alloc.Amount); err != nil {
				return err
			}
			if err := repos.DocumentRepo().SaveWithLock(ctx, doc); err != nil {
				return err
			}
			if firstDoc == nil {
				firstDoc = doc
			}
		}

		if err := payment.MarkReversed(reason); err != nil {
			return err
		}
		if err := repos.PaymentRepo().SaveWithLock(ctx, payment); err != nil {
			return err
		}

		return recomputeAccount(ctx, repos, payment.CounterpartyID, firstDoc)
	})
	if err != nil {
		return nil, err
	}

	return toPaymentResponse(payment), nil
}

// GetPaymentByID gets a payment by ID
func (s *AllocationService) GetPaymentByID(ctx context.Context, id uuid.UUID) (*PaymentResponse, error) {
	payment, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toPaymentResponse(payment), nil
}

// ListPayments lists payments with filtering and pagination
func (s *AllocationService) ListPayments(ctx context.Context, filter PaymentListFilter) ([]PaymentResponse, int64, error) {
	repoFilter := ledger.PaymentFilter{
		Filter:         shared.DefaultFilter(),
		CounterpartyID: filter.CounterpartyID,
		FromDate:       filter.FromDate,
		ToDate:         filter.ToDate,
	}
	if filter.Page > 0 {
		repoFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		repoFilter.PageSize = filter.PageSize
	}
	if filter.Direction != "" {
		direction := ledger.PaymentDirection(filter.Direction)
		repoFilter.Direction = &direction
	}
	if filter.Method != "" {
		method := ledger.PaymentMethod(filter.Method)
		repoFilter.Method = &method
	}
	if filter.Status != "" {
		status := ledger.PaymentStatus(filter.Status)
		repoFilter.Status = &status
	}

	payments, err := s.paymentRepo.FindAll(ctx, repoFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.paymentRepo.Count(ctx, repoFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]PaymentResponse, len(payments))
	for i := range payments {
		responses[i] = *toPaymentResponse(&payments[i])
	}
	return responses, total, nil
}

// recomputeAccount rebuilds the counterparty's ledger account from its
// documents inside the current transaction. The sample document supplies the
// counterparty name, type and currency when the account does not exist yet.
func recomputeAccount(ctx context.Context, repos TransactionalRepositories, counterpartyID uuid.UUID, sample *ledger.Document) error {
	account, err := repos.AccountRepo().FindByCounterparty(ctx, counterpartyID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if sample == nil {
			return nil
		}
		account, err = ledger.NewLedgerAccount(counterpartyID, sample.Kind.CounterpartyType(), sample.CounterpartyName, sample.Currency)
		if err != nil {
			return err
		}
	}

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
	return repos.AccountRepo().Save(ctx, account)
}

func toAllocationResponse(a *ledger.Allocation) AllocationResponse {
	return AllocationResponse{
		ID:             a.ID,
		DocumentID:     a.DocumentID,
		DocumentNumber: a.DocumentNumber,
		Amount:         a.Amount,
		AllocatedAt:    a.AllocatedAt,
	}
}

func toPaymentResponse(p *ledger.Payment) *PaymentResponse {
	allocations := make([]AllocationResponse, len(p.Allocations))
	for i := range p.Allocations {
		allocations[i] = toAllocationResponse(&p.Allocations[i])
	}
	return &PaymentResponse{
		ID:             p.ID,
		PaymentNumber:  p.PaymentNumber,
		Direction:      p.Direction.String(),
		Method:         string(p.Method),
		CounterpartyID: p.CounterpartyID,
		TotalAmount:    p.TotalAmount,
		Status:         string(p.Status),
		Reference:      p.Reference,
		PaymentDate:    p.PaymentDate,
		Allocations:    allocations,
		Remark:         p.Remark,
		ReversedAt:     p.ReversedAt,
		ReversalReason: p.ReversalReason,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		Version:        p.Version,
	}
}
