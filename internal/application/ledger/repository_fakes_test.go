package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/ledger"
	"github.com/openbooks/backend/internal/domain/shared"
)

// In-memory repositories backing the service tests. They clone aggregates on
// read and write so that unsaved mutations never leak into the store, which
// lets the tests observe the all-or-nothing behavior of rejected commands.

func cloneDocument(d *ledger.Document) *ledger.Document {
	c := *d
	c.Items = append([]ledger.LineItem(nil), d.Items...)
	return &c
}

func clonePayment(p *ledger.Payment) *ledger.Payment {
	c := *p
	c.Allocations = append(ledger.Allocations(nil), p.Allocations...)
	return &c
}

type memDocumentRepo struct {
	mu        sync.Mutex
	docs      map[uuid.UUID]*ledger.Document
	seq       int
	staleNext bool
}

func newMemDocumentRepo() *memDocumentRepo {
	return &memDocumentRepo{docs: make(map[uuid.UUID]*ledger.Document)}
}

func (r *memDocumentRepo) put(doc *ledger.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = cloneDocument(doc)
}

func (r *memDocumentRepo) FindByID(_ context.Context, id uuid.UUID) (*ledger.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneDocument(doc), nil
}

func (r *memDocumentRepo) FindByNumber(_ context.Context, documentNumber string) (*ledger.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		if doc.DocumentNumber == documentNumber {
			return cloneDocument(doc), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memDocumentRepo) FindAll(_ context.Context, filter ledger.DocumentFilter) ([]ledger.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]ledger.Document, 0, len(r.docs))
	for _, doc := range r.docs {
		if filter.Status != nil && doc.Status != *filter.Status {
			continue
		}
		if filter.CounterpartyID != nil && doc.CounterpartyID != *filter.CounterpartyID {
			continue
		}
		result = append(result, *cloneDocument(doc))
	}
	return result, nil
}

func (r *memDocumentRepo) Count(ctx context.Context, filter ledger.DocumentFilter) (int64, error) {
	docs, err := r.FindAll(ctx, filter)
	return int64(len(docs)), err
}

func (r *memDocumentRepo) FindAllocatable(_ context.Context, counterpartyID uuid.UUID) ([]ledger.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]ledger.Document, 0)
	for _, doc := range r.docs {
		if doc.CounterpartyID == counterpartyID && doc.Status.CanAllocate() {
			result = append(result, *cloneDocument(doc))
		}
	}
	return result, nil
}

func (r *memDocumentRepo) FindActiveForCounterparty(_ context.Context, counterpartyID uuid.UUID) ([]ledger.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]ledger.Document, 0)
	for _, doc := range r.docs {
		if doc.CounterpartyID == counterpartyID && doc.Status.IsFinalized() && doc.Status != ledger.DocumentStatusCancelled {
			result = append(result, *cloneDocument(doc))
		}
	}
	return result, nil
}

func (r *memDocumentRepo) Save(_ context.Context, document *ledger.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[document.ID] = cloneDocument(document)
	return nil
}

func (r *memDocumentRepo) SaveWithLock(_ context.Context, document *ledger.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.staleNext {
		r.staleNext = false
		return shared.ErrStaleVersion
	}
	r.docs[document.ID] = cloneDocument(document)
	return nil
}

func (r *memDocumentRepo) GenerateNumber(_ context.Context, kind ledger.DocumentKind) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return fmt.Sprintf("%s-20260115-%05d", kind.NumberPrefix(), r.seq), nil
}

func (r *memDocumentRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.docs, id)
	return nil
}

type memPaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*ledger.Payment
	seq      int
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{payments: make(map[uuid.UUID]*ledger.Payment)}
}

func (r *memPaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*ledger.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	payment, ok := r.payments[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return clonePayment(payment), nil
}

func (r *memPaymentRepo) FindByNumber(_ context.Context, paymentNumber string) (*ledger.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, payment := range r.payments {
		if payment.PaymentNumber == paymentNumber {
			return clonePayment(payment), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memPaymentRepo) FindAll(_ context.Context, filter ledger.PaymentFilter) ([]ledger.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]ledger.Payment, 0, len(r.payments))
	for _, payment := range r.payments {
		if filter.CounterpartyID != nil && payment.CounterpartyID != *filter.CounterpartyID {
			continue
		}
		if filter.Status != nil && payment.Status != *filter.Status {
			continue
		}
		result = append(result, *clonePayment(payment))
	}
	return result, nil
}

func (r *memPaymentRepo) Count(ctx context.Context, filter ledger.PaymentFilter) (int64, error) {
	payments, err := r.FindAll(ctx, filter)
	return int64(len(payments)), err
}

func (r *memPaymentRepo) FindByDocument(_ context.Context, documentID uuid.UUID) ([]ledger.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]ledger.Payment, 0)
	for _, payment := range r.payments {
		if !payment.IsActive() {
			continue
		}
		for _, alloc := range payment.Allocations {
			if alloc.DocumentID == documentID {
				result = append(result, *clonePayment(payment))
				break
			}
		}
	}
	return result, nil
}

func (r *memPaymentRepo) Save(_ context.Context, payment *ledger.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[payment.ID] = clonePayment(payment)
	return nil
}

func (r *memPaymentRepo) SaveWithLock(_ context.Context, payment *ledger.Payment) error {
	return r.Save(nil, payment)
}

func (r *memPaymentRepo) GenerateNumber(_ context.Context, direction ledger.PaymentDirection) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	prefix := "RCPT"
	if direction == ledger.PaymentDirectionOutgoing {
		prefix = "PMT"
	}
	return fmt.Sprintf("%s-20260115-%05d", prefix, r.seq), nil
}

type memAccountRepo struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*ledger.LedgerAccount
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{accounts: make(map[uuid.UUID]*ledger.LedgerAccount)}
}

func (r *memAccountRepo) FindByCounterparty(_ context.Context, counterpartyID uuid.UUID) (*ledger.LedgerAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[counterpartyID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *account
	return &clone, nil
}

func (r *memAccountRepo) FindAll(_ context.Context, _ shared.Filter) ([]ledger.LedgerAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]ledger.LedgerAccount, 0, len(r.accounts))
	for _, account := range r.accounts {
		result = append(result, *account)
	}
	return result, nil
}

func (r *memAccountRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.accounts)), nil
}

func (r *memAccountRepo) ListCounterpartyIDs(_ context.Context) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(r.accounts))
	for id := range r.accounts {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *memAccountRepo) Save(_ context.Context, account *ledger.LedgerAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *account
	r.accounts[account.CounterpartyID] = &clone
	return nil
}

func (r *memAccountRepo) SaveWithLock(ctx context.Context, account *ledger.LedgerAccount) error {
	return r.Save(ctx, account)
}

// testEnv wires the services against the in-memory repositories
type testEnv struct {
	docRepo     *memDocumentRepo
	paymentRepo *memPaymentRepo
	accountRepo *memAccountRepo
	documents   *DocumentService
	allocations *AllocationService
	accounts    *AccountService
}

func newTestEnv() *testEnv {
	docRepo := newMemDocumentRepo()
	paymentRepo := newMemPaymentRepo()
	accountRepo := newMemAccountRepo()
	scope := NewNoOpTransactionScope(docRepo, paymentRepo, accountRepo)
	return &testEnv{
		docRepo:     docRepo,
		paymentRepo: paymentRepo,
		accountRepo: accountRepo,
		documents:   NewDocumentService(scope, docRepo),
		allocations: NewAllocationService(scope, paymentRepo),
		accounts:    NewAccountService(scope, accountRepo, docRepo),
	}
}

var (
	_ ledger.DocumentRepository      = (*memDocumentRepo)(nil)
	_ ledger.PaymentRepository       = (*memPaymentRepo)(nil)
	_ ledger.LedgerAccountRepository = (*memAccountRepo)(nil)
)
