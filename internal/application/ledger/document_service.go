package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/ledger"
	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/openbooks/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// DocumentService provides application-level document operations: drafting,
// finalizing, cancelling and querying documents. Finalize and cancel also
// refresh the counterparty's ledger account in the same transaction.
type DocumentService struct {
	txScope      TransactionScope
	documentRepo ledger.DocumentRepository
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(txScope TransactionScope, documentRepo ledger.DocumentRepository) *DocumentService {
	return &DocumentService{
		txScope:      txScope,
		documentRepo: documentRepo,
	}
}

// LineItemInput is one requested line of a document draft
type LineItemInput struct {
	ProductRef  uuid.UUID       `json:"product_ref" binding:"required"`
	Description string          `json:"description"`
	Quantity    int64           `json:"quantity" binding:"required,gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
}

// CreateDocumentRequest represents a request to create a draft document
type CreateDocumentRequest struct {
	Kind             string          `json:"kind" binding:"required"`
	CounterpartyID   uuid.UUID       `json:"counterparty_id" binding:"required"`
	CounterpartyName string          `json:"counterparty_name" binding:"required"`
	Currency         string          `json:"currency"`
	DueDate          *time.Time      `json:"due_date"`
	Remark           string          `json:"remark"`
	DiscountMode     string          `json:"discount_mode"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	DiscountPercent  int64           `json:"discount_percent_bp"`
	TaxPercent       int64           `json:"tax_percent_bp"`
	Items            []LineItemInput `json:"items"`
}

// UpdateItemRequest represents a request to change a draft line item
type UpdateItemRequest struct {
	Quantity  *int64           `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

// LineItemResponse represents a line item in API responses
type LineItemResponse struct {
	ID          uuid.UUID         `json:"id"`
	ProductRef  uuid.UUID         `json:"product_ref"`
	Description string            `json:"description"`
	Quantity    int64             `json:"quantity"`
	UnitPrice   valueobject.Money `json:"unit_price"`
	LineTotal   valueobject.Money `json:"line_total"`
}

// DocumentResponse represents a document in API responses
type DocumentResponse struct {
	ID               uuid.UUID          `json:"id"`
	DocumentNumber   string             `json:"document_number"`
	Kind             string             `json:"kind"`
	CounterpartyID   uuid.UUID          `json:"counterparty_id"`
	CounterpartyName string             `json:"counterparty_name"`
	Currency         string             `json:"currency"`
	Items            []LineItemResponse `json:"items"`
	Subtotal         valueobject.Money  `json:"subtotal"`
	Discount         valueobject.Money  `json:"discount"`
	Tax              valueobject.Money  `json:"tax"`
	Total            valueobject.Money  `json:"total"`
	AmountPaid       valueobject.Money  `json:"amount_paid"`
	RemainingBalance valueobject.Money  `json:"remaining_balance"`
	Status           string             `json:"status"`
	DisplayStatus    string             `json:"display_status"`
	DueDate          *time.Time         `json:"due_date,omitempty"`
	DaysOverdue      int                `json:"days_overdue,omitempty"`
	Remark           string             `json:"remark,omitempty"`
	FinalizedAt      *time.Time         `json:"finalized_at,omitempty"`
	PaidAt           *time.Time         `json:"paid_at,omitempty"`
	CancelledAt      *time.Time         `json:"cancelled_at,omitempty"`
	CancelReason     string             `json:"cancel_reason,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
	Version          int                `json:"version"`
}

// DocumentListFilter defines filtering options for document list queries
type DocumentListFilter struct {
	Search         string     `form:"search"`
	Kind           string     `form:"kind"`
	Status         string     `form:"status"`
	CounterpartyID *uuid.UUID `form:"counterparty_id"`
	FromDate       *time.Time `form:"from_date"`
	ToDate         *time.Time `form:"to_date"`
	Overdue        *bool      `form:"overdue"`
	Page           int        `form:"page"`
	PageSize       int        `form:"page_size"`
}

// CreateDocument creates a new draft document, optionally with initial items
// and discount/tax policies
func (s *DocumentService) CreateDocument(ctx context.Context, req CreateDocumentRequest) (*DocumentResponse, error) {
	kind := ledger.DocumentKind(req.Kind)
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_KIND", "Document kind is not valid")
	}
	currency := valueobject.Currency(req.Currency)
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}

	documentNumber, err := s.documentRepo.GenerateNumber(ctx, kind)
	if err != nil {
		return nil, err
	}

	doc, err := ledger.NewDocument(kind, documentNumber, req.CounterpartyID, req.CounterpartyName, currency, req.DueDate)
	if err != nil {
		return nil, err
	}
	if req.Remark != "" {
		doc.SetRemark(req.Remark)
	}

	for _, input := range req.Items {
		unitPrice, err := valueobject.NewMoneyFromDecimal(input.UnitPrice, currency)
		if err != nil {
			return nil, ledger.NewInvalidLineItemError(err.Error())
		}
		if _, err := doc.AddItem(input.ProductRef, input.Description, input.Quantity, unitPrice); err != nil {
			return nil, err
		}
	}

	if policy, err := discountPolicyFromRequest(req, currency); err != nil {
		return nil, err
	} else if policy != nil {
		if err := doc.SetDiscountPolicy(*policy); err != nil {
			return nil, err
		}
	}
	if req.TaxPercent != 0 {
		if err := doc.SetTaxPolicy(ledger.TaxRate(req.TaxPercent)); err != nil {
			return nil, err
		}
	}

	if err := s.documentRepo.Save(ctx, doc); err != nil {
		return nil, err
	}

	return toDocumentResponse(doc), nil
}

// AddItem adds a line item to a draft document
func (s *DocumentService) AddItem(ctx context.Context, documentID uuid.UUID, input LineItemInput) (*DocumentResponse, error) {
	doc, err := s.documentRepo.FindByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	unitPrice, err := valueobject.NewMoneyFromDecimal(input.UnitPrice, doc.Currency)
	if err != nil {
		return nil, ledger.NewInvalidLineItemError(err.Error())
	}
	if _, err := doc.AddItem(input.ProductRef, input.Description, input.Quantity, unitPrice); err != nil {
		return nil, err
	}

	if err := s.documentRepo.SaveWithLock(ctx, doc); err != nil {
		return nil, err
	}
	return toDocumentResponse(doc), nil
}

// UpdateItem changes the quantity or unit price of a draft line item
func (s *DocumentService) UpdateItem(ctx context.Context, documentID, itemID uuid.UUID, req UpdateItemRequest) (*DocumentResponse, error) {
	doc, err := s.documentRepo.FindByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if req.Quantity != nil {
		if err := doc.UpdateItemQuantity(itemID, *req.Quantity); err != nil {
			return nil, err
		}
	}
	if req.UnitPrice != nil {
		unitPrice, err := valueobject.NewMoneyFromDecimal(*req.UnitPrice, doc.Currency)
		if err != nil {
			return nil, ledger.NewInvalidLineItemError(err.Error())
		}
		if err := doc.UpdateItemPrice(itemID, unitPrice); err != nil {
			return nil, err
		}
	}

	if err := s.documentRepo.SaveWithLock(ctx, doc); err != nil {
		return nil, err
	}
	return toDocumentResponse(doc), nil
}

// RemoveItem removes a line item from a draft document
func (s *DocumentService) RemoveItem(ctx context.Context, documentID, itemID uuid.UUID) (*DocumentResponse, error) {
	doc, err := s.documentRepo.FindByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := doc.RemoveItem(itemID); err != nil {
		return nil, err
	}
	if err := s.documentRepo.SaveWithLock(ctx, doc); err != nil {
		return nil, err
	}
	return toDocumentResponse(doc), nil
}

// FinalizeDocument freezes the document's totals and opens it for payment.
// The counterparty's account picks up the new document in the same
// transaction.
func (s *DocumentService) FinalizeDocument(ctx context.Context, documentID uuid.UUID) (*DocumentResponse, error) {
	var doc *ledger.Document
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		doc, err = repos.DocumentRepo().FindByID(ctx, documentID)
		if err != nil {
			return err
		}
		if err := doc.Finalize(); err != nil {
			return err
		}
		if err := repos.DocumentRepo().SaveWithLock(ctx, doc); err != nil {
			return err
		}
		return recomputeAccount(ctx, repos, doc.CounterpartyID, doc)
	})
	if err != nil {
		return nil, err
	}
	return toDocumentResponse(doc), nil
}

// CancelDocument cancels an unpaid document and refreshes the account
func (s *DocumentService) CancelDocument(ctx context.Context, documentID uuid.UUID, reason string) (*DocumentResponse, error) {
	var doc *ledger.Document
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		doc, err = repos.DocumentRepo().FindByID(ctx, documentID)
		if err != nil {
			return err
		}
		if err := doc.Cancel(reason); err != nil {
			return err
		}
		if err := repos.DocumentRepo().SaveWithLock(ctx, doc); err != nil {
			return err
		}
		return recomputeAccount(ctx, repos, doc.CounterpartyID, doc)
	})
	if err != nil {
		return nil, err
	}
	return toDocumentResponse(doc), nil
}

// DeleteDraft deletes a draft document
func (s *DocumentService) DeleteDraft(ctx context.Context, documentID uuid.UUID) error {
	doc, err := s.documentRepo.FindByID(ctx, documentID)
	if err != nil {
		return err
	}
	if !doc.IsDraft() {
		return shared.NewDomainError("INVALID_STATE", "Only draft documents can be deleted")
	}
	return s.documentRepo.Delete(ctx, documentID)
}

// GetDocumentByID gets a document by ID
func (s *DocumentService) GetDocumentByID(ctx context.Context, id uuid.UUID) (*DocumentResponse, error) {
	doc, err := s.documentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDocumentResponse(doc), nil
}

// GetDocumentByNumber gets a document by its document number
func (s *DocumentService) GetDocumentByNumber(ctx context.Context, documentNumber string) (*DocumentResponse, error) {
	doc, err := s.documentRepo.FindByNumber(ctx, documentNumber)
	if err != nil {
		return nil, err
	}
	return toDocumentResponse(doc), nil
}

// ListDocuments lists documents with filtering and pagination
func (s *DocumentService) ListDocuments(ctx context.Context, filter DocumentListFilter) ([]DocumentResponse, int64, error) {
	repoFilter := ledger.DocumentFilter{
		Filter:         shared.DefaultFilter(),
		CounterpartyID: filter.CounterpartyID,
		FromDate:       filter.FromDate,
		ToDate:         filter.ToDate,
		Overdue:        filter.Overdue,
		Search:         filter.Search,
	}
	if filter.Page > 0 {
		repoFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		repoFilter.PageSize = filter.PageSize
	}
	if filter.Kind != "" {
		kind := ledger.DocumentKind(filter.Kind)
		repoFilter.Kind = &kind
	}
	if filter.Status != "" {
		status := ledger.DocumentStatus(filter.Status)
		repoFilter.Status = &status
	}

	docs, err := s.documentRepo.FindAll(ctx, repoFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.documentRepo.Count(ctx, repoFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]DocumentResponse, len(docs))
	for i := range docs {
		responses[i] = *toDocumentResponse(&docs[i])
	}
	return responses, total, nil
}

// ListAllocatableDocuments returns the counterparty's open and partially
// paid documents, the candidates a new payment may be allocated against.
func (s *DocumentService) ListAllocatableDocuments(ctx context.Context, counterpartyID uuid.UUID) ([]DocumentResponse, error) {
	docs, err := s.documentRepo.FindAllocatable(ctx, counterpartyID)
	if err != nil {
		return nil, err
	}
	responses := make([]DocumentResponse, len(docs))
	for i := range docs {
		responses[i] = *toDocumentResponse(&docs[i])
	}
	return responses, nil
}

func discountPolicyFromRequest(req CreateDocumentRequest, currency valueobject.Currency) (*ledger.DiscountPolicy, error) {
	switch ledger.DiscountMode(req.DiscountMode) {
	case "", ledger.DiscountModeNone:
		return nil, nil
	case ledger.DiscountModeFixed:
		amount, err := valueobject.NewMoneyFromDecimal(req.DiscountAmount, currency)
		if err != nil {
			return nil, shared.NewDomainError("INVALID_DISCOUNT", err.Error())
		}
		policy := ledger.FixedDiscount(amount)
		return &policy, nil
	case ledger.DiscountModePercent:
		policy := ledger.PercentDiscount(req.DiscountPercent)
		return &policy, nil
	}
	return nil, shared.NewDomainError("INVALID_DISCOUNT", "Discount mode is not valid")
}

func toLineItemResponse(item *ledger.LineItem) LineItemResponse {
	return LineItemResponse{
		ID:          item.ID,
		ProductRef:  item.ProductRef,
		Description: item.Description,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		LineTotal:   item.LineTotal,
	}
}

func toDocumentResponse(doc *ledger.Document) *DocumentResponse {
	items := make([]LineItemResponse, len(doc.Items))
	for i := range doc.Items {
		items[i] = toLineItemResponse(&doc.Items[i])
	}
	return &DocumentResponse{
		ID:               doc.ID,
		DocumentNumber:   doc.DocumentNumber,
		Kind:             doc.Kind.String(),
		CounterpartyID:   doc.CounterpartyID,
		CounterpartyName: doc.CounterpartyName,
		Currency:         string(doc.Currency),
		Items:            items,
		Subtotal:         doc.Subtotal,
		Discount:         doc.Discount,
		Tax:              doc.Tax,
		Total:            doc.Total,
		AmountPaid:       doc.AmountPaid,
		RemainingBalance: doc.RemainingBalance(),
		Status:           doc.Status.String(),
		DisplayStatus:    doc.DisplayStatus(),
		DueDate:          doc.DueDate,
		DaysOverdue:      doc.DaysOverdue(),
		Remark:           doc.Remark,
		FinalizedAt:      doc.FinalizedAt,
		PaidAt:           doc.PaidAt,
		CancelledAt:      doc.CancelledAt,
		CancelReason:     doc.CancelReason,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
		Version:          doc.Version,
	}
}
