package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/openbooks/backend/internal/domain/shared/valueobject"
)

// DocumentKind represents the kind of a financial document
type DocumentKind string

const (
	DocumentKindSalesOrder      DocumentKind = "SALES_ORDER"
	DocumentKindPurchaseInvoice DocumentKind = "PURCHASE_INVOICE"
	DocumentKindSalesReturn     DocumentKind = "SALES_RETURN"
	DocumentKindPurchaseReturn  DocumentKind = "PURCHASE_RETURN"
)

// IsValid checks if the kind is a valid DocumentKind
func (k DocumentKind) IsValid() bool {
	switch k {
	case DocumentKindSalesOrder, DocumentKindPurchaseInvoice,
		DocumentKindSalesReturn, DocumentKindPurchaseReturn:
		return true
	}
	return false
}

// String returns the string representation of DocumentKind
func (k DocumentKind) String() string {
	return string(k)
}

// SettlementDirection returns the payment direction that settles a document
// of this kind: money comes in for sales orders and purchase returns, and
// goes out for purchase invoices and sales returns.
func (k DocumentKind) SettlementDirection() PaymentDirection {
	switch k {
	case DocumentKindSalesOrder, DocumentKindPurchaseReturn:
		return PaymentDirectionIncoming
	default:
		return PaymentDirectionOutgoing
	}
}

// CounterpartyType returns the type of counterparty the kind belongs to
func (k DocumentKind) CounterpartyType() CounterpartyType {
	switch k {
	case DocumentKindSalesOrder, DocumentKindSalesReturn:
		return CounterpartyTypeCustomer
	default:
		return CounterpartyTypeVendor
	}
}

// NumberPrefix returns the document-number prefix for the kind
func (k DocumentKind) NumberPrefix() string {
	switch k {
	case DocumentKindSalesOrder:
		return "SO"
	case DocumentKindPurchaseInvoice:
		return "PI"
	case DocumentKindSalesReturn:
		return "SR"
	case DocumentKindPurchaseReturn:
		return "PR"
	}
	return "DOC"
}

// CounterpartyType distinguishes customers from vendors
type CounterpartyType string

const (
	CounterpartyTypeCustomer CounterpartyType = "CUSTOMER"
	CounterpartyTypeVendor   CounterpartyType = "VENDOR"
)

// IsValid checks if the counterparty type is valid
func (t CounterpartyType) IsValid() bool {
	return t == CounterpartyTypeCustomer || t == CounterpartyTypeVendor
}

// DocumentStatus represents the stored status of a document
type DocumentStatus string

const (
	DocumentStatusDraft         DocumentStatus = "DRAFT"
	DocumentStatusOpen          DocumentStatus = "OPEN"
	DocumentStatusPartiallyPaid DocumentStatus = "PARTIALLY_PAID"
	DocumentStatusPaid          DocumentStatus = "PAID"
	DocumentStatusCancelled     DocumentStatus = "CANCELLED"
)

// IsValid checks if the status is a valid DocumentStatus
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusDraft, DocumentStatusOpen, DocumentStatusPartiallyPaid,
		DocumentStatusPaid, DocumentStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of DocumentStatus
func (s DocumentStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the document is in a terminal state
func (s DocumentStatus) IsTerminal() bool {
	return s == DocumentStatusPaid || s == DocumentStatusCancelled
}

// CanAllocate returns true if payments can be allocated in this status
func (s DocumentStatus) CanAllocate() bool {
	return s == DocumentStatusOpen || s == DocumentStatusPartiallyPaid
}

// IsFinalized returns true once the document has left Draft. Finalized
// documents count toward the counterparty's ledger account unless cancelled.
func (s DocumentStatus) IsFinalized() bool {
	return s != DocumentStatusDraft && s.IsValid()
}

// DisplayStatusOverdue is the derived display status for documents past
// their due date. It is never persisted; it is recomputed at read time.
const DisplayStatusOverdue = "OVERDUE"

// LineItem represents a single line of a document. Line items are owned
// exclusively by their document and are never shared.
type LineItem struct {
	ID          uuid.UUID         `json:"id"`
	DocumentID  uuid.UUID         `json:"document_id"`
	ProductRef  uuid.UUID         `json:"product_ref"`
	Description string            `json:"description"`
	Quantity    int64             `json:"quantity"`
	UnitPrice   valueobject.Money `json:"unit_price"`
	LineTotal   valueobject.Money `json:"line_total"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewLineItem creates a new line item with its total computed from
// quantity and unit price
func NewLineItem(documentID, productRef uuid.UUID, description string, quantity int64, unitPrice valueobject.Money) (*LineItem, error) {
	if productRef == uuid.Nil {
		return nil, NewInvalidLineItemError("Product reference cannot be empty")
	}
	if quantity <= 0 {
		return nil, NewInvalidLineItemError("Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, NewInvalidLineItemError("Unit price cannot be negative")
	}

	total, err := ComputeLineTotal(unitPrice, quantity)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &LineItem{
		ID:          uuid.New(),
		DocumentID:  documentID,
		ProductRef:  productRef,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		LineTotal:   total,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// UpdateQuantity updates the quantity and recomputes the line total
func (i *LineItem) UpdateQuantity(quantity int64) error {
	if quantity <= 0 {
		return NewInvalidLineItemError("Quantity must be positive")
	}
	total, err := ComputeLineTotal(i.UnitPrice, quantity)
	if err != nil {
		return err
	}
	i.Quantity = quantity
	i.LineTotal = total
	i.UpdatedAt = time.Now()
	return nil
}

// UpdateUnitPrice updates the unit price and recomputes the line total
func (i *LineItem) UpdateUnitPrice(unitPrice valueobject.Money) error {
	if unitPrice.IsNegative() {
		return NewInvalidLineItemError("Unit price cannot be negative")
	}
	total, err := ComputeLineTotal(unitPrice, i.Quantity)
	if err != nil {
		return err
	}
	i.UnitPrice = unitPrice
	i.LineTotal = total
	i.UpdatedAt = time.Now()
	return nil
}

// Document represents a financial document aggregate root: a sales order,
// purchase invoice, or sales/purchase return with line items, computed
// totals and a payment state machine. Totals are computed once at finalize
// and frozen; amountPaid moves only through the allocation engine.
type Document struct {
	shared.BaseAggregateRoot
	DocumentNumber   string
	Kind             DocumentKind
	CounterpartyID   uuid.UUID
	CounterpartyName string
	Items            []LineItem
	Currency         valueobject.Currency
	DiscountPolicy   DiscountPolicy
	TaxPolicy        TaxPolicy
	Subtotal         valueobject.Money
	Discount         valueobject.Money
	Tax              valueobject.Money
	Total            valueobject.Money
	AmountPaid       valueobject.Money
	Status           DocumentStatus
	DueDate          *time.Time
	Remark           string
	FinalizedAt      *time.Time
	PaidAt           *time.Time
	CancelledAt      *time.Time
	CancelReason     string
}

// NewDocument creates a new document in Draft status
func NewDocument(kind DocumentKind, documentNumber string, counterpartyID uuid.UUID, counterpartyName string, currency valueobject.Currency, dueDate *time.Time) (*Document, error) {
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_KIND", "Document kind is not valid")
	}
	if documentNumber == "" {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_NUMBER", "Document number cannot be empty")
	}
	if len(documentNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_NUMBER", "Document number cannot exceed 50 characters")
	}
	if counterpartyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COUNTERPARTY", "Counterparty ID cannot be empty")
	}
	if counterpartyName == "" {
		return nil, shared.NewDomainError("INVALID_COUNTERPARTY_NAME", "Counterparty name cannot be empty")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}

	return &Document{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		DocumentNumber:    documentNumber,
		Kind:              kind,
		CounterpartyID:    counterpartyID,
		CounterpartyName:  counterpartyName,
		Items:             make([]LineItem, 0),
		Currency:          currency,
		DiscountPolicy:    NoDiscount(),
		TaxPolicy:         NoTax(),
		Subtotal:          valueobject.Zero(currency),
		Discount:          valueobject.Zero(currency),
		Tax:               valueobject.Zero(currency),
		Total:             valueobject.Zero(currency),
		AmountPaid:        valueobject.Zero(currency),
		Status:            DocumentStatusDraft,
		DueDate:           dueDate,
	}, nil
}

// AddItem adds a new line item to the document.
// Only allowed in Draft status.
func (d *Document) AddItem(productRef uuid.UUID, description string, quantity int64, unitPrice valueobject.Money) (*LineItem, error) {
	if d.Status != DocumentStatusDraft {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot add items to a finalized document")
	}
	if unitPrice.Currency() != d.Currency {
		return nil, NewInvalidLineItemError(
			fmt.Sprintf("Unit price currency %s does not match document currency %s", unitPrice.Currency(), d.Currency))
	}
	for _, item := range d.Items {
		if item.ProductRef == productRef {
			return nil, shared.NewDomainError("DUPLICATE_PRODUCT", "Product already exists on document, update quantity instead")
		}
	}

	item, err := NewLineItem(d.ID, productRef, description, quantity, unitPrice)
	if err != nil {
		return nil, err
	}

	d.Items = append(d.Items, *item)
	d.UpdatedAt = time.Now()
	d.IncrementVersion()

	return item, nil
}

// UpdateItemQuantity updates the quantity of an existing line item.
// Only allowed in Draft status.
func (d *Document) UpdateItemQuantity(itemID uuid.UUID, quantity int64) error {
	if d.Status != DocumentStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Cannot update items of a finalized document")
	}
	for idx := range d.Items {
		if d.Items[idx].ID == itemID {
			if err := d.Items[idx].UpdateQuantity(quantity); err != nil {
				return err
			}
			d.UpdatedAt = time.Now()
			d.IncrementVersion()
			return nil
		}
	}
	return shared.NewDomainError("ITEM_NOT_FOUND", "Line item not found")
}

// UpdateItemPrice updates the unit price of an existing line item.
// Only allowed in Draft status.
func (d *Document) UpdateItemPrice(itemID uuid.UUID, unitPrice valueobject.Money) error {
	if d.Status != DocumentStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Cannot update items of a finalized document")
	}
	if unitPrice.Currency() != d.Currency {
		return NewInvalidLineItemError(
			fmt.Sprintf("Unit price currency %s does not match document currency %s", unitPrice.Currency(), d.Currency))
	}
	for idx := range d.Items {
		if d.Items[idx].ID == itemID {
			if err := d.Items[idx].UpdateUnitPrice(unitPrice); err != nil {
				return err
			}
			d.UpdatedAt = time.Now()
			d.IncrementVersion()
			return nil
		}
	}
	return shared.NewDomainError("ITEM_NOT_FOUND", "Line item not found")
}

// RemoveItem removes a line item from the document.
// Only allowed in Draft status.
func (d *Document) RemoveItem(itemID uuid.UUID) error {
	if d.Status != DocumentStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Cannot remove items from a finalized document")
	}
	for idx, item := range d.Items {
		if item.ID == itemID {
			d.Items = append(d.Items[:idx], d.Items[idx+1:]...)
			d.UpdatedAt = time.Now()
			d.IncrementVersion()
			return nil
		}
	}
	return shared.NewDomainError("ITEM_NOT_FOUND", "Line item not found")
}

// SetDiscountPolicy sets the discount policy applied at finalize.
// Only allowed in Draft status.
func (d *Document) SetDiscountPolicy(policy DiscountPolicy) error {
	if d.Status != DocumentStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Cannot change discount on a finalized document")
	}
	if err := policy.Validate(d.Currency); err != nil {
		return err
	}
	d.DiscountPolicy = policy
	d.UpdatedAt = time.Now()
	d.IncrementVersion()
	return nil
}

// SetTaxPolicy sets the tax policy applied at finalize.
// Only allowed in Draft status.
func (d *Document) SetTaxPolicy(policy TaxPolicy) error {
	if d.Status != DocumentStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Cannot change tax on a finalized document")
	}
	if err := policy.Validate(); err != nil {
		return err
	}
	d.TaxPolicy = policy
	d.UpdatedAt = time.Now()
	d.IncrementVersion()
	return nil
}

// SetDueDate updates the due date
func (d *Document) SetDueDate(dueDate *time.Time) error {
	if d.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", "Cannot modify due date of a document in terminal state")
	}
	d.DueDate = dueDate
	d.UpdatedAt = time.Now()
	d.IncrementVersion()
	return nil
}

// SetRemark sets the remark
func (d *Document) SetRemark(remark string) {
	d.Remark = remark
	d.UpdatedAt = time.Now()
	d.IncrementVersion()
}

// Finalize transitions the document from Draft to Open. Totals are computed
// from the items and the discount/tax policies, then frozen; further item
// edits require a new revision, never an in-place mutation.
func (d *Document) Finalize() error {
	if d.Status != DocumentStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot finalize document in %s status", d.Status))
	}
	if len(d.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Cannot finalize document without items")
	}

	totals, err := ComputeDocumentTotals(d.Items, d.DiscountPolicy, d.TaxPolicy)
	if err != nil {
		return err
	}
	if !totals.Total.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Document total must be positive")
	}

	now := time.Now()
	d.Subtotal = totals.Subtotal
	d.Discount = totals.Discount
	d.Tax = totals.Tax
	d.Total = totals.Total
	d.AmountPaid = valueobject.Zero(d.Currency)
	d.Status = DocumentStatusOpen
	d.FinalizedAt = &now
	d.UpdatedAt = now
	d.IncrementVersion()

	return nil
}

// ValidateTotals recomputes the totals from the items and compares them with
// the stored values. A mismatch marks the document un-allocatable until
// corrected.
func (d *Document) ValidateTotals() error {
	totals, err := ComputeDocumentTotals(d.Items, d.DiscountPolicy, d.TaxPolicy)
	if err != nil {
		return err
	}
	if !totals.Subtotal.Equals(d.Subtotal) || !totals.Discount.Equals(d.Discount) ||
		!totals.Tax.Equals(d.Tax) || !totals.Total.Equals(d.Total) {
		return NewTotalsMismatchError(d.DocumentNumber, d.Total, totals.Total)
	}
	return nil
}

// RemainingBalance returns total minus amountPaid
func (d *Document) RemainingBalance() valueobject.Money {
	return d.Total.MustSubtract(d.AmountPaid)
}

// ApplyAllocation increases amountPaid by the given amount and advances the
// status. Overpayment is rejected, never clamped. Driven only by the
// allocation engine.
func (d *Document) ApplyAllocation(amount valueobject.Money) error {
	if !d.Status.CanAllocate() {
		return NewDocumentNotAllocatableError(d.ID, fmt.Sprintf("document is in %s status", d.Status))
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Allocation amount must be positive")
	}
	remaining := d.RemainingBalance()
	exceeds, err := amount.GreaterThan(remaining)
	if err != nil {
		return shared.NewDomainError("INVALID_AMOUNT", err.Error())
	}
	if exceeds {
		return NewAllocationExceedsBalanceError(d.DocumentNumber, amount, remaining)
	}

	d.AmountPaid = d.AmountPaid.MustAdd(amount)

	now := time.Now()
	if d.AmountPaid.Equals(d.Total) {
		d.Status = DocumentStatusPaid
		d.PaidAt = &now
	} else {
		d.Status = DocumentStatusPartiallyPaid
	}
	d.UpdatedAt = now
	d.IncrementVersion()

	return nil
}

// RevertAllocation decreases amountPaid by the given amount, re-running the
// status transition in reverse. Fails if it would push amountPaid negative;
// that is a defensive check and should be unreachable given the invariants.
func (d *Document) RevertAllocation(amount valueobject.Money) error {
	if d.Status != DocumentStatusPaid && d.Status != DocumentStatusPartiallyPaid {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot revert allocation on document in %s status", d.Status))
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Reversal amount must be positive")
	}

	newPaid, err := d.AmountPaid.Subtract(amount)
	if err != nil {
		return shared.NewDomainError("INVALID_AMOUNT",
			fmt.Sprintf("Reversal of %s would push paid amount %s negative", amount, d.AmountPaid))
	}

	d.AmountPaid = newPaid
	if d.AmountPaid.IsZero() {
		d.Status = DocumentStatusOpen
	} else {
		d.Status = DocumentStatusPartiallyPaid
	}
	d.PaidAt = nil
	d.UpdatedAt = time.Now()
	d.IncrementVersion()

	return nil
}

// Cancel cancels the document. A document with payments applied cannot be
// cancelled without a prior reversing payment that returns amountPaid to 0.
func (d *Document) Cancel(reason string) error {
	if !d.Status.CanAllocate() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel document in %s status", d.Status))
	}
	if d.AmountPaid.IsPositive() {
		return shared.NewDomainError("HAS_PAYMENTS", "Cannot cancel document with payments applied; reverse them first")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	now := time.Now()
	d.Status = DocumentStatusCancelled
	d.CancelledAt = &now
	d.CancelReason = reason
	d.UpdatedAt = now
	d.IncrementVersion()

	return nil
}

// Helper methods

// IsOverdue returns true if the document is past its due date and still owed
func (d *Document) IsOverdue() bool {
	if !d.Status.CanAllocate() {
		return false
	}
	if d.DueDate == nil {
		return false
	}
	return time.Now().After(*d.DueDate)
}

// DaysOverdue returns the number of days past due (0 if not overdue)
func (d *Document) DaysOverdue() int {
	if !d.IsOverdue() {
		return 0
	}
	return int(time.Since(*d.DueDate).Hours() / 24)
}

// DisplayStatus returns the status for display: the stored status, or the
// derived OVERDUE marker for open documents past their due date
func (d *Document) DisplayStatus() string {
	if d.IsOverdue() {
		return DisplayStatusOverdue
	}
	return d.Status.String()
}

// ItemCount returns the number of line items
func (d *Document) ItemCount() int {
	return len(d.Items)
}

// GetItem returns a line item by its ID
func (d *Document) GetItem(itemID uuid.UUID) *LineItem {
	for idx := range d.Items {
		if d.Items[idx].ID == itemID {
			return &d.Items[idx]
		}
	}
	return nil
}

// IsDraft returns true if the document is in Draft status
func (d *Document) IsDraft() bool {
	return d.Status == DocumentStatusDraft
}

// IsPaid returns true if the document is fully paid
func (d *Document) IsPaid() bool {
	return d.Status == DocumentStatusPaid
}

// IsCancelled returns true if the document is cancelled
func (d *Document) IsCancelled() bool {
	return d.Status == DocumentStatusCancelled
}
