package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/ledger"
	"github.com/openbooks/backend/internal/domain/shared/valueobject"
)

// moneyFromUnits rebuilds a Money value object from a stored minor-unit count
// and the currency column it was stored next to.
func moneyFromUnits(units int64, currency valueobject.Currency) valueobject.Money {
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	m, _ := valueobject.NewMoney(units, currency)
	return m
}

// DocumentModel is the persistence model for the Document aggregate root.
type DocumentModel struct {
	AggregateModel
	DocumentNumber      string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	Kind                ledger.DocumentKind   `gorm:"type:varchar(20);not null;index"`
	CounterpartyID      uuid.UUID             `gorm:"type:uuid;not null;index"`
	CounterpartyName    string                `gorm:"type:varchar(200);not null"`
	Items               []LineItemModel       `gorm:"foreignKey:DocumentID;references:ID"`
	Currency            valueobject.Currency  `gorm:"type:varchar(3);not null;default:'USD'"`
	DiscountMode        ledger.DiscountMode   `gorm:"type:varchar(10);not null;default:'NONE'"`
	DiscountAmount      int64                 `gorm:"type:bigint;not null;default:0"`
	DiscountBasisPoints int64                 `gorm:"type:bigint;not null;default:0"`
	TaxBasisPoints      int64                 `gorm:"type:bigint;not null;default:0"`
	Subtotal            int64                 `gorm:"type:bigint;not null;default:0"`
	Discount            int64                 `gorm:"type:bigint;not null;default:0"`
	Tax                 int64                 `gorm:"type:bigint;not null;default:0"`
	Total               int64                 `gorm:"type:bigint;not null;default:0"`
	AmountPaid          int64                 `gorm:"type:bigint;not null;default:0"`
	Status              ledger.DocumentStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	DueDate             *time.Time            `gorm:"index"`
	Remark              string                `gorm:"type:text"`
	FinalizedAt         *time.Time            `gorm:"index"`
	PaidAt              *time.Time
	CancelledAt         *time.Time
	CancelReason        string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "documents"
}

// ToDomain converts the persistence model to a domain Document entity.
func (m *DocumentModel) ToDomain() *ledger.Document {
	doc := &ledger.Document{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		DocumentNumber:    m.DocumentNumber,
		Kind:              m.Kind,
		CounterpartyID:    m.CounterpartyID,
		CounterpartyName:  m.CounterpartyName,
		Currency:          m.Currency,
		DiscountPolicy: ledger.DiscountPolicy{
			Mode:        m.DiscountMode,
			Amount:      moneyFromUnits(m.DiscountAmount, m.Currency),
			BasisPoints: m.DiscountBasisPoints,
		},
		TaxPolicy:    ledger.TaxPolicy{BasisPoints: m.TaxBasisPoints},
		Subtotal:     moneyFromUnits(m.Subtotal, m.Currency),
		Discount:     moneyFromUnits(m.Discount, m.Currency),
		Tax:          moneyFromUnits(m.Tax, m.Currency),
		Total:        moneyFromUnits(m.Total, m.Currency),
		AmountPaid:   moneyFromUnits(m.AmountPaid, m.Currency),
		Status:       m.Status,
		DueDate:      m.DueDate,
		Remark:       m.Remark,
		FinalizedAt:  m.FinalizedAt,
		PaidAt:       m.PaidAt,
		CancelledAt:  m.CancelledAt,
		CancelReason: m.CancelReason,
		Items:        make([]ledger.LineItem, len(m.Items)),
	}
	for i, item := range m.Items {
		doc.Items[i] = *item.ToDomain(m.Currency)
	}
	return doc
}

// FromDomain populates the persistence model from a domain Document entity.
func (m *DocumentModel) FromDomain(d *ledger.Document) {
	m.FromDomainAggregateRoot(d.BaseAggregateRoot)
	m.DocumentNumber = d.DocumentNumber
	m.Kind = d.Kind
	m.CounterpartyID = d.CounterpartyID
	m.CounterpartyName = d.CounterpartyName
	m.Currency = d.Currency
	m.DiscountMode = d.DiscountPolicy.Mode
	m.DiscountAmount = d.DiscountPolicy.Amount.Units()
	m.DiscountBasisPoints = d.DiscountPolicy.BasisPoints
	m.TaxBasisPoints = d.TaxPolicy.BasisPoints
	m.Subtotal = d.Subtotal.Units()
	m.Discount = d.Discount.Units()
	m.Tax = d.Tax.Units()
	m.Total = d.Total.Units()
	m.AmountPaid = d.AmountPaid.Units()
	m.Status = d.Status
	m.DueDate = d.DueDate
	m.Remark = d.Remark
	m.FinalizedAt = d.FinalizedAt
	m.PaidAt = d.PaidAt
	m.CancelledAt = d.CancelledAt
	m.CancelReason = d.CancelReason
	m.Items = make([]LineItemModel, len(d.Items))
	for i, item := range d.Items {
		m.Items[i] = *LineItemModelFromDomain(&item)
	}
}

// DocumentModelFromDomain creates a new persistence model from a domain Document entity.
func DocumentModelFromDomain(d *ledger.Document) *DocumentModel {
	m := &DocumentModel{}
	m.FromDomain(d)
	return m
}

// LineItemModel is the persistence model for the LineItem entity.
type LineItemModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	DocumentID  uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductRef  uuid.UUID `gorm:"type:uuid;not null"`
	Description string    `gorm:"type:varchar(500)"`
	Quantity    int64     `gorm:"type:bigint;not null"`
	UnitPrice   int64     `gorm:"type:bigint;not null"`
	LineTotal   int64     `gorm:"type:bigint;not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LineItemModel) TableName() string {
	return "document_line_items"
}

// ToDomain converts the persistence model to a domain LineItem entity.
// The currency comes from the owning document since items store bare units.
func (m *LineItemModel) ToDomain(currency valueobject.Currency) *ledger.LineItem {
	return &ledger.LineItem{
		ID:          m.ID,
		DocumentID:  m.DocumentID,
		ProductRef:  m.ProductRef,
		Description: m.Description,
		Quantity:    m.Quantity,
		UnitPrice:   moneyFromUnits(m.UnitPrice, currency),
		LineTotal:   moneyFromUnits(m.LineTotal, currency),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain LineItem entity.
func (m *LineItemModel) FromDomain(i *ledger.LineItem) {
	m.ID = i.ID
	m.DocumentID = i.DocumentID
	m.ProductRef = i.ProductRef
	m.Description = i.Description
	m.Quantity = i.Quantity
	m.UnitPrice = i.UnitPrice.Units()
	m.LineTotal = i.LineTotal.Units()
	m.CreatedAt = i.CreatedAt
	m.UpdatedAt = i.UpdatedAt
}

// LineItemModelFromDomain creates a new persistence model from a domain LineItem entity.
func LineItemModelFromDomain(i *ledger.LineItem) *LineItemModel {
	m := &LineItemModel{}
	m.FromDomain(i)
	return m
}

// PaymentModel is the persistence model for the Payment aggregate root.
// Allocations are embedded as a JSONB column; they live and die with the
// payment and are never queried independently of it.
type PaymentModel struct {
	AggregateModel
	PaymentNumber  string                  `gorm:"type:varchar(50);not null;uniqueIndex"`
	Direction      ledger.PaymentDirection `gorm:"type:varchar(10);not null;index"`
	Method         ledger.PaymentMethod    `gorm:"type:varchar(20);not null"`
	CounterpartyID uuid.UUID               `gorm:"type:uuid;not null;index"`
	TotalAmount    int64                   `gorm:"type:bigint;not null"`
	Currency       valueobject.Currency    `gorm:"type:varchar(3);not null;default:'USD'"`
	Allocations    ledger.Allocations      `gorm:"type:jsonb;not null;default:'[]'"`
	Status         ledger.PaymentStatus    `gorm:"type:varchar(10);not null;default:'ACTIVE';index"`
	Reference      string                  `gorm:"type:varchar(100)"`
	PaymentDate    time.Time               `gorm:"not null;index"`
	Remark         string                  `gorm:"type:text"`
	ReversedAt     *time.Time
	ReversalReason string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity.
func (m *PaymentModel) ToDomain() *ledger.Payment {
	return &ledger.Payment{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		PaymentNumber:     m.PaymentNumber,
		Direction:         m.Direction,
		Method:            m.Method,
		CounterpartyID:    m.CounterpartyID,
		TotalAmount:       moneyFromUnits(m.TotalAmount, m.Currency),
		Allocations:       m.Allocations,
		Status:            m.Status,
		Reference:         m.Reference,
		PaymentDate:       m.PaymentDate,
		Remark:            m.Remark,
		ReversedAt:        m.ReversedAt,
		ReversalReason:    m.ReversalReason,
	}
}

// FromDomain populates the persistence model from a domain Payment entity.
func (m *PaymentModel) FromDomain(p *ledger.Payment) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.PaymentNumber = p.PaymentNumber
	m.Direction = p.Direction
	m.Method = p.Method
	m.CounterpartyID = p.CounterpartyID
	m.TotalAmount = p.TotalAmount.Units()
	m.Currency = p.TotalAmount.Currency()
	m.Allocations = p.Allocations
	m.Status = p.Status
	m.Reference = p.Reference
	m.PaymentDate = p.PaymentDate
	m.Remark = p.Remark
	m.ReversedAt = p.ReversedAt
	m.ReversalReason = p.ReversalReason
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment entity.
func PaymentModelFromDomain(p *ledger.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// LedgerAccountModel is the persistence model for the LedgerAccount aggregate root.
type LedgerAccountModel struct {
	AggregateModel
	CounterpartyID     uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex"`
	CounterpartyType   ledger.CounterpartyType `gorm:"type:varchar(10);not null"`
	CounterpartyName   string                  `gorm:"type:varchar(200);not null"`
	Currency           valueobject.Currency    `gorm:"type:varchar(3);not null;default:'USD'"`
	OutstandingBalance int64                   `gorm:"type:bigint;not null;default:0"`
	TotalActivity      int64                   `gorm:"type:bigint;not null;default:0"`
	OpenDocuments      int                     `gorm:"not null;default:0"`
	RecomputedAt       time.Time               `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LedgerAccountModel) TableName() string {
	return "ledger_accounts"
}

// ToDomain converts the persistence model to a domain LedgerAccount entity.
func (m *LedgerAccountModel) ToDomain() *ledger.LedgerAccount {
	return &ledger.LedgerAccount{
		BaseAggregateRoot:  m.ToDomainAggregateRoot(),
		CounterpartyID:     m.CounterpartyID,
		CounterpartyType:   m.CounterpartyType,
		CounterpartyName:   m.CounterpartyName,
		Currency:           m.Currency,
		OutstandingBalance: moneyFromUnits(m.OutstandingBalance, m.Currency),
		TotalActivity:      moneyFromUnits(m.TotalActivity, m.Currency),
		OpenDocuments:      m.OpenDocuments,
		RecomputedAt:       m.RecomputedAt,
	}
}

// FromDomain populates the persistence model from a domain LedgerAccount entity.
func (m *LedgerAccountModel) FromDomain(a *ledger.LedgerAccount) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.CounterpartyID = a.CounterpartyID
	m.CounterpartyType = a.CounterpartyType
	m.CounterpartyName = a.CounterpartyName
	m.Currency = a.Currency
	m.OutstandingBalance = a.OutstandingBalance.Units()
	m.TotalActivity = a.TotalActivity.Units()
	m.OpenDocuments = a.OpenDocuments
	m.RecomputedAt = a.RecomputedAt
}

// LedgerAccountModelFromDomain creates a new persistence model from a domain LedgerAccount entity.
func LedgerAccountModelFromDomain(a *ledger.LedgerAccount) *LedgerAccountModel {
	m := &LedgerAccountModel{}
	m.FromDomain(a)
	return m
}
