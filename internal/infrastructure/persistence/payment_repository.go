package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/ledger"
	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/openbooks/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, ledger.NewStorageError(err)
	}
	return model.ToDomain(), nil
}

// FindByNumber finds a payment by its payment number
func (r *GormPaymentRepository) FindByNumber(ctx context.Context, paymentNumber string) (*ledger.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		First(&model, "payment_number = ?", paymentNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, ledger.NewStorageError(err)
	}
	return model.ToDomain(), nil
}

// applyPaymentFilter applies the non-pagination parts of a PaymentFilter
func applyPaymentFilter(query *gorm.DB, filter ledger.PaymentFilter) *gorm.DB {
	if filter.Direction != nil {
		query = query.Where("direction = ?", *filter.Direction)
	}
	if filter.Method != nil {
		query = query.Where("method = ?", *filter.Method)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CounterpartyID != nil {
		query = query.Where("counterparty_id = ?", *filter.CounterpartyID)
	}
	if filter.FromDate != nil {
		query = query.Where("payment_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("payment_date <= ?", *filter.ToDate)
	}
	return query
}

// FindAll finds payments matching the filter
func (r *GormPaymentRepository) FindAll(ctx context.Context, filter ledger.PaymentFilter) ([]ledger.Payment, error) {
	var paymentModels []models.PaymentModel
	query := applyPaymentFilter(r.db.WithContext(ctx), filter)

	sortField := ValidateSortField(filter.OrderBy, PaymentSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", sortField, sortOrder))

	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
		if filter.Page > 0 {
			query = query.Offset((filter.Page - 1) * filter.PageSize)
		}
	}

	if err := query.Find(&paymentModels).Error; err != nil {
		return nil, ledger.NewStorageError(err)
	}
	payments := make([]ledger.Payment, len(paymentModels))
	for i, model := range paymentModels {
		payments[i] = *model.ToDomain()
	}
	return payments, nil
}

// Count counts payments matching the filter
func (r *GormPaymentRepository) Count(ctx context.Context, filter ledger.PaymentFilter) (int64, error) {
	var count int64
	query := applyPaymentFilter(r.db.WithContext(ctx).Model(&models.PaymentModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, ledger.NewStorageError(err)
	}
	return count, nil
}

// FindByDocument finds active payments with an allocation to a document.
// Allocations live in a JSONB column, so the match runs against the embedded
// document_id keys.
func (r *GormPaymentRepository) FindByDocument(ctx context.Context, documentID uuid.UUID) ([]ledger.Payment, error) {
	var paymentModels []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", ledger.PaymentStatusActive).
		Where("allocations @> ?", fmt.Sprintf(`[{"document_id":"%s"}]`, documentID)).
		Find(&paymentModels).Error; err != nil {
		return nil, ledger.NewStorageError(err)
	}
	payments := make([]ledger.Payment, len(paymentModels))
	for i, model := range paymentModels {
		payments[i] = *model.ToDomain()
	}
	return payments, nil
}

// Save creates or updates a payment
func (r *GormPaymentRepository) Save(ctx context.Context, payment *ledger.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return ledger.NewStorageError(err)
	}
	return nil
}

// SaveWithLock saves with optimistic locking. The aggregate carries the
// already-incremented version; the write succeeds only if the stored row is
// still at an older version.
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, payment *ledger.Payment) error {
	var currentVersion int
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("id = ?", payment.ID).
		Select("version").
		Scan(&currentVersion).Error; err != nil {
		return ledger.NewStorageError(err)
	}
	if currentVersion == 0 {
		return shared.ErrNotFound
	}
	if currentVersion >= payment.Version {
		return shared.ErrStaleVersion
	}

	model := models.PaymentModelFromDomain(payment)
	model.UpdatedAt = time.Now()

	result := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("id = ? AND version = ?", payment.ID, currentVersion).
		Updates(map[string]any{
			"payment_number":  model.PaymentNumber,
			"direction":       model.Direction,
			"method":          model.Method,
			"counterparty_id": model.CounterpartyID,
			"total_amount":    model.TotalAmount,
			"currency":        model.Currency,
			"allocations":     model.Allocations,
			"status":          model.Status,
			"reference":       model.Reference,
			"payment_date":    model.PaymentDate,
			"remark":          model.Remark,
			"reversed_at":     model.ReversedAt,
			"reversal_reason": model.ReversalReason,
			"version":         model.Version,
			"updated_at":      model.UpdatedAt,
		})
	if result.Error != nil {
		return ledger.NewStorageError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrStaleVersion
	}
	return nil
}

// GenerateNumber generates the next payment number for a direction.
// Incoming payments use RCPT, outgoing use PMT; sequence scoped to the day.
func (r *GormPaymentRepository) GenerateNumber(ctx context.Context, direction ledger.PaymentDirection) (string, error) {
	prefix := fmt.Sprintf("%s-%s-", paymentNumberPrefix(direction), time.Now().Format("20060102"))

	var lastNumber string
	err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Select("payment_number").
		Where("payment_number LIKE ?", prefix+"%").
		Order("payment_number DESC").
		Limit(1).
		Scan(&lastNumber).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ledger.NewStorageError(err)
	}

	var nextSeq int64 = 1
	if lastNumber != "" {
		parts := strings.Split(lastNumber, "-")
		if len(parts) == 3 {
			var seq int64
			if _, parseErr := fmt.Sscanf(parts[2], "%d", &seq); parseErr == nil {
				nextSeq = seq + 1
			}
		}
	}

	return fmt.Sprintf("%s%05d", prefix, nextSeq), nil
}

// paymentNumberPrefix returns the payment-number prefix for a direction
func paymentNumberPrefix(direction ledger.PaymentDirection) string {
	if direction == ledger.PaymentDirectionIncoming {
		return "RCPT"
	}
	return "PMT"
}

// Ensure GormPaymentRepository implements the interface
var _ ledger.PaymentRepository = (*GormPaymentRepository)(nil)
