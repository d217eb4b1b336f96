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

// GormDocumentRepository implements DocumentRepository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// FindByID finds a document by ID with its line items
func (r *GormDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Document, error) {
	var model models.DocumentModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, ledger.NewStorageError(err)
	}
	return model.ToDomain(), nil
}

// FindByNumber finds a document by its document number
func (r *GormDocumentRepository) FindByNumber(ctx context.Context, documentNumber string) (*ledger.Document, error) {
	var model models.DocumentModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&model, "document_number = ?", documentNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, ledger.NewStorageError(err)
	}
	return model.ToDomain(), nil
}

// applyDocumentFilter applies the non-pagination parts of a DocumentFilter
func applyDocumentFilter(query *gorm.DB, filter ledger.DocumentFilter) *gorm.DB {
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CounterpartyID != nil {
		query = query.Where("counterparty_id = ?", *filter.CounterpartyID)
	}
	if filter.FromDate != nil {
		query = query.Where("created_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("created_at <= ?", *filter.ToDate)
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("due_date <= ?", *filter.DueTo)
	}
	if filter.Overdue != nil && *filter.Overdue {
		query = query.Where("status IN ? AND due_date IS NOT NULL AND due_date < ?",
			[]ledger.DocumentStatus{ledger.DocumentStatusOpen, ledger.DocumentStatusPartiallyPaid},
			time.Now())
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("document_number ILIKE ? OR counterparty_name ILIKE ?", pattern, pattern)
	}
	return query
}

// FindAll finds documents matching the filter
func (r *GormDocumentRepository) FindAll(ctx context.Context, filter ledger.DocumentFilter) ([]ledger.Document, error) {
	var documentModels []models.DocumentModel
	query := applyDocumentFilter(r.db.WithContext(ctx), filter)

	sortField := ValidateSortField(filter.OrderBy, DocumentSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", sortField, sortOrder))

	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
		if filter.Page > 0 {
			query = query.Offset((filter.Page - 1) * filter.PageSize)
		}
	}

	if err := query.Preload("Items").Find(&documentModels).Error; err != nil {
		return nil, ledger.NewStorageError(err)
	}
	documents := make([]ledger.Document, len(documentModels))
	for i, model := range documentModels {
		documents[i] = *model.ToDomain()
	}
	return documents, nil
}

// Count counts documents matching the filter
func (r *GormDocumentRepository) Count(ctx context.Context, filter ledger.DocumentFilter) (int64, error) {
	var count int64
	query := applyDocumentFilter(r.db.WithContext(ctx).Model(&models.DocumentModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, ledger.NewStorageError(err)
	}
	return count, nil
}

// FindAllocatable finds Open and PartiallyPaid documents for a counterparty
func (r *GormDocumentRepository) FindAllocatable(ctx context.Context, counterpartyID uuid.UUID) ([]ledger.Document, error) {
	var documentModels []models.DocumentModel
	if err := r.db.WithContext(ctx).
		Where("counterparty_id = ? AND status IN ?", counterpartyID,
			[]ledger.DocumentStatus{ledger.DocumentStatusOpen, ledger.DocumentStatusPartiallyPaid}).
		Preload("Items").
		Order("due_date ASC NULLS LAST").
		Find(&documentModels).Error; err != nil {
		return nil, ledger.NewStorageError(err)
	}
	documents := make([]ledger.Document, len(documentModels))
	for i, model := range documentModels {
		documents[i] = *model.ToDomain()
	}
	return documents, nil
}

// FindActiveForCounterparty finds all finalized, non-cancelled documents for a
// counterparty. This is the source set for account recomputation.
func (r *GormDocumentRepository) FindActiveForCounterparty(ctx context.Context, counterpartyID uuid.UUID) ([]ledger.Document, error) {
	var documentModels []models.DocumentModel
	if err := r.db.WithContext(ctx).
		Where("counterparty_id = ? AND status IN ?", counterpartyID,
			[]ledger.DocumentStatus{
				ledger.DocumentStatusOpen,
				ledger.DocumentStatusPartiallyPaid,
				ledger.DocumentStatusPaid,
			}).
		Preload("Items").
		Find(&documentModels).Error; err != nil {
		return nil, ledger.NewStorageError(err)
	}
	documents := make([]ledger.Document, len(documentModels))
	for i, model := range documentModels {
		documents[i] = *model.ToDomain()
	}
	return documents, nil
}

// Save creates or updates a document and its line items
func (r *GormDocumentRepository) Save(ctx context.Context, document *ledger.Document) error {
	model := models.DocumentModelFromDomain(document)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Save(model).Error; err != nil {
			return err
		}
		return saveDocumentItems(tx, model)
	})
	if err != nil {
		return ledger.NewStorageError(err)
	}
	return nil
}

// SaveWithLock saves with optimistic locking. The aggregate carries the
// already-incremented version; the write succeeds only if the stored row is
// still at an older version.
func (r *GormDocumentRepository) SaveWithLock(ctx context.Context, document *ledger.Document) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		if err := tx.Model(&models.DocumentModel{}).
			Where("id = ?", document.ID).
			Select("version").
			Scan(&currentVersion).Error; err != nil {
			return ledger.NewStorageError(err)
		}
		if currentVersion == 0 {
			return shared.ErrNotFound
		}
		if currentVersion >= document.Version {
			return shared.ErrStaleVersion
		}

		model := models.DocumentModelFromDomain(document)
		model.UpdatedAt = time.Now()

		result := tx.Model(&models.DocumentModel{}).
			Where("id = ? AND version = ?", document.ID, currentVersion).
			Updates(documentColumns(model))
		if result.Error != nil {
			return ledger.NewStorageError(result.Error)
		}
		if result.RowsAffected == 0 {
			return shared.ErrStaleVersion
		}

		if err := saveDocumentItems(tx, model); err != nil {
			return ledger.NewStorageError(err)
		}
		return nil
	})
}

// documentColumns builds the update map for a document row. A struct update
// would skip zero values such as a fully reverted amount_paid.
func documentColumns(model *models.DocumentModel) map[string]any {
	return map[string]any{
		"document_number":       model.DocumentNumber,
		"kind":                  model.Kind,
		"counterparty_id":       model.CounterpartyID,
		"counterparty_name":     model.CounterpartyName,
		"currency":              model.Currency,
		"discount_mode":         model.DiscountMode,
		"discount_amount":       model.DiscountAmount,
		"discount_basis_points": model.DiscountBasisPoints,
		"tax_basis_points":      model.TaxBasisPoints,
		"subtotal":              model.Subtotal,
		"discount":              model.Discount,
		"tax":                   model.Tax,
		"total":                 model.Total,
		"amount_paid":           model.AmountPaid,
		"status":                model.Status,
		"due_date":              model.DueDate,
		"remark":                model.Remark,
		"finalized_at":          model.FinalizedAt,
		"paid_at":               model.PaidAt,
		"cancelled_at":          model.CancelledAt,
		"cancel_reason":         model.CancelReason,
		"version":               model.Version,
		"updated_at":            model.UpdatedAt,
	}
}

// saveDocumentItems reconciles the line item rows with the aggregate's items:
// rows dropped from the aggregate are deleted, the rest are upserted.
func saveDocumentItems(tx *gorm.DB, model *models.DocumentModel) error {
	currentItemIDs := make([]uuid.UUID, len(model.Items))
	for i, item := range model.Items {
		currentItemIDs[i] = item.ID
	}

	if len(currentItemIDs) > 0 {
		if err := tx.Where("document_id = ? AND id NOT IN ?", model.ID, currentItemIDs).
			Delete(&models.LineItemModel{}).Error; err != nil {
			return err
		}
	} else {
		if err := tx.Where("document_id = ?", model.ID).
			Delete(&models.LineItemModel{}).Error; err != nil {
			return err
		}
	}

	for i := range model.Items {
		model.Items[i].DocumentID = model.ID
		if err := tx.Save(&model.Items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// GenerateNumber generates the next document number for a kind.
// Format: <prefix>-YYYYMMDD-NNNNN, sequence scoped to the day.
func (r *GormDocumentRepository) GenerateNumber(ctx context.Context, kind ledger.DocumentKind) (string, error) {
	prefix := fmt.Sprintf("%s-%s-", kind.NumberPrefix(), time.Now().Format("20060102"))

	var lastNumber string
	err := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Select("document_number").
		Where("document_number LIKE ?", prefix+"%").
		Order("document_number DESC").
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

// Delete deletes a draft document and its line items
func (r *GormDocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).
			Delete(&models.LineItemModel{}).Error; err != nil {
			return ledger.NewStorageError(err)
		}
		result := tx.Delete(&models.DocumentModel{}, "id = ?", id)
		if result.Error != nil {
			return ledger.NewStorageError(result.Error)
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Ensure GormDocumentRepository implements the interface
var _ ledger.DocumentRepository = (*GormDocumentRepository)(nil)
