package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/ledger"
	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/openbooks/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormLedgerAccountRepository implements LedgerAccountRepository using GORM
type GormLedgerAccountRepository struct {
	db *gorm.DB
}

// NewGormLedgerAccountRepository creates a new GormLedgerAccountRepository
func NewGormLedgerAccountRepository(db *gorm.DB) *GormLedgerAccountRepository {
	return &GormLedgerAccountRepository{db: db}
}

// FindByCounterparty finds the account for a counterparty
func (r *GormLedgerAccountRepository) FindByCounterparty(ctx context.Context, counterpartyID uuid.UUID) (*ledger.LedgerAccount, error) {
	var model models.LedgerAccountModel
	if err := r.db.WithContext(ctx).
		First(&model, "counterparty_id = ?", counterpartyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, ledger.NewStorageError(err)
	}
	return model.ToDomain(), nil
}

// FindAll finds accounts with pagination
func (r *GormLedgerAccountRepository) FindAll(ctx context.Context, filter shared.Filter) ([]ledger.LedgerAccount, error) {
	var accountModels []models.LedgerAccountModel
	query := r.db.WithContext(ctx)

	if filter.Search != "" {
		query = query.Where("counterparty_name ILIKE ?", "%"+filter.Search+"%")
	}

	sortField := ValidateSortField(filter.OrderBy, LedgerAccountSortFields, "counterparty_name")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", sortField, sortOrder))

	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
		if filter.Page > 0 {
			query = query.Offset((filter.Page - 1) * filter.PageSize)
		}
	}

	if err := query.Find(&accountModels).Error; err != nil {
		return nil, ledger.NewStorageError(err)
	}
	accounts := make([]ledger.LedgerAccount, len(accountModels))
	for i, model := range accountModels {
		accounts[i] = *model.ToDomain()
	}
	return accounts, nil
}

// Count counts all accounts
func (r *GormLedgerAccountRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.LedgerAccountModel{}).
		Count(&count).Error; err != nil {
		return 0, ledger.NewStorageError(err)
	}
	return count, nil
}

// ListCounterpartyIDs lists every counterparty that has an account
func (r *GormLedgerAccountRepository) ListCounterpartyIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.LedgerAccountModel{}).
		Order("counterparty_id ASC").
		Pluck("counterparty_id", &ids).Error; err != nil {
		return nil, ledger.NewStorageError(err)
	}
	return ids, nil
}

// Save creates or updates an account
func (r *GormLedgerAccountRepository) Save(ctx context.Context, account *ledger.LedgerAccount) error {
	model := models.LedgerAccountModelFromDomain(account)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return ledger.NewStorageError(err)
	}
	return nil
}

// SaveWithLock saves with optimistic locking. The aggregate carries the
// already-incremented version; the write succeeds only if the stored row is
// still at an older version.
func (r *GormLedgerAccountRepository) SaveWithLock(ctx context.Context, account *ledger.LedgerAccount) error {
	var currentVersion int
	if err := r.db.WithContext(ctx).
		Model(&models.LedgerAccountModel{}).
		Where("id = ?", account.ID).
		Select("version").
		Scan(&currentVersion).Error; err != nil {
		return ledger.NewStorageError(err)
	}
	if currentVersion == 0 {
		return shared.ErrNotFound
	}
	if currentVersion >= account.Version {
		return shared.ErrStaleVersion
	}

	model := models.LedgerAccountModelFromDomain(account)
	model.UpdatedAt = time.Now()

	result := r.db.WithContext(ctx).
		Model(&models.LedgerAccountModel{}).
		Where("id = ? AND version = ?", account.ID, currentVersion).
		Updates(map[string]any{
			"counterparty_id":     model.CounterpartyID,
			"counterparty_type":   model.CounterpartyType,
			"counterparty_name":   model.CounterpartyName,
			"currency":            model.Currency,
			"outstanding_balance": model.OutstandingBalance,
			"total_activity":      model.TotalActivity,
			"open_documents":      model.OpenDocuments,
			"recomputed_at":       model.RecomputedAt,
			"version":             model.Version,
			"updated_at":          model.UpdatedAt,
		})
	if result.Error != nil {
		return ledger.NewStorageError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrStaleVersion
	}
	return nil
}

// Ensure GormLedgerAccountRepository implements the interface
var _ ledger.LedgerAccountRepository = (*GormLedgerAccountRepository)(nil)
