package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/ledger"
	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/openbooks/backend/internal/domain/shared/valueobject"
	"github.com/openbooks/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newMockDocumentRepository creates a GormDocumentRepository with a mocked SQL connection
func newMockDocumentRepository(t *testing.T) (*GormDocumentRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB := testutil.NewMockDB(t)
	return NewGormDocumentRepository(mockDB.DB), mockDB.Mock, mockDB.SqlDB
}

func documentRows(id uuid.UUID, counterpartyID uuid.UUID, number string, status ledger.DocumentStatus, version int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "version", "document_number", "kind", "counterparty_id", "counterparty_name",
		"currency", "status", "subtotal", "total", "amount_paid",
	}).AddRow(id, version, number, "SALES_ORDER", counterpartyID, "Acme Corp",
		"USD", status, int64(10000), int64(10000), int64(0))
}

func TestNewGormDocumentRepository(t *testing.T) {
	t.Run("creates repository with valid DB", func(t *testing.T) {
		repo, _, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		assert.NotNil(t, repo)
		assert.NotNil(t, repo.db)
	})
}

func TestGormDocumentRepository_FindByID(t *testing.T) {
	t.Run("finds existing document with line items", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		documentID := uuid.New()
		counterpartyID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "documents" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(documentID, 1).
			WillReturnRows(documentRows(documentID, counterpartyID, "SO-20260830-00001", ledger.DocumentStatusOpen, 2))

		mock.ExpectQuery(`SELECT \* FROM "document_line_items" WHERE "document_line_items"\."document_id" = \$1`).
			WithArgs(documentID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "product_ref", "description", "quantity", "unit_price", "line_total"}).
				AddRow(uuid.New(), documentID, uuid.New(), "Widget", int64(4), int64(2500), int64(10000)))

		document, err := repo.FindByID(context.Background(), documentID)

		assert.NoError(t, err)
		assert.NotNil(t, document)
		assert.Equal(t, documentID, document.ID)
		assert.Equal(t, "SO-20260830-00001", document.DocumentNumber)
		assert.Equal(t, ledger.DocumentStatusOpen, document.Status)
		assert.Len(t, document.Items, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns error for non-existent document", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		documentID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "documents" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(documentID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		document, err := repo.FindByID(context.Background(), documentID)

		assert.Error(t, err)
		assert.Nil(t, document)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps driver errors as storage errors", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		documentID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "documents" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(documentID, 1).
			WillReturnError(assert.AnError)

		document, err := repo.FindByID(context.Background(), documentID)

		assert.Error(t, err)
		assert.Nil(t, document)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, ledger.ErrCodeStorage, domainErr.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormDocumentRepository_FindByNumber(t *testing.T) {
	t.Run("finds document by number", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		documentID := uuid.New()
		counterpartyID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "documents" WHERE document_number = \$1 ORDER BY .* LIMIT .*`).
			WithArgs("SO-20260830-00001", 1).
			WillReturnRows(documentRows(documentID, counterpartyID, "SO-20260830-00001", ledger.DocumentStatusOpen, 1))

		mock.ExpectQuery(`SELECT \* FROM "document_line_items" WHERE "document_line_items"\."document_id" = \$1`).
			WithArgs(documentID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "document_id"}))

		document, err := repo.FindByNumber(context.Background(), "SO-20260830-00001")

		assert.NoError(t, err)
		assert.NotNil(t, document)
		assert.Equal(t, "SO-20260830-00001", document.DocumentNumber)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns error for non-existent number", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "documents" WHERE document_number = \$1 ORDER BY .* LIMIT .*`).
			WithArgs("SO-20260830-99999", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		document, err := repo.FindByNumber(context.Background(), "SO-20260830-99999")

		assert.Error(t, err)
		assert.Nil(t, document)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormDocumentRepository_FindAll(t *testing.T) {
	t.Run("finds documents with status filter", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		documentID := uuid.New()
		counterpartyID := uuid.New()
		status := ledger.DocumentStatusOpen

		mock.ExpectQuery(`SELECT \* FROM "documents" WHERE status = \$1 ORDER BY created_at DESC`).
			WithArgs(status).
			WillReturnRows(documentRows(documentID, counterpartyID, "SO-20260830-00001", status, 1))

		mock.ExpectQuery(`SELECT \* FROM "document_line_items" WHERE "document_line_items"\."document_id" = \$1`).
			WithArgs(documentID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "document_id"}))

		documents, err := repo.FindAll(context.Background(), ledger.DocumentFilter{Status: &status})

		assert.NoError(t, err)
		assert.Len(t, documents, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("applies pagination and sort whitelist", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "documents" ORDER BY total ASC LIMIT \$1 OFFSET \$2`).
			WithArgs(10, 10).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		documents, err := repo.FindAll(context.Background(), ledger.DocumentFilter{
			Filter: shared.Filter{Page: 2, PageSize: 10, OrderBy: "total", OrderDir: "asc"},
		})

		assert.NoError(t, err)
		assert.Empty(t, documents)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects unknown sort field and falls back to created_at", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "documents" ORDER BY created_at DESC`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.FindAll(context.Background(), ledger.DocumentFilter{
			Filter: shared.Filter{OrderBy: "total; DROP TABLE documents;--"},
		})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormDocumentRepository_Count(t *testing.T) {
	t.Run("counts documents matching filter", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		counterpartyID := uuid.New()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "documents" WHERE counterparty_id = \$1`).
			WithArgs(counterpartyID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

		count, err := repo.Count(context.Background(), ledger.DocumentFilter{CounterpartyID: &counterpartyID})

		assert.NoError(t, err)
		assert.Equal(t, int64(3), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormDocumentRepository_FindAllocatable(t *testing.T) {
	t.Run("finds open and partially paid documents ordered by due date", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		counterpartyID := uuid.New()
		documentID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "documents" WHERE counterparty_id = \$1 AND status IN \(\$2,\$3\) ORDER BY due_date ASC NULLS LAST`).
			WithArgs(counterpartyID, ledger.DocumentStatusOpen, ledger.DocumentStatusPartiallyPaid).
			WillReturnRows(documentRows(documentID, counterpartyID, "SO-20260830-00001", ledger.DocumentStatusOpen, 1))

		mock.ExpectQuery(`SELECT \* FROM "document_line_items" WHERE "document_line_items"\."document_id" = \$1`).
			WithArgs(documentID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "document_id"}))

		documents, err := repo.FindAllocatable(context.Background(), counterpartyID)

		assert.NoError(t, err)
		assert.Len(t, documents, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormDocumentRepository_FindActiveForCounterparty(t *testing.T) {
	t.Run("includes paid documents", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		counterpartyID := uuid.New()
		documentID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "documents" WHERE counterparty_id = \$1 AND status IN \(\$2,\$3,\$4\)`).
			WithArgs(counterpartyID, ledger.DocumentStatusOpen, ledger.DocumentStatusPartiallyPaid, ledger.DocumentStatusPaid).
			WillReturnRows(documentRows(documentID, counterpartyID, "SO-20260830-00001", ledger.DocumentStatusPaid, 3))

		mock.ExpectQuery(`SELECT \* FROM "document_line_items" WHERE "document_line_items"\."document_id" = \$1`).
			WithArgs(documentID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "document_id"}))

		documents, err := repo.FindActiveForCounterparty(context.Background(), counterpartyID)

		assert.NoError(t, err)
		assert.Len(t, documents, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormDocumentRepository_Save(t *testing.T) {
	t.Run("saves document and line items in one transaction", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		document, err := ledger.NewDocument(ledger.DocumentKindSalesOrder, "SO-20260830-00001",
			uuid.New(), "Acme Corp", valueobject.USD, nil)
		require.NoError(t, err)
		_, err = document.AddItem(uuid.New(), "Widget", 4, valueobject.NewMoneyUSD(2500))
		require.NoError(t, err)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "documents" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM "document_line_items" WHERE document_id = \$1 AND id NOT IN \(\$2\)`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`UPDATE "document_line_items" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = repo.Save(context.Background(), document)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deletes all line item rows when aggregate has none", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		document, err := ledger.NewDocument(ledger.DocumentKindSalesOrder, "SO-20260830-00002",
			uuid.New(), "Acme Corp", valueobject.USD, nil)
		require.NoError(t, err)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "documents" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM "document_line_items" WHERE document_id = \$1`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err = repo.Save(context.Background(), document)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormDocumentRepository_SaveWithLock(t *testing.T) {
	t.Run("saves when stored version is older", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		document, err := ledger.NewDocument(ledger.DocumentKindSalesOrder, "SO-20260830-00001",
			uuid.New(), "Acme Corp", valueobject.USD, nil)
		require.NoError(t, err)
		document.SetRemark("updated") // bumps the version past the stored row

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT "version" FROM "documents" WHERE id = \$1`).
			WithArgs(document.ID).
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(document.Version - 1))
		mock.ExpectExec(`UPDATE "documents" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM "document_line_items" WHERE document_id = \$1`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err = repo.SaveWithLock(context.Background(), document)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns stale version error when stored version caught up", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		document, err := ledger.NewDocument(ledger.DocumentKindSalesOrder, "SO-20260830-00001",
			uuid.New(), "Acme Corp", valueobject.USD, nil)
		require.NoError(t, err)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT "version" FROM "documents" WHERE id = \$1`).
			WithArgs(document.ID).
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(document.Version))
		mock.ExpectRollback()

		err = repo.SaveWithLock(context.Background(), document)

		assert.Error(t, err)
		assert.Equal(t, shared.ErrStaleVersion, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found when row is missing", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		document, err := ledger.NewDocument(ledger.DocumentKindSalesOrder, "SO-20260830-00001",
			uuid.New(), "Acme Corp", valueobject.USD, nil)
		require.NoError(t, err)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT "version" FROM "documents" WHERE id = \$1`).
			WithArgs(document.ID).
			WillReturnRows(sqlmock.NewRows([]string{"version"}))
		mock.ExpectRollback()

		err = repo.SaveWithLock(context.Background(), document)

		assert.Error(t, err)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns stale version error when concurrent writer wins the update", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		document, err := ledger.NewDocument(ledger.DocumentKindSalesOrder, "SO-20260830-00001",
			uuid.New(), "Acme Corp", valueobject.USD, nil)
		require.NoError(t, err)
		document.SetRemark("updated")

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT "version" FROM "documents" WHERE id = \$1`).
			WithArgs(document.ID).
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(document.Version - 1))
		mock.ExpectExec(`UPDATE "documents" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err = repo.SaveWithLock(context.Background(), document)

		assert.Error(t, err)
		assert.Equal(t, shared.ErrStaleVersion, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormDocumentRepository_GenerateNumber(t *testing.T) {
	t.Run("starts at one when no documents exist for the day", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT "document_number" FROM "documents" WHERE document_number LIKE \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"document_number"}))

		number, err := repo.GenerateNumber(context.Background(), ledger.DocumentKindSalesOrder)

		assert.NoError(t, err)
		expected := fmt.Sprintf("SO-%s-00001", time.Now().Format("20060102"))
		assert.Equal(t, expected, number)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("increments the last sequence for the day", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		today := time.Now().Format("20060102")

		mock.ExpectQuery(`SELECT "document_number" FROM "documents" WHERE document_number LIKE \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"document_number"}).
				AddRow(fmt.Sprintf("PI-%s-00041", today)))

		number, err := repo.GenerateNumber(context.Background(), ledger.DocumentKindPurchaseInvoice)

		assert.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("PI-%s-00042", today), number)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormDocumentRepository_Delete(t *testing.T) {
	t.Run("deletes document and its line items", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		documentID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "document_line_items" WHERE document_id = \$1`).
			WithArgs(documentID).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`DELETE FROM "documents" WHERE id = \$1`).
			WithArgs(documentID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.Delete(context.Background(), documentID)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns error for non-existent document", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		documentID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "document_line_items" WHERE document_id = \$1`).
			WithArgs(documentID).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`DELETE FROM "documents" WHERE id = \$1`).
			WithArgs(documentID).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.Delete(context.Background(), documentID)

		assert.Error(t, err)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormDocumentRepository_InterfaceCompliance(t *testing.T) {
	t.Run("implements DocumentRepository interface", func(t *testing.T) {
		repo, _, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		var _ ledger.DocumentRepository = repo
	})
}
