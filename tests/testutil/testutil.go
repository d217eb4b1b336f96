// Package testutil provides shared test helpers for the ledger backend:
// a sqlmock-backed GORM database for repository tests and deterministic
// UUIDs for fixtures.
package testutil

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// MockDB wraps a GORM connection backed by sqlmock.
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB opens a GORM connection over sqlmock with default transactions
// disabled, so repository tests can set plain query expectations. The caller
// closes it when done.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")
	return wrapMockDB(t, mockDB, mock)
}

// NewMockDBWithPings is NewMockDB with Ping tracking enabled, for health
// check tests. GORM pings once while opening the connection, that
// expectation is consumed here.
func NewMockDBWithPings(t *testing.T) *MockDB {
	t.Helper()

	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err, "Failed to create sqlmock")
	mock.ExpectPing()
	return wrapMockDB(t, mockDB, mock)
}

func wrapMockDB(t *testing.T, mockDB *sql.DB, mock sqlmock.Sqlmock) *MockDB {
	t.Helper()

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err, "Failed to open GORM connection")

	return &MockDB{
		DB:    gormDB,
		Mock:  mock,
		SqlDB: mockDB,
	}
}

// Close closes the underlying mock connection.
func (m *MockDB) Close() error {
	return m.SqlDB.Close()
}

// ExpectationsWereMet fails the test if any expectation went unmatched.
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet(), "Unmet database expectations")
}

// ledger test fixtures hash into this namespace
var testNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// NewTestUUID derives a reproducible UUID from a seed, so fixtures keep the
// same identity across runs.
func NewTestUUID(seed string) uuid.UUID {
	return uuid.NewSHA1(testNamespace, []byte(seed))
}

// TestCustomerID returns the standard customer counterparty for fixtures.
func TestCustomerID() uuid.UUID {
	return NewTestUUID("ledger-customer")
}

// TestSupplierID returns the standard supplier counterparty for fixtures.
func TestSupplierID() uuid.UUID {
	return NewTestUUID("ledger-supplier")
}
