package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMockDB(t *testing.T) {
	mockDB := NewMockDB(t)
	defer mockDB.Close()

	assert.NotNil(t, mockDB.DB)
	assert.NotNil(t, mockDB.Mock)
	assert.NotNil(t, mockDB.SqlDB)

	// nothing expected, nothing ran
	mockDB.ExpectationsWereMet(t)
}

func TestNewMockDBWithPings(t *testing.T) {
	mockDB := NewMockDBWithPings(t)
	defer mockDB.Close()

	mockDB.Mock.ExpectPing()
	require.NoError(t, mockDB.SqlDB.Ping())
	mockDB.ExpectationsWereMet(t)
}

func TestNewTestUUID(t *testing.T) {
	assert.Equal(t, NewTestUUID("doc-1"), NewTestUUID("doc-1"))
	assert.NotEqual(t, NewTestUUID("doc-1"), NewTestUUID("doc-2"))
}

func TestFixtureCounterparties(t *testing.T) {
	assert.Equal(t, TestCustomerID(), TestCustomerID())
	assert.Equal(t, TestSupplierID(), TestSupplierID())
	assert.NotEqual(t, TestCustomerID(), TestSupplierID())
}
