package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createAccountDocument(t *testing.T, counterpartyID uuid.UUID, number string, totalUnits int64) *Document {
	doc, err := NewDocument(DocumentKindSalesOrder, number, counterpartyID, "Acme Corp", valueobject.USD, nil)
	require.NoError(t, err)
	_, err = doc.AddItem(uuid.New(), "widget", 1, valueobject.NewMoneyUSD(totalUnits))
	require.NoError(t, err)
	require.NoError(t, doc.Finalize())
	return doc
}

// ============================================
// NewLedgerAccount Tests
// ============================================

func TestNewLedgerAccount(t *testing.T) {
	t.Run("creates empty account", func(t *testing.T) {
		acct, err := NewLedgerAccount(uuid.New(), CounterpartyTypeCustomer, "Acme Corp", valueobject.USD)
		require.NoError(t, err)
		assert.True(t, acct.OutstandingBalance.IsZero())
		assert.True(t, acct.TotalActivity.IsZero())
		assert.Equal(t, 0, acct.OpenDocuments)
		assert.False(t, acct.HasOutstandingBalance())
	})

	t.Run("fails with nil counterparty", func(t *testing.T) {
		_, err := NewLedgerAccount(uuid.Nil, CounterpartyTypeCustomer, "Acme", valueobject.USD)
		require.Error(t, err)
	})

	t.Run("fails with invalid counterparty type", func(t *testing.T) {
		_, err := NewLedgerAccount(uuid.New(), CounterpartyType("ALIEN"), "Acme", valueobject.USD)
		require.Error(t, err)
	})
}

// ============================================
// Recompute Tests
// ============================================

func TestLedgerAccountRecompute(t *testing.T) {
	counterpartyID := uuid.New()

	newAccount := func(t *testing.T) *LedgerAccount {
		acct, err := NewLedgerAccount(counterpartyID, CounterpartyTypeCustomer, "Acme Corp", valueobject.USD)
		require.NoError(t, err)
		return acct
	}

	t.Run("sums remaining balances of finalized documents", func(t *testing.T) {
		open := createAccountDocument(t, counterpartyID, "SO-1", 10000)
		partial := createAccountDocument(t, counterpartyID, "SO-2", 20000)
		require.NoError(t, partial.ApplyAllocation(valueobject.NewMoneyUSD(5000)))
		paid := createAccountDocument(t, counterpartyID, "SO-3", 30000)
		require.NoError(t, paid.ApplyAllocation(valueobject.NewMoneyUSD(30000)))

		acct := newAccount(t)
		require.NoError(t, acct.Recompute([]*Document{open, partial, paid}))

		// 100.00 + 150.00 + 0 outstanding over 600.00 of activity
		assert.Equal(t, int64(25000), acct.OutstandingBalance.Units())
		assert.Equal(t, int64(60000), acct.TotalActivity.Units())
		assert.Equal(t, 2, acct.OpenDocuments)
		assert.True(t, acct.HasOutstandingBalance())
	})

	t.Run("skips drafts and cancelled documents", func(t *testing.T) {
		draft, err := NewDocument(DocumentKindSalesOrder, "SO-4", counterpartyID, "Acme Corp", valueobject.USD, nil)
		require.NoError(t, err)
		cancelled := createAccountDocument(t, counterpartyID, "SO-5", 10000)
		require.NoError(t, cancelled.Cancel("withdrawn"))

		acct := newAccount(t)
		require.NoError(t, acct.Recompute([]*Document{draft, cancelled}))

		assert.True(t, acct.OutstandingBalance.IsZero())
		assert.True(t, acct.TotalActivity.IsZero())
	})

	t.Run("skips documents of other counterparties", func(t *testing.T) {
		other := createAccountDocument(t, uuid.New(), "SO-6", 10000)

		acct := newAccount(t)
		require.NoError(t, acct.Recompute([]*Document{other}))
		assert.True(t, acct.OutstandingBalance.IsZero())
	})

	t.Run("recompute replaces prior state", func(t *testing.T) {
		doc := createAccountDocument(t, counterpartyID, "SO-7", 10000)

		acct := newAccount(t)
		require.NoError(t, acct.Recompute([]*Document{doc}))
		assert.Equal(t, int64(10000), acct.OutstandingBalance.Units())

		require.NoError(t, doc.ApplyAllocation(valueobject.NewMoneyUSD(10000)))
		require.NoError(t, acct.Recompute([]*Document{doc}))
		assert.True(t, acct.OutstandingBalance.IsZero())
		assert.Equal(t, 0, acct.OpenDocuments)
	})

	t.Run("increments version on recompute", func(t *testing.T) {
		acct := newAccount(t)
		before := acct.Version
		require.NoError(t, acct.Recompute(nil))
		assert.Equal(t, before+1, acct.Version)
	})
}
