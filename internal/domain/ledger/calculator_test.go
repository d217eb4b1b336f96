package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLine struct {
	qty   int64
	price int64
}

func makeTestItems(t *testing.T, lines ...testLine) []LineItem {
	items := make([]LineItem, 0, len(lines))
	for _, line := range lines {
		item, err := NewLineItem(uuid.New(), uuid.New(), "test item", line.qty, valueobject.NewMoneyUSD(line.price))
		require.NoError(t, err)
		items = append(items, *item)
	}
	return items
}

// ============================================
// ComputeLineTotal Tests
// ============================================

func TestComputeLineTotal(t *testing.T) {
	t.Run("multiplies unit price by quantity exactly", func(t *testing.T) {
		total, err := ComputeLineTotal(valueobject.NewMoneyUSD(10000), 5)
		require.NoError(t, err)
		assert.Equal(t, int64(50000), total.Units())
	})

	t.Run("rejects negative quantity", func(t *testing.T) {
		_, err := ComputeLineTotal(valueobject.NewMoneyUSD(10000), -1)
		require.Error(t, err)
	})
}

// ============================================
// ComputeDocumentTotals Tests
// ============================================

func TestComputeDocumentTotals(t *testing.T) {
	t.Run("sums line totals with percent tax", func(t *testing.T) {
		// 5 x 100.00 + 1 x 50.00 = 550.00, 10% tax = 55.00, total 605.00
		items := makeTestItems(t, testLine{5, 10000}, testLine{1, 5000})

		totals, err := ComputeDocumentTotals(items, NoDiscount(), TaxRate(1000))
		require.NoError(t, err)
		assert.Equal(t, int64(55000), totals.Subtotal.Units())
		assert.Equal(t, int64(0), totals.Discount.Units())
		assert.Equal(t, int64(5500), totals.Tax.Units())
		assert.Equal(t, int64(60500), totals.Total.Units())
	})

	t.Run("applies fixed discount before tax", func(t *testing.T) {
		// 100.00 - 20.00 = 80.00, 10% tax on discounted base = 8.00
		items := makeTestItems(t, testLine{1, 10000})

		totals, err := ComputeDocumentTotals(items, FixedDiscount(valueobject.NewMoneyUSD(2000)), TaxRate(1000))
		require.NoError(t, err)
		assert.Equal(t, int64(10000), totals.Subtotal.Units())
		assert.Equal(t, int64(2000), totals.Discount.Units())
		assert.Equal(t, int64(800), totals.Tax.Units())
		assert.Equal(t, int64(8800), totals.Total.Units())
	})

	t.Run("applies percent discount in basis points", func(t *testing.T) {
		// 200.00 at 15% discount = 30.00, no tax
		items := makeTestItems(t, testLine{2, 10000})

		totals, err := ComputeDocumentTotals(items, PercentDiscount(1500), NoTax())
		require.NoError(t, err)
		assert.Equal(t, int64(3000), totals.Discount.Units())
		assert.Equal(t, int64(17000), totals.Total.Units())
	})

	t.Run("rounds tax half to even", func(t *testing.T) {
		// 0.25 at 10% = 0.025 rounds to 0.02, 0.35 at 10% = 0.035 rounds to 0.04
		items := makeTestItems(t, testLine{1, 25})
		totals, err := ComputeDocumentTotals(items, NoDiscount(), TaxRate(1000))
		require.NoError(t, err)
		assert.Equal(t, int64(2), totals.Tax.Units())

		items = makeTestItems(t, testLine{1, 35})
		totals, err = ComputeDocumentTotals(items, NoDiscount(), TaxRate(1000))
		require.NoError(t, err)
		assert.Equal(t, int64(4), totals.Tax.Units())
	})

	t.Run("rejects discount exceeding subtotal", func(t *testing.T) {
		items := makeTestItems(t, testLine{1, 5000})

		_, err := ComputeDocumentTotals(items, FixedDiscount(valueobject.NewMoneyUSD(6000)), NoTax())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds subtotal")
	})

	t.Run("rejects empty item list", func(t *testing.T) {
		_, err := ComputeDocumentTotals(nil, NoDiscount(), NoTax())
		require.Error(t, err)
	})
}

// ============================================
// Policy Validation Tests
// ============================================

func TestDiscountPolicyValidate(t *testing.T) {
	t.Run("accepts no discount", func(t *testing.T) {
		assert.NoError(t, NoDiscount().Validate(valueobject.USD))
	})

	t.Run("rejects negative fixed discount", func(t *testing.T) {
		neg := valueobject.NewMoneyUSD(100).Negate()
		assert.Error(t, FixedDiscount(neg).Validate(valueobject.USD))
	})

	t.Run("rejects fixed discount in wrong currency", func(t *testing.T) {
		eur, err := valueobject.NewMoney(100, valueobject.EUR)
		require.NoError(t, err)
		assert.Error(t, FixedDiscount(eur).Validate(valueobject.USD))
	})

	t.Run("rejects percent discount over 100 percent", func(t *testing.T) {
		assert.Error(t, PercentDiscount(10001).Validate(valueobject.USD))
	})
}

func TestTaxPolicyValidate(t *testing.T) {
	assert.NoError(t, TaxRate(825).Validate())
	assert.Error(t, TaxRate(-1).Validate())
}
