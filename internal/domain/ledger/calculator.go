package ledger

import (
	"fmt"

	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/openbooks/backend/internal/domain/shared/valueobject"
)

// DiscountMode controls how a document-level discount is computed
type DiscountMode string

const (
	DiscountModeNone    DiscountMode = "NONE"
	DiscountModeFixed   DiscountMode = "FIXED"
	DiscountModePercent DiscountMode = "PERCENT"
)

// IsValid checks if the mode is a valid DiscountMode
func (m DiscountMode) IsValid() bool {
	return m == DiscountModeNone || m == DiscountModeFixed || m == DiscountModePercent
}

// DiscountPolicy describes the document-level discount applied at finalize.
// A fixed discount carries an amount; a percent discount carries basis points
// (1/100 of a percent, so 1000 = 10%).
type DiscountPolicy struct {
	Mode        DiscountMode      `json:"mode"`
	Amount      valueobject.Money `json:"amount"`
	BasisPoints int64             `json:"basis_points"`
}

// NoDiscount returns the empty discount policy
func NoDiscount() DiscountPolicy {
	return DiscountPolicy{Mode: DiscountModeNone}
}

// FixedDiscount returns a fixed-amount discount policy
func FixedDiscount(amount valueobject.Money) DiscountPolicy {
	return DiscountPolicy{Mode: DiscountModeFixed, Amount: amount}
}

// PercentDiscount returns a percentage discount policy expressed in basis points
func PercentDiscount(basisPoints int64) DiscountPolicy {
	return DiscountPolicy{Mode: DiscountModePercent, BasisPoints: basisPoints}
}

// Validate checks the policy against the document currency
func (p DiscountPolicy) Validate(currency valueobject.Currency) error {
	switch p.Mode {
	case DiscountModeNone:
		return nil
	case DiscountModeFixed:
		if p.Amount.IsNegative() {
			return shared.NewDomainError("INVALID_DISCOUNT", "Discount amount cannot be negative")
		}
		if p.Amount.Currency() != currency {
			return shared.NewDomainError("INVALID_DISCOUNT",
				fmt.Sprintf("Discount currency %s does not match document currency %s", p.Amount.Currency(), currency))
		}
		return nil
	case DiscountModePercent:
		if p.BasisPoints < 0 || p.BasisPoints > 10000 {
			return shared.NewDomainError("INVALID_DISCOUNT", "Discount basis points must be between 0 and 10000")
		}
		return nil
	}
	return shared.NewDomainError("INVALID_DISCOUNT", "Discount mode is not valid")
}

// TaxPolicy describes the tax rate applied at finalize, in basis points on
// the discounted subtotal
type TaxPolicy struct {
	BasisPoints int64 `json:"basis_points"`
}

// NoTax returns the zero-rate tax policy
func NoTax() TaxPolicy {
	return TaxPolicy{}
}

// TaxRate returns a tax policy with the given basis points
func TaxRate(basisPoints int64) TaxPolicy {
	return TaxPolicy{BasisPoints: basisPoints}
}

// Validate checks the tax rate is non-negative
func (p TaxPolicy) Validate() error {
	if p.BasisPoints < 0 {
		return shared.NewDomainError("INVALID_TAX", "Tax basis points cannot be negative")
	}
	return nil
}

// DocumentTotals holds the computed monetary components of a document
type DocumentTotals struct {
	Subtotal valueobject.Money
	Discount valueobject.Money
	Tax      valueobject.Money
	Total    valueobject.Money
}

// ComputeLineTotal computes unit price times quantity for a line item
func ComputeLineTotal(unitPrice valueobject.Money, quantity int64) (valueobject.Money, error) {
	total, err := unitPrice.MultiplyByInt(quantity)
	if err != nil {
		return valueobject.Money{}, NewInvalidLineItemError(err.Error())
	}
	return total, nil
}

// ComputeDocumentTotals derives subtotal, discount, tax and total from the
// line items and policies. Subtotal is the exact sum of line totals; the
// percent discount and the tax each round half-to-even once; tax applies to
// the discounted subtotal. Every component is non-negative and the discount
// may not exceed the subtotal.
func ComputeDocumentTotals(items []LineItem, discount DiscountPolicy, tax TaxPolicy) (DocumentTotals, error) {
	if len(items) == 0 {
		return DocumentTotals{}, shared.NewDomainError("NO_ITEMS", "Cannot compute totals without items")
	}

	currency := items[0].UnitPrice.Currency()
	subtotal := valueobject.Zero(currency)
	for _, item := range items {
		sum, err := subtotal.Add(item.LineTotal)
		if err != nil {
			return DocumentTotals{}, NewInvalidLineItemError(err.Error())
		}
		subtotal = sum
	}

	discountAmount := valueobject.Zero(currency)
	switch discount.Mode {
	case DiscountModeFixed:
		discountAmount = discount.Amount
	case DiscountModePercent:
		amount, err := subtotal.PercentageOf(discount.BasisPoints)
		if err != nil {
			return DocumentTotals{}, shared.NewDomainError("INVALID_DISCOUNT", err.Error())
		}
		discountAmount = amount
	}

	discounted, err := subtotal.Subtract(discountAmount)
	if err != nil {
		return DocumentTotals{}, shared.NewDomainError("INVALID_DISCOUNT",
			fmt.Sprintf("Discount %s exceeds subtotal %s", discountAmount, subtotal))
	}

	taxAmount, err := discounted.PercentageOf(tax.BasisPoints)
	if err != nil {
		return DocumentTotals{}, shared.NewDomainError("INVALID_TAX", err.Error())
	}

	total := discounted.MustAdd(taxAmount)

	return DocumentTotals{
		Subtotal: subtotal,
		Discount: discountAmount,
		Tax:      taxAmount,
		Total:    total,
	}, nil
}
