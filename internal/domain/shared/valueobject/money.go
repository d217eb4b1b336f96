package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	USD Currency = "USD" // US Dollar (default)
	EUR Currency = "EUR" // Euro
	GBP Currency = "GBP" // British Pound
	CNY Currency = "CNY" // Chinese Yuan
	JPY Currency = "JPY" // Japanese Yen
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = USD

// Exponent returns the number of decimal places between the major unit and
// the minor unit of the currency (2 for cents, 0 for yen).
func (c Currency) Exponent() int32 {
	if c == JPY {
		return 0
	}
	return 2
}

// Sentinel errors for guarded Money operations
var (
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrNegativeResult   = errors.New("negative result")
	ErrNegativeQuantity = errors.New("quantity cannot be negative")
	ErrNegativeRate     = errors.New("rate cannot be negative")
	ErrFractionalMinor  = errors.New("amount has fractional minor units")
	ErrEmptyCurrency    = errors.New("currency cannot be empty")
)

// Money is a value object representing a monetary amount as an exact count
// of minor currency units (e.g. cents). It is immutable - all operations
// return new Money instances. No operation truncates fractional minor units;
// the one rounding point is PercentageOf, which uses banker's rounding
// (round-half-to-even) exactly once.
type Money struct {
	units    int64
	currency Currency
}

// NewMoney creates Money from a count of minor units
func NewMoney(units int64, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, ErrEmptyCurrency
	}
	return Money{units: units, currency: currency}, nil
}

// NewMoneyFromDecimal creates Money from a major-unit decimal amount.
// Fails if the amount does not land exactly on a minor unit.
func NewMoneyFromDecimal(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, ErrEmptyCurrency
	}
	shifted := amount.Shift(currency.Exponent())
	if !shifted.IsInteger() {
		return Money{}, fmt.Errorf("%w: %s %s", ErrFractionalMinor, amount.String(), currency)
	}
	return Money{units: shifted.IntPart(), currency: currency}, nil
}

// NewMoneyFromString creates Money from a major-unit string such as "605.00"
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewMoneyFromDecimal(d, currency)
}

// NewMoneyUSD creates Money in USD from minor units (cents)
func NewMoneyUSD(units int64) Money {
	return Money{units: units, currency: USD}
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{units: 0, currency: currency}
}

// ZeroUSD returns a zero-value Money in USD
func ZeroUSD() Money {
	return Zero(USD)
}

// Units returns the amount as a count of minor units
func (m Money) Units() int64 {
	return m.units
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// Decimal returns the amount in major units as a decimal
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(m.units).Shift(-m.currency.Exponent())
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.units == 0
}

// IsPositive returns true if the amount is greater than zero
func (m Money) IsPositive() bool {
	return m.units > 0
}

// IsNegative returns true if the amount is less than zero
func (m Money) IsNegative() bool {
	return m.units < 0
}

// Add returns a new Money with the sum of both amounts.
// Returns an error if currencies don't match.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return Money{units: m.units + other.units, currency: m.currency}, nil
}

// MustAdd adds two Money values, panics if currencies don't match
func (m Money) MustAdd(other Money) Money {
	result, err := m.Add(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Subtract returns a new Money with the difference. Fails with
// ErrNegativeResult if the result would be negative; use
// SubtractAllowingNegative for signed intermediate arithmetic.
func (m Money) Subtract(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	if m.units < other.units {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrNegativeResult, m.String(), other.String())
	}
	return Money{units: m.units - other.units, currency: m.currency}, nil
}

// MustSubtract subtracts two Money values, panics on currency mismatch or
// negative result
func (m Money) MustSubtract(other Money) Money {
	result, err := m.Subtract(other)
	if err != nil {
		panic(err)
	}
	return result
}

// SubtractAllowingNegative returns the signed difference. The guard against
// negative results is lifted for callers that need signed intermediate
// values, such as drift reporting.
func (m Money) SubtractAllowingNegative(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return Money{units: m.units - other.units, currency: m.currency}, nil
}

// MultiplyByInt returns a new Money multiplied by a non-negative integer
// quantity. Multiplication by an integer is always exact.
func (m Money) MultiplyByInt(quantity int64) (Money, error) {
	if quantity < 0 {
		return Money{}, ErrNegativeQuantity
	}
	return Money{units: m.units * quantity, currency: m.currency}, nil
}

// PercentageOf returns the given fraction of this Money, expressed in basis
// points (1/100th of a percent; 1000 basis points = 10%). This is the single
// rounding point of the Money type: the result is rounded to a whole minor
// unit with banker's rounding (round-half-to-even) and never re-rounded.
func (m Money) PercentageOf(basisPoints int64) (Money, error) {
	if basisPoints < 0 {
		return Money{}, ErrNegativeRate
	}
	raw := decimal.NewFromInt(m.units).
		Mul(decimal.NewFromInt(basisPoints)).
		Div(decimal.NewFromInt(10000))
	return Money{units: raw.RoundBank(0).IntPart(), currency: m.currency}, nil
}

// Negate returns a new Money with the sign reversed
func (m Money) Negate() Money {
	return Money{units: -m.units, currency: m.currency}
}

// Equals returns true if both Money values have the same amount and currency
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.units == other.units
}

// LessThan returns true if this Money is less than the other.
// Returns an error if currencies don't match.
func (m Money) LessThan(other Money) (bool, error) {
	if m.currency != other.currency {
		return false, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return m.units < other.units, nil
}

// LessThanOrEqual returns true if this Money is less than or equal to the other
func (m Money) LessThanOrEqual(other Money) (bool, error) {
	if m.currency != other.currency {
		return false, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return m.units <= other.units, nil
}

// GreaterThan returns true if this Money is greater than the other
func (m Money) GreaterThan(other Money) (bool, error) {
	if m.currency != other.currency {
		return false, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return m.units > other.units, nil
}

// GreaterThanOrEqual returns true if this Money is greater than or equal to the other
func (m Money) GreaterThanOrEqual(other Money) (bool, error) {
	if m.currency != other.currency {
		return false, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return m.units >= other.units, nil
}

// String returns a display representation such as "605.00 USD"
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Decimal().StringFixed(m.currency.Exponent()), m.currency)
}

// StringFixed returns the major-unit amount as a fixed-point string
func (m Money) StringFixed() string {
	return m.Decimal().StringFixed(m.currency.Exponent())
}

// MarshalJSON implements json.Marshaler.
// The amount is serialized as a major-unit decimal string for display;
// the persisted representation remains integer minor units (see Value).
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}{
		Amount:   m.Decimal().String(),
		Currency: m.currency,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Money) UnmarshalJSON(data []byte) error {
	var v struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	currency := v.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	parsed, err := NewMoneyFromString(v.Amount, currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value implements driver.Valuer for database storage.
// Stores the integer minor-unit count, never a floating decimal.
func (m Money) Value() (driver.Value, error) {
	return m.units, nil
}

// Scan implements sql.Scanner for database retrieval.
// Scans only the minor-unit count; currency defaults to DefaultCurrency if
// not already set, since it is stored in a separate column.
func (m *Money) Scan(value any) error {
	if value == nil {
		m.units = 0
		if m.currency == "" {
			m.currency = DefaultCurrency
		}
		return nil
	}

	switch v := value.(type) {
	case int64:
		m.units = v
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil || !d.IsInteger() {
			return fmt.Errorf("cannot scan %q into Money", string(v))
		}
		m.units = d.IntPart()
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}
	if m.currency == "" {
		m.currency = DefaultCurrency
	}
	return nil
}
