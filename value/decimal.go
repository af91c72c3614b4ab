package value

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// decimalContext is the shared arbitrary-precision context used for every
// Decimal operation. FHIRPath decimal equality must tolerate precision
// differences rather than compare host floats bit-for-bit (spec.md §9),
// so arithmetic always goes through apd rather than float64.
var decimalContext = apd.BaseContext.WithPrecision(34)

// Decimal is a FHIRPath decimal value backed by an arbitrary-precision
// coefficient, grounded on lschmierer-fhirpath-lab-go's dependency on
// github.com/cockroachdb/apd/v3 for the same FHIR decimal primitive.
type Decimal struct {
	d apd.Decimal
}

func (Decimal) Kind() Kind       { return KindDecimal }
func (d Decimal) String() string { return d.d.Text('f') }

// NewDecimal parses a decimal literal's lexeme (spec.md §6: `[0-9]+\.[0-9]+`).
func NewDecimal(lexeme string) (Decimal, error) {
	var d Decimal
	_, _, err := d.d.SetString(lexeme)
	if err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal %q: %w", lexeme, err)
	}
	return d, nil
}

// DecimalFromInt64 builds a Decimal equal to an integer, used for
// integer/decimal promotion in arithmetic.
func DecimalFromInt64(i int64) Decimal {
	var d Decimal
	d.d.SetInt64(i)
	return d
}

// DecimalFromFloat64 builds a Decimal from a float64, used only when
// ingesting JSON numeric literals (value.FromJSON).
func DecimalFromFloat64(f float64) (Decimal, error) {
	var d Decimal
	_, err := d.d.SetFloat64(f)
	if err != nil {
		return Decimal{}, err
	}
	return d, nil
}

func binaryOp(op func(z, a, b *apd.Decimal) (apd.Condition, error), a, b Decimal) (Decimal, error) {
	var z Decimal
	_, err := op(&z.d, &a.d, &b.d)
	if err != nil {
		return Decimal{}, err
	}
	return z, nil
}

// Add returns a+b.
func (a Decimal) Add(b Decimal) (Decimal, error) {
	return binaryOp(decimalContext.Add, a, b)
}

// Sub returns a-b.
func (a Decimal) Sub(b Decimal) (Decimal, error) {
	return binaryOp(decimalContext.Sub, a, b)
}

// Mul returns a*b.
func (a Decimal) Mul(b Decimal) (Decimal, error) {
	return binaryOp(decimalContext.Mul, a, b)
}

// Div returns a/b, or (Decimal{}, true, nil) if b is zero — division by
// zero yields empty per spec.md §4.E, not an error.
func (a Decimal) Div(b Decimal) (result Decimal, isZero bool, err error) {
	if b.d.IsZero() {
		return Decimal{}, true, nil
	}
	var z Decimal
	_, err = decimalContext.Quo(&z.d, &a.d, &b.d)
	return z, false, err
}

// IntDiv implements FHIRPath's truncating `div` operator.
func (a Decimal) IntDiv(b Decimal) (result Decimal, isZero bool, err error) {
	if b.d.IsZero() {
		return Decimal{}, true, nil
	}
	var z Decimal
	_, err = decimalContext.QuoInteger(&z.d, &a.d, &b.d)
	return z, false, err
}

// Mod implements FHIRPath's `mod` operator: the remainder shares the
// dividend's sign (spec.md §4.E).
func (a Decimal) Mod(b Decimal) (result Decimal, isZero bool, err error) {
	if b.d.IsZero() {
		return Decimal{}, true, nil
	}
	var z Decimal
	_, err = decimalContext.Rem(&z.d, &a.d, &b.d)
	return z, false, err
}

// Neg returns -a.
func (a Decimal) Neg() Decimal {
	var z Decimal
	decimalContext.Neg(&z.d, &a.d)
	return z
}

// Cmp returns -1, 0, or 1 comparing a to b.
func (a Decimal) Cmp(b Decimal) int {
	return a.d.Cmp(&b.d)
}

// Int64 returns a as an int64; it fails if a has a fractional part or
// does not fit in an int64.
func (a Decimal) Int64() (int64, error) {
	return a.d.Int64()
}

// Sqrt, Ln, Log, Exp, Power, Round, Truncate, Ceiling, Floor, Abs back the
// math function family (spec.md §4.E).
func (a Decimal) Sqrt() (Decimal, error) {
	var z Decimal
	_, err := decimalContext.Sqrt(&z.d, &a.d)
	return z, err
}

func (a Decimal) Ln() (Decimal, error) {
	var z Decimal
	_, err := decimalContext.Ln(&z.d, &a.d)
	return z, err
}

func (a Decimal) Log(base Decimal) (Decimal, error) {
	var num, den Decimal
	if _, err := decimalContext.Ln(&num.d, &a.d); err != nil {
		return Decimal{}, err
	}
	if _, err := decimalContext.Ln(&den.d, &base.d); err != nil {
		return Decimal{}, err
	}
	result, isZero, err := num.Div(den)
	if isZero {
		return Decimal{}, fmt.Errorf("log base yields zero denominator")
	}
	return result, err
}

func (a Decimal) Power(exp Decimal) (Decimal, error) {
	var z Decimal
	_, err := decimalContext.Pow(&z.d, &a.d, &exp.d)
	return z, err
}

func (a Decimal) Exp() (Decimal, error) {
	var z Decimal
	_, err := decimalContext.Exp(&z.d, &a.d)
	return z, err
}

func (a Decimal) Round(places int32) (Decimal, error) {
	var z Decimal
	ctx := decimalContext.WithPrecision(decimalContext.Precision)
	_, err := ctx.Quantize(&z.d, &a.d, -places)
	return z, err
}

func (a Decimal) Truncate() (Decimal, error) {
	// FHIRPath truncate drops the fractional part toward zero.
	var z Decimal
	ctx := decimalContext.WithPrecision(decimalContext.Precision)
	ctx.Rounding = apd.RoundDown
	_, err := ctx.RoundToIntegralValue(&z.d, &a.d)
	return z, err
}

func (a Decimal) Ceiling() (Decimal, error) {
	var z Decimal
	ctx := decimalContext.WithPrecision(decimalContext.Precision)
	ctx.Rounding = apd.RoundCeiling
	_, err := ctx.RoundToIntegralValue(&z.d, &a.d)
	return z, err
}

func (a Decimal) Floor() (Decimal, error) {
	var z Decimal
	ctx := decimalContext.WithPrecision(decimalContext.Precision)
	ctx.Rounding = apd.RoundFloor
	_, err := ctx.RoundToIntegralValue(&z.d, &a.d)
	return z, err
}

func (a Decimal) Abs() Decimal {
	var z Decimal
	decimalContext.Abs(&z.d, &a.d)
	return z
}

func (a Decimal) IsNegative() bool {
	return a.d.Negative && !a.d.IsZero()
}
