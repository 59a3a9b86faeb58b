// Package precision derives quantity rounding rules from exchange symbol
// metadata. Everything here is pure arithmetic; callers validate minimum
// notional separately.
package precision

import (
	"strings"

	"github.com/shopspring/decimal"

	"tempo/internal/gateway/exchange"
)

const defaultQuantityPrecision = 8

// Spec is the resolved rounding rule set for one symbol.
type Spec struct {
	StepSize          float64
	MinQty            float64
	MaxQty            float64
	QuantityPrecision int
	PricePrecision    int
}

// Resolve computes the rounding spec from raw exchange metadata. Filter
// values arrive as strings (e.g. "0.00100000"); unparsable or missing
// values fall back to zero step with 8-digit precision.
func Resolve(meta exchange.SymbolMetadata) Spec {
	spec := Spec{
		QuantityPrecision: QuantityPrecisionFromStep(meta.StepSize),
		PricePrecision:    meta.PricePrecision,
	}
	if spec.PricePrecision <= 0 {
		spec.PricePrecision = defaultQuantityPrecision
	}
	spec.StepSize = parseFilterValue(meta.StepSize)
	spec.MinQty = parseFilterValue(meta.MinQty)
	spec.MaxQty = parseFilterValue(meta.MaxQty)
	return spec
}

// QuantityPrecisionFromStep counts the decimal digits of a step size.
// Re-rendering through decimal normalizes both trailing zeros
// ("0.00100000" -> 3) and scientific notation ("1e-3" -> 3).
func QuantityPrecisionFromStep(step string) int {
	step = strings.TrimSpace(step)
	if step == "" {
		return defaultQuantityPrecision
	}
	d, err := decimal.NewFromString(step)
	if err != nil || d.IsZero() {
		return defaultQuantityPrecision
	}
	rendered := d.String()
	idx := strings.IndexByte(rendered, '.')
	if idx < 0 {
		return 0
	}
	return len(rendered) - idx - 1
}

// RoundQuantity floors qty to the nearest lower multiple of step. When
// flooring a positive qty would produce zero it rounds up to one full step
// instead, then rounds to precision digits. A zero step rounds to precision
// digits only.
func RoundQuantity(qty, step float64, precision int) float64 {
	if qty <= 0 {
		return 0
	}
	if precision < 0 {
		precision = 0
	}
	q := decimal.NewFromFloat(qty)
	if step <= 0 {
		out, _ := q.Round(int32(precision)).Float64()
		return out
	}
	s := decimal.NewFromFloat(step)
	rounded := q.Div(s).Floor().Mul(s)
	if rounded.Sign() <= 0 {
		rounded = q.Div(s).Ceil().Mul(s)
	}
	out, _ := rounded.Round(int32(precision)).Float64()
	return out
}

func parseFilterValue(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}
