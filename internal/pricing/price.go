// Package pricing interprets catalog display prices.
//
// Display prices are free text ("$1,999", "$300/mo", "Contact for pricing"). The parse is a
// best-effort textual heuristic: every character other than a digit or '.' is dropped and
// the longest numeric prefix of what remains is read. No currency or locale awareness.
// Checkout routing depends on this exact behaviour, so it must not be made smarter.
package pricing

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var onDemandSentinels = map[string]struct{}{
	"n/a":                 {},
	"na":                  {},
	"contact for pricing": {},
	"contact micro-ip":    {},
	"price on request":    {},
	"on demand":           {},
	"—":                   {},
	"-":                   {},
	"":                    {},
}

// ParseDisplayPrice returns the numeric value of raw. ok is false when no number can be
// read, which callers treat like NaN.
func ParseDisplayPrice(raw string) (decimal.Decimal, bool) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	prefix := numericPrefix(b.String())
	if prefix == "" {
		return decimal.Zero, false
	}
	value, err := decimal.NewFromString(prefix)
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}

// numericPrefix keeps digits up to and including the first '.', then digits after it.
// A lone "." has no digits and yields "".
func numericPrefix(s string) string {
	end := 0
	digits := 0
	seenDot := false
	for end < len(s) {
		c := s[end]
		if c == '.' {
			if seenDot {
				break
			}
			seenDot = true
			end++
			continue
		}
		digits++
		end++
	}
	if digits == 0 {
		return ""
	}
	out := strings.TrimSuffix(s[:end], ".")
	if strings.HasPrefix(out, ".") {
		out = "0" + out
	}
	return out
}

// IsOnDemandText reports whether raw is one of the known "ask us" sentinels.
func IsOnDemandText(raw string) bool {
	_, ok := onDemandSentinels[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}

// IsOnDemand reports whether raw has no usable price: a sentinel, nothing numeric, or zero.
func IsOnDemand(raw string) bool {
	if IsOnDemandText(raw) {
		return true
	}
	value, ok := ParseDisplayPrice(raw)
	return !ok || value.IsZero()
}

// Price carries the display text next to the parsed amount. AmountCents is nil for
// on-demand prices.
type Price struct {
	AmountCents *int64 `json:"amountCents"`
	DisplayText string `json:"displayText"`
}

// FromDisplay builds the structured form of a display price.
func FromDisplay(raw string) Price {
	p := Price{DisplayText: raw}
	if IsOnDemand(raw) {
		return p
	}
	value, _ := ParseDisplayPrice(raw)
	if cents, ok := ToMinorUnits(value); ok {
		p.AmountCents = &cents
	}
	return p
}

var (
	maxMinorUnits = decimal.NewFromInt(math.MaxInt64)
	minMinorUnits = decimal.NewFromInt(math.MinInt64)
)

// ToMinorUnits converts a major-unit amount to integer minor units, rounding half up.
// ok is false when the result does not fit in an int64.
func ToMinorUnits(amount decimal.Decimal) (int64, bool) {
	minor := amount.Shift(2).Round(0)
	if minor.GreaterThan(maxMinorUnits) || minor.LessThan(minMinorUnits) {
		return 0, false
	}
	return minor.IntPart(), true
}
