package fetcher

import (
	"math"
	"strconv"
)

// Price is a resolved USD price that may be absent.
// Absent is a normal outcome (unknown symbol, every provider empty) and is
// distinct from an error.
type Price struct {
	value float64
	ok    bool
}

// Absent is the Price of a symbol no provider could price
var Absent = Price{}

// Some wraps v as a present Price. NaN and infinities are not prices and
// yield Absent.
func Some(v float64) Price {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Absent
	}
	return Price{value: v, ok: true}
}

// Float64 returns the price and whether it is present
func (p Price) Float64() (float64, bool) {
	return p.value, p.ok
}

// Valid reports whether the price is present
func (p Price) Valid() bool {
	return p.ok
}

// String renders the price for terminal output
func (p Price) String() string {
	if !p.ok {
		return "n/a"
	}
	return "$" + strconv.FormatFloat(p.value, 'f', 2, 64)
}

// MarshalJSON encodes a present price as a number and Absent as null
func (p Price) MarshalJSON() ([]byte, error) {
	if !p.ok {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, p.value, 'f', -1, 64), nil
}

// UnmarshalJSON accepts a number or null
func (p *Price) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = Absent
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*p = Some(v)
	return nil
}

// FirstFinite returns the first present, finite value in vals.
// It mirrors how quote payloads expose several candidate price fields of
// which any subset may be missing.
func FirstFinite(vals ...*float64) Price {
	for _, v := range vals {
		if v == nil {
			continue
		}
		if p := Some(*v); p.Valid() {
			return p
		}
	}
	return Absent
}
