package domain

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/shopspring/decimal"
)

// MinorUnitScale is the number of minor units in one major unit.
const MinorUnitScale = btcutil.SatoshiPerBitcoin

// minorUnitExp is log10(MinorUnitScale).
const minorUnitExp = 8

// ToMinorUnits converts a node-reported major amount to integer minor units,
// rounding to the nearest unit.
func ToMinorUnits(major float64) (int64, error) {
	amt, err := btcutil.NewAmount(major)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %v: %w", major, err)
	}
	return int64(amt), nil
}

// ToMajor converts minor units back to the node's fractional representation.
func ToMajor(minor int64) float64 {
	return btcutil.Amount(minor).ToBTC()
}

// ParseMajor parses a decimal major-unit string (e.g. "0.01") into minor units
// without going through floating point.
func ParseMajor(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	shifted := d.Shift(minorUnitExp)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("invalid amount %q: more than %d decimal places", s, minorUnitExp)
	}
	return shifted.IntPart(), nil
}

// FormatMajor renders minor units as a fixed-point major-unit string.
func FormatMajor(minor int64) string {
	return decimal.New(minor, -minorUnitExp).StringFixed(minorUnitExp)
}
