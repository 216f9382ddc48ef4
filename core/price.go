package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPrice       = errors.New("invalid price")
	ErrTooManyFractionals = errors.New("too many decimal places")
)

// ParsePrice converts a human decimal string into integer units at the given
// precision: "12.34" at 2 decimals is 1234, "100" at 5 decimals is 10000000.
func ParsePrice(value string, decimals uint8) (uint64, error) {
	value = strings.TrimSpace(value)
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrInvalidPrice, value, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w %q: negative", ErrInvalidPrice, value)
	}
	if d.Exponent() < -int32(decimals) {
		return 0, fmt.Errorf("%w: %q allows %d", ErrTooManyFractionals, value, decimals)
	}

	scaled := d.Shift(int32(decimals)).BigInt()
	if !scaled.IsUint64() {
		return 0, fmt.Errorf("%w %q: exceeds u64 at %d decimals", ErrInvalidPrice, value, decimals)
	}
	return scaled.Uint64(), nil
}

// FormatPrice renders integer units at the given precision.
func FormatPrice(units uint64, decimals uint8) string {
	return decimal.NewFromUint64(units).Shift(-int32(decimals)).StringFixed(int32(decimals))
}
