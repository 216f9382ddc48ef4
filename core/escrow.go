package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BasisPointsDenominator is the divisor for fee_bps arithmetic.
const BasisPointsDenominator = 10_000

var bpsDenominator = decimal.NewFromInt(BasisPointsDenominator)

// RequiredEscrow returns the payment-currency amount a bid of price for the
// whole lot must escrow: price * amount / 10^decimal, truncated.
//
// Example: price 3_000_000, amount 50, decimal 6 escrows 150.
func RequiredEscrow(price, amount uint64, decimals uint8) (uint64, error) {
	// Use decimal arithmetic so the intermediate product cannot overflow
	escrow := decimal.NewFromUint64(price).
		Mul(decimal.NewFromUint64(amount)).
		Shift(-int32(decimals)).
		Truncate(0)

	return toUint64(escrow, "required escrow")
}

// SplitFee splits a winning escrow between the house and the seller.
// The fee truncates toward zero, so fee + payout always equals escrow.
func SplitFee(escrow uint64, feeBps uint16) (fee, payout uint64, err error) {
	if feeBps > BasisPointsDenominator {
		return 0, 0, fmt.Errorf("%w: %d", ErrInvalidFee, feeBps)
	}

	quotient, _ := decimal.NewFromUint64(escrow).
		Mul(decimal.NewFromInt(int64(feeBps))).
		QuoRem(bpsDenominator, 0)

	fee, err = toUint64(quotient, "house fee")
	if err != nil {
		return 0, 0, err
	}
	return fee, escrow - fee, nil
}

func toUint64(d decimal.Decimal, what string) (uint64, error) {
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: negative %s %s", ErrArithmeticOverflow, what, d.String())
	}
	v := d.BigInt()
	if !v.IsUint64() {
		return 0, fmt.Errorf("%w: %s %s exceeds u64", ErrArithmeticOverflow, what, d.String())
	}
	return v.Uint64(), nil
}
