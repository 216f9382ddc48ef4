package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/peterldowns/testy/check"
)

func TestErrorCode(t *testing.T) {
	check.Equal(t, "", ErrorCode(nil))
	check.Equal(t, "BidTooLow", ErrorCode(ErrBidTooLow))
	check.Equal(t, "BidTooLow", ErrorCode(fmt.Errorf("bid: %w", ErrBidTooLow)))
	check.Equal(t, "StillHighestBidder", ErrorCode(ErrStillHighestBidder))
	check.Equal(t, "InsufficientBalance", ErrorCode(fmt.Errorf("escrow: %w", ErrInsufficientBalance)))
	check.Equal(t, "Internal", ErrorCode(errors.New("boom")))

	for _, e := range errorCodes {
		check.Equal(t, e.code, ErrorCode(e.err))
	}
}

func TestErrorForCode(t *testing.T) {
	for _, e := range errorCodes {
		check.True(t, errors.Is(ErrorForCode(e.code), e.err))
	}
	check.Nil(t, ErrorForCode("Internal"))
	check.Nil(t, ErrorForCode(""))
}
