package core

import "errors"

// Instruction errors. Every error aborts the triggering instruction without
// committing any state.
var (
	ErrAlreadyInitialized  = errors.New("account already initialized")
	ErrInvalidEnd          = errors.New("auction end must be in the future")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBidTooLow           = errors.New("bid price must exceed the highest price")
	ErrAuctionEnded        = errors.New("auction has ended")
	ErrAuctionNotActive    = errors.New("auction is not active")
	ErrAuctionStillActive  = errors.New("auction is still active")
	ErrNoBids              = errors.New("auction has no bids")
	ErrBidsExist           = errors.New("auction has bids")
	ErrStillHighestBidder  = errors.New("bidder is still the highest bidder")
	ErrNoSuchBid           = errors.New("no bid found for bidder")

	ErrNameTooLong        = errors.New("house name must be 1 to 31 bytes")
	ErrInvalidFee         = errors.New("fee exceeds 10000 basis points")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	ErrUnauthorized       = errors.New("signer is not authorized")
	ErrHouseNotFound      = errors.New("auction house not found")
	ErrAuctionNotFound    = errors.New("auction not found")
)

// errorCodes maps each error to the stable code reported to callers.
var errorCodes = []struct {
	err  error
	code string
}{
	{ErrAlreadyInitialized, "AlreadyInitialized"},
	{ErrInvalidEnd, "InvalidEnd"},
	{ErrInsufficientBalance, "InsufficientBalance"},
	{ErrBidTooLow, "BidTooLow"},
	{ErrAuctionEnded, "AuctionEnded"},
	{ErrAuctionNotActive, "AuctionNotActive"},
	{ErrAuctionStillActive, "AuctionStillActive"},
	{ErrNoBids, "NoBids"},
	{ErrBidsExist, "BidsExist"},
	{ErrStillHighestBidder, "StillHighestBidder"},
	{ErrNoSuchBid, "NoSuchBid"},
	{ErrNameTooLong, "NameTooLong"},
	{ErrInvalidFee, "InvalidFee"},
	{ErrInvalidAmount, "InvalidAmount"},
	{ErrArithmeticOverflow, "ArithmeticOverflow"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrHouseNotFound, "HouseNotFound"},
	{ErrAuctionNotFound, "AuctionNotFound"},
}

// ErrorCode returns the stable code for err, or "Internal" when err does not
// wrap a known instruction error.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return "Internal"
}

// ErrorForCode is the inverse of ErrorCode. It returns nil for codes that do
// not name an instruction error.
func ErrorForCode(code string) error {
	for _, e := range errorCodes {
		if e.code == code {
			return e.err
		}
	}
	return nil
}
