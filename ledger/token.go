package ledger

import (
	"errors"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"

	"github.com/cloudx-io/settlement/core"
)

// TokenAccountName is the discriminator name of token custody accounts.
const TokenAccountName = "TokenAccount"

var (
	ErrMintMismatch    = errors.New("token account mint mismatch")
	ErrOwnerMismatch   = errors.New("token account owner mismatch")
	ErrNonZeroBalance  = errors.New("token account balance is not zero")
	ErrNotTokenAccount = errors.New("account is not a token account")
)

// TokenAccount is a balance of one mint held for one owner. Owner may be a
// principal or a program derived record (auction vault, bid escrow).
type TokenAccount struct {
	Mint   solana.PublicKey `json:"mint"`
	Owner  solana.PublicKey `json:"owner"`
	Amount uint64           `json:"amount"`
}

// TokenAccount loads the token account at addr.
func (tx *Tx) TokenAccount(addr solana.PublicKey) (*TokenAccount, error) {
	acct, ok := tx.Get(addr)
	if !ok {
		return nil, fmt.Errorf("%w: token account %s", ErrAccountNotFound, addr)
	}
	if !acct.Owner.Equals(solana.TokenProgramID) {
		return nil, fmt.Errorf("%w: %s", ErrNotTokenAccount, addr)
	}
	var ta TokenAccount
	if err := Unmarshal(TokenAccountName, acct.Data, &ta); err != nil {
		return nil, err
	}
	return &ta, nil
}

func (tx *Tx) putTokenAccount(addr solana.PublicKey, ta *TokenAccount) error {
	return tx.PutEncoded(addr, solana.TokenProgramID, TokenAccountName, ta)
}

// CreateTokenAccount creates an empty token account at addr. It is
// idempotent: an existing account with the same mint and owner is left as is.
func (tx *Tx) CreateTokenAccount(addr, mint, owner solana.PublicKey) error {
	if tx.Exists(addr) {
		existing, err := tx.TokenAccount(addr)
		if err != nil {
			return err
		}
		if !existing.Mint.Equals(mint) {
			return fmt.Errorf("%w: %s holds %s, want %s", ErrMintMismatch, addr, existing.Mint, mint)
		}
		if !existing.Owner.Equals(owner) {
			return fmt.Errorf("%w: %s owned by %s, want %s", ErrOwnerMismatch, addr, existing.Owner, owner)
		}
		return nil
	}
	return tx.putTokenAccount(addr, &TokenAccount{Mint: mint, Owner: owner})
}

// Transfer moves amount from one token account to another of the same mint.
func (tx *Tx) Transfer(from, to solana.PublicKey, amount uint64) error {
	src, err := tx.TokenAccount(from)
	if err != nil {
		return err
	}
	dst, err := tx.TokenAccount(to)
	if err != nil {
		return err
	}
	if !src.Mint.Equals(dst.Mint) {
		return fmt.Errorf("%w: %s -> %s", ErrMintMismatch, src.Mint, dst.Mint)
	}
	if src.Amount < amount {
		return fmt.Errorf("%w: %s holds %d, need %d", core.ErrInsufficientBalance, from, src.Amount, amount)
	}
	if from.Equals(to) || amount == 0 {
		return nil
	}
	if dst.Amount > math.MaxUint64-amount {
		return fmt.Errorf("%w: crediting %d to %s", core.ErrArithmeticOverflow, amount, to)
	}

	src.Amount -= amount
	dst.Amount += amount
	if err := tx.putTokenAccount(from, src); err != nil {
		return err
	}
	return tx.putTokenAccount(to, dst)
}

// CloseTokenAccount removes an empty token account.
func (tx *Tx) CloseTokenAccount(addr solana.PublicKey) error {
	ta, err := tx.TokenAccount(addr)
	if err != nil {
		return err
	}
	if ta.Amount != 0 {
		return fmt.Errorf("%w: %s holds %d", ErrNonZeroBalance, addr, ta.Amount)
	}
	tx.Delete(addr)
	return nil
}

// Balance returns the committed balance of the token account at addr.
func (s *Store) Balance(addr solana.PublicKey) (uint64, error) {
	ta, err := s.TokenAccount(addr)
	if err != nil {
		return 0, err
	}
	return ta.Amount, nil
}

// TokenAccount returns the committed token account at addr.
func (s *Store) TokenAccount(addr solana.PublicKey) (*TokenAccount, error) {
	tx := s.Begin()
	defer tx.Discard()
	return tx.TokenAccount(addr)
}

// Fund credits amount of mint to the token account at addr, creating it for
// owner if needed. Used for genesis balances and tests.
func (s *Store) Fund(addr, mint, owner solana.PublicKey, amount uint64) error {
	for {
		tx := s.Begin()
		if err := tx.CreateTokenAccount(addr, mint, owner); err != nil {
			return err
		}
		ta, err := tx.TokenAccount(addr)
		if err != nil {
			return err
		}
		if ta.Amount > math.MaxUint64-amount {
			return fmt.Errorf("%w: funding %d to %s", core.ErrArithmeticOverflow, amount, addr)
		}
		ta.Amount += amount
		if err := tx.putTokenAccount(addr, ta); err != nil {
			return err
		}
		err = tx.Commit()
		if errors.Is(err, ErrConflict) {
			continue
		}
		return err
	}
}
