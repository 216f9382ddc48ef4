package ledger

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var ErrDiscriminatorMismatch = errors.New("account discriminator mismatch")

// Marshal encodes v as account data: the 8-byte account discriminator for
// name followed by the Borsh encoding of v.
func Marshal(name string, v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(bin.SighashAccount(name))
	if err := bin.NewBorshEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes account data written by Marshal for the same name.
func Unmarshal(name string, data []byte, v any) error {
	if len(data) < bin.ACCOUNT_DISCRIMINATOR_SIZE {
		return fmt.Errorf("failed to decode %s: %d bytes is shorter than the discriminator", name, len(data))
	}
	if !bytes.Equal(data[:bin.ACCOUNT_DISCRIMINATOR_SIZE], bin.SighashAccount(name)) {
		return fmt.Errorf("%w: expected %s", ErrDiscriminatorMismatch, name)
	}
	if err := bin.NewBorshDecoder(data[bin.ACCOUNT_DISCRIMINATOR_SIZE:]).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

// GetDecoded reads addr inside tx and decodes it as name into v.
func (tx *Tx) GetDecoded(addr solana.PublicKey, name string, v any) error {
	acct, ok := tx.Get(addr)
	if !ok {
		return fmt.Errorf("%w: %s %s", ErrAccountNotFound, name, addr)
	}
	return Unmarshal(name, acct.Data, v)
}

// PutEncoded encodes v as name and stages it at addr.
func (tx *Tx) PutEncoded(addr, owner solana.PublicKey, name string, v any) error {
	data, err := Marshal(name, v)
	if err != nil {
		return err
	}
	tx.Put(addr, owner, data)
	return nil
}
