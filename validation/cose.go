package validation

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/veraison/go-cose"

	"github.com/cloudx-io/settlement/programapi"
)

// ParsePublicKeyPEM decodes the node's PEM encoded receipt key
func ParsePublicKeyPEM(publicKeyPEM string) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	if block.Type != "PUBLIC KEY" {
		return nil, fmt.Errorf("unexpected PEM block type %q", block.Type)
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	key, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not ECDSA")
	}
	return key, nil
}

// VerifyReceiptSignature verifies a COSE_Sign1 receipt against the node's
// ES256 public key. Receipts signed with any other algorithm are rejected.
func VerifyReceiptSignature(raw programapi.ReceiptCOSE, publicKeyPEM string) error {
	key, err := ParsePublicKeyPEM(publicKeyPEM)
	if err != nil {
		return err
	}

	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(raw); err != nil {
		return fmt.Errorf("parse COSE_Sign1: %w", err)
	}

	alg, err := msg.Headers.Protected.Algorithm()
	if err != nil {
		return fmt.Errorf("read COSE algorithm: %w", err)
	}
	if alg != cose.AlgorithmES256 {
		return fmt.Errorf("unexpected COSE algorithm %s, want %s", alg, programapi.ReceiptAlgorithm)
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmES256, key)
	if err != nil {
		return fmt.Errorf("create verifier: %w", err)
	}

	if err := msg.Verify(nil, verifier); err != nil {
		return fmt.Errorf("COSE signature verification failed: %w", err)
	}
	return nil
}
