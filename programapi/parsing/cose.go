package parsing

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// COSESign1Tag is the CBOR tag of a COSE_Sign1 message.
const COSESign1Tag = 18

// ExtractCOSEPayload extracts the payload from a COSE_Sign1 4-element array
// COSE_Sign1 structure: [protected, unprotected, payload, signature]
// Accepts both tagged and untagged messages. Returns the payload bytes (element 2)
func ExtractCOSEPayload(coseBytes []byte) ([]byte, error) {
	var coseArray []any

	var tag cbor.Tag
	if err := cbor.Unmarshal(coseBytes, &tag); err == nil {
		if tag.Number != COSESign1Tag {
			return nil, fmt.Errorf("unexpected CBOR tag %d, want %d", tag.Number, COSESign1Tag)
		}
		content, ok := tag.Content.([]any)
		if !ok {
			return nil, fmt.Errorf("invalid COSE_Sign1 structure: tag content is %T", tag.Content)
		}
		coseArray = content
	} else if err := cbor.Unmarshal(coseBytes, &coseArray); err != nil {
		return nil, fmt.Errorf("parse COSE array: %w", err)
	}

	if len(coseArray) != 4 {
		return nil, fmt.Errorf("invalid COSE_Sign1 structure: expected 4 elements, got %d", len(coseArray))
	}

	payload, ok := coseArray[2].([]byte)
	if !ok {
		return nil, fmt.Errorf("invalid payload in COSE structure")
	}

	return payload, nil
}
