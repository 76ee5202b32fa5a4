package dkg

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"filippo.io/edwards25519"

	"github.com/danmuck/frostctl/internal/protocol"
)

// Identity is a participant's ceremony credential as issued by its device:
// version byte, verification key, encryption key, signature.
type Identity []byte

func (id Identity) Version() byte {
	if len(id) != IdentityLen {
		return 0
	}
	return id[0]
}

func (id Identity) VerificationKey() []byte {
	return id.slice(IdentityVersionLen, KeyLen)
}

func (id Identity) EncryptionKey() []byte {
	return id.slice(IdentityVersionLen+KeyLen, KeyLen)
}

func (id Identity) Signature() []byte {
	return id.slice(IdentityVersionLen+2*KeyLen, SignatureLen)
}

func (id Identity) slice(off, n int) []byte {
	if len(id) != IdentityLen {
		return nil
	}
	out := make([]byte, n)
	copy(out, id[off:off+n])
	return out
}

func (id Identity) Equal(other Identity) bool {
	return bytes.Equal(id, other)
}

func (id Identity) String() string {
	return hex.EncodeToString(id)
}

// Validate checks the fixed width and that the verification key decodes
// to an edwards25519 point. It does not check the signature.
func (id Identity) Validate() error {
	if len(id) != IdentityLen {
		return fmt.Errorf("%w: identity is %d bytes, want %d", protocol.ErrInvariantViolation, len(id), IdentityLen)
	}
	if _, err := new(edwards25519.Point).SetBytes(id.VerificationKey()); err != nil {
		return fmt.Errorf("%w: identity verification key: %v", protocol.ErrInvariantViolation, err)
	}
	return nil
}

// ParseIdentity decodes and validates a hex encoded identity.
func ParseIdentity(raw string) (Identity, error) {
	b, err := ParseHex(raw)
	if err != nil {
		return nil, err
	}
	id := Identity(b)
	if err := id.Validate(); err != nil {
		return nil, err
	}
	return id, nil
}

// ParseIdentities decodes a hex list of identities in order.
func ParseIdentities(raw []string) ([]Identity, error) {
	out := make([]Identity, 0, len(raw))
	for i, r := range raw {
		id, err := ParseIdentity(r)
		if err != nil {
			return nil, fmt.Errorf("identity[%d]: %w", i, err)
		}
		out = append(out, id)
	}
	return out, nil
}

// ParseHex decodes one hex string, tolerating a 0x prefix and whitespace.
// The decoded size is half the string length.
func ParseHex(raw string) ([]byte, error) {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", protocol.ErrInvariantViolation, err)
	}
	return b, nil
}

// ParseHexList decodes each element with ParseHex.
func ParseHexList(raw []string) ([][]byte, error) {
	out := make([][]byte, 0, len(raw))
	for i, r := range raw {
		b, err := ParseHex(r)
		if err != nil {
			return nil, fmt.Errorf("element[%d]: %w", i, err)
		}
		out = append(out, b)
	}
	return out, nil
}

// indexOf returns the position of id in ids, or -1. A duplicate match is
// reported as an invariant violation since positions must be unambiguous.
func indexOf(ids []Identity, id Identity) (int, error) {
	pos := -1
	for i, cand := range ids {
		if !cand.Equal(id) {
			continue
		}
		if pos >= 0 {
			return -1, fmt.Errorf("%w: identity appears at positions %d and %d", protocol.ErrInvariantViolation, pos, i)
		}
		pos = i
	}
	return pos, nil
}
