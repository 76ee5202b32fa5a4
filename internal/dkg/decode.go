package dkg

import (
	"encoding/binary"
	"fmt"

	"github.com/danmuck/frostctl/internal/protocol"
	"github.com/danmuck/frostctl/internal/protocol/wire"
)

func malformed(what string, err error) error {
	return fmt.Errorf("%w: %s: %v", protocol.ErrMalformedResponse, what, err)
}

func decodeRoundPackage(what string, data []byte) (RoundPackage, error) {
	r := wire.NewReader(data)
	secret, err := r.Prefixed()
	if err != nil {
		return RoundPackage{}, malformed(what+" secret package", err)
	}
	public, err := r.Prefixed()
	if err != nil {
		return RoundPackage{}, malformed(what+" public package", err)
	}
	return RoundPackage{Secret: secret, Public: public}, nil
}

// DecodeRound1 parses [secret_len:2][secret][public_len:2][public].
func DecodeRound1(data []byte) (RoundPackage, error) {
	return decodeRoundPackage("round 1", data)
}

// DecodeRound2 shares the round 1 layout.
func DecodeRound2(data []byte) (RoundPackage, error) {
	return decodeRoundPackage("round 2", data)
}

// DecodeIdentity expects exactly one identity.
func DecodeIdentity(data []byte) (Identity, error) {
	if len(data) != IdentityLen {
		return nil, fmt.Errorf("%w: identity is %d bytes, want %d", protocol.ErrMalformedResponse, len(data), IdentityLen)
	}
	out := make(Identity, IdentityLen)
	copy(out, data)
	return out, nil
}

// DecodeIdentities splits data into consecutive fixed-width identities.
func DecodeIdentities(data []byte) ([]Identity, error) {
	if len(data)%IdentityLen != 0 {
		return nil, fmt.Errorf("%w: identity list is %d bytes, not a multiple of %d", protocol.ErrMalformedResponse, len(data), IdentityLen)
	}
	r := wire.NewReader(data)
	out := make([]Identity, 0, len(data)/IdentityLen)
	for r.Remaining() > 0 {
		b, err := r.Take(IdentityLen)
		if err != nil {
			return nil, malformed("identity list", err)
		}
		out = append(out, Identity(b))
	}
	return out, nil
}

// DecodeTxHash reads the 32-byte hash the device computes on review.
func DecodeTxHash(data []byte) ([]byte, error) {
	b, err := wire.NewReader(data).Take(TxHashLen)
	if err != nil {
		return nil, malformed("tx hash", err)
	}
	return b, nil
}

// DecodeSignature accepts a bare 64-byte signature or one wrapped in a
// length-prefixed envelope.
func DecodeSignature(data []byte) ([]byte, error) {
	if len(data) == SignatureLen {
		out := make([]byte, SignatureLen)
		copy(out, data)
		return out, nil
	}
	r := wire.NewReader(data)
	sig, err := r.Prefixed()
	if err != nil {
		return nil, malformed("signature envelope", err)
	}
	if len(sig) == 0 {
		return nil, fmt.Errorf("%w: empty signature", protocol.ErrMalformedResponse)
	}
	return sig, nil
}

// DecodeKeys parses GET_KEYS output for the requested key type.
func DecodeKeys(keyType KeyType, data []byte) (Keys, error) {
	r := wire.NewReader(data)
	out := Keys{Type: keyType}
	var err error
	take := func(n int) []byte {
		if err != nil {
			return nil
		}
		var b []byte
		b, err = r.Take(n)
		return b
	}
	switch keyType {
	case PublicAddress:
		out.PublicAddress = take(KeyLen)
	case ViewKey:
		out.ViewKey = take(2 * KeyLen)
		out.IVK = take(KeyLen)
		out.OVK = take(KeyLen)
	case ProofGenerationKey:
		out.AK = take(KeyLen)
		out.NSK = take(KeyLen)
	default:
		return Keys{}, fmt.Errorf("%w: %s", protocol.ErrInvariantViolation, keyType)
	}
	if err != nil {
		return Keys{}, malformed(keyType.String()+" keys", err)
	}
	return out, nil
}

// DecodeVersion parses GET_VERSION output. Newer firmware reports
// two-byte version components; older firmware one byte each.
func DecodeVersion(data []byte) (Version, error) {
	switch {
	case len(data) >= 12:
		return Version{
			TestMode: data[0] != 0,
			Major:    binary.BigEndian.Uint16(data[1:3]),
			Minor:    binary.BigEndian.Uint16(data[3:5]),
			Patch:    binary.BigEndian.Uint16(data[5:7]),
			Locked:   data[7] == 1,
			TargetID: binary.BigEndian.Uint32(data[8:12]),
		}, nil
	case len(data) >= 5:
		v := Version{
			TestMode: data[0] != 0,
			Major:    uint16(data[1]),
			Minor:    uint16(data[2]),
			Patch:    uint16(data[3]),
			Locked:   data[4] == 1,
		}
		if len(data) >= 9 {
			v.TargetID = binary.BigEndian.Uint32(data[5:9])
		}
		return v, nil
	default:
		return Version{}, fmt.Errorf("%w: version is %d bytes", protocol.ErrMalformedResponse, len(data))
	}
}
