package dkg

import (
	"fmt"
	"strings"
)

const (
	IdentityVersionLen = 1
	KeyLen             = 32
	SignatureLen       = 64
	// IdentityLen is version + verification key + encryption key + signature.
	IdentityLen        = IdentityVersionLen + KeyLen + KeyLen + SignatureLen
	TxHashLen          = 32
	MaxParticipants    = 0xff
)

// RoundPackage is the pair the device emits after round 1 or round 2.
// Secret stays on this participant's path; Public is broadcast.
type RoundPackage struct {
	Secret []byte
	Public []byte
}

// KeyType selects which key material GET_KEYS returns.
type KeyType uint8

const (
	PublicAddress      KeyType = 0x00
	ViewKey            KeyType = 0x01
	ProofGenerationKey KeyType = 0x02
)

func (k KeyType) String() string {
	switch k {
	case PublicAddress:
		return "address"
	case ViewKey:
		return "view"
	case ProofGenerationKey:
		return "proof"
	default:
		return fmt.Sprintf("keytype(0x%02x)", uint8(k))
	}
}

// ParseKeyType accepts the names used on the command line and in URLs.
func ParseKeyType(raw string) (KeyType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "address", "public-address", "public_address", "0":
		return PublicAddress, nil
	case "view", "view-key", "view_key", "1":
		return ViewKey, nil
	case "proof", "proof-generation-key", "proof_generation_key", "pgk", "2":
		return ProofGenerationKey, nil
	default:
		return 0, fmt.Errorf("dkg: unknown key type %q", raw)
	}
}

// Keys is the decoded GET_KEYS result. Only the fields of Type are set.
type Keys struct {
	Type          KeyType
	PublicAddress []byte
	ViewKey       []byte
	IVK           []byte
	OVK           []byte
	AK            []byte
	NSK           []byte
}

// Version is the application version reported by the device.
type Version struct {
	TestMode bool
	Major    uint16
	Minor    uint16
	Patch    uint16
	Locked   bool
	TargetID uint32
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}
