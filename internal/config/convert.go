package config

import (
	"fmt"

	"github.com/danmuck/frostctl/internal/dkg"
)

// Identities decodes the participant list.
func (c Ceremony) Identities() ([]dkg.Identity, error) {
	ids, err := dkg.ParseIdentities(c.Participants)
	if err != nil {
		return nil, fmt.Errorf("participants: %w", err)
	}
	return ids, nil
}

// SignerIdentities decodes the signing subset, defaulting to every participant.
func (c Ceremony) SignerIdentities() ([]dkg.Identity, error) {
	if len(c.Signers) == 0 {
		return c.Identities()
	}
	ids, err := dkg.ParseIdentities(c.Signers)
	if err != nil {
		return nil, fmt.Errorf("signers: %w", err)
	}
	return ids, nil
}

// Round2Packages returns every participant's round 1 public package in
// participant order plus this participant's round 1 secret.
func (c Ceremony) Round2Packages() ([][]byte, []byte, error) {
	public, err := dkg.ParseHexList(c.Round1Public)
	if err != nil {
		return nil, nil, fmt.Errorf("round1_public: %w", err)
	}
	if len(public) == 0 {
		return nil, nil, fmt.Errorf("round1_public is empty")
	}
	secret, err := dkg.ParseHex(c.Round1Secret)
	if err != nil {
		return nil, nil, fmt.Errorf("round1_secret: %w", err)
	}
	return public, secret, nil
}

// Round3Input assembles the full round 3 view.
func (c Ceremony) Round3Input() (dkg.Round3Input, error) {
	var in dkg.Round3Input
	var err error
	if in.Self, err = dkg.ParseIdentity(c.Self); err != nil {
		return dkg.Round3Input{}, fmt.Errorf("self: %w", err)
	}
	if in.Participants, err = c.Identities(); err != nil {
		return dkg.Round3Input{}, err
	}
	if in.Round1Public, err = dkg.ParseHexList(c.Round1Public); err != nil {
		return dkg.Round3Input{}, fmt.Errorf("round1_public: %w", err)
	}
	if in.Round2Public, err = dkg.ParseHexList(c.Round2Public); err != nil {
		return dkg.Round3Input{}, fmt.Errorf("round2_public: %w", err)
	}
	if in.Round2Secret, err = dkg.ParseHex(c.Round2Secret); err != nil {
		return dkg.Round3Input{}, fmt.Errorf("round2_secret: %w", err)
	}
	if in.GSKShares, err = dkg.ParseHexList(c.GSKShares); err != nil {
		return dkg.Round3Input{}, fmt.Errorf("gsk_shares: %w", err)
	}
	return in, nil
}

// SigningInputs returns pk randomness, signing package and nonces.
func (c Ceremony) SigningInputs() ([]byte, []byte, []byte, error) {
	fields := []struct {
		name string
		raw  string
	}{
		{"pk_randomness", c.PKRandomness},
		{"signing_package", c.SigningPackage},
		{"nonces", c.Nonces},
	}
	out := make([][]byte, len(fields))
	for i, f := range fields {
		b, err := dkg.ParseHex(f.raw)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%s: %w", f.name, err)
		}
		out[i] = b
	}
	return out[0], out[1], out[2], nil
}

// TxHashBytes decodes the 32-byte transaction hash.
func (c Ceremony) TxHashBytes() ([]byte, error) {
	h, err := dkg.ParseHex(c.TxHash)
	if err != nil {
		return nil, fmt.Errorf("tx_hash: %w", err)
	}
	if len(h) != dkg.TxHashLen {
		return nil, fmt.Errorf("tx_hash is %d bytes, want %d", len(h), dkg.TxHashLen)
	}
	return h, nil
}
