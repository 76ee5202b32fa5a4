package dkg

import (
	"fmt"

	"github.com/danmuck/frostctl/internal/protocol"
	"github.com/danmuck/frostctl/internal/protocol/wire"
)

func invariant(format string, args ...any) error {
	return fmt.Errorf("%w: %s", protocol.ErrInvariantViolation, fmt.Sprintf(format, args...))
}

func finish(w *wire.Writer) ([]byte, error) {
	b, err := w.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", protocol.ErrInvariantViolation, err)
	}
	return b, nil
}

func writeIdentities(w *wire.Writer, ids []Identity) {
	w.Count(len(ids))
	for _, id := range ids {
		w.Fixed(id, IdentityLen)
	}
}

func checkCeremony(index int, n int, minSigners int) error {
	if n == 0 {
		return invariant("no identities")
	}
	if n > MaxParticipants {
		return invariant("%d identities exceeds %d", n, MaxParticipants)
	}
	if index < 0 || index >= n {
		return invariant("participant index %d out of range [0,%d)", index, n)
	}
	if minSigners < 1 || minSigners > n {
		return invariant("min signers %d out of range [1,%d]", minSigners, n)
	}
	return nil
}

// EncodeIdentityRequest selects which identity slot the device returns.
func EncodeIdentityRequest(index uint8) []byte {
	return []byte{index}
}

// EncodeRound1 lays out
// [index:1][n:1][identity:129]*n[min_signers:1].
func EncodeRound1(index uint8, identities []Identity, minSigners uint8) ([]byte, error) {
	if err := checkCeremony(int(index), len(identities), int(minSigners)); err != nil {
		return nil, err
	}
	w := wire.NewWriter(3 + len(identities)*IdentityLen)
	w.U8(index)
	writeIdentities(w, identities)
	w.U8(minSigners)
	return finish(w)
}

// EncodeLegacyRound1 is the index-less layout of the first firmware
// generation: [n:1][identity:129]*n[min_signers:1].
func EncodeLegacyRound1(identities []Identity, minSigners uint8) ([]byte, error) {
	if err := checkCeremony(0, len(identities), int(minSigners)); err != nil {
		return nil, err
	}
	w := wire.NewWriter(2 + len(identities)*IdentityLen)
	writeIdentities(w, identities)
	w.U8(minSigners)
	return finish(w)
}

// EncodeRound2 lays out
// [index:1][n:1][width:2][public:width]*n[secret_len:2][secret].
// Every round 1 public package must share the width of the first.
func EncodeRound2(index uint8, publicPackages [][]byte, secretPackage []byte) ([]byte, error) {
	n := len(publicPackages)
	if n == 0 {
		return nil, invariant("no round 1 public packages")
	}
	if n > MaxParticipants {
		return nil, invariant("%d public packages exceeds %d", n, MaxParticipants)
	}
	width := len(publicPackages[0])
	if width > wire.MaxPrefixed {
		return nil, invariant("public package width %d exceeds %d", width, wire.MaxPrefixed)
	}
	for i, p := range publicPackages {
		if len(p) != width {
			return nil, invariant("public package %d is %d bytes, package 0 is %d", i, len(p), width)
		}
	}
	w := wire.NewWriter(6 + n*width + len(secretPackage))
	w.U8(index)
	w.Count(n)
	w.U16(uint16(width))
	for _, p := range publicPackages {
		w.Fixed(p, width)
	}
	w.Prefixed(secretPackage)
	return finish(w)
}

// EncodeCommitmentsRequest lays out [n:1][identity:129]*n[tx_hash:32].
// Nonce requests share the layout.
func EncodeCommitmentsRequest(identities []Identity, txHash []byte) ([]byte, error) {
	if len(identities) == 0 {
		return nil, invariant("no identities")
	}
	if len(txHash) != TxHashLen {
		return nil, invariant("tx hash is %d bytes, want %d", len(txHash), TxHashLen)
	}
	w := wire.NewWriter(1 + len(identities)*IdentityLen + TxHashLen)
	writeIdentities(w, identities)
	w.Fixed(txHash, TxHashLen)
	return finish(w)
}

// EncodeSignRequest lays out three length-prefixed blobs:
// [len:2][pk_randomness][len:2][signing_package][len:2][nonces].
func EncodeSignRequest(pkRandomness, signingPackage, nonces []byte) ([]byte, error) {
	w := wire.NewWriter(3*wire.PrefixLen + len(pkRandomness) + len(signingPackage) + len(nonces))
	w.Prefixed(pkRandomness)
	w.Prefixed(signingPackage)
	w.Prefixed(nonces)
	return finish(w)
}

// EncodeRoundPackage is the inverse of DecodeRound1/DecodeRound2:
// [secret_len:2][secret][public_len:2][public].
func EncodeRoundPackage(pkg RoundPackage) ([]byte, error) {
	w := wire.NewWriter(2*wire.PrefixLen + len(pkg.Secret) + len(pkg.Public))
	w.Prefixed(pkg.Secret)
	w.Prefixed(pkg.Public)
	return finish(w)
}

// EncodeRestoreRequest carries an encrypted key backup as produced by the
// device's backup command.
func EncodeRestoreRequest(encryptedKeys []byte) ([]byte, error) {
	if len(encryptedKeys) == 0 {
		return nil, invariant("empty key backup")
	}
	return append([]byte(nil), encryptedKeys...), nil
}

// EncodeReviewRequest carries a serialized unsigned transaction for review.
func EncodeReviewRequest(tx []byte) ([]byte, error) {
	if len(tx) == 0 {
		return nil, invariant("empty transaction")
	}
	return append([]byte(nil), tx...), nil
}
