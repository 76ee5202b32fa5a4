package dkg

import (
	"bytes"
	"testing"

	"filippo.io/edwards25519"
	"github.com/stretchr/testify/require"
)

// testIdentity builds a well-formed identity whose verification key is
// seed*G, so it passes Validate.
func testIdentity(t *testing.T, seed byte) Identity {
	t.Helper()
	wide := bytes.Repeat([]byte{seed}, 64)
	s, err := edwards25519.NewScalar().SetUniformBytes(wide)
	require.NoError(t, err)
	vk := new(edwards25519.Point).ScalarBaseMult(s).Bytes()

	id := make(Identity, 0, IdentityLen)
	id = append(id, 0x72)
	id = append(id, vk...)
	id = append(id, bytes.Repeat([]byte{seed ^ 0x5a}, KeyLen)...)
	id = append(id, bytes.Repeat([]byte{seed}, SignatureLen)...)
	require.Len(t, id, IdentityLen)
	return id
}

func testIdentities(t *testing.T, n int) []Identity {
	t.Helper()
	out := make([]Identity, n)
	for i := range out {
		out[i] = testIdentity(t, byte(i+1))
	}
	return out
}
