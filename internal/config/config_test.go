package config

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filippo.io/edwards25519"
	"github.com/danmuck/frostctl/internal/dkg"
	"github.com/danmuck/frostctl/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityHex(seed byte) string {
	id := []byte{0x72}
	id = append(id, edwards25519.NewGeneratorPoint().Bytes()...)
	id = append(id, bytes.Repeat([]byte{seed}, dkg.KeyLen+dkg.SignatureLen)...)
	return hex.EncodeToString(id)
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadBridgeConfigDefaults(t *testing.T) {
	testlog.Start(t)
	cfg, err := LoadBridgeConfig(writeFile(t, "bridge.toml", `cors_origins = ["http://localhost:3000"]`))
	require.NoError(t, err)
	assert.Equal(t, "frostctl", cfg.Name)
	assert.Equal(t, "127.0.0.1:9400", cfg.Addr)
	assert.False(t, cfg.Write)
}

func TestValidateBridgeConfigRejectsEmptyOrigin(t *testing.T) {
	testlog.Start(t)
	err := ValidateBridgeConfig(BridgeConfig{Name: "x", Addr: ":1", CorsOrigins: []string{" "}})
	assert.Error(t, err)
}

func TestTemplatesParse(t *testing.T) {
	testlog.Start(t)
	for _, kind := range []string{"bridge", "ceremony"} {
		path := filepath.Join(t.TempDir(), kind+".toml")
		require.NoError(t, WriteTemplate(path, kind, false))
		require.Error(t, WriteTemplate(path, kind, false), "refuses to overwrite")
		require.NoError(t, WriteTemplate(path, kind, true))
	}
	_, err := Template("nope")
	assert.Error(t, err)
	tpl, err := Template("device")
	require.NoError(t, err)
	assert.Contains(t, tpl, "generation")
}

func TestCeremonyRoundTripAndRound3Input(t *testing.T) {
	testlog.Start(t)
	c := Ceremony{
		Index:        1,
		MinSigners:   2,
		Self:         identityHex(2),
		Participants: []string{identityHex(1), identityHex(2), identityHex(3)},
		Round1Public: []string{"a0", "a1", "a2"},
		Round1Secret: "0xcafe",
		Round2Public: []string{"b0", "b1", "b2"},
		Round2Secret: "cc",
		GSKShares:    []string{"d0", "d1", "d2"},
	}
	path := filepath.Join(t.TempDir(), "ceremony.toml")
	require.NoError(t, SaveCeremony(path, c))
	loaded, err := LoadCeremony(path)
	require.NoError(t, err)
	assert.Equal(t, c.Index, loaded.Index)
	assert.Equal(t, c.MinSigners, loaded.MinSigners)
	assert.Equal(t, c.Participants, loaded.Participants)
	assert.Equal(t, c.GSKShares, loaded.GSKShares)

	in, err := loaded.Round3Input()
	require.NoError(t, err)
	assert.Len(t, in.Participants, 3)
	assert.True(t, in.Self.Equal(in.Participants[1]))
	assert.Equal(t, []byte{0xcc}, in.Round2Secret)

	req, err := dkg.MinimizeRound3(in)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), req.Index)

	public, secret, err := loaded.Round2Packages()
	require.NoError(t, err)
	assert.Len(t, public, 3)
	assert.Equal(t, []byte{0xca, 0xfe}, secret)
}

func TestValidateCeremonyShape(t *testing.T) {
	testlog.Start(t)
	ids := []string{identityHex(1), identityHex(2)}
	assert.Error(t, ValidateCeremony(Ceremony{Index: 2, Participants: ids}))
	assert.Error(t, ValidateCeremony(Ceremony{MinSigners: 3, Participants: ids}))
	assert.Error(t, ValidateCeremony(Ceremony{Participants: ids, GSKShares: []string{"00"}}))
	assert.NoError(t, ValidateCeremony(Ceremony{Participants: ids, MinSigners: 2}))
}

func TestCeremonySigningInputs(t *testing.T) {
	testlog.Start(t)
	c := Ceremony{
		TxHash:         strings.Repeat("ab", dkg.TxHashLen),
		PKRandomness:   "01",
		SigningPackage: "0203",
		Nonces:         "04",
	}
	h, err := c.TxHashBytes()
	require.NoError(t, err)
	assert.Len(t, h, dkg.TxHashLen)

	pk, pkg, nonces, err := c.SigningInputs()
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, pk)
	assert.Equal(t, []byte{2, 3}, pkg)
	assert.Equal(t, []byte{4}, nonces)

	c.TxHash = "abcd"
	_, err = c.TxHashBytes()
	assert.Error(t, err)
	c.Nonces = "zz"
	_, _, _, err = c.SigningInputs()
	assert.Error(t, err)
}
