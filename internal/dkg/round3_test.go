package dkg

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/danmuck/frostctl/internal/protocol"
	"github.com/danmuck/frostctl/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func round3Fixture(t *testing.T, n, self int) Round3Input {
	t.Helper()
	ids := testIdentities(t, n)
	in := Round3Input{
		Self:         ids[self],
		Participants: ids,
		Round2Secret: []byte("round2-secret"),
	}
	for i := 0; i < n; i++ {
		in.Round1Public = append(in.Round1Public, []byte(fmt.Sprintf("r1-from-%d", i)))
		in.Round2Public = append(in.Round2Public, []byte(fmt.Sprintf("r2-from-%d-to-%d", i, self)))
		in.GSKShares = append(in.GSKShares, bytes.Repeat([]byte{byte(i)}, 32))
	}
	return in
}

func TestMinimizeRound3PreservesAlignment(t *testing.T) {
	testlog.Start(t)
	for _, n := range []int{2, 3, 5} {
		for self := 0; self < n; self++ {
			in := round3Fixture(t, n, self)
			out, err := MinimizeRound3(in)
			require.NoError(t, err)

			assert.Equal(t, uint8(self), out.Index)
			require.Len(t, out.Participants, n-1)
			require.Len(t, out.Round1Public, n-1)
			require.Len(t, out.Round2Public, n-1)
			require.Len(t, out.GSKShares, n-1)
			require.Len(t, out.Origin, n-1)

			for i, orig := range out.Origin {
				assert.NotEqual(t, self, orig)
				assert.True(t, in.Participants[orig].Equal(out.Participants[i]))
				assert.Equal(t, in.Round1Public[orig], out.Round1Public[i])
				assert.Equal(t, in.Round2Public[orig], out.Round2Public[i])
				assert.Equal(t, in.GSKShares[orig], out.GSKShares[i])
				if i > 0 {
					assert.Greater(t, orig, out.Origin[i-1], "original order must be kept")
				}
			}
		}
	}
}

func TestMinimizeRound3RejectsMisalignedInput(t *testing.T) {
	testlog.Start(t)
	in := round3Fixture(t, 3, 0)
	in.GSKShares = in.GSKShares[:2]
	_, err := MinimizeRound3(in)
	require.ErrorIs(t, err, protocol.ErrInvariantViolation)
}

func TestMinimizeRound3RejectsUnknownSelf(t *testing.T) {
	testlog.Start(t)
	in := round3Fixture(t, 3, 0)
	in.Self = testIdentity(t, 0x77)
	_, err := MinimizeRound3(in)
	require.ErrorIs(t, err, protocol.ErrInvariantViolation)
}

func TestMinimizeRound3RejectsDuplicateIdentity(t *testing.T) {
	testlog.Start(t)
	in := round3Fixture(t, 3, 0)
	in.Participants[2] = in.Participants[0]
	_, err := MinimizeRound3(in)
	require.ErrorIs(t, err, protocol.ErrInvariantViolation)
}

func TestEncodeRound3MinRoundTrip(t *testing.T) {
	testlog.Start(t)
	req, err := MinimizeRound3(round3Fixture(t, 4, 2))
	require.NoError(t, err)
	b, err := EncodeRound3Min(req)
	require.NoError(t, err)

	assert.Equal(t, byte(2), b[0])
	assert.Equal(t, byte(3), b[1])

	out, err := DecodeRound3Min(b)
	require.NoError(t, err)
	assert.Equal(t, req.Index, out.Index)
	require.Len(t, out.Participants, 3)
	for i := range req.Participants {
		assert.True(t, req.Participants[i].Equal(out.Participants[i]))
	}
	assert.Equal(t, req.Round1Public, out.Round1Public)
	assert.Equal(t, req.Round2Public, out.Round2Public)
	assert.Equal(t, req.Round2Secret, out.Round2Secret)
	assert.Equal(t, req.GSKShares, out.GSKShares)
}

func TestEncodeRound3MinRejectsMisalignedRequest(t *testing.T) {
	testlog.Start(t)
	req, err := MinimizeRound3(round3Fixture(t, 3, 1))
	require.NoError(t, err)
	req.Round2Public = req.Round2Public[:1]
	_, err = EncodeRound3Min(req)
	require.ErrorIs(t, err, protocol.ErrInvariantViolation)
}

func TestDecodeRound3MinTruncated(t *testing.T) {
	testlog.Start(t)
	req, err := MinimizeRound3(round3Fixture(t, 3, 1))
	require.NoError(t, err)
	b, err := EncodeRound3Min(req)
	require.NoError(t, err)
	_, err = DecodeRound3Min(b[:len(b)-5])
	require.ErrorIs(t, err, protocol.ErrMalformedResponse)
}
