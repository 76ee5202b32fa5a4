package device

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/danmuck/frostctl/internal/dkg"
	"github.com/danmuck/frostctl/internal/protocol"
	"github.com/danmuck/frostctl/internal/protocol/chunk"
	"github.com/danmuck/frostctl/internal/testutil/testlog"
	"github.com/danmuck/frostctl/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeIdentity(seed byte) dkg.Identity {
	return dkg.Identity(bytes.Repeat([]byte{seed}, dkg.IdentityLen))
}

func fakeIdentities(n int) []dkg.Identity {
	out := make([]dkg.Identity, n)
	for i := range out {
		out[i] = fakeIdentity(byte(i + 1))
	}
	return out
}

func encodedPackage(t *testing.T, secretLen, publicLen int) (dkg.RoundPackage, []byte) {
	t.Helper()
	pkg := dkg.RoundPackage{
		Secret: bytes.Repeat([]byte{0x5e}, secretLen),
		Public: bytes.Repeat([]byte{0x9b}, publicLen),
	}
	raw, err := dkg.EncodeRoundPackage(pkg)
	require.NoError(t, err)
	return pkg, raw
}

func newDriver(t *testing.T, tr Transport, gen Generation) *Driver {
	t.Helper()
	d, err := New(tr, gen)
	require.NoError(t, err)
	return d
}

func TestLegacyRound1ChunksAndLengthPaging(t *testing.T) {
	testlog.Start(t)
	want, raw := encodedPackage(t, 200, 150)
	require.Len(t, raw, 354)
	page1, page2 := raw[:253], raw[253:]

	replay := transport.NewReplay(
		transport.OK(),
		transport.OK(),
		transport.OK(page1...),
		transport.OK(page2...),
	)
	d := newDriver(t, replay, Legacy())

	got, err := d.Round1(context.Background(), 0, fakeIdentities(3), 2)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, StateComplete, d.State())
	assert.NotEmpty(t, d.LastExchangeID())

	sent := replay.Sent()
	require.Len(t, sent, 4)
	markers := []byte{byte(chunk.MarkerInit), byte(chunk.MarkerAdd), byte(chunk.MarkerLast)}
	for i, m := range markers {
		assert.Equal(t, byte(0x59), sent[i].CLA)
		assert.Equal(t, byte(0x11), sent[i].INS)
		assert.Equal(t, m, sent[i].P1, "chunk %d", i+1)
		assert.Equal(t, P2Default, sent[i].P2)
	}
	path, err := chunk.SerializePath("m/44'/1338'/0'", nil)
	require.NoError(t, err)
	assert.Equal(t, path, sent[0].Data)
	assert.Len(t, sent[1].Data, 250)
	assert.Len(t, sent[2].Data, 139)
	assert.Equal(t, byte(3), sent[1].Data[0], "legacy round 1 starts with the identity count")

	fetch := sent[3]
	assert.Equal(t, byte(0x11), fetch.INS)
	assert.Equal(t, byte(chunk.MarkerLast), fetch.P1)
	assert.Empty(t, fetch.Data)
}

func TestChunkFailureStopsSequence(t *testing.T) {
	testlog.Start(t)
	replay := transport.NewReplay(
		transport.OK(),
		transport.Reply(protocol.StatusDataIsInvalid, []byte("bad identity")...),
		transport.OK(),
	)
	d := newDriver(t, replay, Legacy())

	_, err := d.Round1(context.Background(), 0, fakeIdentities(3), 2)
	require.Error(t, err)
	var se *protocol.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, protocol.StatusDataIsInvalid, se.Status)
	assert.Equal(t, "bad identity", se.Diagnostic)
	assert.ErrorIs(t, err, protocol.ErrDeviceStatus)

	assert.Len(t, replay.Sent(), 2, "no chunk after the failing one")
	assert.Equal(t, 1, replay.Remaining())
	assert.Equal(t, StateFailed, d.State())
}

func TestPagedRound2CollectsAnnouncedPages(t *testing.T) {
	testlog.Start(t)
	want, raw := encodedPackage(t, 40, 30)
	replay := transport.NewReplay(
		transport.OK(),
		transport.OK(0x02),
		transport.OK(raw[:50]...),
		transport.OK(raw[50:]...),
	)
	d := newDriver(t, replay, Paged())

	pub := [][]byte{bytes.Repeat([]byte{1}, 10), bytes.Repeat([]byte{2}, 10)}
	got, err := d.Round2(context.Background(), 1, pub, []byte{9, 9, 9, 9, 9})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	sent := replay.Sent()
	require.Len(t, sent, 4)
	assert.Equal(t, byte(0x63), sent[0].CLA)
	assert.Equal(t, byte(0x12), sent[0].INS)
	assert.Equal(t, byte(chunk.MarkerInit), sent[0].P1)
	assert.Equal(t, byte(chunk.MarkerLast), sent[1].P1)
	for page, cmd := range sent[2:] {
		assert.Equal(t, byte(0x1b), cmd.INS)
		assert.Equal(t, byte(page), cmd.P1)
		assert.Empty(t, cmd.Data)
	}
}

func TestPagedFailingPageAbortsWithoutPartialResult(t *testing.T) {
	testlog.Start(t)
	replay := transport.NewReplay(
		transport.OK(0x03),
		transport.OK(0x01, 0x02),
		transport.Reply(protocol.StatusBufferOutOfBounds),
		transport.OK(0x03),
	)
	d := newDriver(t, replay, Paged())

	out, err := d.PublicPackage(context.Background())
	require.Error(t, err)
	assert.True(t, protocol.IsStatus(err, protocol.StatusBufferOutOfBounds))
	assert.Nil(t, out)
	assert.Equal(t, StateFailed, d.State())
}

func TestPagedSingleCommandOps(t *testing.T) {
	testlog.Start(t)
	ids := fakeIdentities(2)
	joined := append(append([]byte(nil), ids[0]...), ids[1]...)
	replay := transport.NewReplay(
		transport.OK(0x02),
		transport.OK(joined[:200]...),
		transport.OK(joined[200:]...),
	)
	d := newDriver(t, replay, Paged())

	got, err := d.Identities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ids, got)
	sent := replay.Sent()
	require.Len(t, sent, 3)
	assert.Equal(t, byte(0x1c), sent[0].INS)
	assert.Empty(t, sent[0].Data)
}

func TestRound3SendsMinimizedPayload(t *testing.T) {
	testlog.Start(t)
	ids := fakeIdentities(3)
	in := dkg.Round3Input{
		Self:         ids[1],
		Participants: ids,
		Round1Public: [][]byte{{0xa0}, {0xa1}, {0xa2}},
		Round2Public: [][]byte{{0xb0}, {0xb1}, {0xb2}},
		Round2Secret: []byte{0xcc},
		GSKShares:    [][]byte{{0xd0}, {0xd1}, {0xd2}},
	}
	replay := transport.NewReplay(transport.OK(), transport.OK(), transport.OK(0x00))
	d := newDriver(t, replay, Paged())

	req, err := d.Round3(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), req.Index)
	assert.Equal(t, []int{0, 2}, req.Origin)

	sent := replay.Sent()
	require.Len(t, sent, 3)
	var payload []byte
	for _, cmd := range sent[1:] {
		assert.Equal(t, byte(0x13), cmd.INS)
		payload = append(payload, cmd.Data...)
	}
	expect, err := dkg.EncodeRound3Min(req)
	require.NoError(t, err)
	assert.Equal(t, expect, payload)
}

func TestUnsupportedInstructionSendsNothing(t *testing.T) {
	testlog.Start(t)
	replay := transport.NewReplay()
	d := newDriver(t, replay, Legacy())

	_, err := d.Round2(context.Background(), 0, [][]byte{{1}}, []byte{2})
	assert.ErrorIs(t, err, protocol.ErrUnsupported)
	_, err = d.PublicPackage(context.Background())
	assert.ErrorIs(t, err, protocol.ErrUnsupported)
	assert.Empty(t, replay.Sent())
	assert.Equal(t, StateIdle, d.State())
}

func TestTransportFailureIsTyped(t *testing.T) {
	testlog.Start(t)
	boom := errors.New("cable pulled")
	d := newDriver(t, transport.NewReplay(transport.Fail(boom)), Paged())

	_, err := d.Version(context.Background())
	assert.ErrorIs(t, err, protocol.ErrTransport)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateFailed, d.State())
}

func TestOverlappingExchangeIsRejected(t *testing.T) {
	testlog.Start(t)
	started := make(chan struct{})
	release := make(chan struct{})
	tr := TransportFunc(func(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
		close(started)
		<-release
		return protocol.Response{Data: []byte{0, 1, 2, 3, 0}, Status: protocol.StatusOK}, nil
	})
	d := newDriver(t, tr, Paged())

	done := make(chan error, 1)
	go func() {
		_, err := d.Version(context.Background())
		done <- err
	}()
	<-started
	assert.Equal(t, StateSending, d.State())

	_, err := d.Keys(context.Background(), "m/44'/1338'/0'", dkg.PublicAddress, false)
	assert.ErrorIs(t, err, protocol.ErrIllegalTransition)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateComplete, d.State())
}

func TestCancelledContextSendsNothing(t *testing.T) {
	testlog.Start(t)
	replay := transport.NewReplay(transport.OK())
	d := newDriver(t, replay, Paged())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Version(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, replay.Sent())
}

func TestVersionAndKeys(t *testing.T) {
	testlog.Start(t)
	addr := bytes.Repeat([]byte{0x42}, dkg.KeyLen)
	replay := transport.NewReplay(
		transport.OK(0x00, 0x00, 0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x33, 0x00, 0x00, 0x04),
		transport.OK(addr...),
	)
	d := newDriver(t, replay, Paged())

	v, err := d.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", v.String())
	assert.Equal(t, uint32(0x33000004), v.TargetID)

	keys, err := d.Keys(context.Background(), "m/44'/1338'/0'", dkg.PublicAddress, true)
	require.NoError(t, err)
	assert.Equal(t, addr, keys.PublicAddress)

	sent := replay.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, byte(0x59), sent[0].CLA)
	assert.Equal(t, byte(0x00), sent[0].INS)
	assert.Equal(t, byte(0x01), sent[1].INS)
	assert.Equal(t, p1ShowOnDevice, sent[1].P1)
	assert.Equal(t, byte(dkg.PublicAddress), sent[1].P2)
	assert.Len(t, sent[1].Data, 12)
}

func TestIdentityRequestShapeByGeneration(t *testing.T) {
	testlog.Start(t)
	id := fakeIdentity(7)

	legacy := transport.NewReplay(transport.OK(id...))
	got, err := newDriver(t, legacy, Legacy()).Identity(context.Background(), 4, true)
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Empty(t, legacy.Sent()[0].Data)
	assert.Equal(t, p1OnlyRetrieve, legacy.Sent()[0].P1)

	paged := transport.NewReplay(transport.OK(0x01), transport.OK(id...))
	got, err = newDriver(t, paged, Paged()).Identity(context.Background(), 4, true)
	require.NoError(t, err)
	assert.Equal(t, id, got)
	first := paged.Sent()[0]
	assert.Equal(t, byte(0x63), first.CLA)
	assert.Equal(t, []byte{4}, first.Data)
	assert.Equal(t, p1ShowOnDevice, first.P1)
}

func TestLegacySignReturnsSignature(t *testing.T) {
	testlog.Start(t)
	sig := bytes.Repeat([]byte{0x51}, dkg.SignatureLen)
	replay := transport.NewReplay(transport.OK(), transport.OK(), transport.OK(sig...))
	d := newDriver(t, replay, Legacy())

	got, err := d.Sign(context.Background(), "m/44'/1338'/0'", bytes.Repeat([]byte{1}, 300))
	require.NoError(t, err)
	assert.Equal(t, sig, got)
	assert.Len(t, replay.Sent(), 3)
}

func TestSigningStepsOnPagedGeneration(t *testing.T) {
	testlog.Start(t)
	ids := fakeIdentities(2)
	hash := bytes.Repeat([]byte{0x77}, dkg.TxHashLen)
	sig := bytes.Repeat([]byte{0x88}, dkg.SignatureLen)
	replay := transport.NewReplay(
		// review
		transport.OK(), transport.OK(0x01), transport.OK(hash...),
		// commitments
		transport.OK(), transport.OK(), transport.OK(0x01), transport.OK(0xc0, 0xc1),
		// nonces
		transport.OK(), transport.OK(), transport.OK(0x01), transport.OK(0xe0),
		// sign
		transport.OK(), transport.OK(0x01), transport.OK(sig...),
	)
	d := newDriver(t, replay, Paged())
	ctx := context.Background()

	gotHash, err := d.ReviewTx(ctx, []byte{0xfe, 0xed})
	require.NoError(t, err)
	assert.Equal(t, hash, gotHash)

	commitments, err := d.Commitments(ctx, ids, hash)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xc0, 0xc1}, commitments)

	nonces, err := d.Nonces(ctx, ids, hash)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xe0}, nonces)

	gotSig, err := d.DkgSign(ctx, []byte{1}, []byte{2}, []byte{3})
	require.NoError(t, err)
	assert.Equal(t, sig, gotSig)
	assert.Zero(t, replay.Remaining())
}

func TestBackupAndRestore(t *testing.T) {
	testlog.Start(t)
	blob := bytes.Repeat([]byte{0xb1}, 300)
	replay := transport.NewReplay(
		transport.OK(0x02), transport.OK(blob[:200]...), transport.OK(blob[200:]...),
		transport.OK(), transport.OK(), transport.OK(0x00),
	)
	d := newDriver(t, replay, Paged())
	ctx := context.Background()

	backup, err := d.BackupKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, blob, backup)
	require.NoError(t, d.RestoreKeys(ctx, backup))
	assert.Zero(t, replay.Remaining())

	assert.ErrorIs(t, d.RestoreKeys(ctx, nil), protocol.ErrInvariantViolation)
}

func TestDkgKeysSelectsKeyType(t *testing.T) {
	testlog.Start(t)
	keys := bytes.Repeat([]byte{0x31}, 2*dkg.KeyLen)
	replay := transport.NewReplay(transport.OK(0x01), transport.OK(keys...))
	d := newDriver(t, replay, Paged())

	got, err := d.DkgKeys(context.Background(), dkg.ProofGenerationKey)
	require.NoError(t, err)
	assert.Equal(t, keys[:dkg.KeyLen], got.AK)
	assert.Equal(t, keys[dkg.KeyLen:], got.NSK)
	assert.Equal(t, byte(0x16), replay.Sent()[0].INS)
	assert.Equal(t, byte(dkg.ProofGenerationKey), replay.Sent()[0].P2)
}
