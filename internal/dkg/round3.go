package dkg

import "github.com/danmuck/frostctl/internal/protocol/wire"

// Round3Input is the full ceremony view a participant holds after round 2.
// Participants, Round1Public, Round2Public and GSKShares are index-aligned:
// position i of each belongs to the same participant. Round2Public[i] is
// the package participant i addressed to Self.
type Round3Input struct {
	Self         Identity
	Participants []Identity
	Round1Public [][]byte
	Round2Public [][]byte
	Round2Secret []byte
	GSKShares    [][]byte
}

// Round3Request is the minimized input the device needs to finish the
// ceremony. The four sequences stay index-aligned; Origin[i] is the
// position the retained entry i held in the input.
type Round3Request struct {
	Index        uint8
	Participants []Identity
	Round1Public [][]byte
	Round2Public [][]byte
	Round2Secret []byte
	GSKShares    [][]byte
	Origin       []int
}

// MinimizeRound3 locates Self among the participants and keeps only the
// entries contributed by the other participants, in their original order.
// The device recovers its own contribution from the round 2 secret package.
func MinimizeRound3(in Round3Input) (Round3Request, error) {
	n := len(in.Participants)
	if n == 0 {
		return Round3Request{}, invariant("no participants")
	}
	if n > MaxParticipants {
		return Round3Request{}, invariant("%d participants exceeds %d", n, MaxParticipants)
	}
	if len(in.Round1Public) != n || len(in.Round2Public) != n || len(in.GSKShares) != n {
		return Round3Request{}, invariant(
			"misaligned round 3 input: participants=%d round1=%d round2=%d gsk=%d",
			n, len(in.Round1Public), len(in.Round2Public), len(in.GSKShares),
		)
	}
	for i, id := range in.Participants {
		if len(id) != IdentityLen {
			return Round3Request{}, invariant("participant %d identity is %d bytes", i, len(id))
		}
	}
	self, err := indexOf(in.Participants, in.Self)
	if err != nil {
		return Round3Request{}, err
	}
	if self < 0 {
		return Round3Request{}, invariant("own identity not among participants")
	}

	out := Round3Request{
		Index:        uint8(self),
		Participants: make([]Identity, 0, n-1),
		Round1Public: make([][]byte, 0, n-1),
		Round2Public: make([][]byte, 0, n-1),
		Round2Secret: in.Round2Secret,
		GSKShares:    make([][]byte, 0, n-1),
		Origin:       make([]int, 0, n-1),
	}
	for i := 0; i < n; i++ {
		if i == self {
			continue
		}
		out.Participants = append(out.Participants, in.Participants[i])
		out.Round1Public = append(out.Round1Public, in.Round1Public[i])
		out.Round2Public = append(out.Round2Public, in.Round2Public[i])
		out.GSKShares = append(out.GSKShares, in.GSKShares[i])
		out.Origin = append(out.Origin, i)
	}
	return out, nil
}

// EncodeRound3Min lays out
// [index:1][n:1][identity:129]*n
// [n:1]([len:2][round1 public])*n
// [n:1]([len:2][round2 public])*n
// [len:2][round2 secret]
// [n:1]([len:2][gsk share])*n.
func EncodeRound3Min(req Round3Request) ([]byte, error) {
	n := len(req.Participants)
	if len(req.Round1Public) != n || len(req.Round2Public) != n || len(req.GSKShares) != n {
		return nil, invariant(
			"misaligned round 3 request: participants=%d round1=%d round2=%d gsk=%d",
			n, len(req.Round1Public), len(req.Round2Public), len(req.GSKShares),
		)
	}
	size := 2 + n*IdentityLen + 1 + 1 + wire.PrefixLen + len(req.Round2Secret) + 1
	for i := 0; i < n; i++ {
		size += 3*wire.PrefixLen + len(req.Round1Public[i]) + len(req.Round2Public[i]) + len(req.GSKShares[i])
	}
	w := wire.NewWriter(size)
	w.U8(req.Index)
	writeIdentities(w, req.Participants)
	writePrefixedList(w, req.Round1Public)
	writePrefixedList(w, req.Round2Public)
	w.Prefixed(req.Round2Secret)
	writePrefixedList(w, req.GSKShares)
	return finish(w)
}

func writePrefixedList(w *wire.Writer, items [][]byte) {
	w.Count(len(items))
	for _, it := range items {
		w.Prefixed(it)
	}
}

// DecodeRound3Min parses the EncodeRound3Min layout. Origin is not on the
// wire and is left empty.
func DecodeRound3Min(data []byte) (Round3Request, error) {
	r := wire.NewReader(data)
	var out Round3Request
	idx, err := r.U8()
	if err != nil {
		return Round3Request{}, malformed("round 3 index", err)
	}
	out.Index = idx
	n, err := r.U8()
	if err != nil {
		return Round3Request{}, malformed("round 3 participant count", err)
	}
	for i := 0; i < int(n); i++ {
		b, err := r.Take(IdentityLen)
		if err != nil {
			return Round3Request{}, malformed("round 3 participant", err)
		}
		out.Participants = append(out.Participants, Identity(b))
	}
	if out.Round1Public, err = readPrefixedList(r); err != nil {
		return Round3Request{}, malformed("round 3 round1 packages", err)
	}
	if out.Round2Public, err = readPrefixedList(r); err != nil {
		return Round3Request{}, malformed("round 3 round2 packages", err)
	}
	if out.Round2Secret, err = r.Prefixed(); err != nil {
		return Round3Request{}, malformed("round 3 secret package", err)
	}
	if out.GSKShares, err = readPrefixedList(r); err != nil {
		return Round3Request{}, malformed("round 3 gsk shares", err)
	}
	return out, nil
}

func readPrefixedList(r *wire.Reader) ([][]byte, error) {
	n, err := r.U8()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, n)
	for i := 0; i < int(n); i++ {
		b, err := r.Prefixed()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
