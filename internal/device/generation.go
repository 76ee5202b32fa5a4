package device

import (
	"fmt"
	"strings"

	"github.com/danmuck/frostctl/internal/protocol"
	"github.com/danmuck/frostctl/internal/protocol/chunk"
)

// Op names one ceremony step. It doubles as the metrics label.
type Op string

const (
	OpVersion       Op = "version"
	OpKeys          Op = "keys"
	OpSign          Op = "sign"
	OpIdentity      Op = "dkg.identity"
	OpIdentities    Op = "dkg.identities"
	OpRound1        Op = "dkg.round1"
	OpRound2        Op = "dkg.round2"
	OpRound3        Op = "dkg.round3"
	OpCommitments   Op = "dkg.commitments"
	OpNonces        Op = "dkg.nonces"
	OpDkgSign       Op = "dkg.sign"
	OpDkgKeys       Op = "dkg.keys"
	OpPublicPackage Op = "dkg.public_package"
	OpBackupKeys    Op = "dkg.backup_keys"
	OpRestoreKeys   Op = "dkg.restore_keys"
	OpReviewTx      Op = "review_tx"
	OpGetResult     Op = "get_result"
)

// regular ops run under the base application class; everything else is
// a DKG-mode instruction.
func (o Op) regular() bool {
	switch o {
	case OpVersion, OpKeys, OpSign:
		return true
	default:
		return false
	}
}

// Paging selects how multi-frame results are retrieved.
type Paging int

const (
	// PagingLegacy re-issues the instruction while responses fill a frame.
	PagingLegacy Paging = iota
	// PagingCount reads a page count and issues GET_RESULT per page.
	PagingCount
)

func (p Paging) String() string {
	switch p {
	case PagingLegacy:
		return "legacy"
	case PagingCount:
		return "count"
	default:
		return fmt.Sprintf("paging(%d)", int(p))
	}
}

const (
	// P2Default is the reserved p2 value of chunked sends.
	P2Default byte = 0x00

	p1OnlyRetrieve byte = 0x00
	p1ShowOnDevice byte = 0x01
)

// Generation is everything that differs between firmware generations.
// One driver serves every generation; pick a preset or build your own.
type Generation struct {
	Name         string
	CLA          byte
	DkgCLA       byte
	Instructions map[Op]byte
	ChunkSize    int
	MaxFrame     int
	ContextPath  string
	PathLengths  []int
	Paging       Paging
	// Indexed generations prefix round 1 and identity requests with the
	// participant index.
	Indexed bool
}

// Legacy is the first firmware generation: identity and round 1 only,
// length-heuristic paging, caller path as the first chunk.
func Legacy() Generation {
	return Generation{
		Name:   "legacy",
		CLA:    0x59,
		DkgCLA: 0x59,
		Instructions: map[Op]byte{
			OpVersion:  0x00,
			OpKeys:     0x01,
			OpSign:     0x02,
			OpIdentity: 0x10,
			OpRound1:   0x11,
		},
		ChunkSize:   chunk.DefaultSize,
		MaxFrame:    chunk.LegacyMaxFrame,
		ContextPath: "m/44'/1338'/0'",
		PathLengths: chunk.DefaultPathLengths,
		Paging:      PagingLegacy,
	}
}

// Paged is the current firmware generation: full DKG command surface,
// fixed dummy context, explicit page counts.
func Paged() Generation {
	return Generation{
		Name:   "paged",
		CLA:    0x59,
		DkgCLA: 0x63,
		Instructions: map[Op]byte{
			OpVersion:       0x00,
			OpKeys:          0x01,
			OpSign:          0x02,
			OpIdentity:      0x10,
			OpRound1:        0x11,
			OpRound2:        0x12,
			OpRound3:        0x13,
			OpCommitments:   0x14,
			OpDkgSign:       0x15,
			OpDkgKeys:       0x16,
			OpNonces:        0x17,
			OpPublicPackage: 0x18,
			OpBackupKeys:    0x19,
			OpRestoreKeys:   0x1a,
			OpGetResult:     0x1b,
			OpIdentities:    0x1c,
			OpReviewTx:      0x1d,
		},
		ChunkSize:   chunk.DefaultSize,
		MaxFrame:    chunk.LegacyMaxFrame,
		ContextPath: "m/44'/1338'/0'",
		PathLengths: chunk.DefaultPathLengths,
		Paging:      PagingCount,
		Indexed:     true,
	}
}

// GenerationByName resolves a preset.
func GenerationByName(name string) (Generation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "legacy", "v0":
		return Legacy(), nil
	case "", "paged", "v1":
		return Paged(), nil
	default:
		return Generation{}, fmt.Errorf("device: unknown generation %q", name)
	}
}

func (g Generation) Validate() error {
	if g.ChunkSize <= 0 || g.ChunkSize > protocol.MaxCommandData {
		return fmt.Errorf("device: chunk size %d out of range (0,%d]", g.ChunkSize, protocol.MaxCommandData)
	}
	if g.Paging == PagingLegacy && g.MaxFrame <= protocol.StatusLen {
		return fmt.Errorf("device: legacy paging needs max frame > %d", protocol.StatusLen)
	}
	if g.Paging == PagingCount {
		if _, ok := g.Instructions[OpGetResult]; !ok {
			return fmt.Errorf("device: count paging needs a %s instruction", OpGetResult)
		}
	}
	if len(g.Instructions) == 0 {
		return fmt.Errorf("device: generation %q has no instructions", g.Name)
	}
	return nil
}

// Supports reports whether the generation has an instruction for op.
func (g Generation) Supports(op Op) bool {
	_, ok := g.Instructions[op]
	return ok
}

func (g Generation) command(op Op, p1, p2 byte, data []byte) (protocol.Command, error) {
	ins, ok := g.Instructions[op]
	if !ok {
		return protocol.Command{}, fmt.Errorf("%w: %s on %s", protocol.ErrUnsupported, op, g.Name)
	}
	cla := g.DkgCLA
	if op.regular() {
		cla = g.CLA
	}
	return protocol.Command{CLA: cla, INS: ins, P1: p1, P2: p2, Data: data}, nil
}
