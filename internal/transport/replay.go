package transport

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/danmuck/frostctl/internal/protocol"
	"github.com/pkg/errors"
)

// ErrScriptExhausted is returned once every scripted step has been consumed.
var ErrScriptExhausted = errors.New("transport: replay script exhausted")

// Step is one scripted reply. When Expect is set the incoming command must
// match it exactly.
type Step struct {
	Expect   *protocol.Command
	Response protocol.Response
	Err      error
}

// Reply scripts a data+status reply.
func Reply(status protocol.Status, data ...byte) Step {
	return Step{Response: protocol.Response{Data: data, Status: status}}
}

// OK scripts a success reply carrying data.
func OK(data ...byte) Step {
	return Reply(protocol.StatusOK, data...)
}

// Fail scripts a transport-level failure.
func Fail(err error) Step {
	return Step{Err: err}
}

// Replay is a scripted Transport. It is safe for concurrent use.
type Replay struct {
	mu    sync.Mutex
	steps []Step
	pos   int
	sent  []protocol.Command
}

func NewReplay(steps ...Step) *Replay {
	return &Replay{steps: steps}
}

func (r *Replay) Exchange(_ context.Context, cmd protocol.Command) (protocol.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, cloneCommand(cmd))
	if r.pos >= len(r.steps) {
		return protocol.Response{}, errors.Wrapf(ErrScriptExhausted, "command %d (%s)", len(r.sent), cmd)
	}
	step := r.steps[r.pos]
	r.pos++
	if step.Expect != nil && !sameCommand(*step.Expect, cmd) {
		return protocol.Response{}, fmt.Errorf("transport: replay step %d expected %s, got %s", r.pos, *step.Expect, cmd)
	}
	if step.Err != nil {
		return protocol.Response{}, step.Err
	}
	return protocol.Response{
		Data:   append([]byte(nil), step.Response.Data...),
		Status: step.Response.Status,
	}, nil
}

// Sent returns a copy of every command received so far.
func (r *Replay) Sent() []protocol.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]protocol.Command, len(r.sent))
	copy(out, r.sent)
	return out
}

// Remaining is the number of unconsumed steps.
func (r *Replay) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.steps) - r.pos
}

func cloneCommand(c protocol.Command) protocol.Command {
	c.Data = append([]byte(nil), c.Data...)
	return c
}

func sameCommand(a, b protocol.Command) bool {
	return a.CLA == b.CLA && a.INS == b.INS && a.P1 == b.P1 && a.P2 == b.P2 && bytes.Equal(a.Data, b.Data)
}
