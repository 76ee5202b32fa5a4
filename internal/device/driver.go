package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/frostctl/internal/logging"
	"github.com/danmuck/frostctl/internal/observability"
	"github.com/danmuck/frostctl/internal/protocol"
	"github.com/danmuck/frostctl/internal/protocol/chunk"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Transport delivers one command and returns the device reply. It owns
// timeouts; a Driver never abandons a command it has handed over.
type Transport interface {
	Exchange(ctx context.Context, cmd protocol.Command) (protocol.Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, cmd protocol.Command) (protocol.Response, error)

func (f TransportFunc) Exchange(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	return f(ctx, cmd)
}

type Option func(*Driver)

func WithLogger(logger zerolog.Logger) Option {
	return func(d *Driver) {
		d.log = logger
	}
}

// WithPath overrides the generation's context path.
func WithPath(path string) Option {
	return func(d *Driver) {
		d.path = path
	}
}

// Driver runs ceremony steps over a Transport for one protocol generation.
type Driver struct {
	gen       Generation
	transport Transport
	path      string
	context   []byte
	log       zerolog.Logger

	busy atomic.Bool

	mu    sync.Mutex
	state State
	last  string
}

func New(transport Transport, gen Generation, opts ...Option) (*Driver, error) {
	if transport == nil {
		return nil, errors.New("device: nil transport")
	}
	if err := gen.Validate(); err != nil {
		return nil, err
	}
	d := &Driver{
		gen:       gen,
		transport: transport,
		path:      gen.ContextPath,
		log:       logging.For("device"),
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(d)
	}
	ctxBytes, err := chunk.SerializePath(d.path, gen.PathLengths)
	if err != nil {
		return nil, err
	}
	d.context = ctxBytes
	d.log = d.log.With().Str("generation", gen.Name).Logger()
	return d, nil
}

func (d *Driver) Generation() Generation {
	return d.gen
}

// State reports the state of the current or most recent exchange.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// LastExchangeID is the correlation id of the current or most recent exchange.
func (d *Driver) LastExchangeID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

func (d *Driver) begin(ctx context.Context, op Op) (*exchange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !d.busy.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%w: %s while another exchange is in flight", protocol.ErrIllegalTransition, op)
	}
	x := &exchange{
		id:      uuid.NewString(),
		op:      op,
		state:   StateIdle,
		started: time.Now(),
	}
	d.mu.Lock()
	d.state = x.state
	d.last = x.id
	d.mu.Unlock()
	return x, nil
}

func (d *Driver) move(x *exchange, next State) error {
	if err := x.to(next); err != nil {
		return err
	}
	d.mu.Lock()
	d.state = next
	d.mu.Unlock()
	return nil
}

func (d *Driver) end(x *exchange, err error) {
	if err != nil {
		var se *protocol.StatusError
		if errors.As(err, &se) {
			x.status = se.Status
		}
		if !x.terminal() {
			_ = d.move(x, StateFailed)
		}
	} else if x.state != StateComplete {
		if moveErr := d.move(x, StateComplete); moveErr != nil {
			err = moveErr
		}
	}
	elapsed := time.Since(x.started)
	observability.RecordExchange(observability.Exchange{
		Op:       string(x.op),
		Chunks:   x.chunks,
		Pages:    x.pages,
		Status:   uint16(x.status),
		Failed:   err != nil,
		Duration: elapsed,
	})
	if err != nil {
		d.log.Warn().
			Str("exchange", x.id).
			Str("op", string(x.op)).
			Int("chunk", x.chunk).
			Int("chunks", x.chunks).
			Int("pages", x.pages).
			Dur("elapsed", elapsed).
			Err(err).
			Msg("exchange failed")
	} else {
		d.log.Debug().
			Str("exchange", x.id).
			Str("op", string(x.op)).
			Int("chunks", x.chunks).
			Int("pages", x.pages).
			Dur("elapsed", elapsed).
			Msg("exchange complete")
	}
	d.busy.Store(false)
}

func (d *Driver) send(ctx context.Context, x *exchange, cmd protocol.Command) (protocol.Response, error) {
	if len(cmd.Data) > protocol.MaxCommandData {
		return protocol.Response{}, fmt.Errorf("%w: %s frame %d bytes", protocol.ErrPayloadTooLarge, x.op, len(cmd.Data))
	}
	d.log.Trace().Str("exchange", x.id).Stringer("apdu", cmd).Msg("send")
	resp, err := d.transport.Exchange(ctx, cmd)
	if err != nil {
		if errors.Is(err, protocol.ErrTransport) {
			return protocol.Response{}, err
		}
		return protocol.Response{}, fmt.Errorf("%w: %s: %w", protocol.ErrTransport, x.op, err)
	}
	x.status = resp.Status
	if err := resp.Err(); err != nil {
		return protocol.Response{}, err
	}
	return resp, nil
}

// submit sends payload behind lead (a serialized path) as a marked chunk sequence
// and collects the result. The first failing chunk aborts the sequence.
func (d *Driver) submit(ctx context.Context, op Op, lead, payload []byte) (out []byte, err error) {
	if _, err := d.gen.command(op, 0, 0, nil); err != nil {
		return nil, err
	}
	chunks, err := chunk.Plan(lead, payload, d.gen.ChunkSize)
	if err != nil {
		return nil, err
	}
	x, err := d.begin(ctx, op)
	if err != nil {
		return nil, err
	}
	defer func() { d.end(x, err) }()

	x.chunks = len(chunks)
	var last protocol.Response
	for _, c := range chunks {
		if err = d.move(x, StateSending); err != nil {
			return nil, err
		}
		x.chunk = c.Index
		cmd, cmdErr := d.gen.command(op, byte(c.Marker), P2Default, c.Data)
		if cmdErr != nil {
			return nil, cmdErr
		}
		last, err = d.send(ctx, x, cmd)
		if err != nil {
			return nil, err
		}
	}
	out, err = d.collect(ctx, x, last)
	return out, err
}

// call sends a single unchunked command and collects the result.
func (d *Driver) call(ctx context.Context, op Op, p1, p2 byte, data []byte) (out []byte, err error) {
	cmd, err := d.gen.command(op, p1, p2, data)
	if err != nil {
		return nil, err
	}
	x, err := d.begin(ctx, op)
	if err != nil {
		return nil, err
	}
	defer func() { d.end(x, err) }()

	x.chunks = 1
	x.chunk = 1
	if err = d.move(x, StateSending); err != nil {
		return nil, err
	}
	resp, err := d.send(ctx, x, cmd)
	if err != nil {
		return nil, err
	}
	out, err = d.collect(ctx, x, resp)
	return out, err
}

// paged reports whether op's result is announced as a page count.
func (d *Driver) paged(op Op) bool {
	return d.gen.Paging == PagingCount && !op.regular()
}

func (d *Driver) collect(ctx context.Context, x *exchange, last protocol.Response) ([]byte, error) {
	if d.paged(x.op) {
		count, err := chunk.PageCount(last)
		if err != nil {
			return nil, err
		}
		x.pages = count
		if count == 0 {
			return nil, nil
		}
		if err := d.move(x, StateAwaitingPages); err != nil {
			return nil, err
		}
		return chunk.CollectPaged(ctx, count, func(ctx context.Context, page int) (protocol.Response, error) {
			cmd, err := d.gen.command(OpGetResult, byte(page), P2Default, nil)
			if err != nil {
				return protocol.Response{}, err
			}
			return d.send(ctx, x, cmd)
		})
	}

	data, fetches, err := chunk.CollectLegacy(ctx, last, d.gen.MaxFrame, func(ctx context.Context, page int) (protocol.Response, error) {
		if err := d.move(x, StateAwaitingPages); err != nil {
			return protocol.Response{}, err
		}
		cmd, err := d.gen.command(x.op, byte(chunk.MarkerLast), P2Default, nil)
		if err != nil {
			return protocol.Response{}, err
		}
		return d.send(ctx, x, cmd)
	})
	x.pages = fetches
	return data, err
}
