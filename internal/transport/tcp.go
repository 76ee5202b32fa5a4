package transport

import (
	"context"
	"encoding/binary"
	"io"
	"math/rand"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/frostctl/internal/logging"
	"github.com/danmuck/frostctl/internal/protocol"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	lengthPrefix = 4
	// maxReplyData bounds a reply body; a short-APDU device never sends more.
	maxReplyData = 0x10000
)

// TCP is a connection to an emulator APDU port. The connection is opened
// lazily and reopened after any I/O failure. Commands are never retried.
type TCP struct {
	addr string
	cfg  Config
	log  zerolog.Logger

	mu   sync.Mutex
	conn net.Conn
	rng  *rand.Rand
}

func NewTCP(addr string, cfg Config) *TCP {
	return &TCP{
		addr: strings.TrimSpace(addr),
		cfg:  cfg,
		log:  logging.For("transport").With().Str("addr", strings.TrimSpace(addr)).Logger(),
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (t *TCP) Addr() string {
	return t.addr
}

// Exchange writes one framed command and reads its framed reply.
func (t *TCP) Exchange(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	apdu, err := cmd.Encode()
	if err != nil {
		return protocol.Response{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	conn, err := t.connect(ctx)
	if err != nil {
		return protocol.Response{}, err
	}
	resp, err := roundTrip(conn, apdu, t.cfg)
	if err != nil {
		t.log.Warn().Err(err).Msg("dropping connection")
		_ = conn.Close()
		t.conn = nil
		return protocol.Response{}, err
	}
	return resp, nil
}

func (t *TCP) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

func (t *TCP) connect(ctx context.Context) (net.Conn, error) {
	if t.conn != nil {
		return t.conn, nil
	}
	if t.addr == "" {
		return nil, errors.New("transport: device addr required")
	}
	attempts := max(t.cfg.DialAttempts, 1)
	dialer := net.Dialer{Timeout: t.cfg.DialTimeout}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err := dialer.DialContext(ctx, "tcp", t.addr)
		if err == nil {
			t.log.Debug().Int("attempt", attempt).Msg("connected")
			t.conn = conn
			return conn, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		delay := NextBackoffDelay(t.cfg.Backoff, attempt, t.rng)
		t.log.Debug().Int("attempt", attempt).Dur("retry_in", delay).Err(err).Msg("dial failed")
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "transport: dial")
		case <-time.After(delay):
		}
	}
	return nil, errors.Wrapf(lastErr, "transport: dial %s after %d attempts", t.addr, attempts)
}

func roundTrip(conn net.Conn, apdu []byte, cfg Config) (protocol.Response, error) {
	frame := make([]byte, lengthPrefix+len(apdu))
	binary.BigEndian.PutUint32(frame, uint32(len(apdu)))
	copy(frame[lengthPrefix:], apdu)
	if cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
	}
	if _, err := conn.Write(frame); err != nil {
		return protocol.Response{}, errors.Wrap(err, "transport: write apdu")
	}

	if cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	}
	var head [lengthPrefix]byte
	if _, err := io.ReadFull(conn, head[:]); err != nil {
		return protocol.Response{}, errors.Wrap(err, "transport: read reply length")
	}
	n := binary.BigEndian.Uint32(head[:])
	if n > maxReplyData {
		return protocol.Response{}, errors.Errorf("transport: reply length %d exceeds %d", n, maxReplyData)
	}
	body := make([]byte, int(n)+protocol.StatusLen)
	if _, err := io.ReadFull(conn, body); err != nil {
		return protocol.Response{}, errors.Wrap(err, "transport: read reply body")
	}
	return protocol.ParseResponse(body)
}
