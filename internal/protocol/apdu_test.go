package protocol

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/frostctl/internal/testutil/testlog"
)

func TestCommandEncodeDecodeRoundTrip(t *testing.T) {
	testlog.Start(t)
	in := Command{CLA: 0x63, INS: 0x11, P1: 0x02, P2: 0x00, Data: []byte{1, 2, 3}}
	b, err := in.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(b, []byte{0x63, 0x11, 0x02, 0x00, 0x03, 1, 2, 3}) {
		t.Fatalf("unexpected apdu: %x", b)
	}
	out, err := DecodeCommand(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.CLA != in.CLA || out.INS != in.INS || out.P1 != in.P1 || !bytes.Equal(out.Data, in.Data) {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestCommandEncodeRejectsOversizedData(t *testing.T) {
	testlog.Start(t)
	_, err := Command{Data: make([]byte, MaxCommandData+1)}.Encode()
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestDecodeCommandLcMismatch(t *testing.T) {
	testlog.Start(t)
	_, err := DecodeCommand([]byte{0x59, 0x00, 0x00, 0x00, 0x04, 0x01})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestParseResponseSplitsStatus(t *testing.T) {
	testlog.Start(t)
	resp, err := ParseResponse([]byte{0xde, 0xad, 0x90, 0x00})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if resp.Status != StatusOK || !bytes.Equal(resp.Data, []byte{0xde, 0xad}) {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Len() != 4 || !bytes.Equal(resp.Raw(), []byte{0xde, 0xad, 0x90, 0x00}) {
		t.Fatalf("raw mismatch: %x", resp.Raw())
	}
}

func TestParseResponseTooShort(t *testing.T) {
	testlog.Start(t)
	if _, err := ParseResponse([]byte{0x90}); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}
