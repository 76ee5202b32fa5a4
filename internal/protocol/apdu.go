package protocol

import (
	"encoding/binary"
	"fmt"
)

const (
	// CommandHeaderLen is CLA, INS, P1, P2 and the one-byte Lc.
	CommandHeaderLen = 5
	// MaxCommandData is the short-APDU payload ceiling.
	MaxCommandData   = 255
	// StatusLen is the trailing status word carried by every response.
	StatusLen        = 2
)

// Command is one class/instruction/parameter addressed request.
type Command struct {
	CLA  byte
	INS  byte
	P1   byte
	P2   byte
	Data []byte
}

// Response is one device reply split into payload and status word.
type Response struct {
	Data   []byte
	Status Status
}

// Encode serializes c as a short APDU.
func (c Command) Encode() ([]byte, error) {
	if len(c.Data) > MaxCommandData {
		return nil, fmt.Errorf("%w: command data %d bytes", ErrPayloadTooLarge, len(c.Data))
	}
	buf := make([]byte, CommandHeaderLen+len(c.Data))
	buf[0] = c.CLA
	buf[1] = c.INS
	buf[2] = c.P1
	buf[3] = c.P2
	buf[4] = byte(len(c.Data))
	copy(buf[CommandHeaderLen:], c.Data)
	return buf, nil
}

func (c Command) String() string {
	return fmt.Sprintf("cla=0x%02x ins=0x%02x p1=0x%02x p2=0x%02x lc=%d", c.CLA, c.INS, c.P1, c.P2, len(c.Data))
}

// DecodeCommand parses a short APDU produced by Encode.
func DecodeCommand(b []byte) (Command, error) {
	if len(b) < CommandHeaderLen {
		return Command{}, fmt.Errorf("%w: apdu header %d bytes", ErrMalformedResponse, len(b))
	}
	lc := int(b[4])
	if len(b)-CommandHeaderLen != lc {
		return Command{}, fmt.Errorf("%w: apdu lc=%d body=%d", ErrMalformedResponse, lc, len(b)-CommandHeaderLen)
	}
	data := make([]byte, lc)
	copy(data, b[CommandHeaderLen:])
	return Command{CLA: b[0], INS: b[1], P1: b[2], P2: b[3], Data: data}, nil
}

// ParseResponse splits a raw reply into payload and trailing status word.
func ParseResponse(raw []byte) (Response, error) {
	if len(raw) < StatusLen {
		return Response{}, fmt.Errorf("%w: response %d bytes", ErrMalformedResponse, len(raw))
	}
	n := len(raw) - StatusLen
	data := make([]byte, n)
	copy(data, raw[:n])
	return Response{
		Data:   data,
		Status: Status(binary.BigEndian.Uint16(raw[n:])),
	}, nil
}

// Raw re-joins payload and status word.
func (r Response) Raw() []byte {
	buf := make([]byte, len(r.Data)+StatusLen)
	copy(buf, r.Data)
	binary.BigEndian.PutUint16(buf[len(r.Data):], uint16(r.Status))
	return buf
}

// Len is the on-the-wire length including the status word.
func (r Response) Len() int {
	return len(r.Data) + StatusLen
}

// Err returns nil for a success status, a *StatusError otherwise.
func (r Response) Err() error {
	if r.Status == StatusOK {
		return nil
	}
	return NewStatusError(r.Status, r.Data)
}
