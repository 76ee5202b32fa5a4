package protocol

import (
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/frostctl/internal/testutil/testlog"
)

func TestDescriptionKnownAppStatus(t *testing.T) {
	testlog.Start(t)
	if got := Description(0xb004); got != "Tx too long" {
		t.Fatalf("unexpected description: %q", got)
	}
	if got := Description(StatusOK); got != "No errors" {
		t.Fatalf("unexpected description: %q", got)
	}
}

func TestDescriptionUnknownStatusFallsBack(t *testing.T) {
	testlog.Start(t)
	if got := Description(0xffff); got != UnknownDescription {
		t.Fatalf("unexpected description: %q", got)
	}
	if Status(0xffff).Known() {
		t.Fatalf("0xffff must not be a known status")
	}
	err := Response{Status: 0xffff}.Err()
	if err == nil || !strings.Contains(err.Error(), "0xffff") {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestResponseErrSuccessIsNil(t *testing.T) {
	testlog.Start(t)
	if err := (Response{Data: []byte{1}, Status: StatusOK}).Err(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestStatusErrorCarriesDiagnosticForPayloadErrors(t *testing.T) {
	testlog.Start(t)
	err := Response{Data: []byte("bad index\x00\x01"), Status: StatusDataIsInvalid}.Err()
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %T", err)
	}
	if se.Diagnostic != "bad index" {
		t.Fatalf("unexpected diagnostic: %q", se.Diagnostic)
	}
	if !strings.Contains(se.Error(), "Data is invalid : bad index") {
		t.Fatalf("unexpected message: %q", se.Error())
	}
	if !errors.Is(err, ErrDeviceStatus) {
		t.Fatalf("status errors must match ErrDeviceStatus")
	}
	if !IsStatus(err, StatusDataIsInvalid) {
		t.Fatalf("IsStatus mismatch")
	}
}

func TestStatusErrorIgnoresBodyForOtherStatuses(t *testing.T) {
	testlog.Start(t)
	err := NewStatusError(StatusTxWrongLength, []byte("ignored"))
	if err.Diagnostic != "" {
		t.Fatalf("unexpected diagnostic: %q", err.Diagnostic)
	}
}
