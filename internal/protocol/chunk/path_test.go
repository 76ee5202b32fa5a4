package chunk

import (
	"bytes"
	"errors"
	"testing"
)

func TestSerializePathHardened(t *testing.T) {
	got, err := SerializePath("m/44'/1338'/0'", DefaultPathLengths)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	want := []byte{
		0x2c, 0x00, 0x00, 0x80,
		0x3a, 0x05, 0x00, 0x80,
		0x00, 0x00, 0x00, 0x80,
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got=%x want=%x", got, want)
	}
}

func TestSerializePathRejectsLength(t *testing.T) {
	if _, err := SerializePath("m/44'/1338'", DefaultPathLengths); !errors.Is(err, ErrPath) {
		t.Fatalf("expected ErrPath, got %v", err)
	}
}

func TestSerializePathRejectsGarbage(t *testing.T) {
	for _, p := range []string{"44'/1'/0'", "m/x'/1'/0'", "m/2147483648/1/0"} {
		if _, err := SerializePath(p, nil); !errors.Is(err, ErrPath) {
			t.Fatalf("%q: expected ErrPath, got %v", p, err)
		}
	}
}
