// Package chunk splits payloads into transport-bounded frames tagged with
// position markers, and reassembles multi-page device results.
package chunk

import (
	"errors"
	"fmt"
)

const (
	// DefaultSize is the payload bytes carried by one chunk.
	DefaultSize = 250
	// LegacyMaxFrame is the raw response length that signals more pages
	// under the legacy paging heuristic.
	LegacyMaxFrame = 255
)

var (
	ErrChunkSize = errors.New("chunk: size must be positive")
	ErrPath      = errors.New("chunk: invalid derivation path")
)

// Marker is the p1 position tag of one chunk.
type Marker byte

const (
	MarkerInit Marker = 0x00
	MarkerAdd  Marker = 0x01
	MarkerLast Marker = 0x02
)

func (m Marker) String() string {
	switch m {
	case MarkerInit:
		return "init"
	case MarkerAdd:
		return "add"
	case MarkerLast:
		return "last"
	default:
		return fmt.Sprintf("marker(0x%02x)", byte(m))
	}
}

// Chunk is one frame of a logical payload. Index is 1-based.
type Chunk struct {
	Index  int
	Count  int
	Marker Marker
	Data   []byte
}

// MarkerFor derives the position marker of chunk index (1-based) out of
// count. The last chunk is always LAST, even when it is also the first.
func MarkerFor(index, count int) Marker {
	if index == count {
		return MarkerLast
	}
	if index == 1 {
		return MarkerInit
	}
	return MarkerAdd
}

// Split cuts payload into consecutive slices of at most size bytes. An
// empty payload yields one empty slice so a marker still reaches the device.
func Split(payload []byte, size int) ([][]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrChunkSize, size)
	}
	if len(payload) == 0 {
		return [][]byte{{}}, nil
	}
	out := make([][]byte, 0, (len(payload)+size-1)/size)
	for off := 0; off < len(payload); off += size {
		end := min(off+size, len(payload))
		part := make([]byte, end-off)
		copy(part, payload[off:end])
		out = append(out, part)
	}
	return out, nil
}

// Plan lays out one logical send: the context (serialized path) travels
// alone in the first chunk, followed by the payload split at size. With a
// context the sequence always has at least two chunks, so INIT and LAST
// are separate frames.
func Plan(context, payload []byte, size int) ([]Chunk, error) {
	if len(context) > size {
		return nil, fmt.Errorf("%w: context %d bytes exceeds chunk size %d", ErrChunkSize, len(context), size)
	}
	parts, err := Split(payload, size)
	if err != nil {
		return nil, err
	}
	if len(context) > 0 {
		ctxPart := make([]byte, len(context))
		copy(ctxPart, context)
		parts = append([][]byte{ctxPart}, parts...)
	}
	count := len(parts)
	out := make([]Chunk, count)
	for i, p := range parts {
		out[i] = Chunk{
			Index:  i + 1,
			Count:  count,
			Marker: MarkerFor(i+1, count),
			Data:   p,
		}
	}
	return out, nil
}

// Join concatenates chunk payloads back into one buffer.
func Join(parts [][]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Payload joins the payload chunks of a plan, skipping the leading context.
func Payload(chunks []Chunk, withContext bool) []byte {
	parts := make([][]byte, 0, len(chunks))
	for i, c := range chunks {
		if withContext && i == 0 {
			continue
		}
		parts = append(parts, c.Data)
	}
	return Join(parts)
}
