package chunk

import (
	"encoding/binary"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

const hardened = 0x80000000

// DefaultPathLengths are the component counts the device accepts.
var DefaultPathLengths = []int{3}

// SerializePath encodes a derivation path such as m/44'/1338'/0' as
// little-endian uint32 components with the hardened bit applied.
func SerializePath(path string, accepted []int) ([]byte, error) {
	raw := strings.TrimSpace(path)
	if !strings.HasPrefix(raw, "m/") {
		return nil, fmt.Errorf("%w: %q must start with m/", ErrPath, path)
	}
	parts := strings.Split(raw[2:], "/")
	if len(accepted) > 0 && !slices.Contains(accepted, len(parts)) {
		return nil, fmt.Errorf("%w: %q has %d components, accepted %v", ErrPath, path, len(parts), accepted)
	}
	buf := make([]byte, 4*len(parts))
	for i, part := range parts {
		var bit uint32
		if strings.HasSuffix(part, "'") || strings.HasSuffix(part, "h") {
			bit = hardened
			part = part[:len(part)-1]
		}
		v, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: component %d of %q: %v", ErrPath, i, path, err)
		}
		if v >= hardened {
			return nil, fmt.Errorf("%w: component %d of %q out of range", ErrPath, i, path)
		}
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(v)|bit)
	}
	return buf, nil
}
