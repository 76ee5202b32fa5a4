// Package dkg owns the byte layouts of the key-generation ceremony and
// threshold-signing exchange: request serializers, response
// deserializers, and the participant data model they carry.
//
// Every multi-byte integer is big-endian. Variable-length values are either
// a fixed per-element width (identities) or carried behind a 16-bit length.
//
// Inputs that break a layout invariant fail with
// protocol.ErrInvariantViolation; device output that does not fit its
// layout fails with protocol.ErrMalformedResponse.
package dkg
