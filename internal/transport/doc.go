// Package transport carries APDU commands to a device.
//
// TCP speaks the emulator APDU port framing:
// - request: [len:4][apdu]
// - reply:   [len:4][data][sw:2], len counts data only
//
// Replay answers from a fixed script and records what it was sent; it
// stands in for a device in tests and dry runs.
package transport
