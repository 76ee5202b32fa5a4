// Package protocol owns the device command contract.
//
// Ownership boundary:
// - APDU command encoding and response splitting
// - status code taxonomy and descriptions
// - error categories shared by the codec and the driver
//
// Layout helpers live in protocol/wire, framing in protocol/chunk.
package protocol
