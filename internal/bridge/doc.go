// Package bridge exposes one device over HTTP.
//
// The device is a single-owner resource: the bridge holds the only
// driver and runs requests against it one at a time. Read-only routes are
// always mounted; ceremony-mutating routes only when write is enabled.
package bridge
