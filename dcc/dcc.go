// Package dcc implements DCC subsystem: CHAT (a symmetric
// line stream opened out-of-band from the server) and SEND (file transfer,
// in upload and download roles, with ACK-based flow control and
// RESUME/ACCEPT recovery). The connection-manager shape -- a registry of
// in-flight transfers keyed by an opaque id, each driven by its own
// goroutine that posts results back rather than blocking a shared loop --
// follows the same worker-posts-back-to-io-task pattern requires
// of the Connection's own blocking operations.
package dcc

import (
	"time"

	"github.com/google/uuid"
)

// ID identifies one DCC session (a CHAT or a SEND), independent of the
// model's monotonic buffer/message id space -- per domain
// stack wiring, backed by github.com/google/uuid rather than a second
// sequential counter, since DCC ids are exchanged in log lines and must
// stay stable across a model restart that would reset a counter.
type ID = uuid.UUID

// NewID generates a fresh DCC session id.
func NewID() ID {
	return uuid.New()
}

// PacketSize is the nominal fragment size for DCC SEND transfers (
// "fragment the file into packets (10 KiB nominal)").
const PacketSize = 10 * 1024

// InactivityTimeout closes a DCC connection that has seen no traffic for
// this long ( "a 5-minute inactivity timer closes idle DCC
// connections").
const InactivityTimeout = 5 * time.Minute

// SpeedSampleInterval is the tick period for the transfer-speed ring buffer.
const SpeedSampleInterval = 1 * time.Second

// SpeedRingSize is the number of samples kept for averaging (
// "records deltas of bytes_transferred into a 10-slot ring").
const SpeedRingSize = 10

// Role distinguishes which side of a DCC session this value represents.
type Role int

const (
	// RoleOffer is the side that opened a listener and sent the CTCP offer
	// (a CHAT "Listen" or a SEND "Upload").
	RoleOffer Role = iota
	// RoleAccept is the side that received a CTCP offer and dials out to it
	// (a CHAT accept or a SEND "Download").
	RoleAccept
)
