package i2cdev

import (
	"context"
	"fmt"
)

// ErrNoAck is returned when the addressed slave does not acknowledge a byte.
var ErrNoAck = fmt.Errorf("no acknowledge received from slave")

// ErrWriteCollision is returned when the master loses the bus while
// transmitting (another master drove SDA low during a recessive bit).
var ErrWriteCollision = fmt.Errorf("write collision on the bus")

// ErrBusStuck is returned by bus implementations configured with a
// clock-stretch timeout when a line never goes high. Without a timeout
// a stuck bus blocks forever.
var ErrBusStuck = fmt.Errorf("bus line held low (stuck slave?)")

// Bus is the byte-level two-wire master contract. It maps 1:1 onto the
// physical protocol conditions: start, repeated start and stop framing,
// single byte transfers and per-byte acknowledge signalling.
//
// Calls block until the hardware completes the requested condition. A bus
// carries exactly one transaction at a time (Open ... Close); callers that
// share a bus between goroutines must serialize transactions themselves.
// Once a transaction is started it has to run to completion, otherwise the
// bus is left in an undefined state.
type Bus interface {
	// Open issues a start condition and claims the bus.
	Open(ctx context.Context) error
	// Restart issues a repeated start without an intervening stop,
	// used to turn the transfer direction around mid-transaction.
	Restart(ctx context.Context) error
	// Close issues a stop condition and releases the bus.
	Close(ctx context.Context) error
	// SendByte shifts out one byte MSB first and samples the slave
	// acknowledge on the ninth clock. Returns ErrNoAck when the slave
	// leaves the line high, ErrWriteCollision on arbitration loss.
	SendByte(ctx context.Context, b byte) error
	// ReceiveByte shifts in one byte MSB first. The acknowledge is not
	// sent here; the caller follows up with Ack or NotAck.
	ReceiveByte(ctx context.Context) (byte, error)
	// Ack tells the slave the master wants more bytes.
	Ack(ctx context.Context) error
	// NotAck tells the slave the current byte ends the burst.
	NotAck(ctx context.Context) error
}
