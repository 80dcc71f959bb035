// Package bitbang implements the byte-level two-wire master contract in
// software, over any pair of open-drain capable pins. It produces the
// standard start/repeated-start/stop conditions, clocks bits MSB first
// and samples the slave acknowledge on the ninth clock, so it can drive
// register-mapped slaves through i2cdev.Registers without a hardware I2C
// peripheral.
package bitbang

import (
	"context"
	"fmt"
	"time"

	"github.com/mklimuk/i2cdev"
)

// DefaultFrequency is the bus clock used when no option overrides it.
const DefaultFrequency = 100_000

// Bus drives a two-wire bus over an SDA and an SCL pin. After releasing
// SCL the master waits for the line to actually go high, which gives
// slaves clock stretching for free; by default that wait has no timeout
// and a stuck line blocks forever, matching the usual busy-wait of
// firmware masters. WithStretchTimeout opts into a bounded wait.
//
// Bus is not safe for concurrent use; callers share it the same way they
// would share the physical bus, one transaction at a time.
type Bus struct {
	sda, scl Pin
	half     time.Duration
	stretch  time.Duration
}

type Option func(*Bus)

// WithFrequency sets the bus clock in hertz.
func WithFrequency(hz int) Option {
	return func(b *Bus) {
		b.half = time.Second / time.Duration(2*hz)
	}
}

// WithStretchTimeout bounds the clock-stretch wait. When a slave holds
// SCL low longer than d, the transaction fails with i2cdev.ErrBusStuck.
// Without it the wait only ends when the line rises or the context is
// cancelled.
func WithStretchTimeout(d time.Duration) Option {
	return func(b *Bus) {
		b.stretch = d
	}
}

func New(sda, scl Pin, opts ...Option) *Bus {
	b := &Bus{sda: sda, scl: scl}
	WithFrequency(DefaultFrequency)(b)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var _ i2cdev.Bus = &Bus{}

// Open issues a start condition: SDA falls while SCL is high.
func (b *Bus) Open(ctx context.Context) error {
	if err := b.sda.Release(); err != nil {
		return fmt.Errorf("sda: %w", err)
	}
	if err := b.releaseSCL(ctx); err != nil {
		return err
	}
	b.wait()
	if err := b.sda.PullDown(); err != nil {
		return fmt.Errorf("sda: %w", err)
	}
	b.wait()
	if err := b.scl.PullDown(); err != nil {
		return fmt.Errorf("scl: %w", err)
	}
	return nil
}

// Restart issues a repeated start: the lines are brought back high
// without a stop condition, then a start follows.
func (b *Bus) Restart(ctx context.Context) error {
	if err := b.sda.Release(); err != nil {
		return fmt.Errorf("sda: %w", err)
	}
	b.wait()
	if err := b.releaseSCL(ctx); err != nil {
		return err
	}
	b.wait()
	if err := b.sda.PullDown(); err != nil {
		return fmt.Errorf("sda: %w", err)
	}
	b.wait()
	if err := b.scl.PullDown(); err != nil {
		return fmt.Errorf("scl: %w", err)
	}
	return nil
}

// Close issues a stop condition: SDA rises while SCL is high, leaving
// both lines released.
func (b *Bus) Close(ctx context.Context) error {
	if err := b.sda.PullDown(); err != nil {
		return fmt.Errorf("sda: %w", err)
	}
	b.wait()
	if err := b.releaseSCL(ctx); err != nil {
		return err
	}
	b.wait()
	if err := b.sda.Release(); err != nil {
		return fmt.Errorf("sda: %w", err)
	}
	b.wait()
	return nil
}

// SendByte clocks out the byte MSB first and samples the acknowledge
// the slave drives on the ninth clock.
func (b *Bus) SendByte(ctx context.Context, v byte) error {
	for i := 7; i >= 0; i-- {
		if err := b.writeBit(ctx, v&(1<<i) != 0, true); err != nil {
			return err
		}
	}
	acked, err := b.readBit(ctx)
	if err != nil {
		return err
	}
	if acked {
		// slave left SDA high on the acknowledge clock
		return i2cdev.ErrNoAck
	}
	return nil
}

// ReceiveByte clocks in one byte MSB first. The acknowledge clock is left
// to a following Ack or NotAck call.
func (b *Bus) ReceiveByte(ctx context.Context) (byte, error) {
	var v byte
	for i := 7; i >= 0; i-- {
		bit, err := b.readBit(ctx)
		if err != nil {
			return 0, err
		}
		if bit {
			v |= 1 << i
		}
	}
	return v, nil
}

// Ack drives SDA low on the acknowledge clock of a received byte.
func (b *Bus) Ack(ctx context.Context) error {
	return b.writeBit(ctx, false, false)
}

// NotAck leaves SDA high on the acknowledge clock, ending the read burst.
func (b *Bus) NotAck(ctx context.Context) error {
	return b.writeBit(ctx, true, false)
}

// writeBit presents a bit on SDA and clocks it. For recessive data bits
// the line is read back while SCL is high: another transmitter pulling
// it low means the master lost arbitration. Acknowledge bits skip the
// check since the slave legitimately drives the line then.
func (b *Bus) writeBit(ctx context.Context, bit, checkCollision bool) error {
	var err error
	if bit {
		err = b.sda.Release()
	} else {
		err = b.sda.PullDown()
	}
	if err != nil {
		return fmt.Errorf("sda: %w", err)
	}
	b.wait()
	if err := b.releaseSCL(ctx); err != nil {
		return err
	}
	if bit && checkCollision {
		high, err := b.sda.Read()
		if err != nil {
			return fmt.Errorf("sda: %w", err)
		}
		if !high {
			return i2cdev.ErrWriteCollision
		}
	}
	b.wait()
	if err := b.scl.PullDown(); err != nil {
		return fmt.Errorf("scl: %w", err)
	}
	return nil
}

func (b *Bus) readBit(ctx context.Context) (bool, error) {
	if err := b.sda.Release(); err != nil {
		return false, fmt.Errorf("sda: %w", err)
	}
	b.wait()
	if err := b.releaseSCL(ctx); err != nil {
		return false, err
	}
	bit, err := b.sda.Read()
	if err != nil {
		return false, fmt.Errorf("sda: %w", err)
	}
	b.wait()
	if err := b.scl.PullDown(); err != nil {
		return false, fmt.Errorf("scl: %w", err)
	}
	return bit, nil
}

// releaseSCL lets SCL go and waits for the line to actually reach high,
// honoring clock stretching by slaves.
func (b *Bus) releaseSCL(ctx context.Context) error {
	if err := b.scl.Release(); err != nil {
		return fmt.Errorf("scl: %w", err)
	}
	var deadline time.Time
	if b.stretch > 0 {
		deadline = time.Now().Add(b.stretch)
	}
	for {
		high, err := b.scl.Read()
		if err != nil {
			return fmt.Errorf("scl: %w", err)
		}
		if high {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return i2cdev.ErrBusStuck
		}
		time.Sleep(b.half)
	}
}

func (b *Bus) wait() {
	time.Sleep(b.half)
}
