// Package ad524x drives the Analog Devices AD5241/AD5242 I2C digital
// potentiometers. The chips have no register map; every transaction starts
// with an instruction byte selecting the RDAC channel and carrying the
// mode flags, optionally followed by a wiper position byte.
// See: https://www.analog.com/media/en/technical-documentation/data-sheets/AD5241_5242.pdf
package ad524x

import (
	"context"
	"fmt"
	"sync"

	"github.com/mklimuk/i2cdev"
)

// DefaultAddress is the 8-bit bus address (write form) with both external
// address pins AD0/AD1 tied low (0101100 on 7 bits).
const DefaultAddress = 0x58

// Instruction byte flags.
const (
	instrChannelB = 0b10000000 // A/B: RDAC channel select
	instrMidscale = 0b01000000 // RS: reset wiper to midscale
	instrShutdown = 0b00100000 // SD: shutdown selected channel
	instrOutput1  = 0b00010000 // O1 logic output level
	instrOutput2  = 0b00001000 // O2 logic output level
)

// Channel identifies one of the two RDACs. The AD5241 only has RDAC1;
// selecting RDAC2 on it has no effect.
type Channel byte

const (
	RDAC1 Channel = iota
	RDAC2
)

func (c Channel) String() string {
	if c == RDAC2 {
		return "RDAC2"
	}
	return "RDAC1"
}

// Output identifies one of the two digital output pins.
type Output byte

const (
	O1 Output = iota + 1
	O2
)

type Config struct {
	Address byte
}

type ConfigOption func(*Config)

// WithAddress overrides the 8-bit device address selected by the AD0/AD1
// pins (0x58, 0x5A, 0x5C or 0x5E).
func WithAddress(address byte) ConfigOption {
	return func(c *Config) {
		c.Address = address
	}
}

// Device represents one AD5241/AD5242 chip. The instruction byte is
// per-device state: output levels and channel selection persist between
// commands and have to be carried into every write, so the driver keeps
// the last value here instead of in a process-wide variable.
type Device struct {
	mx          sync.Mutex
	regs        *i2cdev.Registers
	address     byte
	instruction byte
}

func New(regs *i2cdev.Registers, opts ...ConfigOption) *Device {
	config := &Config{Address: DefaultAddress}
	for _, opt := range opts {
		opt(config)
	}
	return &Device{regs: regs, address: config.Address}
}

// Instruction returns the current instruction byte the driver would send
// with the next command. Mostly useful for diagnostics.
func (d *Device) Instruction() byte {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.instruction
}

// SetWiper moves the wiper of the given channel to value (0..255 over the
// full resistance range). On the wire the instruction byte travels in the
// register-address slot followed by the position byte.
func (d *Device) SetWiper(ctx context.Context, ch Channel, value byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.selectChannel(ch)
	if err := d.regs.WriteByteData(ctx, d.address, d.instruction, value); err != nil {
		return fmt.Errorf("ad524x: could not set %s wiper: %w", ch, err)
	}
	return nil
}

// Wiper reads back the current wiper position of the given channel.
func (d *Device) Wiper(ctx context.Context, ch Channel) (byte, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.selectChannel(ch)
	v, err := d.regs.ReadByteData(ctx, d.address, d.instruction)
	if err != nil {
		return 0, fmt.Errorf("ad524x: could not read %s wiper: %w", ch, err)
	}
	return v, nil
}

// Midscale resets the wiper of the given channel to midscale (0x80). The
// RS flag is self-clearing on the chip and is cleared in the driver state
// after the command.
func (d *Device) Midscale(ctx context.Context, ch Channel) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.selectChannel(ch)
	d.instruction |= instrMidscale
	err := d.writeInstruction(ctx)
	d.instruction &^= instrMidscale
	if err != nil {
		return fmt.Errorf("ad524x: could not reset %s to midscale: %w", ch, err)
	}
	return nil
}

// SetOutput drives one of the O1/O2 logic output pins high or low. The
// level is latched in the instruction byte and kept by every later
// command.
func (d *Device) SetOutput(ctx context.Context, out Output, high bool) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	var flag byte = instrOutput1
	if out == O2 {
		flag = instrOutput2
	}
	if high {
		d.instruction |= flag
	} else {
		d.instruction &^= flag
	}
	if err := d.writeInstruction(ctx); err != nil {
		return fmt.Errorf("ad524x: could not set output O%d: %w", out, err)
	}
	return nil
}

// Shutdown puts the selected channel into shutdown (wiper to B terminal,
// A terminal open). Resume with active=false.
func (d *Device) Shutdown(ctx context.Context, ch Channel, active bool) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.selectChannel(ch)
	if active {
		d.instruction |= instrShutdown
	} else {
		d.instruction &^= instrShutdown
	}
	if err := d.writeInstruction(ctx); err != nil {
		return fmt.Errorf("ad524x: could not change %s shutdown state: %w", ch, err)
	}
	return nil
}

func (d *Device) selectChannel(ch Channel) {
	if ch == RDAC2 {
		d.instruction |= instrChannelB
	} else {
		d.instruction &^= instrChannelB
	}
}

// writeInstruction sends the instruction byte alone, with no data byte
// after it.
func (d *Device) writeInstruction(ctx context.Context) error {
	return d.regs.WriteBytes(ctx, d.address, d.instruction, nil)
}
