package i2cdev

import (
	"context"
	"fmt"
)

// Registers provides register-oriented access to slave devices on a Bus:
// whole bytes, multi-byte bursts, single bits and bit fields.
//
// Device addresses are passed in their 8-bit form with the direction bit
// cleared (write form); the layer sets or clears bit 0 itself when it
// addresses the slave. Bit 7 of a register byte is the most significant
// bit, bit 0 the least significant, matching datasheet register maps.
//
// The layer is stateless; it holds no claim on the bus between calls.
type Registers struct {
	bus Bus
}

func NewRegisters(bus Bus) *Registers {
	return &Registers{bus: bus}
}

// ReadBytes reads len(buf) consecutive register bytes starting at reg into
// buf using a combined write-then-read transaction:
//
//	[start][addr|W][reg][restart][addr|R][data... ack all but last, nack last][stop]
//
// Consecutive bytes come from the slave's own internal address
// auto-increment during the burst; the register address is sent only once.
// With an empty buf only the address phase is performed and the bus is
// closed immediately (the slave's register pointer is still updated).
// The stop condition is issued even when the transaction fails mid-way.
func (r *Registers) ReadBytes(ctx context.Context, addr, reg byte, buf []byte) error {
	if err := r.bus.Open(ctx); err != nil {
		return fmt.Errorf("could not open bus: %w", err)
	}
	err := r.readBytes(ctx, addr, reg, buf)
	if cerr := r.bus.Close(ctx); cerr != nil && err == nil {
		err = fmt.Errorf("could not close bus: %w", cerr)
	}
	return err
}

func (r *Registers) readBytes(ctx context.Context, addr, reg byte, buf []byte) error {
	if err := r.bus.SendByte(ctx, addr&0xFE); err != nil {
		return fmt.Errorf("could not address device %#x for write: %w", addr, err)
	}
	if err := r.bus.SendByte(ctx, reg); err != nil {
		return fmt.Errorf("could not select register %#x: %w", reg, err)
	}
	if err := r.bus.Restart(ctx); err != nil {
		return fmt.Errorf("could not restart bus: %w", err)
	}
	if err := r.bus.SendByte(ctx, addr|0x01); err != nil {
		return fmt.Errorf("could not address device %#x for read: %w", addr, err)
	}
	for i := range buf {
		b, err := r.bus.ReceiveByte(ctx)
		if err != nil {
			return fmt.Errorf("could not read byte %d: %w", i, err)
		}
		buf[i] = b
		if i == len(buf)-1 {
			err = r.bus.NotAck(ctx)
		} else {
			err = r.bus.Ack(ctx)
		}
		if err != nil {
			return fmt.Errorf("could not acknowledge byte %d: %w", i, err)
		}
	}
	return nil
}

// WriteBytes writes the bytes of buf to consecutive registers starting at
// reg in a single transaction:
//
//	[start][addr|W][reg][data...][stop]
//
// Per-byte acknowledge failures are propagated as errors; the wire
// framing is unchanged.
func (r *Registers) WriteBytes(ctx context.Context, addr, reg byte, buf []byte) error {
	if err := r.bus.Open(ctx); err != nil {
		return fmt.Errorf("could not open bus: %w", err)
	}
	err := r.writeBytes(ctx, addr, reg, buf)
	if cerr := r.bus.Close(ctx); cerr != nil && err == nil {
		err = fmt.Errorf("could not close bus: %w", cerr)
	}
	return err
}

func (r *Registers) writeBytes(ctx context.Context, addr, reg byte, buf []byte) error {
	if err := r.bus.SendByte(ctx, addr&0xFE); err != nil {
		return fmt.Errorf("could not address device %#x for write: %w", addr, err)
	}
	if err := r.bus.SendByte(ctx, reg); err != nil {
		return fmt.Errorf("could not select register %#x: %w", reg, err)
	}
	for i, b := range buf {
		if err := r.bus.SendByte(ctx, b); err != nil {
			return fmt.Errorf("could not write byte %d: %w", i, err)
		}
	}
	return nil
}

// ReadByteData reads a single register byte.
func (r *Registers) ReadByteData(ctx context.Context, addr, reg byte) (byte, error) {
	var buf [1]byte
	err := r.ReadBytes(ctx, addr, reg, buf[:])
	return buf[0], err
}

// WriteByteData writes a single register byte.
func (r *Registers) WriteByteData(ctx context.Context, addr, reg, value byte) error {
	return r.WriteBytes(ctx, addr, reg, []byte{value})
}

// ReadBit reads one bit of a register byte. The result is the masked bit
// still in its register position (0 or 1<<bit), not normalized to 0/1;
// treat it as zero vs non-zero.
func (r *Registers) ReadBit(ctx context.Context, addr, reg, bit byte) (byte, error) {
	b, err := r.ReadByteData(ctx, addr, reg)
	if err != nil {
		return 0, err
	}
	return b & (1 << bit), nil
}

// ReadBits extracts a right-aligned bit field from a register byte.
// bitStart is the most significant bit of the field and length counts
// downward from it, so length <= 8 and bitStart-length+1 >= 0.
//
//	01101001 register byte
//	76543210 bit numbers
//	   xxx   bitStart=4, length=3
//	   010   masked
//	  -> 010 shifted
func (r *Registers) ReadBits(ctx context.Context, addr, reg, bitStart, length byte) (byte, error) {
	b, err := r.ReadByteData(ctx, addr, reg)
	if err != nil {
		return 0, err
	}
	// loop bounds in int: for a field reaching bit 0 (length == bitStart+1)
	// the lower bound is -1, which a byte cannot hold
	var v byte
	for i := int(bitStart); i > int(bitStart)-int(length); i-- {
		v |= b & (1 << i)
	}
	v >>= bitStart - length + 1
	return v, nil
}

// WriteBit sets or clears one bit of a register byte, leaving the other
// bits untouched. The read-modify-write is not atomic with respect to
// other bus masters.
func (r *Registers) WriteBit(ctx context.Context, addr, reg, bit byte, value bool) error {
	b, err := r.ReadByteData(ctx, addr, reg)
	if err != nil {
		return err
	}
	if value {
		b |= 1 << bit
	} else {
		b &^= 1 << bit
	}
	return r.WriteByteData(ctx, addr, reg, b)
}

// WriteBits replaces a bit field of a register byte with the right-aligned
// value, preserving all bits outside the field. Field addressing follows
// ReadBits. Bits of value above the field length are discarded.
//
//	     010 value to write
//	76543210 bit numbers
//	   xxx   bitStart=4, length=3
//	01000000 value shifted left by 8-length
//	00001000 then right by 7-bitStart, out-of-field bits gone
//	11100011 mask
//	10101111 register byte
//	10100011 byte & mask
//	10101011 | value
func (r *Registers) WriteBits(ctx context.Context, addr, reg, bitStart, length, value byte) error {
	b, err := r.ReadByteData(ctx, addr, reg)
	if err != nil {
		return err
	}
	mask := ^(byte(1<<length-1) << (bitStart - length + 1))
	value <<= 8 - length
	value >>= 7 - bitStart
	b &= mask
	b |= value
	return r.WriteByteData(ctx, addr, reg, b)
}

// Probe performs the address phase only: start, device address in write
// form, stop. A nil return means a slave acknowledged the address. Used
// for bus scanning.
func (r *Registers) Probe(ctx context.Context, addr byte) error {
	if err := r.bus.Open(ctx); err != nil {
		return fmt.Errorf("could not open bus: %w", err)
	}
	err := r.bus.SendByte(ctx, addr&0xFE)
	if cerr := r.bus.Close(ctx); cerr != nil && err == nil {
		err = fmt.Errorf("could not close bus: %w", cerr)
	}
	return err
}
