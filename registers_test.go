package i2cdev

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDevice byte = 0x58
const testRegister byte = 0x10

func TestRegisters_ReadBytesFraming(t *testing.T) {
	ctx := context.Background()
	bus := NewMockBus()
	regs := bus.AddDevice(testDevice)
	regs[0x10] = 0xDE
	regs[0x11] = 0xAD
	regs[0x12] = 0xBE

	r := NewRegisters(bus)
	buf := make([]byte, 3)
	require.NoError(t, r.ReadBytes(ctx, testDevice, 0x10, buf))
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE}, buf)

	assert.Equal(t, []TraceEntry{
		{Kind: TraceOpen},
		{Kind: TraceWrite, Byte: testDevice & 0xFE},
		{Kind: TraceWrite, Byte: 0x10},
		{Kind: TraceRestart},
		{Kind: TraceWrite, Byte: testDevice | 0x01},
		{Kind: TraceRead, Byte: 0xDE},
		{Kind: TraceAck},
		{Kind: TraceRead, Byte: 0xAD},
		{Kind: TraceAck},
		{Kind: TraceRead, Byte: 0xBE},
		{Kind: TraceNotAck},
		{Kind: TraceClose},
	}, bus.Trace())
}

func TestRegisters_ReadBytesAckCounts(t *testing.T) {
	ctx := context.Background()
	for n := 1; n <= 8; n++ {
		t.Run(fmt.Sprintf("length_%d", n), func(t *testing.T) {
			bus := NewMockBus()
			bus.AddDevice(testDevice)
			r := NewRegisters(bus)
			require.NoError(t, r.ReadBytes(ctx, testDevice, 0x00, make([]byte, n)))
			var acks, nacks, reads int
			for _, e := range bus.Trace() {
				switch e.Kind {
				case TraceAck:
					acks++
				case TraceNotAck:
					nacks++
				case TraceRead:
					reads++
				}
			}
			assert.Equal(t, n, reads)
			assert.Equal(t, n-1, acks)
			assert.Equal(t, 1, nacks)
			// the not-ack has to follow the last read
			trace := bus.Trace()
			assert.Equal(t, TraceNotAck, trace[len(trace)-2].Kind)
			assert.Equal(t, TraceClose, trace[len(trace)-1].Kind)
		})
	}
}

func TestRegisters_WriteBytesFraming(t *testing.T) {
	ctx := context.Background()
	bus := NewMockBus()
	regs := bus.AddDevice(testDevice)

	r := NewRegisters(bus)
	require.NoError(t, r.WriteBytes(ctx, testDevice, 0x20, []byte{0x01, 0x02, 0x03}))

	assert.Equal(t, []TraceEntry{
		{Kind: TraceOpen},
		{Kind: TraceWrite, Byte: testDevice & 0xFE},
		{Kind: TraceWrite, Byte: 0x20},
		{Kind: TraceWrite, Byte: 0x01},
		{Kind: TraceWrite, Byte: 0x02},
		{Kind: TraceWrite, Byte: 0x03},
		{Kind: TraceClose},
	}, bus.Trace())
	// slave auto-increments its register pointer during the burst
	assert.Equal(t, byte(0x01), regs[0x20])
	assert.Equal(t, byte(0x02), regs[0x21])
	assert.Equal(t, byte(0x03), regs[0x22])
}

func TestRegisters_ByteRoundTrip(t *testing.T) {
	ctx := context.Background()
	bus := NewMockBus()
	bus.AddDevice(testDevice)
	r := NewRegisters(bus)

	for _, v := range []byte{0x00, 0x01, 0x7F, 0x80, 0xA5, 0xFF} {
		t.Run(fmt.Sprintf("%#02x", v), func(t *testing.T) {
			require.NoError(t, r.WriteByteData(ctx, testDevice, testRegister, v))
			got, err := r.ReadByteData(ctx, testDevice, testRegister)
			require.NoError(t, err)
			assert.Equal(t, v, got)
		})
	}
}

func TestRegisters_ReadBit(t *testing.T) {
	ctx := context.Background()
	bus := NewMockBus()
	regs := bus.AddDevice(testDevice)
	regs[testRegister] = 0b01101001

	r := NewRegisters(bus)
	for bit := byte(0); bit < 8; bit++ {
		t.Run(fmt.Sprintf("bit_%d", bit), func(t *testing.T) {
			got, err := r.ReadBit(ctx, testDevice, testRegister, bit)
			require.NoError(t, err)
			if 0b01101001&(1<<bit) != 0 {
				// the bit comes back in its register position,
				// not normalized to 1
				assert.Equal(t, byte(1)<<bit, got)
			} else {
				assert.Equal(t, byte(0), got)
			}
		})
	}
}

func TestRegisters_ReadBits(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		stored   byte
		bitStart byte
		length   byte
		expected byte
	}{
		{0b01101001, 4, 3, 0b010},
		{0b01101001, 7, 8, 0b01101001},
		{0b01101001, 7, 1, 0b0},
		{0b01101001, 6, 2, 0b11},
		{0b01101001, 0, 1, 0b1},
		{0b11111111, 5, 4, 0b1111},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%08b_%d_%d", test.stored, test.bitStart, test.length), func(t *testing.T) {
			bus := NewMockBus()
			bus.AddDevice(testDevice)[testRegister] = test.stored
			r := NewRegisters(bus)
			got, err := r.ReadBits(ctx, testDevice, testRegister, test.bitStart, test.length)
			require.NoError(t, err)
			assert.Equal(t, test.expected, got)
		})
	}
}

func TestRegisters_WriteBit(t *testing.T) {
	ctx := context.Background()
	bus := NewMockBus()
	regs := bus.AddDevice(testDevice)
	regs[testRegister] = 0b10101111

	r := NewRegisters(bus)
	require.NoError(t, r.WriteBit(ctx, testDevice, testRegister, 6, true))
	assert.Equal(t, byte(0b11101111), regs[testRegister])
	require.NoError(t, r.WriteBit(ctx, testDevice, testRegister, 0, false))
	assert.Equal(t, byte(0b11101110), regs[testRegister])
}

func TestRegisters_WriteBitsExample(t *testing.T) {
	ctx := context.Background()
	bus := NewMockBus()
	regs := bus.AddDevice(testDevice)
	regs[testRegister] = 0b10101111

	r := NewRegisters(bus)
	require.NoError(t, r.WriteBits(ctx, testDevice, testRegister, 4, 3, 0b010))
	assert.Equal(t, byte(0b10101011), regs[testRegister])
}

func TestRegisters_BitFieldRoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, seed := range []byte{0x00, 0xFF, 0xA5, 0b10101111} {
		for bitStart := byte(0); bitStart < 8; bitStart++ {
			for length := byte(1); length <= bitStart+1; length++ {
				name := fmt.Sprintf("seed_%02x_start_%d_len_%d", seed, bitStart, length)
				t.Run(name, func(t *testing.T) {
					bus := NewMockBus()
					regs := bus.AddDevice(testDevice)
					r := NewRegisters(bus)

					fieldMask := byte(1<<length-1) << (bitStart - length + 1)
					for v := 0; v < 1<<int(length); v++ {
						value := byte(v)
						regs[testRegister] = seed
						require.NoError(t, r.WriteBits(ctx, testDevice, testRegister, bitStart, length, value))
						got, err := r.ReadBits(ctx, testDevice, testRegister, bitStart, length)
						require.NoError(t, err)
						assert.Equal(t, value, got)
						// everything outside the field keeps its seed value
						assert.Equal(t, seed&^fieldMask, regs[testRegister]&^fieldMask)
					}
				})
			}
		}
	}
}

func TestRegisters_ZeroLengthRead(t *testing.T) {
	ctx := context.Background()
	bus := NewMockBus()
	bus.AddDevice(testDevice)

	r := NewRegisters(bus)
	require.NoError(t, r.ReadBytes(ctx, testDevice, 0x05, nil))
	// address phase only, then stop
	assert.Equal(t, []TraceEntry{
		{Kind: TraceOpen},
		{Kind: TraceWrite, Byte: testDevice & 0xFE},
		{Kind: TraceWrite, Byte: 0x05},
		{Kind: TraceRestart},
		{Kind: TraceWrite, Byte: testDevice | 0x01},
		{Kind: TraceClose},
	}, bus.Trace())
}

func TestRegisters_NoAckPropagation(t *testing.T) {
	ctx := context.Background()
	bus := NewMockBus() // no devices
	r := NewRegisters(bus)

	err := r.WriteByteData(ctx, testDevice, testRegister, 0x42)
	assert.ErrorIs(t, err, ErrNoAck)
	_, err = r.ReadByteData(ctx, testDevice, testRegister)
	assert.ErrorIs(t, err, ErrNoAck)

	// the stop condition is issued even on a failed transaction
	trace := bus.Trace()
	require.NotEmpty(t, trace)
	assert.Equal(t, TraceClose, trace[len(trace)-1].Kind)
}

func TestRegisters_WriteCollision(t *testing.T) {
	ctx := context.Background()
	bus := NewMockBus()
	bus.AddDevice(testDevice)
	bus.CollideAt = 2 // first data byte

	r := NewRegisters(bus)
	err := r.WriteBytes(ctx, testDevice, testRegister, []byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrWriteCollision)
}

func TestRegisters_Probe(t *testing.T) {
	ctx := context.Background()
	bus := NewMockBus()
	bus.AddDevice(0x40)

	r := NewRegisters(bus)
	assert.NoError(t, r.Probe(ctx, 0x40))
	assert.True(t, errors.Is(r.Probe(ctx, 0x42), ErrNoAck))
}
