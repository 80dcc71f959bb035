package ad524x

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/i2cdev"
)

func newTestDevice() (*Device, *i2cdev.MockBus, map[byte]byte) {
	bus := i2cdev.NewMockBus()
	regs := bus.AddDevice(DefaultAddress)
	return New(i2cdev.NewRegisters(bus)), bus, regs
}

func TestAD524X_SetWiper(t *testing.T) {
	ctx := context.Background()
	d, bus, regs := newTestDevice()

	require.NoError(t, d.SetWiper(ctx, RDAC1, 0x42))
	// instruction byte travels in the register slot, wiper value after it
	assert.Equal(t, []i2cdev.TraceEntry{
		{Kind: i2cdev.TraceOpen},
		{Kind: i2cdev.TraceWrite, Byte: DefaultAddress},
		{Kind: i2cdev.TraceWrite, Byte: 0x00},
		{Kind: i2cdev.TraceWrite, Byte: 0x42},
		{Kind: i2cdev.TraceClose},
	}, bus.Trace())
	assert.Equal(t, byte(0x42), regs[0x00])

	bus.ResetTrace()
	require.NoError(t, d.SetWiper(ctx, RDAC2, 0x80))
	assert.Equal(t, []i2cdev.TraceEntry{
		{Kind: i2cdev.TraceOpen},
		{Kind: i2cdev.TraceWrite, Byte: DefaultAddress},
		{Kind: i2cdev.TraceWrite, Byte: instrChannelB},
		{Kind: i2cdev.TraceWrite, Byte: 0x80},
		{Kind: i2cdev.TraceClose},
	}, bus.Trace())
	assert.Equal(t, byte(instrChannelB), d.Instruction())
}

func TestAD524X_WiperReadback(t *testing.T) {
	ctx := context.Background()
	d, _, _ := newTestDevice()

	require.NoError(t, d.SetWiper(ctx, RDAC1, 0x37))
	v, err := d.Wiper(ctx, RDAC1)
	require.NoError(t, err)
	assert.Equal(t, byte(0x37), v)
}

func TestAD524X_Outputs(t *testing.T) {
	ctx := context.Background()
	d, bus, _ := newTestDevice()

	require.NoError(t, d.SetOutput(ctx, O1, true))
	// a command write carries the instruction byte alone
	assert.Equal(t, []i2cdev.TraceEntry{
		{Kind: i2cdev.TraceOpen},
		{Kind: i2cdev.TraceWrite, Byte: DefaultAddress},
		{Kind: i2cdev.TraceWrite, Byte: instrOutput1},
		{Kind: i2cdev.TraceClose},
	}, bus.Trace())

	require.NoError(t, d.SetOutput(ctx, O2, true))
	assert.Equal(t, byte(instrOutput1|instrOutput2), d.Instruction())

	// output levels are latched and survive other commands
	require.NoError(t, d.SetWiper(ctx, RDAC1, 0x10))
	assert.Equal(t, byte(instrOutput1|instrOutput2), d.Instruction())

	require.NoError(t, d.SetOutput(ctx, O1, false))
	assert.Equal(t, byte(instrOutput2), d.Instruction())
}

func TestAD524X_Midscale(t *testing.T) {
	ctx := context.Background()
	d, bus, _ := newTestDevice()

	require.NoError(t, d.SetOutput(ctx, O1, true))
	bus.ResetTrace()

	require.NoError(t, d.Midscale(ctx, RDAC2))
	assert.Equal(t, []i2cdev.TraceEntry{
		{Kind: i2cdev.TraceOpen},
		{Kind: i2cdev.TraceWrite, Byte: DefaultAddress},
		{Kind: i2cdev.TraceWrite, Byte: instrChannelB | instrMidscale | instrOutput1},
		{Kind: i2cdev.TraceClose},
	}, bus.Trace())
	// RS is self-clearing, channel selection and outputs persist
	assert.Equal(t, byte(instrChannelB|instrOutput1), d.Instruction())
}

func TestAD524X_Shutdown(t *testing.T) {
	ctx := context.Background()
	d, _, _ := newTestDevice()

	require.NoError(t, d.Shutdown(ctx, RDAC1, true))
	assert.Equal(t, byte(instrShutdown), d.Instruction())
	require.NoError(t, d.Shutdown(ctx, RDAC1, false))
	assert.Equal(t, byte(0), d.Instruction())
}

func TestAD524X_MissingDevice(t *testing.T) {
	ctx := context.Background()
	bus := i2cdev.NewMockBus()
	d := New(i2cdev.NewRegisters(bus), WithAddress(0x5A))

	err := d.SetWiper(ctx, RDAC1, 0x01)
	assert.ErrorIs(t, err, i2cdev.ErrNoAck)
}
