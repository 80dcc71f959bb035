package bitbang

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/i2cdev"
)

// simWire is one open-drain line: low when anybody drives it low, high
// otherwise.
type simWire struct {
	masterLow bool
	slaveLow  bool
}

func (w *simWire) high() bool {
	return !w.masterLow && !w.slaveLow
}

// simPin is the master's handle on a simWire; every transition notifies
// the slave state machine so it can react to the edge.
type simPin struct {
	w    *simWire
	step func()
}

func (p *simPin) PullDown() error {
	p.w.masterLow = true
	p.step()
	return nil
}

func (p *simPin) Release() error {
	p.w.masterLow = false
	p.step()
	return nil
}

func (p *simPin) Read() (bool, error) {
	return p.w.high(), nil
}

const (
	slaveIdle = iota
	slaveAddressing
	slaveRegister
	slaveWriting
	slaveSending
	slaveWaitStop
)

// simSlave is a register-mapped slave driven purely by the edges it sees
// on the two wires: start/stop detection on SDA transitions while SCL is
// high, bit sampling on SCL rising edges, output transitions on SCL
// falling edges. Burst access auto-increments the register pointer.
type simSlave struct {
	addr byte
	regs map[byte]byte

	sda, scl *simWire

	role      int
	reg       byte
	bitn      int
	shift     byte
	inAck     bool
	sendShift byte
	masterAck bool

	prevSCL bool
	prevSDA bool
}

func newSimSlave(addr byte) (*simSlave, Pin, Pin) {
	s := &simSlave{
		addr:    addr & 0xFE,
		regs:    map[byte]byte{},
		sda:     &simWire{},
		scl:     &simWire{},
		prevSCL: true,
		prevSDA: true,
	}
	return s, &simPin{w: s.sda, step: s.step}, &simPin{w: s.scl, step: s.step}
}

func (s *simSlave) step() {
	scl := s.scl.high()
	sda := s.sda.high()
	defer func() {
		s.prevSCL, s.prevSDA = scl, sda
	}()

	if s.prevSCL && scl {
		switch {
		case s.prevSDA && !sda: // start or repeated start
			s.role = slaveAddressing
			s.bitn, s.shift = 0, 0
			s.inAck = false
			s.sda.slaveLow = false
		case !s.prevSDA && sda: // stop
			s.role = slaveIdle
			s.bitn, s.shift = 0, 0
			s.inAck = false
			s.sda.slaveLow = false
		}
		return
	}

	if !s.prevSCL && scl { // rising edge: sample
		switch s.role {
		case slaveAddressing, slaveRegister, slaveWriting:
			if !s.inAck && s.bitn < 8 {
				s.shift <<= 1
				if sda {
					s.shift |= 1
				}
				s.bitn++
			}
		case slaveSending:
			if s.bitn == 8 {
				s.masterAck = !sda
			}
		}
		return
	}

	if s.prevSCL && !scl { // falling edge: drive
		switch s.role {
		case slaveAddressing, slaveRegister, slaveWriting:
			if s.inAck {
				s.inAck = false
				s.sda.slaveLow = false
				s.bitn, s.shift = 0, 0
				return
			}
			if s.bitn == 8 {
				s.completeByte()
			}
		case slaveSending:
			if s.inAck { // end of the read-address acknowledge clock
				s.inAck = false
				s.loadByte()
				return
			}
			s.bitn++
			switch {
			case s.bitn < 8:
				s.driveBit()
			case s.bitn == 8:
				s.sda.slaveLow = false // the master owns the ack clock
			default: // acknowledge clock finished
				if s.masterAck {
					s.loadByte()
				} else {
					s.role = slaveWaitStop
					s.sda.slaveLow = false
				}
			}
		}
	}
}

func (s *simSlave) completeByte() {
	switch s.role {
	case slaveAddressing:
		if s.shift&0xFE != s.addr {
			s.role = slaveWaitStop // not ours, leave SDA alone
			return
		}
		if s.shift&0x01 != 0 {
			s.role = slaveSending
		} else {
			s.role = slaveRegister
		}
		s.ack()
	case slaveRegister:
		s.reg = s.shift
		s.role = slaveWriting
		s.ack()
	case slaveWriting:
		s.regs[s.reg] = s.shift
		s.reg++
		s.ack()
	}
}

func (s *simSlave) ack() {
	s.inAck = true
	s.sda.slaveLow = true
}

func (s *simSlave) loadByte() {
	s.bitn = 0
	s.sendShift = s.regs[s.reg]
	s.reg++
	s.driveBit()
}

func (s *simSlave) driveBit() {
	bit := s.sendShift&(1<<(7-s.bitn)) != 0
	s.sda.slaveLow = !bit
}

func newTestBus(addr byte) (*simSlave, *Bus) {
	slave, sda, scl := newSimSlave(addr)
	// fast clock keeps the busy-wait sleeps negligible in tests
	return slave, New(sda, scl, WithFrequency(10_000_000))
}

func TestBus_WriteTransaction(t *testing.T) {
	ctx := context.Background()
	slave, bus := newTestBus(0x58)
	r := i2cdev.NewRegisters(bus)

	require.NoError(t, r.WriteBytes(ctx, 0x58, 0x10, []byte{0xDE, 0xAD}))
	assert.Equal(t, byte(0xDE), slave.regs[0x10])
	assert.Equal(t, byte(0xAD), slave.regs[0x11])
}

func TestBus_ReadTransaction(t *testing.T) {
	ctx := context.Background()
	slave, bus := newTestBus(0x58)
	slave.regs[0x20] = 0x55
	slave.regs[0x21] = 0xAA
	slave.regs[0x22] = 0x0F
	r := i2cdev.NewRegisters(bus)

	buf := make([]byte, 3)
	require.NoError(t, r.ReadBytes(ctx, 0x58, 0x20, buf))
	assert.Equal(t, []byte{0x55, 0xAA, 0x0F}, buf)
}

func TestBus_ByteRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, bus := newTestBus(0x42)
	r := i2cdev.NewRegisters(bus)

	for _, v := range []byte{0x00, 0x01, 0x80, 0xA5, 0xFF} {
		require.NoError(t, r.WriteByteData(ctx, 0x42, 0x05, v))
		got, err := r.ReadByteData(ctx, 0x42, 0x05)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestBus_BitFieldOverWire(t *testing.T) {
	ctx := context.Background()
	slave, bus := newTestBus(0x58)
	slave.regs[0x01] = 0b10101111
	r := i2cdev.NewRegisters(bus)

	require.NoError(t, r.WriteBits(ctx, 0x58, 0x01, 4, 3, 0b010))
	assert.Equal(t, byte(0b10101011), slave.regs[0x01])

	v, err := r.ReadBits(ctx, 0x58, 0x01, 4, 3)
	require.NoError(t, err)
	assert.Equal(t, byte(0b010), v)
}

func TestBus_NoAckOnWrongAddress(t *testing.T) {
	ctx := context.Background()
	_, bus := newTestBus(0x58)
	r := i2cdev.NewRegisters(bus)

	err := r.WriteByteData(ctx, 0x42, 0x00, 0x01)
	assert.ErrorIs(t, err, i2cdev.ErrNoAck)
	// the bus has to be usable again after the failed transaction
	require.NoError(t, r.WriteByteData(ctx, 0x58, 0x00, 0x01))
}

func TestBus_WriteCollision(t *testing.T) {
	ctx := context.Background()
	sdaWire := &simWire{slaveLow: true} // somebody holds SDA low
	sclWire := &simWire{}
	noop := func() {}
	bus := New(&simPin{w: sdaWire, step: noop}, &simPin{w: sclWire, step: noop}, WithFrequency(10_000_000))

	require.NoError(t, bus.Open(ctx))
	err := bus.SendByte(ctx, 0x80) // MSB is recessive
	assert.ErrorIs(t, err, i2cdev.ErrWriteCollision)
}

func TestBus_StuckClock(t *testing.T) {
	ctx := context.Background()
	sdaWire := &simWire{}
	sclWire := &simWire{slaveLow: true} // endless clock stretch
	noop := func() {}

	bus := New(&simPin{w: sdaWire, step: noop}, &simPin{w: sclWire, step: noop},
		WithFrequency(10_000_000), WithStretchTimeout(5*time.Millisecond))
	assert.ErrorIs(t, bus.Open(ctx), i2cdev.ErrBusStuck)

	// without the opt-in timeout the wait only ends with the context
	bus = New(&simPin{w: sdaWire, step: noop}, &simPin{w: sclWire, step: noop}, WithFrequency(10_000_000))
	cctx, cancel := context.WithTimeout(ctx, 5*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.Open(cctx), context.DeadlineExceeded)
}
