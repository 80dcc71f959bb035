package i2cdev

import (
	"context"
	"fmt"
)

// TraceKind identifies one recorded bus primitive in a MockBus trace.
type TraceKind int

const (
	TraceOpen TraceKind = iota
	TraceRestart
	TraceClose
	TraceWrite
	TraceRead
	TraceAck
	TraceNotAck
)

func (k TraceKind) String() string {
	switch k {
	case TraceOpen:
		return "OPEN"
	case TraceRestart:
		return "RESTART"
	case TraceClose:
		return "CLOSE"
	case TraceWrite:
		return "WRITE"
	case TraceRead:
		return "READ"
	case TraceAck:
		return "ACK"
	case TraceNotAck:
		return "NACK"
	}
	return "UNKNOWN"
}

// TraceEntry is one bus primitive as seen on the wire.
type TraceEntry struct {
	Kind TraceKind
	Byte byte
}

func (e TraceEntry) String() string {
	switch e.Kind {
	case TraceWrite, TraceRead:
		return fmt.Sprintf("%s %#02x", e.Kind, e.Byte)
	default:
		return e.Kind.String()
	}
}

type mockState int

const (
	mockIdle mockState = iota
	mockAddressing
	mockRegister
	mockWriting
	mockReading
)

// MockBus emulates slave devices behind the byte-level Bus contract
// without any hardware. Each device is a register map keyed by its 8-bit
// address in write form; the emulated slaves auto-increment their register
// pointer on burst reads and writes, the way real register-mapped chips do.
//
// Every primitive call is appended to a trace so tests can assert the
// exact wire framing of a transaction. Addressing a device that is not in
// the map reports ErrNoAck; CollideAt injects a write collision on the
// nth written byte (counting from 0 across the bus lifetime).
type MockBus struct {
	Devices map[byte]map[byte]byte

	// CollideAt is the index of the written byte that reports
	// ErrWriteCollision; -1 disables injection.
	CollideAt int

	trace  []TraceEntry
	state  mockState
	dev    byte
	reg    byte
	writes int
}

func NewMockBus() *MockBus {
	return &MockBus{Devices: map[byte]map[byte]byte{}, CollideAt: -1}
}

// AddDevice registers an emulated slave under its 8-bit write-form address
// and returns its register map.
func (m *MockBus) AddDevice(addr byte) map[byte]byte {
	regs := map[byte]byte{}
	m.Devices[addr&0xFE] = regs
	return regs
}

// Trace returns the primitives recorded so far, in wire order.
func (m *MockBus) Trace() []TraceEntry {
	return m.trace
}

// ResetTrace drops the recorded primitives, keeping device state.
func (m *MockBus) ResetTrace() {
	m.trace = nil
}

func (m *MockBus) Open(ctx context.Context) error {
	m.trace = append(m.trace, TraceEntry{Kind: TraceOpen})
	m.state = mockAddressing
	return nil
}

func (m *MockBus) Restart(ctx context.Context) error {
	m.trace = append(m.trace, TraceEntry{Kind: TraceRestart})
	m.state = mockAddressing
	return nil
}

func (m *MockBus) Close(ctx context.Context) error {
	m.trace = append(m.trace, TraceEntry{Kind: TraceClose})
	m.state = mockIdle
	return nil
}

func (m *MockBus) SendByte(ctx context.Context, b byte) error {
	m.trace = append(m.trace, TraceEntry{Kind: TraceWrite, Byte: b})
	n := m.writes
	m.writes++
	if n == m.CollideAt {
		return ErrWriteCollision
	}
	switch m.state {
	case mockAddressing:
		dev := b & 0xFE
		if _, ok := m.Devices[dev]; !ok {
			m.state = mockIdle
			return ErrNoAck
		}
		m.dev = dev
		if b&0x01 == 0 {
			m.state = mockRegister
		} else {
			m.state = mockReading
		}
	case mockRegister:
		m.reg = b
		m.state = mockWriting
	case mockWriting:
		m.Devices[m.dev][m.reg] = b
		m.reg++
	default:
		return fmt.Errorf("write of %#02x outside a transaction", b)
	}
	return nil
}

func (m *MockBus) ReceiveByte(ctx context.Context) (byte, error) {
	if m.state != mockReading {
		return 0, fmt.Errorf("read outside a read transaction")
	}
	b := m.Devices[m.dev][m.reg]
	m.reg++
	m.trace = append(m.trace, TraceEntry{Kind: TraceRead, Byte: b})
	return b, nil
}

func (m *MockBus) Ack(ctx context.Context) error {
	m.trace = append(m.trace, TraceEntry{Kind: TraceAck})
	return nil
}

func (m *MockBus) NotAck(ctx context.Context) error {
	m.trace = append(m.trace, TraceEntry{Kind: TraceNotAck})
	return nil
}

var _ Bus = &MockBus{}
