package bitbang

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PeriphPin adapts a periph.io pin to the open-drain Pin contract.
// Releasing switches the pin to input with the internal pull-up, pulling
// down switches it to a driven low output, which emulates open-drain on
// push-pull GPIO hardware.
type PeriphPin struct {
	pin gpio.PinIO
}

func NewPeriphPin(pin gpio.PinIO) *PeriphPin {
	return &PeriphPin{pin: pin}
}

func (p *PeriphPin) PullDown() error {
	if err := p.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("could not drive %s low: %w", p.pin, err)
	}
	return nil
}

func (p *PeriphPin) Release() error {
	if err := p.pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return fmt.Errorf("could not release %s: %w", p.pin, err)
	}
	return nil
}

func (p *PeriphPin) Read() (bool, error) {
	return p.pin.Read() == gpio.High, nil
}

// OpenPins initializes the periph host and resolves the named GPIO pins,
// returning them ready for New. Names follow the periph registry
// ("GPIO2", "GPIO3" on a Raspberry Pi).
func OpenPins(sda, scl string) (Pin, Pin, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("could not init host: %w", err)
	}
	sdaPin := gpioreg.ByName(sda)
	if sdaPin == nil {
		return nil, nil, fmt.Errorf("unknown gpio pin %q", sda)
	}
	sclPin := gpioreg.ByName(scl)
	if sclPin == nil {
		return nil, nil, fmt.Errorf("unknown gpio pin %q", scl)
	}
	return NewPeriphPin(sdaPin), NewPeriphPin(sclPin), nil
}
