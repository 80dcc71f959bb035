package bitbang

import (
	"fmt"

	"gobot.io/x/gobot/v2/drivers/gpio"
)

// DigitalPinner is the subset of a gobot adaptor the bus needs: digital
// read and write on named pins. Every gobot platform adaptor with GPIO
// support satisfies it.
type DigitalPinner interface {
	gpio.DigitalWriter
	gpio.DigitalReader
}

// GobotPin adapts a digital pin of a gobot platform adaptor to the
// open-drain Pin contract. The pin has to be wired open-drain or carry an
// external pull-up; releasing writes a logic high, which on a push-pull
// pin only approximates letting the line float.
type GobotPin struct {
	adaptor DigitalPinner
	pin     string
}

func NewGobotPin(adaptor DigitalPinner, pin string) *GobotPin {
	return &GobotPin{adaptor: adaptor, pin: pin}
}

func (p *GobotPin) PullDown() error {
	if err := p.adaptor.DigitalWrite(p.pin, 0); err != nil {
		return fmt.Errorf("could not drive pin %s low: %w", p.pin, err)
	}
	return nil
}

func (p *GobotPin) Release() error {
	if err := p.adaptor.DigitalWrite(p.pin, 1); err != nil {
		return fmt.Errorf("could not release pin %s: %w", p.pin, err)
	}
	return nil
}

func (p *GobotPin) Read() (bool, error) {
	v, err := p.adaptor.DigitalRead(p.pin)
	if err != nil {
		return false, fmt.Errorf("could not read pin %s: %w", p.pin, err)
	}
	return v != 0, nil
}
