package main

import (
	"context"
	"errors"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2cdev"
	"github.com/mklimuk/i2cdev/cmd/i2cdev/console"
)

var scanCmd = cli.Command{
	Name:  "scan",
	Usage: "probe the 7-bit address range for responding devices",
	Action: func(c *cli.Context) error {
		r, err := openBus(c)
		if err != nil {
			return console.Exit(1, "could not open bus: %v", err)
		}
		ctx, cancel := context.WithTimeout(console.SetVerbose(context.Background(), c.Bool("verbose")), 60*time.Second)
		defer cancel()
		found := 0
		// reserved address ranges are skipped
		for addr := byte(0x08); addr <= 0x77; addr++ {
			err := r.Probe(ctx, addr<<1)
			if err == nil {
				console.PInfof(console.PictoChip, "device at %#02x (%#02x write form)", addr, addr<<1)
				found++
				continue
			}
			if !errors.Is(err, i2cdev.ErrNoAck) {
				return console.Exit(1, "scan aborted at %#02x: %v", addr, err)
			}
		}
		if found == 0 {
			console.Infof("no devices found")
		}
		return nil
	},
}
