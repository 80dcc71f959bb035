package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2cdev/ad524x"
	"github.com/mklimuk/i2cdev/cmd/i2cdev/console"
)

var potCmd = cli.Command{
	Name:  "pot",
	Usage: "AD5241/AD5242 digital potentiometer control",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "address",
			Usage: "8-bit device address in hex",
			Value: "58",
		},
		&cli.IntFlag{
			Name:  "channel",
			Usage: "wiper channel (1 or 2)",
			Value: 1,
		},
	},
	Subcommands: []*cli.Command{
		&potSetCmd,
		&potGetCmd,
		&potMidscaleCmd,
		&potOutputCmd,
		&potShutdownCmd,
	},
}

func openPot(c *cli.Context) (*ad524x.Device, ad524x.Channel, error) {
	addr, err := hex.DecodeString(c.String("address"))
	if err != nil {
		return nil, 0, fmt.Errorf("could not decode address: %w", err)
	}
	ch := ad524x.RDAC1
	if c.Int("channel") == 2 {
		ch = ad524x.RDAC2
	}
	r, err := openBus(c)
	if err != nil {
		return nil, 0, err
	}
	return ad524x.New(r, ad524x.WithAddress(addr[0])), ch, nil
}

var potSetCmd = cli.Command{
	Name:      "set",
	Usage:     "set the wiper position: <value 0-255>",
	ArgsUsage: "<value>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return console.Exit(1, "expected 1 argument, got %d", c.NArg())
		}
		value, err := strconv.ParseUint(c.Args().First(), 0, 8)
		if err != nil {
			return console.Exit(1, "invalid wiper value %q", c.Args().First())
		}
		pot, ch, err := openPot(c)
		if err != nil {
			return console.Exit(1, "%v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := pot.SetWiper(ctx, ch, byte(value)); err != nil {
			return console.Exit(1, "could not set wiper: %v", err)
		}
		console.PInfof(console.PictoKnob, "%s set to %d", ch, value)
		return nil
	},
}

var potGetCmd = cli.Command{
	Name:  "get",
	Usage: "read back the wiper position",
	Action: func(c *cli.Context) error {
		pot, ch, err := openPot(c)
		if err != nil {
			return console.Exit(1, "%v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		value, err := pot.Wiper(ctx, ch)
		if err != nil {
			return console.Exit(1, "could not read wiper: %v", err)
		}
		console.PInfof(console.PictoKnob, "%s at %d", ch, value)
		return nil
	},
}

var potMidscaleCmd = cli.Command{
	Name:  "midscale",
	Usage: "reset the wiper to midscale",
	Action: func(c *cli.Context) error {
		pot, ch, err := openPot(c)
		if err != nil {
			return console.Exit(1, "%v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := pot.Midscale(ctx, ch); err != nil {
			return console.Exit(1, "midscale reset failed: %v", err)
		}
		console.PInfof(console.PictoKnob, "%s reset to midscale", ch)
		return nil
	},
}

var potOutputCmd = cli.Command{
	Name:      "output",
	Usage:     "drive a digital output pin: <1|2> <high|low>",
	ArgsUsage: "<1|2> <high|low>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return console.Exit(1, "expected 2 arguments, got %d", c.NArg())
		}
		out := ad524x.O1
		switch c.Args().Get(0) {
		case "1":
		case "2":
			out = ad524x.O2
		default:
			return console.Exit(1, "invalid output %q (expected 1 or 2)", c.Args().Get(0))
		}
		var high bool
		switch c.Args().Get(1) {
		case "high":
			high = true
		case "low":
		default:
			return console.Exit(1, "invalid level %q (expected high or low)", c.Args().Get(1))
		}
		pot, _, err := openPot(c)
		if err != nil {
			return console.Exit(1, "%v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := pot.SetOutput(ctx, out, high); err != nil {
			return console.Exit(1, "could not drive output: %v", err)
		}
		console.PInfof(console.PictoPin, "O%s driven %s", c.Args().Get(0), c.Args().Get(1))
		return nil
	},
}

var potShutdownCmd = cli.Command{
	Name:      "shutdown",
	Usage:     "enter or leave shutdown: <on|off>",
	ArgsUsage: "<on|off>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return console.Exit(1, "expected 1 argument, got %d", c.NArg())
		}
		var active bool
		switch c.Args().First() {
		case "on":
			active = true
		case "off":
		default:
			return console.Exit(1, "invalid state %q (expected on or off)", c.Args().First())
		}
		pot, ch, err := openPot(c)
		if err != nil {
			return console.Exit(1, "%v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := pot.Shutdown(ctx, ch, active); err != nil {
			return console.Exit(1, "could not change shutdown state: %v", err)
		}
		if active {
			console.PInfof(console.PictoStop, "%s in shutdown", ch)
		} else {
			console.PInfof(console.PictoKnob, "%s active", ch)
		}
		return nil
	},
}
