package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2cdev/cmd/i2cdev/console"
)

var regCmd = cli.Command{
	Name:  "reg",
	Usage: "raw register access on an attached device",
	Subcommands: []*cli.Command{
		&regReadCmd,
		&regWriteCmd,
		&regBitsCmd,
		&regSetBitsCmd,
	},
}

var regReadCmd = cli.Command{
	Name:      "read",
	Usage:     "read registers: <address> <register> [length]",
	ArgsUsage: "<address> <register> [length]",
	Action: func(c *cli.Context) error {
		if c.NArg() < 2 {
			return console.Exit(1, "expected at least 2 arguments, got %d", c.NArg())
		}
		addr, err := hex.DecodeString(c.Args().Get(0))
		if err != nil {
			return console.Exit(1, "could not decode address: %v", err)
		}
		reg, err := hex.DecodeString(c.Args().Get(1))
		if err != nil {
			return console.Exit(1, "could not decode register: %v", err)
		}
		length := 1
		if c.NArg() > 2 {
			length, err = strconv.Atoi(c.Args().Get(2))
			if err != nil || length < 1 {
				return console.Exit(1, "invalid length %q", c.Args().Get(2))
			}
		}
		r, err := openBus(c)
		if err != nil {
			return console.Exit(1, "could not open bus: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		buf := make([]byte, length)
		if err := r.ReadBytes(ctx, addr[0], reg[0], buf); err != nil {
			return console.Exit(1, "register read failed: %v", err)
		}
		fmt.Print(hex.Dump(buf))
		return nil
	},
}

var regWriteCmd = cli.Command{
	Name:      "write",
	Usage:     "write registers: <address> <register> <data>",
	ArgsUsage: "<address> <register> <data-hex>",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 3 {
			return console.Exit(1, "expected 3 arguments, got %d", c.NArg())
		}
		addr, err := hex.DecodeString(c.Args().Get(0))
		if err != nil {
			return console.Exit(1, "could not decode address: %v", err)
		}
		reg, err := hex.DecodeString(c.Args().Get(1))
		if err != nil {
			return console.Exit(1, "could not decode register: %v", err)
		}
		data, err := hex.DecodeString(c.Args().Get(2))
		if err != nil {
			return console.Exit(1, "could not decode data: %v", err)
		}
		if !c.Bool("yes") {
			answer, err := console.YesOrNo(fmt.Sprintf("write % X to register %#02x of device %#02x?", data, reg[0], addr[0]))
			if err != nil {
				return console.Exit(1, "could not read answer: %v", err)
			}
			if answer != console.Yes {
				console.Infof("aborted")
				return nil
			}
		}
		r, err := openBus(c)
		if err != nil {
			return console.Exit(1, "could not open bus: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := r.WriteBytes(ctx, addr[0], reg[0], data); err != nil {
			return console.Exit(1, "register write failed: %v", err)
		}
		console.Infof("wrote %d byte(s) to %#02x/%#02x", len(data), addr[0], reg[0])
		return nil
	},
}

var regBitsCmd = cli.Command{
	Name:      "bits",
	Usage:     "read a bit field: <address> <register> <bitStart> <length>",
	ArgsUsage: "<address> <register> <bitStart> <length>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 4 {
			return console.Exit(1, "expected 4 arguments, got %d", c.NArg())
		}
		addr, err := hex.DecodeString(c.Args().Get(0))
		if err != nil {
			return console.Exit(1, "could not decode address: %v", err)
		}
		reg, err := hex.DecodeString(c.Args().Get(1))
		if err != nil {
			return console.Exit(1, "could not decode register: %v", err)
		}
		bitStart, length, err := parseField(c.Args().Get(2), c.Args().Get(3))
		if err != nil {
			return console.Exit(1, "%v", err)
		}
		r, err := openBus(c)
		if err != nil {
			return console.Exit(1, "could not open bus: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		v, err := r.ReadBits(ctx, addr[0], reg[0], bitStart, length)
		if err != nil {
			return console.Exit(1, "bit field read failed: %v", err)
		}
		fmt.Printf("%#02x (0b%0*b)\n", v, int(length), v)
		return nil
	},
}

var regSetBitsCmd = cli.Command{
	Name:      "setbits",
	Usage:     "write a bit field: <address> <register> <bitStart> <length> <value>",
	ArgsUsage: "<address> <register> <bitStart> <length> <value>",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 5 {
			return console.Exit(1, "expected 5 arguments, got %d", c.NArg())
		}
		addr, err := hex.DecodeString(c.Args().Get(0))
		if err != nil {
			return console.Exit(1, "could not decode address: %v", err)
		}
		reg, err := hex.DecodeString(c.Args().Get(1))
		if err != nil {
			return console.Exit(1, "could not decode register: %v", err)
		}
		bitStart, length, err := parseField(c.Args().Get(2), c.Args().Get(3))
		if err != nil {
			return console.Exit(1, "%v", err)
		}
		value, err := strconv.ParseUint(c.Args().Get(4), 0, 8)
		if err != nil {
			return console.Exit(1, "invalid value %q", c.Args().Get(4))
		}
		if !c.Bool("yes") {
			answer, err := console.YesOrNo(fmt.Sprintf("set bits [%d:%d] of register %#02x on device %#02x to %#b?",
				bitStart, bitStart-length+1, reg[0], addr[0], value))
			if err != nil {
				return console.Exit(1, "could not read answer: %v", err)
			}
			if answer != console.Yes {
				console.Infof("aborted")
				return nil
			}
		}
		r, err := openBus(c)
		if err != nil {
			return console.Exit(1, "could not open bus: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := r.WriteBits(ctx, addr[0], reg[0], bitStart, length, byte(value)); err != nil {
			return console.Exit(1, "bit field write failed: %v", err)
		}
		console.Infof("field updated")
		return nil
	},
}

func parseField(startArg, lengthArg string) (byte, byte, error) {
	bitStart, err := strconv.ParseUint(startArg, 10, 8)
	if err != nil || bitStart > 7 {
		return 0, 0, fmt.Errorf("invalid bit start %q (expected 0-7)", startArg)
	}
	length, err := strconv.ParseUint(lengthArg, 10, 8)
	if err != nil || length < 1 || length > bitStart+1 {
		return 0, 0, fmt.Errorf("invalid field length %q for bit start %d", lengthArg, bitStart)
	}
	return byte(bitStart), byte(length), nil
}
