package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/i2cdev/adapter"
	"github.com/mklimuk/i2cdev/cmd/i2cdev/console"
)

var statusCmd = cli.Command{
	Name:  "status",
	Usage: "dump the mcp2221 adapter state",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "release",
			Usage: "cancel any pending transfer and release the bus lines",
		},
	},
	Action: func(c *cli.Context) error {
		mcp2221 := adapter.NewMCP2221()
		ctx, cancel := context.WithTimeout(console.SetVerbose(context.Background(), c.Bool("verbose")), 30*time.Second)
		defer cancel()
		var status *adapter.MCP2221Status
		var err error
		if c.Bool("release") {
			status, err = mcp2221.ReleaseBus(ctx)
		} else {
			status, err = mcp2221.Status(ctx)
		}
		if err != nil {
			return console.Exit(1, "could not read adapter status: %v", err)
		}
		dump, err := yaml.Marshal(status)
		if err != nil {
			return console.Exit(1, "could not format status: %v", err)
		}
		console.Print(string(dump))
		pins, err := mcp2221.GetGPIOParameters(ctx)
		if err != nil {
			return console.Exit(1, "could not read pin configuration: %v", err)
		}
		dump, err = yaml.Marshal(pins)
		if err != nil {
			return console.Exit(1, "could not format pin configuration: %v", err)
		}
		console.Print(string(dump))
		return nil
	},
}
