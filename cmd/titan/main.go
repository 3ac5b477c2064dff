package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
)

var app *cli.App

func init() {
	app = &cli.App{
		Name:    filepath.Base(os.Args[0]),
		Usage:   "forward trading alert webhooks to Hyperliquid",
		Version: "1.0.0",
	}

	app.Commands = []*cli.Command{
		serveCommand,
		midsCommand,
		initCommand,
	}
	app.Flags = []cli.Flag{
		configFlag,
		consoleFlag,
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
