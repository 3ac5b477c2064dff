package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"titan-bot/internal/config"
)

var initCommand = &cli.Command{
	Action:    initConfig,
	Name:      "init",
	Usage:     "Write a config file with the default settings",
	ArgsUsage: "[path]",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "force", Usage: "overwrite an existing file"},
	},
}

// initConfig writes defaults without any secrets; keys stay in the environment.
func initConfig(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		path = "config.yaml"
	}
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := config.Save(path, config.Default()); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.App.Writer, "wrote %s\n", path)
	return nil
}
