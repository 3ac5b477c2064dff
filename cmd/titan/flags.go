package main

import (
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"titan-bot/internal/config"
	"titan-bot/internal/util"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "YAML config file; empty reads the environment only",
		EnvVars: []string{"TITAN_CONFIG"},
	}
	consoleFlag = &cli.BoolFlag{
		Name:  "console",
		Usage: "human readable logs instead of JSON",
	}
)

func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String(configFlag.Name); path != "" {
		return config.Load(path)
	}
	return config.FromEnv()
}

func newLogger(c *cli.Context, level string) zerolog.Logger {
	if c.Bool(consoleFlag.Name) {
		return util.NewConsoleLogger(level)
	}
	return util.NewLogger(level)
}
