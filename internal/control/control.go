// Package control implements the kill switch that gates all trading.
package control

import (
	"context"
	"strings"

	"titan-bot/internal/config"
)

// Switch reports the raw kill switch value.
type Switch interface {
	Status(ctx context.Context) (string, error)
}

// Enabled reports whether status allows trading.
func Enabled(status string) bool {
	return strings.ToUpper(strings.TrimSpace(status)) == config.StatusStart
}

// Gate adapts a Switch to the executor's enabled check.
type Gate struct {
	Switch Switch
}

// Enabled reads the switch and reports whether trading is allowed.
func (g Gate) Enabled(ctx context.Context) (bool, error) {
	status, err := g.Switch.Status(ctx)
	if err != nil {
		return false, err
	}
	return Enabled(status), nil
}

// Static is a switch fixed at startup.
type Static string

// Status returns the configured value.
func (s Static) Status(context.Context) (string, error) { return string(s), nil }
