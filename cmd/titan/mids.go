package main

import (
	"context"
	"errors"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"titan-bot/internal/hyperliquid"
)

var midsCommand = &cli.Command{
	Action:    mids,
	Name:      "mids",
	Usage:     "Stream mid prices over the websocket",
	ArgsUsage: "[coin...]",
}

// filterMids keeps the requested coins; no coins keeps everything.
func filterMids(prices map[string]decimal.Decimal, coins []string) map[string]decimal.Decimal {
	if len(coins) == 0 {
		return prices
	}
	out := make(map[string]decimal.Decimal, len(coins))
	for _, coin := range coins {
		if px, ok := prices[coin]; ok {
			out[coin] = px
		}
	}
	return out
}

func mids(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := newLogger(c, cfg.App.LogLevel)

	url := cfg.Exchange.WSURL
	if url == "" {
		url = hyperliquid.WSURL(apiBase(cfg))
	}
	coins := c.Args().Slice()

	ctx, stop := ossignal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	stream := hyperliquid.NewMidStream(url, log)
	out := make(chan hyperliquid.Mids, 16)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return stream.Run(gctx, out) })
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case m := <-out:
				prices := filterMids(m.Prices, coins)
				if len(coins) == 0 {
					log.Info().Int("coins", len(prices)).Time("ts", m.Ts).Msg("mids")
					continue
				}
				ev := log.Info().Time("ts", m.Ts)
				for coin, px := range prices {
					ev = ev.Str(coin, px.String())
				}
				ev.Msg("mids")
			}
		}
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
