package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"titan-bot/internal/config"
	"titan-bot/internal/control"
	"titan-bot/internal/execution"
	"titan-bot/internal/httpserver"
	"titan-bot/internal/hyperliquid"
	"titan-bot/internal/metrics"
	"titan-bot/internal/paper"
	"titan-bot/internal/risk"
)

const shutdownTimeout = 10 * time.Second

var serveCommand = &cli.Command{
	Action: serve,
	Name:   "serve",
	Usage:  "Run the webhook server",
}

// service is everything the HTTP server needs, built from one config.
type service struct {
	handler http.Handler
	closers []io.Closer
	// paper and ledger are set in paper mode only.
	paper  *paper.Venue
	ledger *paper.Ledger
	log    zerolog.Logger
}

func (s *service) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func apiBase(cfg *config.Config) string {
	if cfg.Exchange.BaseURL != "" {
		return cfg.Exchange.BaseURL
	}
	return hyperliquid.APIURL(cfg.Exchange.Network)
}

func (s *service) newVenue(cfg *config.Config, client *hyperliquid.Client) (execution.Venue, error) {
	log := s.log
	if cfg.Exchange.Mode == config.ModePaper {
		s.ledger = paper.NewLedger(cfg.Paper.LedgerCapacity)
		recorders := []paper.FillRecorder{s.ledger}
		if cfg.Paper.FillsPath != "" {
			rec, err := paper.NewJSONLRecorder(cfg.Paper.FillsPath)
			if err != nil {
				return nil, fmt.Errorf("paper fills: %w", err)
			}
			recorders = append(recorders, rec)
			s.closers = append(s.closers, rec)
		}
		log.Warn().
			Str("fills", cfg.Paper.FillsPath).
			Float64("max_position", cfg.Paper.MaxPosition).
			Msg("paper trading: orders are simulated")
		account := paper.NewAccount(decimal.NewFromFloat(cfg.Paper.MaxPosition))
		s.paper = paper.NewVenue(client, account, log.With().Str("component", "paper").Logger(), recorders...)
		return s.paper, nil
	}

	signer, err := hyperliquid.NewSigner(cfg.Exchange.PrivateKey)
	if err != nil {
		return nil, err
	}
	ex := hyperliquid.NewExchange(client, signer, cfg.Exchange.AccountAddress, cfg.IsMainnet(), log.With().Str("component", "exchange").Logger())
	log.Info().
		Str("signer", signer.Address()).
		Str("account", ex.Account()).
		Str("network", cfg.Exchange.Network).
		Msg("live trading")
	return ex, nil
}

// report logs the paper account marked to current mids. Live mode has nothing to report.
func (s *service) report(ctx context.Context) {
	if s.paper == nil {
		return
	}
	mids, err := s.paper.AllMids(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("paper report: no mids, positions unmarked")
	}
	snap := s.paper.Account().Snapshot(mids)
	for coin, pos := range snap.Positions {
		s.log.Info().
			Str("coin", coin).
			Str("size", pos.Size.String()).
			Str("entry_px", pos.EntryPx.String()).
			Str("unrealized_pnl", pos.Unrealized.String()).
			Msg("paper position")
	}
	s.log.Info().
		Str("realized_pnl", snap.RealizedPnL.String()).
		Str("unrealized_pnl", snap.UnrealizedPnL.String()).
		Int("positions", len(snap.Positions)).
		Int("fills", len(s.ledger.Snapshot())).
		Int("resting", len(s.paper.Resting())).
		Msg("paper account")
}

func newService(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*service, error) {
	svc := &service{log: log}
	client := hyperliquid.NewClient(apiBase(cfg), time.Duration(cfg.Exchange.TimeoutMs)*time.Millisecond, log.With().Str("component", "hyperliquid").Logger())
	venue, err := svc.newVenue(cfg, client)
	if err != nil {
		return nil, err
	}
	sw, err := control.New(ctx, cfg.Switch, log.With().Str("component", "switch").Logger())
	if err != nil {
		return nil, err
	}
	exec := execution.NewExecutor(venue, control.Gate{Switch: sw}, execution.Options{
		Slippage:       cfg.Exchange.Slippage,
		SizeDecimals:   cfg.Exchange.SizeDecimals,
		SinglePosition: !cfg.Risk.AllowStacking,
		Limits:         risk.Limits{MaxNotionalPerTrade: cfg.Risk.MaxNotionalPerTrade},
	}, log)
	svc.handler = httpserver.NewRouter(httpserver.RouterDeps{
		Executor:     exec,
		Log:          log,
		RateLimit:    cfg.App.RateLimit,
		RateBurst:    cfg.App.RateBurst,
		MaxBodyBytes: cfg.App.MaxBodyBytes,
	})
	return svc, nil
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := newLogger(c, cfg.App.LogLevel)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := ossignal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	servers := []*http.Server{{Addr: cfg.Addr(), Handler: svc.handler, ReadHeaderTimeout: 10 * time.Second}}
	if cfg.App.MetricsAddr != "" {
		servers = append(servers, metrics.NewServer(cfg.App.MetricsAddr))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			log.Info().Str("addr", srv.Addr).Msg("listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Str("addr", srv.Addr).Msg("shutdown")
			}
		}
		svc.report(shutdownCtx)
		return nil
	})
	return g.Wait()
}
