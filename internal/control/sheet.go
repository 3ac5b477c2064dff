package control

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"titan-bot/internal/config"
)

// ErrNoSheet is returned when the sheet switch is selected without a sheet id.
var ErrNoSheet = errors.New("missing GOOGLE_SHEET_ID")

// Sheet reads the switch value from a single spreadsheet cell on every call.
type Sheet struct {
	values  *sheets.SpreadsheetsValuesService
	sheetID string
	rng     string
	timeout time.Duration
	log     zerolog.Logger
}

// NewSheet builds a sheet-backed switch. Credentials come from cfg unless opts
// already carry them.
func NewSheet(ctx context.Context, cfg config.Switch, log zerolog.Logger, opts ...option.ClientOption) (*Sheet, error) {
	if cfg.SheetID == "" {
		return nil, ErrNoSheet
	}
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	opts = append(opts, option.WithScopes(sheets.SpreadsheetsReadonlyScope))
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	rng := cfg.Range
	if rng == "" {
		rng = "A1"
	}
	return &Sheet{
		values:  srv.Spreadsheets.Values,
		sheetID: cfg.SheetID,
		rng:     rng,
		timeout: 10 * time.Second,
		log:     log,
	}, nil
}

// Status returns the first cell of the configured range. An empty range reads
// as an empty status, which never enables trading.
func (s *Sheet) Status(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	vr, err := s.values.Get(s.sheetID, s.rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("read switch cell: %w", err)
	}
	status := ""
	if len(vr.Values) > 0 && len(vr.Values[0]) > 0 {
		status = fmt.Sprint(vr.Values[0][0])
	}
	s.log.Debug().Str("range", s.rng).Str("status", status).Msg("kill switch read")
	return status, nil
}

// New selects the switch implementation named by cfg.Mode.
func New(ctx context.Context, cfg config.Switch, log zerolog.Logger) (Switch, error) {
	switch cfg.Mode {
	case config.SwitchSheet:
		return NewSheet(ctx, cfg, log)
	case config.SwitchStatic, "":
		return Static(cfg.Status), nil
	default:
		return nil, fmt.Errorf("unknown switch mode %q", cfg.Mode)
	}
}
