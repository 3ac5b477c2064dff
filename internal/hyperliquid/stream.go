package hyperliquid

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"titan-bot/internal/metrics"
)

const (
	pingInterval = 50 * time.Second
	readTimeout  = 70 * time.Second
	maxBackoff   = 30 * time.Second
)

// Mids is one allMids snapshot.
type Mids struct {
	Prices map[string]decimal.Decimal
	Ts     time.Time
}

type wsSubscribe struct {
	Method       string            `json:"method"`
	Subscription map[string]string `json:"subscription"`
}

type wsEnvelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type allMidsData struct {
	Mids map[string]decimal.Decimal `json:"mids"`
}

// MidStream follows the allMids websocket channel, reconnecting with backoff.
type MidStream struct {
	url string
	log zerolog.Logger
}

// NewMidStream follows the allMids channel at url.
func NewMidStream(url string, log zerolog.Logger) *MidStream {
	return &MidStream{url: url, log: log}
}

// Run pushes snapshots onto out until the context is canceled.
func (s *MidStream) Run(ctx context.Context, out chan<- Mids) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := s.consume(ctx, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Warn().Err(err).Dur("backoff", backoff).Msg("mid stream disconnected, retrying")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
	}
}

func (s *MidStream) consume(ctx context.Context, out chan<- Mids) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := wsSubscribe{Method: "subscribe", Subscription: map[string]string{"type": "allMids"}}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}
	s.log.Info().Str("url", s.url).Msg("subscribed to allMids")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(readTimeout))

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	writeErr := make(chan error, 1)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteJSON(map[string]string{"method": "ping"}); err != nil {
					writeErr <- err
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()
	go func() {
		<-pingCtx.Done()
		// unblocks ReadMessage
		conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-writeErr:
			return err
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		var env wsEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			s.log.Warn().Err(err).Msg("failed to decode websocket message")
			continue
		}
		if env.Channel != "allMids" {
			continue
		}
		var data allMidsData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			s.log.Warn().Err(err).Msg("invalid allMids payload")
			continue
		}
		select {
		case out <- Mids{Prices: data.Mids, Ts: time.Now()}:
			metrics.MidsTotal.Inc()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
