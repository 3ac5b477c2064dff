package httpserver

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"titan-bot/internal/httputil"
	"titan-bot/internal/metrics"
	"titan-bot/internal/signal"
)

// HealthText is the liveness body served on GET /.
const HealthText = "TITAN BOT ONLINE (SINGLE SHOT MODE)"

// Handler serves the liveness and webhook routes.
type Handler struct {
	exec    Executor
	maxBody int64
}

type ignoredResponse struct {
	Status  string `json:"status"`
	Reason  string `json:"reason"`
	Ticker  string `json:"ticker"`
	TradeID string `json:"trade_id,omitempty"`
}

// Health answers GET / with HealthText.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, HealthText)
}

// Webhook decodes one signal and runs it. The venue answer is written back
// byte for byte.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	body := io.Reader(r.Body)
	if h.maxBody > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.WebhooksTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
			httputil.WriteJSON(w, http.StatusRequestEntityTooLarge, httputil.ErrorResponse{Error: "request body too large"})
			return
		}
		metrics.WebhooksTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "read body: " + err.Error()})
		return
	}

	sig, err := signal.Decode(bytes.NewReader(raw))
	if err != nil {
		log.Warn().Err(err).Msg("rejected webhook payload")
		metrics.WebhooksTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	log.Info().
		Str("ticker", sig.Ticker).
		Str("action", string(sig.Action)).
		Str("size_usd", sig.SizeUSD.String()).
		Str("trade_id", sig.TradeID).
		Msg("signal received")

	out, err := h.exec.Execute(r.Context(), sig)
	if err != nil {
		log.Error().Err(err).Str("ticker", sig.Ticker).Msg("signal failed")
		metrics.WebhooksTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	if out.Ignored {
		metrics.WebhooksTotal.WithLabelValues(metrics.OutcomeIgnored).Inc()
		httputil.WriteJSON(w, http.StatusOK, ignoredResponse{Status: "ignored", Reason: out.Reason, Ticker: sig.Ticker, TradeID: sig.TradeID})
		return
	}
	if out.Result == nil {
		metrics.WebhooksTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "no order result"})
		return
	}
	metrics.WebhooksTotal.WithLabelValues(metrics.OutcomeExecuted).Inc()
	httputil.WriteRaw(w, http.StatusOK, out.Result.Raw)
}
