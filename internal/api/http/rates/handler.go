// Package rates exposes the gateway over HTTP. The handlers stay thin:
// parse, call the gateway, map errors to status codes.
package rates

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"currency-gateway/internal"
	"currency-gateway/internal/gateway"
	"currency-gateway/internal/upstream"
)

type Handler struct {
	gateway *gateway.Gateway
	log     *slog.Logger
}

func New(g *gateway.Gateway, log *slog.Logger) *Handler {
	return &Handler{gateway: g, log: log}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/api/v1/currency/rates/latest", h.latest)
	r.Post("/api/v1/currency/convert", h.convert)
	r.Get("/api/v1/currency/rates/historical", h.historical)
}

type apiResponse struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	TraceID   string    `json:"traceId,omitempty"`
}

func (h *Handler) latest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	base := r.URL.Query().Get("base")
	if base == "" {
		base = "EUR"
	}
	providerID := internal.ParseProviderIdentity(r.URL.Query().Get("provider"))

	snap, err := h.gateway.GetLatest(ctx, internal.CurrencyCode(base), providerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeData(w, r, http.StatusOK, snap)
}

func (h *Handler) convert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var q internal.ConversionQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		h.writeFailure(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	providerID := internal.ParseProviderIdentity(r.URL.Query().Get("provider"))

	result, found, err := h.gateway.Convert(ctx, q, providerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !found {
		h.writeFailure(w, r, http.StatusNotFound, "conversion not possible with provided currencies")
		return
	}

	h.writeData(w, r, http.StatusOK, result)
}

func (h *Handler) historical(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	base := query.Get("base")
	if base == "" {
		base = "EUR"
	}

	start, err := internal.ParseDate(query.Get("startDate"))
	if err != nil {
		h.writeFailure(w, r, http.StatusBadRequest, "invalid startDate")
		return
	}
	end, err := internal.ParseDate(query.Get("endDate"))
	if err != nil {
		h.writeFailure(w, r, http.StatusBadRequest, "invalid endDate")
		return
	}

	page, err := intParam(query.Get("page"), 1)
	if err != nil {
		h.writeFailure(w, r, http.StatusBadRequest, "invalid page")
		return
	}
	pageSize, err := intParam(query.Get("pageSize"), 10)
	if err != nil {
		h.writeFailure(w, r, http.StatusBadRequest, "invalid pageSize")
		return
	}

	q := internal.HistoricalQuery{
		Base:     internal.CurrencyCode(base),
		Start:    start,
		End:      end,
		Page:     page,
		PageSize: pageSize,
	}
	providerID := internal.ParseProviderIdentity(query.Get("provider"))

	result, err := h.gateway.GetHistorical(ctx, q, providerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeData(w, r, http.StatusOK, result)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *internal.ValidationError
	switch {
	case errors.As(err, &ve):
		h.writeFailure(w, r, http.StatusBadRequest, ve.Message)
	case errors.Is(err, upstream.ErrCircuitOpen):
		h.writeFailure(w, r, http.StatusServiceUnavailable, "rate provider temporarily unavailable")
	default:
		h.log.Error("gateway call failed", "error", err, "path", r.URL.Path)
		h.writeFailure(w, r, http.StatusBadGateway, "rate provider unavailable")
	}
}

func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.write(w, r, status, apiResponse{
		Success:   false,
		Error:     msg,
		Timestamp: time.Now().UTC(),
		TraceID:   upstream.TraceID(r.Context()),
	})
}

func (h *Handler) writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	h.write(w, r, status, apiResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
		TraceID:   upstream.TraceID(r.Context()),
	})
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, status int, resp apiResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error("encode response", "error", err, "path", r.URL.Path)
	}
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
