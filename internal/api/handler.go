package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"pricequote/internal/fetcher"
	"pricequote/internal/service"
)

// PriceGetter is the lookup the HTTP layer needs
type PriceGetter interface {
	GetPrice(ctx context.Context, classRaw, symbolRaw string) (service.Quote, error)
}

// ProviderOrder reports which sources are tried per asset class
type ProviderOrder interface {
	Order(class fetcher.AssetClass) []string
}

type quoteResponse struct {
	Symbol string        `json:"symbol"`
	Type   string        `json:"type"`
	Price  fetcher.Price `json:"price"`
	Cached bool          `json:"cached,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type internalErrorResponse struct {
	Error string        `json:"error"`
	Price fetcher.Price `json:"price"`
}

type healthResponse struct {
	Status    string              `json:"status"`
	Providers map[string][]string `json:"providers,omitempty"`
}

// NewHandler returns the HTTP API:
//
//	GET /api/quote?symbol=AAPL&type=stock
//	GET /healthz
func NewHandler(prices PriceGetter, order ProviderOrder) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/quote", func(w http.ResponseWriter, r *http.Request) {
		handleQuote(w, r, prices)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		handleHealth(w, order)
	})

	return logRequests(withJSONHeaders(recoverPanic(mux)))
}

func handleQuote(w http.ResponseWriter, r *http.Request, prices PriceGetter) {
	q := r.URL.Query()

	quote, err := prices.GetPrice(r.Context(), q.Get("type"), q.Get("symbol"))
	switch {
	case errors.Is(err, service.ErrMissingSymbol):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	case err != nil:
		slog.Error("quote lookup failed", "symbol", q.Get("symbol"), "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, internalErrorResponse{Error: err.Error(), Price: fetcher.Absent})
		return
	}

	writeJSON(w, http.StatusOK, quoteResponse{
		Symbol: quote.Symbol,
		Type:   quote.Class.String(),
		Price:  quote.Price,
		Cached: quote.Cached,
	})
}

func handleHealth(w http.ResponseWriter, order ProviderOrder) {
	resp := healthResponse{Status: "ok"}
	if order != nil {
		resp.Providers = map[string][]string{
			fetcher.Stock.String():  order.Order(fetcher.Stock),
			fetcher.Crypto.String(): order.Order(fetcher.Crypto),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Debug("failed to write response", "error", err.Error())
	}
}
