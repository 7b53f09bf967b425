package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricequote/internal/cache"
	"pricequote/internal/chain"
	"pricequote/internal/fetcher"
	"pricequote/internal/service"
	"pricequote/internal/testutil"
)

type stubGetter struct {
	quote service.Quote
	err   error
	panic bool
}

func (s stubGetter) GetPrice(ctx context.Context, classRaw, symbolRaw string) (service.Quote, error) {
	if s.panic {
		panic("unexpected")
	}
	return s.quote, s.err
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return rr, body
}

func newRealHandler(sources ...fetcher.Source) (http.Handler, *chain.Chain) {
	c := chain.New().Register(fetcher.Stock, sources...)
	return NewHandler(service.New(cache.New(time.Minute), c), c), c
}

func TestQuote_Success(t *testing.T) {
	h, _ := newRealHandler(testutil.NewStaticSource("static", fetcher.Some(178.23)))

	rr, body := get(t, h, "/api/quote?symbol=aapl&type=stock")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "AAPL", body["symbol"])
	assert.Equal(t, "stock", body["type"])
	assert.Equal(t, 178.23, body["price"])
	assert.NotContains(t, body, "cached")
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
}

func TestQuote_CachedFlag(t *testing.T) {
	src := testutil.NewStaticSource("static", fetcher.Some(10))
	h, _ := newRealHandler(src)

	get(t, h, "/api/quote?symbol=AAPL")
	rr, body := get(t, h, "/api/quote?symbol=AAPL")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, body["cached"])
	assert.EqualValues(t, 1, src.Calls())
}

func TestQuote_NullPriceIs200(t *testing.T) {
	h, _ := newRealHandler(
		testutil.NewStaticSource("a", fetcher.Absent),
		testutil.NewStaticSource("b", fetcher.Absent),
	)

	rr, body := get(t, h, "/api/quote?symbol=NOPE&type=stock")
	assert.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, body, "price")
	assert.Nil(t, body["price"])
}

func TestQuote_MissingSymbol(t *testing.T) {
	src := testutil.NewStaticSource("static", fetcher.Some(1))
	h, _ := newRealHandler(src)

	for _, target := range []string{"/api/quote?type=stock", "/api/quote?symbol=", "/api/quote?symbol=%20%20"} {
		rr, body := get(t, h, target)
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
		assert.Equal(t, "missing symbol", body["error"])
	}
	assert.Zero(t, src.Calls())
}

func TestQuote_InternalError(t *testing.T) {
	h := NewHandler(stubGetter{err: &service.InternalError{Cause: "bad state"}}, nil)

	rr, body := get(t, h, "/api/quote?symbol=AAPL")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "internal error: bad state", body["error"])
	require.Contains(t, body, "price")
	assert.Nil(t, body["price"])
}

func TestQuote_PanicRecovered(t *testing.T) {
	h := NewHandler(stubGetter{panic: true}, nil)

	rr, body := get(t, h, "/api/quote?symbol=AAPL")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "unexpected", body["error"])
	assert.Nil(t, body["price"])
}

func TestQuote_MethodNotAllowed(t *testing.T) {
	h := NewHandler(stubGetter{}, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/quote?symbol=AAPL", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestQuote_Preflight(t *testing.T) {
	h := NewHandler(stubGetter{}, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/api/quote", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealth(t *testing.T) {
	h, _ := newRealHandler(
		testutil.NewStaticSource("yahoo-quote", fetcher.Absent),
		testutil.NewStaticSource("yahoo-chart", fetcher.Absent),
	)

	rr, body := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", body["status"])

	providers, ok := body["providers"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"yahoo-quote", "yahoo-chart"}, providers["stock"])
	assert.Equal(t, []any{}, providers["crypto"])
}
