package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"pricequote/internal/fetcher"
)

// API represents the different external APIs we interact with
type API string

const (
	// APIYahoo represents the Yahoo Finance endpoints (shared by all three
	// Yahoo sources)
	APIYahoo API = "yahoo"
	// APIAlphaVantage represents the AlphaVantage API
	APIAlphaVantage API = "alphavantage"
	// APICoinGecko represents the CoinGecko API
	APICoinGecko API = "coingecko"
)

// Limiter manages rate limits for different APIs
type Limiter struct {
	limiters map[API]*rate.Limiter
	mu       sync.RWMutex
}

// New creates a limiter with one token bucket per API. A limit of rate.Inf
// or an API missing from limits is not limited.
func New(limits map[API]rate.Limit) *Limiter {
	l := &Limiter{
		limiters: make(map[API]*rate.Limiter, len(limits)),
	}
	for api, lim := range limits {
		l.limiters[api] = rate.NewLimiter(lim, 1)
	}
	return l
}

// Wait blocks until the rate limiter permits an event for the given API
// It returns an error if the context is canceled before the event can proceed,
// or immediately if the wait would outlast the context's deadline
func (l *Limiter) Wait(ctx context.Context, api API) error {
	l.mu.RLock()
	limiter, exists := l.limiters[api]
	l.mu.RUnlock()

	if !exists {
		// If no limiter exists for this API, allow the request without limiting
		return nil
	}

	return limiter.Wait(ctx)
}

// Allow reports whether an event for the given API may happen now
func (l *Limiter) Allow(api API) bool {
	l.mu.RLock()
	limiter, exists := l.limiters[api]
	l.mu.RUnlock()

	if !exists {
		// If no limiter exists for this API, allow the request
		return true
	}

	return limiter.Allow()
}

// Source gates src behind the bucket for api. A call that cannot get a token
// within maxWait is reported as absent rather than queued.
func (l *Limiter) Source(api API, maxWait time.Duration, src fetcher.Source) fetcher.Source {
	return &limitedSource{
		api:     api,
		maxWait: maxWait,
		limiter: l,
		next:    src,
	}
}

type limitedSource struct {
	api     API
	maxWait time.Duration
	limiter *Limiter
	next    fetcher.Source
}

func (s *limitedSource) Name() string {
	return s.next.Name()
}

func (s *limitedSource) FetchPrice(ctx context.Context, symbol string) fetcher.Price {
	waitCtx := ctx
	if s.maxWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.maxWait)
		defer cancel()
	}

	if err := s.limiter.Wait(waitCtx, s.api); err != nil {
		return fetcher.Settle(s.Name(), symbol, 0, &fetcher.FetchError{
			Type:      fetcher.ErrorTypeRateLimit,
			Retryable: true,
			Message:   "local rate limit for " + string(s.api),
			Cause:     err,
		})
	}
	return s.next.FetchPrice(ctx, symbol)
}
