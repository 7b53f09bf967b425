// Package service is the entry point for price lookups: it validates input,
// serves fresh cached prices and otherwise resolves through the provider
// chain, caching whatever comes back.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"golang.org/x/sync/singleflight"

	"pricequote/internal/cache"
	"pricequote/internal/fetcher"
)

// ErrMissingSymbol is returned when the symbol is empty after trimming
var ErrMissingSymbol = errors.New("missing symbol")

// InternalError reports a defect during resolution, as opposed to a provider
// having no data
type InternalError struct {
	Cause any
}

// Error implements the error interface
func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %v", e.Cause)
}

// Resolver finds a price for a symbol of a given asset class
type Resolver interface {
	Resolve(ctx context.Context, class fetcher.AssetClass, symbol string) fetcher.Price
}

// Quote is the outcome of a lookup
type Quote struct {
	Symbol string
	Class  fetcher.AssetClass
	Price  fetcher.Price
	// Cached is set when the price came from the cache without any provider
	// call
	Cached bool
}

// Service resolves prices through a shared cache
type Service struct {
	cache    *cache.Cache
	resolver Resolver
	inflight singleflight.Group
}

// New creates a service. The cache is owned by the caller and may be shared,
// but only the service writes to it.
func New(c *cache.Cache, r Resolver) *Service {
	return &Service{
		cache:    c,
		resolver: r,
	}
}

// GetPrice returns the price for symbolRaw in asset class classRaw.
// The symbol is trimmed and uppercased; the class is case-insensitive and
// defaults to stock. The only errors are ErrMissingSymbol and *InternalError;
// a symbol nobody can price is a Quote with an absent Price.
func (s *Service) GetPrice(ctx context.Context, classRaw, symbolRaw string) (Quote, error) {
	symbol := strings.ToUpper(strings.TrimSpace(symbolRaw))
	if symbol == "" {
		return Quote{}, ErrMissingSymbol
	}
	class := fetcher.ParseAssetClass(classRaw)
	key := cache.Key{Class: class, Symbol: symbol}

	if p, ok := s.cache.Get(key); ok {
		return Quote{Symbol: symbol, Class: class, Price: p, Cached: true}, nil
	}

	// Concurrent misses for the same key share one resolution. The shared
	// call must not die with whichever caller started it, so cancellation is
	// detached; every provider call has its own timeout.
	v, err, shared := s.inflight.Do(key.String(), func() (any, error) {
		return s.resolve(context.WithoutCancel(ctx), key)
	})
	if err != nil {
		return Quote{}, err
	}
	if shared {
		slog.Debug("joined in-flight resolution", "key", key.String())
	}

	return Quote{Symbol: symbol, Class: class, Price: v.(fetcher.Price)}, nil
}

// resolve runs the chain and stores the result, absent included
func (s *Service) resolve(ctx context.Context, key cache.Key) (p fetcher.Price, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("price resolution panicked",
				"key", key.String(),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
			err = &InternalError{Cause: r}
		}
	}()

	p = s.resolver.Resolve(ctx, key.Class, key.Symbol)
	s.cache.Put(key, p)
	return p, nil
}
