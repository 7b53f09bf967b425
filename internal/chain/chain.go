// Package chain resolves a price by trying an ordered list of sources per
// asset class until one of them has a finite price.
package chain

import (
	"context"
	"log/slog"

	"pricequote/internal/fetcher"
)

// Chain holds the fixed provider order for each asset class
type Chain struct {
	routes map[fetcher.AssetClass][]fetcher.Source
}

// New creates an empty chain
func New() *Chain {
	return &Chain{routes: make(map[fetcher.AssetClass][]fetcher.Source)}
}

// Register appends sources, highest priority first, to the order for class.
// It is meant to be called during startup only.
func (c *Chain) Register(class fetcher.AssetClass, sources ...fetcher.Source) *Chain {
	c.routes[class] = append(c.routes[class], sources...)
	return c
}

// Order returns the source names for class in the order they are tried
func (c *Chain) Order(class fetcher.AssetClass) []string {
	names := make([]string, 0, len(c.routes[class]))
	for _, s := range c.routes[class] {
		names = append(names, s.Name())
	}
	return names
}

// Resolve tries each source for class sequentially and returns the first
// present price. Each source is called at most once and only after every
// higher-priority source came back absent. No sources, or all absent, yields
// Absent.
func (c *Chain) Resolve(ctx context.Context, class fetcher.AssetClass, symbol string) fetcher.Price {
	for _, src := range c.routes[class] {
		if ctx.Err() != nil {
			break
		}
		if p := src.FetchPrice(ctx, symbol); p.Valid() {
			slog.Debug("price resolved",
				"class", class.String(),
				"symbol", symbol,
				"source", src.Name())
			return p
		}
	}

	slog.Debug("no source had a price", "class", class.String(), "symbol", symbol)
	return fetcher.Absent
}
