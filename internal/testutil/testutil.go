package testutil

import (
	"context"
	"sync/atomic"

	"pricequote/internal/fetcher"
)

//go:generate mockgen -destination=mock_source.go -package=testutil pricequote/internal/fetcher Source

// FuncSource is a hand-rolled fetcher.Source for tests that need custom
// behavior per call, such as a price that changes over time
type FuncSource struct {
	SourceName     string
	FetchPriceFunc func(ctx context.Context, symbol string) fetcher.Price

	calls atomic.Int64
}

// Name implements fetcher.Source
func (s *FuncSource) Name() string {
	if s.SourceName != "" {
		return s.SourceName
	}
	return "func"
}

// FetchPrice implements fetcher.Source
func (s *FuncSource) FetchPrice(ctx context.Context, symbol string) fetcher.Price {
	s.calls.Add(1)
	if s.FetchPriceFunc != nil {
		return s.FetchPriceFunc(ctx, symbol)
	}
	return fetcher.Absent
}

// Calls returns how many times FetchPrice ran
func (s *FuncSource) Calls() int64 {
	return s.calls.Load()
}

// NewStaticSource creates a source that prices every symbol with value
func NewStaticSource(name string, value fetcher.Price) *FuncSource {
	return &FuncSource{
		SourceName: name,
		FetchPriceFunc: func(ctx context.Context, symbol string) fetcher.Price {
			return value
		},
	}
}
