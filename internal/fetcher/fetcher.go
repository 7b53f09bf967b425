package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// AssetClass selects which provider chain resolves a symbol.
type AssetClass string

const (
	// Stock is an exchange-listed equity or fund
	Stock AssetClass = "stock"
	// Crypto is a cryptocurrency quoted in USD
	Crypto AssetClass = "crypto"
)

// ParseAssetClass maps a raw type token to an AssetClass.
// Matching is case-insensitive and anything unrecognized, including the
// empty string, is treated as Stock.
func ParseAssetClass(raw string) AssetClass {
	if strings.ToLower(strings.TrimSpace(raw)) == string(Crypto) {
		return Crypto
	}
	return Stock
}

// String implements fmt.Stringer
func (c AssetClass) String() string {
	return string(c)
}

// Source is the core interface that every price provider client implements.
// A Source never reports upstream failures as errors: transport problems,
// bad status codes and malformed bodies all come back as an absent Price so
// the caller can move on to the next provider.
type Source interface {
	// Name identifies the provider in logs, e.g. "yahoo-quote".
	Name() string

	// FetchPrice returns the current USD price for symbol, or Absent.
	FetchPrice(ctx context.Context, symbol string) Price
}

// Settle converts the outcome of a single upstream call into a Price.
// Failures are logged at debug level and reported as Absent.
func Settle(source, symbol string, value float64, err error) Price {
	if err != nil {
		attrs := []any{"source", source, "symbol", symbol, "error", err.Error()}
		var fe *FetchError
		if errors.As(err, &fe) {
			attrs = append(attrs, "error_type", string(fe.Type))
		}
		slog.Debug("price source returned no data", attrs...)
		return Absent
	}
	return Some(value)
}
