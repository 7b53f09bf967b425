// Package coingecko prices cryptocurrencies through the CoinGecko API.
// CoinGecko addresses coins by id ("bitcoin") rather than ticker ("BTC"), so
// every lookup first goes through a Resolver.
package coingecko

import (
	"context"
	"log/slog"
	"strings"

	"resty.dev/v3"

	"pricequote/internal/fetcher"
)

// knownIDs maps common tickers to CoinGecko ids. Tickers are not unique on
// CoinGecko, so pinning the popular ones avoids both a search round-trip and
// picking an impostor token.
var knownIDs = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"SOL":  "solana",
	"ADA":  "cardano",
	"DOGE": "dogecoin",
	"XRP":  "ripple",
	"LTC":  "litecoin",
	"USDT": "tether",
	"USDC": "usd-coin",
	"BNB":  "binancecoin",
	"DOT":  "polkadot",
	"AVAX": "avalanche-2",
}

// SearchResponse represents the /search payload; only coins are used
type SearchResponse struct {
	Coins []struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	} `json:"coins"`
}

// Resolver maps tickers to CoinGecko coin ids
type Resolver struct {
	client *resty.Client
}

// NewResolver creates a resolver that searches through client on a static
// table miss
func NewResolver(client *resty.Client) *Resolver {
	return &Resolver{client: client}
}

// KnownID reports the pinned id for symbol, if any
func KnownID(symbol string) (string, bool) {
	id, ok := knownIDs[strings.ToUpper(symbol)]
	return id, ok
}

// ResolveID returns the coin id for symbol. Unknown tickers fall back to a
// search query; a failed search or one with no exact ticker match is absent.
func (r *Resolver) ResolveID(ctx context.Context, symbol string) (string, bool) {
	if id, ok := KnownID(symbol); ok {
		return id, true
	}

	id, err := r.search(ctx, symbol)
	if err != nil {
		slog.Debug("coin id search failed", "symbol", symbol, "error", err.Error())
		return "", false
	}
	return id, id != ""
}

func (r *Resolver) search(ctx context.Context, symbol string) (string, error) {
	var result SearchResponse

	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("query", symbol).
		SetResult(&result).
		Get("/search")
	if err := fetcher.CheckResponse(resp, err); err != nil {
		return "", err
	}

	for _, coin := range result.Coins {
		if strings.EqualFold(coin.Symbol, symbol) && coin.ID != "" {
			return coin.ID, nil
		}
	}
	return "", nil
}
