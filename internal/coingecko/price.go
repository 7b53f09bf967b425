package coingecko

import (
	"context"
	"fmt"

	"resty.dev/v3"

	"pricequote/internal/fetcher"
)

// SimplePriceResponse represents /simple/price: {"bitcoin": {"usd": 67000.12}}
type SimplePriceResponse map[string]map[string]*float64

// PriceClient fetches USD prices by ticker, resolving the ticker to a coin id
// first
type PriceClient struct {
	client   *resty.Client
	resolver *Resolver
}

// NewPriceClient creates a crypto price source. When apiKey is set it is sent
// as a demo API key.
func NewPriceClient(baseURL, apiKey string, opts fetcher.ClientOptions) *PriceClient {
	if apiKey != "" {
		headers := make(map[string]string, len(opts.Headers)+1)
		for k, v := range opts.Headers {
			headers[k] = v
		}
		headers["x-cg-demo-api-key"] = apiKey
		opts.Headers = headers
	}

	client := fetcher.NewHTTPClient(baseURL, opts)
	return &PriceClient{
		client:   client,
		resolver: NewResolver(client),
	}
}

// Name implements fetcher.Source
func (c *PriceClient) Name() string {
	return "coingecko"
}

// Resolver exposes the ticker resolver sharing this client's connection
func (c *PriceClient) Resolver() *Resolver {
	return c.resolver
}

// FetchPrice implements fetcher.Source
func (c *PriceClient) FetchPrice(ctx context.Context, symbol string) fetcher.Price {
	id, ok := c.resolver.ResolveID(ctx, symbol)
	if !ok {
		return fetcher.Absent
	}
	v, err := c.fetchByID(ctx, id)
	return fetcher.Settle(c.Name(), symbol, v, err)
}

func (c *PriceClient) fetchByID(ctx context.Context, id string) (float64, error) {
	var result SimplePriceResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":           id,
			"vs_currencies": "usd",
		}).
		SetResult(&result).
		Get("/simple/price")
	if err := fetcher.CheckResponse(resp, err); err != nil {
		return 0, err
	}

	usd := result[id]["usd"]
	if usd == nil {
		return 0, fetcher.NewValidationError(fmt.Sprintf("usd price not found for %s", id))
	}
	return *usd, nil
}
