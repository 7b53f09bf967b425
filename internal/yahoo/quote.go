// Package yahoo implements stock price sources backed by the public Yahoo
// Finance endpoints. Three independent response shapes are covered so that
// one being throttled, deprecated or partial does not leave a symbol unpriced.
package yahoo

import (
	"context"

	"resty.dev/v3"

	"pricequote/internal/fetcher"
)

// QuoteResponse represents the v7 finance/quote payload
type QuoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol             string   `json:"symbol"`
			RegularMarketPrice *float64 `json:"regularMarketPrice"`
			PostMarketPrice    *float64 `json:"postMarketPrice"`
			PreMarketPrice     *float64 `json:"preMarketPrice"`
			Ask                *float64 `json:"ask"`
			Bid                *float64 `json:"bid"`
			PreviousClose      *float64 `json:"regularMarketPreviousClose"`
		} `json:"result"`
	} `json:"quoteResponse"`
}

// QuoteClient reads the direct quote endpoint
type QuoteClient struct {
	client *resty.Client
}

// NewQuoteClient creates a quote source against baseURL (query2 host)
func NewQuoteClient(baseURL string, opts fetcher.ClientOptions) *QuoteClient {
	return &QuoteClient{client: fetcher.NewHTTPClient(baseURL, opts)}
}

// Name implements fetcher.Source
func (c *QuoteClient) Name() string {
	return "yahoo-quote"
}

// FetchPrice implements fetcher.Source
func (c *QuoteClient) FetchPrice(ctx context.Context, symbol string) fetcher.Price {
	v, err := c.fetch(ctx, symbol)
	return fetcher.Settle(c.Name(), symbol, v, err)
}

func (c *QuoteClient) fetch(ctx context.Context, symbol string) (float64, error) {
	var result QuoteResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbols": symbol,
			"region":  "US",
			"lang":    "en-US",
		}).
		SetResult(&result).
		Get("/v7/finance/quote")
	if err := fetcher.CheckResponse(resp, err); err != nil {
		return 0, err
	}

	if len(result.QuoteResponse.Result) == 0 {
		return 0, fetcher.NewValidationError("no quote returned for " + symbol)
	}

	q := result.QuoteResponse.Result[0]
	price := fetcher.FirstFinite(
		q.RegularMarketPrice,
		q.PostMarketPrice,
		q.PreMarketPrice,
		q.Ask,
		q.Bid,
		q.PreviousClose,
	)
	v, ok := price.Float64()
	if !ok {
		return 0, fetcher.NewValidationError("price not found in quote for " + symbol)
	}
	return v, nil
}
