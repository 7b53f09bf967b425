package yahoo

import (
	"context"

	"resty.dev/v3"

	"pricequote/internal/fetcher"
)

// rawValue is Yahoo's {"raw": 1.23, "fmt": "1.23"} number wrapper
type rawValue struct {
	Raw *float64 `json:"raw"`
}

// SummaryResponse represents the v10 quoteSummary payload with modules=price
type SummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			Price struct {
				RegularMarketPrice rawValue `json:"regularMarketPrice"`
				PostMarketPrice    rawValue `json:"postMarketPrice"`
				PreMarketPrice     rawValue `json:"preMarketPrice"`
			} `json:"price"`
		} `json:"result"`
	} `json:"quoteSummary"`
}

// SummaryClient reads the quoteSummary price module
type SummaryClient struct {
	client *resty.Client
}

// NewSummaryClient creates a quoteSummary source against baseURL (query1 host)
func NewSummaryClient(baseURL string, opts fetcher.ClientOptions) *SummaryClient {
	return &SummaryClient{client: fetcher.NewHTTPClient(baseURL, opts)}
}

// Name implements fetcher.Source
func (c *SummaryClient) Name() string {
	return "yahoo-summary"
}

// FetchPrice implements fetcher.Source
func (c *SummaryClient) FetchPrice(ctx context.Context, symbol string) fetcher.Price {
	v, err := c.fetch(ctx, symbol)
	return fetcher.Settle(c.Name(), symbol, v, err)
}

func (c *SummaryClient) fetch(ctx context.Context, symbol string) (float64, error) {
	var result SummaryResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParam("modules", "price").
		SetResult(&result).
		Get("/v10/finance/quoteSummary/{symbol}")
	if err := fetcher.CheckResponse(resp, err); err != nil {
		return 0, err
	}

	if len(result.QuoteSummary.Result) == 0 {
		return 0, fetcher.NewValidationError("no summary returned for " + symbol)
	}

	p := result.QuoteSummary.Result[0].Price
	v, ok := fetcher.FirstFinite(
		p.RegularMarketPrice.Raw,
		p.PostMarketPrice.Raw,
		p.PreMarketPrice.Raw,
	).Float64()
	if !ok {
		return 0, fetcher.NewValidationError("price not found in summary for " + symbol)
	}
	return v, nil
}
