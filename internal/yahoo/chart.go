package yahoo

import (
	"context"

	"resty.dev/v3"

	"pricequote/internal/fetcher"
)

// ChartResponse represents the v8 chart payload. Closes are nullable because
// minutes without trades are reported as null.
type ChartResponse struct {
	Chart struct {
		Result []struct {
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

// ChartClient reads the intraday time series and reports the most recent
// close
type ChartClient struct {
	client *resty.Client
}

// NewChartClient creates a chart source against baseURL (query1 host)
func NewChartClient(baseURL string, opts fetcher.ClientOptions) *ChartClient {
	return &ChartClient{client: fetcher.NewHTTPClient(baseURL, opts)}
}

// Name implements fetcher.Source
func (c *ChartClient) Name() string {
	return "yahoo-chart"
}

// FetchPrice implements fetcher.Source
func (c *ChartClient) FetchPrice(ctx context.Context, symbol string) fetcher.Price {
	v, err := c.fetch(ctx, symbol)
	return fetcher.Settle(c.Name(), symbol, v, err)
}

func (c *ChartClient) fetch(ctx context.Context, symbol string) (float64, error) {
	var result ChartResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParams(map[string]string{
			"range":    "1d",
			"interval": "1m",
		}).
		SetResult(&result).
		Get("/v8/finance/chart/{symbol}")
	if err := fetcher.CheckResponse(resp, err); err != nil {
		return 0, err
	}

	if len(result.Chart.Result) == 0 || len(result.Chart.Result[0].Indicators.Quote) == 0 {
		return 0, fetcher.NewValidationError("no chart series returned for " + symbol)
	}

	v, ok := LastClose(result.Chart.Result[0].Indicators.Quote[0].Close).Float64()
	if !ok {
		return 0, fetcher.NewValidationError("no close in chart series for " + symbol)
	}
	return v, nil
}

// LastClose scans closes from the most recent entry backward and returns the
// first finite value
func LastClose(closes []*float64) fetcher.Price {
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i] == nil {
			continue
		}
		if p := fetcher.Some(*closes[i]); p.Valid() {
			return p
		}
	}
	return fetcher.Absent
}
