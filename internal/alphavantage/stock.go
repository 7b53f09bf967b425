package alphavantage

import (
	"context"
	"fmt"
	"strconv"

	"resty.dev/v3"

	"pricequote/internal/fetcher"
)

// GlobalQuoteResponse represents the AlphaVantage API response for stock quotes
type GlobalQuoteResponse struct {
	GlobalQuote struct {
		Symbol           string `json:"01. symbol"`
		Open             string `json:"02. open"`
		High             string `json:"03. high"`
		Low              string `json:"04. low"`
		Price            string `json:"05. price"`
		Volume           string `json:"06. volume"`
		LatestTradingDay string `json:"07. latest trading day"`
		PreviousClose    string `json:"08. previous close"`
		Change           string `json:"09. change"`
		ChangePercent    string `json:"10. change percent"`
	} `json:"Global Quote"`

	// Note and Information are set instead of a quote when the key is
	// throttled or invalid
	Note        string `json:"Note"`
	Information string `json:"Information"`
}

// StockClient fetches stock prices from AlphaVantage
type StockClient struct {
	apiKey string
	client *resty.Client
}

// NewStockClient creates a new stock price source. An empty apiKey yields a
// client that reports every symbol as absent without calling upstream.
func NewStockClient(apiKey, baseURL string, opts fetcher.ClientOptions) *StockClient {
	return &StockClient{
		apiKey: apiKey,
		client: fetcher.NewHTTPClient(baseURL, opts),
	}
}

// Name implements fetcher.Source
func (c *StockClient) Name() string {
	return "alphavantage"
}

// FetchPrice implements fetcher.Source
func (c *StockClient) FetchPrice(ctx context.Context, symbol string) fetcher.Price {
	if c.apiKey == "" {
		return fetcher.Absent
	}
	v, err := c.fetch(ctx, symbol)
	return fetcher.Settle(c.Name(), symbol, v, err)
}

func (c *StockClient) fetch(ctx context.Context, symbol string) (float64, error) {
	var result GlobalQuoteResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"apikey":   c.apiKey,
			"function": "GLOBAL_QUOTE",
			"symbol":   symbol,
		}).
		SetResult(&result).
		Get("")
	if err := fetcher.CheckResponse(resp, err); err != nil {
		return 0, err
	}

	if result.Note != "" {
		return 0, &fetcher.FetchError{
			Type:      fetcher.ErrorTypeRateLimit,
			Retryable: true,
			Message:   result.Note,
		}
	}

	if result.GlobalQuote.Price == "" {
		return 0, fetcher.NewValidationError(fmt.Sprintf("price not found in response for %s", symbol))
	}

	price, err := strconv.ParseFloat(result.GlobalQuote.Price, 64)
	if err != nil {
		return 0, &fetcher.FetchError{
			Type:    fetcher.ErrorTypeValidation,
			Message: "failed to parse stock price",
			Cause:   err,
		}
	}

	return price, nil
}
