package coordinator

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"pricequote/internal/service"
)

// PriceGetter resolves one symbol
type PriceGetter interface {
	GetPrice(ctx context.Context, classRaw, symbolRaw string) (service.Quote, error)
}

// Item is one symbol to look up
type Item struct {
	Symbol string
	Type   string
}

// ParseItem parses "SYMBOL" or "type:SYMBOL", e.g. "crypto:BTC"
func ParseItem(arg string) Item {
	if class, symbol, ok := strings.Cut(arg, ":"); ok {
		return Item{Symbol: symbol, Type: class}
	}
	return Item{Symbol: arg}
}

// Result is the outcome of looking up one Item
type Result struct {
	Item  Item
	Quote service.Quote
	Err   error
}

// Coordinator looks up a batch of symbols one at a time with a pause between
// calls, keeping bursts within upstream free-tier limits
type Coordinator struct {
	prices PriceGetter
	pause  time.Duration
	out    io.Writer
}

// New creates a new Coordinator. Results are printed to out as they arrive.
func New(prices PriceGetter, pause time.Duration, out io.Writer) *Coordinator {
	return &Coordinator{
		prices: prices,
		pause:  pause,
		out:    out,
	}
}

// Run resolves items sequentially and prints results in the format:
//   - Success: "TYPE:SYMBOL: $VALUE"
//   - No data: "TYPE:SYMBOL: n/a"
//   - Error: "SYMBOL: ERROR - error message"
//
// Cached results skip the pause since they made no upstream call.
func (c *Coordinator) Run(ctx context.Context, items []Item) ([]Result, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("no symbols to look up")
	}

	results := make([]Result, 0, len(items))
	for i, item := range items {
		quote, err := c.prices.GetPrice(ctx, item.Type, item.Symbol)
		results = append(results, Result{Item: item, Quote: quote, Err: err})
		c.print(item, quote, err)

		if i == len(items)-1 || c.pause <= 0 || (err == nil && quote.Cached) {
			continue
		}
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		case <-time.After(c.pause):
		}
	}

	return results, nil
}

func (c *Coordinator) print(item Item, quote service.Quote, err error) {
	if c.out == nil {
		return
	}
	if err != nil {
		fmt.Fprintf(c.out, "%s: ERROR - %v\n", item.Symbol, err)
		return
	}
	suffix := ""
	if quote.Cached {
		suffix = " (cached)"
	}
	fmt.Fprintf(c.out, "%s:%s: %s%s\n", quote.Class, quote.Symbol, quote.Price, suffix)
}
