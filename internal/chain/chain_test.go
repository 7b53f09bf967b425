package chain

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"pricequote/internal/fetcher"
	"pricequote/internal/testutil"
)

func mockSource(ctrl *gomock.Controller, name string) *testutil.MockSource {
	m := testutil.NewMockSource(ctrl)
	m.EXPECT().Name().Return(name).AnyTimes()
	return m
}

func TestResolve_FirstSourceWins(t *testing.T) {
	ctrl := gomock.NewController(t)
	first := mockSource(ctrl, "first")
	second := mockSource(ctrl, "second")

	first.EXPECT().FetchPrice(gomock.Any(), "AAPL").Return(fetcher.Some(178.23))
	second.EXPECT().FetchPrice(gomock.Any(), gomock.Any()).Times(0)

	c := New().Register(fetcher.Stock, first, second)
	assert.Equal(t, fetcher.Some(178.23), c.Resolve(context.Background(), fetcher.Stock, "AAPL"))
}

func TestResolve_FallsBackInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	first := mockSource(ctrl, "first")
	second := mockSource(ctrl, "second")
	third := mockSource(ctrl, "third")

	gomock.InOrder(
		first.EXPECT().FetchPrice(gomock.Any(), "AAPL").Return(fetcher.Absent),
		second.EXPECT().FetchPrice(gomock.Any(), "AAPL").Return(fetcher.Some(177.9)),
	)
	third.EXPECT().FetchPrice(gomock.Any(), gomock.Any()).Times(0)

	c := New().Register(fetcher.Stock, first, second, third)
	assert.Equal(t, fetcher.Some(177.9), c.Resolve(context.Background(), fetcher.Stock, "AAPL"))
}

func TestResolve_AllAbsent(t *testing.T) {
	ctrl := gomock.NewController(t)
	first := mockSource(ctrl, "first")
	second := mockSource(ctrl, "second")

	first.EXPECT().FetchPrice(gomock.Any(), "NOPE").Return(fetcher.Absent).Times(1)
	second.EXPECT().FetchPrice(gomock.Any(), "NOPE").Return(fetcher.Absent).Times(1)

	c := New().Register(fetcher.Stock, first, second)
	assert.False(t, c.Resolve(context.Background(), fetcher.Stock, "NOPE").Valid())
}

func TestResolve_NonFiniteIsSkipped(t *testing.T) {
	first := testutil.NewStaticSource("nan", fetcher.Some(math.NaN()))
	second := testutil.NewStaticSource("ok", fetcher.Some(1.25))

	c := New().Register(fetcher.Crypto, first, second)
	got := c.Resolve(context.Background(), fetcher.Crypto, "DOGE")

	v, ok := got.Float64()
	assert.True(t, ok)
	assert.Equal(t, 1.25, v)
	assert.EqualValues(t, 1, first.Calls())
}

func TestResolve_RoutesByClass(t *testing.T) {
	stock := testutil.NewStaticSource("stock", fetcher.Some(10))
	crypto := testutil.NewStaticSource("crypto", fetcher.Some(20))

	c := New().
		Register(fetcher.Stock, stock).
		Register(fetcher.Crypto, crypto)

	assert.Equal(t, fetcher.Some(20), c.Resolve(context.Background(), fetcher.Crypto, "BTC"))
	assert.EqualValues(t, 0, stock.Calls())
	assert.Equal(t, []string{"stock"}, c.Order(fetcher.Stock))
	assert.Equal(t, []string{"crypto"}, c.Order(fetcher.Crypto))
}

func TestResolve_NoSources(t *testing.T) {
	c := New()
	assert.False(t, c.Resolve(context.Background(), fetcher.Stock, "AAPL").Valid())
	assert.Empty(t, c.Order(fetcher.Stock))
}

func TestResolve_CanceledContextStops(t *testing.T) {
	ctrl := gomock.NewController(t)
	first := mockSource(ctrl, "first")
	first.EXPECT().FetchPrice(gomock.Any(), gomock.Any()).Times(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New().Register(fetcher.Stock, first)
	assert.False(t, c.Resolve(ctx, fetcher.Stock, "AAPL").Valid())
}
