package market

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPricesParsesAndCaches(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.URL.Path, "/simple/price"))
		hits.Add(1)
		fmt.Fprint(w, `{"bitcoin":{"usd":50000.5,"usd_24h_change":2.5,"usd_24h_vol":1e9,"usd_market_cap":1e12}}`)
	}))
	defer srv.Close()

	svc := NewCoinGeckoService(WithBaseURL(srv.URL), WithTTL(time.Minute, time.Minute))
	ctx := context.Background()

	prices, err := svc.Prices(ctx)
	require.NoError(t, err)
	require.Contains(t, prices, "bitcoin")

	btc := prices["bitcoin"]
	assert.Equal(t, "BTC", btc.Symbol)
	assert.Equal(t, "Bitcoin", btc.Name)
	assert.Equal(t, "50000.5", btc.PriceUsd.String())
	assert.Equal(t, 2.5, btc.Change24h)

	// TTL 内命中缓存，不打上游
	_, err = svc.Prices(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), hits.Load())
}

func TestPricesStaleFallbackOnRateLimit(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) > 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"bitcoin":{"usd":50000,"usd_24h_change":1,"usd_24h_vol":1,"usd_market_cap":1}}`)
	}))
	defer srv.Close()

	// TTL 为0，每次都打上游
	svc := NewCoinGeckoService(WithBaseURL(srv.URL), WithTTL(0, 0))
	ctx := context.Background()

	first, err := svc.Prices(ctx)
	require.NoError(t, err)

	// 上游限流，应回退到最近一次成功的数据
	second, err := svc.Prices(ctx)
	require.NoError(t, err)
	assert.Equal(t, first["bitcoin"].PriceUsd.String(), second["bitcoin"].PriceUsd.String())
}

func TestPricesErrorWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := NewCoinGeckoService(WithBaseURL(srv.URL))
	_, err := svc.Prices(context.Background())
	require.Error(t, err)
}

func TestHistoryParsesAndCachesPerKey(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		require.True(t, strings.HasPrefix(r.URL.Path, "/coins/bitcoin/market_chart"))
		fmt.Fprint(w, `{"prices":[[1700000000000,50000],[1700003600000,50100]]}`)
	}))
	defer srv.Close()

	svc := NewCoinGeckoService(WithBaseURL(srv.URL), WithTTL(time.Minute, time.Minute))
	ctx := context.Background()

	points, err := svc.History(ctx, "bitcoin", 30)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 50000.0, points[0].Price)
	assert.Equal(t, time.UnixMilli(1700000000000), points[0].Timestamp)
	assert.True(t, points[0].Timestamp.Before(points[1].Timestamp))

	// 同币种同天数命中缓存
	_, err = svc.History(ctx, "bitcoin", 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), hits.Load())

	// 不同天数是独立的缓存键
	_, err = svc.History(ctx, "bitcoin", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), hits.Load())
}

func TestHistoryStaleFallback(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) > 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"prices":[[1700000000000,50000]]}`)
	}))
	defer srv.Close()

	svc := NewCoinGeckoService(WithBaseURL(srv.URL), WithTTL(0, 0))
	ctx := context.Background()

	first, err := svc.History(ctx, "bitcoin", 30)
	require.NoError(t, err)

	second, err := svc.History(ctx, "bitcoin", 30)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMarketOverview(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/global", r.URL.Path)
		fmt.Fprint(w, `{"data":{"total_market_cap":{"usd":2.5e12},"total_volume":{"usd":9e10},
			"market_cap_percentage":{"btc":52.1,"eth":17.3},
			"active_cryptocurrencies":12000,"market_cap_change_percentage_24h_usd":-1.2}}`)
	}))
	defer srv.Close()

	svc := NewCoinGeckoService(WithBaseURL(srv.URL))
	overview, err := svc.MarketOverview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2.5e12, overview.TotalMarketCapUsd)
	assert.Equal(t, 52.1, overview.BtcDominance)
	assert.Equal(t, int64(12000), overview.ActiveCryptocurrencies)
	assert.Equal(t, -1.2, overview.MarketCapChange24h)
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("bitcoin"))
	assert.True(t, IsSupported("matic-network"))
	assert.False(t, IsSupported("dogecoin"))
}
