package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultBaseURL = "https://api.coingecko.com/api/v3"

const (
	DefaultPriceTTL   = 30 * time.Second
	DefaultHistoryTTL = 5 * time.Minute
)

var _ PriceSource = (*CoinGeckoService)(nil)
var _ HistorySource = (*CoinGeckoService)(nil)

// CoinGeckoService CoinGecko 行情客户端
// 价格与历史各自带 TTL 缓存；上游限流或失败时回退到最近一次成功的数据
type CoinGeckoService struct {
	cli     *http.Client
	baseURL string

	priceTTL   time.Duration
	historyTTL time.Duration

	priceMu       sync.RWMutex
	priceCache    map[string]CoinPrice
	priceCachedAt time.Time

	historyMu    sync.RWMutex
	historyCache map[string]historyEntry

	overviewMu       sync.RWMutex
	overviewCache    *Overview
	overviewCachedAt time.Time
}

type historyEntry struct {
	points   []PricePoint
	cachedAt time.Time
}

type Option func(*CoinGeckoService)

func WithBaseURL(baseURL string) Option {
	return func(svc *CoinGeckoService) {
		svc.baseURL = baseURL
	}
}

func WithTTL(priceTTL, historyTTL time.Duration) Option {
	return func(svc *CoinGeckoService) {
		svc.priceTTL = priceTTL
		svc.historyTTL = historyTTL
	}
}

func NewCoinGeckoService(opts ...Option) *CoinGeckoService {
	svc := &CoinGeckoService{
		cli:          &http.Client{Timeout: 15 * time.Second},
		baseURL:      DefaultBaseURL,
		priceTTL:     DefaultPriceTTL,
		historyTTL:   DefaultHistoryTTL,
		historyCache: make(map[string]historyEntry),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Prices 全部支持币种的实时行情
func (svc *CoinGeckoService) Prices(ctx context.Context) (map[string]CoinPrice, error) {
	svc.priceMu.RLock()
	if svc.priceCache != nil && time.Since(svc.priceCachedAt) < svc.priceTTL {
		cached := svc.priceCache
		svc.priceMu.RUnlock()
		return cached, nil
	}
	svc.priceMu.RUnlock()

	ids := make([]string, 0, len(SupportedCoins))
	for id := range SupportedCoins {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	reqURL := fmt.Sprintf(
		"%s/simple/price?ids=%s&vs_currencies=usd&include_24hr_change=true&include_24hr_vol=true&include_market_cap=true",
		svc.baseURL, url.QueryEscape(strings.Join(ids, ",")),
	)

	var raw map[string]map[string]float64
	if err := svc.getJSON(ctx, reqURL, &raw); err != nil {
		// 回退到最近一次成功的行情
		svc.priceMu.RLock()
		cached := svc.priceCache
		svc.priceMu.RUnlock()
		if cached != nil {
			slog.Warn("price fetch failed, serving stale cache", "err", err)
			return cached, nil
		}
		return nil, err
	}

	result := make(map[string]CoinPrice, len(raw))
	for coinID, info := range raw {
		meta := SupportedCoins[coinID]
		result[coinID] = CoinPrice{
			ID:        coinID,
			Symbol:    meta.Symbol,
			Name:      meta.Name,
			PriceUsd:  decimal.NewFromFloat(info["usd"]),
			Change24h: info["usd_24h_change"],
			Volume24h: info["usd_24h_vol"],
			MarketCap: info["usd_market_cap"],
		}
	}

	svc.priceMu.Lock()
	svc.priceCache = result
	svc.priceCachedAt = time.Now()
	svc.priceMu.Unlock()
	return result, nil
}

// History 指定币种最近 days 天的价格序列，按时间正序
func (svc *CoinGeckoService) History(ctx context.Context, coinID string, days int) ([]PricePoint, error) {
	cacheKey := fmt.Sprintf("%s_%d", coinID, days)

	svc.historyMu.RLock()
	if entry, ok := svc.historyCache[cacheKey]; ok && time.Since(entry.cachedAt) < svc.historyTTL {
		svc.historyMu.RUnlock()
		return entry.points, nil
	}
	svc.historyMu.RUnlock()

	reqURL := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=usd&days=%d",
		svc.baseURL, url.PathEscape(coinID), days)

	var raw struct {
		Prices [][2]float64 `json:"prices"`
	}
	if err := svc.getJSON(ctx, reqURL, &raw); err != nil {
		svc.historyMu.RLock()
		entry, ok := svc.historyCache[cacheKey]
		svc.historyMu.RUnlock()
		if ok {
			slog.Warn("history fetch failed, serving stale cache", "coin", coinID, "err", err)
			return entry.points, nil
		}
		return nil, err
	}

	points := make([]PricePoint, len(raw.Prices))
	for i, p := range raw.Prices {
		points[i] = PricePoint{
			Timestamp: time.UnixMilli(int64(p[0])),
			Price:     p[1],
		}
	}

	svc.historyMu.Lock()
	svc.historyCache[cacheKey] = historyEntry{points: points, cachedAt: time.Now()}
	svc.historyMu.Unlock()
	return points, nil
}

// MarketOverview 全市场概览
func (svc *CoinGeckoService) MarketOverview(ctx context.Context) (Overview, error) {
	svc.overviewMu.RLock()
	if svc.overviewCache != nil && time.Since(svc.overviewCachedAt) < svc.priceTTL {
		cached := *svc.overviewCache
		svc.overviewMu.RUnlock()
		return cached, nil
	}
	svc.overviewMu.RUnlock()

	var raw struct {
		Data struct {
			TotalMarketCap         map[string]float64 `json:"total_market_cap"`
			TotalVolume            map[string]float64 `json:"total_volume"`
			MarketCapPercentage    map[string]float64 `json:"market_cap_percentage"`
			ActiveCryptocurrencies int64              `json:"active_cryptocurrencies"`
			MarketCapChange24h     float64            `json:"market_cap_change_percentage_24h_usd"`
		} `json:"data"`
	}
	if err := svc.getJSON(ctx, svc.baseURL+"/global", &raw); err != nil {
		svc.overviewMu.RLock()
		cached := svc.overviewCache
		svc.overviewMu.RUnlock()
		if cached != nil {
			return *cached, nil
		}
		return Overview{}, err
	}

	overview := Overview{
		TotalMarketCapUsd:      raw.Data.TotalMarketCap["usd"],
		TotalVolume24hUsd:      raw.Data.TotalVolume["usd"],
		BtcDominance:           raw.Data.MarketCapPercentage["btc"],
		EthDominance:           raw.Data.MarketCapPercentage["eth"],
		ActiveCryptocurrencies: raw.Data.ActiveCryptocurrencies,
		MarketCapChange24h:     raw.Data.MarketCapChange24h,
	}

	svc.overviewMu.Lock()
	svc.overviewCache = &overview
	svc.overviewCachedAt = time.Now()
	svc.overviewMu.Unlock()
	return overview, nil
}

func (svc *CoinGeckoService) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := svc.cli.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("rate limited by upstream")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
