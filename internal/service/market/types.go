package market

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CoinMeta 支持的币种元信息
type CoinMeta struct {
	Symbol string
	Name   string
}

// SupportedCoins CoinGecko coin id -> 元信息
var SupportedCoins = map[string]CoinMeta{
	"bitcoin":       {Symbol: "BTC", Name: "Bitcoin"},
	"ethereum":      {Symbol: "ETH", Name: "Ethereum"},
	"solana":        {Symbol: "SOL", Name: "Solana"},
	"binancecoin":   {Symbol: "BNB", Name: "BNB"},
	"cardano":       {Symbol: "ADA", Name: "Cardano"},
	"polkadot":      {Symbol: "DOT", Name: "Polkadot"},
	"avalanche-2":   {Symbol: "AVAX", Name: "Avalanche"},
	"matic-network": {Symbol: "MATIC", Name: "Polygon"},
}

func IsSupported(coinID string) bool {
	_, ok := SupportedCoins[coinID]
	return ok
}

// CoinPrice 单个币种的实时行情
type CoinPrice struct {
	ID        string
	Symbol    string
	Name      string
	PriceUsd  decimal.Decimal
	Change24h float64
	Volume24h float64
	MarketCap float64
}

// PricePoint 历史价格序列中的一个点
// 指标计算只使用 Price，Timestamp 用于成交记录打点
type PricePoint struct {
	Timestamp time.Time
	Price     float64
}

// Overview 全市场概览
type Overview struct {
	TotalMarketCapUsd      float64
	TotalVolume24hUsd      float64
	BtcDominance           float64
	EthDominance           float64
	ActiveCryptocurrencies int64
	MarketCapChange24h     float64
}

// PriceSource 实时价格来源
type PriceSource interface {
	Prices(ctx context.Context) (map[string]CoinPrice, error)
}

// HistorySource 历史价格序列来源
type HistorySource interface {
	History(ctx context.Context, coinID string, days int) ([]PricePoint, error)
}
