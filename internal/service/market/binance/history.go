package binance

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/zedigital/trading-bot/internal/service/market"
)

var _ market.HistorySource = (*HistoryService)(nil)

// 币安现货交易对，key 为 CoinGecko coin id
var binanceSymbols = map[string]string{
	"bitcoin":       "BTCUSDT",
	"ethereum":      "ETHUSDT",
	"solana":        "SOLUSDT",
	"binancecoin":   "BNBUSDT",
	"cardano":       "ADAUSDT",
	"polkadot":      "DOTUSDT",
	"avalanche-2":   "AVAXUSDT",
	"matic-network": "MATICUSDT",
}

// HistoryService 基于币安K线的历史价格来源
// 与 CoinGecko 返回同样形态的序列（收盘价 + 收盘时间），可通过配置切换
type HistoryService struct {
	cli *binance.Client
}

func NewHistoryService(cli *binance.Client) *HistoryService {
	return &HistoryService{cli: cli}
}

func (svc *HistoryService) History(ctx context.Context, coinID string, days int) ([]market.PricePoint, error) {
	symbol, ok := binanceSymbols[coinID]
	if !ok {
		return nil, fmt.Errorf("no binance symbol for coin: %s", coinID)
	}

	// 与 CoinGecko 的粒度对齐：90天以上日线，否则小时线
	interval := "1h"
	if days > 90 {
		interval = "1d"
	}

	startTime := time.Now().AddDate(0, 0, -days)
	klines, err := svc.cli.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		StartTime(startTime.UnixMilli()).
		Limit(1500).
		Do(ctx)
	if err != nil {
		return nil, err
	}

	points := make([]market.PricePoint, 0, len(klines))
	for _, k := range klines {
		price, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("parse kline close %q: %w", k.Close, err)
		}
		points = append(points, market.PricePoint{
			Timestamp: time.UnixMilli(k.CloseTime),
			Price:     price,
		})
	}
	return points, nil
}
