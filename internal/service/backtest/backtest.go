// Package backtest 在历史价格序列上回放策略
// 使用独立的模拟资金池，不触碰实盘账本
package backtest

import (
	"errors"
	"math"
	"time"

	"github.com/zedigital/trading-bot/internal/service/market"
	"github.com/zedigital/trading-bot/internal/service/strategy"
)

var ErrInsufficientHistory = errors.New("need at least 60 data points for backtesting")

const (
	// MinDataPoints 回测最少需要的价格点数
	MinDataPoints = 60

	// minLookback 起始K线下标，给最长的指标窗口留够历史
	minLookback = 55

	// windowSize 每根K线评估信号时回看的最大长度，与实时信号行为一致（只用过去数据）
	windowSize = 200

	// maxEquityPoints 返回的资金曲线最多采样点数
	maxEquityPoints = 200

	// maxTradeRecords 返回的成交记录上限（保留最近的）
	maxTradeRecords = 20

	// tradingDaysPerYear 夏普比率年化系数
	tradingDaysPerYear = 252
)

// TradeRecord 模拟成交
type TradeRecord struct {
	Type       strategy.Action
	Price      float64
	Amount     float64
	Timestamp  time.Time
	Confidence float64 // 买入时的信号置信度
	Pnl        float64 // 卖出时的已实现盈亏
}

// Result 一次完整回测的产出
type Result struct {
	Strategy       string
	InitialCapital float64
	FinalValue     float64
	TotalReturn    float64 // 百分比
	MaxDrawdown    float64 // 百分比
	SharpeRatio    float64
	TotalTrades    int
	Wins           int
	Losses         int
	WinRate        float64 // 百分比
	ProfitFactor   float64
	EquityCurve    []float64
	Trades         []TradeRecord
}

// Run 对历史序列逐K线回放策略
// 买入条件：buy 信号且置信度 > 0.4 且当前空仓，投入资金比例 0.1 + confidence*0.15
// 卖出条件：sell 信号且持仓中，全部清仓
func Run(strategyID string, prices []market.PricePoint, initialCapital float64, params strategy.Params) (Result, error) {
	if len(prices) < MinDataPoints {
		return Result{}, ErrInsufficientHistory
	}

	capital := initialCapital
	position := 0.0
	entryPrice := 0.0
	var equityCurve []float64
	var trades []TradeRecord
	wins, losses := 0, 0
	totalProfit, totalLoss := 0.0, 0.0

	for i := minLookback; i < len(prices); i++ {
		start := i - windowSize
		if start < 0 {
			start = 0
		}
		window := prices[start : i+1]
		sig := strategy.Evaluate(strategyID, window, params)

		currentPrice := prices[i].Price
		portfolioValue := capital + position*currentPrice

		if sig.Action == strategy.ActionBuy && sig.Confidence > 0.4 && position == 0 {
			riskFraction := 0.1 + sig.Confidence*0.15
			invest := capital * riskFraction
			position = invest / currentPrice
			capital -= invest
			entryPrice = currentPrice
			trades = append(trades, TradeRecord{
				Type:       strategy.ActionBuy,
				Price:      roundTo(currentPrice, 2),
				Amount:     roundTo(position, 6),
				Timestamp:  prices[i].Timestamp,
				Confidence: sig.Confidence,
			})
		} else if sig.Action == strategy.ActionSell && position > 0 {
			proceeds := position * currentPrice
			capital += proceeds
			pnl := (currentPrice - entryPrice) * position
			if pnl > 0 {
				wins++
				totalProfit += pnl
			} else {
				losses++
				totalLoss += math.Abs(pnl)
			}
			trades = append(trades, TradeRecord{
				Type:      strategy.ActionSell,
				Price:     roundTo(currentPrice, 2),
				Amount:    roundTo(position, 6),
				Timestamp: prices[i].Timestamp,
				Pnl:       roundTo(pnl, 2),
			})
			position = 0.0
			entryPrice = 0.0
		}

		equityCurve = append(equityCurve, roundTo(portfolioValue, 2))
	}

	finalValue := capital + position*prices[len(prices)-1].Price
	totalReturn := (finalValue - initialCapital) / initialCapital * 100

	totalTrades := wins + losses
	winRate := 0.0
	if totalTrades > 0 {
		winRate = float64(wins) / float64(totalTrades) * 100
	}
	profitFactor := 0.0
	if totalLoss > 0 {
		profitFactor = totalProfit / totalLoss
	} else if totalProfit > 0 {
		profitFactor = 999
	}

	return Result{
		Strategy:       strategyID,
		InitialCapital: initialCapital,
		FinalValue:     roundTo(finalValue, 2),
		TotalReturn:    roundTo(totalReturn, 2),
		MaxDrawdown:    roundTo(maxDrawdown(equityCurve, initialCapital)*100, 2),
		SharpeRatio:    roundTo(sharpeRatio(equityCurve), 2),
		TotalTrades:    totalTrades,
		Wins:           wins,
		Losses:         losses,
		WinRate:        roundTo(winRate, 1),
		ProfitFactor:   roundTo(profitFactor, 2),
		EquityCurve:    downsample(equityCurve, maxEquityPoints),
		Trades:         lastN(trades, maxTradeRecords),
	}, nil
}

// maxDrawdown 资金曲线上最大的峰值到谷底相对跌幅
func maxDrawdown(equityCurve []float64, initialCapital float64) float64 {
	peak := initialCapital
	maxDD := 0.0
	for _, val := range equityCurve {
		if val > peak {
			peak = val
		}
		dd := (peak - val) / peak
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// sharpeRatio 相邻K线收益率的均值/标准差，按252个交易日年化
// 无收益或零波动时为0
func sharpeRatio(equityCurve []float64) float64 {
	var returns []float64
	for i := 1; i < len(equityCurve); i++ {
		if equityCurve[i-1] > 0 {
			returns = append(returns, (equityCurve[i]-equityCurve[i-1])/equityCurve[i-1])
		}
	}
	if len(returns) == 0 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))
	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(tradingDaysPerYear)
}

// downsample 均匀抽样到最多 maxPoints 个点，保证包含最后一个值
func downsample(curve []float64, maxPoints int) []float64 {
	if len(curve) == 0 {
		return curve
	}
	step := len(curve) / maxPoints
	if step < 1 {
		step = 1
	}
	var sampled []float64
	for i := 0; i < len(curve); i += step {
		sampled = append(sampled, curve[i])
	}
	if sampled[len(sampled)-1] != curve[len(curve)-1] {
		sampled = append(sampled, curve[len(curve)-1])
	}
	return sampled
}

func lastN(trades []TradeRecord, n int) []TradeRecord {
	if len(trades) <= n {
		return trades
	}
	return trades[len(trades)-n:]
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
