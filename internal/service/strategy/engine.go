package strategy

import (
	"fmt"
	"math"

	"github.com/zedigital/trading-bot/internal/service/indicator"
	"github.com/zedigital/trading-bot/internal/service/market"
)

// Evaluate 对价格序列执行指定策略，返回方向建议
// 未知的策略ID不报错，返回 hold/置信度0（只读查询的软失败策略）
func Evaluate(strategyID string, prices []market.PricePoint, overrides Params) Signal {
	def, ok := Lookup(strategyID)
	if !ok {
		return Signal{
			Action:     ActionHold,
			Confidence: 0,
			Reason:     fmt.Sprintf("Unknown strategy: %s", strategyID),
		}
	}
	params := def.merged(overrides)

	switch strategyID {
	case IDMACrossover:
		return maCrossoverSignal(prices, params)
	case IDRSI:
		return rsiSignal(prices, params)
	case IDMACD:
		return macdSignal(prices, params)
	case IDBollingerBands:
		return bollingerSignal(prices, params)
	default:
		// Lookup 已兜底，到不了这里
		return holdSignal(0, fmt.Sprintf("Unknown strategy: %s", strategyID))
	}
}

func maCrossoverSignal(prices []market.PricePoint, params Params) Signal {
	shortPeriod := int(params["short_period"])
	longPeriod := int(params["long_period"])
	if len(prices) < longPeriod+2 {
		return holdSignal(0, "Insufficient data")
	}

	data := closes(prices)
	shortMA := indicator.SMA(data, shortPeriod)
	longMA := indicator.SMA(data, longPeriod)

	currentShort := shortMA[len(shortMA)-1]
	currentLong := longMA[len(longMA)-1]
	prevShort := shortMA[len(shortMA)-2]
	prevLong := longMA[len(longMA)-2]

	if math.IsNaN(currentShort) || math.IsNaN(currentLong) {
		return holdSignal(0, "Insufficient data for MAs")
	}

	spread := (currentShort - currentLong) / currentLong * 100
	fields := map[string]float64{
		"short_ma": roundTo(currentShort, 2),
		"long_ma":  roundTo(currentLong, 2),
	}

	switch {
	case prevShort <= prevLong && currentShort > currentLong:
		return Signal{
			Action:     ActionBuy,
			Confidence: roundTo(math.Min(0.95, 0.6+math.Abs(spread)*0.1), 2),
			Reason:     fmt.Sprintf("Bullish crossover: %dMA crossed above %dMA", shortPeriod, longPeriod),
			Indicators: fields,
		}
	case prevShort >= prevLong && currentShort < currentLong:
		return Signal{
			Action:     ActionSell,
			Confidence: roundTo(math.Min(0.95, 0.6+math.Abs(spread)*0.1), 2),
			Reason:     fmt.Sprintf("Bearish crossover: %dMA crossed below %dMA", shortPeriod, longPeriod),
			Indicators: fields,
		}
	default:
		trend := "bearish"
		if currentShort > currentLong {
			trend = "bullish"
		}
		return Signal{
			Action:     ActionHold,
			Confidence: roundTo(math.Min(0.8, math.Abs(spread)*0.05), 2),
			Reason:     fmt.Sprintf("No crossover. Trend is %s (spread: %.2f%%)", trend, spread),
			Indicators: fields,
		}
	}
}

func rsiSignal(prices []market.PricePoint, params Params) Signal {
	period := int(params["period"])
	oversold := params["oversold"]
	overbought := params["overbought"]
	if len(prices) < period+2 {
		return holdSignal(0, "Insufficient data")
	}

	data := closes(prices)
	rsi := indicator.RSI(data, period)
	currentRSI := rsi[len(rsi)-1]
	if math.IsNaN(currentRSI) {
		return holdSignal(0, "RSI not computed")
	}

	fields := map[string]float64{"rsi": roundTo(currentRSI, 2)}

	switch {
	case currentRSI <= oversold:
		distance := oversold - currentRSI
		return Signal{
			Action:     ActionBuy,
			Confidence: roundTo(math.Min(0.95, 0.55+distance*0.02), 2),
			Reason:     fmt.Sprintf("RSI oversold at %.1f (below %g)", currentRSI, oversold),
			Indicators: fields,
		}
	case currentRSI >= overbought:
		distance := currentRSI - overbought
		return Signal{
			Action:     ActionSell,
			Confidence: roundTo(math.Min(0.95, 0.55+distance*0.02), 2),
			Reason:     fmt.Sprintf("RSI overbought at %.1f (above %g)", currentRSI, overbought),
			Indicators: fields,
		}
	default:
		return Signal{
			Action:     ActionHold,
			Confidence: 0.3,
			Reason:     fmt.Sprintf("RSI neutral at %.1f", currentRSI),
			Indicators: fields,
		}
	}
}

func macdSignal(prices []market.PricePoint, params Params) Signal {
	fast := int(params["fast"])
	slow := int(params["slow"])
	signalPeriod := int(params["signal_period"])
	if len(prices) < slow+signalPeriod+2 {
		return holdSignal(0, "Insufficient data")
	}

	data := closes(prices)
	res := indicator.MACD(data, fast, slow, signalPeriod)
	if len(res.Macd) < signalPeriod+2 {
		return holdSignal(0, "Insufficient MACD data")
	}

	n := len(res.Macd)
	currentMacd, prevMacd := res.Macd[n-1], res.Macd[n-2]
	currentSignal, prevSignal := res.Signal[n-1], res.Signal[n-2]
	if math.IsNaN(currentSignal) || math.IsNaN(prevSignal) {
		return holdSignal(0, "MACD signal not ready")
	}

	histogram := currentMacd - currentSignal
	lastPrice := data[len(data)-1]
	fields := map[string]float64{
		"macd":        roundTo(currentMacd, 4),
		"signal_line": roundTo(currentSignal, 4),
		"histogram":   roundTo(histogram, 4),
	}

	switch {
	case prevMacd <= prevSignal && currentMacd > currentSignal:
		return Signal{
			Action:     ActionBuy,
			Confidence: roundTo(math.Min(0.9, 0.55+math.Abs(histogram)/lastPrice*100), 2),
			Reason:     "MACD bullish crossover",
			Indicators: fields,
		}
	case prevMacd >= prevSignal && currentMacd < currentSignal:
		return Signal{
			Action:     ActionSell,
			Confidence: roundTo(math.Min(0.9, 0.55+math.Abs(histogram)/lastPrice*100), 2),
			Reason:     "MACD bearish crossover",
			Indicators: fields,
		}
	default:
		trend := "bearish"
		if histogram > 0 {
			trend = "bullish"
		}
		return Signal{
			Action:     ActionHold,
			Confidence: 0.3,
			Reason:     fmt.Sprintf("MACD %s, no crossover", trend),
			Indicators: fields,
		}
	}
}

func bollingerSignal(prices []market.PricePoint, params Params) Signal {
	period := int(params["period"])
	stdDev := params["std_dev"]
	if len(prices) < period+2 {
		return holdSignal(0, "Insufficient data")
	}

	data := closes(prices)
	bands := indicator.BollingerBands(data, period, stdDev)

	n := len(data)
	currentMiddle := bands.Middle[n-1]
	if math.IsNaN(currentMiddle) {
		return holdSignal(0, "BB not computed")
	}

	currentPrice := data[n-1]
	currentUpper := bands.Upper[n-1]
	currentLower := bands.Lower[n-1]
	bandWidth := currentUpper - currentLower

	fields := map[string]float64{
		"price":  roundTo(currentPrice, 2),
		"upper":  roundTo(currentUpper, 2),
		"middle": roundTo(currentMiddle, 2),
		"lower":  roundTo(currentLower, 2),
	}

	switch {
	case currentPrice <= currentLower:
		pctBelow := 0.0
		if bandWidth > 0 {
			pctBelow = (currentLower - currentPrice) / bandWidth * 100
		}
		return Signal{
			Action:     ActionBuy,
			Confidence: roundTo(math.Min(0.9, 0.5+pctBelow*0.05), 2),
			Reason:     "Price at lower Bollinger Band (mean reversion expected)",
			Indicators: fields,
		}
	case currentPrice >= currentUpper:
		pctAbove := 0.0
		if bandWidth > 0 {
			pctAbove = (currentPrice - currentUpper) / bandWidth * 100
		}
		return Signal{
			Action:     ActionSell,
			Confidence: roundTo(math.Min(0.9, 0.5+pctAbove*0.05), 2),
			Reason:     "Price at upper Bollinger Band (reversal expected)",
			Indicators: fields,
		}
	default:
		position := 0.5
		if bandWidth > 0 {
			position = (currentPrice - currentLower) / bandWidth
		}
		return Signal{
			Action:     ActionHold,
			Confidence: 0.3,
			Reason:     fmt.Sprintf("Price within bands (%.0f%% from lower to upper)", position*100),
			Indicators: fields,
		}
	}
}

func holdSignal(confidence float64, reason string) Signal {
	return Signal{Action: ActionHold, Confidence: confidence, Reason: reason}
}

func closes(prices []market.PricePoint) []float64 {
	data := make([]float64, len(prices))
	for i, p := range prices {
		data[i] = p.Price
	}
	return data
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
