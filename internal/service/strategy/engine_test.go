package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zedigital/trading-bot/internal/service/market"
)

func series(values []float64) []market.PricePoint {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]market.PricePoint, len(values))
	for i, v := range values {
		points[i] = market.PricePoint{Timestamp: base.Add(time.Duration(i) * time.Hour), Price: v}
	}
	return points
}

func flat(n int, price float64) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = price
	}
	return values
}

func TestMACrossoverBuyOnFinalBar(t *testing.T) {
	// 52个点，最后一根拉升使 20MA 在最后两根之间上穿 50MA
	values := flat(51, 100)
	values = append(values, 110)

	sig := Evaluate(IDMACrossover, series(values), nil)

	assert.Equal(t, ActionBuy, sig.Action)
	assert.Greater(t, sig.Confidence, 0.6)
	assert.LessOrEqual(t, sig.Confidence, 0.95)
	assert.Contains(t, sig.Reason, "Bullish crossover")
	assert.Contains(t, sig.Indicators, "short_ma")
	assert.Contains(t, sig.Indicators, "long_ma")
}

func TestMACrossoverSellOnFinalBar(t *testing.T) {
	values := flat(51, 100)
	values = append(values, 90)

	sig := Evaluate(IDMACrossover, series(values), nil)
	assert.Equal(t, ActionSell, sig.Action)
	assert.Contains(t, sig.Reason, "Bearish crossover")
}

func TestMACrossoverInsufficientData(t *testing.T) {
	sig := Evaluate(IDMACrossover, series(flat(40, 100)), nil)
	assert.Equal(t, ActionHold, sig.Action)
	assert.Equal(t, 0.0, sig.Confidence)
}

func TestMACrossoverHoldNoCrossover(t *testing.T) {
	sig := Evaluate(IDMACrossover, series(flat(60, 100)), nil)
	assert.Equal(t, ActionHold, sig.Action)
	assert.Contains(t, sig.Reason, "No crossover")
}

func TestRSIOversoldBuy(t *testing.T) {
	// 持续下跌，RSI 趋近 0
	values := make([]float64, 20)
	for i := range values {
		values[i] = 100 - float64(i)
	}

	sig := Evaluate(IDRSI, series(values), nil)
	assert.Equal(t, ActionBuy, sig.Action)
	assert.Equal(t, 0.95, sig.Confidence)
	assert.Contains(t, sig.Reason, "oversold")
	assert.LessOrEqual(t, sig.Indicators["rsi"], 30.0)
}

func TestRSIOverboughtSell(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = 100 + float64(i)
	}

	sig := Evaluate(IDRSI, series(values), nil)
	assert.Equal(t, ActionSell, sig.Action)
	assert.Contains(t, sig.Reason, "overbought")
}

func TestRSINeutralHold(t *testing.T) {
	// 涨跌交替，RSI 居中
	values := make([]float64, 20)
	for i := range values {
		values[i] = 100
		if i%2 == 1 {
			values[i] = 101
		}
	}

	sig := Evaluate(IDRSI, series(values), nil)
	assert.Equal(t, ActionHold, sig.Action)
	assert.Equal(t, 0.3, sig.Confidence)
}

func TestMACDCrossoverDetected(t *testing.T) {
	// 先跌后涨，某个窗口终点必然出现 MACD 金叉
	var values []float64
	price := 100.0
	for i := 0; i < 40; i++ {
		price -= 0.5
		values = append(values, price)
	}
	for i := 0; i < 40; i++ {
		price += 1.0
		values = append(values, price)
	}

	points := series(values)
	sawBuy := false
	for i := 40; i <= len(points); i++ {
		sig := Evaluate(IDMACD, points[:i], nil)
		if sig.Action == ActionBuy {
			sawBuy = true
			assert.Greater(t, sig.Confidence, 0.54)
			assert.LessOrEqual(t, sig.Confidence, 0.9)
			assert.Contains(t, sig.Reason, "bullish crossover")
			break
		}
	}
	assert.True(t, sawBuy, "上升段应出现 MACD 金叉")
}

func TestMACDInsufficientData(t *testing.T) {
	sig := Evaluate(IDMACD, series(flat(30, 100)), nil)
	assert.Equal(t, ActionHold, sig.Action)
	assert.Equal(t, 0.0, sig.Confidence)
}

func TestBollingerBuyBelowLowerBand(t *testing.T) {
	values := flat(21, 100)
	values = append(values, 90)

	sig := Evaluate(IDBollingerBands, series(values), nil)
	assert.Equal(t, ActionBuy, sig.Action)
	assert.Greater(t, sig.Confidence, 0.5)
	assert.LessOrEqual(t, sig.Confidence, 0.9)
	assert.Contains(t, sig.Reason, "lower Bollinger Band")
}

func TestBollingerSellAboveUpperBand(t *testing.T) {
	values := flat(21, 100)
	values = append(values, 110)

	sig := Evaluate(IDBollingerBands, series(values), nil)
	assert.Equal(t, ActionSell, sig.Action)
	assert.Contains(t, sig.Reason, "upper Bollinger Band")
}

func TestParamOverridesApplied(t *testing.T) {
	// 默认参数下数据不足，覆盖为短窗口后应检测到金叉
	values := []float64{10, 9, 8, 8, 12}
	overrides := Params{"short_period": 2, "long_period": 3}

	sig := Evaluate(IDMACrossover, series(values), overrides)
	assert.Equal(t, ActionBuy, sig.Action)
	assert.Contains(t, sig.Reason, "2MA crossed above 3MA")

	// 同样的数据默认参数只能 hold
	def := Evaluate(IDMACrossover, series(values), nil)
	assert.Equal(t, ActionHold, def.Action)
}

func TestUnknownStrategySoftFails(t *testing.T) {
	sig := Evaluate("momentum_god_mode", series(flat(100, 100)), nil)
	assert.Equal(t, ActionHold, sig.Action)
	assert.Equal(t, 0.0, sig.Confidence)
	assert.Contains(t, sig.Reason, "Unknown strategy")
}

func TestDefinitionsStable(t *testing.T) {
	defs := Definitions()
	require.Len(t, defs, 4)
	assert.Equal(t, IDMACrossover, defs[0].ID)

	def, ok := Lookup(IDRSI)
	require.True(t, ok)
	assert.Equal(t, 14.0, def.Defaults["period"])

	_, ok = Lookup("nope")
	assert.False(t, ok)
}

func TestConsensusMajorityVote(t *testing.T) {
	// 持续下跌：RSI 卖出观点占不了多数时也不能误报买入
	values := make([]float64, 80)
	for i := range values {
		values[i] = 200 - float64(i)
	}
	result := Consensus(series(values))

	require.Len(t, result.Signals, 4)
	assert.NotEqual(t, ActionBuy, result.Consensus)
	assert.GreaterOrEqual(t, result.AvgConfidence, 0.0)
	assert.LessOrEqual(t, result.AvgConfidence, 1.0)
}

func TestConsensusFlatIsHold(t *testing.T) {
	result := Consensus(series(flat(80, 100)))
	assert.Equal(t, ActionHold, result.Consensus)
}
