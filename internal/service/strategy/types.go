package strategy

type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Signal 策略产生的方向建议
type Signal struct {
	Action     Action
	Confidence float64 // [0, 1]
	Reason     string
	// Indicators 策略相关的指标值（如 short_ma / rsi / histogram）
	Indicators map[string]float64
}

// Params 策略参数，按 key 覆盖默认值
type Params map[string]float64

// Definition 策略元信息与默认参数
type Definition struct {
	ID          string
	Name        string
	Description string
	Defaults    Params
}

const (
	IDMACrossover    = "ma_crossover"
	IDRSI            = "rsi"
	IDMACD           = "macd"
	IDBollingerBands = "bollinger_bands"
)

var definitions = []Definition{
	{
		ID:          IDMACrossover,
		Name:        "MA Crossover",
		Description: "Short/long moving average crossover strategy. Generates buy signal when short MA crosses above long MA, sell when it crosses below.",
		Defaults:    Params{"short_period": 20, "long_period": 50},
	},
	{
		ID:          IDRSI,
		Name:        "RSI",
		Description: "Relative Strength Index strategy. Buy when RSI drops below oversold level, sell when it rises above overbought level.",
		Defaults:    Params{"period": 14, "oversold": 30, "overbought": 70},
	},
	{
		ID:          IDMACD,
		Name:        "MACD",
		Description: "Moving Average Convergence Divergence. Buy on bullish crossover, sell on bearish crossover.",
		Defaults:    Params{"fast": 12, "slow": 26, "signal_period": 9},
	},
	{
		ID:          IDBollingerBands,
		Name:        "Bollinger Bands",
		Description: "Mean reversion strategy using Bollinger Bands. Buy when price touches lower band, sell when it touches upper band.",
		Defaults:    Params{"period": 20, "std_dev": 2.0},
	},
}

// Definitions 全部策略，顺序固定
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

func Lookup(id string) (Definition, bool) {
	for _, def := range definitions {
		if def.ID == id {
			return def, true
		}
	}
	return Definition{}, false
}

// merged 在默认参数上应用调用方覆盖
func (d Definition) merged(overrides Params) Params {
	merged := make(Params, len(d.Defaults))
	for k, v := range d.Defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
