// Package indicator 技术指标计算
// 全部为纯函数：同一输入序列总是得到同一输出，实时信号与回测共用
// 窗口未满足前的值为 NaN
package indicator

import "math"

// SMA 简单移动平均
func SMA(data []float64, period int) []float64 {
	result := nanSlice(len(data))
	if len(data) < period || period <= 0 {
		return result
	}
	sum := 0.0
	for i, v := range data {
		sum += v
		if i >= period {
			sum -= data[i-period]
		}
		if i >= period-1 {
			result[i] = sum / float64(period)
		}
	}
	return result
}

// EMA 指数移动平均，用前 period 个值的均值做种子
func EMA(data []float64, period int) []float64 {
	result := nanSlice(len(data))
	if len(data) < period || period <= 0 {
		return result
	}
	seed := 0.0
	for _, v := range data[:period] {
		seed += v
	}
	result[period-1] = seed / float64(period)

	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(data); i++ {
		result[i] = (data[i]-result[i-1])*multiplier + result[i-1]
	}
	return result
}

// RSI Wilder 平滑的相对强弱指标，值域 [0, 100]
// 种子均值取前 period 个涨跌幅的简单平均，之后按
// avgGain = (avgGain*(period-1) + gain) / period 平滑
func RSI(data []float64, period int) []float64 {
	result := nanSlice(len(data))
	if len(data) < period+1 || period <= 0 {
		return result
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := data[i] - data[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	result[period] = rsiValue(avgGain, avgLoss)

	p := float64(period)
	for i := period + 1; i < len(data); i++ {
		delta := data[i] - data[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		result[i] = rsiValue(avgGain, avgLoss)
	}
	return result
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// MACDResult 中 Macd 只包含快慢 EMA 均有效的部分（长度 len(data)-slow+1），
// Signal/Histogram 与 Macd 对齐，信号线窗口未满足的位置为 NaN
type MACDResult struct {
	Macd      []float64
	Signal    []float64
	Histogram []float64
}

// MACD 指数平滑异同移动平均
func MACD(data []float64, fast, slow, signalPeriod int) MACDResult {
	fastEMA := EMA(data, fast)
	slowEMA := EMA(data, slow)

	var macdLine []float64
	for i := range data {
		if !math.IsNaN(fastEMA[i]) && !math.IsNaN(slowEMA[i]) {
			macdLine = append(macdLine, fastEMA[i]-slowEMA[i])
		}
	}

	signalLine := EMA(macdLine, signalPeriod)
	histogram := nanSlice(len(macdLine))
	for i := range macdLine {
		if !math.IsNaN(signalLine[i]) {
			histogram[i] = macdLine[i] - signalLine[i]
		}
	}
	return MACDResult{Macd: macdLine, Signal: signalLine, Histogram: histogram}
}

// Bands 布林带，Middle 为 SMA，上下轨为中轨 ± multiplier 倍总体标准差
type Bands struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// BollingerBands 布林带
func BollingerBands(data []float64, period int, multiplier float64) Bands {
	middle := SMA(data, period)
	upper := nanSlice(len(data))
	lower := nanSlice(len(data))
	if period <= 0 || len(data) < period {
		return Bands{Upper: upper, Middle: middle, Lower: lower}
	}

	for i := period - 1; i < len(data); i++ {
		sd := populationStdDev(data[i-period+1:i+1], middle[i])
		upper[i] = middle[i] + multiplier*sd
		lower[i] = middle[i] - multiplier*sd
	}
	return Bands{Upper: upper, Middle: middle, Lower: lower}
}

func populationStdDev(window []float64, mean float64) float64 {
	if len(window) == 0 || math.IsNaN(mean) {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range window {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(window)))
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}
