package strategy

import (
	"github.com/zedigital/trading-bot/internal/service/market"
)

// ConsensusResult 全部策略对同一序列的评估汇总
type ConsensusResult struct {
	Signals       map[string]Signal
	Consensus     Action
	AvgConfidence float64
}

// Consensus 运行所有策略并做多数表决
func Consensus(prices []market.PricePoint) ConsensusResult {
	signals := make(map[string]Signal, len(definitions))
	buyCount, sellCount := 0, 0
	totalConfidence := 0.0

	for _, def := range definitions {
		sig := Evaluate(def.ID, prices, nil)
		signals[def.ID] = sig
		totalConfidence += sig.Confidence
		switch sig.Action {
		case ActionBuy:
			buyCount++
		case ActionSell:
			sellCount++
		}
	}

	consensus := ActionHold
	if buyCount > sellCount {
		consensus = ActionBuy
	} else if sellCount > buyCount {
		consensus = ActionSell
	}

	avg := 0.0
	if len(signals) > 0 {
		avg = roundTo(totalConfidence/float64(len(signals)), 2)
	}
	return ConsensusResult{
		Signals:       signals,
		Consensus:     consensus,
		AvgConfidence: avg,
	}
}
