package monitor

import (
	"context"
	"time"

	"github.com/zedigital/trading-bot/internal/service/strategy"
)

// ScanSignal 一次扫描中单个币种的共识结果
type ScanSignal struct {
	Coin          string                     `json:"coin"`
	Consensus     strategy.Action            `json:"consensus"`
	AvgConfidence float64                    `json:"avg_confidence"`
	Signals       map[string]strategy.Signal `json:"signals"`
	Timestamp     time.Time                  `json:"timestamp"`
}

// SignalService 信号扫描服务接口
type SignalService interface {
	Scan(ctx context.Context, coins []string) error
}

type Notifier interface {
	Notify(ctx context.Context, signal ScanSignal) error
}
