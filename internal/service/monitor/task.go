package monitor

import (
	"context"

	"github.com/samber/lo"
	"github.com/zedigital/trading-bot/internal/schedule"
	"github.com/zedigital/trading-bot/internal/service/market"
)

type SignalScanTask struct {
	signalSvc  SignalService
	rejectCoin func(ctx context.Context, coin string) bool // if true, reject
}

func NewSignalScanTask(signalSvc SignalService,
	reject ...func(ctx context.Context, coin string) bool) schedule.Task {
	task := &SignalScanTask{
		signalSvc: signalSvc,
		rejectCoin: func(ctx context.Context, coin string) bool {
			return false
		},
	}

	if len(reject) > 0 {
		task.rejectCoin = reject[0]
	}
	return task
}

func (t *SignalScanTask) Run(ctx context.Context) error {
	coins := lo.Keys(market.SupportedCoins)

	coins = lo.Reject(coins, func(item string, index int) bool {
		return t.rejectCoin(ctx, item)
	})

	return t.signalSvc.Scan(ctx, coins)
}

func (t *SignalScanTask) Name() string {
	return "strategy signal scan task"
}
