package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zedigital/trading-bot/internal/entity"
	"github.com/zedigital/trading-bot/internal/repo"
	"github.com/zedigital/trading-bot/internal/service/market"
	"github.com/zedigital/trading-bot/internal/service/strategy"
)

// historyDays 扫描时取多少天的小时线
const historyDays = 30

type SignalMonitor struct {
	history  market.HistorySource
	repo     repo.SignalRepo
	notifier Notifier
}

type consoleNotifier struct {
}

func (c consoleNotifier) Notify(ctx context.Context, signal ScanSignal) error {
	fmt.Println("find trade signal", signal)
	return nil
}

type Option func(m *SignalMonitor)

func WithNotifier(notifier Notifier) Option {
	return func(m *SignalMonitor) {
		m.notifier = notifier
	}
}

func NewSignalMonitor(history market.HistorySource, repo repo.SignalRepo, opts ...Option) SignalService {
	monitor := &SignalMonitor{
		history:  history,
		repo:     repo,
		notifier: consoleNotifier{},
	}
	for _, opt := range opts {
		opt(monitor)
	}
	return monitor
}

func (m *SignalMonitor) Scan(ctx context.Context, coins []string) error {
	for _, coin := range coins {
		points, err := m.history.History(ctx, coin, historyDays)
		if err != nil {
			slog.Error("failed to get price history", "coin", coin, "error", err)
			continue
		}
		if len(points) < 60 {
			slog.Warn("skip signal scan", "coin", coin, "reason", "too little history")
			continue
		}

		slog.Info("scanning coin signals", "coin", coin)
		result := strategy.Consensus(points)

		if result.Consensus == strategy.ActionHold {
			continue
		}

		now := time.Now()
		// 逐个策略落库，失败不影响其他币种
		for id, sig := range result.Signals {
			if sig.Action == strategy.ActionHold {
				continue
			}
			_, err = m.repo.Create(ctx, entity.SignalRecord{
				Strategy:   id,
				Coin:       coin,
				Action:     string(sig.Action),
				Confidence: sig.Confidence,
				Reason:     sig.Reason,
				CreatedAt:  now,
			})
			if err != nil {
				slog.Error("failed to record signal", "coin", coin, "strategy", id, "error", err)
			}
		}

		err = m.notifier.Notify(ctx, ScanSignal{
			Coin:          coin,
			Consensus:     result.Consensus,
			AvgConfidence: result.AvgConfidence,
			Signals:       result.Signals,
			Timestamp:     now,
		})
		if err != nil {
			slog.Error("failed to notify signal", "coin", coin, "error", err)
		}
	}
	return nil
}
