package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Ledger 账户状态的唯一入口：现金 + 持仓 + 成交/快照日志
// 自身不加锁，互斥由调用方（trading.Executor 的原子区）保证
type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

func (l *Ledger) Cash(ctx context.Context) (decimal.Decimal, error) {
	return l.store.Cash(ctx)
}

// SetCash 替换现金余额，调用方需保证非负
func (l *Ledger) SetCash(ctx context.Context, value decimal.Decimal) error {
	return l.store.SetCash(ctx, value)
}

func (l *Ledger) Position(ctx context.Context, coin string) (Position, bool, error) {
	return l.store.Position(ctx, coin)
}

// Positions 活跃持仓（过滤尘埃行），按币种排序
func (l *Ledger) Positions(ctx context.Context) ([]Position, error) {
	all, err := l.store.Positions(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]Position, 0, len(all))
	for _, pos := range all {
		if !pos.Closed() {
			active = append(active, pos)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].Coin < active[j].Coin
	})
	return active, nil
}

// ApplyPositionDelta 对持仓应用数量/成本增量并重算平均入场价
// 结果数量低于尘埃阈值时持仓清零（保留行）
// 调用方需已校验持仓充足，负增量不会产生负持仓
func (l *Ledger) ApplyPositionDelta(ctx context.Context, coin string, amountDelta, costDelta decimal.Decimal) error {
	pos, exists, err := l.store.Position(ctx, coin)
	if err != nil {
		return err
	}

	if !exists {
		avg := decimal.Zero
		if amountDelta.IsPositive() {
			avg = costDelta.Div(amountDelta)
		}
		return l.store.SavePosition(ctx, Position{
			Coin:          coin,
			Amount:        amountDelta,
			AvgEntryPrice: avg,
			TotalCost:     costDelta,
			UpdatedAt:     time.Now(),
		})
	}

	newAmount := pos.Amount.Add(amountDelta)
	newCost := pos.TotalCost.Add(costDelta)
	if newAmount.LessThan(DustThreshold) {
		newAmount = decimal.Zero
		newCost = decimal.Zero
	}
	newAvg := decimal.Zero
	if newAmount.IsPositive() {
		newAvg = newCost.Div(newAmount)
	}

	pos.Amount = newAmount
	pos.AvgEntryPrice = newAvg
	pos.TotalCost = newCost
	pos.UpdatedAt = time.Now()
	return l.store.SavePosition(ctx, pos)
}

func (l *Ledger) RecordTrade(ctx context.Context, trade Trade) error {
	return l.store.RecordTrade(ctx, trade)
}

func (l *Ledger) Trades(ctx context.Context, limit int) ([]Trade, error) {
	return l.store.Trades(ctx, limit)
}

func (l *Ledger) RecordSnapshot(ctx context.Context, snapshot Snapshot) error {
	return l.store.RecordSnapshot(ctx, snapshot)
}

func (l *Ledger) Snapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	return l.store.Snapshots(ctx, limit)
}

// Transact 在单个存储事务内以事务视图执行 fn
func (l *Ledger) Transact(ctx context.Context, fn func(tx *Ledger) error) error {
	return l.store.Transact(ctx, func(tx Store) error {
		return fn(NewLedger(tx))
	})
}
