package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// DustThreshold 尘埃阈值：数量低于该值的持仓视为已平仓
var DustThreshold = decimal.New(1, -8) // 1e-8

// InitialCash 账户初始现金
var InitialCash = decimal.NewFromInt(10000)

// Position 单个币种的持仓
// 不变量：amount > 0 时 avgEntryPrice == totalCost / amount；
// 平仓后 amount 和 totalCost 同时归零（行保留）
type Position struct {
	Coin          string
	Amount        decimal.Decimal
	AvgEntryPrice decimal.Decimal
	TotalCost     decimal.Decimal
	UpdatedAt     time.Time
}

// Closed 是否已平仓（数量低于尘埃阈值）
func (p Position) Closed() bool {
	return p.Amount.LessThan(DustThreshold)
}

// Trade 成交记录，只追加
type Trade struct {
	Id        int64
	Coin      string
	Side      Side
	Amount    decimal.Decimal
	Price     decimal.Decimal
	TotalUsd  decimal.Decimal
	CreatedAt time.Time
}

// Snapshot 组合估值快照，只追加
type Snapshot struct {
	TotalValue decimal.Decimal
	CreatedAt  time.Time
}

// Store 账本持久化抽象
// 实现：repo.LedgerStore（gorm/sqlite）、MemoryStore（测试与模拟）
type Store interface {
	// Cash 当前现金余额，首次使用时为 InitialCash
	Cash(ctx context.Context) (decimal.Decimal, error)
	SetCash(ctx context.Context, value decimal.Decimal) error

	Position(ctx context.Context, coin string) (Position, bool, error)
	// Positions 所有持仓行（包含已清零的行）
	Positions(ctx context.Context) ([]Position, error)
	SavePosition(ctx context.Context, pos Position) error

	RecordTrade(ctx context.Context, trade Trade) error
	// Trades 按时间倒序返回最近 limit 条成交
	Trades(ctx context.Context, limit int) ([]Trade, error)

	RecordSnapshot(ctx context.Context, snapshot Snapshot) error
	// Snapshots 返回最近 limit 条快照，按时间正序
	Snapshots(ctx context.Context, limit int) ([]Snapshot, error)

	// Transact 在单个事务内执行 fn，fn 返回错误则整体回滚
	Transact(ctx context.Context, fn func(tx Store) error) error
}
