package entity

import (
	"time"
)

// Trade 成交记录（只追加，不修改）
type Trade struct {
	Id        int64  `gorm:"primaryKey;autoIncrement"`
	Coin      string `gorm:"index"`
	Side      string `gorm:"index"` // buy / sell
	Amount    string
	Price     string
	TotalUsd  string
	CreatedAt time.Time `gorm:"index"`
}

// Position 持仓，每个币种一行
// 数量低于尘埃阈值时清零（行保留，不删除）
type Position struct {
	Coin          string `gorm:"primaryKey"`
	Amount        string
	AvgEntryPrice string
	TotalCost     string
	UpdatedAt     time.Time
}

// PortfolioMeta 账户级标量（现金余额等）
type PortfolioMeta struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

const MetaKeyCashBalance = "cash_balance"

// Snapshot 每笔成交后的组合估值快照（只追加）
type Snapshot struct {
	Id         int64 `gorm:"primaryKey;autoIncrement"`
	TotalValue string
	CreatedAt  time.Time `gorm:"index"`
}

// SignalRecord 策略信号记录
type SignalRecord struct {
	Id         int64  `gorm:"primaryKey;autoIncrement"`
	Strategy   string `gorm:"index"`
	Coin       string `gorm:"index"`
	Action     string // buy / sell / hold
	Confidence float64
	Reason     string
	CreatedAt  time.Time `gorm:"index"`
}
