package repo

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/zedigital/trading-bot/internal/entity"
	"github.com/zedigital/trading-bot/internal/service/ledger"
	"github.com/zedigital/trading-bot/pkg/decimalx"
	"gorm.io/gorm"
)

var _ ledger.Store = (*LedgerStore)(nil)

// LedgerStore 基于 gorm/sqlite 的账本存储
type LedgerStore struct {
	db *gorm.DB
}

func NewLedgerStore(db *gorm.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (r *LedgerStore) Cash(ctx context.Context) (decimal.Decimal, error) {
	var meta entity.PortfolioMeta
	err := r.db.WithContext(ctx).Where("key = ?", entity.MetaKeyCashBalance).First(&meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ledger.InitialCash, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(meta.Value)
}

func (r *LedgerStore) SetCash(ctx context.Context, value decimal.Decimal) error {
	return r.db.WithContext(ctx).Save(&entity.PortfolioMeta{
		Key:   entity.MetaKeyCashBalance,
		Value: value.String(),
	}).Error
}

func (r *LedgerStore) Position(ctx context.Context, coin string) (ledger.Position, bool, error) {
	var row entity.Position
	err := r.db.WithContext(ctx).Where("coin = ?", coin).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ledger.Position{}, false, nil
	}
	if err != nil {
		return ledger.Position{}, false, err
	}
	return toPosition(row), true, nil
}

func (r *LedgerStore) Positions(ctx context.Context) ([]ledger.Position, error) {
	var rows []entity.Position
	if err := r.db.WithContext(ctx).Order("coin").Find(&rows).Error; err != nil {
		return nil, err
	}
	positions := make([]ledger.Position, len(rows))
	for i, row := range rows {
		positions[i] = toPosition(row)
	}
	return positions, nil
}

func (r *LedgerStore) SavePosition(ctx context.Context, pos ledger.Position) error {
	return r.db.WithContext(ctx).Save(&entity.Position{
		Coin:          pos.Coin,
		Amount:        pos.Amount.String(),
		AvgEntryPrice: pos.AvgEntryPrice.String(),
		TotalCost:     pos.TotalCost.String(),
		UpdatedAt:     pos.UpdatedAt,
	}).Error
}

func (r *LedgerStore) RecordTrade(ctx context.Context, trade ledger.Trade) error {
	return r.db.WithContext(ctx).Create(&entity.Trade{
		Coin:      trade.Coin,
		Side:      string(trade.Side),
		Amount:    trade.Amount.String(),
		Price:     trade.Price.String(),
		TotalUsd:  trade.TotalUsd.String(),
		CreatedAt: trade.CreatedAt,
	}).Error
}

func (r *LedgerStore) Trades(ctx context.Context, limit int) ([]ledger.Trade, error) {
	var rows []entity.Trade
	err := r.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	trades := make([]ledger.Trade, len(rows))
	for i, row := range rows {
		trades[i] = ledger.Trade{
			Id:        row.Id,
			Coin:      row.Coin,
			Side:      ledger.Side(row.Side),
			Amount:    decimalx.MustFromString(row.Amount),
			Price:     decimalx.MustFromString(row.Price),
			TotalUsd:  decimalx.MustFromString(row.TotalUsd),
			CreatedAt: row.CreatedAt,
		}
	}
	return trades, nil
}

func (r *LedgerStore) RecordSnapshot(ctx context.Context, snapshot ledger.Snapshot) error {
	return r.db.WithContext(ctx).Create(&entity.Snapshot{
		TotalValue: snapshot.TotalValue.String(),
		CreatedAt:  snapshot.CreatedAt,
	}).Error
}

func (r *LedgerStore) Snapshots(ctx context.Context, limit int) ([]ledger.Snapshot, error) {
	var rows []entity.Snapshot
	err := r.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	// 倒序取最近 limit 条，再反转为正序
	snapshots := make([]ledger.Snapshot, len(rows))
	for i, row := range rows {
		snapshots[len(rows)-1-i] = ledger.Snapshot{
			TotalValue: decimalx.MustFromString(row.TotalValue),
			CreatedAt:  row.CreatedAt,
		}
	}
	return snapshots, nil
}

func (r *LedgerStore) Transact(ctx context.Context, fn func(tx ledger.Store) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&LedgerStore{db: tx})
	})
}

func toPosition(row entity.Position) ledger.Position {
	return ledger.Position{
		Coin:          row.Coin,
		Amount:        decimalx.MustFromString(row.Amount),
		AvgEntryPrice: decimalx.MustFromString(row.AvgEntryPrice),
		TotalCost:     decimalx.MustFromString(row.TotalCost),
		UpdatedAt:     row.UpdatedAt,
	}
}
