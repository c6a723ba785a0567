package trading

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zedigital/trading-bot/internal/service/ledger"
	"github.com/zedigital/trading-bot/internal/service/market"
	"github.com/zedigital/trading-bot/pkg/decimalx"
)

// Confirmation 成交回执
type Confirmation struct {
	Coin     string
	Symbol   string
	Side     ledger.Side
	Quantity decimal.Decimal
	Price    decimal.Decimal
	TotalUsd decimal.Decimal
}

// Executor 订单校验与原子执行
// 全局互斥：同一时刻至多一笔交易在途（跨币种），
// 校验-变更-落库整个序列在锁内且在单个存储事务中完成
type Executor struct {
	mu     sync.Mutex
	ledger *ledger.Ledger
	prices market.PriceSource
}

func NewExecutor(l *ledger.Ledger, prices market.PriceSource) *Executor {
	return &Executor{
		ledger: l,
		prices: prices,
	}
}

// Execute 执行一笔买入或卖出
// 价格查询在进入临界区之前完成，临界区内不做外部IO
// 成功时现金、持仓、成交日志、估值快照同时可见；失败时无任何变更
func (e *Executor) Execute(ctx context.Context, coinID string, side ledger.Side, amountUsd decimal.Decimal) (Confirmation, error) {
	if !side.Valid() {
		return Confirmation{}, ErrInvalidSide
	}
	if !amountUsd.IsPositive() {
		return Confirmation{}, ErrInvalidAmount
	}

	prices, err := e.prices.Prices(ctx)
	if err != nil {
		return Confirmation{}, fmt.Errorf("fetch prices: %w", err)
	}
	coin, ok := prices[coinID]
	if !ok {
		return Confirmation{}, fmt.Errorf("%w: %s", ErrUnsupportedAsset, coinID)
	}
	price := coin.PriceUsd
	if !price.IsPositive() {
		return Confirmation{}, fmt.Errorf("%w: %s", ErrInvalidPrice, coinID)
	}

	quantity := decimalx.RoundQty(amountUsd.Div(price))

	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	err = e.ledger.Transact(ctx, func(tx *ledger.Ledger) error {
		switch side {
		case ledger.SideBuy:
			cash, err := tx.Cash(ctx)
			if err != nil {
				return err
			}
			if amountUsd.GreaterThan(cash) {
				return fmt.Errorf("%w: available $%s", ErrInsufficientFunds, decimalx.RoundUsd(cash))
			}
			if err := tx.SetCash(ctx, cash.Sub(amountUsd)); err != nil {
				return err
			}
			if err := tx.ApplyPositionDelta(ctx, coinID, quantity, amountUsd); err != nil {
				return err
			}

		case ledger.SideSell:
			pos, exists, err := tx.Position(ctx, coinID)
			if err != nil {
				return err
			}
			if !exists || pos.Amount.LessThan(quantity) {
				available := decimal.Zero
				if exists {
					available = pos.Amount
				}
				return fmt.Errorf("%w: %s available %s", ErrInsufficientHoldings, coin.Symbol, decimalx.RoundQty(available))
			}
			costBasis := quantity.Mul(pos.AvgEntryPrice)
			if err := tx.ApplyPositionDelta(ctx, coinID, quantity.Neg(), costBasis.Neg()); err != nil {
				return err
			}
			cash, err := tx.Cash(ctx)
			if err != nil {
				return err
			}
			if err := tx.SetCash(ctx, cash.Add(amountUsd)); err != nil {
				return err
			}
		}

		if err := tx.RecordTrade(ctx, ledger.Trade{
			Coin:      coinID,
			Side:      side,
			Amount:    quantity,
			Price:     price,
			TotalUsd:  amountUsd,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		totalValue, err := portfolioValue(ctx, tx, prices)
		if err != nil {
			return err
		}
		return tx.RecordSnapshot(ctx, ledger.Snapshot{
			TotalValue: decimalx.RoundUsd(totalValue),
			CreatedAt:  now,
		})
	})
	if err != nil {
		return Confirmation{}, err
	}

	slog.Info("trade executed",
		"coin", coinID, "side", side,
		"quantity", quantity, "price", price, "total_usd", amountUsd)

	return Confirmation{
		Coin:     coinID,
		Symbol:   coin.Symbol,
		Side:     side,
		Quantity: decimalx.RoundQty(quantity),
		Price:    decimalx.RoundPrice(price),
		TotalUsd: decimalx.RoundUsd(amountUsd),
	}, nil
}

// portfolioValue 现金 + 活跃持仓按当前价的估值
func portfolioValue(ctx context.Context, tx *ledger.Ledger, prices map[string]market.CoinPrice) (decimal.Decimal, error) {
	cash, err := tx.Cash(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	positions, err := tx.Positions(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	total := cash
	for _, pos := range positions {
		if coin, ok := prices[pos.Coin]; ok {
			total = total.Add(pos.Amount.Mul(coin.PriceUsd))
		}
	}
	return total, nil
}
