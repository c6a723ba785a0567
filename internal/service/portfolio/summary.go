// Package portfolio 按当前行情对账本估值，产出组合概览
package portfolio

import (
	"context"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/zedigital/trading-bot/internal/service/ledger"
	"github.com/zedigital/trading-bot/internal/service/market"
	"github.com/zedigital/trading-bot/pkg/decimalx"
)

const (
	// 估算胜率时回看的成交条数
	winRateTradeLookback = 100

	// 概览里返回的最近成交条数
	recentTradeLimit = 50

	// 历史估值快照条数
	snapshotLimit = 500
)

// Holding 单个币种的持仓估值
type Holding struct {
	Coin          string
	Symbol        string
	Name          string
	Amount        decimal.Decimal
	AvgEntryPrice decimal.Decimal
	CurrentPrice  decimal.Decimal
	Value         decimal.Decimal
	Pnl           decimal.Decimal
	PnlPct        float64
}

// Summary 组合概览
type Summary struct {
	Cash         decimal.Decimal
	Holdings     []Holding
	TotalValue   decimal.Decimal
	TotalPnl     decimal.Decimal
	TotalPnlPct  float64
	TotalTrades  int
	WinRate      float64
	RecentTrades []ledger.Trade
	Snapshots    []ledger.Snapshot
}

type Service struct {
	ledger *ledger.Ledger
	prices market.PriceSource
}

func NewService(l *ledger.Ledger, prices market.PriceSource) *Service {
	return &Service{
		ledger: l,
		prices: prices,
	}
}

// Summary 现金 + 持仓按最新价估值，附带盈亏和胜率
// 行情缺失的币种按入场成本估值（盈亏记0），避免概览因单个币种报价失败而不可用
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	prices, err := s.prices.Prices(ctx)
	if err != nil {
		return Summary{}, err
	}

	cash, err := s.ledger.Cash(ctx)
	if err != nil {
		return Summary{}, err
	}
	positions, err := s.ledger.Positions(ctx)
	if err != nil {
		return Summary{}, err
	}

	totalValue := cash
	holdings := make([]Holding, 0, len(positions))
	for _, pos := range positions {
		h := Holding{
			Coin:          pos.Coin,
			Amount:        decimalx.RoundQty(pos.Amount),
			AvgEntryPrice: decimalx.RoundPrice(pos.AvgEntryPrice),
		}
		if meta, ok := market.SupportedCoins[pos.Coin]; ok {
			h.Symbol = meta.Symbol
			h.Name = meta.Name
		}

		if quote, ok := prices[pos.Coin]; ok {
			h.CurrentPrice = decimalx.RoundPrice(quote.PriceUsd)
			value := pos.Amount.Mul(quote.PriceUsd)
			pnl := value.Sub(pos.TotalCost)
			h.Value = decimalx.RoundUsd(value)
			h.Pnl = decimalx.RoundUsd(pnl)
			if pos.TotalCost.IsPositive() {
				pct, _ := pnl.Div(pos.TotalCost).Mul(decimal.NewFromInt(100)).Round(2).Float64()
				h.PnlPct = pct
			}
			totalValue = totalValue.Add(value)
		} else {
			// 无行情，按成本计
			h.CurrentPrice = decimalx.RoundPrice(pos.AvgEntryPrice)
			h.Value = decimalx.RoundUsd(pos.TotalCost)
			h.Pnl = decimal.Zero
			totalValue = totalValue.Add(pos.TotalCost)
		}
		holdings = append(holdings, h)
	}

	totalPnl := totalValue.Sub(ledger.InitialCash)
	totalPnlPct, _ := totalPnl.Div(ledger.InitialCash).Mul(decimal.NewFromInt(100)).Round(2).Float64()

	trades, err := s.ledger.Trades(ctx, winRateTradeLookback)
	if err != nil {
		return Summary{}, err
	}
	winRate := winRateFromTrades(trades)

	recent := trades
	if len(recent) > recentTradeLimit {
		recent = recent[:recentTradeLimit]
	}

	snapshots, err := s.ledger.Snapshots(ctx, snapshotLimit)
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		Cash:         decimalx.RoundUsd(cash),
		Holdings:     holdings,
		TotalValue:   decimalx.RoundUsd(totalValue),
		TotalPnl:     decimalx.RoundUsd(totalPnl),
		TotalPnlPct:  totalPnlPct,
		TotalTrades:  len(trades),
		WinRate:      winRate,
		RecentTrades: recent,
		Snapshots:    snapshots,
	}, nil
}

// History 历史估值快照，按时间正序
func (s *Service) History(ctx context.Context) ([]ledger.Snapshot, error) {
	return s.ledger.Snapshots(ctx, snapshotLimit)
}

// winRateFromTrades 启发式胜率：每笔卖出与同币种最近一笔在它之前的买入配对，
// 卖价高于买价计为一胜。trades 按时间倒序传入
func winRateFromTrades(trades []ledger.Trade) float64 {
	chronological := lo.Reverse(append([]ledger.Trade(nil), trades...))

	wins, sells := 0, 0
	for i, trade := range chronological {
		if trade.Side != ledger.SideSell {
			continue
		}
		sells++
		for j := i - 1; j >= 0; j-- {
			prior := chronological[j]
			if prior.Coin == trade.Coin && prior.Side == ledger.SideBuy {
				if trade.Price.GreaterThan(prior.Price) {
					wins++
				}
				break
			}
		}
	}
	if sells == 0 {
		return 0
	}
	rate, _ := decimal.NewFromInt(int64(wins)).
		Div(decimal.NewFromInt(int64(sells))).
		Mul(decimal.NewFromInt(100)).
		Round(1).Float64()
	return rate
}
