package trading

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zedigital/trading-bot/internal/service/ledger"
	"github.com/zedigital/trading-bot/internal/service/market"
)

type stubPriceSource struct {
	prices map[string]market.CoinPrice
}

func (s stubPriceSource) Prices(ctx context.Context) (map[string]market.CoinPrice, error) {
	return s.prices, nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestExecutor(priceUsd string) (*Executor, *ledger.Ledger) {
	book := ledger.NewLedger(ledger.NewMemoryStore())
	src := stubPriceSource{prices: map[string]market.CoinPrice{
		"bitcoin": {ID: "bitcoin", Symbol: "BTC", PriceUsd: dec(priceUsd)},
	}}
	return NewExecutor(book, src), book
}

func TestExecuteBuy(t *testing.T) {
	ctx := context.Background()
	executor, book := newTestExecutor("50000")

	// 10000 起步，买入 1000 美元 @ 50000
	conf, err := executor.Execute(ctx, "bitcoin", ledger.SideBuy, dec("1000"))
	require.NoError(t, err)

	assert.Equal(t, ledger.SideBuy, conf.Side)
	assert.Equal(t, "BTC", conf.Symbol)
	assert.True(t, conf.Quantity.Equal(dec("0.02")), "quantity = %s", conf.Quantity)
	assert.True(t, conf.Price.Equal(dec("50000")))
	assert.True(t, conf.TotalUsd.Equal(dec("1000")))

	cash, err := book.Cash(ctx)
	require.NoError(t, err)
	assert.True(t, cash.Equal(dec("9000")))

	pos, ok, err := book.Position(ctx, "bitcoin")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, pos.Amount.Equal(dec("0.02")))
	assert.True(t, pos.AvgEntryPrice.Equal(dec("50000")))
	assert.True(t, pos.TotalCost.Equal(dec("1000")))

	trades, err := book.Trades(ctx, 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	snapshots, err := book.Snapshots(ctx, 10)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	// 买入不改变总市值
	assert.True(t, snapshots[0].TotalValue.Equal(dec("10000")))
}

func TestExecuteSellAtProfit(t *testing.T) {
	ctx := context.Background()
	executor, book := newTestExecutor("50000")

	_, err := executor.Execute(ctx, "bitcoin", ledger.SideBuy, dec("1000"))
	require.NoError(t, err)

	// 价格涨到 60000，全部卖出（0.02 * 60000 = 1200 美元）
	executor.prices = stubPriceSource{prices: map[string]market.CoinPrice{
		"bitcoin": {ID: "bitcoin", Symbol: "BTC", PriceUsd: dec("60000")},
	}}
	conf, err := executor.Execute(ctx, "bitcoin", ledger.SideSell, dec("1200"))
	require.NoError(t, err)
	assert.True(t, conf.Quantity.Equal(dec("0.02")))

	cash, err := book.Cash(ctx)
	require.NoError(t, err)
	assert.True(t, cash.Equal(dec("10200")), "cash = %s", cash)

	pos, ok, err := book.Position(ctx, "bitcoin")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, pos.Amount.IsZero())
	assert.True(t, pos.TotalCost.IsZero())
}

func TestExecuteRoundTripExact(t *testing.T) {
	ctx := context.Background()
	executor, book := newTestExecutor("43123.456789")

	before, err := book.Cash(ctx)
	require.NoError(t, err)

	conf, err := executor.Execute(ctx, "bitcoin", ledger.SideBuy, dec("1000"))
	require.NoError(t, err)

	// 同价卖出同等美元金额，现金应精确回到原值
	sellUsd := conf.Quantity.Mul(conf.Price)
	_, err = executor.Execute(ctx, "bitcoin", ledger.SideSell, sellUsd)
	require.NoError(t, err)

	after, err := book.Cash(ctx)
	require.NoError(t, err)
	diff := after.Sub(before).Abs()
	// 数量保留8位小数，往返误差必须在一次舍入以内且无漂移
	assert.True(t, diff.LessThan(dec("0.01")), "cash drift = %s", diff)
}

func TestExecuteInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	executor, book := newTestExecutor("50000")

	_, err := executor.Execute(ctx, "bitcoin", ledger.SideBuy, dec("10001"))
	require.ErrorIs(t, err, ErrInsufficientFunds)

	cash, err := book.Cash(ctx)
	require.NoError(t, err)
	assert.True(t, cash.Equal(dec("10000")), "失败的交易不应动账")

	trades, err := book.Trades(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestExecuteInsufficientHoldings(t *testing.T) {
	ctx := context.Background()
	executor, book := newTestExecutor("50000")

	_, err := executor.Execute(ctx, "bitcoin", ledger.SideBuy, dec("1000"))
	require.NoError(t, err)

	// 持有 0.02，试图卖 0.03（1500 美元）
	_, err = executor.Execute(ctx, "bitcoin", ledger.SideSell, dec("1500"))
	require.ErrorIs(t, err, ErrInsufficientHoldings)

	pos, _, err := book.Position(ctx, "bitcoin")
	require.NoError(t, err)
	assert.True(t, pos.Amount.Equal(dec("0.02")), "失败的卖出不应动仓")

	cash, err := book.Cash(ctx)
	require.NoError(t, err)
	assert.True(t, cash.Equal(dec("9000")))
}

func TestExecuteValidation(t *testing.T) {
	ctx := context.Background()
	executor, _ := newTestExecutor("50000")

	_, err := executor.Execute(ctx, "bitcoin", ledger.Side("short"), dec("100"))
	assert.ErrorIs(t, err, ErrInvalidSide)

	_, err = executor.Execute(ctx, "bitcoin", ledger.SideBuy, dec("0"))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = executor.Execute(ctx, "dogecoin", ledger.SideBuy, dec("100"))
	assert.ErrorIs(t, err, ErrUnsupportedAsset)
}

func TestExecuteInvalidPrice(t *testing.T) {
	book := ledger.NewLedger(ledger.NewMemoryStore())
	executor := NewExecutor(book, stubPriceSource{prices: map[string]market.CoinPrice{
		"bitcoin": {ID: "bitcoin", Symbol: "BTC", PriceUsd: decimal.Zero},
	}})

	_, err := executor.Execute(context.Background(), "bitcoin", ledger.SideBuy, dec("100"))
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestConcurrentSellsNoDoubleSpend(t *testing.T) {
	ctx := context.Background()
	executor, book := newTestExecutor("50000")

	// 持有 0.02 BTC（1000 美元成本）
	_, err := executor.Execute(ctx, "bitcoin", ledger.SideBuy, dec("1000"))
	require.NoError(t, err)

	// 4 个并发卖出各 500 美元（各 0.01 BTC），只装得下 2 个
	const n = 4
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = executor.Execute(ctx, "bitcoin", ledger.SideSell, dec("500"))
		}(i)
	}
	wg.Wait()

	succeeded, failed := 0, 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, ErrInsufficientHoldings)
			failed++
		}
	}
	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 2, failed)

	pos, _, err := book.Position(ctx, "bitcoin")
	require.NoError(t, err)
	assert.True(t, pos.Amount.IsZero(), "不允许超卖")

	cash, err := book.Cash(ctx)
	require.NoError(t, err)
	assert.True(t, cash.Equal(dec("10000")))
}
