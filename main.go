package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/zedigital/trading-bot/internal/repo"
	"github.com/zedigital/trading-bot/internal/service/ledger"
	"github.com/zedigital/trading-bot/internal/service/market"
	binancemarket "github.com/zedigital/trading-bot/internal/service/market/binance"
	"github.com/zedigital/trading-bot/internal/service/monitor"
	"github.com/zedigital/trading-bot/internal/service/portfolio"
	"github.com/zedigital/trading-bot/ioc"
)

func initViper() {

	// --config=./config/xxx.yaml
	file := pflag.String("config", "./config/config.dev.yaml", "specify config file")
	pflag.Parse()

	viper.SetConfigFile(*file)
	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s \n", err))
	}

}

// initHistorySource 历史K线来源，默认走 CoinGecko，可切换 Binance
func initHistorySource(coinGecko *market.CoinGeckoService) market.HistorySource {
	if viper.GetString("market.history_source") == "binance" {
		return binancemarket.NewHistoryService(ioc.InitBinanceCli())
	}
	return coinGecko
}

func main() {
	initViper()

	db := ioc.InitDB()
	if err := repo.InitTables(db); err != nil {
		panic(err)
	}

	coinGecko := ioc.InitCoinGecko()
	historySvc := initHistorySource(coinGecko)

	book := ledger.NewLedger(repo.NewLedgerStore(db))

	signalRepo := repo.NewSignalRepo(db)
	signalMonitor := monitor.NewSignalMonitor(historySvc, signalRepo)
	task := monitor.NewSignalScanTask(signalMonitor)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute*10)
	defer cancel()
	if err := task.Run(ctx); err != nil {
		panic(err)
	}

	portfolioSvc := portfolio.NewService(book, coinGecko)
	summary, err := portfolioSvc.Summary(ctx)
	if err != nil {
		panic(err)
	}
	slog.Info("portfolio summary",
		"cash", summary.Cash,
		"total_value", summary.TotalValue,
		"total_pnl", summary.TotalPnl,
		"holdings", len(summary.Holdings),
		"win_rate", summary.WinRate)
}
