package ioc

import (
	"time"

	"github.com/spf13/viper"
	"github.com/zedigital/trading-bot/internal/service/market"
)

func InitCoinGecko() *market.CoinGeckoService {
	type Config struct {
		BaseUrl          string `mapstructure:"base_url"`
		PriceTTLSecond   int    `mapstructure:"price_ttl_second"`
		HistoryTTLSecond int    `mapstructure:"history_ttl_second"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("market.coingecko", &cfg); err != nil {
		panic(err)
	}

	var opts []market.Option
	if cfg.BaseUrl != "" {
		opts = append(opts, market.WithBaseURL(cfg.BaseUrl))
	}
	if cfg.PriceTTLSecond > 0 && cfg.HistoryTTLSecond > 0 {
		opts = append(opts, market.WithTTL(
			time.Duration(cfg.PriceTTLSecond)*time.Second,
			time.Duration(cfg.HistoryTTLSecond)*time.Second,
		))
	}
	return market.NewCoinGeckoService(opts...)
}
