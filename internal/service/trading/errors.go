package trading

import "errors"

// 交易校验失败的哨兵错误，调用方用 errors.Is 判断
// 全部为可恢复错误：失败的请求不产生任何状态变更
var (
	ErrInvalidSide          = errors.New("side must be 'buy' or 'sell'")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrUnsupportedAsset     = errors.New("unsupported asset")
	ErrInvalidPrice         = errors.New("invalid price data")
	ErrInsufficientFunds    = errors.New("insufficient cash")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
)
