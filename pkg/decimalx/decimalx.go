package decimalx

import "github.com/shopspring/decimal"

func MustFromString(s string) decimal.Decimal {
	f, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return f
}

// 统一的舍入位数：金额2位、价格6位、数量8位，四舍五入
const (
	UsdPlaces   = 2
	PricePlaces = 6
	QtyPlaces   = 8
)

func RoundUsd(d decimal.Decimal) decimal.Decimal {
	return d.Round(UsdPlaces)
}

func RoundPrice(d decimal.Decimal) decimal.Decimal {
	return d.Round(PricePlaces)
}

func RoundQty(d decimal.Decimal) decimal.Decimal {
	return d.Round(QtyPlaces)
}
