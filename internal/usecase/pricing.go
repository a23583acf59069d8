package usecase

import "github.com/shopspring/decimal"

// 送料・税の計算（差し替え可能）
type PricingPolicy interface {
	Quote(subtotal int64) (shipping int64, tax int64)
}

// 一律送料（閾値以上は無料）＋ 小計×税率（四捨五入）
type FlatRatePolicy struct {
	ShippingFee           int64
	FreeShippingThreshold int64
	TaxRate               decimal.Decimal
}

func (p FlatRatePolicy) Quote(subtotal int64) (int64, int64) {
	shipping := p.ShippingFee
	if p.FreeShippingThreshold > 0 && subtotal >= p.FreeShippingThreshold {
		shipping = 0
	}

	tax := decimal.NewFromInt(subtotal).Mul(p.TaxRate).Round(0).IntPart()
	return shipping, tax
}
