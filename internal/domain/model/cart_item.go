package model

import "time"

// カートの明細
// 追加時点の価格を必ず保存。(cart, product, size, color)で1行。
type CartItem struct {
	ID        int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID    int64 `gorm:"not null;uniqueIndex:idx_cart_items_line" json:"cart_id"`
	ProductID int64 `gorm:"not null;index;uniqueIndex:idx_cart_items_line" json:"product_id"`

	//0はサイズ/カラー指定なし
	SizeID  int64 `gorm:"not null;default:0;uniqueIndex:idx_cart_items_line" json:"size_id"`
	ColorID int64 `gorm:"not null;default:0;uniqueIndex:idx_cart_items_line" json:"color_id"`

	Quantity          int64     `gorm:"not null;check:chk_cart_items_quantity,quantity >= 1" json:"quantity"`
	UnitPriceSnapshot int64     `gorm:"not null;column:unit_price_snapshot" json:"unit_price_snapshot"`
	CreatedAt         time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 同じ行として数量加算する組み合わせか
func (i CartItem) SameLine(o CartItem) bool {
	return i.ProductID == o.ProductID && i.SizeID == o.SizeID && i.ColorID == o.ColorID
}
