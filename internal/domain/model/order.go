package model

import "time"

type PaymentMethod string

const (
	//現状は代引きのみ
	PaymentMethodCOD PaymentMethod = "COD"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// 作成後は金額・明細・配送先を変えない。変わるのはステータスだけ。
type Order struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber string `gorm:"type:varchar(32);not null;uniqueIndex" json:"order_number"`
	CustomerID  int64  `gorm:"not null;index" json:"customer_id"`

	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`

	PaymentMethod PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null" json:"payment_status"`
	Status        OrderStatus   `gorm:"type:varchar(20);not null;index" json:"order_status"`

	Subtotal     int64 `gorm:"not null" json:"subtotal"`
	ShippingCost int64 `gorm:"not null" json:"shipping_cost"`
	TaxAmount    int64 `gorm:"not null" json:"tax_amount"`
	TotalAmount  int64 `gorm:"not null" json:"total_amount"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
