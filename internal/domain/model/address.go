package model

import "time"

// 配送先住所
type Address struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64 `gorm:"not null;index;uniqueIndex:idx_addresses_user_default,where:is_default = true" json:"user_id"`

	//宛名
	Name   string `gorm:"type:varchar(255);not null" json:"name"`
	Street string `gorm:"type:varchar(255);not null" json:"street"`
	City   string `gorm:"type:varchar(255);not null" json:"city"`
	State  string `gorm:"type:varchar(100);not null" json:"state"`
	Zip    string `gorm:"type:varchar(20);not null" json:"zip"`
	Phone  string `gorm:"type:varchar(30);not null" json:"phone"`

	Country string `gorm:"type:varchar(100);not null" json:"country"`

	//このユーザーのデフォルト住所か（ユーザー内で1件だけ）
	IsDefault bool `gorm:"not null;default:false" json:"is_default"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// 注文に焼き付ける配送先（住所帳が変わっても注文側は変わらない）
type ShippingAddress struct {
	Name    string `gorm:"type:varchar(255);not null" json:"name"`
	Street  string `gorm:"type:varchar(255);not null" json:"street"`
	City    string `gorm:"type:varchar(255);not null" json:"city"`
	State   string `gorm:"type:varchar(100);not null" json:"state"`
	Zip     string `gorm:"type:varchar(20);not null" json:"zip"`
	Phone   string `gorm:"type:varchar(30);not null" json:"phone"`
	Country string `gorm:"type:varchar(100);not null" json:"country"`
}

func (a Address) Snapshot() ShippingAddress {
	return ShippingAddress{
		Name:    a.Name,
		Street:  a.Street,
		City:    a.City,
		State:   a.State,
		Zip:     a.Zip,
		Phone:   a.Phone,
		Country: a.Country,
	}
}
