package model

import "time"

// 日ごとの注文番号の連番（DB上でアトミックに+1する）
type OrderCounter struct {
	Day       string    `gorm:"type:char(8);primaryKey" json:"day"`
	Seq       int64     `gorm:"not null" json:"seq"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
