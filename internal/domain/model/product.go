package model

import (
	"time"

	"gorm.io/gorm"
)

type Product struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID    int64  `gorm:"not null;index" json:"seller_id"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Price       int64  `gorm:"not null" json:"price"`
	Stock       int64  `gorm:"not null" json:"stock"`
	IsActive    bool   `gorm:"not null;default:false" json:"is_active"`

	CategoryID *int64 `gorm:"index" json:"category_id"`
	BrandID    *int64 `gorm:"index" json:"brand_id"`
	MaterialID *int64 `gorm:"index" json:"material_id"`

	Sizes  []Taxon `gorm:"many2many:product_sizes;" json:"sizes"`
	Colors []Taxon `gorm:"many2many:product_colors;" json:"colors"`
	Tags   []Taxon `gorm:"many2many:product_tags;" json:"tags"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// 指定のサイズを持っているか（0は指定なし）
func (p Product) HasSize(sizeID int64) bool {
	return sizeID == 0 || containsTaxon(p.Sizes, sizeID)
}

// 指定のカラーを持っているか（0は指定なし）
func (p Product) HasColor(colorID int64) bool {
	return colorID == 0 || containsTaxon(p.Colors, colorID)
}

func containsTaxon(list []Taxon, id int64) bool {
	for _, t := range list {
		if t.ID == id {
			return true
		}
	}
	return false
}
