package model

import "time"

// 商品の分類軸（カテゴリ・ブランド・サイズ・カラー・素材・タグ）
type TaxonKind string

const (
	TaxonCategory TaxonKind = "category"
	TaxonBrand    TaxonKind = "brand"
	TaxonSize     TaxonKind = "size"
	TaxonColor    TaxonKind = "color"
	TaxonMaterial TaxonKind = "material"
	TaxonTag      TaxonKind = "tag"
)

var taxonKinds = map[string]TaxonKind{
	"category":   TaxonCategory,
	"categories": TaxonCategory,
	"brand":      TaxonBrand,
	"brands":     TaxonBrand,
	"size":       TaxonSize,
	"sizes":      TaxonSize,
	"color":      TaxonColor,
	"colors":     TaxonColor,
	"material":   TaxonMaterial,
	"materials":  TaxonMaterial,
	"tag":        TaxonTag,
	"tags":       TaxonTag,
}

// URLのパス（単数/複数どちらでも）から種類を引く
func ParseTaxonKind(s string) (TaxonKind, bool) {
	k, ok := taxonKinds[s]
	return k, ok
}

// kind + slug で一意
type Taxon struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Kind        TaxonKind `gorm:"type:varchar(20);not null;uniqueIndex:idx_taxons_kind_slug" json:"kind"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Slug        string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_taxons_kind_slug" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
