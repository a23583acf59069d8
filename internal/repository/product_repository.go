package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

// 一覧検索
type ProductListQuery struct {
	Page       int
	Limit      int
	Q          string
	CategoryID *int64
	BrandID    *int64
	SellerID   *int64
	MinPrice   *int64
	MaxPrice   *int64
	Sort       string
	// 管理画面用：非公開も含める
	IncludeInactive bool
}

// 商品と紐づくサイズ・カラー・タグ
type ProductTaxons struct {
	SizeIDs  []int64
	ColorIDs []int64
	TagIDs   []int64
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	List(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	// サイズ・カラー・タグも読み込む
	FindByID(ctx context.Context, id int64) (model.Product, error)

	Create(ctx context.Context, p model.Product, taxons ProductTaxons) (model.Product, error)
	Update(ctx context.Context, p model.Product, taxons ProductTaxons) error
	SoftDelete(ctx context.Context, id int64) error
}

// カタログ参照だけ（キャッシュ越しでもよい）
type ProductReader interface {
	FindByID(ctx context.Context, id int64) (model.Product, error)
}

// 在庫の更新
type InventoryRepository interface {
	// 在庫が足りるときだけ減算
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)

	// 在庫戻し（キャンセルなど）
	IncreaseStock(ctx context.Context, productID int64, qty int64) error

	// 在庫を「現在値」に更新し、調整履歴も残す
	SetStockWithAdjustment(ctx context.Context, actorUserID int64, productID int64, newStock int64, reason string) (before int64, err error)
}
