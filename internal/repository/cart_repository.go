package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

type CartRepository interface {
	// insert-if-absent。同じオーナーで2つ作らない
	GetOrCreate(ctx context.Context, owner model.CartOwner) (model.Cart, error)
	FindByOwner(ctx context.Context, owner model.CartOwner) (model.Cart, error)
	// 行ロック付き（マージ・注文確定用）
	FindByOwnerForUpdate(ctx context.Context, owner model.CartOwner) (model.Cart, error)
	// 明細ごと消す
	Delete(ctx context.Context, cartID int64) error
	// 明細を全削除して合計を0に
	Clear(ctx context.Context, cartID int64) error
	// 明細からtotal_items/total_priceを再計算して返す
	RecalculateTotals(ctx context.Context, cartID int64) (model.Cart, error)
}

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	// 同じ(product, size, color)は数量加算。価格は最初のスナップショットのまま
	Upsert(ctx context.Context, item model.CartItem) error
	UpdateQuantity(ctx context.Context, cartID int64, cartItemID int64, qty int64) error
	Delete(ctx context.Context, cartID int64, cartItemID int64) error
	FindByID(ctx context.Context, cartID int64, cartItemID int64) (model.CartItem, error)
}
