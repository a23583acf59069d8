package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

type WishlistRepository interface {
	// 既にあれば何もしない
	Add(ctx context.Context, userID, productID int64) error
	Remove(ctx context.Context, userID, productID int64) error
	ListByUserID(ctx context.Context, userID int64) ([]model.WishlistItem, error)
}
