package usecase

import (
	"context"
	"errors"
	"time"

	"marketplace/internal/repository"
)

type WishlistItemDTO struct {
	ProductID int64     `json:"product_id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	InStock   bool      `json:"in_stock"`
	AddedAt   time.Time `json:"added_at"`
}

type WishlistUsecase struct {
	wishlist repository.WishlistRepository
	products repository.ProductReader
}

func NewWishlistUsecase(wishlist repository.WishlistRepository, products repository.ProductReader) *WishlistUsecase {
	return &WishlistUsecase{wishlist: wishlist, products: products}
}

// 非公開・削除済みになった商品は出さない
func (u *WishlistUsecase) List(ctx context.Context, userID int64) ([]WishlistItemDTO, error) {
	if userID <= 0 {
		return nil, unauthorizedError("unauthorized")
	}

	items, err := u.wishlist.ListByUserID(ctx, userID)
	if err != nil {
		return nil, internalError(err)
	}

	out := make([]WishlistItemDTO, 0, len(items))
	for _, it := range items {
		p, err := u.products.FindByID(ctx, it.ProductID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, internalError(err)
		}
		if !p.IsActive {
			continue
		}
		out = append(out, WishlistItemDTO{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			InStock:   p.Stock > 0,
			AddedAt:   it.CreatedAt,
		})
	}
	return out, nil
}

// 既に入っていても成功
func (u *WishlistUsecase) Add(ctx context.Context, userID, productID int64) error {
	if userID <= 0 {
		return unauthorizedError("unauthorized")
	}
	if productID <= 0 {
		return validationError("invalid product_id")
	}

	p, err := u.products.FindByID(ctx, productID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !p.IsActive) {
		return notFoundError("product not found")
	}
	if err != nil {
		return internalError(err)
	}

	if err := u.wishlist.Add(ctx, userID, productID); err != nil {
		return internalError(err)
	}
	return nil
}

func (u *WishlistUsecase) Remove(ctx context.Context, userID, productID int64) error {
	if userID <= 0 {
		return unauthorizedError("unauthorized")
	}
	if productID <= 0 {
		return validationError("invalid product_id")
	}

	err := u.wishlist.Remove(ctx, userID, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return notFoundError("product is not in wishlist")
	}
	if err != nil {
		return internalError(err)
	}
	return nil
}
