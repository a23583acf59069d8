package usecase

import (
	"context"
	"errors"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"
)

// CartUsecase は /cart の業務ロジックです。
// 明細を変えたら同じTxで合計を再計算します。
type CartUsecase struct {
	tx       repo.TransactionManager
	carts    repo.CartRepository
	items    repo.CartItemRepository
	products repo.ProductReader
}

func NewCartUsecase(
	tx repo.TransactionManager,
	carts repo.CartRepository,
	items repo.CartItemRepository,
	products repo.ProductReader,
) *CartUsecase {
	return &CartUsecase{
		tx:       tx,
		carts:    carts,
		items:    items,
		products: products,
	}
}

// price は unit_price_snapshot（追加時点の価格）を返します。
type CartItemResponse struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	SizeID    int64  `json:"size_id"`
	ColorID   int64  `json:"color_id"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
	LineTotal int64  `json:"line_total"`
}

type CartResponse struct {
	ID         int64              `json:"id"`
	Items      []CartItemResponse `json:"items"`
	TotalItems int64              `json:"total_items"`
	TotalPrice int64              `json:"total_price"`
}

type AddCartItemInput struct {
	ProductID int64 `validate:"gt=0"`
	SizeID    int64 `validate:"gte=0"`
	ColorID   int64 `validate:"gte=0"`
	Quantity  int64 `validate:"min=1"`
}

// GetCart はカート取得（まだ無ければ空を返す。作るのは最初の追加時）。
func (u *CartUsecase) GetCart(ctx context.Context, owner model.CartOwner) (CartResponse, error) {
	if !owner.Valid() {
		return CartResponse{}, unauthorizedError("cart owner is required")
	}

	cart, err := u.carts.FindByOwner(ctx, owner)
	if errors.Is(err, repo.ErrNotFound) {
		return CartResponse{Items: []CartItemResponse{}}, nil
	}
	if err != nil {
		return CartResponse{}, internalError(err)
	}

	items, err := u.items.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartResponse{}, internalError(err)
	}
	return u.buildCartResponse(ctx, cart, items), nil
}

// AddItem はカートに追加（同じ商品・サイズ・カラーは数量加算）。
func (u *CartUsecase) AddItem(ctx context.Context, owner model.CartOwner, in AddCartItemInput) (CartResponse, error) {
	if !owner.Valid() {
		return CartResponse{}, unauthorizedError("cart owner is required")
	}
	if err := validateInput(in); err != nil {
		return CartResponse{}, err
	}

	// 商品チェック（公開のみ）
	p, err := u.products.FindByID(ctx, in.ProductID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartResponse{}, notFoundError("product not found")
	}
	if err != nil {
		return CartResponse{}, internalError(err)
	}
	if !p.IsActive {
		return CartResponse{}, notFoundError("product not found")
	}
	if !p.HasSize(in.SizeID) {
		return CartResponse{}, validationError("size is not available for this product")
	}
	if !p.HasColor(in.ColorID) {
		return CartResponse{}, validationError("color is not available for this product")
	}

	var cart model.Cart
	var items []model.CartItem

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Carts().GetOrCreate(ctx, owner)
		if err != nil {
			return err
		}

		current, err := r.CartItems().ListByCartID(ctx, c.ID)
		if err != nil {
			return err
		}

		line := model.CartItem{
			CartID:            c.ID,
			ProductID:         p.ID,
			SizeID:            in.SizeID,
			ColorID:           in.ColorID,
			Quantity:          in.Quantity,
			UnitPriceSnapshot: p.Price,
		}

		var existingQty int64
		for _, it := range current {
			if it.SameLine(line) {
				existingQty = it.Quantity
				break
			}
		}
		//在庫はキャッシュを通さずTx内で読む
		stock, err := currentStock(ctx, r, p.ID)
		if err != nil {
			return err
		}
		//既存数量との合計はあふれうるので引き算で比べる
		if in.Quantity > stock-existingQty {
			return validationError("stock exceeded")
		}

		if err := r.CartItems().Upsert(ctx, line); err != nil {
			return err
		}

		if cart, err = r.Carts().RecalculateTotals(ctx, c.ID); err != nil {
			return err
		}
		items, err = r.CartItems().ListByCartID(ctx, c.ID)
		return err
	})
	if err != nil {
		return CartResponse{}, mapCartError(err)
	}

	return u.buildCartResponse(ctx, cart, items), nil
}

// 数量変更（自分のカートの明細だけ）。
func (u *CartUsecase) UpdateItem(ctx context.Context, owner model.CartOwner, cartItemID int64, qty int64) (CartResponse, error) {
	if !owner.Valid() {
		return CartResponse{}, unauthorizedError("cart owner is required")
	}
	if cartItemID <= 0 {
		return CartResponse{}, validationError("invalid id")
	}
	if qty < 1 {
		return CartResponse{}, validationError("quantity must be at least 1")
	}

	return u.mutate(ctx, owner, func(r repo.TxRepos, cart model.Cart) error {
		item, err := r.CartItems().FindByID(ctx, cart.ID, cartItemID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFoundError("cart item not found")
		}
		if err != nil {
			return err
		}

		//商品の在庫チェック
		stock, err := currentStock(ctx, r, item.ProductID)
		if err != nil {
			return err
		}
		if qty > stock {
			return validationError("stock exceeded")
		}

		err = r.CartItems().UpdateQuantity(ctx, cart.ID, cartItemID, qty)
		if errors.Is(err, repo.ErrNotFound) {
			return notFoundError("cart item not found")
		}
		return err
	})
}

// 明細削除
func (u *CartUsecase) RemoveItem(ctx context.Context, owner model.CartOwner, cartItemID int64) (CartResponse, error) {
	if !owner.Valid() {
		return CartResponse{}, unauthorizedError("cart owner is required")
	}
	if cartItemID <= 0 {
		return CartResponse{}, validationError("invalid id")
	}

	return u.mutate(ctx, owner, func(r repo.TxRepos, cart model.Cart) error {
		err := r.CartItems().Delete(ctx, cart.ID, cartItemID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFoundError("cart item not found")
		}
		return err
	})
}

// カートを空にする（カートが無ければ何もしない）
func (u *CartUsecase) ClearCart(ctx context.Context, owner model.CartOwner) (CartResponse, error) {
	if !owner.Valid() {
		return CartResponse{}, unauthorizedError("cart owner is required")
	}

	var out CartResponse
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().FindByOwnerForUpdate(ctx, owner)
		if errors.Is(err, repo.ErrNotFound) {
			out = CartResponse{Items: []CartItemResponse{}}
			return nil
		}
		if err != nil {
			return err
		}
		if err := r.Carts().Clear(ctx, cart.ID); err != nil {
			return err
		}
		out = CartResponse{ID: cart.ID, Items: []CartItemResponse{}}
		return nil
	})
	if err != nil {
		return CartResponse{}, asAppErrorOrInternal(err)
	}
	return out, nil
}

// ゲストのカートをユーザーのカートにまとめる（ログイン時に1回）。
// ゲストカートはロックして同じTxで消すので、2回目は何もしない（false, nil）。
func (u *CartUsecase) MergeGuestCart(ctx context.Context, sessionID string, userID int64) (bool, error) {
	if sessionID == "" || userID <= 0 {
		return false, nil
	}

	merged := false
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		guest, err := r.Carts().FindByOwnerForUpdate(ctx, model.GuestOwner(sessionID))
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		guestItems, err := r.CartItems().ListByCartID(ctx, guest.ID)
		if err != nil {
			return err
		}

		userCart, err := r.Carts().GetOrCreate(ctx, model.UserOwner(userID))
		if err != nil {
			return err
		}

		//同じ行は数量を足す。価格はユーザー側の既存スナップショットのまま
		for _, gi := range guestItems {
			if err := r.CartItems().Upsert(ctx, model.CartItem{
				CartID:            userCart.ID,
				ProductID:         gi.ProductID,
				SizeID:            gi.SizeID,
				ColorID:           gi.ColorID,
				Quantity:          gi.Quantity,
				UnitPriceSnapshot: gi.UnitPriceSnapshot,
			}); err != nil {
				return err
			}
		}

		if err := r.Carts().Delete(ctx, guest.ID); err != nil {
			return err
		}
		if _, err := r.Carts().RecalculateTotals(ctx, userCart.ID); err != nil {
			return err
		}

		merged = true
		return nil
	})
	if err != nil {
		return false, mapCartError(err)
	}
	return merged, nil
}

func currentStock(ctx context.Context, r repo.TxRepos, productID int64) (int64, error) {
	p, err := r.Products().FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return 0, notFoundError("product not found")
	}
	if err != nil {
		return 0, err
	}
	return p.Stock, nil
}

// カート作成の競合はやり直しで解消できるので409
func mapCartError(err error) error {
	if errors.Is(err, repo.ErrDuplicate) {
		return conflictError("cart was changed by another request, please retry", err)
	}
	return asAppErrorOrInternal(err)
}

// 既存カートをロックして変更し、合計を再計算
func (u *CartUsecase) mutate(ctx context.Context, owner model.CartOwner, fn func(r repo.TxRepos, cart model.Cart) error) (CartResponse, error) {
	var cart model.Cart
	var items []model.CartItem

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Carts().FindByOwnerForUpdate(ctx, owner)
		if errors.Is(err, repo.ErrNotFound) {
			return notFoundError("cart item not found")
		}
		if err != nil {
			return err
		}

		if err := fn(r, c); err != nil {
			return err
		}

		if cart, err = r.Carts().RecalculateTotals(ctx, c.ID); err != nil {
			return err
		}
		items, err = r.CartItems().ListByCartID(ctx, c.ID)
		return err
	})
	if err != nil {
		return CartResponse{}, asAppErrorOrInternal(err)
	}

	return u.buildCartResponse(ctx, cart, items), nil
}

// 明細に商品名を付けてCartResponseを作る。合計はカートの値（明細から再計算済み）
func (u *CartUsecase) buildCartResponse(ctx context.Context, cart model.Cart, items []model.CartItem) CartResponse {
	respItems := make([]CartItemResponse, 0, len(items))

	for _, it := range items {
		name := ""
		if p, err := u.products.FindByID(ctx, it.ProductID); err == nil {
			name = p.Name
		}

		respItems = append(respItems, CartItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      name,
			SizeID:    it.SizeID,
			ColorID:   it.ColorID,
			Price:     it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
			LineTotal: it.UnitPriceSnapshot * it.Quantity,
		})
	}

	return CartResponse{
		ID:         cart.ID,
		Items:      respItems,
		TotalItems: cart.TotalItems,
		TotalPrice: cart.TotalPrice,
	}
}
