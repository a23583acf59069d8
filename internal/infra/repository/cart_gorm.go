package repository

import (
	"context"
	"fmt"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// insert直後に別リクエストが消した場合の取り直し回数
const getOrCreateAttempts = 3

type cartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) repo.CartRepository {
	return &cartGormRepository{db: db}
}

func ownerScope(owner model.CartOwner) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if owner.IsGuest() {
			return tx.Where("session_id = ?", owner.SessionID)
		}
		return tx.Where("user_id = ?", owner.UserID)
	}
}

// オーナーのカートを取得し、無ければ作成
// INSERT ... ON CONFLICT DO NOTHING で作るので、同時に来ても2つにはならない
func (r *cartGormRepository) GetOrCreate(ctx context.Context, owner model.CartOwner) (model.Cart, error) {
	if !owner.Valid() {
		return model.Cart{}, fmt.Errorf("invalid cart owner")
	}

	for i := 0; i < getOrCreateAttempts; i++ {
		cart := model.NewCart(owner)
		res := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&cart)
		if res.Error != nil {
			return model.Cart{}, res.Error
		}
		if res.RowsAffected == 1 {
			return cart, nil
		}

		//既にある → 取りに行く
		found, err := r.FindByOwner(ctx, owner)
		if err == nil {
			return found, nil
		}
		if err != repo.ErrNotFound {
			return model.Cart{}, err
		}
		//insertとselectの間に消えた（マージ等）→ もう一回
	}
	return model.Cart{}, fmt.Errorf("cart get-or-create: %w", repo.ErrDuplicate)
}

func (r *cartGormRepository) FindByOwner(ctx context.Context, owner model.CartOwner) (model.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).
		Scopes(ownerScope(owner)).
		First(&cart).Error
	if isNotFound(err) {
		return model.Cart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

func (r *cartGormRepository) FindByOwnerForUpdate(ctx context.Context, owner model.CartOwner) (model.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(ownerScope(owner)).
		First(&cart).Error
	if isNotFound(err) {
		return model.Cart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

// カートと明細を削除
func (r *cartGormRepository) Delete(ctx context.Context, cartID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Cart{}, cartID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}
		return nil
	})
}

// 指定カートの明細を全削除
func (r *cartGormRepository) Clear(ctx context.Context, cartID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		res := tx.Model(&model.Cart{}).
			Where("id = ?", cartID).
			Updates(map[string]interface{}{"total_items": 0, "total_price": 0})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}
		return nil
	})
}

// 明細から合計を作り直す（1文で更新）
func (r *cartGormRepository) RecalculateTotals(ctx context.Context, cartID int64) (model.Cart, error) {
	sumQty := r.db.Model(&model.CartItem{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("cart_id = ?", cartID)
	sumPrice := r.db.Model(&model.CartItem{}).
		Select("COALESCE(SUM(quantity * unit_price_snapshot), 0)").
		Where("cart_id = ?", cartID)

	res := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]interface{}{
			"total_items": gorm.Expr("?", sumQty),
			"total_price": gorm.Expr("?", sumPrice),
		})
	if res.Error != nil {
		return model.Cart{}, res.Error
	}
	if res.RowsAffected == 0 {
		return model.Cart{}, repo.ErrNotFound
	}

	var cart model.Cart
	if err := r.db.WithContext(ctx).First(&cart, cartID).Error; err != nil {
		if isNotFound(err) {
			return model.Cart{}, repo.ErrNotFound
		}
		return model.Cart{}, err
	}
	return cart, nil
}
