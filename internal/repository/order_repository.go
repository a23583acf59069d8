package repository

import (
	"context"
	"time"

	"marketplace/internal/domain/model"
)

// 注文一覧の絞り込み。CustomerID/SellerIDが入っていればその範囲だけ。
type OrderListFilter struct {
	Page       int
	Limit      int
	Status     model.OrderStatus
	CustomerID *int64
	SellerID   *int64
	From       *time.Time
	To         *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	// 顧客スコープ付き。他人の注文はErrNotFound
	FindByIDForCustomer(ctx context.Context, orderID int64, customerID int64) (model.Order, error)
	// 新しい順
	List(ctx context.Context, f OrderListFilter) ([]model.Order, int64, error)
	// order_number重複はErrOrderNumberTaken
	Create(ctx context.Context, order *model.Order) error
	// fromのときだけ更新する。状態が変わっていたらErrNotFound
	UpdateStatus(ctx context.Context, orderID int64, from model.OrderStatus, to model.OrderStatus, payment model.PaymentStatus) error
	HasSellerItems(ctx context.Context, orderID int64, sellerID int64) (bool, error)
}

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
}

// 日ごとの連番
type OrderCounterRepository interface {
	// dayの連番を+1して返す。その日の初回は既存注文数+1から始める
	Next(ctx context.Context, day string) (int64, error)
}
