package usecase

import (
	"context"
	"errors"
	"strings"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"
)

// 操作している人（トークンから）
type Actor struct {
	UserID int64
	Role   model.Role
}

func (a Actor) IsAdmin() bool  { return a.Role == model.RoleAdmin }
func (a Actor) IsSeller() bool { return a.Role == model.RoleSeller }

// 管理者・出品者向けの注文管理
type ManageOrderUsecase struct {
	tx     repo.TransactionManager
	orders repo.OrderRepository
	items  repo.OrderItemRepository
}

func NewManageOrderUsecase(tx repo.TransactionManager, orders repo.OrderRepository, items repo.OrderItemRepository) *ManageOrderUsecase {
	return &ManageOrderUsecase{tx: tx, orders: orders, items: items}
}

// 注文一覧（出品者は自分の商品を含む注文だけ）
func (u *ManageOrderUsecase) List(ctx context.Context, actor Actor, in ListOrdersInput, customerID *int64) (OrderListOutput, error) {
	if err := requireStaff(actor); err != nil {
		return OrderListOutput{}, err
	}
	f, err := toOrderListFilter(in)
	if err != nil {
		return OrderListOutput{}, err
	}
	f.CustomerID = customerID
	if actor.IsSeller() {
		f.SellerID = &actor.UserID
	}

	return listOrders(ctx, u.orders, u.items, f)
}

// 管理者・出品者はIDで任意の注文を取得できる
func (u *ManageOrderUsecase) Get(ctx context.Context, actor Actor, orderID int64) (OrderOutput, error) {
	if err := requireStaff(actor); err != nil {
		return OrderOutput{}, err
	}
	if orderID <= 0 {
		return OrderOutput{}, validationError("invalid id")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderOutput{}, notFoundError("order not found")
	}
	if err != nil {
		return OrderOutput{}, internalError(err)
	}

	items, err := u.items.ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderOutput{}, internalError(err)
	}
	return toOrderOutput(o, items), nil
}

// ステータス更新（CANCELLEDなら在庫戻し）。出品者は自分の商品を含む注文だけ
func (u *ManageOrderUsecase) UpdateStatus(ctx context.Context, actor Actor, orderID int64, status string) (OrderOutput, error) {
	if err := requireStaff(actor); err != nil {
		return OrderOutput{}, err
	}
	if orderID <= 0 {
		return OrderOutput{}, validationError("invalid id")
	}

	to, ok := model.ParseOrderStatus(strings.ToUpper(strings.TrimSpace(status)))
	if !ok {
		return OrderOutput{}, validationError("invalid status")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFoundError("order not found")
		}
		if err != nil {
			return err
		}

		if actor.IsSeller() {
			mine, err := r.Orders().HasSellerItems(ctx, o.ID, actor.UserID)
			if err != nil {
				return err
			}
			if !mine {
				return forbiddenError("order does not contain your products")
			}
		}

		out, err = transitionOrder(ctx, r, o, to, actor.UserID)
		return err
	})
	if err != nil {
		return OrderOutput{}, asAppErrorOrInternal(err)
	}
	return out, nil
}

func requireStaff(actor Actor) error {
	if actor.UserID <= 0 {
		return unauthorizedError("unauthorized")
	}
	if !actor.IsAdmin() && !actor.IsSeller() {
		return forbiddenError("forbidden")
	}
	return nil
}
