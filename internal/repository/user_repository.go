package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

// 出品者一覧の絞り込み
type SellerFilter struct {
	Approved *bool
	Page     int
	Limit    int
}

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成（email重複はErrDuplicate）
	Create(ctx context.Context, user *model.User) error
	// IDからユーザーを1件取得する。無ければErrNotFound
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	//メールからユーザーを一件取得する。無ければErrNotFound
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	//最終ログイン時刻の更新
	TouchLastLogin(ctx context.Context, userID int64) error
	//トークンのバージョンを＋１
	IncrementTokenVersion(ctx context.Context, userID int64) error
	//出品者の承認フラグ切り替え
	SetApproved(ctx context.Context, userID int64, approved bool) error
	ListSellers(ctx context.Context, f SellerFilter) ([]model.User, int64, error)
}
