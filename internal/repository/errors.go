package repository

import "errors"

var (
	// 対象が存在しない
	ErrNotFound = errors.New("not found")

	// unique制約違反
	ErrDuplicate = errors.New("duplicate key")

	// 注文番号の衝突（注文作成ごとリトライする）
	ErrOrderNumberTaken = errors.New("order number already taken")
)
