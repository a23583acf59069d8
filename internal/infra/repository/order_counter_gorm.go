package repository

import (
	"context"

	repo "marketplace/internal/repository"

	"gorm.io/gorm"
)

// その日の初回は既存注文の最大連番+1（連番に欠けがなければ件数+1と同じ）。
// 以降は行ロック付きで+1。カウンタが既存注文より遅れていたら追いつかせる。
// "ORD-YYYYMMDD-" は13文字なので連番は14文字目から
const nextOrderSeqSQL = `
INSERT INTO order_counters (day, seq, updated_at)
VALUES (
  ?,
  (SELECT COALESCE(MAX(CAST(SUBSTRING(order_number FROM 14) AS BIGINT)), 0)
     FROM orders WHERE order_number LIKE ?) + 1,
  NOW()
)
ON CONFLICT (day) DO UPDATE
SET seq = GREATEST(order_counters.seq, EXCLUDED.seq - 1) + 1,
    updated_at = NOW()
RETURNING seq`

type orderCounterGormRepository struct {
	db *gorm.DB
}

func NewOrderCounterGormRepository(db *gorm.DB) repo.OrderCounterRepository {
	return &orderCounterGormRepository{db: db}
}

func (r *orderCounterGormRepository) Next(ctx context.Context, day string) (int64, error) {
	var seq int64
	err := r.db.WithContext(ctx).
		Raw(nextOrderSeqSQL, day, "ORD-"+day+"-%").
		Scan(&seq).Error
	if err != nil {
		return 0, err
	}
	return seq, nil
}
