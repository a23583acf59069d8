package usecase

import (
	"fmt"
	"time"
)

type Clock interface {
	Now() time.Time
}

// 注文番号の日付部分（YYYYMMDD）。locの暦日で切る
func orderNumberDay(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format("20060102")
}

// ORD-YYYYMMDD-NNNN（1万件目以降は桁が増える）
func FormatOrderNumber(day string, seq int64) string {
	return fmt.Sprintf("ORD-%s-%04d", day, seq)
}
