package model

import "time"

// ユーザーIDかゲストのセッショントークンのどちらか一方で持ち主が決まる
type CartOwner struct {
	UserID    int64
	SessionID string
}

func UserOwner(userID int64) CartOwner {
	return CartOwner{UserID: userID}
}

func GuestOwner(sessionID string) CartOwner {
	return CartOwner{SessionID: sessionID}
}

// 片方だけ埋まっているときだけ有効
func (o CartOwner) Valid() bool {
	return (o.UserID > 0) != (o.SessionID != "")
}

func (o CartOwner) IsGuest() bool {
	return o.SessionID != ""
}

// 1オーナーにつきカートは1つ（user_id / session_id それぞれunique）
type Cart struct {
	ID        int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *int64  `gorm:"uniqueIndex;check:chk_carts_owner,(user_id IS NULL) <> (session_id IS NULL)" json:"user_id,omitempty"`
	SessionID *string `gorm:"type:varchar(64);uniqueIndex" json:"session_id,omitempty"`

	//明細から再計算する値（直接書き換えない）
	TotalItems int64 `gorm:"not null;default:0" json:"total_items"`
	TotalPrice int64 `gorm:"not null;default:0" json:"total_price"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func NewCart(owner CartOwner) Cart {
	c := Cart{}
	if owner.IsGuest() {
		s := owner.SessionID
		c.SessionID = &s
	} else {
		id := owner.UserID
		c.UserID = &id
	}
	return c
}
