package model

import "time"

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleSeller   Role = "SELLER"
	RoleCustomer Role = "CUSTOMER"
)

// 登録できるロールか（ADMINは登録経路からは作らない）
func (r Role) Registrable() bool {
	return r == RoleCustomer || r == RoleSeller
}

type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"column:password_hash;not null" json:"-"`
	Name         string `gorm:"type:varchar(255);not null;default:''" json:"name"`
	Role         Role   `gorm:"type:varchar(20);not null;default:'CUSTOMER';index" json:"role"`

	//SELLERは管理者の承認が必要
	IsApproved bool `gorm:"not null;default:false" json:"is_approved"`

	TokenVersion int        `gorm:"not null;default:0" json:"token_version"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
