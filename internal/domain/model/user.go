package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser           Role = "user"
	RoleEditor         Role = "editor"
	RoleContentManager Role = "content_manager"
	RoleSuperadmin     Role = "superadmin"
)

// トークンのrole claimは文字列で来るので境界で変換する
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleEditor:
		return RoleEditor
	case RoleContentManager:
		return RoleContentManager
	case RoleSuperadmin:
		return RoleSuperadmin
	default:
		return RoleUser
	}
}

// 管理画面に入れるrole
func (r Role) IsAdmin() bool {
	return r == RoleEditor || r == RoleContentManager || r == RoleSuperadmin
}

// TotalOrders / TotalSpent はキャッシュであり正ではない。
// 注文行から常に再計算できること（ズレはバグ）。更新はStatsUsecaseだけが行う。
type User struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Email    string `gorm:"type:varchar(120);uniqueIndex;not null" json:"email"`
	IsActive bool   `gorm:"not null;default:true" json:"is_active"`

	TotalOrders   int64      `gorm:"not null;default:0" json:"total_orders"`
	TotalSpent    int64      `gorm:"not null;default:0" json:"total_spent"`
	LastOrderDate *time.Time `json:"last_order_date"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
