package user

import "time"

// Role 账号角色。admin 可管理用户、清空库存、创建/删除快照。
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid 检查是否是已知角色。
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User 是 users 表的 GORM 模型。
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	PasswordHash string    `gorm:"size:128;not null" json:"-"`
	Role         Role      `gorm:"type:varchar(16);not null" json:"role"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"-"`
}
