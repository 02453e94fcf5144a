package model

import "time"

type UserRole string

const (
	UserRoleCitizen  UserRole = "citizen"
	UserRoleOperator UserRole = "operator"
	UserRoleAdmin    UserRole = "admin"
)

type User struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Role         UserRole  `gorm:"type:varchar(16);not null" json:"role"`
	TenantID     *string   `gorm:"type:varchar(64)" json:"tenant_id"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
