package user

import "time"

type User struct {
	ID                int64     `gorm:"primaryKey"`
	CompanyID         int64     `gorm:"column:company_id;not null"`
	Email             string    `gorm:"column:email;uniqueIndex;not null"`
	Name              string    `gorm:"column:name"`
	PasswordHash      string    `gorm:"column:password_hash;not null"`
	Role              string    `gorm:"column:role;default:employee"`
	ManagerID         *int64    `gorm:"column:manager_id"`
	IsManagerApprover bool      `gorm:"column:is_manager_approver;default:false"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}
