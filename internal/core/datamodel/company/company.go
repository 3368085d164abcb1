package company

import "time"

type Company struct {
	ID              int64     `gorm:"primaryKey"`
	Name            string    `gorm:"column:name;not null"`
	DefaultCurrency string    `gorm:"column:default_currency;not null"`
	Country         string    `gorm:"column:country"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (Company) TableName() string {
	return "companies"
}
