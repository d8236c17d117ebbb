package models

import "time"

// Price is a dated quote. Value is nullable.
type Price struct {
	ID    int64     `gorm:"primaryKey;column:id" json:"id"`
	Date  time.Time `gorm:"column:date" json:"date"`
	Name  string    `gorm:"column:name;type:varchar(16)" json:"name"`
	Value *float64  `gorm:"column:value" json:"value"`
}

func (Price) TableName() string {
	return "prices"
}
