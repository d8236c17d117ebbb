package models

import "time"

// Number is a stored integer value.
type Number struct {
	ID        int64     `gorm:"primaryKey;column:id" json:"id"`
	Value     int64     `gorm:"column:value;index" json:"value"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
	UpdatedBy string    `gorm:"column:updated_by;type:varchar(32)" json:"updated_by"`
}

func (Number) TableName() string {
	return "numbers"
}

// Parity is stored under a primary key column whose name differs from the field.
type Parity struct {
	ID        int64     `gorm:"primaryKey;column:parity_key" json:"id"`
	Name      string    `gorm:"column:name;type:varchar(32)" json:"name"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
	UpdatedBy string    `gorm:"column:updated_by;type:varchar(32)" json:"updated_by"`
}

func (Parity) TableName() string {
	return "parities"
}

// NumberCandidate is an incoming value checked against numbers.value.
type NumberCandidate struct {
	Val int64 `json:"val"`
}

// GenerateNumbers returns count numbers with consecutive values from start.
func GenerateNumbers(start, count int64, at time.Time) []Number {
	numbers := make([]Number, 0, count)
	for v := start; v < start+count; v++ {
		numbers = append(numbers, Number{Value: v, UpdatedAt: at, UpdatedBy: "keymatch"})
	}
	return numbers
}
