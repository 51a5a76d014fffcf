package farm

import "time"

// Farmer is the farmer profile attached to a user account.
type Farmer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"column:user_id;not null;uniqueIndex" json:"user_id"`
	FarmName  string    `gorm:"column:farm_name" json:"farm_name,omitempty"`
	Address   string    `gorm:"column:address" json:"address,omitempty"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (Farmer) TableName() string { return "farmer" }

// Agronomist is the agronomist profile attached to a user account.
type Agronomist struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"column:user_id;not null;uniqueIndex" json:"user_id"`
	CompanyName   string    `gorm:"column:company_name" json:"company_name,omitempty"`
	LicenseNumber string    `gorm:"column:license_number" json:"license_number,omitempty"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (Agronomist) TableName() string { return "agronomist" }
