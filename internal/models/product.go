package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxPrice is the largest price the decimal(12,2) price column holds.
var MaxPrice = decimal.RequireFromString("9999999999.99")

// Product represents a catalog item.
type Product struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string          `json:"name" gorm:"uniqueIndex;type:varchar(100);not null"`
	Description string          `json:"description" gorm:"type:varchar(500)"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	Stock       int             `json:"stock" gorm:"not null;default:0"`
	Category    string          `json:"category" gorm:"index;type:varchar(100)"`
	CreatedAt   time.Time       `json:"created_at" gorm:"autoCreateTime:false"`
	UpdatedAt   time.Time       `json:"updated_at" gorm:"autoUpdateTime:false"`
}

// ProductDTO is the request body for creating a product.
type ProductDTO struct {
	Name        string           `json:"name" validate:"required,max=100"`
	Description string           `json:"description" validate:"max=500"`
	Price       *decimal.Decimal `json:"price" validate:"required,gte=0,lte=9999999999.99"`
	Stock       *int             `json:"stock" validate:"required,gte=0"`
	Category    string           `json:"category" validate:"max=100"`
}

// ProductPatch is the request body for a partial update. Fields that are not
// present in the JSON document keep their stored value.
type ProductPatch struct {
	Name        Optional[string]          `json:"name" validate:"omitempty,max=100"`
	Description Optional[string]          `json:"description" validate:"omitempty,max=500"`
	Price       Optional[decimal.Decimal] `json:"price" validate:"omitempty,gte=0,lte=9999999999.99"`
	Stock       Optional[int]             `json:"stock" validate:"omitempty,gte=0"`
	Category    Optional[string]          `json:"category" validate:"omitempty,max=100"`
}
