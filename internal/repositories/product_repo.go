package repositories

import (
	"errors"

	"productapi/internal/models"

	"github.com/shopspring/decimal"
)

var (
	// ErrProductNotFound is returned when no product has the requested ID.
	ErrProductNotFound = errors.New("product not found")
	// ErrDuplicateName is returned when a write would break name uniqueness.
	ErrDuplicateName = errors.New("product name already exists")
)

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	FindAll() ([]models.Product, error)
	FindByID(id string) (*models.Product, error)
	// Save inserts the product, or overwrites it when the ID already exists.
	// An empty ID is replaced with a fresh UUID.
	Save(product *models.Product) error
	DeleteByID(id string) error
	ExistsByID(id string) (bool, error)
	// ExistsByName matches the name exactly (case-sensitive).
	ExistsByName(name string) (bool, error)
	// FindByNameContains matches a case-insensitive substring of the name.
	FindByNameContains(substr string) ([]models.Product, error)
	FindByCategory(category string) ([]models.Product, error)
	FindByStockAtMost(stock int) ([]models.Product, error)
	// FindByPriceBetween is inclusive at both ends.
	FindByPriceBetween(minPrice, maxPrice decimal.Decimal) ([]models.Product, error)
	// Transaction runs fn against a repository bound to a single transaction.
	// The transaction is committed when fn returns nil and rolled back otherwise.
	Transaction(fn func(repo ProductRepository) error) error
}
