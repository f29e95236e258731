package repositories

import (
	"errors"
	"fmt"
	"strings"

	"productapi/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
// The *gorm.DB should be opened with TranslateError enabled so unique
// violations surface as gorm.ErrDuplicatedKey.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// FindAll retrieves all products from the database.
func (r *GORMProductRepository) FindAll() ([]models.Product, error) {
	var products []models.Product
	if err := r.db.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

// FindByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) FindByID(id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product with ID %s: %w", id, ErrProductNotFound)
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	return &product, nil
}

// Save inserts or updates a product, keyed by ID.
func (r *GORMProductRepository) Save(product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "price", "stock", "category", "updated_at"}),
	}).Create(product).Error
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("product %q: %w", product.Name, ErrDuplicateName)
		}
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

// DeleteByID deletes a product by its ID from the database.
func (r *GORMProductRepository) DeleteByID(id string) error {
	res := r.db.Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %s: %w", id, ErrProductNotFound)
	}
	return nil
}

// ExistsByID reports whether a product with the given ID is stored.
func (r *GORMProductRepository) ExistsByID(id string) (bool, error) {
	return r.exists("id = ?", id)
}

// ExistsByName reports whether a product with exactly this name is stored.
func (r *GORMProductRepository) ExistsByName(name string) (bool, error) {
	return r.exists("name = ?", name)
}

func (r *GORMProductRepository) exists(query string, arg any) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Product{}).Where(query, arg).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check product existence: %w", err)
	}
	return count > 0, nil
}

// FindByNameContains performs a case-insensitive substring search on name.
// Postgres folds case with ILIKE for every script. SQLite's LOWER only folds
// ASCII letters, so there "éclair" does not match "Éclair".
func (r *GORMProductRepository) FindByNameContains(substr string) ([]models.Product, error) {
	query, pattern := nameContainsQuery(r.db.Dialector.Name(), substr)
	return r.findWhere(query, pattern)
}

func nameContainsQuery(dialect, substr string) (string, string) {
	if dialect == "postgres" {
		return "name ILIKE ? ESCAPE '\\'", "%" + escapeLike(substr) + "%"
	}
	return "LOWER(name) LIKE ? ESCAPE '\\'", "%" + escapeLike(strings.ToLower(substr)) + "%"
}

// FindByCategory returns the products of one category.
func (r *GORMProductRepository) FindByCategory(category string) ([]models.Product, error) {
	return r.findWhere("category = ?", category)
}

// FindByStockAtMost returns the products whose stock is <= stock.
func (r *GORMProductRepository) FindByStockAtMost(stock int) ([]models.Product, error) {
	return r.findWhere("stock <= ?", stock)
}

// FindByPriceBetween returns the products priced within [min, max].
func (r *GORMProductRepository) FindByPriceBetween(minPrice, maxPrice decimal.Decimal) ([]models.Product, error) {
	return r.findWhere("price BETWEEN ? AND ?", minPrice, maxPrice)
}

func (r *GORMProductRepository) findWhere(query string, args ...any) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.Where(query, args...).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	return products, nil
}

// Transaction runs fn inside a database transaction.
func (r *GORMProductRepository) Transaction(fn func(repo ProductRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewGORMProductRepository(tx))
	})
}

// isUniqueViolation also inspects the driver message for databases opened
// without TranslateError.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

// escapeLike escapes the LIKE wildcards so user input is matched literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
