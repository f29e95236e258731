package repositories

import (
	"fmt"
	"strings"
	"sync"

	"productapi/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MockProductRepository is an in-memory implementation of ProductRepository.
// Records are returned in insertion order.
type MockProductRepository struct {
	products map[string]models.Product
	order    []string
	mu       sync.RWMutex
}

// NewMockProductRepository creates a new instance of MockProductRepository.
func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{
		products: make(map[string]models.Product),
	}
}

// unlocked returns a view that skips locking; the caller must hold mu.
func (r *MockProductRepository) unlocked() *mockProductTx {
	return &mockProductTx{repo: r}
}

// FindAll returns all products.
func (r *MockProductRepository) FindAll() ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.unlocked().FindAll()
}

// FindByID returns a product by its ID.
func (r *MockProductRepository) FindByID(id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.unlocked().FindByID(id)
}

// Save adds or replaces a product. Name uniqueness is enforced here the
// same way the database unique index does it.
func (r *MockProductRepository) Save(product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unlocked().Save(product)
}

// DeleteByID removes a product by its ID.
func (r *MockProductRepository) DeleteByID(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unlocked().DeleteByID(id)
}

func (r *MockProductRepository) ExistsByID(id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.unlocked().ExistsByID(id)
}

func (r *MockProductRepository) ExistsByName(name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.unlocked().ExistsByName(name)
}

func (r *MockProductRepository) FindByNameContains(substr string) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.unlocked().FindByNameContains(substr)
}

func (r *MockProductRepository) FindByCategory(category string) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.unlocked().FindByCategory(category)
}

func (r *MockProductRepository) FindByStockAtMost(stock int) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.unlocked().FindByStockAtMost(stock)
}

func (r *MockProductRepository) FindByPriceBetween(minPrice, maxPrice decimal.Decimal) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.unlocked().FindByPriceBetween(minPrice, maxPrice)
}

// Transaction holds the write lock for the duration of fn and restores the
// previous state if fn fails.
func (r *MockProductRepository) Transaction(fn func(repo ProductRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make(map[string]models.Product, len(r.products))
	for id, p := range r.products {
		snapshot[id] = p
	}
	order := append([]string(nil), r.order...)

	if err := fn(r.unlocked()); err != nil {
		r.products = snapshot
		r.order = order
		return err
	}
	return nil
}

// mockProductTx implements ProductRepository directly on the parent's state.
type mockProductTx struct {
	repo *MockProductRepository
}

func (t *mockProductTx) filter(keep func(models.Product) bool) []models.Product {
	out := make([]models.Product, 0, len(t.repo.order))
	for _, id := range t.repo.order {
		if p := t.repo.products[id]; keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func (t *mockProductTx) FindAll() ([]models.Product, error) {
	return t.filter(func(models.Product) bool { return true }), nil
}

func (t *mockProductTx) FindByID(id string) (*models.Product, error) {
	product, ok := t.repo.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %s: %w", id, ErrProductNotFound)
	}
	return &product, nil
}

func (t *mockProductTx) Save(product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	for id, p := range t.repo.products {
		if id != product.ID && p.Name == product.Name {
			return fmt.Errorf("product %q: %w", product.Name, ErrDuplicateName)
		}
	}
	stored := *product
	if existing, ok := t.repo.products[product.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		t.repo.order = append(t.repo.order, product.ID)
	}
	t.repo.products[product.ID] = stored
	return nil
}

func (t *mockProductTx) DeleteByID(id string) error {
	if _, ok := t.repo.products[id]; !ok {
		return fmt.Errorf("product with ID %s: %w", id, ErrProductNotFound)
	}
	delete(t.repo.products, id)
	for i, oid := range t.repo.order {
		if oid == id {
			t.repo.order = append(t.repo.order[:i:i], t.repo.order[i+1:]...)
			break
		}
	}
	return nil
}

func (t *mockProductTx) ExistsByID(id string) (bool, error) {
	_, ok := t.repo.products[id]
	return ok, nil
}

func (t *mockProductTx) ExistsByName(name string) (bool, error) {
	for _, p := range t.repo.products {
		if p.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (t *mockProductTx) FindByNameContains(substr string) ([]models.Product, error) {
	needle := strings.ToLower(substr)
	return t.filter(func(p models.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), needle)
	}), nil
}

func (t *mockProductTx) FindByCategory(category string) ([]models.Product, error) {
	return t.filter(func(p models.Product) bool { return p.Category == category }), nil
}

func (t *mockProductTx) FindByStockAtMost(stock int) ([]models.Product, error) {
	return t.filter(func(p models.Product) bool { return p.Stock <= stock }), nil
}

func (t *mockProductTx) FindByPriceBetween(minPrice, maxPrice decimal.Decimal) ([]models.Product, error) {
	return t.filter(func(p models.Product) bool {
		return p.Price.GreaterThanOrEqual(minPrice) && p.Price.LessThanOrEqual(maxPrice)
	}), nil
}

// Transaction nests by running fn in the current transaction.
func (t *mockProductTx) Transaction(fn func(repo ProductRepository) error) error {
	return fn(t)
}
