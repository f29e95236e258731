package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"productapi/internal/models"
	"productapi/internal/repositories"

	"github.com/shopspring/decimal"
)

// ProductService handles business logic related to products.
//
// Name uniqueness is guaranteed by the storage unique index. The ExistsByName
// checks below only reject the common case early with a clear message;
// concurrent writers can still race past them, in which case the store
// reports ErrDuplicateName and the caller gets the same Conflict.
type ProductService struct {
	repo      repositories.ProductRepository
	publisher EventPublisher
	now       func() time.Time
}

// NewProductService creates a new ProductService. A nil publisher disables
// product events.
func NewProductService(repo repositories.ProductRepository, publisher EventPublisher) *ProductService {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &ProductService{
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
	}
}

// WithClock returns a copy of the service reading time from now.
func (s *ProductService) WithClock(now func() time.Time) *ProductService {
	cp := *s
	cp.now = now
	return &cp
}

// timestamp is truncated to the precision every supported database keeps.
func (s *ProductService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// ListAll retrieves all products in store order.
func (s *ProductService) ListAll() ([]models.Product, error) {
	products, err := s.repo.FindAll()
	if err != nil {
		return nil, newInternalError("could not list products", err)
	}
	return products, nil
}

// GetByID retrieves a single product by its ID.
func (s *ProductService) GetByID(id string) (*models.Product, error) {
	product, err := s.repo.FindByID(id)
	if err != nil {
		return nil, s.storeError(id, err)
	}
	return product, nil
}

// Create validates the input and persists a new product.
func (s *ProductService) Create(input models.ProductDTO) (*models.Product, error) {
	if fields := validateDTO(input); len(fields) > 0 {
		return nil, NewValidationError("validation failed", fields)
	}

	ts := s.timestamp()
	product := &models.Product{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price.Round(2),
		Stock:       *input.Stock,
		Category:    input.Category,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}

	err := s.repo.Transaction(func(repo repositories.ProductRepository) error {
		exists, err := repo.ExistsByName(input.Name)
		if err != nil {
			return err
		}
		if exists {
			return NewConflictError(fmt.Sprintf("product '%s' already exists", input.Name), nil)
		}
		return repo.Save(product)
	})
	if err != nil {
		return nil, s.storeError("", err)
	}

	s.publish(models.EventProductCreated, product)
	return product, nil
}

// Update applies the present fields of patch to the product with the given ID.
func (s *ProductService) Update(id string, patch models.ProductPatch) (*models.Product, error) {
	if fields := validatePatch(patch); len(fields) > 0 {
		return nil, NewValidationError("validation failed", fields)
	}

	var updated *models.Product
	err := s.repo.Transaction(func(repo repositories.ProductRepository) error {
		existing, err := repo.FindByID(id)
		if err != nil {
			return err
		}

		if patch.Name.Present() && patch.Name.Value != existing.Name {
			exists, err := repo.ExistsByName(patch.Name.Value)
			if err != nil {
				return err
			}
			if exists {
				return NewConflictError(fmt.Sprintf("name '%s' is already in use", patch.Name.Value), nil)
			}
		}

		merged := applyPatch(*existing, patch)
		merged.UpdatedAt = s.timestamp()
		if !merged.UpdatedAt.After(existing.UpdatedAt) {
			merged.UpdatedAt = existing.UpdatedAt.Add(time.Microsecond)
		}
		if err := repo.Save(&merged); err != nil {
			return err
		}
		updated = &merged
		return nil
	})
	if err != nil {
		return nil, s.storeError(id, err)
	}

	s.publish(models.EventProductUpdated, updated)
	return updated, nil
}

// Delete removes the product with the given ID.
func (s *ProductService) Delete(id string) error {
	var deleted *models.Product
	err := s.repo.Transaction(func(repo repositories.ProductRepository) error {
		product, err := repo.FindByID(id)
		if err != nil {
			return err
		}
		deleted = product
		return repo.DeleteByID(id)
	})
	if err != nil {
		return s.storeError(id, err)
	}

	s.publish(models.EventProductDeleted, deleted)
	return nil
}

// SearchByName returns products whose name contains substr, ignoring case.
func (s *ProductService) SearchByName(substr string) ([]models.Product, error) {
	products, err := s.repo.FindByNameContains(substr)
	if err != nil {
		return nil, newInternalError("could not search products", err)
	}
	return products, nil
}

// ListByCategory returns the products of one category.
func (s *ProductService) ListByCategory(category string) ([]models.Product, error) {
	products, err := s.repo.FindByCategory(category)
	if err != nil {
		return nil, newInternalError("could not list products by category", err)
	}
	return products, nil
}

// ListLowStock returns the products whose stock is at most threshold.
func (s *ProductService) ListLowStock(threshold int) ([]models.Product, error) {
	if threshold < 0 {
		return nil, NewValidationError("validation failed", map[string]string{"threshold": "must be greater than or equal to 0"})
	}
	products, err := s.repo.FindByStockAtMost(threshold)
	if err != nil {
		return nil, newInternalError("could not list low stock products", err)
	}
	return products, nil
}

// ListByPriceRange returns the products priced within [min, max].
func (s *ProductService) ListByPriceRange(minPrice, maxPrice decimal.Decimal) ([]models.Product, error) {
	fields := map[string]string{}
	if minPrice.IsNegative() {
		fields["min"] = "must be greater than or equal to 0"
	}
	if maxPrice.LessThan(minPrice) {
		fields["max"] = "must be greater than or equal to min"
	}
	if len(fields) > 0 {
		return nil, NewValidationError("validation failed", fields)
	}
	products, err := s.repo.FindByPriceBetween(minPrice, maxPrice)
	if err != nil {
		return nil, newInternalError("could not list products by price", err)
	}
	return products, nil
}

// storeError converts repository failures into service errors. Errors that
// are already *Error pass through unchanged.
func (s *ProductService) storeError(id string, err error) error {
	var svcErr *Error
	switch {
	case errors.As(err, &svcErr):
		return svcErr
	case errors.Is(err, repositories.ErrProductNotFound):
		return NewNotFoundError(fmt.Sprintf("product with ID %s not found", id), err)
	case errors.Is(err, repositories.ErrDuplicateName):
		return NewConflictError("product name already exists", err)
	default:
		return newInternalError("product store failure", err)
	}
}

func (s *ProductService) publish(eventType string, product *models.Product) {
	event := models.ProductEvent{
		Type:       eventType,
		ProductID:  product.ID,
		Name:       product.Name,
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.PublishProductEvent(event); err != nil {
		log.Printf("Warning: failed to publish %s event for product %s: %v", eventType, product.ID, err)
	}
}

// applyPatch copies the present fields of patch onto p. A null description
// or category clears it; validatePatch has already rejected nulls elsewhere.
func applyPatch(p models.Product, patch models.ProductPatch) models.Product {
	if patch.Name.Present() {
		p.Name = patch.Name.Value
	}
	if patch.Description.Set {
		p.Description = patch.Description.Value
	}
	if patch.Price.Present() {
		p.Price = patch.Price.Value.Round(2)
	}
	if patch.Stock.Present() {
		p.Stock = patch.Stock.Value
	}
	if patch.Category.Set {
		p.Category = patch.Category.Value
	}
	return p
}

func validateDTO(input models.ProductDTO) map[string]string {
	fields := map[string]string{}
	if strings.TrimSpace(input.Name) == "" {
		fields["name"] = "must not be blank"
	}
	if input.Price == nil {
		fields["price"] = "is required"
	} else if reason := checkPrice(*input.Price); reason != "" {
		fields["price"] = reason
	}
	if input.Stock == nil {
		fields["stock"] = "is required"
	} else if *input.Stock < 0 {
		fields["stock"] = "must be greater than or equal to 0"
	}
	return fields
}

func validatePatch(patch models.ProductPatch) map[string]string {
	fields := map[string]string{}
	if patch.Name.Set && (patch.Name.Null || strings.TrimSpace(patch.Name.Value) == "") {
		fields["name"] = "must not be blank"
	}
	if patch.Price.Set {
		if patch.Price.Null {
			fields["price"] = "must not be null"
		} else if reason := checkPrice(patch.Price.Value); reason != "" {
			fields["price"] = reason
		}
	}
	if patch.Stock.Set {
		if patch.Stock.Null {
			fields["stock"] = "must not be null"
		} else if patch.Stock.Value < 0 {
			fields["stock"] = "must be greater than or equal to 0"
		}
	}
	return fields
}

// checkPrice returns why price cannot be stored, or "" when it can.
func checkPrice(price decimal.Decimal) string {
	if price.IsNegative() {
		return "must be greater than or equal to 0"
	}
	if price.Round(2).GreaterThan(models.MaxPrice) {
		return "must be less than or equal to " + models.MaxPrice.StringFixed(2)
	}
	return ""
}
