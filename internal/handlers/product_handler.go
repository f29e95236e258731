package handlers

import (
	"log"
	"strconv"

	"productapi/internal/models"
	"productapi/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: newValidator(),
	}
}

// RegisterRoutes registers the product routes. Mutating routes run behind
// protect, which may be nil to leave them open.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, protect fiber.Handler) {
	productRoutes := router.Group("/products")

	// Fixed paths go before /:id.
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/search", h.HandleSearchProducts)
	productRoutes.Get("/category/:category", h.HandleGetProductsByCategory)
	productRoutes.Get("/low-stock", h.HandleGetLowStockProducts)
	productRoutes.Get("/price-range", h.HandleGetProductsByPriceRange)
	productRoutes.Get("/:id", h.HandleGetProductByID)

	write := []fiber.Handler{}
	if protect != nil {
		write = append(write, protect)
	}
	productRoutes.Post("/", append(write, h.HandleCreateProduct)...)
	productRoutes.Put("/:id", append(write, h.HandleUpdateProduct)...)
	productRoutes.Delete("/:id", append(write, h.HandleDeleteProduct)...)
}

// HandleGetProducts lists every product.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.ListAll()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}

// HandleGetProductByID returns one product.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.GetByID(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// HandleCreateProduct validates the body and creates a product.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var dto models.ProductDTO
	if err := c.BodyParser(&dto); err != nil {
		log.Printf("Error parsing product request body: %v", err)
		return badRequest(c, "Invalid request body", nil)
	}
	if err := h.validate.Struct(dto); err != nil {
		return badRequest(c, "Validation failed", validationErrors(err))
	}

	product, err := h.service.Create(dto)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct applies a partial update.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var patch models.ProductPatch
	if err := c.BodyParser(&patch); err != nil {
		log.Printf("Error parsing product patch body: %v", err)
		return badRequest(c, "Invalid request body", nil)
	}
	if err := h.validate.Struct(patch); err != nil {
		return badRequest(c, "Validation failed", validationErrors(err))
	}

	product, err := h.service.Update(c.Params("id"), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// HandleDeleteProduct removes a product.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleSearchProducts matches ?nombre= (or ?name=) against product names,
// ignoring case.
func (h *ProductHandler) HandleSearchProducts(c *fiber.Ctx) error {
	term := c.Query("nombre", c.Query("name"))
	products, err := h.service.SearchByName(term)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}

func (h *ProductHandler) HandleGetProductsByCategory(c *fiber.Ctx) error {
	products, err := h.service.ListByCategory(c.Params("category"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}

// HandleGetLowStockProducts lists products with stock <= ?threshold (default 5).
func (h *ProductHandler) HandleGetLowStockProducts(c *fiber.Ctx) error {
	threshold, err := strconv.Atoi(c.Query("threshold", "5"))
	if err != nil {
		return badRequest(c, "Validation failed", map[string]string{"threshold": "must be an integer"})
	}
	products, err := h.service.ListLowStock(threshold)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}

func (h *ProductHandler) HandleGetProductsByPriceRange(c *fiber.Ctx) error {
	fields := map[string]string{}
	minPrice, err := decimal.NewFromString(c.Query("min"))
	if err != nil {
		fields["min"] = "must be a decimal number"
	}
	maxPrice, err := decimal.NewFromString(c.Query("max"))
	if err != nil {
		fields["max"] = "must be a decimal number"
	}
	if len(fields) > 0 {
		return badRequest(c, "Validation failed", fields)
	}

	products, err := h.service.ListByPriceRange(minPrice, maxPrice)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}
