package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"productapi/internal/handlers"
	"productapi/internal/middleware"
	"productapi/internal/models"
	"productapi/internal/repositories"
	"productapi/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type testApp struct {
	t     *testing.T
	app   *fiber.App
	token string
}

// setupApp sets up a Fiber app for testing with a private in-memory SQLite
// database and a token for the protected routes.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	v := viper.New()
	v.SetDefault("JWT_SECRET", "test_jwt_secret")
	v.AutomaticEnv()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.User{}))

	tokenService := services.NewTokenService(v.GetString("JWT_SECRET"), time.Hour)
	authService := services.NewAuthService(tokenService, services.AcceptAnyVerifier{})
	productService := services.NewProductService(repositories.NewGORMProductRepository(db), nil)

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	api := app.Group("/api")
	handlers.NewAuthHandler(authService).RegisterRoutes(api)
	handlers.NewProductHandler(productService).RegisterRoutes(api, middleware.AuthRequired(tokenService))

	ta := &testApp{t: t, app: app}
	resp := ta.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "tester", "password": "pw"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login map[string]string
	ta.decode(resp, &login)
	ta.token = login["token"]
	return ta
}

// do sends body as JSON (when non-nil) with the bearer token attached.
func (ta *testApp) do(method, path string, body interface{}) *http.Response {
	ta.t.Helper()
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(ta.t, err)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if ta.token != "" {
		req.Header.Set("Authorization", "Bearer "+ta.token)
	}
	resp, err := ta.app.Test(req, -1) // -1 for no timeout
	require.NoError(ta.t, err)
	ta.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (ta *testApp) decode(resp *http.Response, out interface{}) {
	ta.t.Helper()
	require.NoError(ta.t, json.NewDecoder(resp.Body).Decode(out))
}

func (ta *testApp) create(body map[string]interface{}) models.Product {
	ta.t.Helper()
	resp := ta.do(http.MethodPost, "/api/products", body)
	require.Equal(ta.t, http.StatusCreated, resp.StatusCode)
	var product models.Product
	ta.decode(resp, &product)
	return product
}

func TestLogin(t *testing.T) {
	ta := setupApp(t)
	ta.token = ""

	resp := ta.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": "secret"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var loginResp map[string]string
	ta.decode(resp, &loginResp)
	assert.NotEmpty(t, loginResp["token"])
	assert.Equal(t, "alice", loginResp["username"])

	for _, creds := range []map[string]string{
		{"username": "", "password": "secret"},
		{"username": "alice", "password": ""},
		{"username": "alice"},
		{},
	} {
		resp = ta.do(http.MethodPost, "/api/auth/login", creds)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		var errResp map[string]string
		ta.decode(resp, &errResp)
		assert.NotEmpty(t, errResp["error"])
		assert.NotContains(t, errResp, "token")
	}
}

func TestProductCRUD(t *testing.T) {
	ta := setupApp(t)

	created := ta.create(map[string]interface{}{
		"name":        "Smartphone",
		"description": "Latest model smartphone",
		"price":       799.99,
		"stock":       50,
		"category":    "phones",
	})
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Smartphone", created.Name)
	assert.True(t, decimal.RequireFromString("799.99").Equal(created.Price))

	// GET /products/:id
	resp := ta.do(http.MethodGet, "/api/products/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched models.Product
	ta.decode(resp, &fetched)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, "phones", fetched.Category)

	// GET /products
	resp = ta.do(http.MethodGet, "/api/products", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var products []models.Product
	ta.decode(resp, &products)
	assert.Len(t, products, 1)

	// PUT /products/:id with only stock
	resp = ta.do(http.MethodPut, "/api/products/"+created.ID, map[string]interface{}{"stock": 45})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var updated models.Product
	ta.decode(resp, &updated)
	assert.Equal(t, 45, updated.Stock)
	assert.Equal(t, created.Name, updated.Name)
	assert.Equal(t, created.Description, updated.Description)
	assert.True(t, created.Price.Equal(updated.Price))
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))

	// DELETE /products/:id
	resp = ta.do(http.MethodDelete, "/api/products/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Verify deletion
	resp = ta.do(http.MethodGet, "/api/products/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var errResp map[string]interface{}
	ta.decode(resp, &errResp)
	assert.Contains(t, errResp["message"], "not found")
	assert.EqualValues(t, http.StatusNotFound, errResp["status"])

	resp = ta.do(http.MethodDelete, "/api/products/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateValidation(t *testing.T) {
	ta := setupApp(t)

	resp := ta.do(http.MethodPost, "/api/products", map[string]interface{}{
		"price": -5,
		"stock": -1,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp struct {
		Message string            `json:"message"`
		Errors  map[string]string `json:"errors"`
		Status  int               `json:"status"`
	}
	ta.decode(resp, &errResp)
	assert.Equal(t, http.StatusBadRequest, errResp.Status)
	assert.Contains(t, errResp.Errors, "name")
	assert.Contains(t, errResp.Errors, "price")
	assert.Contains(t, errResp.Errors, "stock")

	// Zero price and stock are allowed.
	ta.create(map[string]interface{}{"name": "Freebie", "price": 0, "stock": 0})
}

func TestPriceAboveColumnRange(t *testing.T) {
	ta := setupApp(t)

	resp := ta.do(http.MethodPost, "/api/products", map[string]interface{}{
		"name":  "Yacht",
		"price": "12345678901234567.89",
		"stock": 1,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var errResp struct {
		Errors map[string]string `json:"errors"`
	}
	ta.decode(resp, &errResp)
	assert.Contains(t, errResp.Errors, "price")

	created := ta.create(map[string]interface{}{"name": "Yacht", "price": "9999999999.99", "stock": 1})
	resp = ta.do(http.MethodGet, "/api/products/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched models.Product
	ta.decode(resp, &fetched)
	assert.True(t, created.Price.Equal(fetched.Price), "created %s, fetched %s", created.Price, fetched.Price)

	resp = ta.do(http.MethodPut, "/api/products/"+created.ID, map[string]interface{}{"price": "10000000000"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateDuplicateName(t *testing.T) {
	ta := setupApp(t)

	ta.create(map[string]interface{}{"name": "Laptop", "price": 1000, "stock": 1})

	resp := ta.do(http.MethodPost, "/api/products", map[string]interface{}{"name": "Laptop", "price": 900, "stock": 2})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	var errResp map[string]interface{}
	ta.decode(resp, &errResp)
	assert.Contains(t, errResp["message"], "already exists")
}

func TestUpdateValidationAndConflict(t *testing.T) {
	ta := setupApp(t)

	ta.create(map[string]interface{}{"name": "Laptop", "price": 1000, "stock": 1})
	tablet := ta.create(map[string]interface{}{"name": "Tablet", "price": 500, "stock": 1, "category": "mobile"})

	resp := ta.do(http.MethodPut, "/api/products/"+tablet.ID, map[string]interface{}{"name": "Laptop"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = ta.do(http.MethodPut, "/api/products/"+tablet.ID, map[string]interface{}{"price": -1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ta.do(http.MethodPut, "/api/products/"+tablet.ID, map[string]interface{}{"name": nil})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ta.do(http.MethodPut, "/api/products/missing", map[string]interface{}{"stock": 1})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Explicit null clears an optional field.
	resp = ta.do(http.MethodPut, "/api/products/"+tablet.ID, map[string]interface{}{"category": nil})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var updated models.Product
	ta.decode(resp, &updated)
	assert.Empty(t, updated.Category)
	assert.Equal(t, "Tablet", updated.Name)
}

func TestSearchAndFilters(t *testing.T) {
	ta := setupApp(t)

	ta.create(map[string]interface{}{"name": "Product A", "price": 10, "stock": 1, "category": "alpha"})
	ta.create(map[string]interface{}{"name": "PRODUCT B", "price": 20, "stock": 8, "category": "beta"})
	ta.create(map[string]interface{}{"name": "my-prod-x", "price": 30, "stock": 3, "category": "alpha"})
	ta.create(map[string]interface{}{"name": "50%_off", "price": 40, "stock": 20})

	names := func(path string) []string {
		resp := ta.do(http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var products []models.Product
		ta.decode(resp, &products)
		out := make([]string, 0, len(products))
		for _, p := range products {
			out = append(out, p.Name)
		}
		return out
	}

	assert.ElementsMatch(t, []string{"Product A", "PRODUCT B", "my-prod-x"}, names("/api/products/search?nombre=prod"))
	// Wildcards in the search term are matched literally.
	assert.ElementsMatch(t, []string{"50%_off"}, names("/api/products/search?nombre=%25_"))
	assert.ElementsMatch(t, []string{"Product A", "my-prod-x"}, names("/api/products/category/alpha"))
	assert.ElementsMatch(t, []string{"Product A", "my-prod-x"}, names("/api/products/low-stock?threshold=3"))
	assert.ElementsMatch(t, []string{"PRODUCT B", "my-prod-x"}, names("/api/products/price-range?min=15&max=30"))

	resp := ta.do(http.MethodGet, "/api/products/price-range?min=abc&max=10", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = ta.do(http.MethodGet, "/api/products/price-range?min=50&max=10", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = ta.do(http.MethodGet, "/api/products/low-stock?threshold=x", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProductEndpointsWithoutAuth(t *testing.T) {
	ta := setupApp(t)
	product := ta.create(map[string]interface{}{"name": "Laptop", "price": 1000, "stock": 1})
	ta.token = ""

	resp := ta.do(http.MethodPost, "/api/products", map[string]interface{}{"name": "Unauthorized Product", "price": 100, "stock": 10})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ta.do(http.MethodPut, "/api/products/"+product.ID, map[string]interface{}{"stock": 5})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ta.do(http.MethodDelete, "/api/products/"+product.ID, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ta.token = "not-a-jwt"
	resp = ta.do(http.MethodDelete, "/api/products/"+product.ID, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Reads do not need a token.
	ta.token = ""
	resp = ta.do(http.MethodGet, "/api/products/"+product.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
