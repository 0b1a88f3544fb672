package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront-api/internal/models"
	"storefront-api/internal/repository"
)

// --- Mock store ---

type mockProductStore struct {
	products []models.Product

	lastQuery  repository.ProductQuery
	lastUpdate bson.M
	err        error
}

func (m *mockProductStore) Create(_ context.Context, product *models.Product) error {
	if m.err != nil {
		return m.err
	}
	product.ID = primitive.NewObjectID()
	m.products = append(m.products, *product)
	return nil
}

func (m *mockProductStore) FindByID(_ context.Context, id string) (*models.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, p := range m.products {
		if p.ID.Hex() == id {
			copied := p
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockProductStore) FindAll(_ context.Context, q repository.ProductQuery) ([]models.Product, int64, error) {
	m.lastQuery = q
	if m.err != nil {
		return nil, 0, m.err
	}

	total := int64(len(m.products))
	start := (q.Page - 1) * q.Limit
	if start > len(m.products) {
		start = len(m.products)
	}
	end := start + q.Limit
	if end > len(m.products) {
		end = len(m.products)
	}
	return m.products[start:end], total, nil
}

func (m *mockProductStore) Categories(_ context.Context) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	seen := map[string]bool{}
	categories := []string{}
	for _, p := range m.products {
		if !seen[p.Category] {
			seen[p.Category] = true
			categories = append(categories, p.Category)
		}
	}
	return categories, nil
}

func (m *mockProductStore) Update(_ context.Context, id string, update bson.M) error {
	m.lastUpdate = update
	if m.err != nil {
		return m.err
	}
	for i, p := range m.products {
		if p.ID.Hex() == id {
			if name, ok := update["name"].(string); ok {
				m.products[i].Name = name
			}
			if price, ok := update["price"].(float64); ok {
				m.products[i].Price = price
			}
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *mockProductStore) Delete(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	for i, p := range m.products {
		if p.ID.Hex() == id {
			m.products = append(m.products[:i], m.products[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func productRouter(store *mockProductStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewProductHandler(store, os.TempDir())
	router.GET("/api/products", h.ListProducts)
	router.GET("/api/products/categories", h.GetCategories)
	router.GET("/api/products/:id", h.GetProductByID)
	router.POST("/api/products", h.CreateProduct)
	router.PUT("/api/products/:id", h.UpdateProduct)
	router.DELETE("/api/products/:id", h.DeleteProduct)
	return router
}

func catalogOf(n int) []models.Product {
	products := make([]models.Product, 0, n)
	for i := 0; i < n; i++ {
		products = append(products, models.Product{
			ID:       primitive.NewObjectID(),
			Name:     "Product",
			Category: "All",
			Price:    10,
		})
	}
	return products
}

// --- Tests ---

func TestListProductsPaginationHeaders(t *testing.T) {
	store := &mockProductStore{products: catalogOf(20)}
	router := productRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/api/products?page=2&limit=8", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "20", rec.Header().Get("X-Total-Count"))
	assert.Equal(t, "2", rec.Header().Get("X-Page"))
	assert.Equal(t, "8", rec.Header().Get("X-Page-Size"))
	assert.Equal(t, "3", rec.Header().Get("X-Total-Pages"))

	// Body stays a bare array.
	var body []models.Product
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Len(t, body, 8)
}

func TestListProductsQueryPassthrough(t *testing.T) {
	store := &mockProductStore{products: catalogOf(3)}
	router := productRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/api/products?keyword=phone&categories=Electronics&categories=Audio&sortBy=-price", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "phone", store.lastQuery.Keyword)
	assert.Equal(t, []string{"Electronics", "Audio"}, store.lastQuery.Categories)
	assert.Equal(t, "-price", store.lastQuery.SortBy)
	assert.Equal(t, 1, store.lastQuery.Page)
	assert.Equal(t, 10, store.lastQuery.Limit)
}

func TestGetProductByIDNotFound(t *testing.T) {
	router := productRouter(&mockProductStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/products/"+primitive.NewObjectID().Hex(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Product not found"}`, rec.Body.String())
}

func TestCreateProductRequiresNameAndPrice(t *testing.T) {
	store := &mockProductStore{}
	router := productRouter(store)

	form := strings.NewReader("name=Widget")
	req := httptest.NewRequest(http.MethodPost, "/api/products", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"Name and price are required"}`, rec.Body.String())
	assert.Empty(t, store.products)
}

func TestCreateProductDefaults(t *testing.T) {
	store := &mockProductStore{}
	router := productRouter(store)

	form := strings.NewReader("name=Widget&price=19.99&countInStock=5")
	req := httptest.NewRequest(http.MethodPost, "/api/products", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, store.products, 1)

	created := store.products[0]
	assert.Equal(t, "Widget", created.Name)
	assert.Equal(t, "Generic", created.Brand)
	assert.Equal(t, "All", created.Category)
	assert.Equal(t, 19.99, created.Price)
	assert.Equal(t, 5, created.CountInStock)
}

func TestUpdateProductPartial(t *testing.T) {
	existing := models.Product{ID: primitive.NewObjectID(), Name: "Old", Brand: "Acme", Price: 5}
	store := &mockProductStore{products: []models.Product{existing}}
	router := productRouter(store)

	form := strings.NewReader("name=New&price=7.50")
	req := httptest.NewRequest(http.MethodPut, "/api/products/"+existing.ID.Hex(), form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "New", store.lastUpdate["name"])
	assert.Equal(t, 7.50, store.lastUpdate["price"])
	assert.NotContains(t, store.lastUpdate, "brand")
}

func TestDeleteProduct(t *testing.T) {
	existing := models.Product{ID: primitive.NewObjectID(), Name: "Widget"}
	store := &mockProductStore{products: []models.Product{existing}}
	router := productRouter(store)

	req := httptest.NewRequest(http.MethodDelete, "/api/products/"+existing.ID.Hex(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, store.products)
}

func TestGetCategories(t *testing.T) {
	store := &mockProductStore{products: []models.Product{
		{ID: primitive.NewObjectID(), Category: "Electronics"},
		{ID: primitive.NewObjectID(), Category: "Audio"},
		{ID: primitive.NewObjectID(), Category: "Electronics"},
	}}
	router := productRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/api/products/categories", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var categories []string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&categories))
	assert.ElementsMatch(t, []string{"Electronics", "Audio"}, categories)
}
