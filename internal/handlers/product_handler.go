package handlers

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"storefront-api/internal/models"
	"storefront-api/internal/repository"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
)

// ProductStore is the slice of the product repository the handler needs.
type ProductStore interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id string) (*models.Product, error)
	FindAll(ctx context.Context, q repository.ProductQuery) ([]models.Product, int64, error)
	Categories(ctx context.Context) ([]string, error)
	Update(ctx context.Context, id string, update bson.M) error
	Delete(ctx context.Context, id string) error
}

type ProductHandler struct {
	store     ProductStore
	uploadDir string
}

func NewProductHandler(store ProductStore, uploadDir string) *ProductHandler {
	return &ProductHandler{
		store:     store,
		uploadDir: uploadDir,
	}
}

// ListProducts lists the catalog with keyword/category filtering,
// sorting and pagination. The body stays a bare array; pagination
// metadata travels in response headers.
// GET /api/products
func (h *ProductHandler) ListProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(defaultPage)))
	if page < 1 {
		page = defaultPage
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if limit < 1 {
		limit = defaultPageSize
	}

	query := repository.ProductQuery{
		Keyword:    c.Query("keyword"),
		Categories: c.QueryArray("categories"),
		SortBy:     c.Query("sortBy"),
		Page:       page,
		Limit:      limit,
	}

	products, total, err := h.store.FindAll(c.Request.Context(), query)
	if err != nil {
		serverError(c, err)
		return
	}

	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}

	c.Header("X-Total-Count", strconv.FormatInt(total, 10))
	c.Header("X-Page", strconv.Itoa(page))
	c.Header("X-Page-Size", strconv.Itoa(limit))
	c.Header("X-Total-Pages", strconv.FormatInt(totalPages, 10))
	c.JSON(http.StatusOK, products)
}

// GetCategories returns the distinct category labels.
// GET /api/products/categories
func (h *ProductHandler) GetCategories(c *gin.Context) {
	categories, err := h.store.Categories(c.Request.Context())
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// GetProductByID fetches one product.
// GET /api/products/:id
func (h *ProductHandler) GetProductByID(c *gin.Context) {
	product, err := h.store.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
			return
		}
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// CreateProduct creates a product from a multipart form with an
// optional image file.
// POST /api/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	name := c.PostForm("name")
	priceStr := c.PostForm("price")
	if name == "" || priceStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Name and price are required"})
		return
	}

	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil || price < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid price"})
		return
	}

	countInStock, _ := strconv.Atoi(c.PostForm("countInStock"))
	if countInStock < 0 {
		countInStock = 0
	}

	product := models.Product{
		Name:         name,
		Brand:        c.DefaultPostForm("brand", "Generic"),
		Category:     c.DefaultPostForm("category", "All"),
		Description:  c.PostForm("description"),
		Price:        price,
		CountInStock: countInStock,
	}

	if file, err := c.FormFile("image"); err == nil {
		imageURL, err := h.saveImage(c, file)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		product.Image = imageURL
	}

	if err := h.store.Create(c.Request.Context(), &product); err != nil {
		serverError(c, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

// UpdateProduct partially updates a product from a multipart form.
// Absent fields keep their current values; a new image file or an
// image URL field replaces the stored reference.
// PUT /api/products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id := c.Param("id")

	update := bson.M{}
	if name := c.PostForm("name"); name != "" {
		update["name"] = name
	}
	if brand := c.PostForm("brand"); brand != "" {
		update["brand"] = brand
	}
	if category := c.PostForm("category"); category != "" {
		update["category"] = category
	}
	if description := c.PostForm("description"); description != "" {
		update["description"] = description
	}
	if priceStr := c.PostForm("price"); priceStr != "" {
		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil || price < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid price"})
			return
		}
		update["price"] = price
	}
	if stockStr := c.PostForm("countInStock"); stockStr != "" {
		stock, err := strconv.Atoi(stockStr)
		if err != nil || stock < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid countInStock"})
			return
		}
		update["countInStock"] = stock
	}

	if file, err := c.FormFile("image"); err == nil {
		imageURL, err := h.saveImage(c, file)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		update["image"] = imageURL
	} else if image := c.PostForm("image"); image != "" {
		update["image"] = image
	}

	if len(update) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No fields to update"})
		return
	}

	if err := h.store.Update(c.Request.Context(), id, update); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
			return
		}
		serverError(c, err)
		return
	}

	product, err := h.store.FindByID(c.Request.Context(), id)
	if err != nil {
		serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// DeleteProduct removes a product. Historical orders keep their
// denormalized snapshots.
// DELETE /api/products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
			return
		}
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product removed"})
}

// saveImage stores an uploaded image under a generated filename and
// returns its public URL path.
func (h *ProductHandler) saveImage(c *gin.Context, file *multipart.FileHeader) (string, error) {
	ext := filepath.Ext(file.Filename)
	if ext != ".jpg" && ext != ".jpeg" && ext != ".png" {
		return "", fmt.Errorf("only .jpg, .jpeg and .png files are allowed")
	}

	filename := uuid.New().String() + ext
	if err := c.SaveUploadedFile(file, filepath.Join(h.uploadDir, filename)); err != nil {
		return "", fmt.Errorf("could not save file")
	}

	return "/uploads/" + filename, nil
}
