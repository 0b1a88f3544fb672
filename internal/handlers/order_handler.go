package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront-api/internal/middleware"
	"storefront-api/internal/models"
	"storefront-api/internal/repository"
	"storefront-api/internal/service"
)

// OrderPlacer is the order processor surface the handler drives for
// every stock-reconciling mutation.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, userID primitive.ObjectID, in service.OrderInput) (*models.Order, error)
	ReplaceItems(ctx context.Context, orderID string, items []models.OrderItem) (*models.Order, error)
	DeleteOrder(ctx context.Context, orderID string) error
}

// OrderReader is the read/flag surface of the order repository; none of
// these touch product stock.
type OrderReader interface {
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindByIDWithUser(ctx context.Context, id string) (*models.OrderWithUser, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	FindAllWithUser(ctx context.Context) ([]models.OrderWithUser, error)
	SetDelivered(ctx context.Context, id primitive.ObjectID, delivered bool) (*models.Order, error)
	RemoveItems(ctx context.Context, id string, productIDs []primitive.ObjectID) (*models.Order, error)
	Stats(ctx context.Context, from, to *time.Time) (*models.OrderStats, error)
}

type OrderHandler struct {
	processor OrderPlacer
	orders    OrderReader
}

func NewOrderHandler(processor OrderPlacer, orders OrderReader) *OrderHandler {
	return &OrderHandler{
		processor: processor,
		orders:    orders,
	}
}

type createOrderRequest struct {
	OrderItems      []models.OrderItem     `json:"orderItems"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	TaxPrice        float64                `json:"taxPrice"`
	ShippingPrice   float64                `json:"shippingPrice"`
	TotalPrice      float64                `json:"totalPrice"`
}

// CreateOrder places an order for the authenticated caller. Items,
// address and amounts are persisted verbatim after the availability
// check.
// POST /api/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid order data"})
		return
	}

	user := middleware.CurrentUser(c)

	order, err := h.processor.PlaceOrder(c.Request.Context(), user.ID, service.OrderInput{
		Items:           req.OrderItems,
		ShippingAddress: req.ShippingAddress,
		TaxPrice:        req.TaxPrice,
		ShippingPrice:   req.ShippingPrice,
		TotalPrice:      req.TotalPrice,
	})
	if err != nil {
		h.orderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// GetOrders lists every order with the owning user resolved, for the
// admin back-office.
// GET /api/orders
func (h *OrderHandler) GetOrders(c *gin.Context) {
	orders, err := h.orders.FindAllWithUser(c.Request.Context())
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GetMyOrders lists the caller's own orders.
// GET /api/orders/myorders
func (h *OrderHandler) GetMyOrders(c *gin.Context) {
	user := middleware.CurrentUser(c)

	orders, err := h.orders.FindByUser(c.Request.Context(), user.ID)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GetOrderByID fetches one order. Only the owner or an admin may view it.
// GET /api/orders/:id
func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	order, err := h.orders.FindByIDWithUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
			return
		}
		serverError(c, err)
		return
	}

	user := middleware.CurrentUser(c)
	if order.User != user.ID && !user.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"message": "Not authorized to view this order"})
		return
	}

	c.JSON(http.StatusOK, order)
}

// ToggleDelivered flips the delivered flag unconditionally.
// PUT /api/orders/:id/deliver
func (h *OrderHandler) ToggleDelivered(c *gin.Context) {
	order, err := h.orders.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
			return
		}
		serverError(c, err)
		return
	}

	updated, err := h.orders.SetDelivered(c.Request.Context(), order.ID, !order.IsDelivered)
	if err != nil {
		serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

type replaceItemsRequest struct {
	OrderItems []models.OrderItem `json:"orderItems" binding:"required"`
}

// ReplaceItems swaps an order's item list: stock is restored for the
// old items, deducted for the new ones, and the totals recomputed.
// PUT /api/orders/:id/items
func (h *OrderHandler) ReplaceItems(c *gin.Context) {
	var req replaceItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No order items provided"})
		return
	}

	order, err := h.processor.ReplaceItems(c.Request.Context(), c.Param("id"), req.OrderItems)
	if err != nil {
		h.orderError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

type removeItemsRequest struct {
	ProductIDs []string `json:"productIds"`
}

// RemoveItems pulls the named products from an order's item list. Stock
// stays untouched and the totals are not recomputed.
// PUT /api/orders/:id/items/remove
func (h *OrderHandler) RemoveItems(c *gin.Context) {
	var req removeItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.ProductIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No product IDs provided"})
		return
	}

	productIDs := make([]primitive.ObjectID, 0, len(req.ProductIDs))
	for _, id := range req.ProductIDs {
		objID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid product ID: " + id})
			return
		}
		productIDs = append(productIDs, objID)
	}

	order, err := h.orders.RemoveItems(c.Request.Context(), c.Param("id"), productIDs)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
			return
		}
		serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// DeleteOrder removes an order and restores stock for every item on it.
// DELETE /api/orders/:id
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	if err := h.processor.DeleteOrder(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
			return
		}
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order deleted"})
}

// GetStats returns the admin dashboard aggregates, optionally windowed
// to one month (?month=YYYY-MM).
// GET /api/orders/stats
func (h *OrderHandler) GetStats(c *gin.Context) {
	var from, to *time.Time
	if month := c.Query("month"); month != "" {
		start, err := time.Parse("2006-01", month)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid month, expected YYYY-MM"})
			return
		}
		end := start.AddDate(0, 1, 0)
		from, to = &start, &end
	}

	stats, err := h.orders.Stats(c.Request.Context(), from, to)
	if err != nil {
		serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// orderError maps processor errors onto the client error taxonomy.
func (h *OrderHandler) orderError(c *gin.Context, err error) {
	var notFound *service.ProductNotFoundError
	var noStock *service.InsufficientStockError

	switch {
	case errors.Is(err, service.ErrNoOrderItems):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	case errors.As(err, &noStock):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
	default:
		serverError(c, err)
	}
}
