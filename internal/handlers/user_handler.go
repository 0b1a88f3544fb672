package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront-api/internal/middleware"
	"storefront-api/internal/models"
	"storefront-api/internal/repository"
)

// UserStore is the slice of the user repository the handler needs.
type UserStore interface {
	FindAll(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, id string, update bson.M) (*models.User, error)
}

// UserOrderStats exposes the per-customer order aggregates.
type UserOrderStats interface {
	StatsByUser(ctx context.Context) (map[primitive.ObjectID]models.UserOrderStats, error)
}

type UserHandler struct {
	users  UserStore
	orders UserOrderStats
}

func NewUserHandler(users UserStore, orders UserOrderStats) *UserHandler {
	return &UserHandler{
		users:  users,
		orders: orders,
	}
}

type userWithStats struct {
	ID          primitive.ObjectID `json:"_id"`
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	Role        string             `json:"role"`
	TotalOrders int                `json:"totalOrders"`
	TotalSpent  float64            `json:"totalSpent"`
}

// GetUsers lists every customer with their order count and spend.
// GET /api/users
func (h *UserHandler) GetUsers(c *gin.Context) {
	users, err := h.users.FindAll(c.Request.Context())
	if err != nil {
		serverError(c, err)
		return
	}

	stats, err := h.orders.StatsByUser(c.Request.Context())
	if err != nil {
		serverError(c, err)
		return
	}

	result := make([]userWithStats, 0, len(users))
	for _, u := range users {
		s := stats[u.ID]
		result = append(result, userWithStats{
			ID:          u.ID,
			Name:        u.Name,
			Email:       u.Email,
			Role:        u.Role,
			TotalOrders: s.TotalOrders,
			TotalSpent:  s.TotalSpent,
		})
	}

	c.JSON(http.StatusOK, result)
}

type updateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UpdateUser edits a customer's name and email; absent fields keep
// their current values.
// PUT /api/users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid user data"})
		return
	}

	update := bson.M{}
	if req.Name != "" {
		update["name"] = req.Name
	}
	if req.Email != "" {
		update["email"] = req.Email
	}
	if len(update) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No fields to update"})
		return
	}

	user, err := h.users.Update(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
			return
		}
		serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"_id":       user.ID,
		"name":      user.Name,
		"email":     user.Email,
		"createdAt": user.CreatedAt,
	})
}

// GetProfile returns the authenticated caller's own record.
// GET /api/users/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	user := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"_id":   user.ID,
		"name":  user.Name,
		"email": user.Email,
	})
}
