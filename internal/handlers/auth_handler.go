package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storefront-api/internal/auth"
	"storefront-api/internal/models"
	"storefront-api/internal/repository"
)

// AuthUserStore is the slice of the user repository auth needs.
type AuthUserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type AuthHandler struct {
	users     AuthUserStore
	jwtSecret string
	jwtExpiry time.Duration
}

func NewAuthHandler(users AuthUserStore, jwtSecret string, jwtExpiry time.Duration) *AuthHandler {
	return &AuthHandler{
		users:     users,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
	}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates a customer account and issues a token.
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid user data"})
		return
	}

	if _, err := h.users.FindByEmail(c.Request.Context(), req.Email); err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "User already exists"})
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		serverError(c, err)
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		serverError(c, err)
		return
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: hashed,
		Role:     models.RoleUser,
	}
	if err := h.users.Create(c.Request.Context(), user); err != nil {
		serverError(c, err)
		return
	}

	token, err := auth.GenerateToken(h.jwtSecret, user.ID.Hex(), h.jwtExpiry)
	if err != nil {
		serverError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"_id":     user.ID,
		"name":    user.Name,
		"email":   user.Email,
		"isAdmin": user.IsAdmin(),
		"token":   token,
	})
}

// Login checks credentials and issues a token.
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email and password are required"})
		return
	}

	user, err := h.users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
			return
		}
		serverError(c, err)
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}

	token, err := auth.GenerateToken(h.jwtSecret, user.ID.Hex(), h.jwtExpiry)
	if err != nil {
		serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"_id":     user.ID,
		"name":    user.Name,
		"email":   user.Email,
		"isAdmin": user.IsAdmin(),
		"role":    user.Role,
		"token":   token,
	})
}

// CreateAdmin provisions an admin account. Admin-gated in the routes.
// POST /api/auth/admin/create
func (h *AuthHandler) CreateAdmin(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid user data"})
		return
	}

	if _, err := h.users.FindByEmail(c.Request.Context(), req.Email); err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "User already exists"})
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		serverError(c, err)
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		serverError(c, err)
		return
	}

	admin := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: hashed,
		Role:     models.RoleAdmin,
	}
	if err := h.users.Create(c.Request.Context(), admin); err != nil {
		serverError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"_id":     admin.ID,
		"name":    admin.Name,
		"email":   admin.Email,
		"isAdmin": admin.IsAdmin(),
		"role":    admin.Role,
	})
}
