package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront-api/internal/auth"
	"storefront-api/internal/models"
	"storefront-api/internal/repository"
)

type mockUserStore struct {
	byEmail map[string]*models.User
	created []*models.User
}

func newMockUserStore(users ...*models.User) *mockUserStore {
	store := &mockUserStore{byEmail: map[string]*models.User{}}
	for _, u := range users {
		store.byEmail[u.Email] = u
	}
	return store
}

func (m *mockUserStore) Create(_ context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	m.byEmail[user.Email] = user
	m.created = append(m.created, user)
	return nil
}

func (m *mockUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := m.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

func authRouter(store *mockUserStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewAuthHandler(store, "secret", time.Hour)
	router.POST("/api/auth/register", h.Register)
	router.POST("/api/auth/login", h.Login)
	router.POST("/api/auth/admin/create", h.CreateAdmin)
	return router
}

func hashedUser(t *testing.T, name, email, password, role string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	return &models.User{
		ID:       primitive.NewObjectID(),
		Name:     name,
		Email:    email,
		Password: hash,
		Role:     role,
	}
}

func TestRegister(t *testing.T) {
	store := newMockUserStore()
	router := authRouter(store)

	req := jsonRequest(http.MethodPost, "/api/auth/register", gin.H{
		"name": "Alice", "email": "alice@example.com", "password": "hunter2",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, store.created, 1)
	assert.Equal(t, models.RoleUser, store.created[0].Role)
	assert.NotEqual(t, "hunter2", store.created[0].Password, "password must be stored hashed")

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "alice@example.com", body["email"])
	assert.Equal(t, false, body["isAdmin"])
	assert.NotEmpty(t, body["token"])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := newMockUserStore(hashedUser(t, "Alice", "alice@example.com", "hunter2", models.RoleUser))
	router := authRouter(store)

	req := jsonRequest(http.MethodPost, "/api/auth/register", gin.H{
		"name": "Impostor", "email": "alice@example.com", "password": "hunter3",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"User already exists"}`, rec.Body.String())
	assert.Empty(t, store.created)
}

func TestLogin(t *testing.T) {
	admin := hashedUser(t, "Root", "root@example.com", "sup3rs3cret", models.RoleAdmin)
	store := newMockUserStore(admin)
	router := authRouter(store)

	req := jsonRequest(http.MethodPost, "/api/auth/login", gin.H{
		"email": "root@example.com", "password": "sup3rs3cret",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Root", body["name"])
	assert.Equal(t, true, body["isAdmin"])
	assert.Equal(t, models.RoleAdmin, body["role"])

	// The issued token must resolve back to the same user.
	userID, err := auth.ParseToken("secret", body["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, admin.ID.Hex(), userID)
}

func TestLoginWrongPassword(t *testing.T) {
	store := newMockUserStore(hashedUser(t, "Alice", "alice@example.com", "hunter2", models.RoleUser))
	router := authRouter(store)

	req := jsonRequest(http.MethodPost, "/api/auth/login", gin.H{
		"email": "alice@example.com", "password": "wrong",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Invalid credentials"}`, rec.Body.String())
}

func TestLoginUnknownEmail(t *testing.T) {
	router := authRouter(newMockUserStore())

	req := jsonRequest(http.MethodPost, "/api/auth/login", gin.H{
		"email": "ghost@example.com", "password": "whatever",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Invalid credentials"}`, rec.Body.String())
}

func TestCreateAdmin(t *testing.T) {
	store := newMockUserStore()
	router := authRouter(store)

	req := jsonRequest(http.MethodPost, "/api/auth/admin/create", gin.H{
		"name": "Root", "email": "root@example.com", "password": "sup3rs3cret",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, store.created, 1)
	assert.Equal(t, models.RoleAdmin, store.created[0].Role)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, true, body["isAdmin"])
	assert.NotContains(t, body, "token")
}
