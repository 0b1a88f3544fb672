package routes

import (
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront-api/internal/config"
	"storefront-api/internal/database"
	"storefront-api/internal/handlers"
	"storefront-api/internal/middleware"
	"storefront-api/internal/repository"
	"storefront-api/internal/service"
)

func RegisterRoutes(router *gin.Engine, client *mongo.Client, db *mongo.Database, cfg *config.Config) {
	products := repository.NewProductRepository(db.Collection("products"))
	orders := repository.NewOrderRepository(db.Collection("orders"))
	users := repository.NewUserRepository(db.Collection("users"))

	processor := service.NewOrderProcessor(products, orders, database.NewTxn(client))

	authHandler := handlers.NewAuthHandler(users, cfg.JWTSecret, cfg.JWTExpiry)
	productHandler := handlers.NewProductHandler(products, cfg.UploadDir)
	orderHandler := handlers.NewOrderHandler(processor, orders)
	userHandler := handlers.NewUserHandler(users, orders)

	protect := middleware.RequireAuth(cfg.JWTSecret, users)
	admin := middleware.RequireAdmin()

	router.Static("/uploads", cfg.UploadDir)

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/admin/create", protect, admin, authHandler.CreateAdmin)
		}

		prod := api.Group("/products")
		{
			prod.GET("", productHandler.ListProducts)
			prod.GET("/categories", productHandler.GetCategories)
			prod.GET("/:id", productHandler.GetProductByID)
			prod.POST("", protect, productHandler.CreateProduct)
			prod.PUT("/:id", protect, productHandler.UpdateProduct)
			prod.DELETE("/:id", protect, productHandler.DeleteProduct)
		}

		ord := api.Group("/orders", protect)
		{
			ord.POST("", orderHandler.CreateOrder)
			ord.GET("", admin, orderHandler.GetOrders)
			ord.GET("/stats", admin, orderHandler.GetStats)
			ord.GET("/myorders", orderHandler.GetMyOrders)
			ord.GET("/:id", orderHandler.GetOrderByID)
			ord.PUT("/:id/deliver", admin, orderHandler.ToggleDelivered)
			ord.PUT("/:id/items", admin, orderHandler.ReplaceItems)
			ord.PUT("/:id/items/remove", admin, orderHandler.RemoveItems)
			ord.DELETE("/:id", admin, orderHandler.DeleteOrder)
		}

		usr := api.Group("/users", protect)
		{
			usr.GET("", admin, userHandler.GetUsers)
			usr.GET("/profile", userHandler.GetProfile)
			usr.PUT("/:id", admin, userHandler.UpdateUser)
		}
	}
}
