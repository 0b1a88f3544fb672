package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"storefront-api/internal/config"
	"storefront-api/internal/database"
	"storefront-api/internal/routes"
)

func main() {
	cfg := config.LoadConfig()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatal("failed to create upload directory:", err)
	}

	client := database.Connect(cfg.MongoURI)
	db := client.Database(cfg.MongoDB)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:   []string{"X-Total-Count", "X-Page", "X-Page-Size", "X-Total-Pages"},
	}))

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "API is running...")
	})

	routes.RegisterRoutes(router, client, db, cfg)

	log.Println("server running on port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("server stopped:", err)
	}
}
