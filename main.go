package main

import (
	"log"

	"github.com/mamad2002github/GuessWord/config"
	"github.com/mamad2002github/GuessWord/handlers"
	"github.com/mamad2002github/GuessWord/models"
	"github.com/mamad2002github/GuessWord/routes"
	"github.com/mamad2002github/GuessWord/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database models
	err = db.AutoMigrate(
		&models.User{},
		&models.Word{},
		&models.Game{},
		&models.GameState{},
		&models.GameHistory{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize Redis
	redisClient := config.InitRedis(cfg)

	// Initialize services
	authService := services.NewAuthService(db, cfg.JWTSecret, cfg.Game.SignupCoins)
	wordService := services.NewWordService(db)
	engine := services.NewEngine(cfg.Game, nil)
	gameService := services.NewGameService(db, redisClient, cfg.Game, engine)

	// Seed the word bank
	if err := wordService.Seed(); err != nil {
		log.Fatal("Failed to seed word bank:", err)
	}

	// Initialize WebSocket hub
	hub := services.NewHub(gameService)
	go hub.Run()

	// Background timeout sweeper: polls active games and forces turn
	// switches / endings through the same dispatch path clients use.
	stop := make(chan struct{})
	defer close(stop)
	go gameService.RunTimeoutSweeper(stop, func(gameID string, out *services.Outcome, snap *services.GameSnapshot) {
		hub.PublishOutcome(gameID, 0, out, snap)
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	gameHandler := handlers.NewGameHandler(gameService, hub)

	// Setup Gin router
	router := gin.Default()
	router.Use(cors.Default())

	// Setup routes
	routes.SetupRoutes(router, authHandler, gameHandler, hub, authService, gameService)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
