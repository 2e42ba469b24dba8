package routes

import (
	"log"
	"net/http"
	"strings"

	"github.com/mamad2002github/GuessWord/handlers"
	"github.com/mamad2002github/GuessWord/middleware"
	"github.com/mamad2002github/GuessWord/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

func SetupRoutes(
	router *gin.Engine,
	authHandler *handlers.AuthHandler,
	gameHandler *handlers.GameHandler,
	hub *services.Hub,
	authService *services.AuthService,
	gameService *services.GameService,
) {
	api := router.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
		}

		// Public routes
		api.GET("/leaderboard", gameHandler.Leaderboard)

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(authService))
		{
			protected.GET("/auth/profile", authHandler.GetProfile)
			protected.GET("/history", gameHandler.History)

			games := protected.Group("/games")
			{
				games.POST("", gameHandler.CreateGame)
				games.GET("/pending", gameHandler.PendingGames)
				games.GET("/paused", gameHandler.PausedGames)
				games.GET("/:id", gameHandler.GetGame)
				games.POST("/:id/join", gameHandler.JoinGame)
			}
		}
	}

	// WebSocket endpoint: one persistent connection per participant. The
	// token travels in the query string because browsers cannot set headers
	// on websocket upgrades.
	router.GET("/ws/:gameID", func(c *gin.Context) {
		gameID := c.Param("gameID")

		tokenString := c.Query("token")
		if tokenString == "" {
			tokenString = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		userID, username, err := authService.ParseToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing token"})
			return
		}

		ok, err := gameService.IsParticipant(gameID, userID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
			return
		}
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "You are not a participant of this game"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed for game %s, user %d: %v", gameID, userID, err)
			return
		}

		log.Printf("WebSocket connection established for game %s, user %d (%s)", gameID, userID, username)
		hub.RegisterClient(conn, gameID, userID, username)
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
