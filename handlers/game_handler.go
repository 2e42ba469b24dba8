package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/mamad2002github/GuessWord/services"

	"github.com/gin-gonic/gin"
)

type GameHandler struct {
	gameService *services.GameService
	hub         *services.Hub
}

func NewGameHandler(gameService *services.GameService, hub *services.Hub) *GameHandler {
	return &GameHandler{gameService: gameService, hub: hub}
}

// statusFor maps the service error taxonomy to HTTP codes. Unexpected
// internal failures are logged and reported generically.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidTurn),
		errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidStateTransition),
		errors.Is(err, services.ErrGameFinished):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	default:
		log.Printf("Internal error: %v", err)
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	c.JSON(status, gin.H{"error": msg})
}

func (h *GameHandler) CreateGame(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req services.CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	game, err := h.gameService.CreateGame(userID.(uint), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, game)
}

// JoinGame is the REST join path; it runs the same engine transition the
// websocket join does and notifies connected participants.
func (h *GameHandler) JoinGame(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	gameID := c.Param("id")
	out, snap, err := h.gameService.Dispatch(gameID, userID.(uint), services.Action{Kind: services.ActionJoin})
	if err != nil {
		respondError(c, err)
		return
	}

	if h.hub != nil {
		h.hub.PublishOutcome(gameID, userID.(uint), out, snap)
	}

	c.JSON(http.StatusOK, snap)
}

// GetGame returns the caller's private view of a game they participate in.
func (h *GameHandler) GetGame(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	snap, err := h.gameService.GetSnapshot(c.Param("id"), userID.(uint))
	if err != nil {
		// Non-participants may still preview a pending game's public view.
		if errors.Is(err, services.ErrForbidden) {
			if public, perr := h.gameService.PublicSnapshot(c.Param("id")); perr == nil && public.Status == "pending" {
				c.JSON(http.StatusOK, public)
				return
			}
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (h *GameHandler) PendingGames(c *gin.Context) {
	games, err := h.gameService.PendingGames()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, games)
}

func (h *GameHandler) PausedGames(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	games, err := h.gameService.PausedGames(userID.(uint))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, games)
}

func (h *GameHandler) History(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	history, err := h.gameService.History(userID.(uint))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *GameHandler) Leaderboard(c *gin.Context) {
	entries, err := h.gameService.Leaderboard(10)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
