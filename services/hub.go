package services

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub maps game ids to the live set of connected participants and delivers
// state-change notifications to them. Delivery is fire-and-forget: a slow
// client loses its connection instead of blocking a transition.
type Hub struct {
	clients     map[*Client]bool
	broadcast   chan []byte
	register    chan *Client
	unregister  chan *Client
	mutex       sync.RWMutex
	gameService *GameService
}

type Client struct {
	hub      *Hub
	id       string
	socket   *websocket.Conn
	send     chan []byte
	gameID   string
	userID   uint
	username string
}

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ActionMessage is the inbound wire shape for game actions.
type ActionMessage struct {
	Action   string `json:"action"`
	Letter   string `json:"letter,omitempty"`
	Position *int   `json:"position,omitempty"`
	Word     string `json:"word,omitempty"`
}

func NewHub(gameService *GameService) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		broadcast:   make(chan []byte),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		gameService: gameService,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("Client %s attached to game %s (user %d: %s) - total clients: %d",
				client.id, client.gameID, client.userID, client.username, h.clientCount())

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				// A dropped connection only leaves the broadcast group.
				// The game keeps running; the peer can still act and the
				// user can reconnect to the same game id.
				log.Printf("Client %s detached from game %s (user %d: %s) - total clients: %d",
					client.id, client.gameID, client.userID, client.username, len(h.clients))
			}
			h.mutex.Unlock()

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

func (h *Hub) clientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// BroadcastToGame delivers an event to every participant of one game.
func (h *Hub) BroadcastToGame(gameID string, messageType string, payload interface{}) {
	data, err := json.Marshal(Message{Type: messageType, Payload: payload})
	if err != nil {
		log.Printf("Error marshaling %s message for game %s: %v", messageType, gameID, err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for client := range h.clients {
		if client.gameID != gameID {
			continue
		}
		select {
		case client.send <- data:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
}

// SendToUser delivers a private payload to one participant only. Hint and
// reveal results go through here so they never reach the opponent.
func (h *Hub) SendToUser(gameID string, userID uint, messageType string, payload interface{}) {
	data, err := json.Marshal(Message{Type: messageType, Payload: payload})
	if err != nil {
		log.Printf("Error marshaling personal %s message: %v", messageType, err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for client := range h.clients {
		if client.gameID != gameID || client.userID != userID {
			continue
		}
		select {
		case client.send <- data:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
}

// PublishOutcome announces a committed transition: the shared snapshot to
// the whole group, any private payload to the actor alone. Called strictly
// after the game service released its per-game lock.
func (h *Hub) PublishOutcome(gameID string, actorID uint, out *Outcome, snap *GameSnapshot) {
	if out == nil || out.Event == "" {
		return
	}

	payload := map[string]interface{}{
		"event": out.Event,
		"game":  snap,
	}
	if out.Ended {
		payload["reason"] = out.EndReason
		payload["winner_id"] = out.WinnerID
	}
	h.BroadcastToGame(gameID, out.Event, payload)

	if out.Personal != nil && actorID != 0 {
		h.SendToUser(gameID, actorID, out.Personal.Type, out.Personal.Data)
	}
}

// ConnectedUsers lists the user ids currently attached to a game.
func (h *Hub) ConnectedUsers(gameID string) []uint {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	var ids []uint
	for client := range h.clients {
		if client.gameID == gameID {
			ids = append(ids, client.userID)
		}
	}
	return ids
}

func (h *Hub) RegisterClient(conn *websocket.Conn, gameID string, userID uint, username string) *Client {
	client := &Client{
		hub:      h,
		id:       generateClientID(),
		socket:   conn,
		send:     make(chan []byte, 256),
		gameID:   gameID,
		userID:   userID,
		username: username,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()

	return client
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.socket.Close()
	}()

	for {
		_, raw, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		var msg ActionMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendError("invalid message")
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	defer c.socket.Close()

	for message := range c.send {
		w, err := c.socket.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		w.Write(message)
		if err := w.Close(); err != nil {
			return
		}
	}
	c.socket.WriteMessage(websocket.CloseMessage, []byte{})
}

func (c *Client) handleMessage(msg ActionMessage) {
	switch msg.Action {
	case "ping":
		c.sendMessage("pong", "pong")
		return
	case "request_state":
		c.sendSnapshot()
		return
	}

	kind, err := ParseAction(msg.Action)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	action := Action{Kind: kind, Letter: msg.Letter, Word: msg.Word}
	if msg.Position != nil {
		action.Position = *msg.Position
	} else if kind == ActionGuessLetter {
		c.sendError("position is required")
		return
	}

	out, snap, err := c.hub.gameService.Dispatch(c.gameID, c.userID, action)
	if err != nil {
		// Validation failures go to the acting participant only; the rest
		// of the group never sees them.
		c.sendError(userFacingError(err))
		return
	}

	c.hub.PublishOutcome(c.gameID, c.userID, out, snap)

	if kind == ActionJoin {
		c.sendSnapshot()
	}
}

// sendSnapshot syncs this client with its own private view of the game.
func (c *Client) sendSnapshot() {
	snap, err := c.hub.gameService.GetSnapshot(c.gameID, c.userID)
	if err != nil {
		c.sendError(userFacingError(err))
		return
	}
	c.sendMessage("game_state_sync", snap)
}

func (c *Client) sendMessage(messageType string, payload interface{}) {
	data, err := json.Marshal(Message{Type: messageType, Payload: payload})
	if err != nil {
		log.Printf("Error marshaling %s message: %v", messageType, err)
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) sendError(text string) {
	c.sendMessage("error", map[string]string{"message": text})
}

// userFacingError maps the error taxonomy onto messages safe to show the
// actor. Unexpected internal failures are logged and reported generically.
func userFacingError(err error) string {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrInvalidTurn),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrInvalidStateTransition),
		errors.Is(err, ErrGameFinished):
		return err.Error()
	default:
		log.Printf("Internal error during dispatch: %v", err)
		return "internal server error"
	}
}

func generateClientID() string {
	return "client_" + time.Now().Format("150405.000000")
}
