package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/unimarket/unimarket-backend/pkg/logger"
)

var ErrUserOffline = errors.New("user has no active websocket session")

// ClientMessage inbound event from a connected client
type ClientMessage struct {
	Type   string `json:"type"` // typing_start, typing_stop
	RoomID uint   `json:"room_id"`
}

// Client one websocket session for one user
type Client struct {
	Hub    *Hub
	Conn   *Conn
	UserID uint
	Send   chan []byte

	Rooms map[uint]bool // chat rooms this session has joined
	mu    sync.RWMutex

	// Rate limiting state
	MessageCount  int
	LastResetTime time.Time
	RateMu        sync.Mutex
}

// Hub tracks websocket sessions and fans out chat events and notifications.
// Users may hold several sessions at once (multiple devices).
type Hub struct {
	clients map[uint][]*Client     // UserID -> sessions
	rooms   map[uint]map[uint]bool // RoomID -> set of UserIDs

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage

	mu sync.RWMutex
}

// BroadcastMessage a chat-room fanout; the sender is excluded
type BroadcastMessage struct {
	RoomID   uint
	Message  []byte
	SenderID uint
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint][]*Client),
		rooms:      make(map[uint]map[uint]bool),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan *BroadcastMessage, 1024),
	}
}

// Run processes registrations and broadcasts. Call in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			logger.Info("WebSocket client registered", map[string]interface{}{
				"user_id":        client.UserID,
				"total_sessions": len(h.clients[client.UserID]),
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if clientList, ok := h.clients[client.UserID]; ok {
				newList := make([]*Client, 0, len(clientList))
				for _, c := range clientList {
					if c != client {
						newList = append(newList, c)
					}
				}

				if len(newList) == 0 {
					// Last session gone: drop the user from every room
					delete(h.clients, client.UserID)

					client.mu.RLock()
					for roomID := range client.Rooms {
						if users, ok := h.rooms[roomID]; ok {
							delete(users, client.UserID)
							if len(users) == 0 {
								delete(h.rooms, roomID)
							}
						}
					}
					client.mu.RUnlock()
				} else {
					h.clients[client.UserID] = newList
				}

				close(client.Send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			if users, ok := h.rooms[message.RoomID]; ok {
				for userID := range users {
					if userID == message.SenderID {
						continue
					}
					h.deliverLocked(userID, message.Message)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// deliverLocked sends to every session of a user. Caller holds h.mu (read).
// A session with a full send buffer is disconnected asynchronously.
func (h *Hub) deliverLocked(userID uint, message []byte) {
	clientList, ok := h.clients[userID]
	if !ok {
		return
	}
	for _, client := range clientList {
		select {
		case client.Send <- message:
		default:
			go h.Unregister(client)
			logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
				"user_id": userID,
			})
		}
	}
}

// JoinRoom adds all of a user's sessions to a chat room.
func (h *Hub) JoinRoom(userID, roomID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clientList, ok := h.clients[userID]
	if !ok {
		return
	}
	for _, client := range clientList {
		client.mu.Lock()
		client.Rooms[roomID] = true
		client.mu.Unlock()
	}

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[uint]bool)
	}
	h.rooms[roomID][userID] = true
}

// LeaveRoom removes all of a user's sessions from a chat room.
func (h *Hub) LeaveRoom(userID, roomID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clientList, ok := h.clients[userID]; ok {
		for _, client := range clientList {
			client.mu.Lock()
			delete(client.Rooms, roomID)
			client.mu.Unlock()
		}
	}

	if users, ok := h.rooms[roomID]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// SendToRoom fans a message out to a chat room, excluding the sender.
// A full broadcast channel drops the message; realtime extras are lossy.
func (h *Hub) SendToRoom(roomID uint, message interface{}, senderID uint) error {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Error("Failed to marshal websocket message", err, nil)
		return err
	}

	select {
	case h.broadcast <- &BroadcastMessage{
		RoomID:   roomID,
		Message:  data,
		SenderID: senderID,
	}:
		return nil
	default:
		logger.Warn("Broadcast channel full, message dropped", map[string]interface{}{
			"room_id": roomID,
		})
		return nil
	}
}

// SendNotificationToUser pushes a payload to every session of one user,
// regardless of room membership. Used for notifications and verification
// status updates.
func (h *Hub) SendNotificationToUser(userID uint, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[userID]; !ok {
		return ErrUserOffline
	}
	h.deliverLocked(userID, data)
	return nil
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) IsUserOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// HandleClientMessage parses and dispatches one inbound client event.
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	client.RateMu.Lock()
	now := time.Now()
	if now.Sub(client.LastResetTime) >= time.Second {
		client.MessageCount = 0
		client.LastResetTime = now
	}
	client.MessageCount++
	count := client.MessageCount
	client.RateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"user_id": client.UserID,
			"count":   count,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Failed to parse client message", map[string]interface{}{
			"user_id": client.UserID,
			"error":   err.Error(),
		})
		return
	}

	if msg.Type == "typing_start" || msg.Type == "typing_stop" {
		client.mu.RLock()
		_, isInRoom := client.Rooms[msg.RoomID]
		client.mu.RUnlock()

		if !isInRoom {
			return
		}

		response := map[string]interface{}{
			"type":    msg.Type,
			"room_id": msg.RoomID,
			"user_id": client.UserID,
		}
		if err := h.SendToRoom(msg.RoomID, response, client.UserID); err != nil {
			logger.Error("Failed to broadcast typing event", err, map[string]interface{}{
				"user_id": client.UserID,
				"room_id": msg.RoomID,
			})
		}
	}
}
