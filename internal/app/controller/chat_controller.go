package controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/unimarket/unimarket-backend/internal/app/service"
	apperrors "github.com/unimarket/unimarket-backend/internal/errors"
	"github.com/unimarket/unimarket-backend/internal/middleware"
	ws "github.com/unimarket/unimarket-backend/internal/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"https://unimarket.app": true,
			"http://localhost:5173": true, // dev
			"http://localhost:3000": true, // dev
		}
		return allowedOrigins[origin]
	},
}

type ChatController struct {
	chatService service.ChatService
	hub         *ws.Hub
}

func NewChatController(chatService service.ChatService, hub *ws.Hub) *ChatController {
	return &ChatController{
		chatService: chatService,
		hub:         hub,
	}
}

type OpenRoomRequest struct {
	ListingID uint `json:"listing_id" binding:"required"`
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required,max=4000"`
}

// OpenRoom opens (or returns) the chat room between the caller and the
// seller of a listing.
// POST /api/v1/chats/rooms
func (ctrl *ChatController) OpenRoom(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	var req OpenRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "A listing ID is required")
		return
	}

	room, err := ctrl.chatService.OpenRoom(req.ListingID, userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrListingNotFound):
			apperrors.NotFound(c, apperrors.ListingNotFound, "Listing not found")
		case errors.Is(err, service.ErrSelfChat):
			apperrors.BadRequest(c, apperrors.ChatSelfChat, "You cannot chat about your own listing")
		default:
			log.Error("Failed to open chat room", err, map[string]interface{}{
				"listing_id": req.ListingID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "open chat room")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room": room,
	})
}

// GetRooms lists the caller's chat rooms, most recently active first
// GET /api/v1/chats/rooms
func (ctrl *ChatController) GetRooms(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	rooms, err := ctrl.chatService.GetRooms(userID)
	if err != nil {
		log.Error("Failed to get chat rooms", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get chat rooms")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rooms": rooms,
	})
}

// GetMessages returns a page of a room's messages
// GET /api/v1/chats/rooms/:id/messages
func (ctrl *ChatController) GetMessages(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	roomID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid room ID")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	messages, err := ctrl.chatService.GetMessages(uint(roomID), userID, page, pageSize)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrChatRoomNotFound):
			apperrors.NotFound(c, apperrors.ChatRoomNotFound, "Chat room not found")
		case errors.Is(err, service.ErrNotRoomMember):
			apperrors.Forbidden(c, "You are not a member of this chat room")
		default:
			log.Error("Failed to get messages", err, map[string]interface{}{
				"room_id": roomID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get messages")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages":  messages,
		"page":      page,
		"page_size": pageSize,
	})
}

// SendMessage posts a message to a room
// POST /api/v1/chats/rooms/:id/messages
func (ctrl *ChatController) SendMessage(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	roomID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid room ID")
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Message content is required")
		return
	}

	message, err := ctrl.chatService.SendMessage(uint(roomID), userID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrChatRoomNotFound):
			apperrors.NotFound(c, apperrors.ChatRoomNotFound, "Chat room not found")
		case errors.Is(err, service.ErrNotRoomMember):
			apperrors.Forbidden(c, "You are not a member of this chat room")
		case errors.Is(err, service.ErrEmptyMessage):
			apperrors.BadRequest(c, apperrors.ValidationRequired, "Message content is required")
		default:
			log.Error("Failed to send message", err, map[string]interface{}{
				"room_id": roomID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "send message")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": message,
	})
}

// MarkAsRead marks all messages from the other participant as read
// POST /api/v1/chats/rooms/:id/read
func (ctrl *ChatController) MarkAsRead(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	roomID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid room ID")
		return
	}

	if err := ctrl.chatService.MarkRead(uint(roomID), userID); err != nil {
		switch {
		case errors.Is(err, service.ErrChatRoomNotFound):
			apperrors.NotFound(c, apperrors.ChatRoomNotFound, "Chat room not found")
		case errors.Is(err, service.ErrNotRoomMember):
			apperrors.Forbidden(c, "You are not a member of this chat room")
		default:
			log.Error("Failed to mark messages read", err, map[string]interface{}{
				"room_id": roomID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "mark as read")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}

// WebSocketHandler upgrades the connection and attaches the session to the
// hub. The token arrives as a query parameter and is never logged.
// GET /api/v1/chats/ws
func (ctrl *ChatController) WebSocketHandler(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade to WebSocket", err, nil)
		return
	}

	client := &ws.Client{
		Hub:           ctrl.hub,
		Conn:          &ws.Conn{Conn: conn},
		UserID:        userID,
		Send:          make(chan []byte, 2048),
		Rooms:         make(map[uint]bool),
		LastResetTime: time.Now(),
	}

	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// JoinRoom subscribes the caller's websocket sessions to a room's events
// POST /api/v1/chats/rooms/:id/join
func (ctrl *ChatController) JoinRoom(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	roomID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid room ID")
		return
	}

	ctrl.hub.JoinRoom(userID, uint(roomID))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}

// LeaveRoom unsubscribes the caller's websocket sessions from a room
// POST /api/v1/chats/rooms/:id/leave
func (ctrl *ChatController) LeaveRoom(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	roomID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid room ID")
		return
	}

	ctrl.hub.LeaveRoom(userID, uint(roomID))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}
