package service

import (
	"errors"
	"time"

	"github.com/unimarket/unimarket-backend/internal/app/model"
	"github.com/unimarket/unimarket-backend/internal/app/repository"
	"github.com/unimarket/unimarket-backend/internal/websocket"
	"github.com/unimarket/unimarket-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrChatRoomNotFound = errors.New("chat room not found")
	ErrNotRoomMember    = errors.New("not a member of this chat room")
	ErrSelfChat         = errors.New("cannot open a chat with yourself")
	ErrEmptyMessage     = errors.New("message content is empty")
)

const messagePreviewLen = 80

type ChatService interface {
	OpenRoom(listingID, buyerID uint) (*model.ChatRoom, error)
	GetRooms(userID uint) ([]model.ChatRoom, error)
	GetMessages(roomID, userID uint, page, pageSize int) ([]model.Message, error)
	SendMessage(roomID, senderID uint, content string) (*model.Message, error)
	MarkRead(roomID, readerID uint) error
}

type chatService struct {
	chatRepo    repository.ChatRepository
	listingRepo repository.ListingRepository
	hub         *websocket.Hub
	notifier    NotificationService
}

func NewChatService(
	chatRepo repository.ChatRepository,
	listingRepo repository.ListingRepository,
	hub *websocket.Hub,
	notifier NotificationService,
) ChatService {
	return &chatService{
		chatRepo:    chatRepo,
		listingRepo: listingRepo,
		hub:         hub,
		notifier:    notifier,
	}
}

// OpenRoom returns the existing room for this listing and buyer, creating
// one if needed. The unique index on (listing, buyer) guards against races.
func (s *chatService) OpenRoom(listingID, buyerID uint) (*model.ChatRoom, error) {
	listing, err := s.listingRepo.FindByID(listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	if listing.SellerID == buyerID {
		return nil, ErrSelfChat
	}

	room, err := s.chatRepo.FindRoomByListingAndBuyer(listingID, buyerID)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	room = &model.ChatRoom{
		ListingID: listingID,
		BuyerID:   buyerID,
		SellerID:  listing.SellerID,
	}
	if err := s.chatRepo.CreateRoom(room); err != nil {
		return nil, err
	}

	logger.Info("Chat room opened", map[string]interface{}{
		"room_id":    room.ID,
		"listing_id": listingID,
		"buyer_id":   buyerID,
		"seller_id":  listing.SellerID,
	})
	return room, nil
}

func (s *chatService) GetRooms(userID uint) ([]model.ChatRoom, error) {
	return s.chatRepo.FindRoomsByUserID(userID)
}

func (s *chatService) GetMessages(roomID, userID uint, page, pageSize int) ([]model.Message, error) {
	room, err := s.roomForMember(roomID, userID)
	if err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}
	return s.chatRepo.FindMessagesByRoomID(room.ID, pageSize, (page-1)*pageSize)
}

// SendMessage persists a message, bumps the room's last activity and fans
// out to the websocket hub plus a notification for the other participant.
func (s *chatService) SendMessage(roomID, senderID uint, content string) (*model.Message, error) {
	if content == "" {
		return nil, ErrEmptyMessage
	}

	room, err := s.roomForMember(roomID, senderID)
	if err != nil {
		return nil, err
	}

	message := &model.Message{
		RoomID:   roomID,
		SenderID: senderID,
		Content:  content,
	}
	if err := s.chatRepo.CreateMessage(message); err != nil {
		return nil, err
	}
	if err := s.chatRepo.TouchRoom(roomID, time.Now()); err != nil {
		logger.Warn("Failed to update room activity", map[string]interface{}{
			"room_id": roomID,
			"error":   err.Error(),
		})
	}

	recipientID := room.SellerID
	if senderID == room.SellerID {
		recipientID = room.BuyerID
	}

	if s.hub != nil {
		_ = s.hub.SendNotificationToUser(recipientID, map[string]interface{}{
			"type":    "chat_message",
			"room_id": roomID,
			"message": message,
		})
	}
	if s.notifier != nil {
		preview := content
		if len(preview) > messagePreviewLen {
			preview = preview[:messagePreviewLen]
		}
		s.notifier.NotifyNewMessage(recipientID, roomID, preview)
	}

	return message, nil
}

func (s *chatService) MarkRead(roomID, readerID uint) error {
	if _, err := s.roomForMember(roomID, readerID); err != nil {
		return err
	}
	return s.chatRepo.MarkMessagesRead(roomID, readerID)
}

func (s *chatService) roomForMember(roomID, userID uint) (*model.ChatRoom, error) {
	room, err := s.chatRepo.FindRoomByID(roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatRoomNotFound
		}
		return nil, err
	}
	if room.BuyerID != userID && room.SellerID != userID {
		return nil, ErrNotRoomMember
	}
	return room, nil
}
