package repository

import (
	"time"

	"github.com/unimarket/unimarket-backend/internal/app/model"
	"github.com/unimarket/unimarket-backend/pkg/logger"
	"gorm.io/gorm"
)

type ChatRepository interface {
	CreateRoom(room *model.ChatRoom) error
	FindRoomByID(id uint) (*model.ChatRoom, error)
	FindRoomByListingAndBuyer(listingID, buyerID uint) (*model.ChatRoom, error)
	FindRoomsByUserID(userID uint) ([]model.ChatRoom, error)
	CreateMessage(message *model.Message) error
	FindMessagesByRoomID(roomID uint, limit, offset int) ([]model.Message, error)
	MarkMessagesRead(roomID, readerID uint) error
	TouchRoom(roomID uint, at time.Time) error
}

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) CreateRoom(room *model.ChatRoom) error {
	logger.Debug("Creating chat room", map[string]interface{}{
		"listing_id": room.ListingID,
		"buyer_id":   room.BuyerID,
	})

	if err := r.db.Create(room).Error; err != nil {
		logger.Error("Failed to create chat room", err, map[string]interface{}{
			"listing_id": room.ListingID,
		})
		return err
	}
	return nil
}

func (r *chatRepository) FindRoomByID(id uint) (*model.ChatRoom, error) {
	var room model.ChatRoom
	err := r.db.Preload("Listing").First(&room, id).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find chat room", err, map[string]interface{}{
				"room_id": id,
			})
		}
		return nil, err
	}
	return &room, nil
}

func (r *chatRepository) FindRoomByListingAndBuyer(listingID, buyerID uint) (*model.ChatRoom, error) {
	var room model.ChatRoom
	err := r.db.Where("listing_id = ? AND buyer_id = ?", listingID, buyerID).First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *chatRepository) FindRoomsByUserID(userID uint) ([]model.ChatRoom, error) {
	var rooms []model.ChatRoom
	err := r.db.Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Preload("Listing").
		Order("last_message_at DESC NULLS LAST").
		Find(&rooms).Error
	if err != nil {
		logger.Error("Failed to find chat rooms for user", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return rooms, nil
}

func (r *chatRepository) CreateMessage(message *model.Message) error {
	if err := r.db.Create(message).Error; err != nil {
		logger.Error("Failed to create message", err, map[string]interface{}{
			"room_id":   message.RoomID,
			"sender_id": message.SenderID,
		})
		return err
	}
	return nil
}

func (r *chatRepository) FindMessagesByRoomID(roomID uint, limit, offset int) ([]model.Message, error) {
	var messages []model.Message
	err := r.db.Where("room_id = ?", roomID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	if err != nil {
		logger.Error("Failed to find messages", err, map[string]interface{}{
			"room_id": roomID,
		})
		return nil, err
	}
	return messages, nil
}

func (r *chatRepository) MarkMessagesRead(roomID, readerID uint) error {
	err := r.db.Model(&model.Message{}).
		Where("room_id = ? AND sender_id != ? AND is_read = ?", roomID, readerID, false).
		Update("is_read", true).Error
	if err != nil {
		logger.Error("Failed to mark messages read", err, map[string]interface{}{
			"room_id": roomID,
		})
		return err
	}
	return nil
}

func (r *chatRepository) TouchRoom(roomID uint, at time.Time) error {
	return r.db.Model(&model.ChatRoom{}).
		Where("id = ?", roomID).
		Update("last_message_at", at).Error
}
