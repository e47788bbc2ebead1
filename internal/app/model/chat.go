package model

import (
	"time"

	"gorm.io/gorm"
)

// ChatRoom one buyer/seller conversation about a listing
type ChatRoom struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	ListingID uint     `gorm:"not null;index;uniqueIndex:idx_chat_rooms_listing_buyer" json:"listing_id"`
	Listing   *Listing `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
	BuyerID   uint     `gorm:"not null;index;uniqueIndex:idx_chat_rooms_listing_buyer" json:"buyer_id"`
	Buyer     *User    `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
	SellerID  uint     `gorm:"not null;index" json:"seller_id"`
	Seller    *User    `gorm:"foreignKey:SellerID" json:"seller,omitempty"`

	LastMessageAt *time.Time `json:"last_message_at,omitempty"`

	Messages []Message `gorm:"foreignKey:RoomID" json:"messages,omitempty"`
}

func (ChatRoom) TableName() string {
	return "chat_rooms"
}

type Message struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	RoomID   uint   `gorm:"not null;index" json:"room_id"`
	SenderID uint   `gorm:"not null;index" json:"sender_id"`
	Content  string `gorm:"type:text;not null" json:"content"`
	IsRead   bool   `gorm:"default:false;index" json:"is_read"`
}

func (Message) TableName() string {
	return "messages"
}
