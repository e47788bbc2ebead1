package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

type ListingCategory string

const (
	CategoryTextbooks   ListingCategory = "textbooks"
	CategoryElectronics ListingCategory = "electronics"
	CategoryFurniture   ListingCategory = "furniture"
	CategoryClothing    ListingCategory = "clothing"
	CategoryTickets     ListingCategory = "tickets"
	CategoryOther       ListingCategory = "other"
)

type ListingStatus string

const (
	ListingActive   ListingStatus = "active"
	ListingReserved ListingStatus = "reserved"
	ListingSold     ListingStatus = "sold"
)

type ListingCondition string

const (
	ConditionNew     ListingCondition = "new"
	ConditionLikeNew ListingCondition = "like_new"
	ConditionGood    ListingCondition = "good"
	ConditionFair    ListingCondition = "fair"
	ConditionWorn    ListingCondition = "worn"
)

type Listing struct {
	ID          uint             `gorm:"primarykey" json:"id"`
	SellerID    uint             `gorm:"not null;index" json:"seller_id"`
	Seller      *User            `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
	Title       string           `gorm:"not null" json:"title"`
	Description string           `gorm:"type:text" json:"description"`
	Price       int64            `gorm:"not null" json:"price"` // cents
	Category    ListingCategory  `gorm:"type:varchar(50);index" json:"category"`
	Condition   ListingCondition `gorm:"type:varchar(20)" json:"condition"`
	Status      ListingStatus    `gorm:"type:varchar(20);default:'active';index" json:"status"`
	Images      pq.StringArray   `gorm:"type:text[]" json:"images"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	DeletedAt   gorm.DeletedAt   `gorm:"index" json:"-"`
}

func (Listing) TableName() string {
	return "listings"
}
