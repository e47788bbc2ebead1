package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// UserVerificationStatus mirrors the outcome category of the user's most
// recent verification attempt. An admin override can move it independently
// of the stored verdict.
type UserVerificationStatus string

const (
	UserUnverified           UserVerificationStatus = "unverified"
	UserVerificationPending  UserVerificationStatus = "pending"
	UserVerified             UserVerificationStatus = "verified"
	UserVerificationRejected UserVerificationStatus = "rejected"
)

type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Name         string         `gorm:"not null" json:"name"`
	Nickname     string         `gorm:"uniqueIndex;not null" json:"nickname"`
	Phone        string         `json:"phone"`
	ProfileImage string         `json:"profile_image"`
	Role         UserRole       `gorm:"type:varchar(20);default:'user'" json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Student verification projection. The verification engine reads and
	// writes these fields only; credentials stay out of its reach.
	VerificationStatus UserVerificationStatus `gorm:"type:varchar(20);default:'unverified';index" json:"verification_status"`
	StudentIDPhotoURL  string                 `gorm:"type:text" json:"student_id_photo_url,omitempty"`
	SelfiePhotoURL     string                 `gorm:"type:text" json:"selfie_photo_url,omitempty"`
	College            string                 `json:"college,omitempty"`
	TrustScore         int                    `gorm:"default:0" json:"trust_score"`
	Badges             pq.StringArray         `gorm:"type:text[]" json:"badges"`

	Listings []Listing `gorm:"foreignKey:SellerID" json:"listings,omitempty"`
}

func (User) TableName() string {
	return "users"
}
