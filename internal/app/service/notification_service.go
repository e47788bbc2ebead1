package service

import (
	"errors"
	"fmt"

	"github.com/unimarket/unimarket-backend/internal/app/model"
	"github.com/unimarket/unimarket-backend/internal/app/repository"
	"github.com/unimarket/unimarket-backend/internal/websocket"
	"github.com/unimarket/unimarket-backend/pkg/logger"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationService interface {
	GetNotifications(userID uint, isRead *bool, page, pageSize int) ([]model.Notification, int64, int64, error)
	GetUnreadCount(userID uint) (int64, error)
	MarkAsRead(notificationID, userID uint) (*model.Notification, error)
	MarkAllAsRead(userID uint) error
	DeleteNotification(notificationID, userID uint) error

	// Creation helpers called by other services
	NotifyVerificationResult(userID uint, requestID uint, status model.VerificationStatus)
	NotifyNewMessage(recipientID uint, roomID uint, preview string)
	NotifyListingSold(sellerID uint, listingID uint, title string)
}

type notificationService struct {
	repo repository.NotificationRepository
	hub  *websocket.Hub
}

func NewNotificationService(repo repository.NotificationRepository, hub *websocket.Hub) NotificationService {
	return &notificationService{
		repo: repo,
		hub:  hub,
	}
}

func (s *notificationService) GetNotifications(
	userID uint,
	isRead *bool,
	page, pageSize int,
) ([]model.Notification, int64, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	offset := (page - 1) * pageSize

	notifications, total, err := s.repo.FindByUserID(userID, isRead, pageSize, offset)
	if err != nil {
		return nil, 0, 0, err
	}

	unreadCount, err := s.repo.CountUnread(userID)
	if err != nil {
		return nil, 0, 0, err
	}

	return notifications, total, unreadCount, nil
}

func (s *notificationService) GetUnreadCount(userID uint) (int64, error) {
	return s.repo.CountUnread(userID)
}

func (s *notificationService) MarkAsRead(notificationID, userID uint) (*model.Notification, error) {
	notification, err := s.repo.FindByID(notificationID)
	if err != nil {
		return nil, ErrNotificationNotFound
	}

	// Ownership check
	if notification.UserID != userID {
		return nil, ErrNotificationNotFound
	}

	if notification.IsRead {
		return notification, nil
	}

	if err := s.repo.MarkAsRead(notificationID); err != nil {
		return nil, err
	}

	notification.IsRead = true
	return notification, nil
}

func (s *notificationService) MarkAllAsRead(userID uint) error {
	return s.repo.MarkAllAsRead(userID)
}

func (s *notificationService) DeleteNotification(notificationID, userID uint) error {
	notification, err := s.repo.FindByID(notificationID)
	if err != nil {
		return ErrNotificationNotFound
	}
	if notification.UserID != userID {
		return ErrNotificationNotFound
	}

	return s.repo.Delete(notificationID)
}

// NotifyVerificationResult records the verdict of a verification attempt and
// pushes it over websocket. Failures are logged, never propagated; a missed
// notification must not fail the pipeline.
func (s *notificationService) NotifyVerificationResult(
	userID uint,
	requestID uint,
	status model.VerificationStatus,
) {
	var (
		notifType model.NotificationType
		title     string
		content   string
	)

	switch status {
	case model.VerificationAutoApproved, model.VerificationApproved:
		notifType = model.NotificationTypeVerificationApproved
		title = "You're verified!"
		content = "Your student ID has been verified. Your profile now shows the verified badge."
	case model.VerificationRejected:
		notifType = model.NotificationTypeVerificationRejected
		title = "Verification unsuccessful"
		content = "We couldn't verify your student ID. Check the details on your verification page and try again."
	case model.VerificationNeedsReview:
		notifType = model.NotificationTypeVerificationPendingReview
		title = "Verification under review"
		content = "Your student ID is being reviewed by our team. We'll let you know as soon as it's done."
	default:
		return
	}

	notification := &model.Notification{
		UserID:           userID,
		Type:             notifType,
		Title:            title,
		Content:          content,
		Link:             "/verification",
		RelatedRequestID: &requestID,
	}

	if err := s.repo.Create(notification); err != nil {
		logger.Error("Failed to create verification notification", err, map[string]interface{}{
			"user_id":    userID,
			"request_id": requestID,
		})
		return
	}

	s.push(userID, notification)
}

// NotifyNewMessage alerts a chat participant about an unread message.
func (s *notificationService) NotifyNewMessage(recipientID uint, roomID uint, preview string) {
	notification := &model.Notification{
		UserID:  recipientID,
		Type:    model.NotificationTypeNewMessage,
		Title:   "New message",
		Content: preview,
		Link:    fmt.Sprintf("/chat/rooms/%d", roomID),
	}

	if err := s.repo.Create(notification); err != nil {
		logger.Error("Failed to create message notification", err, map[string]interface{}{
			"user_id": recipientID,
			"room_id": roomID,
		})
		return
	}

	s.push(recipientID, notification)
}

// NotifyListingSold tells a seller their listing was marked sold.
func (s *notificationService) NotifyListingSold(sellerID uint, listingID uint, title string) {
	notification := &model.Notification{
		UserID:           sellerID,
		Type:             model.NotificationTypeListingSold,
		Title:            "Listing sold",
		Content:          fmt.Sprintf("%q has been marked as sold.", title),
		Link:             fmt.Sprintf("/listings/%d", listingID),
		RelatedListingID: &listingID,
	}

	if err := s.repo.Create(notification); err != nil {
		logger.Error("Failed to create listing sold notification", err, map[string]interface{}{
			"user_id":    sellerID,
			"listing_id": listingID,
		})
		return
	}

	s.push(sellerID, notification)
}

// push sends a realtime notification over websocket when a hub is attached.
func (s *notificationService) push(userID uint, notification *model.Notification) {
	if s.hub == nil {
		return
	}

	unreadCount, _ := s.repo.CountUnread(userID)
	message := map[string]interface{}{
		"type":         "new_notification",
		"unread_count": unreadCount,
		"notification": notification,
	}
	if err := s.hub.SendNotificationToUser(userID, message); err != nil {
		logger.Warn("Failed to push websocket notification", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}
