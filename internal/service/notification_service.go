package service

import (
	"classassess_backend/internal/model"
	"classassess_backend/internal/repository"
	"classassess_backend/pkg/logger"
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// notificationChannel is the Redis pub/sub channel notifications fan
// out on; every running instance's hub subscribes to it.
const notificationChannel = "classassess:notifications"

// notificationEvent is the wire form published to Redis and pushed to
// WebSocket clients.
type notificationEvent struct {
	UserID    uint                   `json:"userId"`
	Type      model.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	RelatedID uint                   `json:"relatedId,omitempty"`
}

// NotificationService persists notifications and publishes them for
// real-time delivery. Delivery failures are logged, never returned:
// a notification must not fail the operation that triggered it.
type NotificationService struct {
	Repo  *repository.NotificationRepository
	Redis *redis.Client
}

func NewNotificationService(repo *repository.NotificationRepository, rdb *redis.Client) *NotificationService {
	return &NotificationService{Repo: repo, Redis: rdb}
}

func (s *NotificationService) SubmissionGraded(sub *model.Submission, test *model.Test) {
	s.notify(sub.StudentID, model.NotificationSubmissionGraded,
		"Test graded",
		fmt.Sprintf("Your submission for %q has been graded. Score: %.1f%%.", test.Title, sub.TotalScore),
		sub.ID)
}

func (s *NotificationService) AppealCreated(appeal *model.Appeal, test *model.Test) {
	s.notify(test.LecturerID, model.NotificationAppealCreated,
		"New appeal",
		fmt.Sprintf("A student has appealed their score on %q.", test.Title),
		appeal.ID)
}

func (s *NotificationService) AppealResolved(appeal *model.Appeal, test *model.Test, sub *model.Submission) {
	outcome := "rejected"
	if appeal.Status == model.AppealApproved {
		outcome = "approved"
	}
	msg := fmt.Sprintf("Your appeal on %q has been %s.", test.Title, outcome)
	if appeal.UpdatedScore != nil {
		msg = fmt.Sprintf("%s Updated score: %.1f%%.", msg, *appeal.UpdatedScore)
	}
	s.notify(sub.StudentID, model.NotificationAppealResolved, "Appeal resolved", msg, appeal.ID)
}

func (s *NotificationService) TestCancelled(test *model.Test, students []model.User) {
	for i := range students {
		s.notify(students[i].ID, model.NotificationTestCancelled,
			"Test cancelled",
			fmt.Sprintf("The test %q has been cancelled by the lecturer.", test.Title),
			test.ID)
	}
}

func (s *NotificationService) ListForUser(userID uint, page, limit int) ([]model.Notification, int64, error) {
	return s.Repo.ListByUser(userID, page, limit)
}

func (s *NotificationService) MarkRead(id string, userID uint) error {
	return s.Repo.MarkRead(id, userID)
}

func (s *NotificationService) notify(userID uint, typ model.NotificationType, title, message string, relatedID uint) {
	n := &model.Notification{
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		RelatedID: relatedID,
	}
	if err := s.Repo.Create(n); err != nil {
		logger.Log.Error("notification persist failed",
			zap.Uint("userId", userID), zap.String("type", string(typ)), zap.Error(err))
		return
	}

	if s.Redis == nil {
		return
	}
	payload, err := json.Marshal(notificationEvent{
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		RelatedID: relatedID,
	})
	if err != nil {
		logger.Log.Error("notification encode failed", zap.Error(err))
		return
	}
	if err := s.Redis.Publish(context.Background(), notificationChannel, payload).Err(); err != nil {
		logger.Log.Warn("notification publish failed", zap.Error(err))
	}
}
