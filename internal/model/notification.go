package model

type NotificationType string

const (
	NotificationSubmissionGraded NotificationType = "SUBMISSION_GRADED"
	NotificationAppealCreated    NotificationType = "APPEAL_CREATED"
	NotificationAppealResolved   NotificationType = "APPEAL_RESOLVED"
	NotificationTestCancelled    NotificationType = "TEST_CANCELLED"
)

// swagger:model Notification
type Notification struct {
	UUIDBase
	UserID  uint             `gorm:"index;not null" json:"userId"`
	Type    NotificationType `gorm:"size:50;not null" json:"type"`
	Title   string           `gorm:"size:255;not null" json:"title"`
	Message string           `gorm:"type:text" json:"message"`
	Read    bool             `gorm:"default:false" json:"read"`
	// RelatedID points at the appeal/submission/test the event is about.
	RelatedID uint `gorm:"default:0" json:"relatedId,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}
