package model

import "time"

type AppealStatus string

const (
	AppealPending  AppealStatus = "PENDING"
	AppealApproved AppealStatus = "APPROVED"
	AppealRejected AppealStatus = "REJECTED"
)

// swagger:model Appeal
type Appeal struct {
	BaseModel
	TestID       uint `gorm:"index;not null" json:"testId"`
	SubmissionID uint `gorm:"index;not null" json:"submissionId"`
	// OriginalScore snapshots Submission.TotalScore at appeal time;
	// UpdatedScore stays nil until the appeal is resolved.
	OriginalScore  float64      `json:"originalScore"`
	RequestedScore float64      `json:"requestedScore"`
	UpdatedScore   *float64     `json:"updatedScore,omitempty"`
	Reason         string       `gorm:"size:1000" json:"reason"`
	Status         AppealStatus `gorm:"type:enum('PENDING','APPROVED','REJECTED');default:'PENDING'" json:"status"`
	Feedback       string       `gorm:"size:1000" json:"feedback,omitempty"`
	ResolvedByID   *uint        `json:"resolvedById,omitempty"`
	ResolvedAt     *time.Time   `json:"resolvedAt,omitempty"`

	Questions []AppealQuestion `gorm:"foreignKey:AppealID" json:"questions,omitempty"`
}

func (Appeal) TableName() string {
	return "appeals"
}

// swagger:model AppealQuestion
type AppealQuestion struct {
	BaseModel
	AppealID   uint `gorm:"uniqueIndex:idx_appeal_question;not null" json:"appealId"`
	QuestionID uint `gorm:"uniqueIndex:idx_appeal_question;not null" json:"questionId"`
	// StudentAnswer snapshots what the student claims they answered.
	StudentAnswer string       `gorm:"type:text" json:"studentAnswer"`
	Reason        string       `gorm:"size:1000" json:"reason"`
	Status        AppealStatus `gorm:"type:enum('PENDING','APPROVED','REJECTED');default:'PENDING'" json:"status"`
	Feedback      string       `gorm:"size:1000" json:"feedback,omitempty"`
}

func (AppealQuestion) TableName() string {
	return "appeal_questions"
}
