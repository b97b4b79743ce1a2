package model

import "time"

type SubmissionStatus string

const (
	SubmissionInProgress SubmissionStatus = "IN_PROGRESS"
	SubmissionSubmitted  SubmissionStatus = "SUBMITTED"
	SubmissionGraded     SubmissionStatus = "GRADED"
)

// swagger:model Submission
type Submission struct {
	BaseModel
	TestID    uint `gorm:"index;not null" json:"testId"`
	StudentID uint `gorm:"index;not null" json:"studentId"`
	// TotalScore is a percentage in [0,100], always derived from the
	// answers' point totals except for an explicit appeal override.
	TotalScore  float64          `gorm:"default:0" json:"totalScore"`
	Status      SubmissionStatus `gorm:"type:enum('IN_PROGRESS','SUBMITTED','GRADED');default:'IN_PROGRESS'" json:"status"`
	SubmittedAt *time.Time       `json:"submittedAt,omitempty"`
	Answers     []Answer         `gorm:"foreignKey:SubmissionID" json:"answers,omitempty"`
}

func (Submission) TableName() string {
	return "submissions"
}
