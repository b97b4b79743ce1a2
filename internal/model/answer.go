package model

import "time"

// swagger:model Answer
type Answer struct {
	BaseModel
	SubmissionID uint `gorm:"uniqueIndex:idx_submission_question;not null" json:"submissionId"`
	QuestionID   uint `gorm:"uniqueIndex:idx_submission_question;not null" json:"questionId"`
	// AnswerText is the raw submitted value: the selected option ID for
	// MCQ questions, free text otherwise.
	AnswerText string `gorm:"type:text" json:"answerText"`
	// Score is points earned on this question, in [0, question.points].
	Score      float64 `gorm:"default:0" json:"score"`
	AIFeedback string  `gorm:"type:text" json:"aiFeedback,omitempty"`

	// Appeal sub-state, only populated while an appeal touches this
	// answer. Kept as varchar so untouched answers store the empty string.
	AppealStatus       AppealStatus `gorm:"size:20" json:"appealStatus,omitempty"`
	AppealResponse     string       `gorm:"size:1000" json:"appealResponse,omitempty"`
	AppealResolvedDate *time.Time   `json:"appealResolvedDate,omitempty"`
	OldScore           *float64     `json:"oldScore,omitempty"`
}

func (Answer) TableName() string {
	return "answers"
}
