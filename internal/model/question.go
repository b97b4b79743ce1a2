package model

type QuestionType string

const (
	QuestionMCQ         QuestionType = "MCQ"
	QuestionWritten     QuestionType = "WRITTEN"
	QuestionShortAnswer QuestionType = "SHORT_ANSWER"
)

// swagger:model Question
type Question struct {
	BaseModel
	TestID       uint         `gorm:"index;not null" json:"testId"`
	QuestionText string       `gorm:"type:text;not null" json:"questionText"`
	QuestionType QuestionType `gorm:"type:enum('MCQ','WRITTEN','SHORT_ANSWER');not null" json:"questionType"`
	// CorrectAnswer holds the reference ("model") answer for free-text
	// questions. Empty means the evaluator judges on relevance alone.
	CorrectAnswer string      `gorm:"type:text" json:"correctAnswer,omitempty"`
	Points        int         `gorm:"default:1" json:"points"`
	Order         int         `gorm:"default:0" json:"order"`
	Options       []MCQOption `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// CorrectOption returns the option flagged correct, or nil for
// free-text questions.
func (q *Question) CorrectOption() *MCQOption {
	for i := range q.Options {
		if q.Options[i].IsCorrect {
			return &q.Options[i]
		}
	}
	return nil
}

// swagger:model MCQOption
type MCQOption struct {
	BaseModel
	QuestionID uint   `gorm:"index;not null" json:"questionId"`
	OptionText string `gorm:"type:text;not null" json:"optionText"`
	IsCorrect  bool   `gorm:"default:false" json:"isCorrect"`
}

func (MCQOption) TableName() string {
	return "mcq_options"
}
