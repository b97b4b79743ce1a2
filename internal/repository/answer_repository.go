package repository

import (
	"classassess_backend/internal/model"

	"gorm.io/gorm"
)

type AnswerRepository struct {
	DB *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) *AnswerRepository {
	return &AnswerRepository{DB: db}
}

func (r *AnswerRepository) Save(a *model.Answer) error {
	return r.DB.Save(a).Error
}

// FindBySubmissionAndQuestion is the uniqueness lookup: at most one
// answer exists per (submission, question) pair.
func (r *AnswerRepository) FindBySubmissionAndQuestion(submissionID, questionID uint) (*model.Answer, error) {
	var a model.Answer
	err := r.DB.Where("submission_id = ? AND question_id = ?", submissionID, questionID).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AnswerRepository) ListBySubmission(submissionID uint) ([]model.Answer, error) {
	var answers []model.Answer
	err := r.DB.Where("submission_id = ?", submissionID).Order("question_id asc").Find(&answers).Error
	return answers, err
}
