package repository

import (
	"classassess_backend/internal/model"

	"gorm.io/gorm"
)

type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

func (r *SubmissionRepository) Create(s *model.Submission) error {
	return r.DB.Create(s).Error
}

func (r *SubmissionRepository) Save(s *model.Submission) error {
	return r.DB.Save(s).Error
}

func (r *SubmissionRepository) FindByID(id uint) (*model.Submission, error) {
	var s model.Submission
	err := r.DB.First(&s, id).Error
	return &s, err
}

func (r *SubmissionRepository) FindByTestAndStudent(testID, studentID uint) (*model.Submission, error) {
	var s model.Submission
	err := r.DB.Where("test_id = ? AND student_id = ?", testID, studentID).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubmissionRepository) ListByStudent(studentID uint, status model.SubmissionStatus) ([]model.Submission, error) {
	var ss []model.Submission
	q := r.DB.Where("student_id = ?", studentID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("submitted_at desc").Find(&ss).Error
	return ss, err
}

func (r *SubmissionRepository) ListByTest(testID uint) ([]model.Submission, error) {
	var ss []model.Submission
	err := r.DB.Where("test_id = ?", testID).Order("created_at desc").Find(&ss).Error
	return ss, err
}

// SaveGraded writes the graded submission together with every answer as
// one atomic unit; either the whole grade lands or none of it does.
func (r *SubmissionRepository) SaveGraded(s *model.Submission, answers []model.Answer) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		for i := range answers {
			if err := tx.Save(&answers[i]).Error; err != nil {
				return err
			}
		}
		return tx.Save(s).Error
	})
}
