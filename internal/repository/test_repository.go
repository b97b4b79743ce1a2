package repository

import (
	"classassess_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type TestRepository struct {
	DB *gorm.DB
}

func NewTestRepository(db *gorm.DB) *TestRepository {
	return &TestRepository{DB: db}
}

// CreateTest persists the test with its questions and options in one
// transaction and caches the summed point total on the test row.
func (r *TestRepository) CreateTest(test *model.Test) error {
	total := 0
	for _, q := range test.Questions {
		total += q.Points
	}
	test.TotalPoints = total

	return r.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Create(test).Error
	})
}

func (r *TestRepository) FindByID(id uint) (*model.Test, error) {
	var test model.Test
	err := r.DB.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.order asc, questions.id asc")
		}).
		Preload("Questions.Options").
		First(&test, id).Error
	return &test, err
}

func (r *TestRepository) Update(test *model.Test) error {
	return r.DB.Save(test).Error
}

func (r *TestRepository) UpdateStatus(id uint, status model.TestStatus) error {
	return r.DB.Model(&model.Test{}).Where("id = ?", id).
		Update("status", status).Error
}

func (r *TestRepository) ListByLecturer(lecturerID uint) ([]model.Test, error) {
	var tests []model.Test
	err := r.DB.Where("lecturer_id = ?", lecturerID).
		Order("start_time desc").Find(&tests).Error
	return tests, err
}

// ListActiveForStudents returns tests whose window is open or upcoming.
func (r *TestRepository) ListActiveForStudents(now time.Time) ([]model.Test, error) {
	var tests []model.Test
	err := r.DB.Where("status = ? AND end_time > ?", model.TestActive, now).
		Order("start_time asc").Find(&tests).Error
	return tests, err
}

// CompleteExpired flips ACTIVE tests whose window has closed to
// COMPLETED. Returns the number of rows changed.
func (r *TestRepository) CompleteExpired(now time.Time) (int64, error) {
	res := r.DB.Model(&model.Test{}).
		Where("status = ? AND end_time <= ?", model.TestActive, now).
		Update("status", model.TestCompleted)
	return res.RowsAffected, res.Error
}

func (r *TestRepository) CreateQuestion(q *model.Question) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(q).Error; err != nil {
			return err
		}
		return tx.Model(&model.Test{}).Where("id = ?", q.TestID).
			Update("total_points", gorm.Expr("total_points + ?", q.Points)).Error
	})
}

func (r *TestRepository) FindQuestionByID(id uint) (*model.Question, error) {
	var q model.Question
	err := r.DB.Preload("Options").First(&q, id).Error
	return &q, err
}

func (r *TestRepository) DeleteQuestion(q *model.Question) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", q.ID).Delete(&model.MCQOption{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.Question{}, q.ID).Error; err != nil {
			return err
		}
		return tx.Model(&model.Test{}).Where("id = ?", q.TestID).
			Update("total_points", gorm.Expr("total_points - ?", q.Points)).Error
	})
}
