package repository

import (
	"classassess_backend/internal/model"
	"errors"

	"gorm.io/gorm"
)

// ErrStaleAppeal signals that the compare-and-swap close of an appeal
// found it already out of PENDING. The caller maps it to the Conflict
// taxonomy.
var ErrStaleAppeal = errors.New("appeal no longer pending")

type AppealRepository struct {
	DB *gorm.DB
}

func NewAppealRepository(db *gorm.DB) *AppealRepository {
	return &AppealRepository{DB: db}
}

// Create persists the appeal and its disputed questions atomically.
func (r *AppealRepository) Create(appeal *model.Appeal) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Create(appeal).Error
	})
}

func (r *AppealRepository) FindByID(id uint) (*model.Appeal, error) {
	var appeal model.Appeal
	err := r.DB.Preload("Questions").First(&appeal, id).Error
	return &appeal, err
}

// FindOpenBySubmission returns the PENDING appeal on a submission, if any.
func (r *AppealRepository) FindOpenBySubmission(submissionID uint) (*model.Appeal, error) {
	var appeal model.Appeal
	err := r.DB.Where("submission_id = ? AND status = ?", submissionID, model.AppealPending).
		First(&appeal).Error
	if err != nil {
		return nil, err
	}
	return &appeal, nil
}

func (r *AppealRepository) FindLatestBySubmission(submissionID uint) (*model.Appeal, error) {
	var appeal model.Appeal
	err := r.DB.Where("submission_id = ?", submissionID).
		Order("created_at desc").First(&appeal).Error
	if err != nil {
		return nil, err
	}
	return &appeal, nil
}

func (r *AppealRepository) ListPendingByLecturer(lecturerID uint) ([]model.Appeal, error) {
	var appeals []model.Appeal
	err := r.DB.Preload("Questions").
		Joins("JOIN tests t ON t.id = appeals.test_id").
		Where("t.lecturer_id = ? AND appeals.status = ?", lecturerID, model.AppealPending).
		Order("appeals.created_at asc").
		Find(&appeals).Error
	return appeals, err
}

func (r *AppealRepository) CountPendingByLecturer(lecturerID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Appeal{}).
		Joins("JOIN tests t ON t.id = appeals.test_id").
		Where("t.lecturer_id = ? AND appeals.status = ?", lecturerID, model.AppealPending).
		Count(&count).Error
	return count, err
}

// ResolutionWrite carries the full mutated appeal graph to be persisted
// as one unit of work.
type ResolutionWrite struct {
	Appeal          *model.Appeal
	AppealQuestions []model.AppealQuestion
	Submission      *model.Submission
	Answers         []model.Answer
	// Closing marks the write that takes the appeal out of PENDING; it
	// is guarded by a compare-and-swap on the status column so that two
	// racing resolutions cannot both close the same appeal.
	Closing bool
}

func (r *AppealRepository) SaveResolution(w *ResolutionWrite) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if w.Closing {
			res := tx.Model(&model.Appeal{}).
				Where("id = ? AND status = ?", w.Appeal.ID, model.AppealPending).
				Updates(map[string]interface{}{
					"status":         w.Appeal.Status,
					"feedback":       w.Appeal.Feedback,
					"updated_score":  w.Appeal.UpdatedScore,
					"resolved_by_id": w.Appeal.ResolvedByID,
					"resolved_at":    w.Appeal.ResolvedAt,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrStaleAppeal
			}
		} else if w.Appeal != nil {
			if err := tx.Model(&model.Appeal{}).
				Where("id = ?", w.Appeal.ID).
				Update("updated_score", w.Appeal.UpdatedScore).Error; err != nil {
				return err
			}
		}

		for i := range w.AppealQuestions {
			if err := tx.Save(&w.AppealQuestions[i]).Error; err != nil {
				return err
			}
		}
		for i := range w.Answers {
			if err := tx.Save(&w.Answers[i]).Error; err != nil {
				return err
			}
		}
		if w.Submission != nil {
			if err := tx.Save(w.Submission).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
