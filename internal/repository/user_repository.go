package repository

import (
	"classassess_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("email = ?", email).First(&user).Error
	return &user, err
}

func (r *UserRepository) UpdateLastLogin(userID uint) error {
	return r.DB.Model(&model.User{}).Where("id = ?", userID).
		Update("last_login", time.Now()).Error
}

// ListStudentsBySubmittedTest returns the students holding a submission
// against the given test, used for cancellation fan-out.
func (r *UserRepository) ListStudentsBySubmittedTest(testID uint) ([]model.User, error) {
	var users []model.User
	err := r.DB.
		Joins("JOIN submissions s ON s.student_id = users.id").
		Where("s.test_id = ? AND s.deleted_at IS NULL", testID).
		Find(&users).Error
	return users, err
}
