package repository

import (
	"classassess_backend/internal/model"

	"gorm.io/gorm"
)

type ModuleRepository struct {
	DB *gorm.DB
}

func NewModuleRepository(db *gorm.DB) *ModuleRepository {
	return &ModuleRepository{DB: db}
}

func (r *ModuleRepository) Create(m *model.Module) error {
	return r.DB.Create(m).Error
}

func (r *ModuleRepository) FindByID(id uint) (*model.Module, error) {
	var m model.Module
	err := r.DB.First(&m, id).Error
	return &m, err
}

func (r *ModuleRepository) ListByLecturer(lecturerID uint) ([]model.Module, error) {
	var ms []model.Module
	err := r.DB.Where("lecturer_id = ?", lecturerID).Order("code asc").Find(&ms).Error
	return ms, err
}
