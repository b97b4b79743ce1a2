package model

// Module is the course unit a test belongs to. Enrollment bookkeeping
// lives outside the grading engine; the code only needs the owner and
// the display fields for notifications.
// swagger:model Module
type Module struct {
	BaseModel
	Code        string `gorm:"size:20;unique;not null" json:"code"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	LecturerID  uint   `gorm:"index;not null" json:"lecturerId"`
}

func (Module) TableName() string {
	return "modules"
}
