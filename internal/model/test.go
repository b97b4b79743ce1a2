package model

import "time"

type TestStatus string

const (
	TestActive    TestStatus = "ACTIVE"
	TestCompleted TestStatus = "COMPLETED"
	TestCancelled TestStatus = "CANCELLED"
)

// swagger:model Test
type Test struct {
	BaseModel
	Title           string     `gorm:"size:255;not null" json:"title"`
	Description     string     `gorm:"type:text" json:"description"`
	ModuleID        uint       `gorm:"index" json:"moduleId"`
	LecturerID      uint       `gorm:"index;not null" json:"lecturerId"`
	DurationMinutes int        `gorm:"not null" json:"durationMinutes"`
	StartTime       time.Time  `gorm:"not null" json:"startTime"`
	EndTime         time.Time  `gorm:"not null" json:"endTime"`
	TotalPoints     int        `gorm:"default:0" json:"totalPoints"`
	Status          TestStatus `gorm:"type:enum('ACTIVE','COMPLETED','CANCELLED');default:'ACTIVE'" json:"status"`
	Questions       []Question `gorm:"foreignKey:TestID" json:"questions,omitempty"`
}

func (Test) TableName() string {
	return "tests"
}

// WindowOpen reports whether the scheduling window has started. Question
// edits and cancellation are disallowed from this moment on.
func (t *Test) WindowOpen(now time.Time) bool {
	return !now.Before(t.StartTime)
}

// WindowClosed reports whether the scheduling window has ended.
func (t *Test) WindowClosed(now time.Time) bool {
	return now.After(t.EndTime)
}
