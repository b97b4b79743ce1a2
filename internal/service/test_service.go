package service

import (
	"classassess_backend/internal/model"
	"classassess_backend/internal/repository"
	"classassess_backend/internal/util"
	"classassess_backend/pkg/logger"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TestService owns the lecturer-facing test lifecycle: authoring,
// scheduling, cancellation, and the background sweep that completes
// expired tests.
type TestService struct {
	Tests    *repository.TestRepository
	Modules  *repository.ModuleRepository
	Users    *repository.UserRepository
	Notifier *NotificationService
}

func NewTestService(
	tests *repository.TestRepository,
	modules *repository.ModuleRepository,
	users *repository.UserRepository,
	notifier *NotificationService,
) *TestService {
	return &TestService{
		Tests:    tests,
		Modules:  modules,
		Users:    users,
		Notifier: notifier,
	}
}

type MCQOptionRequest struct {
	OptionText string `json:"optionText" binding:"required"`
	IsCorrect  bool   `json:"isCorrect"`
}

type QuestionRequest struct {
	QuestionText  string             `json:"questionText" binding:"required"`
	QuestionType  model.QuestionType `json:"questionType" binding:"required,oneof=MCQ WRITTEN SHORT_ANSWER"`
	CorrectAnswer string             `json:"correctAnswer"`
	Points        int                `json:"points" binding:"required,min=1"`
	Options       []MCQOptionRequest `json:"options"`
}

type CreateTestRequest struct {
	Title           string            `json:"title" binding:"required"`
	Description     string            `json:"description"`
	ModuleID        uint              `json:"moduleId"`
	DurationMinutes int               `json:"durationMinutes" binding:"required,min=1"`
	StartTime       time.Time         `json:"startTime" binding:"required"`
	EndTime         time.Time         `json:"endTime" binding:"required"`
	Questions       []QuestionRequest `json:"questions" binding:"required,min=1"`
}

type UpdateTestRequest struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	DurationMinutes int       `json:"durationMinutes"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
}

func (s *TestService) CreateTest(lecturerID uint, req CreateTestRequest) (*model.Test, error) {
	test := &model.Test{
		Title:           req.Title,
		Description:     req.Description,
		ModuleID:        req.ModuleID,
		LecturerID:      lecturerID,
		DurationMinutes: req.DurationMinutes,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Status:          model.TestActive,
	}

	for i, qr := range req.Questions {
		q, err := buildQuestion(qr, i)
		if err != nil {
			return nil, err
		}
		test.Questions = append(test.Questions, *q)
	}

	if err := s.Tests.CreateTest(test); err != nil {
		return nil, err
	}

	logger.Log.Info("test created",
		zap.Uint("testId", test.ID),
		zap.Uint("lecturerId", lecturerID),
		zap.Int("questions", len(test.Questions)))
	return test, nil
}

// UpdateTest edits scheduling metadata. Edits are refused once the
// window has opened.
func (s *TestService) UpdateTest(lecturerID, testID uint, req UpdateTestRequest) (*model.Test, error) {
	test, err := s.loadOwnedTest(lecturerID, testID)
	if err != nil {
		return nil, err
	}
	if test.WindowOpen(time.Now()) {
		return nil, util.ErrTestAlreadyStarted
	}

	if req.Title != "" {
		test.Title = req.Title
	}
	if req.Description != "" {
		test.Description = req.Description
	}
	if req.DurationMinutes > 0 {
		test.DurationMinutes = req.DurationMinutes
	}
	if !req.StartTime.IsZero() {
		test.StartTime = req.StartTime
	}
	if !req.EndTime.IsZero() {
		test.EndTime = req.EndTime
	}

	if err := s.Tests.Update(test); err != nil {
		return nil, err
	}
	return test, nil
}

func (s *TestService) AddQuestion(lecturerID, testID uint, req QuestionRequest) (*model.Question, error) {
	test, err := s.loadOwnedTest(lecturerID, testID)
	if err != nil {
		return nil, err
	}
	if test.WindowOpen(time.Now()) {
		return nil, util.ErrTestAlreadyStarted
	}

	q, err := buildQuestion(req, len(test.Questions))
	if err != nil {
		return nil, err
	}
	q.TestID = test.ID
	if err := s.Tests.CreateQuestion(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *TestService) DeleteQuestion(lecturerID, testID, questionID uint) error {
	test, err := s.loadOwnedTest(lecturerID, testID)
	if err != nil {
		return err
	}
	if test.WindowOpen(time.Now()) {
		return util.ErrTestAlreadyStarted
	}

	q, err := s.Tests.FindQuestionByID(questionID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && q.TestID != test.ID) {
		return util.ErrQuestionNotFound
	}
	if err != nil {
		return err
	}
	return s.Tests.DeleteQuestion(q)
}

// CancelTest moves an ACTIVE test to CANCELLED before its window opens
// and notifies every student holding a submission. CANCELLED is
// terminal.
func (s *TestService) CancelTest(lecturerID, testID uint) error {
	test, err := s.loadOwnedTest(lecturerID, testID)
	if err != nil {
		return err
	}
	if test.Status == model.TestCancelled {
		return util.ErrTestCancelled
	}
	if test.Status != model.TestActive || test.WindowOpen(time.Now()) {
		return util.ErrTestAlreadyStarted
	}

	if err := s.Tests.UpdateStatus(test.ID, model.TestCancelled); err != nil {
		return err
	}
	test.Status = model.TestCancelled

	students, err := s.Users.ListStudentsBySubmittedTest(test.ID)
	if err != nil {
		logger.Log.Warn("cancellation fan-out lookup failed", zap.Uint("testId", test.ID), zap.Error(err))
		return nil
	}
	s.Notifier.TestCancelled(test, students)

	logger.Log.Info("test cancelled", zap.Uint("testId", test.ID), zap.Int("notified", len(students)))
	return nil
}

func (s *TestService) GetTest(lecturerID, testID uint) (*model.Test, error) {
	return s.loadOwnedTest(lecturerID, testID)
}

// GetTestForStudent returns the test with all answer-revealing fields
// stripped from the questions.
func (s *TestService) GetTestForStudent(testID uint) (*model.Test, error) {
	test, err := s.Tests.FindByID(testID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrTestNotFound
	}
	if err != nil {
		return nil, err
	}
	if test.Status == model.TestCancelled {
		return nil, util.ErrTestCancelled
	}

	for i := range test.Questions {
		test.Questions[i].CorrectAnswer = ""
		for j := range test.Questions[i].Options {
			test.Questions[i].Options[j].IsCorrect = false
		}
	}
	return test, nil
}

func (s *TestService) ListByLecturer(lecturerID uint) ([]model.Test, error) {
	return s.Tests.ListByLecturer(lecturerID)
}

func (s *TestService) ListAvailable() ([]model.Test, error) {
	return s.Tests.ListActiveForStudents(time.Now())
}

// CompleteExpiredTests is the periodic sweep that flips ACTIVE tests
// past their end time to COMPLETED.
func (s *TestService) CompleteExpiredTests() {
	n, err := s.Tests.CompleteExpired(time.Now())
	if err != nil {
		logger.Log.Error("expired test sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		logger.Log.Info("expired tests completed", zap.Int64("count", n))
	}
}

type CreateModuleRequest struct {
	Code        string `json:"code" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

func (s *TestService) CreateModule(lecturerID uint, req CreateModuleRequest) (*model.Module, error) {
	m := &model.Module{
		Code:        req.Code,
		Title:       req.Title,
		Description: req.Description,
		LecturerID:  lecturerID,
	}
	if err := s.Modules.Create(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *TestService) ListModules(lecturerID uint) ([]model.Module, error) {
	return s.Modules.ListByLecturer(lecturerID)
}

func (s *TestService) loadOwnedTest(lecturerID, testID uint) (*model.Test, error) {
	test, err := s.Tests.FindByID(testID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrTestNotFound
	}
	if err != nil {
		return nil, err
	}
	if test.LecturerID != lecturerID {
		return nil, util.ErrPermissionDenied
	}
	return test, nil
}

// buildQuestion validates and assembles one question. MCQ questions
// must carry exactly one correct option.
func buildQuestion(req QuestionRequest, order int) (*model.Question, error) {
	q := &model.Question{
		QuestionText:  req.QuestionText,
		QuestionType:  req.QuestionType,
		CorrectAnswer: req.CorrectAnswer,
		Points:        req.Points,
		Order:         order,
	}

	if req.QuestionType == model.QuestionMCQ {
		correct := 0
		for _, opt := range req.Options {
			if opt.IsCorrect {
				correct++
			}
			q.Options = append(q.Options, model.MCQOption{
				OptionText: opt.OptionText,
				IsCorrect:  opt.IsCorrect,
			})
		}
		if correct != 1 {
			return nil, util.ErrInvalidQuestion
		}
	}
	return q, nil
}
