package service

import (
	"classassess_backend/internal/model"
	"classassess_backend/internal/repository"
	"classassess_backend/internal/util"
	"errors"
	"time"

	"gorm.io/gorm"
)

// writtenAnswerExplanation replaces the reference answer in result
// views for free-text questions that have none.
const writtenAnswerExplanation = "This question is evaluated based on relevance, accuracy, and completeness rather than matching a specific answer."

// SubmissionService serves the read side: graded result views for
// students and submission listings for lecturers.
type SubmissionService struct {
	Submissions *repository.SubmissionRepository
	Answers     *repository.AnswerRepository
	Tests       *repository.TestRepository
	Appeals     *repository.AppealRepository
}

func NewSubmissionService(
	submissions *repository.SubmissionRepository,
	answers *repository.AnswerRepository,
	tests *repository.TestRepository,
	appeals *repository.AppealRepository,
) *SubmissionService {
	return &SubmissionService{
		Submissions: submissions,
		Answers:     answers,
		Tests:       tests,
		Appeals:     appeals,
	}
}

// AnswerResult is one graded question in the student's result view,
// with the correct answer revealed.
type AnswerResult struct {
	QuestionID      uint               `json:"questionId"`
	QuestionText    string             `json:"questionText"`
	QuestionType    model.QuestionType `json:"questionType"`
	Points          int                `json:"points"`
	AnswerText      string             `json:"answerText"`
	Score           float64            `json:"score"`
	AIFeedback      string             `json:"aiFeedback,omitempty"`
	CorrectAnswer   string             `json:"correctAnswer,omitempty"`
	CorrectOptionID uint               `json:"correctOptionId,omitempty"`
	Options         []model.MCQOption  `json:"options,omitempty"`

	AppealStatus   model.AppealStatus `json:"appealStatus,omitempty"`
	AppealResponse string             `json:"appealResponse,omitempty"`
	OldScore       *float64           `json:"oldScore,omitempty"`
}

type SubmissionResult struct {
	SubmissionID uint                   `json:"submissionId"`
	TestID       uint                   `json:"testId"`
	TestTitle    string                 `json:"testTitle"`
	TotalScore   float64                `json:"totalScore"`
	Status       model.SubmissionStatus `json:"status"`
	SubmittedAt  *time.Time             `json:"submittedAt,omitempty"`
	Answers      []AnswerResult         `json:"answers"`
	Appeal       *model.Appeal          `json:"appeal,omitempty"`
}

// GetResults builds the detailed graded view of a submission. Students
// see only their own; lecturers only submissions against their tests.
func (s *SubmissionService) GetResults(userID uint, role model.UserRole, submissionID uint) (*SubmissionResult, error) {
	sub, err := s.Submissions.FindByID(submissionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}

	test, err := s.Tests.FindByID(sub.TestID)
	if err != nil {
		return nil, err
	}
	if err := authorizeSubmissionRead(userID, role, sub, test); err != nil {
		return nil, err
	}
	if sub.Status != model.SubmissionGraded {
		return nil, util.ErrSubmissionNotGraded
	}

	answers, err := s.Answers.ListBySubmission(sub.ID)
	if err != nil {
		return nil, err
	}
	byQuestion := make(map[uint]*model.Answer, len(answers))
	for i := range answers {
		byQuestion[answers[i].QuestionID] = &answers[i]
	}

	result := &SubmissionResult{
		SubmissionID: sub.ID,
		TestID:       test.ID,
		TestTitle:    test.Title,
		TotalScore:   sub.TotalScore,
		Status:       sub.Status,
		SubmittedAt:  sub.SubmittedAt,
	}

	for i := range test.Questions {
		q := &test.Questions[i]
		ar := AnswerResult{
			QuestionID:   q.ID,
			QuestionText: q.QuestionText,
			QuestionType: q.QuestionType,
			Points:       q.Points,
		}

		if a := byQuestion[q.ID]; a != nil {
			ar.AnswerText = a.AnswerText
			ar.Score = a.Score
			ar.AIFeedback = a.AIFeedback
			ar.AppealStatus = a.AppealStatus
			ar.AppealResponse = a.AppealResponse
			ar.OldScore = a.OldScore
		}

		switch q.QuestionType {
		case model.QuestionMCQ:
			ar.Options = q.Options
			if correct := q.CorrectOption(); correct != nil {
				ar.CorrectOptionID = correct.ID
				ar.CorrectAnswer = correct.OptionText
			}
		default:
			if q.CorrectAnswer != "" {
				ar.CorrectAnswer = q.CorrectAnswer
			} else {
				ar.CorrectAnswer = writtenAnswerExplanation
			}
		}

		result.Answers = append(result.Answers, ar)
	}

	if appeal, err := s.Appeals.FindLatestBySubmission(sub.ID); err == nil {
		result.Appeal = appeal
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return result, nil
}

func (s *SubmissionService) ListByStudent(studentID uint, status model.SubmissionStatus) ([]model.Submission, error) {
	return s.Submissions.ListByStudent(studentID, status)
}

// ListByTest lists all submissions against one of the lecturer's tests.
func (s *SubmissionService) ListByTest(lecturerID, testID uint) ([]model.Submission, error) {
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
	return s.Submissions.ListByTest(testID)
}

func authorizeSubmissionRead(userID uint, role model.UserRole, sub *model.Submission, test *model.Test) error {
	switch role {
	case model.Admin:
		return nil
	case model.Student:
		if sub.StudentID == userID {
			return nil
		}
	case model.Lecturer:
		if test.LecturerID == userID {
			return nil
		}
	}
	return util.ErrPermissionDenied
}
