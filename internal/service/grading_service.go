package service

import (
	"classassess_backend/internal/model"
	"classassess_backend/internal/repository"
	"classassess_backend/internal/util"
	"classassess_backend/pkg/logger"
	"classassess_backend/pkg/monitoring"
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GradingService owns the student-facing submission lifecycle: saving
// in-progress answers and the single submit-and-grade transition.
type GradingService struct {
	Tests       *repository.TestRepository
	Submissions *repository.SubmissionRepository
	Answers     *repository.AnswerRepository
	Evaluator   Evaluator
	Notifier    *NotificationService
}

func NewGradingService(
	tests *repository.TestRepository,
	submissions *repository.SubmissionRepository,
	answers *repository.AnswerRepository,
	evaluator Evaluator,
	notifier *NotificationService,
) *GradingService {
	return &GradingService{
		Tests:       tests,
		Submissions: submissions,
		Answers:     answers,
		Evaluator:   evaluator,
		Notifier:    notifier,
	}
}

// SaveProgress upserts draft answers without scoring anything. It may
// be called any number of times while the submission is IN_PROGRESS.
func (s *GradingService) SaveProgress(ctx context.Context, studentID, testID uint, answers map[uint]string) (*model.Submission, error) {
	test, err := s.loadOpenTest(testID, time.Now())
	if err != nil {
		return nil, err
	}

	sub, err := s.findOrCreateSubmission(test, studentID)
	if err != nil {
		return nil, err
	}
	if sub.Status != model.SubmissionInProgress {
		return nil, util.ErrTestAlreadySubmitted
	}

	questionIDs := make(map[uint]bool, len(test.Questions))
	for i := range test.Questions {
		questionIDs[test.Questions[i].ID] = true
	}

	for qid, value := range answers {
		if !questionIDs[qid] {
			return nil, util.ErrQuestionNotFound
		}
		answer, err := s.Answers.FindBySubmissionAndQuestion(sub.ID, qid)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			answer = &model.Answer{SubmissionID: sub.ID, QuestionID: qid}
		} else if err != nil {
			return nil, err
		}
		answer.AnswerText = value
		if err := s.Answers.Save(answer); err != nil {
			return nil, err
		}
	}

	return sub, nil
}

// GradeSubmission is the one-shot submit operation: every question on
// the test is graded (unanswered ones as empty), the percentage is
// aggregated, and the submission lands as GRADED in a single
// transactional write. A submission past IN_PROGRESS cannot be
// submitted again.
func (s *GradingService) GradeSubmission(ctx context.Context, studentID, testID uint, answers map[uint]string) (*model.Submission, error) {
	test, err := s.loadOpenTest(testID, time.Now())
	if err != nil {
		return nil, err
	}

	sub, err := s.findOrCreateSubmission(test, studentID)
	if err != nil {
		return nil, err
	}
	if sub.Status != model.SubmissionInProgress {
		return nil, util.ErrTestAlreadySubmitted
	}

	existing, err := s.Answers.ListBySubmission(sub.ID)
	if err != nil {
		return nil, err
	}
	byQuestion := make(map[uint]*model.Answer, len(existing))
	for i := range existing {
		byQuestion[existing[i].QuestionID] = &existing[i]
	}

	graded := make([]model.Answer, 0, len(test.Questions))
	for i := range test.Questions {
		q := &test.Questions[i]

		value, submitted := answers[q.ID]
		answer := byQuestion[q.ID]
		if answer == nil {
			answer = &model.Answer{SubmissionID: sub.ID, QuestionID: q.ID}
		}
		if submitted {
			answer.AnswerText = value
		}

		score, feedback := ScoreAnswer(ctx, q, answer.AnswerText, s.Evaluator)
		answer.Score = score
		answer.AIFeedback = feedback
		graded = append(graded, *answer)
	}

	now := time.Now()
	sub.TotalScore = AggregateScore(graded, test.Questions)
	sub.Status = model.SubmissionGraded
	sub.SubmittedAt = &now

	if err := s.Submissions.SaveGraded(sub, graded); err != nil {
		return nil, err
	}

	monitoring.GradedSubmissions.Inc()
	logger.Log.Info("submission graded",
		zap.Uint("submissionId", sub.ID),
		zap.Uint("testId", test.ID),
		zap.Uint("studentId", studentID),
		zap.Float64("totalScore", sub.TotalScore))

	s.Notifier.SubmissionGraded(sub, test)
	return sub, nil
}

// loadOpenTest fetches the test and enforces that its window currently
// accepts answers.
func (s *GradingService) loadOpenTest(testID uint, now time.Time) (*model.Test, error) {
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
	if !test.WindowOpen(now) {
		return nil, util.ErrTestWindowNotOpen
	}
	if test.WindowClosed(now) || test.Status == model.TestCompleted {
		return nil, util.ErrTestWindowClosed
	}
	return test, nil
}

func (s *GradingService) findOrCreateSubmission(test *model.Test, studentID uint) (*model.Submission, error) {
	sub, err := s.Submissions.FindByTestAndStudent(test.ID, studentID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sub = &model.Submission{
		TestID:    test.ID,
		StudentID: studentID,
		Status:    model.SubmissionInProgress,
	}
	if err := s.Submissions.Create(sub); err != nil {
		return nil, err
	}
	return sub, nil
}
