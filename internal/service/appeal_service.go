package service

import (
	"classassess_backend/internal/model"
	"classassess_backend/internal/repository"
	"classassess_backend/internal/util"
	"classassess_backend/pkg/logger"
	"classassess_backend/pkg/monitoring"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// autoCloseFeedback is stamped on an appeal closed by per-question
// review, where the individual verdicts carry the detail.
const autoCloseFeedback = "Multiple questions in this appeal were reviewed. See individual feedback for details."

const pendingCountTTL = 5 * time.Minute

// AppealService owns appeal submission and the three lecturer
// resolution modes. All score mutation goes through the pure apply
// helpers below; persistence is a single transactional write guarded
// by a compare-and-swap on the appeal status.
type AppealService struct {
	Appeals     *repository.AppealRepository
	Submissions *repository.SubmissionRepository
	Answers     *repository.AnswerRepository
	Tests       *repository.TestRepository
	Notifier    *NotificationService
	Redis       *redis.Client
}

func NewAppealService(
	appeals *repository.AppealRepository,
	submissions *repository.SubmissionRepository,
	answers *repository.AnswerRepository,
	tests *repository.TestRepository,
	notifier *NotificationService,
	rdb *redis.Client,
) *AppealService {
	return &AppealService{
		Appeals:     appeals,
		Submissions: submissions,
		Answers:     answers,
		Tests:       tests,
		Notifier:    notifier,
		Redis:       rdb,
	}
}

// AppealQuestionRequest disputes one question of the submission.
type AppealQuestionRequest struct {
	QuestionID    uint   `json:"questionId" binding:"required"`
	StudentAnswer string `json:"studentAnswer"`
	Reason        string `json:"reason" binding:"required"`
}

type AppealRequest struct {
	RequestedScore float64                 `json:"requestedScore"`
	Reason         string                  `json:"reason" binding:"required"`
	Questions      []AppealQuestionRequest `json:"questions" binding:"required,min=1"`
}

// ResolveQuestionRequest settles a single disputed question. An
// approval without a replacement score counts as a rejection.
type ResolveQuestionRequest struct {
	Approved      bool     `json:"approved"`
	Feedback      string   `json:"feedback"`
	QuestionScore *float64 `json:"questionScore"`
}

// ResolveBatchRequest applies one uniform outcome to a set of disputed
// questions and closes the appeal immediately.
type ResolveBatchRequest struct {
	Approved       bool             `json:"approved"`
	Feedback       string           `json:"feedback"`
	QuestionScores map[uint]float64 `json:"questionScores" binding:"required,min=1"`
}

// ResolveWholeRequest settles the appeal in one stroke. An approved
// resolution with NewScore set overrides the submission total directly,
// bypassing aggregation.
type ResolveWholeRequest struct {
	Approved bool     `json:"approved"`
	Feedback string   `json:"feedback"`
	NewScore *float64 `json:"newScore"`
}

// SubmitAppeal opens an appeal on the student's own graded submission.
// At most one PENDING appeal may exist per submission; the current
// total score is snapshotted as the appeal's original score.
func (s *AppealService) SubmitAppeal(ctx context.Context, studentID, submissionID uint, req AppealRequest) (*model.Appeal, error) {
	sub, err := s.Submissions.FindByID(submissionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}
	if sub.StudentID != studentID {
		return nil, util.ErrPermissionDenied
	}
	if sub.Status != model.SubmissionGraded {
		return nil, util.ErrSubmissionNotGraded
	}

	if _, err := s.Appeals.FindOpenBySubmission(sub.ID); err == nil {
		return nil, util.ErrAppealPending
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	test, err := s.Tests.FindByID(sub.TestID)
	if err != nil {
		return nil, err
	}
	questionIDs := make(map[uint]bool, len(test.Questions))
	for i := range test.Questions {
		questionIDs[test.Questions[i].ID] = true
	}

	appeal := &model.Appeal{
		TestID:         sub.TestID,
		SubmissionID:   sub.ID,
		OriginalScore:  sub.TotalScore,
		RequestedScore: req.RequestedScore,
		Reason:         req.Reason,
		Status:         model.AppealPending,
	}
	for _, q := range req.Questions {
		if !questionIDs[q.QuestionID] {
			return nil, util.ErrQuestionNotFound
		}
		appeal.Questions = append(appeal.Questions, model.AppealQuestion{
			QuestionID:    q.QuestionID,
			StudentAnswer: q.StudentAnswer,
			Reason:        q.Reason,
			Status:        model.AppealPending,
		})
	}

	if err := s.Appeals.Create(appeal); err != nil {
		return nil, err
	}

	s.bumpPendingCount(ctx, test.LecturerID, 1)
	s.Notifier.AppealCreated(appeal, test)

	logger.Log.Info("appeal submitted",
		zap.Uint("appealId", appeal.ID),
		zap.Uint("submissionId", sub.ID),
		zap.Int("questions", len(appeal.Questions)))
	return appeal, nil
}

// ResolveQuestion settles one disputed question. When the last pending
// question is settled the appeal auto-closes on a strict majority of
// approvals.
func (s *AppealService) ResolveQuestion(ctx context.Context, lecturerID, appealID, questionID uint, req ResolveQuestionRequest) (*model.Appeal, error) {
	st, err := s.loadResolutionState(lecturerID, appealID)
	if err != nil {
		return nil, err
	}

	write, err := applyQuestionResolution(st, questionID, req, lecturerID, time.Now())
	if err != nil {
		return nil, err
	}

	return s.persistResolution(ctx, st, write)
}

// ResolveBatch applies one uniform approve/reject outcome across the
// given questions and closes the appeal.
func (s *AppealService) ResolveBatch(ctx context.Context, lecturerID, appealID uint, req ResolveBatchRequest) (*model.Appeal, error) {
	st, err := s.loadResolutionState(lecturerID, appealID)
	if err != nil {
		return nil, err
	}

	write, err := applyBatchResolution(st, req, lecturerID, time.Now())
	if err != nil {
		return nil, err
	}

	return s.persistResolution(ctx, st, write)
}

// ResolveWhole settles the appeal as a unit.
func (s *AppealService) ResolveWhole(ctx context.Context, lecturerID, appealID uint, req ResolveWholeRequest) (*model.Appeal, error) {
	st, err := s.loadResolutionState(lecturerID, appealID)
	if err != nil {
		return nil, err
	}

	write := applyWholeResolution(st, req, lecturerID, time.Now())
	return s.persistResolution(ctx, st, write)
}

// GetAppeal returns one appeal, visible to the submission's student and
// the test's lecturer.
func (s *AppealService) GetAppeal(userID uint, role model.UserRole, appealID uint) (*model.Appeal, error) {
	appeal, err := s.Appeals.FindByID(appealID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAppealNotFound
	}
	if err != nil {
		return nil, err
	}

	if role == model.Admin {
		return appeal, nil
	}

	sub, err := s.Submissions.FindByID(appeal.SubmissionID)
	if err != nil {
		return nil, err
	}
	if role == model.Student && sub.StudentID == userID {
		return appeal, nil
	}
	if role == model.Lecturer {
		test, err := s.Tests.FindByID(appeal.TestID)
		if err != nil {
			return nil, err
		}
		if test.LecturerID == userID {
			return appeal, nil
		}
	}
	return nil, util.ErrPermissionDenied
}

func (s *AppealService) ListPending(lecturerID uint) ([]model.Appeal, error) {
	return s.Appeals.ListPendingByLecturer(lecturerID)
}

// CountPending serves the lecturer dashboard badge from Redis, falling
// back to the database on a cache miss.
func (s *AppealService) CountPending(ctx context.Context, lecturerID uint) (int64, error) {
	key := pendingCountKey(lecturerID)
	if s.Redis != nil {
		if n, err := s.Redis.Get(ctx, key).Int64(); err == nil {
			return n, nil
		}
	}

	n, err := s.Appeals.CountPendingByLecturer(lecturerID)
	if err != nil {
		return 0, err
	}
	if s.Redis != nil {
		if err := s.Redis.Set(ctx, key, n, pendingCountTTL).Err(); err != nil {
			logger.Log.Warn("pending appeal count cache write failed", zap.Error(err))
		}
	}
	return n, nil
}

// resolutionState is everything the pure apply helpers operate on.
type resolutionState struct {
	Appeal     *model.Appeal
	Submission *model.Submission
	Test       *model.Test
	Answers    []model.Answer
}

func (s *AppealService) loadResolutionState(lecturerID, appealID uint) (*resolutionState, error) {
	appeal, err := s.Appeals.FindByID(appealID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAppealNotFound
	}
	if err != nil {
		return nil, err
	}

	test, err := s.Tests.FindByID(appeal.TestID)
	if err != nil {
		return nil, err
	}
	if test.LecturerID != lecturerID {
		return nil, util.ErrPermissionDenied
	}
	if appeal.Status != model.AppealPending {
		return nil, util.ErrAppealAlreadyResolved
	}

	sub, err := s.Submissions.FindByID(appeal.SubmissionID)
	if err != nil {
		return nil, err
	}
	answers, err := s.Answers.ListBySubmission(sub.ID)
	if err != nil {
		return nil, err
	}

	return &resolutionState{Appeal: appeal, Submission: sub, Test: test, Answers: answers}, nil
}

func (s *AppealService) persistResolution(ctx context.Context, st *resolutionState, write *repository.ResolutionWrite) (*model.Appeal, error) {
	err := s.Appeals.SaveResolution(write)
	if errors.Is(err, repository.ErrStaleAppeal) {
		return nil, util.ErrAppealAlreadyResolved
	}
	if err != nil {
		return nil, err
	}

	if write.Closing {
		monitoring.AppealResolutions.WithLabelValues(string(st.Appeal.Status)).Inc()
		s.bumpPendingCount(ctx, st.Test.LecturerID, -1)
		s.Notifier.AppealResolved(st.Appeal, st.Test, st.Submission)

		logger.Log.Info("appeal resolved",
			zap.Uint("appealId", st.Appeal.ID),
			zap.String("status", string(st.Appeal.Status)),
			zap.Float64("originalScore", st.Appeal.OriginalScore),
			zap.Float64p("updatedScore", st.Appeal.UpdatedScore))
	}
	return st.Appeal, nil
}

func (s *AppealService) bumpPendingCount(ctx context.Context, lecturerID uint, delta int64) {
	if s.Redis == nil {
		return
	}
	key := pendingCountKey(lecturerID)
	if err := s.Redis.IncrBy(ctx, key, delta).Err(); err != nil {
		logger.Log.Warn("pending appeal counter update failed", zap.Error(err))
		return
	}
	s.Redis.Expire(ctx, key, pendingCountTTL)
}

func pendingCountKey(lecturerID uint) string {
	return fmt.Sprintf("appeals:pending:%d", lecturerID)
}

// applyQuestionResolution settles one disputed question in memory. On
// approval with a replacement score the answer's score is overwritten
// (old value retained) and the submission total re-aggregated; on
// rejection nothing about the score changes. When every disputed
// question has a verdict the appeal closes by strict majority.
func applyQuestionResolution(st *resolutionState, questionID uint, req ResolveQuestionRequest, lecturerID uint, now time.Time) (*repository.ResolutionWrite, error) {
	var aq *model.AppealQuestion
	for i := range st.Appeal.Questions {
		if st.Appeal.Questions[i].QuestionID == questionID {
			aq = &st.Appeal.Questions[i]
			break
		}
	}
	if aq == nil {
		return nil, util.ErrQuestionNotFound
	}

	var answer *model.Answer
	for i := range st.Answers {
		if st.Answers[i].QuestionID == questionID {
			answer = &st.Answers[i]
			break
		}
	}
	if answer == nil {
		return nil, util.ErrAnswerNotFound
	}

	approved := req.Approved && req.QuestionScore != nil
	if approved {
		old := answer.Score
		answer.OldScore = &old
		answer.Score = *req.QuestionScore
		answer.AppealStatus = model.AppealApproved
	} else {
		answer.AppealStatus = model.AppealRejected
	}
	answer.AppealResponse = req.Feedback
	resolvedAt := now
	answer.AppealResolvedDate = &resolvedAt

	if approved {
		aq.Status = model.AppealApproved
		st.Submission.TotalScore = AggregateScore(st.Answers, st.Test.Questions)
		updated := st.Submission.TotalScore
		st.Appeal.UpdatedScore = &updated
	} else {
		aq.Status = model.AppealRejected
		original := st.Appeal.OriginalScore
		st.Appeal.UpdatedScore = &original
	}
	aq.Feedback = req.Feedback

	closing, final := DecideAutoClose(st.Appeal.Questions)
	if closing {
		closeAppeal(st.Appeal, final, autoCloseFeedback, lecturerID, now)
	}

	return &repository.ResolutionWrite{
		Appeal:          st.Appeal,
		AppealQuestions: []model.AppealQuestion{*aq},
		Submission:      st.Submission,
		Answers:         []model.Answer{*answer},
		Closing:         closing,
	}, nil
}

// applyBatchResolution applies one uniform outcome to every question in
// the request and closes the appeal. Rejection never mutates answer
// scores; approval rewrites each listed answer and re-aggregates once.
func applyBatchResolution(st *resolutionState, req ResolveBatchRequest, lecturerID uint, now time.Time) (*repository.ResolutionWrite, error) {
	status := model.AppealRejected
	if req.Approved {
		status = model.AppealApproved
	}

	answersByQuestion := make(map[uint]*model.Answer, len(st.Answers))
	for i := range st.Answers {
		answersByQuestion[st.Answers[i].QuestionID] = &st.Answers[i]
	}

	changed := make([]model.Answer, 0, len(req.QuestionScores))
	for qid, newScore := range req.QuestionScores {
		answer := answersByQuestion[qid]
		if answer == nil {
			return nil, util.ErrAnswerNotFound
		}

		if req.Approved {
			old := answer.Score
			answer.OldScore = &old
			answer.Score = newScore
		}
		answer.AppealStatus = status
		answer.AppealResponse = req.Feedback
		resolvedAt := now
		answer.AppealResolvedDate = &resolvedAt
		changed = append(changed, *answer)
	}

	for i := range st.Appeal.Questions {
		if _, disputed := req.QuestionScores[st.Appeal.Questions[i].QuestionID]; disputed {
			st.Appeal.Questions[i].Status = status
			st.Appeal.Questions[i].Feedback = req.Feedback
		}
	}

	if req.Approved {
		st.Submission.TotalScore = AggregateScore(st.Answers, st.Test.Questions)
		updated := st.Submission.TotalScore
		st.Appeal.UpdatedScore = &updated
	} else {
		original := st.Appeal.OriginalScore
		st.Appeal.UpdatedScore = &original
	}

	closeAppeal(st.Appeal, status, req.Feedback, lecturerID, now)

	return &repository.ResolutionWrite{
		Appeal:          st.Appeal,
		AppealQuestions: st.Appeal.Questions,
		Submission:      st.Submission,
		Answers:         changed,
		Closing:         true,
	}, nil
}

// applyWholeResolution settles the appeal as a unit. Approval with an
// explicit new score overrides the submission total directly; approval
// without one marks the disputed answers approved and re-aggregates.
// Rejection restores the original score and touches no answer.
func applyWholeResolution(st *resolutionState, req ResolveWholeRequest, lecturerID uint, now time.Time) *repository.ResolutionWrite {
	status := model.AppealRejected
	if req.Approved {
		status = model.AppealApproved
	}

	for i := range st.Appeal.Questions {
		st.Appeal.Questions[i].Status = status
		st.Appeal.Questions[i].Feedback = req.Feedback
	}

	var changed []model.Answer
	if req.Approved {
		if req.NewScore != nil {
			st.Submission.TotalScore = *req.NewScore
			st.Appeal.UpdatedScore = req.NewScore
		} else {
			disputed := make(map[uint]bool, len(st.Appeal.Questions))
			for i := range st.Appeal.Questions {
				disputed[st.Appeal.Questions[i].QuestionID] = true
			}
			resolvedAt := now
			for i := range st.Answers {
				if !disputed[st.Answers[i].QuestionID] {
					continue
				}
				st.Answers[i].AppealStatus = model.AppealApproved
				st.Answers[i].AppealResponse = req.Feedback
				st.Answers[i].AppealResolvedDate = &resolvedAt
				changed = append(changed, st.Answers[i])
			}
			st.Submission.TotalScore = AggregateScore(st.Answers, st.Test.Questions)
			updated := st.Submission.TotalScore
			st.Appeal.UpdatedScore = &updated
		}
	} else {
		original := st.Appeal.OriginalScore
		st.Appeal.UpdatedScore = &original
	}

	closeAppeal(st.Appeal, status, req.Feedback, lecturerID, now)

	return &repository.ResolutionWrite{
		Appeal:          st.Appeal,
		AppealQuestions: st.Appeal.Questions,
		Submission:      st.Submission,
		Answers:         changed,
		Closing:         true,
	}
}

func closeAppeal(appeal *model.Appeal, status model.AppealStatus, feedback string, lecturerID uint, now time.Time) {
	appeal.Status = status
	if feedback != "" {
		appeal.Feedback = feedback
	}
	resolvedBy := lecturerID
	resolvedAt := now
	appeal.ResolvedByID = &resolvedBy
	appeal.ResolvedAt = &resolvedAt
}
