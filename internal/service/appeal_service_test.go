package service

import (
	"classassess_backend/internal/model"
	"testing"
	"time"
)

// newResolutionFixture builds a graded two-question submission worth 20
// points where the student earned 10 (50%), with an appeal disputing
// the given questions.
func newResolutionFixture(disputed ...uint) *resolutionState {
	q1 := model.Question{Points: 10}
	q1.ID = 1
	q2 := model.Question{Points: 10}
	q2.ID = 2

	test := &model.Test{LecturerID: 7, TotalPoints: 20, Questions: []model.Question{q1, q2}}
	test.ID = 100

	sub := &model.Submission{TestID: 100, StudentID: 5, TotalScore: 50.0, Status: model.SubmissionGraded}
	sub.ID = 200

	answers := []model.Answer{
		{SubmissionID: 200, QuestionID: 1, Score: 10},
		{SubmissionID: 200, QuestionID: 2, Score: 0},
	}

	appeal := &model.Appeal{
		TestID:        100,
		SubmissionID:  200,
		OriginalScore: 50.0,
		Status:        model.AppealPending,
	}
	appeal.ID = 300
	for _, qid := range disputed {
		appeal.Questions = append(appeal.Questions, model.AppealQuestion{
			AppealID:   300,
			QuestionID: qid,
			Status:     model.AppealPending,
		})
	}

	return &resolutionState{Appeal: appeal, Submission: sub, Test: test, Answers: answers}
}

func scoreOf(v float64) *float64 { return &v }

func TestApplyQuestionResolutionApprove(t *testing.T) {
	st := newResolutionFixture(2)
	now := time.Now()

	write, err := applyQuestionResolution(st, 2, ResolveQuestionRequest{
		Approved:      true,
		Feedback:      "Key concept was present after all.",
		QuestionScore: scoreOf(10),
	}, 7, now)
	if err != nil {
		t.Fatalf("applyQuestionResolution: %v", err)
	}

	answer := &st.Answers[1]
	if answer.Score != 10 {
		t.Fatalf("answer score = %v, want 10", answer.Score)
	}
	if answer.OldScore == nil || *answer.OldScore != 0 {
		t.Fatalf("old score = %v, want 0", answer.OldScore)
	}
	if answer.AppealStatus != model.AppealApproved {
		t.Fatalf("answer appeal status = %v", answer.AppealStatus)
	}
	if answer.AppealResolvedDate == nil {
		t.Fatal("answer resolved date not stamped")
	}

	if st.Submission.TotalScore != 100.0 {
		t.Fatalf("total score = %v, want 100", st.Submission.TotalScore)
	}
	if st.Appeal.UpdatedScore == nil || *st.Appeal.UpdatedScore != 100.0 {
		t.Fatalf("updated score = %v, want 100", st.Appeal.UpdatedScore)
	}

	// Only question disputed, so the appeal closes approved.
	if !write.Closing {
		t.Fatal("expected closing write")
	}
	if st.Appeal.Status != model.AppealApproved {
		t.Fatalf("appeal status = %v, want APPROVED", st.Appeal.Status)
	}
	if st.Appeal.ResolvedByID == nil || *st.Appeal.ResolvedByID != 7 {
		t.Fatalf("resolved by = %v, want 7", st.Appeal.ResolvedByID)
	}
	if st.Appeal.ResolvedAt == nil {
		t.Fatal("resolved at not stamped")
	}
}

func TestApplyQuestionResolutionReject(t *testing.T) {
	st := newResolutionFixture(2)

	write, err := applyQuestionResolution(st, 2, ResolveQuestionRequest{
		Approved: false,
		Feedback: "The rubric was applied correctly.",
	}, 7, time.Now())
	if err != nil {
		t.Fatalf("applyQuestionResolution: %v", err)
	}

	answer := &st.Answers[1]
	if answer.Score != 0 {
		t.Fatalf("rejection must not change the score, got %v", answer.Score)
	}
	if answer.OldScore != nil {
		t.Fatal("rejection must not snapshot an old score")
	}
	if answer.AppealStatus != model.AppealRejected {
		t.Fatalf("answer appeal status = %v", answer.AppealStatus)
	}

	if st.Submission.TotalScore != 50.0 {
		t.Fatalf("total score = %v, want unchanged 50", st.Submission.TotalScore)
	}
	if st.Appeal.UpdatedScore == nil || *st.Appeal.UpdatedScore != 50.0 {
		t.Fatalf("updated score = %v, want the original 50", st.Appeal.UpdatedScore)
	}
	if !write.Closing || st.Appeal.Status != model.AppealRejected {
		t.Fatalf("appeal should close rejected, got closing=%v status=%v", write.Closing, st.Appeal.Status)
	}
}

func TestApplyQuestionResolutionApproveWithoutScore(t *testing.T) {
	st := newResolutionFixture(2)

	_, err := applyQuestionResolution(st, 2, ResolveQuestionRequest{Approved: true}, 7, time.Now())
	if err != nil {
		t.Fatalf("applyQuestionResolution: %v", err)
	}

	// An approval without a replacement score carries no effect; it is
	// recorded as a rejection.
	if st.Answers[1].AppealStatus != model.AppealRejected {
		t.Fatalf("status = %v, want REJECTED", st.Answers[1].AppealStatus)
	}
	if st.Answers[1].Score != 0 {
		t.Fatalf("score = %v, want unchanged 0", st.Answers[1].Score)
	}
}

func TestApplyQuestionResolutionUnknownQuestion(t *testing.T) {
	st := newResolutionFixture(2)
	if _, err := applyQuestionResolution(st, 99, ResolveQuestionRequest{Approved: false}, 7, time.Now()); err == nil {
		t.Fatal("expected an error for a question outside the appeal")
	}
}

func TestAutoCloseAfterLastVerdict(t *testing.T) {
	tests := []struct {
		name     string
		verdicts []bool // per disputed question, in order
		want     model.AppealStatus
	}{
		{"two approvals one rejection", []bool{true, true, false}, model.AppealApproved},
		{"one approval two rejections", []bool{true, false, false}, model.AppealRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newResolutionFixture(1, 2)
			// Extend the fixture to a third question so three independent
			// verdicts exist.
			q3 := model.Question{Points: 10}
			q3.ID = 3
			st.Test.Questions = append(st.Test.Questions, q3)
			st.Test.TotalPoints += 10
			st.Answers = append(st.Answers, model.Answer{SubmissionID: 200, QuestionID: 3, Score: 0})
			st.Appeal.Questions = append(st.Appeal.Questions, model.AppealQuestion{
				AppealID: 300, QuestionID: 3, Status: model.AppealPending,
			})
			qids := []uint{1, 2, 3}

			for i, approved := range tt.verdicts {
				req := ResolveQuestionRequest{Approved: approved}
				if approved {
					req.QuestionScore = scoreOf(5)
				}
				write, err := applyQuestionResolution(st, qids[i], req, 7, time.Now())
				if err != nil {
					t.Fatalf("verdict %d: %v", i, err)
				}

				wantClosing := i == len(tt.verdicts)-1
				if write.Closing != wantClosing {
					t.Fatalf("verdict %d: closing = %v, want %v", i, write.Closing, wantClosing)
				}
			}

			if st.Appeal.Status != tt.want {
				t.Fatalf("final status = %v, want %v", st.Appeal.Status, tt.want)
			}
			if st.Appeal.Feedback != autoCloseFeedback {
				t.Fatalf("auto-close feedback = %q", st.Appeal.Feedback)
			}
		})
	}
}

func TestApplyBatchResolutionApprove(t *testing.T) {
	st := newResolutionFixture(1, 2)

	write, err := applyBatchResolution(st, ResolveBatchRequest{
		Approved:       true,
		Feedback:       "Partial credit granted.",
		QuestionScores: map[uint]float64{1: 5, 2: 10},
	}, 7, time.Now())
	if err != nil {
		t.Fatalf("applyBatchResolution: %v", err)
	}

	if st.Answers[0].Score != 5 || st.Answers[1].Score != 10 {
		t.Fatalf("answer scores = %v, %v; want 5, 10", st.Answers[0].Score, st.Answers[1].Score)
	}
	if st.Submission.TotalScore != 75.0 {
		t.Fatalf("total score = %v, want 75", st.Submission.TotalScore)
	}
	if st.Appeal.UpdatedScore == nil || *st.Appeal.UpdatedScore != 75.0 {
		t.Fatalf("updated score = %v, want 75", st.Appeal.UpdatedScore)
	}
	if !write.Closing || st.Appeal.Status != model.AppealApproved {
		t.Fatalf("batch approval must close approved, got closing=%v status=%v", write.Closing, st.Appeal.Status)
	}
	for i := range st.Appeal.Questions {
		if st.Appeal.Questions[i].Status != model.AppealApproved {
			t.Fatalf("appeal question %d status = %v", i, st.Appeal.Questions[i].Status)
		}
	}
	if len(write.Answers) != 2 {
		t.Fatalf("write carries %d answers, want 2", len(write.Answers))
	}
}

func TestApplyBatchResolutionReject(t *testing.T) {
	st := newResolutionFixture(1, 2)

	write, err := applyBatchResolution(st, ResolveBatchRequest{
		Approved:       false,
		Feedback:       "The original grading stands.",
		QuestionScores: map[uint]float64{1: 5, 2: 10},
	}, 7, time.Now())
	if err != nil {
		t.Fatalf("applyBatchResolution: %v", err)
	}

	if st.Answers[0].Score != 10 || st.Answers[1].Score != 0 {
		t.Fatalf("rejection mutated scores: %v, %v", st.Answers[0].Score, st.Answers[1].Score)
	}
	if st.Submission.TotalScore != 50.0 {
		t.Fatalf("total score = %v, want unchanged 50", st.Submission.TotalScore)
	}
	if st.Appeal.UpdatedScore == nil || *st.Appeal.UpdatedScore != 50.0 {
		t.Fatalf("updated score = %v, want the original 50", st.Appeal.UpdatedScore)
	}
	if !write.Closing || st.Appeal.Status != model.AppealRejected {
		t.Fatalf("batch rejection must close rejected, got closing=%v status=%v", write.Closing, st.Appeal.Status)
	}
}

func TestApplyBatchResolutionUnknownAnswer(t *testing.T) {
	st := newResolutionFixture(1)
	if _, err := applyBatchResolution(st, ResolveBatchRequest{
		Approved:       true,
		QuestionScores: map[uint]float64{99: 5},
	}, 7, time.Now()); err == nil {
		t.Fatal("expected an error for a score against a missing answer")
	}
}

func TestApplyWholeResolutionApproveWithOverride(t *testing.T) {
	st := newResolutionFixture(1, 2)

	write := applyWholeResolution(st, ResolveWholeRequest{
		Approved: true,
		Feedback: "Regraded by hand.",
		NewScore: scoreOf(88.5),
	}, 7, time.Now())

	// The override bypasses aggregation entirely.
	if st.Submission.TotalScore != 88.5 {
		t.Fatalf("total score = %v, want exactly 88.5", st.Submission.TotalScore)
	}
	if st.Appeal.UpdatedScore == nil || *st.Appeal.UpdatedScore != 88.5 {
		t.Fatalf("updated score = %v, want 88.5", st.Appeal.UpdatedScore)
	}
	if st.Answers[0].Score != 10 || st.Answers[1].Score != 0 {
		t.Fatal("override must not touch per-answer scores")
	}
	if !write.Closing || st.Appeal.Status != model.AppealApproved {
		t.Fatalf("closing=%v status=%v", write.Closing, st.Appeal.Status)
	}
}

func TestApplyWholeResolutionApproveWithoutOverride(t *testing.T) {
	st := newResolutionFixture(2)

	write := applyWholeResolution(st, ResolveWholeRequest{
		Approved: true,
		Feedback: "Accepted as argued.",
	}, 7, time.Now())

	if st.Answers[1].AppealStatus != model.AppealApproved {
		t.Fatalf("disputed answer status = %v", st.Answers[1].AppealStatus)
	}
	if st.Answers[0].AppealStatus != "" {
		t.Fatalf("undisputed answer was touched: %v", st.Answers[0].AppealStatus)
	}
	// No scores changed, so aggregation reproduces the original total.
	if st.Submission.TotalScore != 50.0 {
		t.Fatalf("total score = %v, want 50", st.Submission.TotalScore)
	}
	if len(write.Answers) != 1 {
		t.Fatalf("write carries %d answers, want the 1 disputed", len(write.Answers))
	}
}

func TestApplyWholeResolutionReject(t *testing.T) {
	st := newResolutionFixture(1, 2)

	write := applyWholeResolution(st, ResolveWholeRequest{
		Approved: false,
		Feedback: "No grounds for a change.",
	}, 7, time.Now())

	if st.Appeal.UpdatedScore == nil || *st.Appeal.UpdatedScore != 50.0 {
		t.Fatalf("updated score = %v, want the original 50", st.Appeal.UpdatedScore)
	}
	if st.Submission.TotalScore != 50.0 {
		t.Fatalf("total score = %v, want unchanged 50", st.Submission.TotalScore)
	}
	for i := range st.Answers {
		if st.Answers[i].AppealStatus != "" || st.Answers[i].AppealResolvedDate != nil {
			t.Fatalf("rejection touched answer %d", i)
		}
	}
	if len(write.Answers) != 0 {
		t.Fatalf("rejection write carries %d answers, want 0", len(write.Answers))
	}
	if !write.Closing || st.Appeal.Status != model.AppealRejected {
		t.Fatalf("closing=%v status=%v", write.Closing, st.Appeal.Status)
	}
}
