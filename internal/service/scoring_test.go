package service

import (
	"classassess_backend/internal/model"
	"context"
	"errors"
	"math"
	"testing"
)

// failingEvaluator fails the test if it is ever consulted.
type failingEvaluator struct {
	t *testing.T
}

func (e *failingEvaluator) Evaluate(context.Context, string, string, string) (Evaluation, error) {
	e.t.Helper()
	e.t.Fatal("evaluator must not be called")
	return Evaluation{}, nil
}

// fixedEvaluator returns a canned verdict.
type fixedEvaluator struct {
	score    float64
	feedback string
	err      error
}

func (e *fixedEvaluator) Evaluate(context.Context, string, string, string) (Evaluation, error) {
	if e.err != nil {
		return Evaluation{}, e.err
	}
	return Evaluation{Score: e.score, Feedback: e.feedback}, nil
}

func TestScoreAnswerMCQ(t *testing.T) {
	q := model.Question{
		QuestionType: model.QuestionMCQ,
		QuestionText: "Which planet is closest to the sun?",
		Points:       10,
	}
	q.ID = 1
	correct := model.MCQOption{OptionText: "Mercury", IsCorrect: true}
	correct.ID = 11
	wrong := model.MCQOption{OptionText: "Venus"}
	wrong.ID = 12
	q.Options = []model.MCQOption{correct, wrong}

	tests := []struct {
		name  string
		value string
		want  float64
	}{
		{"correct option id", "11", 10},
		{"wrong option id", "12", 0},
		{"correct option text fallback", "Mercury", 10},
		{"wrong text", "Venus", 0},
		{"empty answer", "", 0},
		{"garbage", "not-an-option", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := &failingEvaluator{t: t}
			for i := 0; i < 3; i++ {
				got, _ := ScoreAnswer(context.Background(), &q, tt.value, eval)
				if got != tt.want {
					t.Fatalf("ScoreAnswer(%q) = %v, want %v", tt.value, got, tt.want)
				}
			}
		})
	}
}

func TestScoreAnswerMCQWithoutCorrectOption(t *testing.T) {
	q := model.Question{QuestionType: model.QuestionMCQ, Points: 5}
	opt := model.MCQOption{OptionText: "A"}
	opt.ID = 1
	q.Options = []model.MCQOption{opt}

	got, _ := ScoreAnswer(context.Background(), &q, "1", &failingEvaluator{t: t})
	if got != 0 {
		t.Fatalf("question without a correct option scored %v, want 0", got)
	}
}

func TestScoreAnswerBlankFreeText(t *testing.T) {
	for _, typ := range []model.QuestionType{model.QuestionWritten, model.QuestionShortAnswer} {
		q := model.Question{QuestionType: typ, QuestionText: "Explain.", Points: 20}

		for _, value := range []string{"", "   ", "\n\t"} {
			score, feedback := ScoreAnswer(context.Background(), &q, value, &failingEvaluator{t: t})
			if score != 0 {
				t.Fatalf("%s blank answer scored %v, want 0", typ, score)
			}
			if feedback != "No answer provided." {
				t.Fatalf("%s blank answer feedback = %q", typ, feedback)
			}
		}
	}
}

func TestScoreAnswerScalesEvaluatorScore(t *testing.T) {
	q := model.Question{QuestionType: model.QuestionWritten, QuestionText: "Explain.", Points: 20}

	tests := []struct {
		evaluatorScore float64
		wantPoints     float64
	}{
		{100, 20},
		{75, 15},
		{50, 10},
		{0, 0},
		{150, 20}, // out-of-range replies never exceed the question's points
		{-10, 0},
	}

	for _, tt := range tests {
		score, _ := ScoreAnswer(context.Background(), &q, "an answer", &fixedEvaluator{score: tt.evaluatorScore})
		if score != tt.wantPoints {
			t.Fatalf("evaluator score %v earned %v points, want %v", tt.evaluatorScore, score, tt.wantPoints)
		}
	}
}

func TestScoreAnswerEvaluatorFailure(t *testing.T) {
	q := model.Question{QuestionType: model.QuestionWritten, QuestionText: "Explain.", Points: 10}
	score, feedback := ScoreAnswer(context.Background(), &q, "an answer", &fixedEvaluator{err: errors.New("down")})
	if score != 0 {
		t.Fatalf("score = %v, want 0 when the evaluator fails", score)
	}
	if feedback == "" {
		t.Fatal("expected fallback feedback")
	}
}

func TestAggregateScore(t *testing.T) {
	q1 := model.Question{Points: 10}
	q1.ID = 1
	q2 := model.Question{Points: 10}
	q2.ID = 2
	questions := []model.Question{q1, q2}

	tests := []struct {
		name    string
		answers []model.Answer
		want    float64
	}{
		{
			name:    "half the points",
			answers: []model.Answer{{QuestionID: 1, Score: 10}, {QuestionID: 2, Score: 0}},
			want:    50.0,
		},
		{
			name:    "full marks",
			answers: []model.Answer{{QuestionID: 1, Score: 10}, {QuestionID: 2, Score: 10}},
			want:    100.0,
		},
		{
			name:    "nothing earned",
			answers: []model.Answer{{QuestionID: 1}, {QuestionID: 2}},
			want:    0,
		},
		{
			name:    "over-earned clamps to 100",
			answers: []model.Answer{{QuestionID: 1, Score: 15}, {QuestionID: 2, Score: 10}},
			want:    100.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AggregateScore(tt.answers, questions); got != tt.want {
				t.Fatalf("AggregateScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregateScoreZeroPointTest(t *testing.T) {
	if got := AggregateScore([]model.Answer{{Score: 5}}, []model.Question{{Points: 0}}); got != 0 {
		t.Fatalf("zero-point test aggregated to %v, want 0", got)
	}
	if got := AggregateScore(nil, nil); got != 0 {
		t.Fatalf("empty test aggregated to %v, want 0", got)
	}
}

func TestDecideAutoClose(t *testing.T) {
	aq := func(status model.AppealStatus) model.AppealQuestion {
		return model.AppealQuestion{Status: status}
	}

	tests := []struct {
		name       string
		questions  []model.AppealQuestion
		wantClosed bool
		wantStatus model.AppealStatus
	}{
		{
			name:       "still pending",
			questions:  []model.AppealQuestion{aq(model.AppealApproved), aq(model.AppealPending)},
			wantClosed: false,
		},
		{
			name:       "majority approved",
			questions:  []model.AppealQuestion{aq(model.AppealApproved), aq(model.AppealApproved), aq(model.AppealRejected)},
			wantClosed: true,
			wantStatus: model.AppealApproved,
		},
		{
			name:       "majority rejected",
			questions:  []model.AppealQuestion{aq(model.AppealApproved), aq(model.AppealRejected), aq(model.AppealRejected)},
			wantClosed: true,
			wantStatus: model.AppealRejected,
		},
		{
			name:       "tie rejects",
			questions:  []model.AppealQuestion{aq(model.AppealApproved), aq(model.AppealRejected)},
			wantClosed: true,
			wantStatus: model.AppealRejected,
		},
		{
			name:       "single approval",
			questions:  []model.AppealQuestion{aq(model.AppealApproved)},
			wantClosed: true,
			wantStatus: model.AppealApproved,
		},
		{
			name:       "no questions",
			questions:  nil,
			wantClosed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			closed, status := DecideAutoClose(tt.questions)
			if closed != tt.wantClosed {
				t.Fatalf("closed = %v, want %v", closed, tt.wantClosed)
			}
			if closed && status != tt.wantStatus {
				t.Fatalf("status = %v, want %v", status, tt.wantStatus)
			}
		})
	}
}

func TestSimilarityScore(t *testing.T) {
	// Six unique reference tokens, two of which the answer covers:
	// coverage 2/6, length ratio min(1, 2/(6*0.7)).
	got := similarityScore("mitochondria powerhouse", "the mitochondria is the powerhouse of the cell")
	want := (2.0/6.0)*0.7*100 + (2.0 / (6.0 * 0.7) * 0.3 * 100)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("similarityScore = %v, want %v", got, want)
	}
	if got < 37 || got > 38 {
		t.Fatalf("similarityScore = %v, want roughly 37.6", got)
	}

	// Deterministic across calls.
	for i := 0; i < 5; i++ {
		if again := similarityScore("mitochondria powerhouse", "the mitochondria is the powerhouse of the cell"); again != got {
			t.Fatalf("similarityScore not deterministic: %v then %v", got, again)
		}
	}
}

func TestSimilarityScoreEdgeCases(t *testing.T) {
	if got := similarityScore("anything", ""); got != 0 {
		t.Fatalf("empty reference scored %v, want 0", got)
	}
	if got := similarityScore("", "some reference answer"); got != 0 {
		t.Fatalf("empty answer scored %v, want 0", got)
	}

	perfect := similarityScore("alpha beta gamma", "alpha beta gamma")
	if perfect != 100 {
		t.Fatalf("identical answer scored %v, want 100", perfect)
	}
}

func TestTokenizeNormalizes(t *testing.T) {
	got := tokenize("The Mitochondria, is (the) POWERHOUSE!")
	want := []string{"the", "mitochondria", "is", "powerhouse"}
	if len(got) != len(want) {
		t.Fatalf("tokenize produced %d unique tokens, want %d: %v", len(got), len(want), got)
	}
	for _, tok := range want {
		if !got[tok] {
			t.Fatalf("tokenize missing %q in %v", tok, got)
		}
	}
}
