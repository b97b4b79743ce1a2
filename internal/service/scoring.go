package service

import (
	"classassess_backend/internal/model"
	"context"
	"strconv"
	"strings"
)

// ScoreAnswer grades a single raw answer value against its question and
// returns the points earned plus evaluator feedback. It is pure apart
// from the evaluator call: no persistence, no clock, no randomness for
// MCQ questions.
func ScoreAnswer(ctx context.Context, q *model.Question, value string, eval Evaluator) (float64, string) {
	switch q.QuestionType {
	case model.QuestionMCQ:
		if mcqMatches(q, value) {
			return float64(q.Points), ""
		}
		return 0, ""

	case model.QuestionWritten, model.QuestionShortAnswer:
		if strings.TrimSpace(value) == "" {
			return 0, "No answer provided."
		}
		ev, err := eval.Evaluate(ctx, q.QuestionText, value, q.CorrectAnswer)
		if err != nil {
			// The production evaluator chain is total; a bare evaluator
			// failing here grades the answer zero rather than aborting
			// the whole submission.
			return 0, "Your answer could not be evaluated automatically."
		}
		return clampPoints(ev.Score/100*float64(q.Points), q.Points), ev.Feedback

	default:
		return 0, ""
	}
}

// mcqMatches accepts the selected option's ID as the canonical value
// and falls back to an exact text match for clients that still submit
// option text.
func mcqMatches(q *model.Question, value string) bool {
	correct := q.CorrectOption()
	if correct == nil {
		return false
	}
	if value == strconv.FormatUint(uint64(correct.ID), 10) {
		return true
	}
	return value != "" && value == correct.OptionText
}

// AggregateScore folds per-answer points into the submission-level
// percentage: earned/possible * 100, clamped to [0,100]. A test worth
// zero points scores zero.
func AggregateScore(answers []model.Answer, questions []model.Question) float64 {
	totalPoints := 0
	for i := range questions {
		totalPoints += questions[i].Points
	}
	if totalPoints <= 0 {
		return 0
	}

	earned := 0.0
	for i := range answers {
		earned += answers[i].Score
	}

	return clampPercent(earned / float64(totalPoints) * 100)
}

// DecideAutoClose reports whether every disputed question has been
// reviewed and, if so, the overall outcome: approved only on a strict
// majority of approvals, so a tie rejects.
func DecideAutoClose(questions []model.AppealQuestion) (bool, model.AppealStatus) {
	if len(questions) == 0 {
		return false, model.AppealPending
	}

	approved := 0
	for i := range questions {
		switch questions[i].Status {
		case model.AppealApproved:
			approved++
		case model.AppealRejected:
		default:
			return false, model.AppealPending
		}
	}

	if approved > len(questions)/2 {
		return true, model.AppealApproved
	}
	return true, model.AppealRejected
}

func clampPoints(v float64, points int) float64 {
	if v < 0 {
		return 0
	}
	if max := float64(points); v > max {
		return max
	}
	return v
}
