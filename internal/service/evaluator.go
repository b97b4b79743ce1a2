package service

import (
	"bytes"
	"classassess_backend/internal/config"
	"classassess_backend/pkg/logger"
	"classassess_backend/pkg/monitoring"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
)

// Evaluation is the evaluator verdict on one free-text answer: a
// normalized score on the 0-100 scale plus feedback for the student.
type Evaluation struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// Evaluator grades a free-text answer against a question and an
// optional reference answer. referenceAnswer may be empty, in which
// case the answer is judged on relevance and completeness alone.
type Evaluator interface {
	Evaluate(ctx context.Context, questionText, studentAnswer, referenceAnswer string) (Evaluation, error)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// AIEvaluator calls an OpenAI-compatible chat completions endpoint and
// extracts a score and feedback from the model's reply.
type AIEvaluator struct {
	config config.EvaluatorConfig
	client *http.Client
}

func NewAIEvaluator(cfg config.EvaluatorConfig) *AIEvaluator {
	return &AIEvaluator{
		config: cfg,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}
}

func (e *AIEvaluator) Evaluate(ctx context.Context, questionText, studentAnswer, referenceAnswer string) (Evaluation, error) {
	var prompt string
	if strings.TrimSpace(referenceAnswer) == "" {
		prompt = fmt.Sprintf("Question: %s\n\nStudent Answer: %s\n\n"+
			"As an expert educator, evaluate this answer for accuracy and completeness. "+
			"Provide a score between 0 and 100, and specific constructive feedback about "+
			"what's correct and what could be improved.",
			questionText, studentAnswer)
	} else {
		prompt = fmt.Sprintf("Question: %s\n\nModel Answer: %s\n\nStudent Answer: %s\n\n"+
			"Evaluate the student's answer in comparison to the model answer. "+
			"Provide a score between 0 and 100, and constructive feedback.",
			questionText, referenceAnswer, studentAnswer)
	}

	reqBody := chatCompletionRequest{
		Model: e.config.Model,
		Messages: []chatMessage{
			{
				Role:    "system",
				Content: "You are an AI educational assessment assistant. Evaluate student answers fairly and provide constructive feedback.",
			},
			{
				Role:    "user",
				Content: prompt,
			},
		},
		Temperature: 0.3,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return Evaluation{}, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return Evaluation{}, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.config.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return Evaluation{}, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return Evaluation{}, fmt.Errorf("evaluator API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result chatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return Evaluation{}, err
	}
	if result.Error != nil {
		return Evaluation{}, fmt.Errorf("evaluator API error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return Evaluation{}, fmt.Errorf("evaluator returned no choices")
	}

	content := result.Choices[0].Message.Content
	score, ok := extractScore(content)
	if !ok {
		return Evaluation{}, fmt.Errorf("evaluator reply carried no usable score")
	}

	return Evaluation{
		Score:    clampPercent(score),
		Feedback: extractFeedback(content),
	}, nil
}

var (
	scorePattern     = regexp.MustCompile(`(?i)score:?\s*(\d+)`)
	fractionPattern  = regexp.MustCompile(`(\d+)/100`)
	scoreLinePattern = regexp.MustCompile(`(?i)score:?\s*\d+(/100)?`)
	headerPattern    = regexp.MustCompile(`(?i)^(feedback|evaluation|assessment):\s*`)
)

// extractScore pulls a 0-100 score out of the model's free-form reply:
// an explicit "Score: NN" or "NN/100" first, then an estimate from the
// overall tone as the original grader did.
func extractScore(content string) (float64, bool) {
	if m := scorePattern.FindStringSubmatch(content); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v, true
		}
	}
	if m := fractionPattern.FindStringSubmatch(content); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v, true
		}
	}

	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "excellent") || strings.Contains(lower, "perfect"):
		return 95.0, true
	case strings.Contains(lower, "good") || strings.Contains(lower, "well done"):
		return 85.0, true
	case strings.Contains(lower, "satisfactory") || strings.Contains(lower, "adequate"):
		return 75.0, true
	case strings.Contains(lower, "needs improvement") || strings.Contains(lower, "lacking"):
		return 65.0, true
	case strings.Contains(lower, "poor") || strings.Contains(lower, "insufficient"):
		return 55.0, true
	}
	return 0, false
}

func extractFeedback(content string) string {
	feedback := scoreLinePattern.ReplaceAllString(content, "")
	feedback = strings.TrimSpace(feedback)
	feedback = headerPattern.ReplaceAllString(feedback, "")
	return strings.TrimSpace(feedback)
}

// HeuristicEvaluator is the deterministic local fallback. It is pure
// text math, total over its inputs, and never returns an error.
type HeuristicEvaluator struct{}

func NewHeuristicEvaluator() *HeuristicEvaluator {
	return &HeuristicEvaluator{}
}

func (e *HeuristicEvaluator) Evaluate(_ context.Context, questionText, studentAnswer, referenceAnswer string) (Evaluation, error) {
	if strings.TrimSpace(referenceAnswer) == "" {
		// No reference answer: grade relevance against the question
		// text itself, at half weight.
		score := similarityScore(studentAnswer, questionText) / 2
		return Evaluation{
			Score: clampPercent(score),
			Feedback: "Your answer has been evaluated based on relevance to the question. " +
				"Consider reviewing course materials for a more complete answer.",
		}, nil
	}

	score := similarityScore(studentAnswer, referenceAnswer)
	return Evaluation{
		Score:    clampPercent(score),
		Feedback: bandedFeedback(score),
	}, nil
}

// similarityScore compares normalized token sets:
// keywordCoverage*0.7 + lengthRatio*0.3, scaled to 0-100.
func similarityScore(answer, reference string) float64 {
	answerTokens := tokenize(answer)
	referenceTokens := tokenize(reference)

	if len(referenceTokens) == 0 {
		return 0
	}

	intersection := 0
	for tok := range answerTokens {
		if referenceTokens[tok] {
			intersection++
		}
	}

	keywordCoverage := float64(intersection) / float64(len(referenceTokens))

	lengthRatio := float64(len(answerTokens)) / (float64(len(referenceTokens)) * 0.7)
	if lengthRatio > 1 {
		lengthRatio = 1
	}

	return (keywordCoverage*0.7 + lengthRatio*0.3) * 100
}

// tokenize lowercases, strips non-alphanumerics and returns the unique
// token set.
func tokenize(text string) map[string]bool {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}

	tokens := make(map[string]bool)
	for _, tok := range strings.Fields(b.String()) {
		tokens[tok] = true
	}
	return tokens
}

func bandedFeedback(score float64) string {
	switch {
	case score >= 90:
		return "Excellent answer! You've covered all the key points accurately."
	case score >= 75:
		return "Good answer! You've addressed most of the important concepts."
	case score >= 60:
		return "Satisfactory answer, but some key points are missing or could be expanded."
	case score >= 40:
		return "Your answer shows some understanding, but several important concepts are missing. Review the material and try again."
	default:
		return "Your answer needs significant improvement. Please review the course materials on this topic."
	}
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// failoverEvaluator tries the primary evaluator under a deadline and
// silently degrades to the fallback on any failure or unusable reply.
// Evaluator trouble never surfaces to grading.
type failoverEvaluator struct {
	primary  Evaluator
	fallback Evaluator
	timeout  time.Duration
}

// NewFailoverEvaluator wires the production evaluator chain. The
// returned evaluator is total: it always produces an Evaluation.
func NewFailoverEvaluator(primary, fallback Evaluator, timeout time.Duration) Evaluator {
	return &failoverEvaluator{primary: primary, fallback: fallback, timeout: timeout}
}

func (e *failoverEvaluator) Evaluate(ctx context.Context, questionText, studentAnswer, referenceAnswer string) (Evaluation, error) {
	if e.primary != nil {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		ev, err := e.primary.Evaluate(callCtx, questionText, studentAnswer, referenceAnswer)
		cancel()
		if err == nil {
			return ev, nil
		}

		monitoring.EvaluatorFallbacks.Inc()
		if logger.Log != nil {
			logger.Log.Warn("evaluator unavailable, using heuristic fallback", zap.Error(err))
		}
	}

	ev, err := e.fallback.Evaluate(ctx, questionText, studentAnswer, referenceAnswer)
	if err != nil {
		// The heuristic is total; this branch guards against a
		// misconfigured fallback only.
		return Evaluation{Score: 0, Feedback: "Your answer could not be evaluated automatically."}, nil
	}
	return ev, nil
}
