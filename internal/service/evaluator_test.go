package service

import (
	"classassess_backend/internal/config"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func evaluatorTestConfig(baseURL string) config.EvaluatorConfig {
	return config.EvaluatorConfig{
		BaseURL:        baseURL,
		APIKey:         "test-key",
		Model:          "test-model",
		TimeoutSeconds: 5,
	}
}

func TestExtractScore(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    float64
		ok      bool
	}{
		{"explicit score line", "Score: 85\nGood coverage of the topic.", 85, true},
		{"score without colon", "score 72 overall", 72, true},
		{"fraction form", "I would rate this 70/100. Solid work.", 70, true},
		{"excellent tone", "An excellent response with great depth.", 95, true},
		{"good tone", "Good effort, well structured.", 85, true},
		{"satisfactory tone", "A satisfactory attempt.", 75, true},
		{"needs improvement tone", "This needs improvement in several areas.", 65, true},
		{"poor tone", "A poor attempt with little substance.", 55, true},
		{"no usable score", "The answer discusses several topics.", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractScore(tt.content)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Fatalf("extractScore(%q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}

func TestExtractFeedback(t *testing.T) {
	got := extractFeedback("Score: 85\nFeedback: The key mechanism is described correctly.")
	if strings.Contains(got, "85") {
		t.Fatalf("feedback still carries the score line: %q", got)
	}
	if !strings.Contains(got, "key mechanism") {
		t.Fatalf("feedback lost its content: %q", got)
	}
}

func TestHeuristicEvaluatorBands(t *testing.T) {
	eval := NewHeuristicEvaluator()

	ev, err := eval.Evaluate(context.Background(), "What is the powerhouse of the cell?",
		"mitochondria powerhouse", "the mitochondria is the powerhouse of the cell")
	if err != nil {
		t.Fatalf("heuristic returned an error: %v", err)
	}
	if ev.Score < 37 || ev.Score > 38 {
		t.Fatalf("score = %v, want roughly 37.6", ev.Score)
	}
	if ev.Feedback == "" {
		t.Fatal("expected banded feedback")
	}

	perfect, _ := eval.Evaluate(context.Background(), "q", "alpha beta gamma", "alpha beta gamma")
	if perfect.Score != 100 {
		t.Fatalf("identical answer scored %v", perfect.Score)
	}
	if !strings.HasPrefix(perfect.Feedback, "Excellent answer!") {
		t.Fatalf("top band feedback = %q", perfect.Feedback)
	}
}

func TestHeuristicEvaluatorWithoutReference(t *testing.T) {
	eval := NewHeuristicEvaluator()
	ev, err := eval.Evaluate(context.Background(), "Describe the role of mitochondria in the cell.",
		"mitochondria produce energy for the cell", "")
	if err != nil {
		t.Fatalf("heuristic returned an error: %v", err)
	}
	if ev.Score <= 0 || ev.Score > 50 {
		t.Fatalf("relevance-only score = %v, want in (0, 50]", ev.Score)
	}
}

func TestFailoverEvaluatorAbsorbsPrimaryFailure(t *testing.T) {
	primary := &fixedEvaluator{err: errors.New("connection refused")}
	eval := NewFailoverEvaluator(primary, NewHeuristicEvaluator(), time.Second)

	ev, err := eval.Evaluate(context.Background(), "q", "alpha beta gamma", "alpha beta gamma")
	if err != nil {
		t.Fatalf("failover surfaced an error: %v", err)
	}
	if ev.Score != 100 {
		t.Fatalf("fallback score = %v, want the heuristic's 100", ev.Score)
	}
}

func TestFailoverEvaluatorPrefersPrimary(t *testing.T) {
	primary := &fixedEvaluator{score: 81, feedback: "Good answer."}
	eval := NewFailoverEvaluator(primary, &fixedEvaluator{score: 10}, time.Second)

	ev, err := eval.Evaluate(context.Background(), "q", "a", "r")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Score != 81 || ev.Feedback != "Good answer." {
		t.Fatalf("got %+v, want the primary verdict", ev)
	}
}

func TestAIEvaluatorParsesCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header = %q", got)
		}

		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if len(req.Messages) != 2 {
			t.Errorf("message count = %d, want 2", len(req.Messages))
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{
					"role":    "assistant",
					"content": "Score: 90\nFeedback: Thorough and accurate.",
				}},
			},
		})
	}))
	defer srv.Close()

	eval := NewAIEvaluator(evaluatorTestConfig(srv.URL))
	ev, err := eval.Evaluate(context.Background(), "Explain osmosis.", "water moves across a membrane", "")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ev.Score != 90 {
		t.Fatalf("score = %v, want 90", ev.Score)
	}
	if !strings.Contains(ev.Feedback, "Thorough and accurate.") {
		t.Fatalf("feedback = %q", ev.Feedback)
	}
}

func TestAIEvaluatorRejectsUnusableReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "I cannot grade this."}},
			},
		})
	}))
	defer srv.Close()

	eval := NewAIEvaluator(evaluatorTestConfig(srv.URL))
	if _, err := eval.Evaluate(context.Background(), "q", "a", ""); err == nil {
		t.Fatal("expected an error for a reply with no usable score")
	}
}

func TestAIEvaluatorSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	eval := NewAIEvaluator(evaluatorTestConfig(srv.URL))
	if _, err := eval.Evaluate(context.Background(), "q", "a", ""); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}
