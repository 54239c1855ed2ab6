package services

import (
	"testing"

	"github.com/maktabhub/assessment-service/internal/models"
)

func mcQuestion(id string, points int, options ...models.QuestionOption) models.Question {
	return models.Question{
		ID:      id,
		Kind:    models.MultipleChoice,
		Prompt:  "pick one",
		Options: options,
		Points:  points,
	}
}

func TestScoreQuestions_MultipleChoice(t *testing.T) {
	questions := models.QuestionSet{
		mcQuestion("q1", 10,
			models.QuestionOption{ID: "a", Text: "A", IsCorrect: false},
			models.QuestionOption{ID: "b", Text: "B", IsCorrect: true},
		),
	}

	tests := []struct {
		name    string
		answers models.AnswerSet
		wantRaw int
		wantPct int
	}{
		{name: "correct option", answers: models.AnswerSet{"q1": "b"}, wantRaw: 10, wantPct: 100},
		{name: "wrong option", answers: models.AnswerSet{"q1": "a"}, wantRaw: 0, wantPct: 0},
		{name: "omitted", answers: models.AnswerSet{}, wantRaw: 0, wantPct: 0},
		{name: "non-string answer", answers: models.AnswerSet{"q1": true}, wantRaw: 0, wantPct: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, pct := ScoreQuestions(questions, 10, tt.answers)
			if raw != tt.wantRaw || pct != tt.wantPct {
				t.Errorf("ScoreQuestions() = (%d, %d), want (%d, %d)", raw, pct, tt.wantRaw, tt.wantPct)
			}
		})
	}
}

func TestScoreQuestions_MultipleChoice_FirstCorrectOptionWins(t *testing.T) {
	// Legacy rows may carry more than one is_correct flag; only the first
	// counts.
	questions := models.QuestionSet{
		mcQuestion("q1", 5,
			models.QuestionOption{ID: "a", IsCorrect: true},
			models.QuestionOption{ID: "b", IsCorrect: true},
		),
	}

	if raw, _ := ScoreQuestions(questions, 5, models.AnswerSet{"q1": "a"}); raw != 5 {
		t.Errorf("first flagged option should grade correct, raw = %d", raw)
	}
	if raw, _ := ScoreQuestions(questions, 5, models.AnswerSet{"q1": "b"}); raw != 0 {
		t.Errorf("second flagged option should grade incorrect, raw = %d", raw)
	}
}

func TestScoreQuestions_TrueFalse(t *testing.T) {
	questions := models.QuestionSet{
		{ID: "q1", Kind: models.TrueFalse, Prompt: "t or f", CorrectAnswer: true, Points: 4},
	}

	tests := []struct {
		name    string
		answer  interface{}
		wantRaw int
	}{
		{name: "boolean true", answer: true, wantRaw: 4},
		{name: "boolean false", answer: false, wantRaw: 0},
		{name: "string true does not match", answer: "true", wantRaw: 0},
		{name: "nil", answer: nil, wantRaw: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, _ := ScoreQuestions(questions, 4, models.AnswerSet{"q1": tt.answer})
			if raw != tt.wantRaw {
				t.Errorf("raw = %d, want %d", raw, tt.wantRaw)
			}
		})
	}
}

func TestScoreQuestions_ShortAnswer(t *testing.T) {
	questions := models.QuestionSet{
		{ID: "q1", Kind: models.ShortAnswer, Prompt: "capital of France", CorrectAnswer: "Paris", Points: 5},
	}

	tests := []struct {
		name    string
		answer  interface{}
		wantRaw int
	}{
		{name: "exact", answer: "Paris", wantRaw: 5},
		{name: "trimmed and lowercased", answer: "  paris ", wantRaw: 5},
		{name: "uppercase", answer: "PARIS", wantRaw: 5},
		{name: "punctuation is not stripped", answer: "PARIS!", wantRaw: 0},
		{name: "non-string", answer: 42, wantRaw: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, _ := ScoreQuestions(questions, 5, models.AnswerSet{"q1": tt.answer})
			if raw != tt.wantRaw {
				t.Errorf("raw = %d, want %d", raw, tt.wantRaw)
			}
		})
	}
}

func TestScoreQuestions_PercentageFloors(t *testing.T) {
	questions := models.QuestionSet{
		{ID: "q1", Kind: models.TrueFalse, CorrectAnswer: true, Points: 1},
	}

	// 1 of 3 points: 33.33.. floors to 33.
	_, pct := ScoreQuestions(questions, 3, models.AnswerSet{"q1": true})
	if pct != 33 {
		t.Errorf("percentage = %d, want 33", pct)
	}
}

func TestScoreQuestions_ZeroMaxScore(t *testing.T) {
	questions := models.QuestionSet{
		{ID: "q1", Kind: models.TrueFalse, CorrectAnswer: true, Points: 1},
	}

	raw, pct := ScoreQuestions(questions, 0, models.AnswerSet{"q1": true})
	if raw != 1 || pct != 0 {
		t.Errorf("ScoreQuestions() = (%d, %d), want (1, 0)", raw, pct)
	}
}

func TestScoreQuestions_UnknownKindGradesIncorrect(t *testing.T) {
	questions := models.QuestionSet{
		{ID: "q1", Kind: "essay", CorrectAnswer: "anything", Points: 10},
	}

	raw, _ := ScoreQuestions(questions, 10, models.AnswerSet{"q1": "anything"})
	if raw != 0 {
		t.Errorf("unknown kind should grade incorrect, raw = %d", raw)
	}
}

func TestScoreQuestions_Deterministic(t *testing.T) {
	questions := models.QuestionSet{
		mcQuestion("q1", 10,
			models.QuestionOption{ID: "a", IsCorrect: false},
			models.QuestionOption{ID: "b", IsCorrect: true},
		),
		{ID: "q2", Kind: models.TrueFalse, CorrectAnswer: false, Points: 5},
		{ID: "q3", Kind: models.ShortAnswer, CorrectAnswer: "go", Points: 5},
	}
	answers := models.AnswerSet{"q1": "b", "q2": false, "q3": " GO "}

	firstRaw, firstPct := ScoreQuestions(questions, 20, answers)
	if firstRaw != 20 || firstPct != 100 {
		t.Fatalf("ScoreQuestions() = (%d, %d), want (20, 100)", firstRaw, firstPct)
	}

	for i := 0; i < 10; i++ {
		raw, pct := ScoreQuestions(questions, 20, answers)
		if raw != firstRaw || pct != firstPct {
			t.Fatalf("run %d: ScoreQuestions() = (%d, %d), want (%d, %d)", i, raw, pct, firstRaw, firstPct)
		}
	}
}
