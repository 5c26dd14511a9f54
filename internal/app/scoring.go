package app

import (
	"math"

	"stfc-quiz-service/internal/domain"
)

// Score counts exactly-right answers and grades the attempt.
func Score(quiz domain.Quiz, answers domain.AnswerRecord, grades domain.GradeScale) domain.QuizResult {
	total := len(quiz.Questions)
	correct := 0
	for _, q := range quiz.Questions {
		if selected, ok := answers[q.ID]; ok && IsCorrect(q, selected) {
			correct++
		}
	}
	pct := Percentage(correct, total)
	return domain.QuizResult{
		Correct:    correct,
		Total:      total,
		Percentage: pct,
		Grade:      grades.Grade(pct),
	}
}

// IsCorrect reports whether selected equals the answer key as a set.
// There is no partial credit, and an empty key can never be matched.
func IsCorrect(q domain.Question, selected []string) bool {
	if len(q.Correct) == 0 {
		return false
	}
	want := make(map[string]struct{}, len(q.Correct))
	for _, id := range q.Correct {
		want[id] = struct{}{}
	}
	got := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		got[id] = struct{}{}
	}
	if len(want) != len(got) {
		return false
	}
	for id := range got {
		if _, ok := want[id]; !ok {
			return false
		}
	}
	return true
}

// Percentage is round(100 * correct / total), 0 for an empty quiz.
func Percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}
