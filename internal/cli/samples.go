package cli

import "stfc-quiz-service/internal/domain"

// sampleQuizzes is served when neither the content backend nor Postgres is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"1": {
			ID:      "1",
			Title:   "Premiers pas dans Star Trek Fleet Command",
			Content: "<p>Quelques questions pour les nouveaux capitaines.</p>",
			Questions: []domain.Question{
				{
					ID:   "1",
					Text: "Quelle faction dirige Jean-Luc Picard ?",
					Type: domain.QuestionSingle,
					Choices: []domain.Choice{
						{ID: "a", Text: "Fédération"},
						{ID: "b", Text: "Klingons"},
						{ID: "c", Text: "Romuliens"},
					},
					Correct:     []string{"a"},
					Difficulty:  domain.DifficultyEasy,
					Explanation: "Picard est un officier de Starfleet, donc de la Fédération.",
				},
				{
					ID:   "2",
					Text: "Quelles ressources servent à améliorer le bâtiment des opérations ?",
					Type: domain.QuestionMultiple,
					Choices: []domain.Choice{
						{ID: "a", Text: "Parsteel"},
						{ID: "b", Text: "Tritanium"},
						{ID: "c", Text: "Latinum"},
					},
					Correct:    []string{"a", "b"},
					Difficulty: domain.DifficultyMedium,
				},
				{
					ID:   "3",
					Text: "Quel vaisseau est un explorateur ?",
					Type: domain.QuestionSingle,
					Choices: []domain.Choice{
						{ID: "a", Text: "USS Enterprise"},
						{ID: "b", Text: "D'Vor"},
						{ID: "c", Text: "Kehra"},
					},
					Correct:    []string{"a"},
					Difficulty: domain.DifficultyHard,
				},
			},
		},
	}
}
