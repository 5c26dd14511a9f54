package wordpress

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"stfc-quiz-service/internal/domain"
)

// flexID accepts ids sent as JSON numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// flexText accepts a plain string or a WordPress {"rendered": "..."} object.
type flexText string

func (f *flexText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '{' {
		var rendered struct {
			Rendered string `json:"rendered"`
		}
		if err := json.Unmarshal(b, &rendered); err != nil {
			return err
		}
		*f = flexText(rendered.Rendered)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*f = flexText(s)
	return nil
}

type quizDTO struct {
	ID        flexID        `json:"id"`
	Title     flexText      `json:"title"`
	Content   flexText      `json:"content"`
	Questions []questionDTO `json:"questions"`
}

type questionDTO struct {
	ID          flexID      `json:"id"`
	Text        string      `json:"text"`
	Question    string      `json:"question"`
	Type        string      `json:"type"`
	Image       string      `json:"image"`
	Choices     []choiceDTO `json:"choices"`
	Difficulty  string      `json:"difficulty"`
	Explanation string      `json:"explanation"`
	Correct     []flexID    `json:"correct"`
}

type choiceDTO struct {
	ID    flexID `json:"id"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

type postDTO struct {
	ID      flexID   `json:"id"`
	Title   flexText `json:"title"`
	Content flexText `json:"content"`
}

func (d quizDTO) toDomain() domain.Quiz {
	quiz := domain.Quiz{
		ID:        string(d.ID),
		Title:     string(d.Title),
		Content:   string(d.Content),
		Questions: make([]domain.Question, 0, len(d.Questions)),
	}
	for _, q := range d.Questions {
		quiz.Questions = append(quiz.Questions, q.toDomain())
	}
	return quiz
}

func (d questionDTO) toDomain() domain.Question {
	q := domain.Question{
		ID:          string(d.ID),
		Text:        firstNonEmpty(d.Text, d.Question),
		Image:       d.Image,
		Type:        domain.QuestionSingle,
		Choices:     make([]domain.Choice, 0, len(d.Choices)),
		Difficulty:  difficulty(d.Difficulty),
		Explanation: d.Explanation,
	}
	if strings.EqualFold(d.Type, string(domain.QuestionMultiple)) {
		q.Type = domain.QuestionMultiple
	}
	for i, c := range d.Choices {
		id := string(c.ID)
		if id == "" {
			// Choices without an id are addressed by position.
			id = strconv.Itoa(i)
		}
		q.Choices = append(q.Choices, domain.Choice{ID: id, Text: firstNonEmpty(c.Label, c.Text)})
	}
	for _, id := range d.Correct {
		if id != "" {
			q.Correct = append(q.Correct, string(id))
		}
	}
	return q
}

func difficulty(raw string) domain.Difficulty {
	switch d := domain.Difficulty(strings.ToLower(strings.TrimSpace(raw))); d {
	case domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard:
		return d
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
