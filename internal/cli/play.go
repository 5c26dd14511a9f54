package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"stfc-quiz-service/internal/app"
	"stfc-quiz-service/internal/config"
	"stfc-quiz-service/internal/domain"
	"stfc-quiz-service/internal/infra/memory"
	"stfc-quiz-service/internal/logger"
)

const playHelp = "numéro = choisir, v = valider, n = suivante, p = précédente, r = recommencer, q = quitter"

// NewPlayCmd walks through a quiz in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "play <quizID>",
		Short: "Play a quiz in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			// The global logger stays silent so log lines do not mix with the game.
			loader, _, cleanup, err := buildSources(ctx, cfg, logger.Get())
			if err != nil {
				return err
			}
			defer cleanup()
			return playQuiz(ctx, loader, args[0], domain.NewGradeScale(cfg.Quiz.Grades), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func playQuiz(ctx context.Context, loader memory.QuizLoader, quizID string, grades domain.GradeScale, in io.Reader, out io.Writer) error {
	state := app.Loading(grades)
	quiz, err := loader.LoadQuiz(ctx, quizID)
	if err != nil {
		state = state.Failed(err)
	} else {
		state = state.Loaded(quiz)
	}
	if state.Phase() == domain.PhaseLoadError {
		fmt.Fprintln(out, domain.LoadErrorMessage)
		return fmt.Errorf("load quiz %s: %w", quizID, state.Err())
	}

	fmt.Fprintf(out, "%s\n%s\n", quiz.Title, playHelp)
	scanner := bufio.NewScanner(in)
	for {
		renderView(out, state.View())
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "q" {
			return nil
		}
		next, ok := playInput(state, input)
		if !ok {
			fmt.Fprintln(out, playHelp)
			continue
		}
		state = next
	}
}

// playInput maps one line of input to a transition.
func playInput(state app.State, input string) (app.State, bool) {
	switch input {
	case "v":
		return state.Validate(), true
	case "n":
		return state.Advance(), true
	case "p":
		return state.Retreat(), true
	case "r":
		return state.Restart(), true
	}
	n, err := strconv.Atoi(input)
	if err != nil {
		return state, false
	}
	q, ok := state.Current()
	if !ok || n < 1 || n > len(q.Choices) {
		return state, false
	}
	return state.Select(q.Choices[n-1].ID), true
}

func renderView(out io.Writer, view domain.AttemptView) {
	if view.Phase == domain.PhaseCompleted && view.Result != nil {
		r := view.Result
		fmt.Fprintf(out, "\nRésultat : %d/%d (%d%%) - %s\n", r.Correct, r.Total, r.Percentage, r.Grade.Label)
		return
	}
	if view.Question == nil {
		return
	}

	q := view.Question
	fmt.Fprintf(out, "\nQuestion %d/%d : %s\n", view.Index+1, view.Total, q.Text)
	if q.Type == domain.QuestionMultiple {
		fmt.Fprintln(out, "(plusieurs réponses possibles)")
	}
	selected := make(map[string]bool, len(view.Selection))
	for _, id := range view.Selection {
		selected[id] = true
	}
	for i, c := range q.Choices {
		mark := " "
		if selected[c.ID] {
			mark = "x"
		}
		fmt.Fprintf(out, "  [%s] %d. %s\n", mark, i+1, c.Text)
	}

	if f := view.Feedback; f != nil {
		if f.Correct {
			fmt.Fprintln(out, "Bonne réponse !")
		} else {
			fmt.Fprintln(out, "Mauvaise réponse.")
		}
		if f.Explanation != "" {
			fmt.Fprintln(out, f.Explanation)
		}
	}
}
