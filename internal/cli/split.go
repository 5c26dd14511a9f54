package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"stfc-quiz-service/internal/content"
)

// NewSplitCmd prints the segments of a post body as JSON.
func NewSplitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "split [file]",
		Short: "Split post HTML on embedded quiz markers",
		Long:  "Reads post HTML from a file (or stdin) and prints its HTML and quiz segments as JSON.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			html, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read html: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(content.Split(string(html)))
		},
	}
}
