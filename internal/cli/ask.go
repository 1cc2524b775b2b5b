package cli

import (
	"fmt"
	"strings"

	"github.com/cloo-solutions/supportbot/internal/metrics"
	"github.com/spf13/cobra"
)

// AskCmd returns the ask command
func AskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question through the full pipeline",
		Long:  "Fetch the knowledge document, rank sections and ask the completion provider, exactly as POST /chat does.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}

	cmd.Flags().StringP("session", "s", "", "Session id (defaults to the shared default session)")
	cmd.Flags().Bool("show-sections", false, "Print the grounding tier and section titles used")

	return usesConfig(cmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pipeline, err := NewPipeline(cfg, logger, metrics.New(), nil)
	if err != nil {
		return err
	}

	session, _ := cmd.Flags().GetString("session")
	answer, err := pipeline.Dialogue.Answer(cmd.Context(), session, strings.Join(args, " "))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if show, _ := cmd.Flags().GetBool("show-sections"); show {
		fmt.Fprintf(out, "grounding: %s\n", answer.Grounding)
		for _, title := range answer.Sections {
			fmt.Fprintf(out, "  - %s\n", title)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, answer.Text)
	return nil
}
