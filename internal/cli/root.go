package cli

import "github.com/spf13/cobra"

// NewRootCmd assembles the supportbotd command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "supportbotd",
		Short:         "Knowledge-grounded support chat",
		Long:          "Support chat daemon answering customer questions from a published knowledge document",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	AddHelpJSONFlag(rootCmd)
	AddConfigFlags(rootCmd)
	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(ChunksCmd())
	rootCmd.AddCommand(AskCmd())

	return rootCmd
}
