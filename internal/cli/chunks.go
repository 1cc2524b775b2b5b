package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/cloo-solutions/supportbot/internal/domain"
	"github.com/spf13/cobra"
)

// ChunksCmd returns the chunks command
func ChunksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunks",
		Short: "List the sections parsed from the knowledge document",
		Long: `Fetch the knowledge document once and print the parsed sections.
With --query each section is scored against the query the way /chat ranks them.`,
		RunE: runChunks,
	}

	cmd.Flags().StringP("query", "q", "", "Score sections against this question")
	cmd.Flags().Bool("json", false, "Print sections as JSON")

	return usesConfig(cmd)
}

type chunkRow struct {
	Index   int    `json:"index"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Score   *int   `json:"score,omitempty"`
}

func runChunks(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pipeline, err := NewKnowledgePipeline(cfg, logger, nil)
	if err != nil {
		return err
	}

	chunks, err := pipeline.Cache.GetChunks(cmd.Context())
	if err != nil {
		return err
	}

	query, _ := cmd.Flags().GetString("query")
	rows := chunkRows(chunks, query, pipeline.Ranker.Score)

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	return writeChunkTable(cmd.OutOrStdout(), rows)
}

func chunkRows(chunks []domain.KnowledgeChunk, query string, score func(string, []domain.KnowledgeChunk) []domain.ScoredChunk) []chunkRow {
	if strings.TrimSpace(query) == "" {
		rows := make([]chunkRow, len(chunks))
		for i, chunk := range chunks {
			rows[i] = chunkRow{Index: i, Title: chunk.Title, Content: chunk.Content}
		}
		return rows
	}

	scored := score(query, chunks)
	rows := make([]chunkRow, len(scored))
	for i, sc := range scored {
		s := sc.Score
		rows[i] = chunkRow{Index: sc.Index, Title: sc.Chunk.Title, Content: sc.Chunk.Content, Score: &s}
	}
	return rows
}

func writeChunkTable(out io.Writer, rows []chunkRow) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSCORE\tTITLE\tCONTENT")
	for _, row := range rows {
		score := "-"
		if row.Score != nil {
			score = fmt.Sprint(*row.Score)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", row.Index, score, row.Title, preview(row.Content, 60))
	}
	return tw.Flush()
}

func preview(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-3]) + "..."
}
