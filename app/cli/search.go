package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"GoEstateAI/app/domain"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed listings",
	Long: `Embeds the query and prints the closest listing chunks with their scores.
Scores are similarities for cosine and dot collections and distances for
euclid collections.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 4, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchLimit <= 0 {
		return fmt.Errorf("--limit must be positive, got %d", searchLimit)
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	q, err := s.openQuerySide(cmd.Context())
	if err != nil {
		return err
	}
	defer q.close(s.log)

	results, err := q.retriever.Retrieve(cmd.Context(), args[0], searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	outputSearchTable(cmd, results)
	return nil
}

func outputSearchJSON(cmd *cobra.Command, results domain.RetrievalResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results domain.RetrievalResult) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}
	for i, hit := range results {
		source := hit.SourceURL
		if source == "" {
			source = "(unknown source)"
		}
		cmd.Printf("[%d] %.4f %s #%d\n", i+1, hit.Score, source, hit.Ordinal)
		cmd.Printf("    %s\n\n", snippet(hit.Text, 200))
	}
}

func snippet(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
