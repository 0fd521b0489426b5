package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "List stored conversation threads",
	Args:  cobra.NoArgs,
	RunE:  runThreads,
}

func init() {
	rootCmd.AddCommand(threadsCmd)
}

func runThreads(cmd *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	store, err := s.cfg.BuildConversationStore(cmd.Context(), s.log)
	if err != nil {
		return err
	}
	defer store.Close()

	ids, err := store.Threads(cmd.Context())
	if err != nil {
		return fmt.Errorf("list threads: %w", err)
	}
	if len(ids) == 0 {
		cmd.Println("No threads stored.")
		return nil
	}
	for _, id := range ids {
		history, err := store.History(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("read thread %s: %w", id, err)
		}
		cmd.Printf("%s\t%d messages\n", id, len(history))
	}
	return nil
}
