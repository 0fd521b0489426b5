package cli

import (
	"bufio"
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"GoEstateAI/app/chat"
)

var chatThread string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive conversation about the indexed listings",
	Long: `Reads questions line by line from standard input and answers each one
within the same conversation thread. Type "exit" or "quit" to leave.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatThread, "thread", "t", "", "conversation thread id (default: a new thread)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
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

	thread := chatThread
	if thread == "" {
		thread = uuid.NewString()
	}
	cmd.Printf("💬 thread %s\n", thread)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		cmd.Print("> ")
		if !scanner.Scan() {
			cmd.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if cmd.Context().Err() != nil {
			return cmd.Context().Err()
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), s.cfg.RequestTimeout())
		reply, err := q.generator.Generate(ctx, thread, line)
		cancel()
		if err != nil {
			s.log.Error("❌ Error answering message", "thread", thread, "error", err)
			cmd.Println(chat.UserFacingError(err))
			continue
		}
		cmd.Println(reply)
	}
}
