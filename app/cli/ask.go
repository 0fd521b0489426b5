package cli

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"GoEstateAI/app/chat"
)

var askThread string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask one question about the indexed listings",
	Long: `Answers a single question from the indexed listings. Pass --thread to
continue an earlier conversation; otherwise a new thread is started.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askThread, "thread", "t", "", "conversation thread id")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
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

	thread := askThread
	if thread == "" {
		thread = uuid.NewString()
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), s.cfg.RequestTimeout())
	defer cancel()

	reply, err := q.generator.Generate(ctx, thread, strings.Join(args, " "))
	if err != nil {
		cmd.PrintErrln(chat.UserFacingError(err))
		return err
	}
	cmd.Println(reply)
	s.log.Debug("answered", "thread", thread)
	return nil
}
