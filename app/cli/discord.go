package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"GoEstateAI/app/clients"
)

var discordCmd = &cobra.Command{
	Use:   "discord",
	Short: "Serve the configured chat clients",
	Long: `Connects every enabled client from the clients section of the config file
and answers incoming messages until interrupted. Each Discord channel keeps
its own conversation thread.`,
	Args: cobra.NoArgs,
	RunE: runDiscord,
}

func init() {
	rootCmd.AddCommand(discordCmd)
}

func runDiscord(cmd *cobra.Command, _ []string) error {
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

	registry := clients.NewRegistry(s.log)
	if err := s.cfg.InitializeClients(registry, q.generator, s.log); err != nil {
		registry.CloseAll()
		return err
	}
	defer registry.CloseAll()
	if len(registry.GetAll()) == 0 {
		return errors.New("no chat clients enabled")
	}

	s.log.Info("🟢 serving chat clients, press Ctrl+C to stop", "clients", len(registry.GetAll()))
	<-cmd.Context().Done()
	s.log.Info("🛑 shutting down chat clients")
	return nil
}
