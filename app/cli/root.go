package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"GoEstateAI/app/chat"
	"GoEstateAI/app/configs"
	"GoEstateAI/app/logger"
	"GoEstateAI/app/rag"
	"GoEstateAI/app/storage"
)

var (
	configPath string
	verbose    bool
)

// newVectorStore is swapped in tests so that separate commands share one
// in-memory collection.
var newVectorStore = func(cfg *configs.Config, log *logger.Logger) (rag.VectorStore, error) {
	return cfg.BuildVectorStore(log)
}

var rootCmd = &cobra.Command{
	Use:   "goestate",
	Short: "Property listing assistant with retrieval-augmented answers",
	Long: `GoEstateAI scrapes property listings into a vector collection and answers
questions about them, grounding every reply in the indexed listings.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

type session struct {
	cfg *configs.Config
	log *logger.Logger
}

func openSession() (*session, error) {
	_ = godotenv.Load()

	cfg, err := configs.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := cfg.BuildLogger(verbose)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return &session{cfg: cfg, log: log}, nil
}

func (s *session) close() {
	s.log.Sync()
}

// querySide wires the retrieval and generation path used by the query commands.
type querySide struct {
	vectors   rag.VectorStore
	retriever *rag.Retriever
	history   storage.Interface
	generator *chat.Generator
}

func (s *session) openQuerySide(ctx context.Context) (*querySide, error) {
	vectors, err := newVectorStore(s.cfg, s.log)
	if err != nil {
		return nil, err
	}
	history, err := s.cfg.BuildConversationStore(ctx, s.log)
	if err != nil {
		_ = vectors.Close()
		return nil, err
	}
	llm := s.cfg.BuildLLM(s.log)
	retriever := rag.NewRetriever(llm, vectors, s.cfg.VectorStore.Collection, s.log)
	return &querySide{
		vectors:   vectors,
		retriever: retriever,
		history:   history,
		generator: s.cfg.BuildGenerator(history, retriever, llm, s.log),
	}, nil
}

func (q *querySide) close(log *logger.Logger) {
	if err := q.history.Close(); err != nil {
		log.Warn("⚠️ closing conversation store", "error", err)
	}
	if err := q.vectors.Close(); err != nil {
		log.Warn("⚠️ closing vector store", "error", err)
	}
}
