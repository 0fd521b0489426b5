package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"GoEstateAI/app/rag"
)

var ingestPages int

var ingestCmd = &cobra.Command{
	Use:   "ingest [listing-url...]",
	Short: "Scrape listings into the vector collection",
	Long: `Scrapes property listings, splits them into chunks, embeds each chunk and
stores it in the configured collection.

Listing URLs come from the arguments, then ingest.urls in the config file,
and otherwise from walking the index pages of scraper.index_url_template.
A listing that fails is reported and skipped.`,
	Args: cobra.ArbitraryArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().IntVarP(&ingestPages, "pages", "p", 0, "index pages to walk (0 uses ingest.pages)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()
	ctx := cmd.Context()

	spec, err := s.cfg.CollectionSpec()
	if err != nil {
		return err
	}
	store, err := newVectorStore(s.cfg, s.log)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := rag.EnsureCollection(ctx, store, spec, s.log); err != nil {
		return err
	}

	extractor, err := s.cfg.BuildExtractor(s.log)
	if err != nil {
		return err
	}
	pipeline, err := s.cfg.BuildPipeline(extractor, s.cfg.BuildLLM(s.log), store, s.log)
	if err != nil {
		return err
	}

	urls := args
	if len(urls) == 0 {
		urls = s.cfg.Ingest.URLs
	}
	if len(urls) == 0 {
		pages := ingestPages
		if pages <= 0 {
			pages = s.cfg.Ingest.Pages
		}
		if urls, err = pipeline.Discover(ctx, pages); err != nil {
			return fmt.Errorf("discover listings: %w", err)
		}
	}
	if len(urls) == 0 {
		return errors.New("no listing URLs to ingest")
	}

	s.log.Info("🚀 ingesting listings", "count", len(urls), "collection", spec.Name)
	report := pipeline.Run(ctx, urls)
	cmd.Println(report.Tree())
	return report.Err()
}
