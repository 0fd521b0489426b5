package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"GoEstateAI/app/domain"
	"GoEstateAI/app/logger"
	"GoEstateAI/app/scraper"
)

type ListingSource interface {
	Extract(ctx context.Context, listingURL string) (*scraper.Extraction, error)
	DiscoverListingURLs(ctx context.Context, page int) ([]string, error)
}

type Embedder interface {
	EmbedText(ctx context.Context, input string) ([]float32, error)
}

type PipelineOptions struct {
	Collection string
	// ReplaceExisting deletes the records of a listing before re-inserting it.
	// When false a re-run appends duplicates.
	ReplaceExisting bool
}

// Pipeline runs extract, serialize, chunk, embed and upsert for each listing,
// one listing at a time.
type Pipeline struct {
	source   ListingSource
	chunker  *Chunker
	embedder Embedder
	store    VectorStore
	opts     PipelineOptions
	log      *logger.Logger
}

func NewPipeline(source ListingSource, chunker *Chunker, embedder Embedder, store VectorStore,
	opts PipelineOptions, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NewNop()
	}
	return &Pipeline{
		source:   source,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		opts:     opts,
		log:      log.With("component", "pipeline"),
	}
}

// Discover collects listing URLs from index pages 1..pages, stopping at the
// first page that yields none. Links already seen on earlier pages are skipped.
func (p *Pipeline) Discover(ctx context.Context, pages int) ([]string, error) {
	seen := make(map[string]struct{})
	var urls []string
	for page := 1; page <= pages; page++ {
		links, err := p.source.DiscoverListingURLs(ctx, page)
		if err != nil {
			if len(urls) == 0 {
				return nil, err
			}
			p.log.Warn("⚠️ discovery stopped early", "page", page, "error", err)
			return urls, nil
		}
		if len(links) == 0 {
			p.log.Info("🛑 index exhausted or blocked", "page", page)
			break
		}
		for _, l := range links {
			if _, ok := seen[l]; ok {
				continue
			}
			seen[l] = struct{}{}
			urls = append(urls, l)
		}
	}
	return urls, nil
}

// Run ingests every URL. A failing listing is logged and counted; it never
// stops the run.
func (p *Pipeline) Run(ctx context.Context, urls []string) Report {
	report := Report{Collection: p.opts.Collection, Started: time.Now()}
	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			p.log.Warn("🚨 ingestion interrupted", "processed", i, "remaining", len(urls)-i)
			report.Interrupted = err
			break
		}
		item := p.ingest(ctx, u)
		if item.Err != nil {
			report.Failed++
			p.log.Error("❌ listing failed", "url", u, "code", domain.CodeOf(item.Err), "error", item.Err)
		} else {
			report.Succeeded++
			p.log.Info("✅ listing ingested", "url", u, "chunks", item.Chunks, "warnings", len(item.Warnings))
		}
		report.Items = append(report.Items, item)
	}
	report.Finished = time.Now()
	p.log.Info("📊 ingestion finished", "succeeded", report.Succeeded, "failed", report.Failed,
		"took", report.Finished.Sub(report.Started).String())
	return report
}

func (p *Pipeline) ingest(ctx context.Context, listingURL string) ItemResult {
	item := ItemResult{URL: listingURL}

	ext, err := p.source.Extract(ctx, listingURL)
	if err != nil {
		item.Err = err
		return item
	}
	for _, w := range ext.Warnings {
		item.Warnings = append(item.Warnings, w.Field)
	}
	if ext.Empty() {
		item.Err = ext.ParseError()
		return item
	}

	chunks := p.chunker.Split(Serialize(ext.Document), listingURL)
	records := make([]domain.VectorRecord, 0, len(chunks))
	for _, ch := range chunks {
		vec, err := p.embedder.EmbedText(ctx, ch.Text)
		if err != nil {
			item.Err = fmt.Errorf("chunk %d: %w", ch.Ordinal, err)
			return item
		}
		records = append(records, domain.VectorRecord{
			ID:     uuid.New().String(),
			Vector: vec,
			Text:   ch.Text,
			Metadata: map[string]any{
				domain.MetadataSourceURL: ch.SourceURL,
				domain.MetadataOrdinal:   ch.Ordinal,
			},
		})
	}

	// Prior records go only once every chunk has an embedding.
	if p.opts.ReplaceExisting {
		if err = p.store.DeleteBySource(ctx, p.opts.Collection, listingURL); err != nil {
			item.Err = err
			return item
		}
	}

	for i, rec := range records {
		if err = p.store.Upsert(ctx, p.opts.Collection, rec); err != nil {
			item.Err = fmt.Errorf("chunk %d: %w", chunks[i].Ordinal, err)
			return item
		}
		item.Chunks++
	}
	return item
}

// Serialize renders a listing as labeled sections. Empty fields are omitted.
func Serialize(doc domain.ListingDocument) string {
	var sb strings.Builder
	line := func(label, v string) {
		if v != "" {
			fmt.Fprintf(&sb, "%s: %s\n", label, v)
		}
	}
	line("Price", doc.Price)
	line("Address", doc.Address)
	line("Bedrooms", doc.Bedrooms)
	if doc.Description != "" {
		fmt.Fprintf(&sb, "\nDescription:\n%s\n", doc.Description)
	}
	if len(doc.Features) > 0 {
		sb.WriteString("\nFeatures:\n")
		for _, f := range doc.Features {
			fmt.Fprintf(&sb, "- %s\n", f)
		}
	}
	if doc.URL != "" {
		fmt.Fprintf(&sb, "\nListing: %s\n", doc.URL)
	}
	return strings.TrimSpace(sb.String())
}
