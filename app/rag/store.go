package rag

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"GoEstateAI/app/domain"
	"GoEstateAI/app/logger"
)

// VectorStore is the gateway to a vector index. Search results are ordered
// best-first: descending similarity for cosine/dot, ascending distance for euclid.
type VectorStore interface {
	CreateCollection(ctx context.Context, name string, dimension int, metric domain.Metric) error
	Upsert(ctx context.Context, collection string, record domain.VectorRecord) error
	Search(ctx context.Context, collection string, vector domain.EmbeddingVector, topK int) (domain.RetrievalResult, error)
	DeleteBySource(ctx context.Context, collection, sourceURL string) error
	Close() error
}

type CollectionSpec struct {
	Name           string
	Dimension      int
	Metric         domain.Metric
	EmbeddingModel string
	// StrictMetric turns a model/metric mismatch into a ConfigError instead of a warning.
	StrictMetric bool
}

type embeddingProfile struct {
	maxDimension int
	metrics      []domain.Metric
}

// OpenAI embeddings are unit length, so cosine and dot rank identically.
var embeddingProfiles = map[string]embeddingProfile{
	"text-embedding-3-small": {maxDimension: 1536, metrics: []domain.Metric{domain.MetricCosine, domain.MetricDot}},
	"text-embedding-3-large": {maxDimension: 3072, metrics: []domain.Metric{domain.MetricCosine, domain.MetricDot}},
	"text-embedding-ada-002": {maxDimension: 1536, metrics: []domain.Metric{domain.MetricCosine, domain.MetricDot}},
}

// CheckCompatibility validates the declared metric and dimension against the
// embedding model's intended comparison. Unknown models are not checked.
func CheckCompatibility(spec CollectionSpec, log *logger.Logger) error {
	profile, ok := embeddingProfiles[strings.ToLower(spec.EmbeddingModel)]
	if !ok {
		log.Debug("no embedding profile, skipping metric check", "model", spec.EmbeddingModel)
		return nil
	}

	var problems []string
	if !slices.Contains(profile.metrics, spec.Metric) {
		problems = append(problems, fmt.Sprintf("metric %q is not suited to model %s (use one of %v)",
			spec.Metric, spec.EmbeddingModel, profile.metrics))
	}
	if spec.Dimension > profile.maxDimension {
		problems = append(problems, fmt.Sprintf("dimension %d exceeds %d produced by model %s",
			spec.Dimension, profile.maxDimension, spec.EmbeddingModel))
	}
	if len(problems) == 0 {
		return nil
	}

	msg := strings.Join(problems, "; ")
	if spec.StrictMetric {
		return domain.ConfigError("check_collection", msg)
	}
	log.Warn("⚠️ collection settings look inconsistent with the embedding model", "collection", spec.Name, "problem", msg)
	return nil
}

// EnsureCollection runs the compatibility check and creates the collection if absent.
func EnsureCollection(ctx context.Context, store VectorStore, spec CollectionSpec, log *logger.Logger) error {
	if err := CheckCompatibility(spec, log); err != nil {
		return err
	}
	return store.CreateCollection(ctx, spec.Name, spec.Dimension, spec.Metric)
}

func recordMetadata(record domain.VectorRecord) (string, int) {
	src, _ := record.Metadata[domain.MetadataSourceURL].(string)
	ord, _ := record.Metadata[domain.MetadataOrdinal].(int)
	return src, ord
}
