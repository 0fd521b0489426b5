package rag

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"GoEstateAI/app/domain"
	"GoEstateAI/app/logger"
)

const payloadText = "text"

var _ VectorStore = &QdrantStore{}

type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

type QdrantStore struct {
	client *qdrant.Client
	log    *logger.Logger

	mu   sync.RWMutex
	dims map[string]int
}

func NewQdrantStore(cfg QdrantConfig, log *logger.Logger) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, domain.NewError(domain.CodeConfig, "new_qdrant_store", "connect", err)
	}
	return &QdrantStore{
		client: client,
		log:    log.With("component", "qdrant"),
		dims:   make(map[string]int),
	}, nil
}

func qdrantDistance(m domain.Metric) qdrant.Distance {
	switch m {
	case domain.MetricEuclid:
		return qdrant.Distance_Euclid
	case domain.MetricDot:
		return qdrant.Distance_Dot
	default:
		return qdrant.Distance_Cosine
	}
}

// CreateCollection is idempotent. An existing collection, including one
// created concurrently by another process, counts as success.
func (s *QdrantStore) CreateCollection(ctx context.Context, name string, dimension int, metric domain.Metric) error {
	if dimension <= 0 {
		return domain.ConfigError("create_collection", fmt.Sprintf("dimension must be positive, got %d", dimension))
	}
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return domain.StoreWriteError("create_collection", "check existence", err)
	}
	if exists {
		s.log.Debug("collection already exists", "collection", name)
		return s.warnOnSchemaDrift(ctx, name, dimension, metric)
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(dimension),
					Distance: qdrantDistance(metric),
				},
			},
		},
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return domain.StoreWriteError("create_collection", name, err)
	}
	s.log.Info("📦 collection ready", "collection", name, "dimension", dimension, "metric", metric)

	s.mu.Lock()
	s.dims[name] = dimension
	s.mu.Unlock()
	return nil
}

// warnOnSchemaDrift logs when an existing collection was declared with other
// settings than the ones requested now. The stored schema wins.
func (s *QdrantStore) warnOnSchemaDrift(ctx context.Context, name string, dimension int, metric domain.Metric) error {
	size, distance, err := s.describe(ctx, name)
	if err != nil {
		return domain.StoreWriteError("create_collection", "describe existing collection", err)
	}
	if size != dimension || distance != qdrantDistance(metric) {
		s.log.Warn("⚠️ existing collection differs from configuration",
			"collection", name, "stored_dimension", size, "stored_distance", distance.String(),
			"wanted_dimension", dimension, "wanted_metric", metric)
	}
	return nil
}

func (s *QdrantStore) describe(ctx context.Context, name string) (int, qdrant.Distance, error) {
	info, err := s.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return 0, 0, err
	}
	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil {
		return 0, 0, errors.New("collection has no single unnamed vector")
	}
	size := int(params.GetSize())
	s.mu.Lock()
	s.dims[name] = size
	s.mu.Unlock()
	return size, params.GetDistance(), nil
}

func (s *QdrantStore) dimension(ctx context.Context, name string) (int, error) {
	s.mu.RLock()
	d, ok := s.dims[name]
	s.mu.RUnlock()
	if ok {
		return d, nil
	}
	d, _, err := s.describe(ctx, name)
	return d, err
}

// Upsert validates the vector length against the collection before writing.
func (s *QdrantStore) Upsert(ctx context.Context, collection string, record domain.VectorRecord) error {
	dim, err := s.dimension(ctx, collection)
	if err != nil {
		return domain.StoreWriteError("upsert", "resolve collection dimension", err)
	}
	if len(record.Vector) != dim {
		return domain.StoreWriteError("upsert",
			fmt.Sprintf("dimension mismatch: expected=%d got=%d", dim, len(record.Vector)), nil)
	}

	id := record.ID
	if id == "" {
		id = uuid.New().String()
	}
	payload := map[string]any{payloadText: record.Text}
	for k, v := range record.Metadata {
		payload[k] = v
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(id),
			Vectors: qdrant.NewVectors(record.Vector...),
			Payload: qdrant.NewValueMap(payload),
		}},
	})
	if err != nil {
		return domain.StoreWriteError("upsert", "", err)
	}
	return nil
}

// Search returns an empty result for an empty or not yet created collection.
func (s *QdrantStore) Search(ctx context.Context, collection string, vector domain.EmbeddingVector, topK int) (domain.RetrievalResult, error) {
	if topK <= 0 {
		return domain.RetrievalResult{}, nil
	}
	limit := uint64(topK)
	resp, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Limit:          &limit,
		Query:          qdrant.NewQuery(vector...),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			s.log.Warn("⚠️ searched a collection that does not exist yet", "collection", collection)
			return domain.RetrievalResult{}, nil
		}
		return nil, domain.StoreQueryError("search", err)
	}

	out := make(domain.RetrievalResult, 0, len(resp))
	for _, r := range resp {
		hit := domain.ScoredText{Score: float64(r.GetScore())}
		for key, v := range r.GetPayload() {
			switch key {
			case payloadText:
				hit.Text = v.GetStringValue()
			case domain.MetadataSourceURL:
				hit.SourceURL = v.GetStringValue()
			case domain.MetadataOrdinal:
				hit.Ordinal = int(v.GetIntegerValue())
			}
		}
		out = append(out, hit)
	}
	return out, nil
}

func (s *QdrantStore) DeleteBySource(ctx context.Context, collection, sourceURL string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(domain.MetadataSourceURL, sourceURL)},
		}),
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return domain.StoreWriteError("delete_by_source", sourceURL, err)
	}
	return nil
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}
