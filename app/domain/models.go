package domain

import (
	"fmt"
	"strings"
)

// ListingDocument is the structured result of scraping one listing page.
type ListingDocument struct {
	URL         string   `json:"url"`
	Price       string   `json:"price"`
	Address     string   `json:"address"`
	Bedrooms    string   `json:"bedrooms"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
}

// TextChunk is a bounded, overlapping slice of a serialized listing.
// Offset is measured in runes from the start of the source text.
type TextChunk struct {
	Text      string `json:"text"`
	SourceURL string `json:"source_url"`
	Ordinal   int    `json:"ordinal"`
	Offset    int    `json:"offset"`
}

type EmbeddingVector = []float32

const (
	MetadataSourceURL = "source_url"
	MetadataOrdinal   = "ordinal"
)

type VectorRecord struct {
	ID       string
	Vector   EmbeddingVector
	Text     string
	Metadata map[string]any
}

// ScoredText is one retrieval hit. Score is a similarity for cosine/dot
// collections and a distance for euclid collections.
type ScoredText struct {
	Text      string  `json:"text"`
	SourceURL string  `json:"source_url,omitempty"`
	Ordinal   int     `json:"ordinal"`
	Score     float64 `json:"score"`
}

// RetrievalResult is ordered best-first.
type RetrievalResult []ScoredText

type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricEuclid Metric = "euclid"
	MetricDot    Metric = "dot"
)

func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cosine":
		return MetricCosine, nil
	case "euclid", "euclidean":
		return MetricEuclid, nil
	case "dot", "dot_product":
		return MetricDot, nil
	}
	return "", ConfigError("parse_metric", fmt.Sprintf("unknown similarity metric %q", s))
}

// HigherIsBetter reports whether larger scores mean closer vectors.
func (m Metric) HigherIsBetter() bool {
	return m != MetricEuclid
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Thread struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
}
