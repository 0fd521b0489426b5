package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperationErrorIs(t *testing.T) {
	cause := errors.New("connection reset")
	err := StoreQueryError("search", cause)

	assert.ErrorIs(t, err, ErrStoreQuery)
	assert.NotErrorIs(t, err, ErrStoreWrite)
	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("retrieve context: %w", err)
	assert.ErrorIs(t, wrapped, ErrStoreQuery)
	assert.Equal(t, CodeStoreQuery, CodeOf(wrapped))
}

func TestOperationErrorMessage(t *testing.T) {
	err := StoreWriteError("upsert", "dimension mismatch: expected=1536 got=512", nil)
	assert.Equal(t, "store_write_failed (op=upsert): dimension mismatch: expected=1536 got=512", err.Error())

	err = FetchError("extract", errors.New("timeout"))
	assert.Equal(t, "fetch_failed (op=extract): timeout", err.Error())
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}

func TestParseMetric(t *testing.T) {
	cases := map[string]Metric{
		"cosine":      MetricCosine,
		"Euclidean":   MetricEuclid,
		"euclid":      MetricEuclid,
		"dot_product": MetricDot,
		" dot ":       MetricDot,
	}
	for in, want := range cases {
		got, err := ParseMetric(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMetric("manhattan")
	assert.ErrorIs(t, err, ErrConfig)
}
