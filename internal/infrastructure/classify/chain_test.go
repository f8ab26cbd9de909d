package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContentEnricher/internal/domain"
)

type labelModel struct {
	label string
	err   error
	calls int
}

func (m *labelModel) ClassifyText(context.Context, string, string) (string, error) {
	m.calls++
	return m.label, m.err
}

func (m *labelModel) ClassifyImage(context.Context, string) (string, error) {
	m.calls++
	return m.label, m.err
}

func TestModelChainFallsThrough(t *testing.T) {
	t.Parallel()

	down := &labelModel{err: errors.New("503")}
	confused := &labelModel{label: "Podcast"}
	good := &labelModel{label: "video"}
	never := &labelModel{label: "Tweet"}

	label, err := ModelChain{down, confused, good, never}.ClassifyText(context.Background(), "u", "t")
	require.NoError(t, err)
	assert.Equal(t, domain.ContentTypeVideo, label)
	assert.Equal(t, 0, never.calls)
}

func TestModelChainEmptyIsUnavailable(t *testing.T) {
	t.Parallel()

	_, err := ModelChain{nil}.ClassifyImage(context.Background(), "u")
	assert.ErrorIs(t, err, domain.ErrInferenceUnavailable)
}

func TestModelChainJoinsErrors(t *testing.T) {
	t.Parallel()

	_, err := ModelChain{
		&labelModel{err: domain.ErrInferenceUnavailable},
		&labelModel{label: "???"},
	}.ClassifyText(context.Background(), "u", "t")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInferenceUnavailable)
	assert.Contains(t, err.Error(), "unknown label")
}
