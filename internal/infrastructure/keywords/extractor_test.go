package keywords

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `Distributed databases replicate data across many machines.
A distributed database keeps replicas consistent with a consensus protocol.
The consensus protocol elects a leader, and the leader orders every write.
Databases that favour availability accept stale reads during a network partition.`

func TestExtractTagsEmptyInput(t *testing.T) {
	t.Parallel()

	tags := NewExtractor(0).ExtractTags("   \n\t ")
	require.NotNil(t, tags)
	assert.Empty(t, tags)
}

func TestExtractTagsContentAddressedAndDeduplicated(t *testing.T) {
	t.Parallel()

	tags := NewExtractor(5).ExtractTags(sample)
	require.NotEmpty(t, tags)
	assert.LessOrEqual(t, len(tags), 10)

	seen := map[string]bool{}
	for _, tag := range tags {
		assert.Equal(t, tag.Name, tag.ID)
		assert.Equal(t, strings.ToLower(tag.Name), tag.Name)
		assert.False(t, seen[tag.Name], "duplicate tag %q", tag.Name)
		seen[tag.Name] = true
	}
	assert.True(t, seen["leader"] || seen["protocol"] || seen["databases"], "expected a frequent noun, got %v", tags)
}

func TestExtractTagsIsDeterministic(t *testing.T) {
	t.Parallel()

	e := NewExtractor(5)
	assert.Equal(t, e.ExtractTags(sample), e.ExtractTags(sample))
}

func TestKeyphraseScores(t *testing.T) {
	t.Parallel()

	toks := []token{
		{text: "consensus", tag: "NN"},
		{text: "protocol", tag: "NN"},
		{text: "is", tag: "VBZ"},
		{text: "a", tag: "DT"},
		{text: "robust", tag: "JJ"},
		{text: "consensus", tag: "NN"},
		{text: "protocol", tag: "NN"},
		{text: "design", tag: "NN"},
		{text: "quick", tag: "JJ"},
		{text: "of", tag: "IN"},
	}

	got := top(keyphraseScores(toks), 5)
	require.Len(t, got, 2)
	assert.Equal(t, "robust consensus protocol design", got[0].term)
	assert.Equal(t, "consensus protocol", got[1].term)
}

func TestKeywordScoresSkipsShortAndStopwords(t *testing.T) {
	t.Parallel()

	toks := []token{
		{text: "go", tag: "NN"},
		{text: "things", tag: "NNS"},
		{text: "compiler", tag: "NN"},
		{text: "compiler", tag: "NN"},
		{text: "runtime", tag: "NN"},
	}

	got := top(keywordScores(toks), 5)
	require.Len(t, got, 2)
	assert.Equal(t, "compiler", got[0].term)
	assert.Equal(t, "runtime", got[1].term)
}
