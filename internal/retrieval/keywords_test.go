package retrieval

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractKeywordsSeparatesProperNounsFromTopics(t *testing.T) {
	kws := ExtractKeywords("Was pricing discussed with Canadian Tire last Monday?")
	require.Contains(t, kws.ProperNouns, "canadian")
	require.Contains(t, kws.ProperNouns, "tire")
	require.Contains(t, kws.Topics, "pricing")
	require.Contains(t, kws.Topics, "discussed")
	require.NotContains(t, kws.Topics, "last")
	require.NotContains(t, kws.Topics, "monday")
	require.NotContains(t, kws.Topics, "with")
}

func TestExtractKeywordsFirstTokenNeverProperNoun(t *testing.T) {
	kws := ExtractKeywords("Pricing questions about Acme")
	require.NotContains(t, kws.ProperNouns, "pricing")
	require.Contains(t, kws.ProperNouns, "acme")
}

func TestExtractKeywordsIdempotentUnderReExtraction(t *testing.T) {
	first := ExtractKeywords("What did Canadian Tire say about pricing and rollout")
	joined := ""
	for _, w := range first.Topics {
		joined += w + " "
	}
	second := ExtractKeywords(joined)
	require.ElementsMatch(t, first.Topics, second.Topics)
}

func TestScoreRejectsWhenProperNounMissing(t *testing.T) {
	kws := Keywords{ProperNouns: []string{"walmart"}, Topics: []string{"pricing"}}
	require.Equal(t, -1, Score("We discussed pricing extensively.", kws))
}

func TestScoreCountsDistinctMatches(t *testing.T) {
	kws := Keywords{ProperNouns: []string{"walmart"}, Topics: []string{"pricing", "rollout"}}
	require.Equal(t, 2, Score("Walmart asked about pricing timelines.", kws))
}

func TestMinRelevanceWithoutProperNouns(t *testing.T) {
	require.Equal(t, 1, MinRelevance(Keywords{Topics: []string{"pricing"}}))
	require.Equal(t, 2, MinRelevance(Keywords{Topics: []string{"pricing", "rollout"}}))
	require.Equal(t, 2, MinRelevance(Keywords{Topics: []string{"a", "b", "c"}}))
}

func TestMinRelevanceWithProperNouns(t *testing.T) {
	require.Equal(t, 1, MinRelevance(Keywords{ProperNouns: []string{"acme"}, Topics: []string{"a", "b", "c"}}))
}
