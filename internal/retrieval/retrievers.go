package retrieval

import "github.com/meetingbrain/assistant/internal/models"

// MatchType tags which tier a transcript-snippet match fell into, per
// §4.1's three-tier precedence.
type MatchType string

const (
	MatchBoth       MatchType = "both"
	MatchKeyword    MatchType = "keyword"
	MatchProperNoun MatchType = "proper_noun"
)

// Attendees returns a meeting's internal team and customer name lists. The
// comma-separated source fields are already split by the store on read
// (see splitAttendees). Pure: no query, no store access.
func Attendees(m *models.Meeting) (internal []string, customer []string) {
	return m.InternalTeam, m.CustomerNames
}

// tieredMatch classifies one candidate's text against kws, returning its
// tier (3 = both, 2 = keyword only, 1 = proper-noun only, 0 = no match)
// and its score. Tier numbering is highest-precedence-first so callers can
// take the max across a candidate set directly.
func tieredMatch(text string, kws Keywords) (tier int, score int) {
	score = Score(text, kws)
	if score < 0 {
		return 0, score
	}
	hasProper := len(kws.ProperNouns) > 0 && containsAny(text, kws.ProperNouns)
	hasTopic := len(kws.Topics) > 0 && containsAny(text, kws.Topics)
	switch {
	case hasProper && hasTopic:
		return 3, score
	case hasTopic:
		return 2, score
	case hasProper:
		return 1, score
	default:
		return 0, score
	}
}

// QAPairs filters and tiers qaPairs against query, per §4.1: return the
// highest non-empty tier only (both > keyword-only > proper-noun-only). If
// query is empty, all pairs are returned unfiltered.
func QAPairs(qaPairs []models.QAPair, query string) []models.QAPair {
	if query == "" {
		return qaPairs
	}
	kws := ExtractKeywords(query)
	return filterByTopTier(qaPairs, func(qa models.QAPair) string {
		return qa.Question + " " + qa.AnswerEvidence
	}, kws)
}

// ActionItems filters and tiers action items (confidence > 0 already
// assumed filtered by the caller, per the store contract) against query,
// searching over action ⧺ evidence ⧺ owner.
func ActionItems(items []models.ActionItem, query string) []models.ActionItem {
	if query == "" {
		return items
	}
	kws := ExtractKeywords(query)
	return filterByTopTier(items, func(a models.ActionItem) string {
		return a.Action + " " + a.Evidence + " " + a.Owner
	}, kws)
}

// TranscriptSnippet is one chunk tagged with the tier it matched on.
type TranscriptSnippet struct {
	Chunk     models.Chunk
	MatchType MatchType
}

// TranscriptSnippets returns up to limit chunks from the highest non-empty
// match tier, each tagged with its MatchType.
func TranscriptSnippets(chunks []models.Chunk, query string, limit int) []TranscriptSnippet {
	if query == "" {
		out := make([]TranscriptSnippet, 0, minInt(limit, len(chunks)))
		for i, c := range chunks {
			if limit > 0 && i >= limit {
				break
			}
			out = append(out, TranscriptSnippet{Chunk: c, MatchType: MatchBoth})
		}
		return out
	}

	kws := ExtractKeywords(query)
	byTier := map[int][]models.Chunk{}
	bestTier := 0
	for _, c := range chunks {
		tier, score := tieredMatch(c.Content, kws)
		if tier == 0 || score < MinRelevance(kws) {
			continue
		}
		byTier[tier] = append(byTier[tier], c)
		if tier > bestTier {
			bestTier = tier
		}
	}
	if bestTier == 0 {
		return nil
	}

	matchType := tierToMatchType(bestTier)
	chosen := byTier[bestTier]
	if limit > 0 && limit < len(chosen) {
		chosen = chosen[:limit]
	}
	out := make([]TranscriptSnippet, 0, len(chosen))
	for _, c := range chosen {
		out = append(out, TranscriptSnippet{Chunk: c, MatchType: matchType})
	}
	return out
}

func tierToMatchType(tier int) MatchType {
	switch tier {
	case 3:
		return MatchBoth
	case 2:
		return MatchKeyword
	default:
		return MatchProperNoun
	}
}

// filterByTopTier is the shared tiering loop used by QAPairs and
// ActionItems: classify every candidate, find the highest tier with at
// least one passing candidate, and return only that tier's candidates in
// their original order.
func filterByTopTier[T any](items []T, text func(T) string, kws Keywords) []T {
	minScore := MinRelevance(kws)
	byTier := map[int][]T{}
	bestTier := 0
	for _, item := range items {
		tier, score := tieredMatch(text(item), kws)
		if tier == 0 || score < minScore {
			continue
		}
		byTier[tier] = append(byTier[tier], item)
		if tier > bestTier {
			bestTier = tier
		}
	}
	if bestTier == 0 {
		return nil
	}
	return byTier[bestTier]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
