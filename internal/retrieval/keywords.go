// Package retrieval implements the Evidence Retrievers (C2): pure
// functions turning a meeting's artifacts plus an optional query into
// scored, tiered candidate lists. Nothing in this package touches the
// artifact store or an LLM — callers fetch rows and hand them in.
package retrieval

import (
	"regexp"
	"strings"
)

// Keywords is the result of extracting query terms: proper nouns (likely
// named entities) and topic keywords, always disjoint.
type Keywords struct {
	ProperNouns []string // lowercased, for case-insensitive matching
	Topics      []string // lowercased
}

// stopWords is the frozen generic-English + temporal-reference set. Tokens
// in this set are never treated as topic keywords.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true, "this": true,
	"from": true, "have": true, "has": true, "had": true, "was": true, "were": true,
	"are": true, "been": true, "being": true, "what": true, "when": true, "where": true,
	"which": true, "who": true, "whom": true, "why": true, "how": true, "did": true,
	"does": true, "about": true, "into": true, "over": true, "under": true, "they": true,
	"them": true, "their": true, "there": true, "these": true, "those": true, "than": true,
	"then": true, "some": true, "such": true, "only": true, "also": true, "just": true,
	"would": true, "could": true, "should": true, "will": true, "shall": true, "can": true,
	"your": true, "you": true, "our": true, "out": true, "any": true, "all": true,
	"not": true, "but": true, "its": true, "it's": true,

	// Days of the week.
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,

	// Temporal meeting-reference words — these point at "which meeting",
	// not "what topic", so they must never contribute a topic-keyword
	// match on their own.
	"last": true, "latest": true, "recent": true, "previous": true,
	"meeting": true, "call": true, "sync": true,
}

// properNounPattern matches a capitalized word token: an upper-case letter
// followed by one or more lower-case letters, and nothing else.
var properNounPattern = regexp.MustCompile(`^[A-Z][a-z]+$`)

var nonLetter = regexp.MustCompile(`[^a-zA-Z]`)

// ExtractKeywords splits query into proper nouns and topic keywords per
// §4.1: proper nouns are capitalized tokens that are not the sentence's
// first word; topic keywords are what's left after lowercasing, stripping
// non-letters, and dropping short tokens and stop words. The two sets are
// disjoint by construction.
func ExtractKeywords(query string) Keywords {
	rawTokens := strings.Fields(query)

	properSet := map[string]bool{}
	for i, tok := range rawTokens {
		if i == 0 {
			continue // sentence-first token is never treated as a proper noun
		}
		clean := strings.Trim(tok, ".,!?;:\"'()")
		if properNounPattern.MatchString(clean) {
			properSet[strings.ToLower(clean)] = true
		}
	}

	seen := map[string]bool{}
	var topics []string
	for _, tok := range rawTokens {
		lower := strings.ToLower(nonLetter.ReplaceAllString(tok, ""))
		if len(lower) <= 3 {
			continue
		}
		if stopWords[lower] {
			continue
		}
		if properSet[lower] {
			continue // proper nouns and keywords are disjoint
		}
		if seen[lower] {
			continue
		}
		seen[lower] = true
		topics = append(topics, lower)
	}

	var proper []string
	for p := range properSet {
		proper = append(proper, p)
	}

	return Keywords{ProperNouns: proper, Topics: topics}
}

// containsAny reports whether text contains any of terms, case-insensitive.
func containsAny(text string, terms []string) bool {
	lower := strings.ToLower(text)
	for _, t := range terms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// Score counts the distinct keywords-or-proper-nouns that appear as a
// case-insensitive substring of text. If kws has proper nouns and text
// matches none of them, the candidate is rejected outright (-1), per the
// "prevents false-confidence answers" rationale in §4.1.
func Score(text string, kws Keywords) int {
	lower := strings.ToLower(text)

	if len(kws.ProperNouns) > 0 && !containsAny(lower, kws.ProperNouns) {
		return -1
	}

	count := 0
	for _, p := range kws.ProperNouns {
		if strings.Contains(lower, p) {
			count++
		}
	}
	for _, k := range kws.Topics {
		if strings.Contains(lower, k) {
			count++
		}
	}
	return count
}

// MinRelevance is the minimum passing score for kws. With proper nouns
// present the bar is 1 (the proper-noun containment check in Score already
// does the heavy lifting). Without proper nouns, a single keyword match is
// not enough once the query has more than one topic keyword to offer —
// requiring both keywords to land is what keeps a company-name-only match
// from masquerading as an on-topic one.
func MinRelevance(kws Keywords) int {
	if len(kws.ProperNouns) > 0 {
		return 1
	}
	if len(kws.Topics) < 2 {
		return 1
	}
	return 2
}

// HasProperNouns is a small convenience used by callers that only need to
// know whether the query carried any named entities.
func (k Keywords) HasProperNouns() bool {
	return len(k.ProperNouns) > 0
}

// Empty reports whether the query produced no usable query terms at all.
func (k Keywords) Empty() bool {
	return len(k.ProperNouns) == 0 && len(k.Topics) == 0
}
