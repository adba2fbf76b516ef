// Package detect implements the Question Shape Detectors (C3): pure,
// deterministic, regex-driven classifiers over a user's turn. Nothing here
// touches the store or an LLM — these are fast paths the orchestrator tries
// before reaching for anything expensive.
package detect

import (
	"regexp"
	"strings"
)

var (
	attendTokens   = regexp.MustCompile(`\b(attendees?|attendance|participants?)\b`)
	attendVariant  = regexp.MustCompile(`\battend(ed|ing|s)?\b`)
	attendLeadWord = regexp.MustCompile(`\b(who|how|anyone|was|were)\b`)
	presencePhrase = regexp.MustCompile(`\b(on the call|in the (meeting|room)|present|dial(l|)ed in|show(ed)? up|join(ed)?)\b`)
)

// IsAttendee reports whether query asks about who was present.
func IsAttendee(query string) bool {
	q := normalize(query)
	if attendTokens.MatchString(q) {
		return true
	}
	if attendLeadWord.MatchString(q) && attendVariant.MatchString(q) {
		return true
	}
	if attendLeadWord.MatchString(q) && presencePhrase.MatchString(q) {
		return true
	}
	return false
}

var actionItemPhrases = []string{
	"next steps", "action item", "todo", "to-do", "follow-up", "followup",
	"commitment", "what did we agree", "who's responsible", "whos responsible",
	"what's next", "whats next",
}

var judgmentPhrase = regexp.MustCompile(`\bshould we (mention|bring|discuss)\b`)

// IsActionItem reports whether query asks about commitments or next steps.
func IsActionItem(query string) bool {
	q := normalize(query)
	for _, p := range actionItemPhrases {
		if strings.Contains(q, p) {
			return true
		}
	}
	return judgmentPhrase.MatchString(q)
}

var binaryLead = regexp.MustCompile(`^(is|was|are|were|do|does|did|has|have|had) (there|we|they|he|she|it|you|anyone|someone)\b`)
var binaryPassiveAux = regexp.MustCompile(`\b(was|were|is|are|has|have)\b`)
var binaryPassiveVerb = regexp.MustCompile(`\b(discussed|mentioned|covered|addressed|raised)\b`)

// IsBinary reports whether query reads as a yes/no existential question:
// either it opens with an auxiliary + existential/pronoun, or it is a
// passive-voice construction naming one of discussed/mentioned/covered/
// addressed/raised somewhere after an auxiliary verb — the subject between
// the two (e.g. "Was Walmart discussed?") can be any length.
func IsBinary(query string) bool {
	q := normalize(query)
	if binaryLead.MatchString(q) {
		return true
	}
	aux := binaryPassiveAux.FindStringIndex(q)
	verb := binaryPassiveVerb.FindStringIndex(q)
	return aux != nil && verb != nil && aux[0] < verb[0]
}

var binarySubjectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bmeeting (?:with|about|for|regarding) (.+)$`),
	regexp.MustCompile(`\bwas (.+?) discussed\b`),
	regexp.MustCompile(`\bdid (?:we|they|anyone) (?:discuss|mention|cover|address|raise|bring up|talk about) (.+)$`),
}

// ExtractBinarySubject pulls the subject out of a binary question, trying
// each pattern in order and returning the first match, trimmed of trailing
// punctuation. Returns "" if none apply.
func ExtractBinarySubject(query string) string {
	q := normalize(query)
	for _, pat := range binarySubjectPatterns {
		if m := pat.FindStringSubmatch(q); len(m) == 2 {
			return strings.Trim(m[1], " ?.!")
		}
	}
	return ""
}

var ambiguityPhrases = []string{
	"preparing for", "prepare for", "brief me for", "brief me on",
}
var ambiguityAskPattern = regexp.MustCompile(`what should i (cover|know|remember)\b`)
var beforeMeetingPattern = regexp.MustCompile(`\bbefore (the|our|my|this|that) meeting\b`)

// AmbiguityResult carries the outcome of DetectAmbiguity.
type AmbiguityResult struct {
	IsAmbiguous        bool
	ClarificationPrompt string
}

// DetectAmbiguity recognizes preparation/briefing phrasings that name no
// specific meeting and therefore need a clarifying turn before anything
// else runs.
func DetectAmbiguity(query string) AmbiguityResult {
	q := normalize(query)
	fired := ambiguityAskPattern.MatchString(q) || beforeMeetingPattern.MatchString(q)
	if !fired {
		for _, p := range ambiguityPhrases {
			if strings.Contains(q, p) {
				fired = true
				break
			}
		}
	}
	if !fired {
		return AmbiguityResult{}
	}
	return AmbiguityResult{
		IsAmbiguous:         true,
		ClarificationPrompt: "Which meeting did you want me to look at? Share the company or a rough date and I'll pull it up.",
	}
}

var acceptancePhrases = map[string]bool{
	"yes": true, "sure": true, "ok": true, "okay": true, "please": true,
	"go ahead": true, "yes please": true, "sure thing": true,
}
var declinePhrases = map[string]bool{
	"no": true, "nope": true, "nah": true, "never mind": true,
	"no thanks": true, "cancel": true,
}

// OfferResponse is the result of matching a turn against a pending offer.
type OfferResponse int

const (
	OfferResponseNone OfferResponse = iota
	OfferResponseAccept
	OfferResponseDecline
)

var punctuationTrim = regexp.MustCompile(`[.!?,;:]+$`)

// DetectOfferResponse matches a trimmed, punctuation-stripped turn against
// the fixed acceptance/decline phrase lists. Only exact matches count —
// this is deliberately narrow so an unrelated follow-up question falls
// through rather than being swallowed as a reply to the offer.
func DetectOfferResponse(turn string) OfferResponse {
	q := strings.ToLower(strings.TrimSpace(turn))
	q = punctuationTrim.ReplaceAllString(q, "")
	q = strings.TrimSpace(q)
	if acceptancePhrases[q] {
		return OfferResponseAccept
	}
	if declinePhrases[q] {
		return OfferResponseDecline
	}
	return OfferResponseNone
}

var topicLeadIn = regexp.MustCompile(`\b(?:about|regarding|related to|concerning|discuss|talk about|mentioned|ask about)\s+(.+)$`)
var nonTopicWords = map[string]bool{
	"the": true, "this": true, "that": true, "meeting": true, "call": true,
	"it": true, "them": true, "anything": true, "something": true,
}

// ExtractTopic captures the noun phrase following a topic lead-in word,
// filtered against a small non-topic list. Returns "" if nothing usable
// of at least 3 characters remains.
func ExtractTopic(query string) string {
	q := normalize(query)
	m := topicLeadIn.FindStringSubmatch(q)
	if len(m) != 2 {
		return ""
	}
	topic := strings.Trim(m[1], " ?.!")
	topic = strings.TrimSuffix(topic, " with them")
	if len(topic) < 3 {
		return ""
	}
	if nonTopicWords[topic] {
		return ""
	}
	return topic
}

var properNounToken = regexp.MustCompile(`\b[A-Z][a-zA-Z]*(?:\s+[A-Z][a-zA-Z]*)*\b`)
var acronymToken = regexp.MustCompile(`\b[A-Z]{2,10}\b`)
var quotedToken = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)

var ambiguousAcronyms = map[string]bool{
	"roi": true, "tv": true, "api": true, "it": true,
}

var functionWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "from": true, "what": true, "when": true, "where": true,
	"who": true, "why": true, "how": true, "did": true, "does": true,
	"about": true, "was": true, "were": true, "are": true, "have": true,
}

// ExtractSearchTerms collects candidate entity terms from the raw (not
// lowercased) query: proper nouns, standalone acronyms, and quoted phrases.
// Common function words and a small set of ambiguous acronyms are dropped.
func ExtractSearchTerms(rawQuery string) []string {
	seen := map[string]bool{}
	var terms []string

	add := func(term string) {
		term = strings.TrimSpace(term)
		if term == "" {
			return
		}
		lower := strings.ToLower(term)
		if functionWords[lower] {
			return
		}
		if ambiguousAcronyms[lower] {
			return
		}
		if seen[lower] {
			return
		}
		seen[lower] = true
		terms = append(terms, term)
	}

	for _, m := range quotedToken.FindAllStringSubmatch(rawQuery, -1) {
		if m[1] != "" {
			add(m[1])
		} else {
			add(m[2])
		}
	}

	fields := strings.Fields(rawQuery)
	for i, tok := range fields {
		clean := strings.Trim(tok, ".,!?;:\"'()")
		if clean == "" {
			continue
		}
		if acronymToken.MatchString(clean) && clean == strings.ToUpper(clean) {
			add(clean)
			continue
		}
		if i == 0 {
			continue // sentence-first capitalization is not a signal
		}
		if properNounToken.MatchString(clean) && clean[0] >= 'A' && clean[0] <= 'Z' {
			add(clean)
		}
	}

	return terms
}

var wantsAllCustomersPhrases = []string{
	"all customers", "across customers", "every company", "all companies", "across all customers",
}

// WantsAllCustomers reports whether query asks for a fan-out across the
// whole corpus rather than one company.
func WantsAllCustomers(query string) bool {
	q := normalize(query)
	for _, p := range wantsAllCustomersPhrases {
		if strings.Contains(q, p) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
