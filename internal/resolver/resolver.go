// Package resolver implements the Meeting Resolver (C4): turns a user
// message plus a routing classification into the bounded set of meetings
// the rest of the turn should operate on.
package resolver

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/meetingbrain/assistant/internal/config"
	"github.com/meetingbrain/assistant/internal/detect"
	"github.com/meetingbrain/assistant/internal/models"
	"github.com/meetingbrain/assistant/internal/store"
)

// maxSlowPathFanout bounds how many meetings the slow search path will run
// the single-meeting orchestrator over in parallel, per §5's concurrency
// model.
const maxSlowPathFanout = 5

// Resolution is the Meeting Resolver's public result: the bounded meeting
// set plus what the resolver searched for, for observability.
type Resolution struct {
	Meetings   []models.MeetingContext
	SearchedFor string
	Topic      string
}

// Resolve implements §4.3's algorithm: wantsAllCustomers fan-out, else
// search-term-driven company lookup, else significant-word fallback, else
// contact-name search, fetching up to cfg.MaxMeetingsPerCompany meetings per
// matched company.
func Resolve(ctx context.Context, st store.ArtifactStore, cfg config.Config, userMessage string) (Resolution, error) {
	topic := detect.ExtractTopic(userMessage)

	if detect.WantsAllCustomers(userMessage) {
		meetings, err := st.RecentMeetingsGlobal(ctx, cfg.MaxTotalTranscripts)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{Meetings: meetings, SearchedFor: "all customers", Topic: topic}, nil
	}

	terms := detect.ExtractSearchTerms(userMessage)

	var companies []store.CompanyMatch
	var searchedFor string
	var err error

	if len(terms) > 0 {
		companies, searchedFor, err = searchByTerms(ctx, st, terms)
		if err != nil {
			return Resolution{}, err
		}
	}

	if len(companies) == 0 {
		companies, searchedFor, err = significantWordFallback(ctx, st, userMessage)
		if err != nil {
			return Resolution{}, err
		}
	}

	if len(companies) == 0 {
		companies, err = st.FindCompaniesByContactName(ctx, userMessage)
		if err != nil {
			return Resolution{}, err
		}
		if len(companies) > 0 {
			searchedFor = "contact match"
		}
	}

	if len(companies) == 0 {
		return Resolution{SearchedFor: searchedFor, Topic: topic}, nil
	}

	var meetings []models.MeetingContext
	for _, c := range dedupCompanies(companies) {
		ms, err := st.RecentMeetingsForCompany(ctx, c.CompanyID, cfg.MaxMeetingsPerCompany)
		if err != nil {
			return Resolution{}, err
		}
		meetings = append(meetings, ms...)
	}

	return Resolution{Meetings: meetings, SearchedFor: searchedFor, Topic: topic}, nil
}

// searchByTerms tries each extracted search term as a case-insensitive
// prefix/substring company name match, stopping at the first term that
// yields any hit.
func searchByTerms(ctx context.Context, st store.ArtifactStore, terms []string) ([]store.CompanyMatch, string, error) {
	for _, term := range terms {
		matches, err := st.FindCompaniesByName(ctx, term)
		if err != nil {
			return nil, "", err
		}
		if len(matches) > 0 {
			return matches, term, nil
		}
	}
	return nil, strings.Join(terms, ", "), nil
}

var significantWordSplit = regexp.MustCompile(`[^a-zA-Z0-9]+`)

var resolverStopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true, "this": true,
	"from": true, "what": true, "when": true, "where": true, "which": true, "who": true,
	"about": true, "discussed": true, "mentioned": true, "meeting": true, "call": true,
}

// significantWordFallback implements the "strip punctuation, drop
// stopwords, keep length >= 3, use the first five" fallback from §4.3 when
// no search term produced a company match.
func significantWordFallback(ctx context.Context, st store.ArtifactStore, userMessage string) ([]store.CompanyMatch, string, error) {
	words := significantWordSplit.Split(strings.ToLower(userMessage), -1)
	var kept []string
	for _, w := range words {
		if len(w) < 3 || resolverStopWords[w] {
			continue
		}
		kept = append(kept, w)
		if len(kept) == 5 {
			break
		}
	}

	var companies []store.CompanyMatch
	for _, w := range kept {
		matches, err := st.FindCompaniesByName(ctx, w)
		if err != nil {
			return nil, "", err
		}
		companies = append(companies, matches...)
	}
	return dedupCompanies(companies), strings.Join(kept, ", "), nil
}

func dedupCompanies(in []store.CompanyMatch) []store.CompanyMatch {
	seen := map[string]bool{}
	var out []store.CompanyMatch
	for _, c := range in {
		if seen[c.CompanyID] {
			continue
		}
		seen[c.CompanyID] = true
		out = append(out, c)
	}
	return out
}

// SingleMeetingAnswerer is the subset of the Single-Meeting Orchestrator
// the slow search path needs. Declared here (rather than importing the
// orchestrator package directly) so the resolver depends only on the
// narrow interface it actually calls.
type SingleMeetingAnswerer interface {
	Answer(ctx context.Context, meeting *models.Meeting, question string, hasPendingOffer bool, contract models.Contract, requiresSemantic bool) (models.Result, error)
}

// SearchAcrossMeetings implements §4.3's searchAcrossMeetings: a fast
// keyword-LIKE path when topic is present, else a bounded parallel
// slow path over the single-meeting orchestrator.
func SearchAcrossMeetings(ctx context.Context, st store.ArtifactStore, answerer SingleMeetingAnswerer, meetings []models.MeetingContext, topic string, rawMessage string) ([]store.ChunkExcerpt, []models.Result, error) {
	if topic != "" {
		ids := make([]string, 0, len(meetings))
		for _, m := range meetings {
			ids = append(ids, m.MeetingID)
		}
		excerpts, err := st.SearchChunksByKeyword(ctx, ids, topic, 3)
		if err != nil {
			return nil, nil, err
		}
		return excerpts, nil, nil
	}

	subset := meetings
	if len(subset) > maxSlowPathFanout {
		subset = subset[:maxSlowPathFanout]
	}

	results := make([]models.Result, len(subset))
	var wg sync.WaitGroup
	for i, mc := range subset {
		wg.Add(1)
		go func(i int, mc models.MeetingContext) {
			defer wg.Done()
			meeting, err := st.GetTranscriptByID(ctx, mc.MeetingID)
			if err != nil {
				results[i] = models.NotFound("")
				return
			}
			res, err := answerer.Answer(ctx, meeting, rawMessage, false, models.ContractExtractiveFact, false)
			if err != nil {
				results[i] = models.NotFound("")
				return
			}
			results[i] = res
		}(i, mc)
	}
	wg.Wait()

	var nonEmpty []models.Result
	for _, r := range results {
		if r.DataSource != models.DataSourceNotFound {
			nonEmpty = append(nonEmpty, r)
		}
	}
	return nil, nonEmpty, nil
}
