// Package external declares the narrow collaborator interfaces named in
// the external-interfaces contract: the web research service and the
// product knowledge service. Both are optional — a nil implementation is a
// valid "not configured" state that callers must handle, not an error.
package external

import "context"

// ResearchResult is the web research service's answer, always carrying
// citations when confidence is non-zero.
type ResearchResult struct {
	Answer     string
	Citations  []Citation
	Confidence float64
}

// Citation is a single source reference returned by the web research
// service; mandatory whenever a contract requires citation.
type Citation struct {
	Source  string
	URL     string
	Date    string
	Snippet string
}

// WebResearcher looks up external information not present in any meeting
// transcript. Optional collaborator — nil means "no web research
// configured", and callers must degrade gracefully rather than error.
type WebResearcher interface {
	Research(ctx context.Context, query string, companyHint string, topicHint string) (ResearchResult, error)
}

// ProductKnowledge is a structured snapshot of product facts. Never treated
// as ambient authority unless a contract declares ssotMode=authoritative
// AND this service actually returned data (§4.5's authority gate).
type ProductKnowledge struct {
	Facts    []string
	AsOf     string
	Verified bool
}

// ProductKnowledgeService returns the current product knowledge snapshot.
// Optional collaborator — nil means no product SSOT is configured, which
// the Contract Executor's authority gate must treat as "not verified".
type ProductKnowledgeService interface {
	Snapshot(ctx context.Context) (ProductKnowledge, error)
}
