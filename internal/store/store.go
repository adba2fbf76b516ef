// Package store defines the read-only Artifact Store boundary (C1) and a
// Postgres-backed implementation of it. The core never writes through this
// interface; every method is a read.
package store

import (
	"context"
	"errors"

	"github.com/meetingbrain/assistant/internal/models"
)

// ErrMeetingNotFound is returned by GetTranscriptByID when no meeting with
// the given id exists. Callers treat this as "artifact miss", not an error
// to propagate to the user (§7).
var ErrMeetingNotFound = errors.New("store: meeting not found")

// Row is one row of a rawQuery result, used for the company/contact search
// and ordering queries that don't map to a single named method.
type Row map[string]interface{}

// CompanyMatch is one company-name match from a prefix/substring search.
type CompanyMatch struct {
	CompanyID   string
	CompanyName string
}

// ArtifactStore is the read-only interface the rest of the core depends
// on. Any store offering prefix/substring company search, contact search,
// and recency ordering can implement it; the concrete implementation here
// is Postgres via pgx.
type ArtifactStore interface {
	// GetTranscriptByID returns the full meeting including its ordered
	// chunk list, or ErrMeetingNotFound.
	GetTranscriptByID(ctx context.Context, id string) (*models.Meeting, error)

	// GetChunksForTranscript returns up to limit chunks ordered by
	// chunkIndex. limit <= 0 means "no limit".
	GetChunksForTranscript(ctx context.Context, id string, limit int) ([]models.Chunk, error)

	// GetQAPairsByTranscript returns every QAPair for a meeting,
	// unfiltered and unordered — scoring and tiering is the retriever's
	// job (C2), not the store's.
	GetQAPairsByTranscript(ctx context.Context, id string) ([]models.QAPair, error)

	// GetMeetingActionItemsByTranscript returns every action-item row
	// for a meeting, including confidence == 0 backfill sentinels.
	// Callers must filter confidence > 0 themselves before handing rows to
	// the C2 ActionItems retriever (the orchestrator does so via
	// filterPositiveConfidence), per the external-interface contract in §6.
	GetMeetingActionItemsByTranscript(ctx context.Context, id string) ([]models.ActionItem, error)

	// FindCompaniesByName returns companies whose name matches query by
	// case-insensitive prefix or substring. The Postgres store lists prefix
	// matches first, then orders by name; the fake orders by name only.
	FindCompaniesByName(ctx context.Context, query string) ([]CompanyMatch, error)

	// FindCompaniesByContactName returns companies with at least one
	// meeting whose attendee list contains a name matching query.
	FindCompaniesByContactName(ctx context.Context, query string) ([]CompanyMatch, error)

	// RecentMeetingsForCompany returns up to limit meetings for a
	// company, ordered by COALESCE(meeting_date, created_at) descending.
	RecentMeetingsForCompany(ctx context.Context, companyID string, limit int) ([]models.MeetingContext, error)

	// RecentMeetingsGlobal returns up to limit meetings across every
	// company, same ordering, for the wantsAllCustomers fan-out path.
	RecentMeetingsGlobal(ctx context.Context, limit int) ([]models.MeetingContext, error)

	// SearchChunksByKeyword is the fast path of searchAcrossMeetings: a
	// bounded, keyword-LIKE search over chunks restricted to
	// meetingIDs, returning at most maxPerMeeting excerpts per meeting.
	SearchChunksByKeyword(ctx context.Context, meetingIDs []string, keyword string, maxPerMeeting int) ([]ChunkExcerpt, error)

	// RawQuery is the escape hatch named in §6 for anything not covered
	// by the named methods above.
	RawQuery(ctx context.Context, sql string, params ...interface{}) ([]Row, error)
}

// ChunkExcerpt is one matched-and-truncated transcript excerpt returned by
// the fast search path.
type ChunkExcerpt struct {
	MeetingID string
	Speaker   string
	Role      models.SpeakerRole
	Excerpt   string // truncated, speaker-attributed
}
