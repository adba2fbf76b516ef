package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/meetingbrain/assistant/internal/cache"
	"github.com/meetingbrain/assistant/internal/logging"
	"github.com/meetingbrain/assistant/internal/models"
)

// CachedStore wraps an ArtifactStore with a cache-aside read for meeting
// metadata: GetTranscriptByID is re-read per meeting by the resolver's
// SearchAcrossMeetings slow path and by the executor's ATTENDEES evidence
// fetch, so it is the read worth fronting with cache.RedisCache's
// ristretto L1 + Redis L2. Every other method passes straight through —
// QAPairs and ActionItems are read live every turn.
type CachedStore struct {
	ArtifactStore
	cache  cache.Cache
	logger zerolog.Logger
}

// NewCachedStore builds a CachedStore fronting inner with c.
func NewCachedStore(inner ArtifactStore, c cache.Cache) *CachedStore {
	return &CachedStore{ArtifactStore: inner, cache: c, logger: logging.For("store")}
}

// GetTranscriptByID checks the cache before falling through to the
// wrapped store, and populates the cache on a miss. A cache read failure
// is treated as a miss and a write failure is logged; neither is returned
// to the caller — the wrapped store is always
// the source of truth, so a cache outage degrades to every read going
// straight through, never to a wrong answer.
func (s *CachedStore) GetTranscriptByID(ctx context.Context, id string) (*models.Meeting, error) {
	key := fmt.Sprintf(cache.MeetingMetaKeyPattern, id)

	var cached models.Meeting
	if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	meeting, err := s.ArtifactStore.GetTranscriptByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, key, meeting, &cache.MeetingMetaTTL); err != nil {
		s.logger.Debug().Err(err).Str("meeting_id", id).Msg("failed to populate meeting metadata cache")
	}
	return meeting, nil
}
