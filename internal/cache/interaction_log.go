package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"

	"github.com/meetingbrain/assistant/internal/models"
)

// InteractionLogStore is the persisted per-thread interaction log the
// core reads (last entry only) and the Assistant Handler appends to once
// per turn. It stores one entry per thread: each Append replaces the
// previous entry, so earlier entries are not kept. It is owned
// conceptually by the chat surface (§6) but the
// concrete storage here is the same Redis instance as the cache, under its
// own key space and TTL.
type InteractionLogStore struct {
	client *redis.Client
	rs     *redsync.Redsync
	ttl    time.Duration
}

const interactionLogKeyPattern = "interaction-log:%s" // interaction-log:threadId
const interactionLogLockPrefix = "interaction-log-lock:"

// defaultInteractionLogTTL keeps threads that have gone cold from
// accumulating forever; a thread with no turns in 90 days loses its
// pending-offer state, which just means the next turn is treated as fresh.
const defaultInteractionLogTTL = 90 * 24 * time.Hour

// NewInteractionLogStore builds a store against client. The redsync
// instance guards appends with a short-lived per-thread lock so a retried
// webhook delivery can't interleave two appends for the same thread even
// if the chat surface's own serialization guarantee is ever violated.
func NewInteractionLogStore(client *redis.Client) *InteractionLogStore {
	pool := goredis.NewPool(client)
	return &InteractionLogStore{
		client: client,
		rs:     redsync.New(pool),
		ttl:    defaultInteractionLogTTL,
	}
}

// Last returns the most recent InteractionLog entry for threadID, or the
// zero-value entry (PendingOffer == OfferNone) if the thread has none yet.
func (s *InteractionLogStore) Last(ctx context.Context, threadID string) (models.InteractionLog, error) {
	key := fmt.Sprintf(interactionLogKeyPattern, threadID)
	raw, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return models.InteractionLog{ThreadID: threadID, PendingOffer: models.OfferNone}, nil
	}
	if err != nil {
		return models.InteractionLog{}, fmt.Errorf("interaction log: get: %w", err)
	}
	var entry models.InteractionLog
	if err := json.Unmarshal(raw, &entry); err != nil {
		return models.InteractionLog{}, fmt.Errorf("interaction log: unmarshal: %w", err)
	}
	return entry, nil
}

// Append writes entry as the new last entry for its thread, overwriting
// the previous one, under a short-lived distributed lock.
func (s *InteractionLogStore) Append(ctx context.Context, entry models.InteractionLog) error {
	mutex := s.rs.NewMutex(interactionLogLockPrefix+entry.ThreadID,
		redsync.WithExpiry(3*time.Second), redsync.WithTries(3))
	if err := mutex.LockContext(ctx); err != nil {
		return fmt.Errorf("interaction log: lock: %w", err)
	}
	defer mutex.UnlockContext(ctx)

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("interaction log: marshal: %w", err)
	}
	key := fmt.Sprintf(interactionLogKeyPattern, entry.ThreadID)
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("interaction log: set: %w", err)
	}
	return nil
}
