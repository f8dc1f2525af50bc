package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/paper-builder/internal/bank"
	"github.com/gokatarajesh/paper-builder/internal/paper"
	"github.com/gokatarajesh/paper-builder/internal/selection"
)

// Draft is a paper being edited plus its open selection round.
type Draft struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`
	PaperID string `json:"paperId,omitempty"`
	// ReservedPaperID is the id the first save writes under.
	ReservedPaperID string             `json:"reservedPaperId,omitempty"`
	Document        paper.Document     `json:"document"`
	Selection       *selection.Session `json:"selection"`
	Filters         *bank.Query        `json:"filters,omitempty"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// ErrLockHeld is returned when another request holds the draft lock.
var ErrLockHeld = errors.New("lock already held")

type draftStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// StateManager keeps drafts in Redis with atomic per-draft locks.
type StateManager struct {
	redis   draftStore
	ttl     time.Duration
	lockTTL time.Duration
	logger  zerolog.Logger
}

// NewStateManager creates a state manager backed by Redis. Zero durations take
// defaults of 24h for drafts and 30s for locks.
func NewStateManager(redis draftStore, ttl, lockTTL time.Duration, logger zerolog.Logger) *StateManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &StateManager{
		redis:   redis,
		ttl:     ttl,
		lockTTL: lockTTL,
		logger:  logger,
	}
}

func draftKey(draftID string) string {
	return fmt.Sprintf("draft:state:%s", draftID)
}

// LockDraft acquires the in-flight lock for op on a draft. The returned func
// releases it only if it is still ours.
func (s *StateManager) LockDraft(ctx context.Context, draftID, op string) (func() error, error) {
	key := fmt.Sprintf("draft:lock:%s:%s", draftID, op)
	lockValue := uuid.New().String()

	acquired, err := s.redis.SetNX(ctx, key, lockValue, s.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		return nil, ErrLockHeld
	}

	unlock := func() error {
		// Lua script ensures we only delete our own lock
		script := `
			if redis.call("get", KEYS[1]) == ARGV[1] then
				return redis.call("del", KEYS[1])
			else
				return 0
			end
		`
		return s.redis.Eval(context.WithoutCancel(ctx), script, []string{key}, lockValue).Err()
	}

	return unlock, nil
}

// StoreDraft saves the draft and refreshes its TTL.
func (s *StateManager) StoreDraft(ctx context.Context, d *Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	return s.redis.Set(ctx, draftKey(d.ID), data, s.ttl).Err()
}

// GetDraft retrieves a draft. A missing or expired draft returns nil, nil.
func (s *StateManager) GetDraft(ctx context.Context, draftID string) (*Draft, error) {
	data, err := s.redis.Get(ctx, draftKey(draftID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}

	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal draft: %w", err)
	}
	if d.Selection == nil {
		d.Selection = selection.New()
	}
	return &d, nil
}

// DeleteDraft drops a draft.
func (s *StateManager) DeleteDraft(ctx context.Context, draftID string) error {
	return s.redis.Del(ctx, draftKey(draftID)).Err()
}
