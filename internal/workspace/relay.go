package workspace

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ws "github.com/gokatarajesh/paper-builder/pkg/http/ws"
)

const defaultRelayChannel = "draft:updates"

type pubSub interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// relayEnvelope is one draft update on the Pub/Sub channel.
type relayEnvelope struct {
	StaffID uuid.UUID  `json:"staff_id"`
	DraftID string     `json:"draft_id"`
	Message ws.Message `json:"message"`
}

// Relay fans draft updates out through Redis Pub/Sub so the API instance holding
// the staff member's websocket delivers them.
type Relay struct {
	redis   pubSub
	local   Notifier
	channel string
	logger  zerolog.Logger
}

var _ Notifier = (*Relay)(nil)

// NewRelay creates a relay that delivers to local (usually the ws hub).
func NewRelay(redis pubSub, local Notifier, channel string, logger zerolog.Logger) *Relay {
	if channel == "" {
		channel = defaultRelayChannel
	}
	return &Relay{
		redis:   redis,
		local:   local,
		channel: channel,
		logger:  logger.With().Str("component", "draft_relay").Logger(),
	}
}

// NotifyDraft publishes the update. If Redis rejects it the update is delivered
// to local connections only.
func (r *Relay) NotifyDraft(staffID uuid.UUID, draftID string, msg ws.Message) error {
	data, err := json.Marshal(relayEnvelope{StaffID: staffID, DraftID: draftID, Message: msg})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.redis.Publish(ctx, r.channel, data).Err(); err != nil {
		r.logger.Warn().Err(err).Str("draft_id", draftID).Msg("publish draft update failed, delivering locally")
		return r.local.NotifyDraft(staffID, draftID, msg)
	}
	return nil
}

// Run subscribes to the update channel and blocks until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.redis.Subscribe(ctx, r.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.forward(msg.Payload)
		}
	}
}

func (r *Relay) forward(payload string) {
	var env relayEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		r.logger.Warn().Err(err).Msg("failed to decode draft update")
		return
	}
	if err := r.local.NotifyDraft(env.StaffID, env.DraftID, env.Message); err != nil {
		r.logger.Debug().Err(err).Str("draft_id", env.DraftID).Msg("draft update not delivered")
	}
}
