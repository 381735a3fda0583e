package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/txplore/txplore"
)

// envelope wraps an event on the wire with the publishing process id so
// a bridge never re-injects its own traffic.
type envelope struct {
	Origin string        `json:"origin"`
	Event  txplore.Event `json:"event"`
}

// SignalService extends the in-process notifier across processes via
// redis pub/sub. Local publishes are mirrored to redis; events from
// other processes are fed back into the local notifier so their
// observers see them like any local change.
type SignalService struct {
	rdb    *redis.Client
	local  *Notifier
	origin string
}

func NewSignalService(rdb *redis.Client, local *Notifier) *SignalService {
	return &SignalService{
		rdb:    rdb,
		local:  local,
		origin: uuid.NewString(),
	}
}

// Publish delivers ev locally, then mirrors it to redis. Redis failures
// are logged, not surfaced: the local fan-out already happened and the
// mutation itself succeeded.
func (s *SignalService) Publish(ctx context.Context, topic string, ev txplore.Event) {
	s.local.Publish(ctx, topic, ev)

	ev.Topic = topic
	payload, err := json.Marshal(envelope{Origin: s.origin, Event: ev})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to marshal event",
			slog.String("error", err.Error()),
			slog.String("module", "signal"),
		)
		return
	}

	err = s.rdb.Publish(ctx, topic, payload).Err()
	if err != nil {
		slog.ErrorContext(ctx, "Failed to publish event to redis",
			slog.String("error", err.Error()),
			slog.String("topic", topic),
			slog.String("module", "signal"),
		)
	}
}

// Listen consumes remote events until ctx is cancelled. Run it on its
// own goroutine.
func (s *SignalService) Listen(ctx context.Context) {
	pubsub := s.rdb.Subscribe(ctx, txplore.TopicPosts, txplore.TopicPost, txplore.TopicTransactions)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				slog.ErrorContext(ctx, "Failed to decode remote event",
					slog.String("error", err.Error()),
					slog.String("module", "signal"),
				)
				continue
			}
			if env.Origin == s.origin {
				continue
			}
			s.local.Publish(ctx, msg.Channel, env.Event)
		}
	}
}
