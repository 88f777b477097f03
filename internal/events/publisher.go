package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"aurenix/internal/models"
)

// Publisher appends auth events to a redis stream for the audit worker.
type Publisher struct {
	client *redis.Client
	stream string
	log    zerolog.Logger
}

func NewPublisher(client *redis.Client, stream string, log zerolog.Logger) *Publisher {
	return &Publisher{client: client, stream: stream, log: log}
}

// Publish is best effort: the request that produced the event never fails
// because the stream is unavailable.
func (p *Publisher) Publish(ctx context.Context, event models.AuthEvent) {
	if p == nil || p.client == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: 100000,
		Approx: true,
		Values: Encode(event),
	}).Err()
	if err != nil {
		p.log.Warn().Err(err).
			Str("event", string(event.Type)).
			Str("user_id", event.UserID).
			Msg("publish auth event failed")
	}
}

func Encode(event models.AuthEvent) map[string]any {
	return map[string]any{
		"type":   string(event.Type),
		"userId": event.UserID,
		"email":  event.Email,
		"detail": event.Detail,
		"at":     event.At.UTC().Format(time.RFC3339Nano),
	}
}

// Decode rebuilds an event from a stream entry; the entry id becomes the event id.
func Decode(msg redis.XMessage) (models.AuthEvent, error) {
	str := func(key string) string {
		v, _ := msg.Values[key].(string)
		return v
	}

	eventType := str("type")
	if eventType == "" {
		return models.AuthEvent{}, fmt.Errorf("message %s: missing type", msg.ID)
	}
	at, err := time.Parse(time.RFC3339Nano, str("at"))
	if err != nil {
		return models.AuthEvent{}, fmt.Errorf("message %s: parse time: %w", msg.ID, err)
	}

	return models.AuthEvent{
		ID:     msg.ID,
		Type:   models.AuthEventType(eventType),
		UserID: str("userId"),
		Email:  str("email"),
		Detail: str("detail"),
		At:     at,
	}, nil
}
