package tasks

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"aurenix/internal/events"
	"aurenix/internal/models"
)

type AuditWriter interface {
	Insert(ctx context.Context, event models.AuthEvent) error
}

// AuditProcessor persists auth events read from the stream.
type AuditProcessor struct {
	writer AuditWriter
	logger zerolog.Logger
}

func NewAuditProcessor(writer AuditWriter, logger zerolog.Logger) *AuditProcessor {
	return &AuditProcessor{
		writer: writer,
		logger: logger,
	}
}

// Handle returns nil for malformed entries so they are acked instead of
// redelivered forever.
func (p *AuditProcessor) Handle(ctx context.Context, msg redis.XMessage) error {
	event, err := events.Decode(msg)
	if err != nil {
		p.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("dropping malformed auth event")
		return nil
	}

	if err := p.writer.Insert(ctx, event); err != nil {
		return fmt.Errorf("record %s: %w", event.Type, err)
	}

	p.logger.Debug().
		Str("message_id", msg.ID).
		Str("event", string(event.Type)).
		Str("user_id", event.UserID).
		Msg("auth event recorded")
	return nil
}
