package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"aurenix/internal/metrics"
	"aurenix/internal/models"
)

// RoleGate assigns a role by area: entering the customer or seller area makes
// the account a customer or seller, whatever it was before. Concurrent visits
// to different areas resolve last write wins.
type RoleGate struct {
	users   UserStore
	events  EventPublisher
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func NewRoleGate(users UserStore, events EventPublisher, m *metrics.Metrics, log zerolog.Logger) *RoleGate {
	if events == nil {
		events = noopPublisher{}
	}
	return &RoleGate{users: users, events: events, metrics: m, log: log}
}

// Enter returns identity as it stands inside area, writing the role only
// when it differs.
func (g *RoleGate) Enter(ctx context.Context, identity Identity, area models.UserRole) (Identity, error) {
	if !area.Valid() {
		return identity, fmt.Errorf("unknown role area %q", area)
	}
	if identity.Role == area {
		return identity, nil
	}

	changed, err := g.users.UpdateRole(ctx, identity.UserID, area)
	if err != nil {
		return identity, err
	}
	if changed {
		g.metrics.RoleChange(string(area))
		g.events.Publish(ctx, models.AuthEvent{
			Type:   models.AuthEventRoleChanged,
			UserID: identity.UserID,
			Email:  identity.Email,
			Detail: fmt.Sprintf("%s->%s", identity.Role, area),
		})
		g.log.Info().
			Str("user_id", identity.UserID).
			Str("from", string(identity.Role)).
			Str("to", string(area)).
			Msg("role changed")
	}
	return identity.WithRole(area), nil
}
