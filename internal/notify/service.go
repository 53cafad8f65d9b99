// Publishes domain events from the CRUD layer to every session watching a project.

package notify

import (
	"Tracker/internal/entity"
	"Tracker/pkg/log"
	"context"
	"errors"
	"fmt"
)

// ErrUnknownKind is returned for kinds the CRUD layer is not allowed to publish.
var ErrUnknownKind = errors.New("unknown domain event kind")

// Publisher fans an event out to a group, satisfied by *hub.Dispatcher.
type Publisher interface {
	Publish(ctx context.Context, event entity.BroadcastEvent) error
}

// Service is the fire and forget entry point for bug_created, bug_updated, comment_added and activity events.
type Service interface {
	// PublishDomainEvent never waits on receivers, an empty group is not an error.
	PublishDomainEvent(ctx context.Context, group entity.GroupKey, kind entity.EventKind, payload any) error
}

type service struct {
	publisher Publisher
	logger    log.Logger
}

func NewService(publisher Publisher, logger log.Logger) Service {
	return service{publisher, logger}
}

func (s service) PublishDomainEvent(ctx context.Context, group entity.GroupKey, kind entity.EventKind, payload any) error {
	if _, ok := entity.ParseDomainKind(string(kind)); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	event, err := entity.NewDomainEvent(group, kind, payload)
	if err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithCtx(ctx).Error().Err(err).Str("group", string(group)).Str("kind", string(kind)).
			Msg("Error occured during execution of Publish() in notify.PublishDomainEvent")
		return err
	}
	s.logger.WithCtx(ctx).Debug().Str("group", string(group)).Str("kind", string(kind)).Msg("Domain event published")
	return nil
}
