// Broadcast dispatcher of Tracker, delivers events to every member of a group.

package hub

import (
	"Tracker/internal/entity"
	"Tracker/internal/metrics"
	"Tracker/pkg/log"
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrSlowConsumer is the reason given to members dropped for not draining their queue in time.
var ErrSlowConsumer = errors.New("slow consumer")

// Options tune the local fan-out.
type Options struct {
	// DeliveryTimeout bounds each delivery to a single member.
	DeliveryTimeout time.Duration
	// Concurrency bounds the deliveries running at once for one event.
	Concurrency int
	// DropSlowConsumers closes members whose delivery timed out.
	DropSlowConsumers bool
}

// Dispatcher publishes through a Broker and fans the events it receives back out to the local Registry.
type Dispatcher struct {
	registry *Registry
	broker   Broker
	opts     Options
	metrics  *metrics.Metrics
	logger   log.Logger
}

// NewDispatcher subscribes the local fan-out on broker.
func NewDispatcher(ctx context.Context, registry *Registry, broker Broker, opts Options, m *metrics.Metrics, logger log.Logger) (*Dispatcher, error) {
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = 500 * time.Millisecond
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 64
	}
	d := &Dispatcher{registry: registry, broker: broker, opts: opts, metrics: m, logger: logger}
	if err := broker.Subscribe(ctx, d.deliverLocal); err != nil {
		return nil, err
	}
	return d, nil
}

// Publish hands the event to the broker. Delivery failures never reach the caller,
// only a broker failure does.
func (d *Dispatcher) Publish(ctx context.Context, event entity.BroadcastEvent) error {
	d.metrics.EventsPublished.WithLabelValues(string(event.Kind)).Inc()
	return d.broker.Publish(ctx, event)
}

// deliverLocal returns once every member has the event queued, or was given up on.
func (d *Dispatcher) deliverLocal(ctx context.Context, event entity.BroadcastEvent) {
	members := d.registry.MembersOf(event.Group)
	if len(members) == 0 {
		return
	}
	wire, err := event.Wire()
	if err != nil {
		d.logger.WithCtx(ctx).Error().Err(err).Str("kind", string(event.Kind)).Str("group", event.Group.String()).Msg("Couldn't encode broadcast event")
		return
	}

	var g errgroup.Group
	g.SetLimit(d.opts.Concurrency)
	for _, member := range members {
		if event.SuppressFor(member.Identity()) {
			d.metrics.Deliveries.WithLabelValues(metrics.DeliverySuppressed).Inc()
			continue
		}
		member := member
		g.Go(func() error {
			d.deliver(ctx, member, wire)
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, member Member, wire []byte) {
	dctx, cancel := context.WithTimeout(ctx, d.opts.DeliveryTimeout)
	defer cancel()
	err := member.Deliver(dctx, wire)
	switch {
	case err == nil:
		d.metrics.Deliveries.WithLabelValues(metrics.DeliveryOK).Inc()
	case errors.Is(err, context.DeadlineExceeded):
		d.metrics.Deliveries.WithLabelValues(metrics.DeliveryTimeout).Inc()
		d.logger.Warn().Str("member", member.ID()).Str("group", member.Group().String()).Msg("Delivery timed out")
		if d.opts.DropSlowConsumers {
			// Closing runs the member's cleanup, which may publish itself
			go member.Close(ErrSlowConsumer)
		}
	default:
		d.metrics.Deliveries.WithLabelValues(metrics.DeliveryFailed).Inc()
		d.logger.Debug().Err(err).Str("member", member.ID()).Msg("Delivery skipped")
	}
}

// Registry returns the registry the dispatcher delivers to.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}
