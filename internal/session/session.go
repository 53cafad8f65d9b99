// A websocket session of Tracker, one per connection.

package session

import (
	"Tracker/internal/entity"
	"Tracker/internal/hub"
	"Tracker/pkg/log"
	"context"
	"errors"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

var (
	// ErrSessionClosed is returned when delivering to a session which is closing or closed.
	ErrSessionClosed = errors.New("session closed")
	// ErrShutdown is the close reason of sessions closed by Service.Shutdown.
	ErrShutdown = errors.New("server shutting down")
)

// Session is owned by the connection which created it, other components only see it as a hub.Member.
type Session struct {
	id        string
	projectID string
	identity  entity.Identity
	group     entity.GroupKey
	state     stateMachine

	svc    *service
	conn   Conn
	send   chan []byte
	logger log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	reason    error
	done      chan struct{}
}

var _ hub.Member = (*Session)(nil)

func newSession(svc *service, projectID string) *Session {
	return &Session{
		id:        uuid.NewString(),
		projectID: projectID,
		svc:       svc,
		done:      make(chan struct{}),
	}
}

func (s *Session) ID() string                { return s.id }
func (s *Session) Identity() entity.Identity { return s.identity }
func (s *Session) Group() entity.GroupKey    { return s.group }
func (s *Session) State() State              { return s.state.get() }

// Done is closed once the session reached StateClosed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Deliver queues msg for the writer, it never writes to the transport itself.
func (s *Session) Deliver(ctx context.Context, msg []byte) error {
	if s.ctx == nil || s.ctx.Err() != nil {
		return ErrSessionClosed
	}
	select {
	case s.send <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return ErrSessionClosed
	}
}

// reply queues a message for this session only.
func (s *Session) reply(msg entity.OutboundMessage) {
	ctx, cancel := context.WithTimeout(s.ctx, s.svc.opts.WriteTimeout)
	defer cancel()
	if err := s.Deliver(ctx, msg.Encode()); errors.Is(err, context.DeadlineExceeded) {
		s.Close(hub.ErrSlowConsumer)
	}
}

// attach binds the accepted transport, the session lives until Close.
func (s *Session) attach(root context.Context, conn Conn) {
	s.conn = conn
	s.send = make(chan []byte, s.svc.opts.SendQueueSize)
	s.ctx, s.cancel = context.WithCancel(root)
	s.logger = s.svc.logger.With(map[string]any{
		"session": s.id,
		"user_id": int64(s.identity.ID),
		"group":   s.group.String(),
	})
}

// readLoop dispatches inbound messages until the transport fails or is closed.
// Reads are bound to the service, not to the session, so Close can still run the close handshake.
func (s *Session) readLoop() {
	for {
		data, err := s.conn.Read(s.svc.root)
		if err != nil {
			s.Close(err)
			return
		}
		if s.ctx.Err() != nil {
			// Closing, keep reading until the close handshake ends the transport
			continue
		}
		s.handle(data)
	}
}

// writeLoop is the only writer of the transport. It drains the queue in order and keeps the connection alive.
func (s *Session) writeLoop() {
	ticker := s.svc.Clock.NewTicker(s.svc.opts.PingInterval, "session", "ping")
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.send:
			if err := s.write(msg); err != nil {
				s.Close(err)
				return
			}
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(s.ctx, s.svc.opts.WriteTimeout)
			err := s.conn.Ping(ctx)
			cancel()
			if err != nil {
				s.Close(err)
				return
			}
		}
	}
}

func (s *Session) write(msg []byte) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.svc.opts.WriteTimeout)
	defer cancel()
	return s.conn.Write(ctx, msg)
}

// Close runs once. Inbound processing is cancelled first, then the cleanup runs to completion
// whatever the reason: leave the group, clear typing presence, tell peers, close the transport.
func (s *Session) Close(reason error) {
	s.closeOnce.Do(func() {
		s.reason = reason
		if !s.state.beginClose() {
			// Never became active. Serve may already have joined, Leave is a no-op otherwise
			s.svc.registry.Leave(s.group, s)
			s.finish(websocket.StatusGoingAway, reason)
			return
		}
		s.cancel()

		s.svc.registry.Leave(s.group, s)
		s.svc.Metrics.SessionsActive.Dec()

		cleared := s.svc.Presence.ClearUser(s.identity.ID)
		if len(cleared) > 0 {
			ctx, cancel := context.WithTimeout(context.Background(), s.svc.opts.WriteTimeout)
			for _, entry := range cleared {
				event := entity.NewTypingEvent(entry.Group, s.identity, entry.BugID, false)
				if err := s.svc.Dispatcher.Publish(ctx, event); err != nil {
					s.logger.Warn().Err(err).Int64("bug_id", int64(entry.BugID)).Msg("Couldn't publish typing stop on close")
				}
			}
			cancel()
		}

		s.finish(closeStatus(reason), reason)
	})
}

func (s *Session) finish(code websocket.StatusCode, reason error) {
	if s.cancel != nil {
		s.cancel()
	}
	if s.conn != nil {
		text := ""
		if code != websocket.StatusNormalClosure && reason != nil {
			text = reason.Error()
		}
		_ = s.conn.Close(code, text)
	}
	// Already closed when the session never became active
	_ = s.state.transition(StateClosed)
	s.svc.forget(s)
	if s.logger != nil {
		s.logger.Info().AnErr("reason", reason).Msg("Session closed")
	}
	close(s.done)
}

func closeStatus(reason error) websocket.StatusCode {
	switch {
	case errors.Is(reason, ErrShutdown):
		return websocket.StatusGoingAway
	case errors.Is(reason, hub.ErrSlowConsumer):
		return websocket.StatusPolicyViolation
	default:
		return websocket.StatusNormalClosure
	}
}
