// Service layer of the internal package session, runs the handshake and the lifecycle of websocket sessions.

package session

import (
	"Tracker/internal/access"
	"Tracker/internal/auth"
	"Tracker/internal/entity"
	"Tracker/internal/hub"
	"Tracker/internal/metrics"
	"Tracker/internal/presence"
	"Tracker/internal/user"
	"Tracker/pkg/log"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/coder/websocket"
)

// ErrRejected is returned by Open for every refused handshake, the reason stays server side.
var ErrRejected = errors.New("handshake rejected")

// Options bound the resources of a single session.
type Options struct {
	MaxMessageBytes int64
	SendQueueSize   int
	PingInterval    time.Duration
	WriteTimeout    time.Duration
}

// Deps are the components a session talks to.
type Deps struct {
	Verifier   auth.Verifier
	Users      user.Service
	Access     access.Service
	Dispatcher *hub.Dispatcher
	Presence   *presence.Store
	Metrics    *metrics.Metrics
	Clock      quartz.Clock
	Logger     log.Logger
}

// GroupSummary is the number of sessions joined to a group.
type GroupSummary struct {
	Group   entity.GroupKey `json:"group"`
	Members int             `json:"members"`
}

// Service layer of internal package session.
type Service interface {
	// Open authenticates and authorizes a connection attempt before the upgrade.
	// The returned session is authorized, every failure wraps ErrRejected.
	Open(ctx context.Context, projectID, token string) (*Session, error)
	// Serve runs an authorized session on conn and returns once it is closed.
	Serve(sess *Session, conn Conn)
	// Abort discards an authorized session whose upgrade failed.
	Abort(sess *Session, reason error)
	// Shutdown closes every session and waits for them, bounded by ctx.
	Shutdown(ctx context.Context) error
	// Len is the number of sessions being served.
	Len() int
	// Groups summarizes the groups with joined sessions on this instance, sorted by group.
	Groups() []GroupSummary
	// Options the sessions run with.
	Options() Options
}

type service struct {
	Deps
	registry *hub.Registry
	opts     Options
	logger   log.Logger

	root   context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Session
	closing  bool
}

// Helps to access the service layer interface and call methods. Service object is passed from main.
func NewService(deps Deps, opts Options) Service {
	if opts.SendQueueSize <= 0 {
		opts.SendQueueSize = 256
	}
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = 64 * 1024
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if deps.Clock == nil {
		deps.Clock = quartz.NewReal()
	}
	root, cancel := context.WithCancel(context.Background())
	return &service{
		Deps:     deps,
		registry: deps.Dispatcher.Registry(),
		opts:     opts,
		logger:   deps.Logger,
		root:     root,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
}

func (s *service) Options() Options {
	return s.opts
}

func (s *service) Open(ctx context.Context, projectID, token string) (*Session, error) {
	sess := newSession(s, projectID)
	sess.state.transition(StateAuthenticating)

	if s.isClosing() {
		return nil, s.reject(ctx, sess, metrics.HandshakeShutdown, nil)
	}
	if token == "" {
		return nil, s.reject(ctx, sess, metrics.HandshakeMissingToken, nil)
	}
	identity, verr := s.Verifier.Verify(token, s.Clock.Now())
	switch {
	case errors.Is(verr, auth.ErrMalformedToken):
		return nil, s.reject(ctx, sess, metrics.HandshakeMalformed, verr)
	case errors.Is(verr, auth.ErrExpiredToken):
		return nil, s.reject(ctx, sess, metrics.HandshakeExpired, verr)
	case verr != nil:
		return nil, s.reject(ctx, sess, metrics.HandshakeInvalid, verr)
	}

	identity, uerr := s.Users.Resolve(ctx, identity)
	if errors.Is(uerr, user.ErrUnknownUser) {
		return nil, s.reject(ctx, sess, metrics.HandshakeUnknownUser, uerr)
	} else if uerr != nil {
		return nil, s.reject(ctx, sess, metrics.HandshakeLookupError, uerr)
	}

	group := entity.GroupFor(projectID)
	allowed, aerr := s.Access.Authorize(ctx, identity, group)
	if aerr != nil {
		return nil, s.reject(ctx, sess, metrics.HandshakeLookupError, aerr)
	} else if !allowed {
		return nil, s.reject(ctx, sess, metrics.HandshakeDenied, nil)
	}

	sess.identity, sess.group = identity, group
	sess.state.transition(StateAuthorized)
	s.Metrics.Handshakes.WithLabelValues(metrics.HandshakeAccepted).Inc()
	return sess, nil
}

func (s *service) reject(ctx context.Context, sess *Session, result string, cause error) error {
	sess.state.transition(StateClosed)
	close(sess.done)
	s.Metrics.Handshakes.WithLabelValues(result).Inc()
	s.logger.WithCtx(ctx).Warn().Err(cause).Str("result", result).Str("project_id", sess.projectID).Msg("Websocket handshake rejected")
	return fmt.Errorf("%w: %s", ErrRejected, result)
}

func (s *service) Serve(sess *Session, conn Conn) {
	sess.attach(s.root, conn)
	if !s.track(sess) {
		sess.Close(ErrShutdown)
		return
	}

	// The confirmation is queued before joining so it is always the first message
	sess.send <- entity.ConnectionEstablished(sess.projectID).Encode()
	if err := s.registry.Join(sess.group, sess); err != nil {
		sess.Close(err)
		return
	}
	// Activation and Close race on the same state lock, the loser undoes its side
	if err := sess.state.transition(StateActive); err != nil {
		s.registry.Leave(sess.group, sess)
		<-sess.done
		return
	}
	s.Metrics.SessionsActive.Inc()
	sess.logger.Info().Msg("Session active")

	go sess.writeLoop()
	sess.readLoop()
	<-sess.done
}

func (s *service) Abort(sess *Session, reason error) {
	sess.Close(reason)
}

func (s *service) track(sess *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.sessions[sess.id] = sess
	return true
}

func (s *service) forget(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess.id)
}

func (s *service) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

func (s *service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *service) Groups() []GroupSummary {
	groups := s.registry.Groups()
	summaries := make([]GroupSummary, 0, len(groups))
	for _, group := range groups {
		// A group emptied since the listing is skipped
		if n := s.registry.Count(group); n > 0 {
			summaries = append(summaries, GroupSummary{Group: group, Members: n})
		}
	}
	return summaries
}

func (s *service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	s.logger.Info().Int("sessions", len(sessions)).Msg("Closing websocket sessions")
	for _, sess := range sessions {
		go sess.Close(ErrShutdown)
	}
	defer s.cancel()
	for _, sess := range sessions {
		select {
		case <-sess.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// acceptOptions of the websocket upgrade, "*" accepts any origin.
func acceptOptions(corsOrigin string) *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{CompressionMode: websocket.CompressionDisabled}
	if corsOrigin == "*" || corsOrigin == "" {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = []string{corsOrigin}
	}
	return opts
}
