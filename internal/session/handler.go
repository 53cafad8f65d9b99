// Inbound message handling of a session.

package session

import (
	"Tracker/internal/entity"
)

// handle acts on one client message. Protocol errors are answered, the session stays active.
func (s *Session) handle(data []byte) {
	msg, err := entity.ParseInbound(data)
	if err != nil {
		s.logger.Debug().Err(err).Str("type", msg.Type).Msg("Rejected inbound message")
		s.reply(entity.ParseErrorMessage(err))
		return
	}

	switch msg.Kind {
	case entity.InboundTypingStart, entity.InboundTypingStop:
		if msg.BugID == 0 {
			// typing without a bug carries no information
			return
		}
		s.typing(msg.BugID, msg.Kind == entity.InboundTypingStart)
	case entity.InboundPing:
		s.reply(entity.Pong())
	default:
		s.logger.Debug().Str("type", msg.Type).Msg("Ignoring unknown message type")
	}
}

func (s *Session) typing(bug entity.BugID, isTyping bool) {
	s.svc.Presence.Upsert(s.group, bug, s.identity, isTyping)
	event := entity.NewTypingEvent(s.group, s.identity, bug, isTyping)
	if err := s.svc.Dispatcher.Publish(s.ctx, event); err != nil {
		s.logger.Warn().Err(err).Int64("bug_id", int64(bug)).Msg("Couldn't publish typing indicator")
	}
}
