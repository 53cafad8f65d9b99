// Structure of Broadcast Event Model in Tracker.

package entity

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventKind enumerates what can be fanned out to a group.
type EventKind string

const (
	KindBugCreated      EventKind = "bug_created"
	KindBugUpdated      EventKind = "bug_updated"
	KindCommentAdded    EventKind = "comment_added"
	KindTypingIndicator EventKind = "typing_indicator"
	KindActivity        EventKind = "activity"
)

// ErrPayloadNotObject is returned when an event payload does not encode to a JSON object.
var ErrPayloadNotObject = errors.New("event payload must be a JSON object")

// ParseDomainKind accepts only the kinds the CRUD layer is allowed to publish.
func ParseDomainKind(s string) (EventKind, bool) {
	switch k := EventKind(s); k {
	case KindBugCreated, KindBugUpdated, KindCommentAdded, KindActivity:
		return k, true
	}
	return "", false
}

// BroadcastEvent lives only for the duration of a dispatch, it is never persisted.
type BroadcastEvent struct {
	Kind    EventKind       `json:"kind"`
	Group   GroupKey        `json:"group"`
	Payload json.RawMessage `json:"payload"`
	// Origin is only set for typing indicators.
	Origin *Identity `json:"origin,omitempty"`
}

// TypingData is the data field of a typing_indicator message.
type TypingData struct {
	BugID    BugID  `json:"bug_id"`
	UserID   UserID `json:"user_id"`
	Username string `json:"username"`
	IsTyping bool   `json:"is_typing"`
}

// NewDomainEvent builds a CRUD-side event, payload must encode to a JSON object.
func NewDomainEvent(group GroupKey, kind EventKind, payload any) (BroadcastEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return BroadcastEvent{}, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return BroadcastEvent{}, ErrPayloadNotObject
	}
	return BroadcastEvent{Kind: kind, Group: group, Payload: raw}, nil
}

// NewTypingEvent builds the typing_indicator relayed for origin.
func NewTypingEvent(group GroupKey, origin Identity, bug BugID, isTyping bool) BroadcastEvent {
	raw, _ := json.Marshal(TypingData{
		BugID:    bug,
		UserID:   origin.ID,
		Username: origin.Username,
		IsTyping: isTyping,
	})
	return BroadcastEvent{Kind: KindTypingIndicator, Group: group, Payload: raw, Origin: &origin}
}

// SuppressFor reports whether the event must not reach a member with the given identity.
// Only typing indicators are echo suppressed, the sender already knows its own typing state.
func (e BroadcastEvent) SuppressFor(member Identity) bool {
	return e.Kind == KindTypingIndicator && e.Origin != nil && e.Origin.Same(member)
}

// Wire encodes the message sessions write to their transport.
func (e BroadcastEvent) Wire() ([]byte, error) {
	if e.Kind == KindTypingIndicator {
		return json.Marshal(struct {
			Type EventKind       `json:"type"`
			Data json.RawMessage `json:"data"`
		}{e.Kind, e.Payload})
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(e.Payload, &fields); err != nil || fields == nil {
		return nil, ErrPayloadNotObject
	}
	kind, _ := json.Marshal(e.Kind)
	fields["type"] = kind
	return json.Marshal(fields)
}

// PublishRequest is the body the CRUD layer posts to publish a domain event.
type PublishRequest struct {
	// ProjectID comes from the request path.
	ProjectID string          `json:"-" valid:"required,dbid"`
	Kind      string          `json:"kind" valid:"required,eventkind"`
	Payload   json.RawMessage `json:"payload" valid:"-"`
}
