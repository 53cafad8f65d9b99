// Structure of the websocket wire messages in Tracker.

package entity

import (
	"encoding/json"
	"errors"
)

const (
	TypeConnectionEstablished = "connection_established"
	TypeTypingStart           = "typing_start"
	TypeTypingStop            = "typing_stop"
	TypePing                  = "ping"
	TypePong                  = "pong"
	TypeError                 = "error"
)

var (
	// ErrMalformedJSON is returned for inbound frames which are not JSON at all.
	ErrMalformedJSON = errors.New("invalid JSON")
	// ErrNotObject is returned for inbound frames which are JSON but not an object.
	ErrNotObject = errors.New("expected a JSON object")
)

// OutboundMessage covers connection_established, pong and error.
type OutboundMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

func (m OutboundMessage) Encode() []byte {
	raw, _ := json.Marshal(m)
	return raw
}

func ConnectionEstablished(projectID string) OutboundMessage {
	return OutboundMessage{Type: TypeConnectionEstablished, Message: "Connected to project " + projectID}
}

func Pong() OutboundMessage {
	return OutboundMessage{Type: TypePong}
}

func ErrorMessage(msg string) OutboundMessage {
	return OutboundMessage{Type: TypeError, Message: msg}
}

// ParseErrorMessage maps a ParseInbound error to the error reply sent to the client.
func ParseErrorMessage(err error) OutboundMessage {
	switch {
	case errors.Is(err, ErrNotObject):
		return ErrorMessage("Expected a JSON object")
	case errors.Is(err, ErrInvalidBugID):
		return ErrorMessage("Invalid bug_id")
	default:
		return ErrorMessage("Invalid JSON")
	}
}

// InboundKind is the closed set of client messages the session acts on.
type InboundKind int

const (
	// InboundUnknown covers every type the server does not know, they are ignored.
	InboundUnknown InboundKind = iota
	InboundTypingStart
	InboundTypingStop
	InboundPing
)

// Inbound is a decoded client message.
type Inbound struct {
	Kind InboundKind
	Type string
	// BugID is zero when absent.
	BugID BugID
}

// ParseInbound decodes a client frame.
// An Inbound with its Kind set is returned along with ErrInvalidBugID so callers can report it.
func ParseInbound(raw []byte) (Inbound, error) {
	if !json.Valid(raw) {
		return Inbound{}, ErrMalformedJSON
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		return Inbound{}, ErrNotObject
	}

	var msg Inbound
	if rawType, ok := body["type"]; ok {
		// A non string type stays unknown
		_ = json.Unmarshal(rawType, &msg.Type)
	}
	switch msg.Type {
	case TypeTypingStart:
		msg.Kind = InboundTypingStart
	case TypeTypingStop:
		msg.Kind = InboundTypingStop
	case TypePing:
		msg.Kind = InboundPing
	default:
		msg.Kind = InboundUnknown
	}

	if msg.Kind == InboundTypingStart || msg.Kind == InboundTypingStop {
		if rawBug, ok := body["bug_id"]; ok {
			if err := json.Unmarshal(rawBug, &msg.BugID); err != nil {
				return msg, ErrInvalidBugID
			}
		}
	}
	return msg, nil
}
