// Structure of Typing presence Model in Tracker.

package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

// ErrInvalidBugID is returned when a bug id is neither a number nor a numeric string.
var ErrInvalidBugID = errors.New("invalid bug_id")

// BugID accepts both 7 and "7" on the wire and always encodes as a number.
type BugID int64

func (b BugID) String() string {
	return strconv.FormatInt(int64(b), 10)
}

func (b *BugID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*b = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return ErrInvalidBugID
		}
		if s == "" {
			*b = 0
			return nil
		}
		data = []byte(s)
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil || n < 0 {
		return ErrInvalidBugID
	}
	*b = BugID(n)
	return nil
}

// TypingEntry is unique per (BugID, UserID).
type TypingEntry struct {
	// Group the bug belongs to, typing indicators of the entry are published there.
	Group     GroupKey  `json:"group"`
	BugID     BugID     `json:"bug_id"`
	UserID    UserID    `json:"user_id"`
	Username  string    `json:"username"`
	IsTyping  bool      `json:"is_typing"`
	UpdatedAt time.Time `json:"updated_at"`
}
