// Payload builders used by the CRUD layer for the four domain event kinds.

package notify

import (
	"Tracker/internal/entity"
	"strings"
)

// BugCreated is the payload of a bug_created event, bug is the serialized bug.
func BugCreated(bug any, title string) map[string]any {
	return map[string]any{
		"bug":     bug,
		"message": "New bug created: " + title,
	}
}

// BugUpdated is the payload of a bug_updated event.
// changes are human readable descriptions like `status changed from "open" to "closed"`.
func BugUpdated(bug any, title string, changes []string) map[string]any {
	return map[string]any{
		"bug":     bug,
		"message": `Bug "` + title + `" updated: ` + strings.Join(changes, ", "),
	}
}

// CommentAdded is the payload of a comment_added event.
func CommentAdded(comment any, bugID entity.BugID, bugTitle string) map[string]any {
	return map[string]any{
		"comment": comment,
		"bug_id":  bugID,
		"message": "New comment on: " + bugTitle,
	}
}

// Activity is the payload of an activity event, data is forwarded as is.
func Activity(data map[string]any) map[string]any {
	payload := make(map[string]any, len(data))
	for k, v := range data {
		payload[k] = v
	}
	return payload
}
