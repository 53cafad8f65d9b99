// Structure of Project membership Model in Tracker.

package entity

import (
	"Tracker/pkg/validations"
	"strings"
)

// groupPrefix is prepended to a project id to form its group key.
const groupPrefix = "project_"

// GroupKey identifies a broadcast group, one per project, e.g. project_42.
type GroupKey string

// GroupFor returns the group key of a project.
func GroupFor(projectID string) GroupKey {
	return GroupKey(groupPrefix + projectID)
}

func (g GroupKey) String() string {
	return string(g)
}

// ProjectID returns the project id of the group, ok is false for keys which don't name a project.
func (g GroupKey) ProjectID() (string, bool) {
	id, found := strings.CutPrefix(string(g), groupPrefix)
	if !found {
		return "", false
	}
	if !validations.IsDatabaseID(id) {
		return "", false
	}
	return id, true
}

// Saved in DB as project:<id>, members are kept in project-members:<id>.
type Project struct {
	ID      string `json:"id" redis:"id"`
	Name    string `json:"name" redis:"name"`
	OwnerID int64  `json:"owner_id" redis:"owner_id"`
}

// SaveProjectRequest is the body the CRUD layer puts to mirror a project.
type SaveProjectRequest struct {
	// ProjectID comes from the request path.
	ProjectID string `json:"-" valid:"required,dbid"`
	Name      string `json:"name" valid:"required"`
	OwnerID   int64  `json:"owner_id" valid:"required"`
}

// MemberRequest names a membership, both ids come from the request path.
type MemberRequest struct {
	ProjectID string `valid:"required,dbid"`
	UserID    string `valid:"required,dbid"`
}
