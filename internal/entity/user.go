// Structure of User and Identity Models in Tracker.

package entity

import "strconv"

// UserID is the CRUD layer's primary key of a user.
type UserID int64

func (id UserID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Saved in DB as user:<id> by the CRUD layer.
type User struct {
	ID       int64  `json:"id" redis:"id"`
	Username string `json:"username" redis:"username"`
}

// Identity of an authenticated connection, resolved once at handshake.
type Identity struct {
	ID       UserID `json:"user_id"`
	Username string `json:"username"`
}

// Same reports whether both identities belong to the same user.
func (i Identity) Same(other Identity) bool {
	return i.ID == other.ID
}

// SaveUserRequest is the body the CRUD layer puts to mirror a user.
type SaveUserRequest struct {
	// UserID comes from the request path.
	UserID   string `json:"-" valid:"required,dbid"`
	Username string `json:"username" valid:"required,nospace"`
}
