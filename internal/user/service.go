// Service layer of the internal package user.

package user

import (
	"Tracker/internal/entity"
	"Tracker/internal/errors"
	"Tracker/pkg/log"
	"context"
	stderrors "errors"
	"net/http"
)

// ErrUnknownUser is returned by Resolve when the token's user no longer exists.
var ErrUnknownUser = stderrors.New("unknown user")

// Service layer of internal package user which resolves verified identities against the user directory.
type Service interface {
	// Resolve confirms the identity's user exists. The directory's username wins over the token's,
	// a token issued before a rename still carries the old one.
	Resolve(ctx context.Context, identity entity.Identity) (entity.Identity, error)
	// Save mirrors a user of the CRUD layer into the directory.
	Save(ctx context.Context, user entity.User) error
	// Delete removes a user, tokens it was issued no longer pass a handshake.
	Delete(ctx context.Context, id entity.UserID) error
}

// Object of this will be passed around from main to routers to API.
// Helps to access the service layer interface and call methods.
type service struct {
	userRepo Repository
	logger   log.Logger
}

// Helps to access the service layer interface and call methods. Service object is passed from main.
func NewService(userRepo Repository, logger log.Logger) Service {
	return service{userRepo, logger}
}

func (s service) Resolve(ctx context.Context, identity entity.Identity) (entity.Identity, error) {
	user, dberr := s.userRepo.GetUser(ctx, s.logger, identity.ID)
	if dberr != nil {
		if errors.StatusOf(dberr) == http.StatusNotFound {
			return entity.Identity{}, ErrUnknownUser
		}
		return entity.Identity{}, dberr
	}
	if user.Username != "" {
		identity.Username = user.Username
	}
	return identity, nil
}

func (s service) Save(ctx context.Context, user entity.User) error {
	return s.userRepo.SetUser(ctx, s.logger, user)
}

func (s service) Delete(ctx context.Context, id entity.UserID) error {
	return s.userRepo.DelUser(ctx, s.logger, id)
}
