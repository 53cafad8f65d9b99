// Service layer of the internal package access.

package access

import (
	"Tracker/internal/entity"
	terrors "Tracker/internal/errors"
	"Tracker/pkg/log"
	"context"
	"errors"
	"fmt"
)

// ErrLookup is returned when the membership store can't be reached.
var ErrLookup = errors.New("access lookup failed")

// Service layer of internal package access which decides who may join a project's group.
type Service interface {
	// Authorize reports whether identity may join the group.
	// A missing project or a user without access is (false, nil), never an error.
	Authorize(ctx context.Context, identity entity.Identity, group entity.GroupKey) (bool, error)
	// SaveProject mirrors a project of the CRUD layer, its owner may join right away.
	SaveProject(ctx context.Context, project entity.Project) error
	// AddMember grants a user access to an existing project.
	AddMember(ctx context.Context, projectID string, userID entity.UserID) error
	// RemoveMember revokes access for future handshakes, open sessions are left alone.
	RemoveMember(ctx context.Context, projectID string, userID entity.UserID) error
}

type service struct {
	accessRepo Repository
	logger     log.Logger
}

// Helps to access the service layer interface and call methods. Service object is passed from main.
func NewService(accessRepo Repository, logger log.Logger) Service {
	return service{accessRepo, logger}
}

func (s service) Authorize(ctx context.Context, identity entity.Identity, group entity.GroupKey) (bool, error) {
	projectID, ok := group.ProjectID()
	if !ok || identity.ID <= 0 {
		return false, nil
	}
	allowed, dberr := s.accessRepo.IsOwnerOrMember(ctx, s.logger, projectID, identity.ID)
	if dberr != nil {
		return false, fmt.Errorf("%w: %v", ErrLookup, dberr)
	}
	return allowed, nil
}

func (s service) SaveProject(ctx context.Context, project entity.Project) error {
	return s.accessRepo.SetProject(ctx, s.logger, project)
}

func (s service) AddMember(ctx context.Context, projectID string, userID entity.UserID) error {
	available, dberr := s.accessRepo.HasProject(ctx, s.logger, projectID)
	if dberr != nil {
		return dberr
	} else if !available {
		// Members of unknown projects would never be readable through Authorize's owner check
		return terrors.NotFound("Project not available")
	}
	return s.accessRepo.AddMember(ctx, s.logger, projectID, userID)
}

func (s service) RemoveMember(ctx context.Context, projectID string, userID entity.UserID) error {
	return s.accessRepo.RemoveMember(ctx, s.logger, projectID, userID)
}
