// Access repository encapsulates the data access logic (interactions with the DB) related to project membership in Tracker.

package access

import (
	"Tracker/internal/entity"
	"Tracker/internal/errors"
	"Tracker/pkg/db"
	"Tracker/pkg/log"
	"context"
	"strconv"

	"github.com/go-redis/redis/v8"
)

type Repository interface {
	// HasProject returns a boolean depending on project's availability.
	HasProject(ctx context.Context, logger log.Logger, projectID string) (bool, error)
	// IsOwnerOrMember reports whether the user owns the project or is one of its members.
	IsOwnerOrMember(ctx context.Context, logger log.Logger, projectID string, userID entity.UserID) (bool, error)
	// SetProject adds or updates the project data in the DB.
	SetProject(ctx context.Context, logger log.Logger, project entity.Project) error
	// AddMember adds the user into the project's member set.
	AddMember(ctx context.Context, logger log.Logger, projectID string, userID entity.UserID) error
	// RemoveMember removes the user from the project's member set.
	RemoveMember(ctx context.Context, logger log.Logger, projectID string, userID entity.UserID) error
}

// repository struct of access Repository.
// Object of this will be passed around from main to internal.
// Helps to access the repository layer interface and call methods.
type repository struct {
	db *db.RedisDB
}

// Returns a new instance of access repository for other packages to access its interface.
func NewRepository(dbwrp *db.RedisDB) Repository {
	return repository{db: dbwrp}
}

func projectKey(projectID string) string {
	return "project:" + projectID
}

func membersKey(projectID string) string {
	return "project-members:" + projectID
}

// Returns true if project:<id> exists in Tracker.
func (r repository) HasProject(ctx context.Context, logger log.Logger, projectID string) (bool, error) {
	available, dberr := r.db.Client().Exists(ctx, projectKey(projectID)).Result()
	if dberr != nil && dberr != redis.Nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Exists() in access.HasProject")
		return false, errors.InternalServerError("")
	}
	return available > 0, nil
}

// Owner and membership are read in one pipeline, a missing project reads as no owner and no members.
func (r repository) IsOwnerOrMember(ctx context.Context, logger log.Logger, projectID string, userID entity.UserID) (bool, error) {
	var owner *redis.StringCmd
	var member *redis.BoolCmd
	if _, dberr := r.db.Client().Pipelined(ctx, func(client redis.Pipeliner) error {
		owner = client.HGet(ctx, projectKey(projectID), "owner_id")
		member = client.SIsMember(ctx, membersKey(projectID), userID.String())
		return nil
	}); dberr != nil && dberr != redis.Nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Pipelined() in access.IsOwnerOrMember")
		return false, errors.InternalServerError("")
	}
	if ownerID, dberr := owner.Result(); dberr == nil && ownerID == userID.String() {
		return true, nil
	}
	return member.Val(), nil
}

func (r repository) SetProject(ctx context.Context, logger log.Logger, project entity.Project) error {
	if project.ID == "" {
		return errors.BadRequest("Project id is required")
	}
	key := projectKey(project.ID)
	if _, dberr := r.db.Client().Pipelined(ctx, func(client redis.Pipeliner) error {
		client.HSet(ctx, key, "id", project.ID)
		client.HSet(ctx, key, "name", project.Name)
		client.HSet(ctx, key, "owner_id", strconv.FormatInt(project.OwnerID, 10))
		return nil
	}); dberr != nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Pipelined() in access.SetProject")
		return errors.InternalServerError("")
	}
	return nil
}

func (r repository) AddMember(ctx context.Context, logger log.Logger, projectID string, userID entity.UserID) error {
	if dberr := r.db.Client().SAdd(ctx, membersKey(projectID), userID.String()).Err(); dberr != nil {
		// Issue in SAdd()
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.SAdd() in access.AddMember")
		return errors.InternalServerError("")
	}
	return nil
}

func (r repository) RemoveMember(ctx context.Context, logger log.Logger, projectID string, userID entity.UserID) error {
	if dberr := r.db.Client().SRem(ctx, membersKey(projectID), userID.String()).Err(); dberr != nil {
		// Issue in SRem()
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.SRem() in access.RemoveMember")
		return errors.InternalServerError("")
	}
	return nil
}
