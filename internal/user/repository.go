// User repository encapsulates the data access logic (interactions with the DB) related to Users in Tracker.
// User rows are owned by the CRUD layer, Tracker only reads them to confirm a token's user still exists.

package user

import (
	"Tracker/internal/entity"
	"Tracker/internal/errors"
	"Tracker/pkg/db"
	"Tracker/pkg/log"
	"context"

	"github.com/go-redis/redis/v8"
)

type Repository interface {
	// GetUser returns the user with id if exists.
	GetUser(ctx context.Context, logger log.Logger, id entity.UserID) (entity.User, error)
	// SetUser adds or updates the user in the DB.
	SetUser(ctx context.Context, logger log.Logger, user entity.User) error
	// DelUser removes the user from the DB.
	DelUser(ctx context.Context, logger log.Logger, id entity.UserID) error
}

// repository struct of user Repository.
// Object of this will be passed around from main to internal.
// Helps to access the repository layer interface and call methods.
type repository struct {
	db *db.RedisDB
}

// Returns a new instance of repository for other packages to access its interface.
func NewRepository(dbwrp *db.RedisDB) Repository {
	return repository{db: dbwrp}
}

func userKey(id entity.UserID) string {
	return "user:" + id.String()
}

// Returns the user data object if user with the given id is found in the DB.
func (r repository) GetUser(ctx context.Context, logger log.Logger, id entity.UserID) (entity.User, error) {
	user := entity.User{}
	available, dberr := r.db.Client().HExists(ctx, userKey(id), "id").Result()
	if dberr != nil && dberr != redis.Nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HExists() in user.GetUser")
		return user, errors.InternalServerError("")
	} else if !available {
		// User not available
		return user, errors.NotFound("User not available")
	}
	if dberr := r.db.Client().HGetAll(ctx, userKey(id)).Scan(&user); dberr != nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HGetAll() in user.GetUser")
		return user, errors.InternalServerError("")
	}
	return user, nil
}

// Writes both fields in one round trip.
func (r repository) SetUser(ctx context.Context, logger log.Logger, user entity.User) error {
	if user.ID <= 0 {
		return errors.BadRequest("User id must be positive")
	}
	key := userKey(entity.UserID(user.ID))
	if _, dberr := r.db.Client().Pipelined(ctx, func(client redis.Pipeliner) error {
		client.HSet(ctx, key, "id", user.ID)
		client.HSet(ctx, key, "username", user.Username)
		return nil
	}); dberr != nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Pipelined() in user.SetUser")
		return errors.InternalServerError("")
	}
	return nil
}

func (r repository) DelUser(ctx context.Context, logger log.Logger, id entity.UserID) error {
	if dberr := r.db.Client().Del(ctx, userKey(id)).Err(); dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Del() in user.DelUser")
		return errors.InternalServerError("")
	}
	return nil
}
