// All global custom validations in Tracker are defined here.
// These validations are allowed to be used anywhere in the application.

package validations

import (
	"Tracker/pkg/log"
	"context"
	"strconv"

	"github.com/asaskevich/govalidator"
)

func RegisterCustomValidations(ctx context.Context, logger log.Logger) {
	// This global validation doesn't allow whitespace in input.
	govalidator.TagMap["nospace"] = govalidator.Validator(func(str string) bool {
		return !govalidator.HasWhitespace(str)
	})
	// Database ids are positive integers without leading zeros.
	govalidator.TagMap["dbid"] = govalidator.Validator(IsDatabaseID)

	logger.WithCtx(ctx).Info().Msg("Successfully registered global custom validations.")
}

// IsDatabaseID reports whether str is a positive integer id in canonical form.
func IsDatabaseID(str string) bool {
	n, err := strconv.ParseInt(str, 10, 64)
	return err == nil && n > 0 && strconv.FormatInt(n, 10) == str
}
