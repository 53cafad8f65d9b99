// All custom validations related to domain events in Tracker are defined here.

package notify

import (
	"Tracker/internal/entity"
	"Tracker/pkg/log"
	"context"

	"github.com/asaskevich/govalidator"
)

func RegisterCustomValidations(ctx context.Context, logger log.Logger) {
	// Only domain kinds can be published through the internal endpoint, typing indicators come from sessions.
	govalidator.TagMap["eventkind"] = govalidator.Validator(func(str string) bool {
		_, ok := entity.ParseDomainKind(str)
		return ok
	})

	logger.WithCtx(ctx).Info().Msg("Successfully registered notify related custom validations.")
}
