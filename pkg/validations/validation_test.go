package validations

import (
	"Tracker/pkg/log"
	"context"
	"testing"

	"github.com/asaskevich/govalidator"
	"github.com/stretchr/testify/assert"
)

func TestCustomValidations(t *testing.T) {
	RegisterCustomValidations(context.Background(), log.NewNop())

	type form struct {
		Name string `valid:"nospace"`
		ID   string `valid:"dbid"`
	}
	ok, err := govalidator.ValidateStruct(form{Name: "alice", ID: "42"})
	assert.True(t, ok)
	assert.NoError(t, err)

	for _, bad := range []form{{Name: "a b", ID: "1"}, {Name: "a", ID: "0"}, {Name: "a", ID: "007"}, {Name: "a", ID: "x"}} {
		ok, err := govalidator.ValidateStruct(bad)
		assert.False(t, ok, bad)
		assert.Error(t, err, bad)
	}
}
