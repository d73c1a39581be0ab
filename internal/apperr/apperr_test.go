package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"invalid input", InvalidInput("All fields are required"), KindInvalidInput},
		{"not found", NotFound("User not found"), KindNotFound},
		{"conflict", Conflict("Duplicate username"), KindConflict},
		{"has dependents", HasDependents("User has assigned notes"), KindHasDependents},
		{"no data", NoData("No users found"), KindNoData},
		{"wrapped", fmt.Errorf("create user: %w", Conflict("Duplicate username")), KindConflict},
		{"plain", errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestError_MessageAndUnwrap(t *testing.T) {
	cause := errors.New("unique constraint failed")
	err := Wrap(KindConflict, "Duplicate username", cause)

	assert.Equal(t, "Duplicate username", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, Is(err, KindConflict))
	assert.False(t, Is(nil, KindConflict))

	bare := &Error{Kind: KindNotFound}
	assert.Equal(t, "NotFound", bare.Error())
}
