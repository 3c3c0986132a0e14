package purchase_order

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"stockroom/internal/core/apperror"
)

func TestCanTransition(t *testing.T) {
	all := []Status{StatusDraft, StatusPending, StatusApproved, StatusOrdered, StatusReceived, StatusCancelled}
	allowed := map[[2]Status]bool{
		{StatusDraft, StatusPending}:      true,
		{StatusDraft, StatusCancelled}:    true,
		{StatusPending, StatusApproved}:   true,
		{StatusPending, StatusCancelled}:  true,
		{StatusApproved, StatusOrdered}:   true,
		{StatusApproved, StatusCancelled}: true,
		{StatusOrdered, StatusCancelled}:  true,
	}

	for _, from := range all {
		for _, to := range all {
			err := CanTransition(from, to)
			if allowed[[2]Status{from, to}] {
				assert.NoError(t, err, "%s -> %s", from, to)
				continue
			}
			assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState), "%s -> %s: %v", from, to, err)
		}
	}
}

func TestCanTransition_UnknownTarget(t *testing.T) {
	err := CanTransition(StatusDraft, "shipped")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusReceived.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusOrdered.IsTerminal())
}
