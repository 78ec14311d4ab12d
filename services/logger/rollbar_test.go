package logsvc

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/rollbar/rollbar-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitab-bazar/server/core/user"
)

func TestItem(t *testing.T) {
	errBoom := errors.New("boom")
	buyer := user.User{
		ID:       "5d0b6c8e-1b73-4d0a-9f3e-1c2b3a4d5e6f",
		FullName: "Sita Sharma",
		Email:    "sita@kitab.test",
		UserType: user.TypeSchoolAdmin,
		SchoolID: "7f1e2d3c-4b5a-4c6d-8e7f-0a1b2c3d4e5f",
	}
	other := user.User{ID: "other"}

	args := item("placing order", []interface{}{
		errBoom,
		map[string]interface{}{"order": "OR-1"},
		buyer,
		other,
		map[string]interface{}{"window": "W-1"},
	})
	require.Len(t, args, 4)
	assert.Equal(t, "placing order", args[0])
	assert.Equal(t, errBoom, args[1])
	assert.Equal(t, map[string]interface{}{"order": "OR-1", "window": "W-1"}, args[3])

	ctx, ok := args[2].(context.Context)
	require.True(t, ok)
	p, ok := rollbar.PersonFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, &rollbar.Person{
		Id:       buyer.ID,
		Username: "Sita Sharma",
		Email:    "sita@kitab.test",
		Extra:    map[string]string{"user_type": user.TypeSchoolAdmin, "school_id": buyer.SchoolID},
	}, p, "first user wins")

	t.Run("no user", func(t *testing.T) {
		args := item("tick", nil)
		require.Len(t, args, 2)
		_, ok := rollbar.PersonFromContext(args[1].(context.Context))
		assert.False(t, ok)
	})

	t.Run("publisher", func(t *testing.T) {
		p := person(user.User{ID: "p", UserType: user.TypePublisher, PublisherID: "pub"})
		assert.Equal(t, map[string]string{"user_type": user.TypePublisher, "publisher_id": "pub"}, p.Extra)
	})
}
