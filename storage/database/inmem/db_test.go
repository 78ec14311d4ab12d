package inmemdb

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/location"
)

func TestDB_RunInTx(t *testing.T) {
	db := Open()
	repo := NewLocationRepository(db)
	ctx := context.Background()
	errBoom := errors.New("boom")

	create := func(ctx context.Context, name string) {
		_, err := repo.CreateProvince(ctx, location.Province{ID: core.NewID(), Name: name})
		require.NoError(t, err)
	}
	names := func() []string {
		provinces, err := repo.QueryProvinces(ctx, location.QueryFilter{})
		require.NoError(t, err)
		out := make([]string, 0, len(provinces))
		for _, p := range provinces {
			out = append(out, p.Name)
		}
		return out
	}

	require.NoError(t, db.RunInTx(ctx, func(ctx context.Context) error {
		create(ctx, "Bagmati")
		return nil
	}))
	assert.Equal(t, []string{"Bagmati"}, names())

	err := db.RunInTx(ctx, func(ctx context.Context) error {
		create(ctx, "Gandaki")
		return errBoom
	})
	assert.Equal(t, errBoom, err)
	assert.Equal(t, []string{"Bagmati"}, names(), "rolled back")

	err = db.RunInTx(ctx, func(ctx context.Context) error {
		create(ctx, "Karnali")
		// nested calls join the outer transaction
		return db.RunInTx(ctx, func(ctx context.Context) error {
			create(ctx, "Lumbini")
			return errBoom
		})
	})
	assert.Equal(t, errBoom, err)
	assert.Equal(t, []string{"Bagmati"}, names())

	db.Flush()
	assert.Empty(t, names())
}
