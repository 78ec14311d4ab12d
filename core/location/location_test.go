package location_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitab-bazar/server/core/location"
	"github.com/kitab-bazar/server/tests"
)

func TestImport(t *testing.T) {
	env := testutil.Setup(t)
	ctx := context.Background()
	svc := env.Svc.Locations

	csv := "Province,District,Municipality\n" +
		"Bagmati,Lalitpur,Godawari\n" +
		"Bagmati,Lalitpur,Mahalaxmi\n" +
		"Bagmati, Kathmandu ,Budhanilkantha\n" +
		"Gandaki,Kaski,Pokhara\n" +
		"Gandaki,Kaski\n" +
		"Gandaki,,Besishahar\n"

	res, err := svc.Import(ctx, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, location.ImportResult{
		Provinces:      2,
		Districts:      3,
		Municipalities: 4,
		Errors: []string{
			"line 6: expected 3 columns, got 2",
			"line 7: province, district and municipality are required",
		},
	}, res)

	provinces, err := svc.Provinces(ctx, "bag")
	require.NoError(t, err)
	require.Len(t, provinces, 1)
	districts, err := svc.Districts(ctx, provinces[0].ID, "")
	require.NoError(t, err)
	require.Len(t, districts, 2)
	names := []string{districts[0].Name, districts[1].Name}
	assert.ElementsMatch(t, []string{"Kathmandu", "Lalitpur"}, names)

	t.Run("reimport is a no-op", func(t *testing.T) {
		res, err := svc.Import(ctx, strings.NewReader(csv))
		require.NoError(t, err)
		assert.Zero(t, res.Provinces+res.Districts+res.Municipalities)
		assert.Len(t, res.Errors, 2)
	})

	t.Run("empty file", func(t *testing.T) {
		res, err := svc.Import(ctx, strings.NewReader(""))
		require.NoError(t, err)
		assert.Equal(t, location.ImportResult{}, res)
	})
}
