package logistics_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/logistics"
	"github.com/kitab-bazar/server/core/order"
	"github.com/kitab-bazar/server/core/school"
	"github.com/kitab-bazar/server/core/user"
	"github.com/kitab-bazar/server/tests"
)

func TestIncentivePolicy_Apply(t *testing.T) {
	tests := []struct {
		name         string
		policy       logistics.IncentivePolicy
		qty          int
		wantEligible bool
		wantBonus    int
	}{
		{name: "below threshold", policy: logistics.IncentivePolicy{Threshold: 10, Multiplier: 0.1, Max: 5}, qty: 9},
		{name: "at threshold", policy: logistics.IncentivePolicy{Threshold: 10, Multiplier: 0.1, Max: 5}, qty: 10, wantEligible: true, wantBonus: 1},
		{name: "floored", policy: logistics.IncentivePolicy{Threshold: 10, Multiplier: 0.1, Max: 5}, qty: 39, wantEligible: true, wantBonus: 3},
		{name: "capped", policy: logistics.IncentivePolicy{Threshold: 10, Multiplier: 0.1, Max: 5}, qty: 500, wantEligible: true, wantBonus: 5},
		{name: "no cap", policy: logistics.IncentivePolicy{Threshold: 10, Multiplier: 0.1}, qty: 500, wantEligible: true, wantBonus: 50},
		{name: "disabled", policy: logistics.IncentivePolicy{Multiplier: 0.1, Max: 5}, qty: 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eligible, bonus := tt.policy.Apply(tt.qty)
			assert.Equal(t, tt.wantEligible, eligible)
			assert.Equal(t, tt.wantBonus, bonus)
		})
	}
}

type fixture struct {
	env     *testutil.Env
	admin   user.User
	window  order.OrderWindow
	school1 school.School
	buyer1  user.User
	orders  []order.Order
}

func setup(t *testing.T) fixture {
	env := testutil.Setup(t)
	pubA, _ := env.Publisher(t, "Ekata Books", "ekata@kitab.test")
	pubB, _ := env.Publisher(t, "Sajha Prakashan", "sajha@kitab.test")
	bA := env.Book(t, pubA.ID, "Muna Madan", "9789993304001", 250)
	bB := env.Book(t, pubB.ID, "Seto Dharti", "9789937000001", 300)
	m := env.Municipality(t, "Lalitpur")
	s1, buyer1 := env.School(t, school.KindSchool, "Adarsha School", "adarsha@kitab.test", m.ID)
	_, buyer2 := env.School(t, school.KindSchool, "Bal Vikas School", "balvikas@kitab.test", m.ID)
	w := env.Window(t, order.WindowTypeSchool, time.Now().Add(-time.Hour), 2*time.Hour)

	f := fixture{env: env, admin: env.Admin(t), window: w, school1: s1, buyer1: buyer1}
	f.orders = append(f.orders,
		env.Order(t, buyer1, map[string]int{bA.ID: 12, bB.ID: 2}),
		env.Order(t, buyer2, map[string]int{bA.ID: 3}),
	)
	// individual buyers order outside windows
	reader := env.CreateUser(t, user.TypeIndividualUser, "reader@kitab.test")
	env.Order(t, reader, map[string]int{bA.ID: 1})
	return f
}

func TestGenerate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	svc := f.env.Svc.Logistics

	pkgs, err := svc.Generate(ctx, f.window.ID)
	require.NoError(t, err)
	require.Len(t, pkgs, 5)

	type summary struct {
		kind, owner string
		qty, price  int
		eligible    bool
		incentive   int
		orders      int
	}
	var got []summary
	for _, p := range pkgs {
		got = append(got, summary{p.Kind, p.OwnerName, p.TotalQuantity, p.TotalPrice, p.IsEligibleForIncentive, p.Incentive, len(p.OrderIDs)})
		assert.Equal(t, logistics.StatusPending, p.Status)
		assert.Equal(t, f.window.ID, p.OrderWindowID)
	}
	assert.Equal(t, []summary{
		{logistics.KindPublisher, "Ekata Books", 15, 15 * 250, false, 0, 2},
		{logistics.KindPublisher, "Sajha Prakashan", 2, 600, false, 0, 1},
		{logistics.KindSchool, "Adarsha School", 14, 12*250 + 600, true, 1, 1},
		{logistics.KindSchool, "Bal Vikas School", 3, 750, false, 0, 1},
		{logistics.KindCourier, "Lalitpur", 17, 12*250 + 600 + 750, false, 0, 2},
	}, got)
	assert.Regexp(t, `^PUB-`, pkgs[0].Code)
	assert.Regexp(t, `^SCH-`, pkgs[2].Code)
	assert.Regexp(t, `^COU-`, pkgs[4].Code)
	assert.ElementsMatch(t, []string{pkgs[2].ID, pkgs[3].ID}, pkgs[4].ChildIDs)

	t.Run("orders are assigned", func(t *testing.T) {
		_, err := svc.Generate(ctx, f.window.ID)
		assert.Equal(t, logistics.ErrNothingToPackage, errors.Cause(err))

		_, err = f.env.Svc.Orders.Cancel(ctx, f.buyer1, f.orders[0].ID)
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, order.ErrAssignedForPackage, vErr.Err)
	})

	t.Run("unknown window", func(t *testing.T) {
		_, err := svc.Generate(ctx, core.NewID())
		assert.Equal(t, order.ErrWindowNotFound, errors.Cause(err))
	})
}

func TestVisibility(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	svc := f.env.Svc.Logistics
	pkgs, err := svc.Generate(ctx, f.window.ID)
	require.NoError(t, err)

	own, err := svc.Query(ctx, f.buyer1, logistics.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, f.school1.ID, own[0].OwnerID)

	_, err = svc.Get(ctx, f.buyer1, pkgs[0].ID)
	assert.Equal(t, logistics.ErrNotFound, errors.Cause(err), "publisher package")

	all, err := svc.Query(ctx, f.admin, logistics.QueryFilter{OrderWindowID: f.window.ID})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	_, err = svc.UpdateStatus(ctx, f.buyer1, own[0].ID, logistics.StatusInTransit)
	assert.Equal(t, core.ErrPermissionDenied, err)
}

func TestUpdateStatusAndDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	svc := f.env.Svc.Logistics
	pkgs, err := svc.Generate(ctx, f.window.ID)
	require.NoError(t, err)
	courier := pkgs[4]

	t.Run("invalid transition", func(t *testing.T) {
		_, err := svc.UpdateStatus(ctx, f.admin, courier.ID, logistics.StatusDelivered)
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, logistics.ErrInvalidTransition, vErr.Err)
	})

	updated, err := svc.UpdateStatus(ctx, f.admin, courier.ID, logistics.StatusInTransit)
	require.NoError(t, err)
	assert.Equal(t, logistics.StatusInTransit, updated.Status)

	children, err := svc.Query(ctx, f.admin, logistics.QueryFilter{IDs: courier.ChildIDs})
	require.NoError(t, err)
	for _, child := range children {
		assert.Equal(t, logistics.StatusInTransit, child.Status)
	}
	for _, o := range f.orders {
		got, err := f.env.Svc.Orders.Get(ctx, f.admin, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.StatusInTransit, got.Status)
	}

	// publisher packages do not move the orders
	_, err = svc.UpdateStatus(ctx, f.admin, pkgs[0].ID, logistics.StatusInTransit)
	require.NoError(t, err)

	_, err = svc.Delete(ctx, f.window.ID)
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, logistics.ErrPackagesInProgress, vErr.Err)
}

func TestDeleteReleasesOrders(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	svc := f.env.Svc.Logistics
	_, err := svc.Generate(ctx, f.window.ID)
	require.NoError(t, err)

	n, err := svc.Delete(ctx, f.window.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = svc.Delete(ctx, f.window.ID)
	assert.Equal(t, logistics.ErrNotFound, errors.Cause(err))

	// released orders can be packaged again
	pkgs, err := svc.Generate(ctx, f.window.ID)
	require.NoError(t, err)
	assert.Len(t, pkgs, 5)
}
