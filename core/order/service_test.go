package order_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/order"
	"github.com/kitab-bazar/server/core/school"
	"github.com/kitab-bazar/server/core/user"
	"github.com/kitab-bazar/server/tests"
)

// validationCause returns the error wrapped by the *core.ValidationError err.
func validationCause(t *testing.T, err error) error {
	t.Helper()
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "not a validation error: %v", err)
	return vErr.Err
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{order.StatusPending, order.StatusInTransit, true},
		{order.StatusPending, order.StatusCancelled, true},
		{order.StatusPending, order.StatusCompleted, false},
		{order.StatusInTransit, order.StatusCompleted, true},
		{order.StatusInTransit, order.StatusPending, false},
		{order.StatusCompleted, order.StatusCancelled, false},
		{order.StatusCancelled, order.StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, order.CanTransition(tt.from, tt.to))
		})
	}
}

func TestCart(t *testing.T) {
	env := testutil.Setup(t)
	ctx := context.Background()
	svc := env.Svc.Orders
	pub, pubUsr := env.Publisher(t, "Ekata Books", "ekata@kitab.test")
	b1 := env.Book(t, pub.ID, "Muna Madan", "9789993304001", 250)
	b2 := env.Book(t, pub.ID, "Palpasa Cafe", "9789993304002", 400)
	buyer := env.CreateUser(t, user.TypeIndividualUser, "reader@kitab.test")
	other := env.CreateUser(t, user.TypeIndividualUser, "other@kitab.test")

	t.Run("publisher cannot use a cart", func(t *testing.T) {
		_, err := svc.AddToCart(ctx, pubUsr, b1.ID, 1)
		assert.Equal(t, core.ErrPermissionDenied, err)
	})

	t.Run("invalid quantity", func(t *testing.T) {
		_, err := svc.AddToCart(ctx, buyer, b1.ID, 0)
		assert.True(t, core.IsValidationError(err))
	})

	t.Run("unknown book", func(t *testing.T) {
		_, err := svc.AddToCart(ctx, buyer, core.NewID(), 1)
		assert.True(t, core.IsValidationError(err))
	})

	item, err := svc.AddToCart(ctx, buyer, b1.ID, 1)
	require.NoError(t, err)
	again, err := svc.AddToCart(ctx, buyer, b1.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, item.ID, again.ID, "same book is merged")
	assert.Equal(t, 3, again.Quantity)

	item2, err := svc.AddToCart(ctx, buyer, b2.ID, 1)
	require.NoError(t, err)

	cart, err := svc.Cart(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, 4, cart.TotalQuantity)
	assert.Equal(t, 3*250+400, cart.TotalPrice)

	t.Run("other buyer's item", func(t *testing.T) {
		_, _, err := svc.UpdateCartItem(ctx, other, item.ID, 5)
		assert.Equal(t, order.ErrCartItemNotFound, errors.Cause(err))
		assert.Equal(t, order.ErrCartItemNotFound, errors.Cause(svc.RemoveFromCart(ctx, other, item.ID)))
	})

	updated, removed, err := svc.UpdateCartItem(ctx, buyer, item.ID, 5)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 5, updated.Quantity)

	_, removed, err = svc.UpdateCartItem(ctx, buyer, item2.ID, 0)
	require.NoError(t, err)
	assert.True(t, removed)

	cart, err = svc.Cart(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 5*250, cart.TotalPrice)

	require.NoError(t, svc.ClearCart(ctx, buyer))
	cart, err = svc.Cart(ctx, buyer)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
}

func TestWishlist(t *testing.T) {
	env := testutil.Setup(t)
	ctx := context.Background()
	svc := env.Svc.Orders
	pub, _ := env.Publisher(t, "Ekata Books", "ekata@kitab.test")
	b := env.Book(t, pub.ID, "Muna Madan", "9789993304001", 250)
	buyer := env.CreateUser(t, user.TypeIndividualUser, "reader@kitab.test")

	first, err := svc.AddToWishlist(ctx, buyer, b.ID)
	require.NoError(t, err)
	second, err := svc.AddToWishlist(ctx, buyer, b.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// ordering a wished book removes it from the wishlist
	env.Order(t, buyer, map[string]int{b.ID: 1})
	items, err := svc.Wishlist(ctx, buyer)
	require.NoError(t, err)
	assert.Empty(t, items)

	assert.Equal(t, order.ErrWishListNotFound, errors.Cause(svc.RemoveFromWishlist(ctx, buyer, b.ID)))
}

func TestPlaceOrder(t *testing.T) {
	env := testutil.Setup(t)
	ctx := context.Background()
	svc := env.Svc.Orders
	pub, _ := env.Publisher(t, "Ekata Books", "ekata@kitab.test")
	b := env.Book(t, pub.ID, "Muna Madan", "9789993304001", 250)
	m := env.Municipality(t, "Lalitpur")
	_, schoolBuyer := env.School(t, school.KindSchool, "Shree School", "school@kitab.test", m.ID)
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	env.SetNow(now)

	t.Run("empty cart", func(t *testing.T) {
		reader := env.CreateUser(t, user.TypeIndividualUser, "reader@kitab.test")
		_, err := svc.PlaceOrder(ctx, reader)
		assert.Equal(t, order.ErrEmptyCart, validationCause(t, err))
	})

	_, err := svc.AddToCart(ctx, schoolBuyer, b.ID, 12)
	require.NoError(t, err)

	t.Run("no active window", func(t *testing.T) {
		env.Window(t, order.WindowTypeInstitution, now.Add(-time.Hour), 2*time.Hour)
		env.Window(t, order.WindowTypeSchool, now.Add(time.Hour), time.Hour)
		_, err := svc.PlaceOrder(ctx, schoolBuyer)
		assert.Equal(t, order.ErrNoActiveWindow, validationCause(t, err))
	})

	t.Run("unverified buyer", func(t *testing.T) {
		unverified := schoolBuyer
		unverified.IsVerified = false
		_, err := svc.PlaceOrder(ctx, unverified)
		assert.Equal(t, order.ErrBuyerNotVerified, validationCause(t, err))
	})

	late := env.Window(t, order.WindowTypeSchool, now.Add(-time.Hour), 3*time.Hour)
	early := env.Window(t, order.WindowTypeSchool, now.Add(-2*time.Hour), 3*time.Hour)

	o, err := svc.PlaceOrder(ctx, schoolBuyer)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, early.ID, o.OrderWindowID, "earliest open window wins")
	assert.NotEqual(t, late.ID, o.OrderWindowID)
	assert.Regexp(t, `^OR-`, o.OrderCode)
	assert.Equal(t, 12, o.TotalQuantity)
	assert.Equal(t, 12*250, o.TotalPrice)
	require.Len(t, o.Books, 1)
	assert.Equal(t, "Muna Madan", o.Books[0].Title)

	cart, err := svc.Cart(ctx, schoolBuyer)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
}

func TestOrderVisibilityAndStatus(t *testing.T) {
	env := testutil.Setup(t)
	ctx := context.Background()
	svc := env.Svc.Orders
	admin := env.Admin(t)
	pubA, pubAUsr := env.Publisher(t, "Ekata Books", "ekata@kitab.test")
	pubB, _ := env.Publisher(t, "Sajha Prakashan", "sajha@kitab.test")
	bA := env.Book(t, pubA.ID, "Muna Madan", "9789993304001", 250)
	bB := env.Book(t, pubB.ID, "Seto Dharti", "9789937000001", 300)
	buyer := env.CreateUser(t, user.TypeIndividualUser, "reader@kitab.test")
	other := env.CreateUser(t, user.TypeIndividualUser, "other@kitab.test")

	o := env.Order(t, buyer, map[string]int{bA.ID: 1, bB.ID: 2})

	t.Run("publisher sees own lines", func(t *testing.T) {
		got, err := svc.Get(ctx, pubAUsr, o.ID)
		require.NoError(t, err)
		require.Len(t, got.Books, 1)
		assert.Equal(t, bA.ID, got.Books[0].BookID)
		assert.Equal(t, 250, got.TotalPrice)
	})

	t.Run("other buyer", func(t *testing.T) {
		_, err := svc.Get(ctx, other, o.ID)
		assert.Equal(t, order.ErrNotFound, errors.Cause(err))
		_, err = svc.Cancel(ctx, other, o.ID)
		assert.Equal(t, order.ErrNotFound, errors.Cause(err))

		orders, err := svc.Query(ctx, other, order.QueryFilter{}, nil)
		require.NoError(t, err)
		assert.Empty(t, orders)
	})

	t.Run("buyer cannot ship", func(t *testing.T) {
		_, err := svc.UpdateStatus(ctx, buyer, o.ID, order.StatusInTransit)
		assert.Equal(t, core.ErrPermissionDenied, errors.Cause(err))
	})

	t.Run("invalid transition", func(t *testing.T) {
		_, err := svc.UpdateStatus(ctx, admin, o.ID, order.StatusCompleted)
		assert.Equal(t, order.ErrInvalidTransition, validationCause(t, err))
	})

	shipped, err := svc.UpdateStatus(ctx, admin, o.ID, order.StatusInTransit)
	require.NoError(t, err)
	assert.Equal(t, order.StatusInTransit, shipped.Status)

	o2 := env.Order(t, buyer, map[string]int{bA.ID: 4})
	cancelled, err := svc.Cancel(ctx, buyer, o2.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, cancelled.Status)

	stats, err := svc.Stats(ctx, admin, order.QueryFilter{})
	require.NoError(t, err)
	byStatus := map[string]order.StatusStats{}
	for _, s := range stats {
		byStatus[s.Status] = s
	}
	assert.Equal(t, 1, byStatus[order.StatusInTransit].Count)
	assert.Equal(t, 250+2*300, byStatus[order.StatusInTransit].TotalPrice)
	assert.Equal(t, 1, byStatus[order.StatusCancelled].Count)
	assert.Equal(t, 4, byStatus[order.StatusCancelled].TotalQuantity)
}
