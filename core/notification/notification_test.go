package notification_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/notification"
	"github.com/kitab-bazar/server/core/order"
	"github.com/kitab-bazar/server/core/user"
	emailsvc "github.com/kitab-bazar/server/services/email"
	"github.com/kitab-bazar/server/tests"
)

func byType(notifs []notification.Notification) map[string][]notification.Notification {
	out := make(map[string][]notification.Notification)
	for _, n := range notifs {
		out[n.NotificationType] = append(out[n.NotificationType], n)
	}
	return out
}

func TestOrderNotifications(t *testing.T) {
	env := testutil.Setup(t)
	ctx := context.Background()
	svc := env.Svc.Notifications
	pubA, pubAUsr := env.Publisher(t, "Ekata Books", "ekata@kitab.test")
	pubB, pubBUsr := env.Publisher(t, "Sajha Prakashan", "sajha@kitab.test")
	bA := env.Book(t, pubA.ID, "Muna Madan", "9789993304001", 250)
	env.Book(t, pubB.ID, "Seto Dharti", "9789937000001", 300)
	buyer := env.CreateUser(t, user.TypeIndividualUser, "reader@kitab.test")

	o := env.Order(t, buyer, map[string]int{bA.ID: 2})

	t.Run("buyer", func(t *testing.T) {
		notifs, err := svc.List(ctx, buyer, false)
		require.NoError(t, err)
		require.Len(t, notifs, 1)
		assert.Equal(t, notification.TypeOrderPlaced, notifs[0].NotificationType)
		assert.Equal(t, o.ID, notifs[0].OrderID)
		assert.False(t, notifs[0].IsRead)

		sent := emailsvc.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, buyer.Email, sent[0].To[0].Address)
		assert.Contains(t, sent[0].Subject, o.OrderCode)
	})

	t.Run("publishers involved", func(t *testing.T) {
		notifs, err := svc.List(ctx, pubAUsr, false)
		require.NoError(t, err)
		require.Len(t, notifs, 1)
		assert.Equal(t, notification.TypeOrderReceived, notifs[0].NotificationType)
		assert.Contains(t, notifs[0].Body, "2 copies ordered: Muna Madan.")

		notifs, err = svc.List(ctx, pubBUsr, false)
		require.NoError(t, err)
		assert.Empty(t, notifs, "no book of this publisher in the order")
	})

	t.Run("status changes", func(t *testing.T) {
		_, err := env.Svc.Orders.UpdateStatus(ctx, env.Admin(t), o.ID, order.StatusInTransit)
		require.NoError(t, err)

		notifs, err := svc.List(ctx, buyer, true)
		require.NoError(t, err)
		changed := byType(notifs)[notification.TypeOrderStatusChanged]
		require.Len(t, changed, 1)
		assert.Contains(t, changed[0].Title, "in transit")
	})

	t.Run("mark read", func(t *testing.T) {
		count, err := svc.UnreadCount(ctx, buyer)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		notifs, err := svc.List(ctx, buyer, true)
		require.NoError(t, err)
		placed := byType(notifs)[notification.TypeOrderPlaced]
		require.Len(t, placed, 1)

		n, err := svc.MarkRead(ctx, pubAUsr, []string{placed[0].ID})
		require.NoError(t, err)
		assert.Zero(t, n, "other recipient's notification")

		n, err = svc.MarkRead(ctx, buyer, []string{placed[0].ID})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		count, err = svc.UnreadCount(ctx, buyer)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		n, err = svc.MarkAllRead(ctx, buyer)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		unread, err := svc.List(ctx, buyer, true)
		require.NoError(t, err)
		assert.Empty(t, unread)
	})
}

func TestBroadcast(t *testing.T) {
	env := testutil.Setup(t)
	ctx := context.Background()
	svc := env.Svc.Notifications
	admin := env.Admin(t)
	_, pubUsr := env.Publisher(t, "Ekata Books", "ekata@kitab.test")
	reader := env.CreateUser(t, user.TypeIndividualUser, "reader@kitab.test")
	env.CreateUser(t, user.TypeIndividualUser, "inactive@kitab.test", func(u *user.User) { u.IsActive = false })

	t.Run("permission denied", func(t *testing.T) {
		_, err := svc.Broadcast(ctx, pubUsr, notification.Broadcast{Title: "Hi", Body: "there", UserIDs: []string{reader.ID}})
		assert.Equal(t, core.ErrPermissionDenied, err)
	})

	t.Run("missing title", func(t *testing.T) {
		_, err := svc.Broadcast(ctx, admin, notification.Broadcast{Title: "  ", Body: "there", UserIDs: []string{reader.ID}})
		_, ok := errors.Cause(err).(validator.ValidationErrors)
		assert.True(t, ok, "got %v", err)
	})

	t.Run("no recipients", func(t *testing.T) {
		_, err := svc.Broadcast(ctx, admin, notification.Broadcast{Title: "Hi", Body: "there"})
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, notification.ErrNoRecipients, vErr.Err)
	})

	n, err := svc.Broadcast(ctx, admin, notification.Broadcast{
		Title:     "Book fair",
		Body:      "The book fair opens on Monday.",
		UserTypes: []string{user.TypeIndividualUser},
		UserIDs:   []string{reader.ID, pubUsr.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n, "inactive users are skipped, duplicates merged")

	for _, usr := range []user.User{reader, pubUsr} {
		notifs, err := svc.List(ctx, usr, false)
		require.NoError(t, err)
		require.Len(t, notifs, 1)
		assert.Equal(t, notification.TypeGeneral, notifs[0].NotificationType)
		assert.Equal(t, "Book fair", notifs[0].Title)
	}
}
