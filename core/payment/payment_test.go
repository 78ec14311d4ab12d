package payment_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/order"
	"github.com/kitab-bazar/server/core/payment"
	"github.com/kitab-bazar/server/core/school"
	"github.com/kitab-bazar/server/core/user"
	"github.com/kitab-bazar/server/tests"
)

func fieldErrors(t *testing.T, err error) []core.FieldError {
	t.Helper()
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "not a validation error: %v", err)
	return vErr.Fields
}

func TestCreate(t *testing.T) {
	env := testutil.Setup(t)
	ctx := context.Background()
	svc := env.Svc.Payments
	admin := env.Admin(t)
	pub, _ := env.Publisher(t, "Ekata Books", "ekata@kitab.test")
	b := env.Book(t, pub.ID, "Muna Madan", "9789993304001", 250)
	m := env.Municipality(t, "Lalitpur")
	_, buyer := env.School(t, school.KindSchool, "Shree School", "school@kitab.test", m.ID)
	other := env.CreateUser(t, user.TypeIndividualUser, "reader@kitab.test")
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	env.SetNow(now)
	env.Window(t, order.WindowTypeSchool, now.Add(-time.Hour), 2*time.Hour)
	o := env.Order(t, buyer, map[string]int{b.ID: 4})

	np := func(userID, orderID string) payment.NewPayment {
		return payment.NewPayment{
			UserID:          userID,
			OrderID:         orderID,
			Amount:          1000,
			PaymentType:     payment.TypeCash,
			TransactionType: payment.TransactionCredit,
		}
	}

	t.Run("buyers cannot create payments", func(t *testing.T) {
		_, err := svc.Create(ctx, buyer, np(buyer.ID, ""))
		assert.Equal(t, core.ErrPermissionDenied, err)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Create(ctx, admin, np(core.NewID(), ""))
		assert.Equal(t, []core.FieldError{{Field: "user_id", Error: "user does not exist"}}, fieldErrors(t, err))
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := svc.Create(ctx, admin, np(buyer.ID, core.NewID()))
		assert.Equal(t, []core.FieldError{{Field: "order_id", Error: "order does not exist"}}, fieldErrors(t, err))
	})

	t.Run("order of another user", func(t *testing.T) {
		_, err := svc.Create(ctx, admin, np(other.ID, o.ID))
		assert.Equal(t, []core.FieldError{{Field: "order_id", Error: "order was not placed by this user"}}, fieldErrors(t, err))
	})

	p, err := svc.Create(ctx, admin, np(buyer.ID, o.ID))
	require.NoError(t, err)
	assert.Equal(t, o.ID, p.OrderID)
	assert.Equal(t, payment.StatusPending, p.Status)
	assert.Equal(t, admin.ID, p.CreatedByID)
}

func TestBalance(t *testing.T) {
	env := testutil.Setup(t)
	ctx := context.Background()
	svc := env.Svc.Payments
	admin := env.Admin(t)
	buyer := env.CreateUser(t, user.TypeIndividualUser, "reader@kitab.test")
	other := env.CreateUser(t, user.TypeIndividualUser, "other@kitab.test")

	for _, p := range []struct {
		userID, txType, status string
		amount                 int
	}{
		{buyer.ID, payment.TransactionCredit, payment.StatusVerified, 1000},
		{buyer.ID, payment.TransactionCredit, payment.StatusVerified, 500},
		{buyer.ID, payment.TransactionDebit, payment.StatusVerified, 300},
		{buyer.ID, payment.TransactionCredit, payment.StatusPending, 700},
		{buyer.ID, payment.TransactionDebit, payment.StatusFailed, 200},
		{other.ID, payment.TransactionCredit, payment.StatusVerified, 50},
	} {
		_, err := svc.Create(ctx, admin, payment.NewPayment{
			UserID:          p.userID,
			Amount:          p.amount,
			PaymentType:     payment.TypeBankTransfer,
			TransactionType: p.txType,
			Status:          p.status,
		})
		require.NoError(t, err)
	}
	want := payment.Balance{UserID: buyer.ID, Credits: 1500, Debits: 300, Amount: 1200}

	t.Run("own balance by default", func(t *testing.T) {
		bal, err := svc.Balance(ctx, buyer, "")
		require.NoError(t, err)
		assert.Equal(t, want, bal, "only verified payments count")
	})

	t.Run("balance of another user", func(t *testing.T) {
		_, err := svc.Balance(ctx, other, buyer.ID)
		assert.Equal(t, core.ErrPermissionDenied, err)

		bal, err := svc.Balance(ctx, admin, buyer.ID)
		require.NoError(t, err)
		assert.Equal(t, want, bal)
	})

	t.Run("no payments", func(t *testing.T) {
		bal, err := svc.Balance(ctx, admin, "")
		require.NoError(t, err)
		assert.Equal(t, payment.Balance{UserID: admin.ID}, bal)
	})
}
