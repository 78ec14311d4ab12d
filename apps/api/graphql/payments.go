package gqlapi

import (
	"context"

	"github.com/graph-gophers/graphql-go"

	"github.com/kitab-bazar/server/core/notification"
	"github.com/kitab-bazar/server/core/payment"
)

type (
	paymentFilterInput struct {
		UserID          *graphql.ID
		OrderID         *graphql.ID
		Statuses        *[]string
		TransactionType *string
	}

	paymentInput struct {
		UserID          graphql.ID
		OrderID         *graphql.ID
		Amount          int32
		PaymentType     string
		TransactionType string
		Status          *string
		Remarks         *string
	}

	broadcastInput struct {
		UserIDs   *[]graphql.ID
		UserTypes *[]string
		Title     string
		Body      string
	}
)

func (in *paymentFilterInput) filter() payment.QueryFilter {
	if in == nil {
		return payment.QueryFilter{}
	}
	return payment.QueryFilter{
		UserID:          idStr(in.UserID),
		OrderID:         idStr(in.OrderID),
		Statuses:        optStrings(in.Statuses),
		TransactionType: str(in.TransactionType),
	}
}

// Payments

func (r *Resolver) Payments(ctx context.Context, args struct {
	Filter   *paymentFilterInput
	Ordering *string
	Limit    *int32
	Offset   *int32
}) ([]*paymentResolver, error) {
	actr, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	payments, err := r.svc.Payments.Query(ctx, actr, args.Filter.filter(), ordering(args.Ordering, payment.OrderingFields))
	if err != nil {
		return nil, err
	}
	start, end := page(len(payments), args.Limit, args.Offset)
	out := make([]*paymentResolver, 0, end-start)
	for _, p := range payments[start:end] {
		out = append(out, &paymentResolver{p: p})
	}
	return out, nil
}

func (r *Resolver) Payment(ctx context.Context, args struct{ ID graphql.ID }) (*paymentResolver, error) {
	actr, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	p, err := r.svc.Payments.Get(ctx, actr, string(args.ID))
	if err != nil {
		return nil, err
	}
	return &paymentResolver{p: p}, nil
}

// Balance defaults to the balance of the authenticated user.
func (r *Resolver) Balance(ctx context.Context, args struct{ UserID *graphql.ID }) (*balanceResolver, error) {
	actr, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	userID := idStr(args.UserID)
	if userID == "" {
		userID = actr.ID
	}
	b, err := r.svc.Payments.Balance(ctx, actr, userID)
	if err != nil {
		return nil, err
	}
	return &balanceResolver{b: b}, nil
}

func (r *Resolver) CreatePayment(ctx context.Context, args struct{ Input paymentInput }) (*paymentResolver, error) {
	actr, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	in := args.Input
	p, err := r.svc.Payments.Create(ctx, actr, payment.NewPayment{
		UserID:          string(in.UserID),
		OrderID:         idStr(in.OrderID),
		Amount:          int(in.Amount),
		PaymentType:     in.PaymentType,
		TransactionType: in.TransactionType,
		Status:          str(in.Status),
		Remarks:         str(in.Remarks),
	})
	if err != nil {
		return nil, err
	}
	return &paymentResolver{p: p}, nil
}

func (r *Resolver) UpdatePaymentStatus(ctx context.Context, args statusArgs) (*paymentResolver, error) {
	actr, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	p, err := r.svc.Payments.UpdateStatus(ctx, actr, string(args.ID), args.Status)
	if err != nil {
		return nil, err
	}
	return &paymentResolver{p: p}, nil
}

// Notifications

func (r *Resolver) Notifications(ctx context.Context, args struct {
	UnreadOnly *bool
	Limit      *int32
	Offset     *int32
}) ([]*notificationResolver, error) {
	recipient, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	notifs, err := r.svc.Notifications.List(ctx, recipient, boolean(args.UnreadOnly))
	if err != nil {
		return nil, err
	}
	start, end := page(len(notifs), args.Limit, args.Offset)
	out := make([]*notificationResolver, 0, end-start)
	for _, n := range notifs[start:end] {
		out = append(out, &notificationResolver{n: n})
	}
	return out, nil
}

func (r *Resolver) UnreadNotificationsCount(ctx context.Context) (int32, error) {
	recipient, err := actor(ctx)
	if err != nil {
		return 0, err
	}
	n, err := r.svc.Notifications.UnreadCount(ctx, recipient)
	return int32(n), err
}

func (r *Resolver) MarkNotificationsRead(ctx context.Context, args struct{ IDs []graphql.ID }) (int32, error) {
	recipient, err := actor(ctx)
	if err != nil {
		return 0, err
	}
	n, err := r.svc.Notifications.MarkRead(ctx, recipient, fromIDs(args.IDs))
	return int32(n), err
}

func (r *Resolver) MarkAllNotificationsRead(ctx context.Context) (int32, error) {
	recipient, err := actor(ctx)
	if err != nil {
		return 0, err
	}
	n, err := r.svc.Notifications.MarkAllRead(ctx, recipient)
	return int32(n), err
}

func (r *Resolver) BroadcastNotification(ctx context.Context, args struct{ Input broadcastInput }) (int32, error) {
	actr, err := actor(ctx)
	if err != nil {
		return 0, err
	}
	in := args.Input
	n, err := r.svc.Notifications.Broadcast(ctx, actr, notification.Broadcast{
		UserIDs:   idList(in.UserIDs),
		UserTypes: optStrings(in.UserTypes),
		Title:     in.Title,
		Body:      in.Body,
	})
	return int32(n), err
}
