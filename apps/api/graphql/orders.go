package gqlapi

import (
	"context"
	"time"

	"github.com/graph-gophers/graphql-go"

	"github.com/kitab-bazar/server/core/order"
	"github.com/kitab-bazar/server/core/user"
)

type (
	orderFilterInput struct {
		Statuses           *[]string
		OrderWindowID      *graphql.ID
		CreatedByID        *graphql.ID
		AssignedForPackage *bool
		Search             *string
	}

	orderWindowInput struct {
		Title       string
		Description *string
		WindowType  string
		StartDate   graphql.Time
		EndDate     graphql.Time
	}

	updateOrderWindowInput struct {
		Title       *string
		Description *string
		WindowType  *string
		StartDate   *graphql.Time
		EndDate     *graphql.Time
	}

	statusArgs struct {
		ID     graphql.ID
		Status string
	}
)

func (in *orderFilterInput) filter() order.QueryFilter {
	if in == nil {
		return order.QueryFilter{}
	}
	return order.QueryFilter{
		Statuses:           optStrings(in.Statuses),
		OrderWindowID:      idStr(in.OrderWindowID),
		CreatedByID:        idStr(in.CreatedByID),
		AssignedForPackage: in.AssignedForPackage,
		Search:             str(in.Search),
	}
}

func optDate(t *graphql.Time) *time.Time {
	if t == nil {
		return nil
	}
	return &t.Time
}

// Cart

func (r *Resolver) Cart(ctx context.Context) (*cartResolver, error) {
	buyer, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	cart, err := r.svc.Orders.Cart(ctx, buyer)
	if err != nil {
		return nil, err
	}
	return &cartResolver{cart: cart}, nil
}

func (r *Resolver) AddToCart(ctx context.Context, args struct {
	BookID   graphql.ID
	Quantity int32
}) (*cartItemResolver, error) {
	buyer, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	item, err := r.svc.Orders.AddToCart(ctx, buyer, string(args.BookID), int(args.Quantity))
	if err != nil {
		return nil, err
	}
	return &cartItemResolver{item: item}, nil
}

func (r *Resolver) UpdateCartItem(ctx context.Context, args struct {
	ID       graphql.ID
	Quantity int32
}) (*cartItemResolver, error) {
	buyer, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	item, removed, err := r.svc.Orders.UpdateCartItem(ctx, buyer, string(args.ID), int(args.Quantity))
	if err != nil || removed {
		return nil, err
	}
	return &cartItemResolver{item: item}, nil
}

func (r *Resolver) RemoveFromCart(ctx context.Context, args struct{ ID graphql.ID }) (bool, error) {
	buyer, err := actor(ctx)
	if err != nil {
		return false, err
	}
	if err = r.svc.Orders.RemoveFromCart(ctx, buyer, string(args.ID)); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Resolver) ClearCart(ctx context.Context) (bool, error) {
	buyer, err := actor(ctx)
	if err != nil {
		return false, err
	}
	if err = r.svc.Orders.ClearCart(ctx, buyer); err != nil {
		return false, err
	}
	return true, nil
}

// Wishlist

func (r *Resolver) Wishlist(ctx context.Context) ([]*wishListItemResolver, error) {
	buyer, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	items, err := r.svc.Orders.Wishlist(ctx, buyer)
	if err != nil {
		return nil, err
	}
	out := make([]*wishListItemResolver, len(items))
	for i, item := range items {
		out[i] = &wishListItemResolver{r: r, item: item}
	}
	return out, nil
}

func (r *Resolver) AddToWishlist(ctx context.Context, args struct{ BookID graphql.ID }) (*wishListItemResolver, error) {
	buyer, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	item, err := r.svc.Orders.AddToWishlist(ctx, buyer, string(args.BookID))
	if err != nil {
		return nil, err
	}
	return &wishListItemResolver{r: r, item: item}, nil
}

func (r *Resolver) RemoveFromWishlist(ctx context.Context, args struct{ BookID graphql.ID }) (bool, error) {
	buyer, err := actor(ctx)
	if err != nil {
		return false, err
	}
	if err = r.svc.Orders.RemoveFromWishlist(ctx, buyer, string(args.BookID)); err != nil {
		return false, err
	}
	return true, nil
}

// Order windows

func (r *Resolver) OrderWindows(ctx context.Context, args struct {
	WindowType *string
	Ordering   *string
}) ([]*orderWindowResolver, error) {
	if _, err := actor(ctx); err != nil {
		return nil, err
	}
	ws, err := r.svc.Orders.Windows(ctx, order.WindowFilter{WindowType: str(args.WindowType)}, ordering(args.Ordering, order.WindowOrderingFields))
	if err != nil {
		return nil, err
	}
	return windows(ws), nil
}

func (r *Resolver) OrderWindow(ctx context.Context, args struct{ ID graphql.ID }) (*orderWindowResolver, error) {
	if _, err := actor(ctx); err != nil {
		return nil, err
	}
	w, err := r.svc.Orders.GetWindow(ctx, string(args.ID))
	if err != nil {
		return nil, err
	}
	return &orderWindowResolver{w: w}, nil
}

func (r *Resolver) ActiveOrderWindows(ctx context.Context, args struct{ WindowType *string }) ([]*orderWindowResolver, error) {
	if _, err := actor(ctx); err != nil {
		return nil, err
	}
	ws, err := r.svc.Orders.ActiveWindows(ctx, time.Now(), str(args.WindowType))
	if err != nil {
		return nil, err
	}
	return windows(ws), nil
}

func (r *Resolver) CreateOrderWindow(ctx context.Context, args struct{ Input orderWindowInput }) (*orderWindowResolver, error) {
	if _, err := withPerm(ctx, user.PermManageOrderWindows); err != nil {
		return nil, err
	}
	in := args.Input
	w, err := r.svc.Orders.CreateWindow(ctx, order.NewOrderWindow{
		Title:       in.Title,
		Description: str(in.Description),
		WindowType:  in.WindowType,
		StartDate:   in.StartDate.Time,
		EndDate:     in.EndDate.Time,
	})
	if err != nil {
		return nil, err
	}
	return &orderWindowResolver{w: w}, nil
}

func (r *Resolver) UpdateOrderWindow(ctx context.Context, args struct {
	ID    graphql.ID
	Input updateOrderWindowInput
}) (*orderWindowResolver, error) {
	if _, err := withPerm(ctx, user.PermManageOrderWindows); err != nil {
		return nil, err
	}
	in := args.Input
	w, err := r.svc.Orders.UpdateWindow(ctx, string(args.ID), order.UpdateOrderWindow{
		Title:       in.Title,
		Description: in.Description,
		WindowType:  in.WindowType,
		StartDate:   optDate(in.StartDate),
		EndDate:     optDate(in.EndDate),
	})
	if err != nil {
		return nil, err
	}
	return &orderWindowResolver{w: w}, nil
}

func (r *Resolver) DeleteOrderWindow(ctx context.Context, args struct{ ID graphql.ID }) (bool, error) {
	if _, err := withPerm(ctx, user.PermManageOrderWindows); err != nil {
		return false, err
	}
	if err := r.svc.Orders.DeleteWindow(ctx, string(args.ID)); err != nil {
		return false, err
	}
	return true, nil
}

// Orders

func (r *Resolver) Orders(ctx context.Context, args struct {
	Filter   *orderFilterInput
	Ordering *string
	Limit    *int32
	Offset   *int32
}) ([]*orderResolver, error) {
	actr, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := r.svc.Orders.Query(ctx, actr, args.Filter.filter(), ordering(args.Ordering, order.OrderingFields))
	if err != nil {
		return nil, err
	}
	start, end := page(len(orders), args.Limit, args.Offset)
	out := make([]*orderResolver, 0, end-start)
	for _, o := range orders[start:end] {
		out = append(out, &orderResolver{o: o})
	}
	return out, nil
}

func (r *Resolver) Order(ctx context.Context, args struct{ ID graphql.ID }) (*orderResolver, error) {
	actr, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	o, err := r.svc.Orders.Get(ctx, actr, string(args.ID))
	if err != nil {
		return nil, err
	}
	return &orderResolver{o: o}, nil
}

func (r *Resolver) OrderStats(ctx context.Context, args struct{ Filter *orderFilterInput }) ([]*orderStatsResolver, error) {
	actr, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := r.svc.Orders.Stats(ctx, actr, args.Filter.filter())
	if err != nil {
		return nil, err
	}
	out := make([]*orderStatsResolver, len(stats))
	for i, s := range stats {
		out[i] = &orderStatsResolver{s: s}
	}
	return out, nil
}

func (r *Resolver) PlaceOrder(ctx context.Context) (*orderResolver, error) {
	buyer, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	o, err := r.svc.Orders.PlaceOrder(ctx, buyer)
	if err != nil {
		return nil, err
	}
	return &orderResolver{o: o}, nil
}

func (r *Resolver) UpdateOrderStatus(ctx context.Context, args statusArgs) (*orderResolver, error) {
	actr, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	o, err := r.svc.Orders.UpdateStatus(ctx, actr, string(args.ID), args.Status)
	if err != nil {
		return nil, err
	}
	return &orderResolver{o: o}, nil
}

func (r *Resolver) CancelOrder(ctx context.Context, args struct{ ID graphql.ID }) (*orderResolver, error) {
	actr, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	o, err := r.svc.Orders.Cancel(ctx, actr, string(args.ID))
	if err != nil {
		return nil, err
	}
	return &orderResolver{o: o}, nil
}
