package order

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/book"
	"github.com/kitab-bazar/server/core/user"
)

const codeAttempts = 5

var (
	// errors
	ErrNotFound            = errors.New("order not found")
	ErrCartItemNotFound    = errors.New("cart item not found")
	ErrWishListNotFound    = errors.New("wishlist item not found")
	ErrWindowNotFound      = errors.New("order window not found")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrNoActiveWindow      = errors.New("no order window is currently open for you")
	ErrBuyerNotVerified    = errors.New("your account must be verified before ordering")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrAssignedForPackage  = errors.New("order already assigned to a package")
	ErrCodeGenerationLimit = errors.New("could not generate a unique order code")

	OrderingFields = map[string]string{
		"created_at":     "created_at",
		"order_code":     "order_code",
		"total_price":    "total_price",
		"total_quantity": "total_quantity",
		"status":         "status",
	}
	WindowOrderingFields = map[string]string{
		"start_date": "start_date",
		"end_date":   "end_date",
		"title":      "title",
	}
)

type (
	// Observer is told about order events once they are committed.
	Observer interface {
		OrderPlaced(ctx context.Context, o Order, buyer user.User) error
		OrderStatusChanged(ctx context.Context, o Order, prevStatus string) error
	}

	Repository interface {
		CreateCartItem(ctx context.Context, item CartItem) (CartItem, error)
		UpdateCartItem(ctx context.Context, item CartItem) (CartItem, error)
		GetCartItem(ctx context.Context, id string) (CartItem, error)
		GetCartItemByBook(ctx context.Context, userID, bookID string) (CartItem, error)
		QueryCartItems(ctx context.Context, userID string) ([]CartItem, error)
		DeleteCartItem(ctx context.Context, id string) error
		ClearCart(ctx context.Context, userID string) error

		CreateWishListItem(ctx context.Context, item WishListItem) (WishListItem, error)
		GetWishListItemByBook(ctx context.Context, userID, bookID string) (WishListItem, error)
		QueryWishListItems(ctx context.Context, userID string) ([]WishListItem, error)
		DeleteWishListItems(ctx context.Context, userID string, bookIDs []string) (int, error)

		CreateOrderWindow(ctx context.Context, w OrderWindow) (OrderWindow, error)
		UpdateOrderWindow(ctx context.Context, w OrderWindow) (OrderWindow, error)
		GetOrderWindow(ctx context.Context, id string) (OrderWindow, error)
		QueryOrderWindows(ctx context.Context, filter WindowFilter, ordering []core.DBOrdering) ([]OrderWindow, error)
		DeleteOrderWindow(ctx context.Context, id string) error

		// CreateOrder saves o together with its lines.
		CreateOrder(ctx context.Context, o Order) (Order, error)
		GetOrder(ctx context.Context, id string) (Order, error)
		QueryOrders(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Order, error)
		// UpdateOrder saves the order header; lines are immutable.
		UpdateOrder(ctx context.Context, o Order) (Order, error)
		OrderCodeExists(ctx context.Context, code string) (bool, error)
		OrderStats(ctx context.Context, filter *QueryFilter) ([]StatusStats, error)
	}

	Service struct {
		repo      Repository
		tx        core.TxRunner
		books     *book.Service
		validate  *validator.Validate
		logger    core.Logger
		observers []Observer
		nowFunc   func() time.Time // mockable
	}
)

func NewService(repo Repository, tx core.TxRunner, books *book.Service, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{repo: repo, tx: tx, books: books, validate: validate, logger: logger, nowFunc: time.Now}
}

// Subscribe registers obs to order events.
func (svc *Service) Subscribe(obs Observer) {
	svc.observers = append(svc.observers, obs)
}

// SetNowFunc overrides the clock used to match order windows.
func (svc *Service) SetNowFunc(f func() time.Time) { svc.nowFunc = f }

func (svc *Service) now() time.Time { return svc.nowFunc().UTC() }

func (svc *Service) publishPlaced(ctx context.Context, o Order, buyer user.User) {
	for _, obs := range svc.observers {
		if err := obs.OrderPlaced(ctx, o, buyer); err != nil {
			svc.logger.Error(fmt.Sprintf("order.publishPlaced: %v", err), err, buyer)
		}
	}
}

func (svc *Service) publishStatusChanged(ctx context.Context, o Order, prev string) {
	for _, obs := range svc.observers {
		if err := obs.OrderStatusChanged(ctx, o, prev); err != nil {
			svc.logger.Error(fmt.Sprintf("order.publishStatusChanged: %v", err), err)
		}
	}
}

// Cart

func (svc *Service) AddToCart(ctx context.Context, buyer user.User, bookID string, quantity int) (CartItem, error) {
	if !buyer.HasPerm(user.PermUseCart) {
		return CartItem{}, core.ErrPermissionDenied
	}
	if quantity < 1 {
		return CartItem{}, core.NewFieldError("quantity", "quantity must be at least 1")
	}
	b, err := svc.books.Get(ctx, buyer, bookID)
	if err != nil {
		if errors.Cause(err) == book.ErrNotFound {
			return CartItem{}, core.NewFieldError("book_id", "book does not exist")
		}
		return CartItem{}, err
	}
	if !b.IsPublished {
		return CartItem{}, core.NewFieldError("book_id", "book is not available")
	}

	var item CartItem
	err = svc.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := svc.now()
		existing, err := svc.repo.GetCartItemByBook(ctx, buyer.ID, b.ID)
		switch {
		case err == nil:
			existing.Quantity += quantity
			existing.UpdatedAt = now
			item, err = svc.repo.UpdateCartItem(ctx, existing)
			return err
		case errors.Cause(err) != ErrCartItemNotFound:
			return err
		}
		item, err = svc.repo.CreateCartItem(ctx, CartItem{
			ID:        core.NewID(),
			UserID:    buyer.ID,
			BookID:    b.ID,
			Quantity:  quantity,
			CreatedAt: now,
			UpdatedAt: now,
		})
		return err
	})
	return item, err
}

func (svc *Service) ownCartItem(ctx context.Context, buyer user.User, itemID string) (CartItem, error) {
	if !core.IsValidID(itemID) {
		return CartItem{}, ErrCartItemNotFound
	}
	item, err := svc.repo.GetCartItem(ctx, itemID)
	if err != nil {
		return CartItem{}, err
	}
	if item.UserID != buyer.ID {
		return CartItem{}, ErrCartItemNotFound
	}
	return item, nil
}

// UpdateCartItem sets the item's quantity; a zero quantity removes the item
// and returns removed as true.
func (svc *Service) UpdateCartItem(ctx context.Context, buyer user.User, itemID string, quantity int) (item CartItem, removed bool, err error) {
	if quantity < 0 {
		return CartItem{}, false, core.NewFieldError("quantity", "quantity cannot be negative")
	}
	item, err = svc.ownCartItem(ctx, buyer, itemID)
	if err != nil {
		return CartItem{}, false, err
	}
	if quantity == 0 {
		return item, true, svc.repo.DeleteCartItem(ctx, item.ID)
	}
	item.Quantity = quantity
	item.UpdatedAt = svc.now()
	item, err = svc.repo.UpdateCartItem(ctx, item)
	return item, false, err
}

func (svc *Service) RemoveFromCart(ctx context.Context, buyer user.User, itemID string) error {
	item, err := svc.ownCartItem(ctx, buyer, itemID)
	if err != nil {
		return err
	}
	return svc.repo.DeleteCartItem(ctx, item.ID)
}

func (svc *Service) ClearCart(ctx context.Context, buyer user.User) error {
	return svc.repo.ClearCart(ctx, buyer.ID)
}

// Cart returns the buyer's cart priced with the current book prices.
func (svc *Service) Cart(ctx context.Context, buyer user.User) (Cart, error) {
	items, err := svc.repo.QueryCartItems(ctx, buyer.ID)
	if err != nil {
		return Cart{}, err
	}
	books, err := svc.booksOf(ctx, items)
	if err != nil {
		return Cart{}, err
	}
	cart := Cart{Lines: make([]CartLine, 0, len(items))}
	for _, item := range items {
		b := books[item.BookID]
		line := CartLine{Item: item, Title: b.Title, Price: b.Price, TotalPrice: b.Price * item.Quantity}
		cart.Lines = append(cart.Lines, line)
		cart.TotalQuantity += item.Quantity
		cart.TotalPrice += line.TotalPrice
	}
	return cart, nil
}

func (svc *Service) booksOf(ctx context.Context, items []CartItem) (map[string]book.Book, error) {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.BookID)
	}
	books, err := svc.books.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]book.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}
	return byID, nil
}

// Wishlist

// AddToWishlist adds the book to the buyer's wishlist. Adding it twice is a no-op.
func (svc *Service) AddToWishlist(ctx context.Context, buyer user.User, bookID string) (WishListItem, error) {
	if !buyer.HasPerm(user.PermUseCart) {
		return WishListItem{}, core.ErrPermissionDenied
	}
	b, err := svc.books.Get(ctx, buyer, bookID)
	if err != nil {
		if errors.Cause(err) == book.ErrNotFound {
			return WishListItem{}, core.NewFieldError("book_id", "book does not exist")
		}
		return WishListItem{}, err
	}
	item, err := svc.repo.GetWishListItemByBook(ctx, buyer.ID, b.ID)
	if err == nil {
		return item, nil
	}
	if errors.Cause(err) != ErrWishListNotFound {
		return WishListItem{}, err
	}
	return svc.repo.CreateWishListItem(ctx, WishListItem{
		ID:        core.NewID(),
		UserID:    buyer.ID,
		BookID:    b.ID,
		CreatedAt: svc.now(),
	})
}

func (svc *Service) RemoveFromWishlist(ctx context.Context, buyer user.User, bookID string) error {
	n, err := svc.repo.DeleteWishListItems(ctx, buyer.ID, []string{bookID})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrWishListNotFound
	}
	return nil
}

func (svc *Service) Wishlist(ctx context.Context, buyer user.User) ([]WishListItem, error) {
	return svc.repo.QueryWishListItems(ctx, buyer.ID)
}

// Order windows

func (svc *Service) CreateWindow(ctx context.Context, nw NewOrderWindow) (OrderWindow, error) {
	nw.Title = core.CleanString(nw.Title)
	nw.Description = core.CleanString(nw.Description)
	if err := svc.validate.Struct(nw); err != nil {
		return OrderWindow{}, err
	}
	now := svc.now()
	return svc.repo.CreateOrderWindow(ctx, OrderWindow{
		ID:          core.NewID(),
		Title:       nw.Title,
		Description: nw.Description,
		WindowType:  nw.WindowType,
		StartDate:   nw.StartDate.UTC(),
		EndDate:     nw.EndDate.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) UpdateWindow(ctx context.Context, id string, uw UpdateOrderWindow) (OrderWindow, error) {
	w, err := svc.GetWindow(ctx, id)
	if err != nil {
		return OrderWindow{}, err
	}
	if err = svc.validate.Struct(uw); err != nil {
		return OrderWindow{}, err
	}
	if uw.Title != nil {
		w.Title = core.CleanString(*uw.Title)
	}
	if uw.Description != nil {
		w.Description = core.CleanString(*uw.Description)
	}
	if uw.WindowType != nil {
		w.WindowType = *uw.WindowType
	}
	if uw.StartDate != nil {
		w.StartDate = uw.StartDate.UTC()
	}
	if uw.EndDate != nil {
		w.EndDate = uw.EndDate.UTC()
	}
	if !w.EndDate.After(w.StartDate) {
		return OrderWindow{}, core.NewFieldError("end_date", "end date must be after start date")
	}
	w.UpdatedAt = svc.now()
	return svc.repo.UpdateOrderWindow(ctx, w)
}

// DeleteWindow removes a window that holds no order.
func (svc *Service) DeleteWindow(ctx context.Context, id string) error {
	if _, err := svc.GetWindow(ctx, id); err != nil {
		return err
	}
	orders, err := svc.repo.QueryOrders(ctx, &QueryFilter{OrderWindowID: id}, nil)
	if err != nil {
		return err
	}
	if len(orders) > 0 {
		return core.NewFieldError("id", "order window holds orders")
	}
	return svc.repo.DeleteOrderWindow(ctx, id)
}

func (svc *Service) GetWindow(ctx context.Context, id string) (OrderWindow, error) {
	if !core.IsValidID(id) {
		return OrderWindow{}, ErrWindowNotFound
	}
	return svc.repo.GetOrderWindow(ctx, id)
}

func (svc *Service) Windows(ctx context.Context, filter WindowFilter, ordering []core.DBOrdering) ([]OrderWindow, error) {
	return svc.repo.QueryOrderWindows(ctx, filter, ordering)
}

// ActiveWindows lists the windows of windowType open at t; an empty windowType matches any type.
func (svc *Service) ActiveWindows(ctx context.Context, t time.Time, windowType string) ([]OrderWindow, error) {
	return svc.repo.QueryOrderWindows(ctx, WindowFilter{WindowType: windowType, ActiveAt: t.UTC()},
		[]core.DBOrdering{{Field: "start_date", Ascending: true}})
}

// Orders

func (svc *Service) newOrderCode(ctx context.Context) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code := "OR-" + core.ShortCode(8)
		exists, err := svc.repo.OrderCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrCodeGenerationLimit
}

// PlaceOrder turns the buyer's cart into an order.
// School and institution buyers must be verified and order within an open window of their type.
func (svc *Service) PlaceOrder(ctx context.Context, buyer user.User) (Order, error) {
	if !buyer.HasPerm(user.PermPlaceOrder) {
		return Order{}, core.ErrPermissionDenied
	}

	var o Order
	err := svc.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := svc.now()

		var windowID string
		if windowType := WindowTypeFor(buyer); windowType != "" {
			if !buyer.IsVerified {
				return core.NewValidationError(ErrBuyerNotVerified, core.FieldError{Field: "user", Error: ErrBuyerNotVerified.Error()})
			}
			windows, err := svc.ActiveWindows(ctx, now, windowType)
			if err != nil {
				return err
			}
			if len(windows) == 0 {
				return core.NewValidationError(ErrNoActiveWindow, core.FieldError{Field: "order_window", Error: ErrNoActiveWindow.Error()})
			}
			windowID = windows[0].ID
		}

		items, err := svc.repo.QueryCartItems(ctx, buyer.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return core.NewValidationError(ErrEmptyCart, core.FieldError{Field: "cart", Error: ErrEmptyCart.Error()})
		}
		books, err := svc.booksOf(ctx, items)
		if err != nil {
			return err
		}

		code, err := svc.newOrderCode(ctx)
		if err != nil {
			return err
		}
		o = Order{
			ID:            core.NewID(),
			OrderCode:     code,
			Status:        StatusPending,
			CreatedByID:   buyer.ID,
			OrderWindowID: windowID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		bookIDs := make([]string, 0, len(items))
		for _, item := range items {
			b, ok := books[item.BookID]
			if !ok || !b.IsPublished {
				return core.NewFieldError("cart", fmt.Sprintf("book %s is no longer available", item.BookID))
			}
			line := BookOrder{
				ID:          core.NewID(),
				OrderID:     o.ID,
				BookID:      b.ID,
				Title:       b.Title,
				ISBN:        b.ISBN,
				Edition:     b.Edition,
				Price:       b.Price,
				PublisherID: b.PublisherID,
				Image:       b.Image,
				Quantity:    item.Quantity,
				TotalPrice:  b.Price * item.Quantity,
			}
			o.Books = append(o.Books, line)
			o.TotalQuantity += line.Quantity
			o.TotalPrice += line.TotalPrice
			bookIDs = append(bookIDs, b.ID)
		}
		sort.Slice(o.Books, func(i, j int) bool { return o.Books[i].Title < o.Books[j].Title })

		if o, err = svc.repo.CreateOrder(ctx, o); err != nil {
			return err
		}
		if err = svc.repo.ClearCart(ctx, buyer.ID); err != nil {
			return err
		}
		_, err = svc.repo.DeleteWishListItems(ctx, buyer.ID, bookIDs)
		return err
	})
	if err != nil {
		return Order{}, err
	}

	svc.publishPlaced(ctx, o, buyer)
	return o, nil
}

// canView reports whether actor may see o.
func canView(actor user.User, o Order) bool {
	switch {
	case actor.HasPerm(user.PermViewAllOrders):
		return true
	case actor.HasPerm(user.PermViewPublisherOrders):
		return len(o.PublisherLines(actor.PublisherID)) > 0
	}
	return actor.IsActive && o.CreatedByID == actor.ID
}

// scope restricts o to what actor may see.
func scope(actor user.User, o Order) Order {
	if actor.HasPerm(user.PermViewAllOrders) || !actor.HasPerm(user.PermViewPublisherOrders) {
		return o
	}
	o.Books = o.PublisherLines(actor.PublisherID)
	o.TotalPrice, o.TotalQuantity = 0, 0
	for _, l := range o.Books {
		o.TotalPrice += l.TotalPrice
		o.TotalQuantity += l.Quantity
	}
	return o
}

// scopeFilter restricts filter to the orders actor may see.
func scopeFilter(actor user.User, filter *QueryFilter) {
	switch {
	case actor.HasPerm(user.PermViewAllOrders):
	case actor.HasPerm(user.PermViewPublisherOrders):
		filter.PublisherID = actor.PublisherID
	default:
		filter.CreatedByID = actor.ID
	}
}

func (svc *Service) getRaw(ctx context.Context, id string) (Order, error) {
	if !core.IsValidID(id) {
		return Order{}, ErrNotFound
	}
	return svc.repo.GetOrder(ctx, id)
}

func (svc *Service) Get(ctx context.Context, actor user.User, id string) (Order, error) {
	o, err := svc.getRaw(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !canView(actor, o) {
		return Order{}, ErrNotFound
	}
	return scope(actor, o), nil
}

// Query lists the orders visible to actor. Publishers only see their own lines.
func (svc *Service) Query(ctx context.Context, actor user.User, filter QueryFilter, ordering []core.DBOrdering) ([]Order, error) {
	if !actor.IsActive {
		return nil, core.ErrPermissionDenied
	}
	filter.Clean()
	scopeFilter(actor, &filter)
	orders, err := svc.repo.QueryOrders(ctx, &filter, ordering)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i] = scope(actor, orders[i])
	}
	return orders, nil
}

// Stats aggregates the orders visible to actor per status.
func (svc *Service) Stats(ctx context.Context, actor user.User, filter QueryFilter) ([]StatusStats, error) {
	if !actor.IsActive {
		return nil, core.ErrPermissionDenied
	}
	filter.Clean()
	scopeFilter(actor, &filter)
	return svc.repo.OrderStats(ctx, &filter)
}

// UpdateStatus moves an order to status.
// Staff may apply any valid transition; buyers may only cancel their own pending, unpackaged orders.
func (svc *Service) UpdateStatus(ctx context.Context, actor user.User, id, status string) (Order, error) {
	var (
		o    Order
		prev string
	)
	err := svc.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if o, err = svc.getRaw(ctx, id); err != nil {
			return err
		}
		if !actor.HasPerm(user.PermUpdateOrderStatus) {
			if !actor.IsActive || o.CreatedByID != actor.ID {
				return ErrNotFound
			}
			if status != StatusCancelled {
				return core.ErrPermissionDenied
			}
			if o.AssignedForPackage {
				return core.NewValidationError(ErrAssignedForPackage, core.FieldError{Field: "status", Error: ErrAssignedForPackage.Error()})
			}
		}
		if !CanTransition(o.Status, status) {
			msg := fmt.Sprintf("cannot move order from %s to %s", o.Status, status)
			return core.NewValidationError(ErrInvalidTransition, core.FieldError{Field: "status", Error: msg})
		}
		prev = o.Status
		o.Status = status
		o.UpdatedAt = svc.now()
		o, err = svc.repo.UpdateOrder(ctx, o)
		return err
	})
	if err != nil {
		return Order{}, err
	}
	svc.publishStatusChanged(ctx, o, prev)
	return scope(actor, o), nil
}

func (svc *Service) Cancel(ctx context.Context, actor user.User, id string) (Order, error) {
	return svc.UpdateStatus(ctx, actor, id, StatusCancelled)
}

// Logistics support. These run within the caller's transaction.

// ForPackaging returns the pending orders of a window not assigned to a package yet.
func (svc *Service) ForPackaging(ctx context.Context, windowID string) ([]Order, error) {
	assigned := false
	return svc.repo.QueryOrders(ctx, &QueryFilter{
		OrderWindowID:      windowID,
		Statuses:           []string{StatusPending},
		AssignedForPackage: &assigned,
	}, []core.DBOrdering{{Field: "created_at", Ascending: true}})
}

// ByIDs returns the orders matching ids.
func (svc *Service) ByIDs(ctx context.Context, ids []string) ([]Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return svc.repo.QueryOrders(ctx, &QueryFilter{IDs: ids}, nil)
}

// SetAssigned flags orders as (un)assigned for packaging.
func (svc *Service) SetAssigned(ctx context.Context, orders []Order, assigned bool) error {
	now := svc.now()
	for _, o := range orders {
		o.AssignedForPackage = assigned
		o.UpdatedAt = now
		if _, err := svc.repo.UpdateOrder(ctx, o); err != nil {
			return err
		}
	}
	return nil
}

// Transition moves orders to status, skipping orders for which the transition is not allowed.
// The returned changes must be published with PublishChanges once committed.
func (svc *Service) Transition(ctx context.Context, orders []Order, status string) ([]StatusChange, error) {
	var changes []StatusChange
	now := svc.now()
	for _, o := range orders {
		if !CanTransition(o.Status, status) {
			continue
		}
		prev := o.Status
		o.Status = status
		o.UpdatedAt = now
		updated, err := svc.repo.UpdateOrder(ctx, o)
		if err != nil {
			return nil, err
		}
		changes = append(changes, StatusChange{Order: updated, PrevStatus: prev})
	}
	return changes, nil
}

// StatusChange records an order status update.
type StatusChange struct {
	Order      Order
	PrevStatus string
}

func (svc *Service) PublishChanges(ctx context.Context, changes []StatusChange) {
	for _, c := range changes {
		svc.publishStatusChanged(ctx, c.Order, c.PrevStatus)
	}
}
