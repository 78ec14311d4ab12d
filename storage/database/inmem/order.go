package inmemdb

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/order"
)

type orderRepository struct {
	db *DB
}

var _ order.Repository = (*orderRepository)(nil)

var (
	orderComparators = comparators[order.Order]{
		"created_at":     func(a, b order.Order) int { return a.CreatedAt.Compare(b.CreatedAt) },
		"order_code":     func(a, b order.Order) int { return strings.Compare(a.OrderCode, b.OrderCode) },
		"total_price":    func(a, b order.Order) int { return cmp.Compare(a.TotalPrice, b.TotalPrice) },
		"total_quantity": func(a, b order.Order) int { return cmp.Compare(a.TotalQuantity, b.TotalQuantity) },
		"status":         func(a, b order.Order) int { return strings.Compare(a.Status, b.Status) },
	}
	windowComparators = comparators[order.OrderWindow]{
		"start_date": func(a, b order.OrderWindow) int { return a.StartDate.Compare(b.StartDate) },
		"end_date":   func(a, b order.OrderWindow) int { return a.EndDate.Compare(b.EndDate) },
		"title":      func(a, b order.OrderWindow) int { return strings.Compare(a.Title, b.Title) },
	}
)

func NewOrderRepository(db *DB) *orderRepository {
	return &orderRepository{db: db}
}

func cloneOrder(o order.Order) order.Order {
	o.Books = slices.Clone(o.Books)
	return o
}

// Cart

func (repo *orderRepository) CreateCartItem(_ context.Context, item order.CartItem) (order.CartItem, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.t.cartItems.put(item.ID, item)
	return item, nil
}

func (repo *orderRepository) UpdateCartItem(_ context.Context, item order.CartItem) (order.CartItem, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.t.cartItems.get(item.ID); !ok {
		return order.CartItem{}, order.ErrCartItemNotFound
	}
	repo.db.t.cartItems.put(item.ID, item)
	return item, nil
}

func (repo *orderRepository) GetCartItem(_ context.Context, id string) (order.CartItem, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if item, ok := repo.db.t.cartItems.get(id); ok {
		return item, nil
	}
	return order.CartItem{}, order.ErrCartItemNotFound
}

func (repo *orderRepository) GetCartItemByBook(_ context.Context, userID, bookID string) (order.CartItem, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	item, ok := repo.db.t.cartItems.first(func(i order.CartItem) bool { return i.UserID == userID && i.BookID == bookID })
	if ok {
		return item, nil
	}
	return order.CartItem{}, order.ErrCartItemNotFound
}

func (repo *orderRepository) QueryCartItems(_ context.Context, userID string) ([]order.CartItem, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	rows := repo.db.t.cartItems.filter(func(i order.CartItem) bool { return i.UserID == userID })
	sortRows(rows, nil, nil, func(a, b order.CartItem) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return rows, nil
}

func (repo *orderRepository) DeleteCartItem(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if !repo.db.t.cartItems.del(id) {
		return order.ErrCartItemNotFound
	}
	return nil
}

func (repo *orderRepository) ClearCart(_ context.Context, userID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	for _, item := range repo.db.t.cartItems.filter(func(i order.CartItem) bool { return i.UserID == userID }) {
		repo.db.t.cartItems.del(item.ID)
	}
	return nil
}

// Wishlist

func (repo *orderRepository) CreateWishListItem(_ context.Context, item order.WishListItem) (order.WishListItem, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.t.wishlist.put(item.ID, item)
	return item, nil
}

func (repo *orderRepository) GetWishListItemByBook(_ context.Context, userID, bookID string) (order.WishListItem, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	item, ok := repo.db.t.wishlist.first(func(i order.WishListItem) bool { return i.UserID == userID && i.BookID == bookID })
	if ok {
		return item, nil
	}
	return order.WishListItem{}, order.ErrWishListNotFound
}

func (repo *orderRepository) QueryWishListItems(_ context.Context, userID string) ([]order.WishListItem, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	rows := repo.db.t.wishlist.filter(func(i order.WishListItem) bool { return i.UserID == userID })
	sortRows(rows, nil, nil, func(a, b order.WishListItem) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return rows, nil
}

func (repo *orderRepository) DeleteWishListItems(_ context.Context, userID string, bookIDs []string) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	set := inIDs(bookIDs)
	rows := repo.db.t.wishlist.filter(func(i order.WishListItem) bool {
		_, ok := set[i.BookID]
		return ok && i.UserID == userID
	})
	for _, item := range rows {
		repo.db.t.wishlist.del(item.ID)
	}
	return len(rows), nil
}

// Order windows

func (repo *orderRepository) CreateOrderWindow(_ context.Context, w order.OrderWindow) (order.OrderWindow, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.t.windows.put(w.ID, w)
	return w, nil
}

func (repo *orderRepository) UpdateOrderWindow(_ context.Context, w order.OrderWindow) (order.OrderWindow, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.t.windows.get(w.ID); !ok {
		return order.OrderWindow{}, order.ErrWindowNotFound
	}
	repo.db.t.windows.put(w.ID, w)
	return w, nil
}

func (repo *orderRepository) GetOrderWindow(_ context.Context, id string) (order.OrderWindow, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if w, ok := repo.db.t.windows.get(id); ok {
		return w, nil
	}
	return order.OrderWindow{}, order.ErrWindowNotFound
}

func (repo *orderRepository) QueryOrderWindows(_ context.Context, filter order.WindowFilter, ordering []core.DBOrdering) ([]order.OrderWindow, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	rows := repo.db.t.windows.filter(filter.Match)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "start_date", Ascending: true}}
	}
	sortRows(rows, ordering, windowComparators, func(a, b order.OrderWindow) int { return strings.Compare(a.ID, b.ID) })
	return rows, nil
}

func (repo *orderRepository) DeleteOrderWindow(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if !repo.db.t.windows.del(id) {
		return order.ErrWindowNotFound
	}
	return nil
}

// Orders

func (repo *orderRepository) CreateOrder(_ context.Context, o order.Order) (order.Order, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.t.orders.put(o.ID, cloneOrder(o))
	return o, nil
}

func (repo *orderRepository) GetOrder(_ context.Context, id string) (order.Order, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if o, ok := repo.db.t.orders.get(id); ok {
		return cloneOrder(o), nil
	}
	return order.Order{}, order.ErrNotFound
}

func (repo *orderRepository) QueryOrders(_ context.Context, filter *order.QueryFilter, ordering []core.DBOrdering) ([]order.Order, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.queryOrders(filter, ordering), nil
}

func (repo *orderRepository) queryOrders(filter *order.QueryFilter, ordering []core.DBOrdering) []order.Order {
	rows := repo.db.t.orders.filter(filter.Match)
	for i := range rows {
		rows[i] = cloneOrder(rows[i])
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	sortRows(rows, ordering, orderComparators, func(a, b order.Order) int { return strings.Compare(a.ID, b.ID) })
	return rows
}

func (repo *orderRepository) UpdateOrder(_ context.Context, o order.Order) (order.Order, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	orig, ok := repo.db.t.orders.get(o.ID)
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	// lines are immutable
	o.Books = orig.Books
	repo.db.t.orders.put(o.ID, o)
	return cloneOrder(o), nil
}

func (repo *orderRepository) OrderCodeExists(_ context.Context, code string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	_, ok := repo.db.t.orders.first(func(o order.Order) bool { return o.OrderCode == code })
	return ok, nil
}

// OrderStats aggregates per status. With a publisher filter, only the publisher's lines count.
func (repo *orderRepository) OrderStats(_ context.Context, filter *order.QueryFilter) ([]order.StatusStats, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	byStatus := make(map[string]*order.StatusStats)
	for _, o := range repo.queryOrders(filter, nil) {
		st, ok := byStatus[o.Status]
		if !ok {
			st = &order.StatusStats{Status: o.Status}
			byStatus[o.Status] = st
		}
		st.Count++
		if filter != nil && filter.PublisherID != "" {
			for _, l := range o.PublisherLines(filter.PublisherID) {
				st.TotalQuantity += l.Quantity
				st.TotalPrice += l.TotalPrice
			}
			continue
		}
		st.TotalQuantity += o.TotalQuantity
		st.TotalPrice += o.TotalPrice
	}

	stats := make([]order.StatusStats, 0, len(byStatus))
	for _, s := range byStatus {
		stats = append(stats, *s)
	}
	sortRows(stats, nil, nil, func(a, b order.StatusStats) int { return strings.Compare(a.Status, b.Status) })
	return stats, nil
}
