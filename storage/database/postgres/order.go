package postgresdb

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/order"
)

const (
	orderColumns = `id, order_code, status, created_by_id, order_window_id, total_price, total_quantity,
	assigned_for_package, created_at, updated_at`
	bookOrderColumns = `id, order_id, book_id, title, isbn, edition, price, publisher_id, image, quantity, total_price`
	windowColumns    = `id, title, description, window_type, start_date, end_date, created_at, updated_at`
)

type (
	orderRepository struct {
		db *DB
	}

	cartItemRow struct {
		ID        string    `db:"id"`
		UserID    string    `db:"user_id"`
		BookID    string    `db:"book_id"`
		Quantity  int       `db:"quantity"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	wishListRow struct {
		ID        string    `db:"id"`
		UserID    string    `db:"user_id"`
		BookID    string    `db:"book_id"`
		CreatedAt time.Time `db:"created_at"`
	}

	windowRow struct {
		ID          string    `db:"id"`
		Title       string    `db:"title"`
		Description string    `db:"description"`
		WindowType  string    `db:"window_type"`
		StartDate   time.Time `db:"start_date"`
		EndDate     time.Time `db:"end_date"`
		CreatedAt   time.Time `db:"created_at"`
		UpdatedAt   time.Time `db:"updated_at"`
	}

	orderRow struct {
		ID                 string      `db:"id"`
		OrderCode          string      `db:"order_code"`
		Status             string      `db:"status"`
		CreatedByID        string      `db:"created_by_id"`
		OrderWindowID      null.String `db:"order_window_id"`
		TotalPrice         int         `db:"total_price"`
		TotalQuantity      int         `db:"total_quantity"`
		AssignedForPackage bool        `db:"assigned_for_package"`
		CreatedAt          time.Time   `db:"created_at"`
		UpdatedAt          time.Time   `db:"updated_at"`
	}

	bookOrderRow struct {
		ID          string `db:"id"`
		OrderID     string `db:"order_id"`
		BookID      string `db:"book_id"`
		Title       string `db:"title"`
		ISBN        string `db:"isbn"`
		Edition     string `db:"edition"`
		Price       int    `db:"price"`
		PublisherID string `db:"publisher_id"`
		Image       string `db:"image"`
		Quantity    int    `db:"quantity"`
		TotalPrice  int    `db:"total_price"`
	}
)

var _ order.Repository = (*orderRepository)(nil)

func NewOrderRepository(db *DB) *orderRepository {
	return &orderRepository{db: db}
}

// Cart

func (row cartItemRow) unboil() order.CartItem {
	return order.CartItem{
		ID:        row.ID,
		UserID:    row.UserID,
		BookID:    row.BookID,
		Quantity:  row.Quantity,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func (repo *orderRepository) CreateCartItem(ctx context.Context, item order.CartItem) (order.CartItem, error) {
	_, err := execQuery(ctx, repo.db.getExec(ctx),
		`INSERT INTO cart_items (id, user_id, book_id, quantity, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, item.UserID, item.BookID, item.Quantity, item.CreatedAt.UTC(), item.UpdatedAt.UTC())
	return item, errors.Wrap(err, "inserting cart item")
}

func (repo *orderRepository) UpdateCartItem(ctx context.Context, item order.CartItem) (order.CartItem, error) {
	res, err := execQuery(ctx, repo.db.getExec(ctx),
		`UPDATE cart_items SET quantity = ?, updated_at = ? WHERE id = ?`, item.Quantity, item.UpdatedAt.UTC(), item.ID)
	if err = checkAffected(res, err, order.ErrCartItemNotFound, "updating cart item"); err != nil {
		return order.CartItem{}, err
	}
	return item, nil
}

func (repo *orderRepository) GetCartItem(ctx context.Context, id string) (order.CartItem, error) {
	var row cartItemRow
	if !core.IsValidID(id) {
		return order.CartItem{}, order.ErrCartItemNotFound
	}
	q := `SELECT id, user_id, book_id, quantity, created_at, updated_at FROM cart_items WHERE id = ?`
	if err := getRow(ctx, repo.db.getExec(ctx), &row, q, id); err != nil {
		return order.CartItem{}, trapNoRowsErr(err, order.ErrCartItemNotFound, "finding cart item")
	}
	return row.unboil(), nil
}

func (repo *orderRepository) GetCartItemByBook(ctx context.Context, userID, bookID string) (order.CartItem, error) {
	var row cartItemRow
	q := `SELECT id, user_id, book_id, quantity, created_at, updated_at FROM cart_items WHERE user_id = ? AND book_id = ?`
	if err := getRow(ctx, repo.db.getExec(ctx), &row, q, userID, bookID); err != nil {
		return order.CartItem{}, trapNoRowsErr(err, order.ErrCartItemNotFound, "finding cart item")
	}
	return row.unboil(), nil
}

func (repo *orderRepository) QueryCartItems(ctx context.Context, userID string) ([]order.CartItem, error) {
	var rows []cartItemRow
	q := `SELECT id, user_id, book_id, quantity, created_at, updated_at FROM cart_items WHERE user_id = ? ORDER BY created_at, id`
	if err := selectRows(ctx, repo.db.getExec(ctx), &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying cart items")
	}
	items := make([]order.CartItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.unboil())
	}
	return items, nil
}

func (repo *orderRepository) DeleteCartItem(ctx context.Context, id string) error {
	res, err := execQuery(ctx, repo.db.getExec(ctx), `DELETE FROM cart_items WHERE id = ?`, id)
	return checkAffected(res, err, order.ErrCartItemNotFound, "deleting cart item")
}

func (repo *orderRepository) ClearCart(ctx context.Context, userID string) error {
	_, err := execQuery(ctx, repo.db.getExec(ctx), `DELETE FROM cart_items WHERE user_id = ?`, userID)
	return errors.Wrap(err, "clearing cart")
}

// Wishlist

func (row wishListRow) unboil() order.WishListItem {
	return order.WishListItem{ID: row.ID, UserID: row.UserID, BookID: row.BookID, CreatedAt: row.CreatedAt.UTC()}
}

func (repo *orderRepository) CreateWishListItem(ctx context.Context, item order.WishListItem) (order.WishListItem, error) {
	_, err := execQuery(ctx, repo.db.getExec(ctx),
		`INSERT INTO wishlist_items (id, user_id, book_id, created_at) VALUES (?, ?, ?, ?)`,
		item.ID, item.UserID, item.BookID, item.CreatedAt.UTC())
	return item, errors.Wrap(err, "inserting wishlist item")
}

func (repo *orderRepository) GetWishListItemByBook(ctx context.Context, userID, bookID string) (order.WishListItem, error) {
	var row wishListRow
	q := `SELECT id, user_id, book_id, created_at FROM wishlist_items WHERE user_id = ? AND book_id = ?`
	if err := getRow(ctx, repo.db.getExec(ctx), &row, q, userID, bookID); err != nil {
		return order.WishListItem{}, trapNoRowsErr(err, order.ErrWishListNotFound, "finding wishlist item")
	}
	return row.unboil(), nil
}

func (repo *orderRepository) QueryWishListItems(ctx context.Context, userID string) ([]order.WishListItem, error) {
	var rows []wishListRow
	q := `SELECT id, user_id, book_id, created_at FROM wishlist_items WHERE user_id = ? ORDER BY created_at, id`
	if err := selectRows(ctx, repo.db.getExec(ctx), &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying wishlist")
	}
	items := make([]order.WishListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.unboil())
	}
	return items, nil
}

func (repo *orderRepository) DeleteWishListItems(ctx context.Context, userID string, bookIDs []string) (int, error) {
	res, err := execQuery(ctx, repo.db.getExec(ctx),
		`DELETE FROM wishlist_items WHERE user_id = ? AND book_id = ANY(?)`, userID, ids(bookIDs))
	if err != nil {
		return 0, errors.Wrap(err, "deleting wishlist items")
	}
	cnt, err := res.RowsAffected()
	return int(cnt), errors.Wrap(err, "deleting wishlist items")
}

// Order windows

func boilWindow(w order.OrderWindow) windowRow {
	return windowRow{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		WindowType:  w.WindowType,
		StartDate:   w.StartDate.UTC(),
		EndDate:     w.EndDate.UTC(),
		CreatedAt:   w.CreatedAt.UTC(),
		UpdatedAt:   w.UpdatedAt.UTC(),
	}
}

func (row windowRow) unboil() order.OrderWindow {
	return order.OrderWindow{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		WindowType:  row.WindowType,
		StartDate:   row.StartDate.UTC(),
		EndDate:     row.EndDate.UTC(),
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

func (repo *orderRepository) CreateOrderWindow(ctx context.Context, w order.OrderWindow) (order.OrderWindow, error) {
	_, err := sqlxNamedExec(ctx, repo.db.getExec(ctx), `INSERT INTO order_windows (`+windowColumns+`) VALUES (
		:id, :title, :description, :window_type, :start_date, :end_date, :created_at, :updated_at)`, boilWindow(w))
	return w, errors.Wrap(err, "inserting order window")
}

func (repo *orderRepository) UpdateOrderWindow(ctx context.Context, w order.OrderWindow) (order.OrderWindow, error) {
	res, err := sqlxNamedExec(ctx, repo.db.getExec(ctx), `UPDATE order_windows SET
		title = :title, description = :description, window_type = :window_type, start_date = :start_date,
		end_date = :end_date, updated_at = :updated_at
		WHERE id = :id`, boilWindow(w))
	if err = checkAffected(res, err, order.ErrWindowNotFound, "updating order window"); err != nil {
		return order.OrderWindow{}, err
	}
	return w, nil
}

func (repo *orderRepository) GetOrderWindow(ctx context.Context, id string) (order.OrderWindow, error) {
	var row windowRow
	if !core.IsValidID(id) {
		return order.OrderWindow{}, order.ErrWindowNotFound
	}
	if err := getRow(ctx, repo.db.getExec(ctx), &row, `SELECT `+windowColumns+` FROM order_windows WHERE id = ?`, id); err != nil {
		return order.OrderWindow{}, trapNoRowsErr(err, order.ErrWindowNotFound, "finding order window")
	}
	return row.unboil(), nil
}

func (repo *orderRepository) QueryOrderWindows(ctx context.Context, filter order.WindowFilter, ordering []core.DBOrdering) ([]order.OrderWindow, error) {
	var w where
	if filter.WindowType != "" {
		w.add("window_type = ?", filter.WindowType)
	}
	if !filter.ActiveAt.IsZero() {
		at := filter.ActiveAt.UTC()
		w.add("start_date <= ? AND end_date >= ?", at, at)
	}
	var rows []windowRow
	q := `SELECT ` + windowColumns + ` FROM order_windows` + w.String() + orderBy(ordering, "start_date ASC, id ASC")
	if err := selectRows(ctx, repo.db.getExec(ctx), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying order windows")
	}
	windows := make([]order.OrderWindow, 0, len(rows))
	for _, row := range rows {
		windows = append(windows, row.unboil())
	}
	return windows, nil
}

func (repo *orderRepository) DeleteOrderWindow(ctx context.Context, id string) error {
	res, err := execQuery(ctx, repo.db.getExec(ctx), `DELETE FROM order_windows WHERE id = ?`, id)
	return checkAffected(res, err, order.ErrWindowNotFound, "deleting order window")
}

// Orders

func boilOrder(o order.Order) orderRow {
	return orderRow{
		ID:                 o.ID,
		OrderCode:          o.OrderCode,
		Status:             o.Status,
		CreatedByID:        o.CreatedByID,
		OrderWindowID:      nullID(o.OrderWindowID),
		TotalPrice:         o.TotalPrice,
		TotalQuantity:      o.TotalQuantity,
		AssignedForPackage: o.AssignedForPackage,
		CreatedAt:          o.CreatedAt.UTC(),
		UpdatedAt:          o.UpdatedAt.UTC(),
	}
}

func (row orderRow) unboil(lines []order.BookOrder) order.Order {
	return order.Order{
		ID:                 row.ID,
		OrderCode:          row.OrderCode,
		Status:             row.Status,
		CreatedByID:        row.CreatedByID,
		OrderWindowID:      row.OrderWindowID.String,
		TotalPrice:         row.TotalPrice,
		TotalQuantity:      row.TotalQuantity,
		AssignedForPackage: row.AssignedForPackage,
		CreatedAt:          row.CreatedAt.UTC(),
		UpdatedAt:          row.UpdatedAt.UTC(),
		Books:              lines,
	}
}

func (row bookOrderRow) unboil() order.BookOrder {
	return order.BookOrder(row)
}

func (repo *orderRepository) CreateOrder(ctx context.Context, o order.Order) (order.Order, error) {
	exec := repo.db.getExec(ctx)
	_, err := sqlxNamedExec(ctx, exec, `INSERT INTO orders (`+orderColumns+`) VALUES (
		:id, :order_code, :status, :created_by_id, :order_window_id, :total_price, :total_quantity,
		:assigned_for_package, :created_at, :updated_at)`, boilOrder(o))
	if err != nil {
		return order.Order{}, errors.Wrap(err, "inserting order")
	}
	if len(o.Books) == 0 {
		return o, nil
	}
	lines := make([]bookOrderRow, 0, len(o.Books))
	for _, l := range o.Books {
		lines = append(lines, bookOrderRow(l))
	}
	_, err = sqlxNamedExec(ctx, exec, `INSERT INTO book_orders (`+bookOrderColumns+`) VALUES (
		:id, :order_id, :book_id, :title, :isbn, :edition, :price, :publisher_id, :image, :quantity, :total_price)`, lines)
	return o, errors.Wrap(err, "inserting order lines")
}

// linesByOrder loads the lines of the given orders, sorted by title.
func (repo *orderRepository) linesByOrder(ctx context.Context, orderIDs []string) (map[string][]order.BookOrder, error) {
	var rows []bookOrderRow
	q := `SELECT ` + bookOrderColumns + ` FROM book_orders WHERE order_id = ANY(?) ORDER BY title, id`
	if err := selectRows(ctx, repo.db.getExec(ctx), &rows, q, ids(orderIDs)); err != nil {
		return nil, errors.Wrap(err, "querying order lines")
	}
	lines := make(map[string][]order.BookOrder, len(orderIDs))
	for _, row := range rows {
		lines[row.OrderID] = append(lines[row.OrderID], row.unboil())
	}
	return lines, nil
}

func (repo *orderRepository) GetOrder(ctx context.Context, id string) (order.Order, error) {
	var row orderRow
	if !core.IsValidID(id) {
		return order.Order{}, order.ErrNotFound
	}
	if err := getRow(ctx, repo.db.getExec(ctx), &row, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id); err != nil {
		return order.Order{}, trapNoRowsErr(err, order.ErrNotFound, "finding order")
	}
	lines, err := repo.linesByOrder(ctx, []string{id})
	if err != nil {
		return order.Order{}, err
	}
	return row.unboil(lines[id]), nil
}

// orderWhere builds the order conditions; prefix qualifies the orders table columns.
func orderWhere(filter *order.QueryFilter, prefix string) *where {
	w := new(where)
	if filter == nil {
		return w
	}
	if len(filter.IDs) > 0 {
		w.add(prefix+"id = ANY(?)", ids(filter.IDs))
	}
	if len(filter.Statuses) > 0 {
		w.add(prefix+"status = ANY(?)", pq.StringArray(filter.Statuses))
	}
	if filter.OrderWindowID != "" {
		w.add(prefix+"order_window_id = ?", filter.OrderWindowID)
	}
	if filter.CreatedByID != "" {
		w.add(prefix+"created_by_id = ?", filter.CreatedByID)
	}
	if filter.PublisherID != "" {
		w.add(prefix+"id IN (SELECT order_id FROM book_orders WHERE publisher_id = ?)", filter.PublisherID)
	}
	if filter.AssignedForPackage != nil {
		w.add(prefix+"assigned_for_package = ?", *filter.AssignedForPackage)
	}
	w.search(filter.Search, prefix+"order_code")
	return w
}

func (repo *orderRepository) QueryOrders(ctx context.Context, filter *order.QueryFilter, ordering []core.DBOrdering) ([]order.Order, error) {
	w := orderWhere(filter, "")
	var rows []orderRow
	q := `SELECT ` + orderColumns + ` FROM orders` + w.String() + orderBy(ordering, "created_at DESC, id ASC")
	if err := selectRows(ctx, repo.db.getExec(ctx), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying orders")
	}
	orderIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		orderIDs = append(orderIDs, row.ID)
	}
	lines, err := repo.linesByOrder(ctx, orderIDs)
	if err != nil {
		return nil, err
	}
	orders := make([]order.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, row.unboil(lines[row.ID]))
	}
	return orders, nil
}

func (repo *orderRepository) UpdateOrder(ctx context.Context, o order.Order) (order.Order, error) {
	res, err := sqlxNamedExec(ctx, repo.db.getExec(ctx), `UPDATE orders SET
		status = :status, order_window_id = :order_window_id, total_price = :total_price,
		total_quantity = :total_quantity, assigned_for_package = :assigned_for_package, updated_at = :updated_at
		WHERE id = :id`, boilOrder(o))
	if err = checkAffected(res, err, order.ErrNotFound, "updating order"); err != nil {
		return order.Order{}, err
	}
	return repo.GetOrder(ctx, o.ID)
}

func (repo *orderRepository) OrderCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := getRow(ctx, repo.db.getExec(ctx), &exists, `SELECT EXISTS (SELECT 1 FROM orders WHERE order_code = ?)`, code)
	return exists, errors.Wrap(err, "checking order code")
}

// OrderStats aggregates per status. With a publisher filter, only the publisher's lines count.
func (repo *orderRepository) OrderStats(ctx context.Context, filter *order.QueryFilter) ([]order.StatusStats, error) {
	var q string
	var w *where
	if filter != nil && filter.PublisherID != "" {
		w = orderWhere(filter, "o.")
		q = `SELECT o.status AS status, COUNT(DISTINCT o.id) AS count,
			COALESCE(SUM(b.quantity), 0) AS total_quantity, COALESCE(SUM(b.total_price), 0) AS total_price
			FROM orders o JOIN book_orders b ON b.order_id = o.id AND b.publisher_id = ?` +
			w.String() + ` GROUP BY o.status ORDER BY o.status`
		w.args = append([]interface{}{filter.PublisherID}, w.args...)
	} else {
		w = orderWhere(filter, "")
		q = `SELECT status, COUNT(*) AS count,
			COALESCE(SUM(total_quantity), 0) AS total_quantity, COALESCE(SUM(total_price), 0) AS total_price
			FROM orders` + w.String() + ` GROUP BY status ORDER BY status`
	}

	exec := repo.db.getExec(ctx)
	stats := make([]order.StatusStats, 0, len(order.Statuses))
	if err := queries.Raw(exec.Rebind(q), w.args...).Bind(ctx, exec, &stats); err != nil {
		return nil, errors.Wrap(err, "aggregating orders")
	}
	return stats, nil
}
