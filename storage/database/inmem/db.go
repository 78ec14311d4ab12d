// Package inmemdb implements the repositories in memory, for tests & local development.
package inmemdb

import (
	"context"
	"sort"
	"sync"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/book"
	"github.com/kitab-bazar/server/core/location"
	"github.com/kitab-bazar/server/core/logistics"
	"github.com/kitab-bazar/server/core/notification"
	"github.com/kitab-bazar/server/core/order"
	"github.com/kitab-bazar/server/core/payment"
	"github.com/kitab-bazar/server/core/publisher"
	"github.com/kitab-bazar/server/core/school"
	"github.com/kitab-bazar/server/core/user"
)

type (
	table[T any] struct {
		rows map[string]T
	}

	tables struct {
		users          *table[user.User]
		provinces      *table[location.Province]
		districts      *table[location.District]
		municipalities *table[location.Municipality]
		publishers     *table[publisher.Publisher]
		schools        *table[school.School]
		books          *table[book.Book]
		categories     *table[book.Category]
		tags           *table[book.Tag]
		cartItems      *table[order.CartItem]
		wishlist       *table[order.WishListItem]
		windows        *table[order.OrderWindow]
		orders         *table[order.Order]
		payments       *table[payment.Payment]
		notifications  *table[notification.Notification]
		packages       *table[logistics.Package]
	}

	// DB holds every table under a single lock.
	// Transactions are serialized; a failing transaction restores the tables it started with.
	DB struct {
		mu   sync.RWMutex
		txMu sync.Mutex
		t    tables
	}

	txKey struct{}
)

var _ core.TxRunner = (*DB)(nil)

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

func (t *table[T]) clone() *table[T] {
	rows := make(map[string]T, len(t.rows))
	for k, v := range t.rows {
		rows[k] = v
	}
	return &table[T]{rows: rows}
}

func (t *table[T]) get(id string) (T, bool) {
	v, ok := t.rows[id]
	return v, ok
}

func (t *table[T]) put(id string, v T) { t.rows[id] = v }

func (t *table[T]) del(id string) bool {
	_, ok := t.rows[id]
	delete(t.rows, id)
	return ok
}

func (t *table[T]) filter(match func(T) bool) []T {
	out := make([]T, 0)
	for _, v := range t.rows {
		if match == nil || match(v) {
			out = append(out, v)
		}
	}
	return out
}

func (t *table[T]) first(match func(T) bool) (T, bool) {
	for _, v := range t.rows {
		if match(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func Open() *DB {
	return &DB{t: tables{
		users:          newTable[user.User](),
		provinces:      newTable[location.Province](),
		districts:      newTable[location.District](),
		municipalities: newTable[location.Municipality](),
		publishers:     newTable[publisher.Publisher](),
		schools:        newTable[school.School](),
		books:          newTable[book.Book](),
		categories:     newTable[book.Category](),
		tags:           newTable[book.Tag](),
		cartItems:      newTable[order.CartItem](),
		wishlist:       newTable[order.WishListItem](),
		windows:        newTable[order.OrderWindow](),
		orders:         newTable[order.Order](),
		payments:       newTable[payment.Payment](),
		notifications:  newTable[notification.Notification](),
		packages:       newTable[logistics.Package](),
	}}
}

func (t tables) clone() tables {
	return tables{
		users:          t.users.clone(),
		provinces:      t.provinces.clone(),
		districts:      t.districts.clone(),
		municipalities: t.municipalities.clone(),
		publishers:     t.publishers.clone(),
		schools:        t.schools.clone(),
		books:          t.books.clone(),
		categories:     t.categories.clone(),
		tags:           t.tags.clone(),
		cartItems:      t.cartItems.clone(),
		wishlist:       t.wishlist.clone(),
		windows:        t.windows.clone(),
		orders:         t.orders.clone(),
		payments:       t.payments.clone(),
		notifications:  t.notifications.clone(),
		packages:       t.packages.clone(),
	}
}

// RunInTx runs fn, restoring every table if fn fails. Nested calls join the outer transaction.
func (db *DB) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.RLock()
	snapshot := db.t.clone()
	db.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		db.mu.Lock()
		db.t = snapshot
		db.mu.Unlock()
		return err
	}
	return nil
}

// Flush empties every table.
func (db *DB) Flush() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.t = Open().t
}

// comparators compare two rows on a column, for ordering.
type comparators[T any] map[string]func(a, b T) int

// sortRows sorts rows following ordering; unknown columns are ignored and
// ties are broken by def.
func sortRows[T any](rows []T, ordering []core.DBOrdering, cmps comparators[T], def func(a, b T) int) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, ord := range ordering {
			cmp, ok := cmps[ord.Field]
			if !ok {
				continue
			}
			c := cmp(rows[i], rows[j])
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return def(rows[i], rows[j]) < 0
	})
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

func inIDs(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
