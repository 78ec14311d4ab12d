package inmemdb

import (
	"cmp"
	"context"
	"strings"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/payment"
)

type paymentRepository struct {
	db *DB
}

var _ payment.Repository = (*paymentRepository)(nil)

var paymentComparators = comparators[payment.Payment]{
	"amount":     func(a, b payment.Payment) int { return cmp.Compare(a.Amount, b.Amount) },
	"created_at": func(a, b payment.Payment) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"status":     func(a, b payment.Payment) int { return strings.Compare(a.Status, b.Status) },
}

func NewPaymentRepository(db *DB) *paymentRepository {
	return &paymentRepository{db: db}
}

func (repo *paymentRepository) CreatePayment(_ context.Context, p payment.Payment) (payment.Payment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.t.payments.put(p.ID, p)
	return p, nil
}

func (repo *paymentRepository) GetPayment(_ context.Context, id string) (payment.Payment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if p, ok := repo.db.t.payments.get(id); ok {
		return p, nil
	}
	return payment.Payment{}, payment.ErrNotFound
}

func (repo *paymentRepository) QueryPayments(_ context.Context, filter payment.QueryFilter, ordering []core.DBOrdering) ([]payment.Payment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	rows := repo.db.t.payments.filter(filter.Match)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	sortRows(rows, ordering, paymentComparators, func(a, b payment.Payment) int { return strings.Compare(a.ID, b.ID) })
	return rows, nil
}

func (repo *paymentRepository) UpdatePayment(_ context.Context, p payment.Payment) (payment.Payment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.t.payments.get(p.ID); !ok {
		return payment.Payment{}, payment.ErrNotFound
	}
	repo.db.t.payments.put(p.ID, p)
	return p, nil
}
