package postgresdb

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/payment"
)

const paymentColumns = `id, user_id, order_id, amount, payment_type, transaction_type, status, remarks,
	created_by_id, created_at, updated_at`

type (
	paymentRepository struct {
		db *DB
	}

	paymentRow struct {
		ID              string      `db:"id"`
		UserID          string      `db:"user_id"`
		OrderID         null.String `db:"order_id"`
		Amount          int         `db:"amount"`
		PaymentType     string      `db:"payment_type"`
		TransactionType string      `db:"transaction_type"`
		Status          string      `db:"status"`
		Remarks         string      `db:"remarks"`
		CreatedByID     null.String `db:"created_by_id"`
		CreatedAt       time.Time   `db:"created_at"`
		UpdatedAt       time.Time   `db:"updated_at"`
	}
)

var _ payment.Repository = (*paymentRepository)(nil)

func NewPaymentRepository(db *DB) *paymentRepository {
	return &paymentRepository{db: db}
}

func boilPayment(p payment.Payment) paymentRow {
	return paymentRow{
		ID:              p.ID,
		UserID:          p.UserID,
		OrderID:         nullID(p.OrderID),
		Amount:          p.Amount,
		PaymentType:     p.PaymentType,
		TransactionType: p.TransactionType,
		Status:          p.Status,
		Remarks:         p.Remarks,
		CreatedByID:     nullID(p.CreatedByID),
		CreatedAt:       p.CreatedAt.UTC(),
		UpdatedAt:       p.UpdatedAt.UTC(),
	}
}

func (row paymentRow) unboil() payment.Payment {
	return payment.Payment{
		ID:              row.ID,
		UserID:          row.UserID,
		OrderID:         row.OrderID.String,
		Amount:          row.Amount,
		PaymentType:     row.PaymentType,
		TransactionType: row.TransactionType,
		Status:          row.Status,
		Remarks:         row.Remarks,
		CreatedByID:     row.CreatedByID.String,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
}

func (repo *paymentRepository) CreatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	_, err := sqlxNamedExec(ctx, repo.db.getExec(ctx), `INSERT INTO payments (`+paymentColumns+`) VALUES (
		:id, :user_id, :order_id, :amount, :payment_type, :transaction_type, :status, :remarks,
		:created_by_id, :created_at, :updated_at)`, boilPayment(p))
	return p, errors.Wrap(err, "inserting payment")
}

func (repo *paymentRepository) GetPayment(ctx context.Context, id string) (payment.Payment, error) {
	var row paymentRow
	if !core.IsValidID(id) {
		return payment.Payment{}, payment.ErrNotFound
	}
	if err := getRow(ctx, repo.db.getExec(ctx), &row, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id); err != nil {
		return payment.Payment{}, trapNoRowsErr(err, payment.ErrNotFound, "finding payment")
	}
	return row.unboil(), nil
}

func (repo *paymentRepository) QueryPayments(ctx context.Context, filter payment.QueryFilter, ordering []core.DBOrdering) ([]payment.Payment, error) {
	var w where
	if filter.UserID != "" {
		w.add("user_id = ?", filter.UserID)
	}
	if filter.OrderID != "" {
		w.add("order_id = ?", filter.OrderID)
	}
	if len(filter.Statuses) > 0 {
		w.add("status = ANY(?)", pq.StringArray(filter.Statuses))
	}
	if filter.TransactionType != "" {
		w.add("transaction_type = ?", filter.TransactionType)
	}
	var rows []paymentRow
	q := `SELECT ` + paymentColumns + ` FROM payments` + w.String() + orderBy(ordering, "created_at DESC, id ASC")
	if err := selectRows(ctx, repo.db.getExec(ctx), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	payments := make([]payment.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, row.unboil())
	}
	return payments, nil
}

func (repo *paymentRepository) UpdatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	res, err := sqlxNamedExec(ctx, repo.db.getExec(ctx), `UPDATE payments SET
		status = :status, remarks = :remarks, updated_at = :updated_at
		WHERE id = :id`, boilPayment(p))
	if err = checkAffected(res, err, payment.ErrNotFound, "updating payment"); err != nil {
		return payment.Payment{}, err
	}
	return p, nil
}
