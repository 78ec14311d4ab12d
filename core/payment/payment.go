package payment

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/order"
	"github.com/kitab-bazar/server/core/user"
)

// Payment types
const (
	TypeCash         = "cash"
	TypeCheque       = "cheque"
	TypeBankTransfer = "bank_transfer"
	TypeWallet       = "wallet"
)

// Transaction types
const (
	TransactionCredit = "credit"
	TransactionDebit  = "debit"
)

// Statuses
const (
	StatusPending  = "pending"
	StatusVerified = "verified"
	StatusFailed   = "failed"
)

var (
	ErrNotFound = errors.New("payment not found")

	OrderingFields = map[string]string{
		"amount":     "amount",
		"created_at": "created_at",
		"status":     "status",
	}
)

type (
	Payment struct {
		ID              string    `json:"id"`
		UserID          string    `json:"user_id"`
		OrderID         string    `json:"order_id,omitempty"`
		Amount          int       `json:"amount"`
		PaymentType     string    `json:"payment_type"`
		TransactionType string    `json:"transaction_type"`
		Status          string    `json:"status"`
		Remarks         string    `json:"remarks"`
		CreatedByID     string    `json:"created_by_id"`
		CreatedAt       time.Time `json:"created_at"`
		UpdatedAt       time.Time `json:"updated_at"`
	}

	NewPayment struct {
		UserID          string `json:"user_id" validate:"required,uuid"`
		OrderID         string `json:"order_id" validate:"omitempty,uuid"`
		Amount          int    `json:"amount" validate:"gt=0"`
		PaymentType     string `json:"payment_type" validate:"required,oneof=cash cheque bank_transfer wallet"`
		TransactionType string `json:"transaction_type" validate:"required,oneof=credit debit"`
		Status          string `json:"status" validate:"omitempty,oneof=pending verified failed"`
		Remarks         string `json:"remarks" validate:"omitempty,max=1000"`
	}

	QueryFilter struct {
		UserID          string
		OrderID         string
		Statuses        []string
		TransactionType string
	}

	// Balance sums the verified payments of a user.
	Balance struct {
		UserID  string `json:"user_id"`
		Credits int    `json:"credits"`
		Debits  int    `json:"debits"`
		Amount  int    `json:"amount"`
	}

	Repository interface {
		CreatePayment(ctx context.Context, p Payment) (Payment, error)
		GetPayment(ctx context.Context, id string) (Payment, error)
		QueryPayments(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Payment, error)
		UpdatePayment(ctx context.Context, p Payment) (Payment, error)
	}

	// UserGetter finds payment owners.
	UserGetter interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	// OrderGetter finds the orders payments are made for.
	OrderGetter interface {
		Get(ctx context.Context, actor user.User, id string) (order.Order, error)
	}

	Service struct {
		repo     Repository
		users    UserGetter
		orders   OrderGetter
		validate *validator.Validate
		logger   core.Logger
	}
)

func NewService(repo Repository, users UserGetter, orders OrderGetter, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{repo: repo, users: users, orders: orders, validate: validate, logger: logger}
}

func (qf QueryFilter) Match(p Payment) bool {
	if qf.UserID != "" && p.UserID != qf.UserID {
		return false
	}
	if qf.OrderID != "" && p.OrderID != qf.OrderID {
		return false
	}
	if len(qf.Statuses) > 0 && !core.ContainsString(qf.Statuses, p.Status) {
		return false
	}
	if qf.TransactionType != "" && p.TransactionType != qf.TransactionType {
		return false
	}
	return true
}

func (svc *Service) Create(ctx context.Context, actor user.User, np NewPayment) (Payment, error) {
	if !actor.HasPerm(user.PermManagePayments) {
		return Payment{}, core.ErrPermissionDenied
	}
	np.Remarks = core.CleanString(np.Remarks)
	if np.Status == "" {
		np.Status = StatusPending
	}
	if err := svc.validate.Struct(np); err != nil {
		return Payment{}, err
	}
	if _, err := svc.users.GetByID(ctx, np.UserID); err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return Payment{}, core.NewFieldError("user_id", "user does not exist")
		}
		return Payment{}, err
	}
	if np.OrderID != "" {
		o, err := svc.orders.Get(ctx, actor, np.OrderID)
		if err != nil {
			if errors.Cause(err) == order.ErrNotFound {
				return Payment{}, core.NewFieldError("order_id", "order does not exist")
			}
			return Payment{}, err
		}
		if o.CreatedByID != np.UserID {
			return Payment{}, core.NewFieldError("order_id", "order was not placed by this user")
		}
	}
	now := time.Now().UTC()
	return svc.repo.CreatePayment(ctx, Payment{
		ID:              core.NewID(),
		UserID:          np.UserID,
		OrderID:         np.OrderID,
		Amount:          np.Amount,
		PaymentType:     np.PaymentType,
		TransactionType: np.TransactionType,
		Status:          np.Status,
		Remarks:         np.Remarks,
		CreatedByID:     actor.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
}

func (svc *Service) UpdateStatus(ctx context.Context, actor user.User, id, status string) (Payment, error) {
	if !actor.HasPerm(user.PermManagePayments) {
		return Payment{}, core.ErrPermissionDenied
	}
	if status != StatusPending && status != StatusVerified && status != StatusFailed {
		return Payment{}, core.NewFieldError("status", "invalid payment status")
	}
	p, err := svc.get(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	p.Status = status
	p.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdatePayment(ctx, p)
}

func (svc *Service) get(ctx context.Context, id string) (Payment, error) {
	if !core.IsValidID(id) {
		return Payment{}, ErrNotFound
	}
	return svc.repo.GetPayment(ctx, id)
}

func (svc *Service) Get(ctx context.Context, actor user.User, id string) (Payment, error) {
	p, err := svc.get(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	if p.UserID != actor.ID && !actor.HasPerm(user.PermViewAllPayments) {
		return Payment{}, ErrNotFound
	}
	return p, nil
}

// Query lists the actor's payments, or everyone's for staff.
func (svc *Service) Query(ctx context.Context, actor user.User, filter QueryFilter, ordering []core.DBOrdering) ([]Payment, error) {
	if !actor.IsActive {
		return nil, core.ErrPermissionDenied
	}
	if !actor.HasPerm(user.PermViewAllPayments) {
		filter.UserID = actor.ID
	}
	return svc.repo.QueryPayments(ctx, filter, ordering)
}

// Balance returns verified credits minus verified debits of userID.
// Users other than staff may only read their own balance.
func (svc *Service) Balance(ctx context.Context, actor user.User, userID string) (Balance, error) {
	if userID == "" {
		userID = actor.ID
	}
	if userID != actor.ID && !actor.HasPerm(user.PermViewAllPayments) {
		return Balance{}, core.ErrPermissionDenied
	}
	payments, err := svc.repo.QueryPayments(ctx, QueryFilter{UserID: userID, Statuses: []string{StatusVerified}}, nil)
	if err != nil {
		return Balance{}, err
	}
	bal := Balance{UserID: userID}
	for _, p := range payments {
		switch p.TransactionType {
		case TransactionCredit:
			bal.Credits += p.Amount
		case TransactionDebit:
			bal.Debits += p.Amount
		}
	}
	bal.Amount = bal.Credits - bal.Debits
	return bal, nil
}
