package notification

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/user"
)

// Notification types
const (
	TypeOrderPlaced        = "order_placed"
	TypeOrderReceived      = "order_received"
	TypeOrderStatusChanged = "order_status_changed"
	TypeGeneral            = "general"
)

var ErrNoRecipients = errors.New("no recipients")

type (
	Notification struct {
		ID               string    `json:"id"`
		RecipientID      string    `json:"recipient_id"`
		Title            string    `json:"title"`
		Body             string    `json:"body"`
		NotificationType string    `json:"notification_type"`
		OrderID          string    `json:"order_id,omitempty"`
		IsRead           bool      `json:"is_read"`
		CreatedAt        time.Time `json:"created_at"`
	}

	QueryFilter struct {
		RecipientID string
		UnreadOnly  bool
	}

	// Broadcast is an admin message sent to users picked by id and/or by type.
	Broadcast struct {
		UserIDs   []string `json:"user_ids" validate:"dive,uuid"`
		UserTypes []string `json:"user_types" validate:"dive,usertype"`
		Title     string   `json:"title" validate:"required,notblank,max=255"`
		Body      string   `json:"body" validate:"required,notblank"`
	}

	Repository interface {
		CreateNotifications(ctx context.Context, notifs []Notification) error
		// QueryNotifications returns the most recent notifications first.
		QueryNotifications(ctx context.Context, filter QueryFilter) ([]Notification, error)
		CountUnread(ctx context.Context, recipientID string) (int, error)
		// MarkRead marks the recipient's notifications matching ids read; no ids marks them all.
		MarkRead(ctx context.Context, recipientID string, ids []string) (int, error)
	}

	// UserFinder looks up notification recipients.
	UserFinder interface {
		Query(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error)
	}

	Service struct {
		repo     Repository
		users    UserFinder
		validate *validator.Validate
		logger   core.Logger
	}
)

func NewService(repo Repository, users UserFinder, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{repo: repo, users: users, validate: validate, logger: logger}
}

func (qf QueryFilter) Match(n Notification) bool {
	if qf.RecipientID != "" && n.RecipientID != qf.RecipientID {
		return false
	}
	if qf.UnreadOnly && n.IsRead {
		return false
	}
	return true
}

// Notify sends the same notification to every recipient.
func (svc *Service) Notify(ctx context.Context, recipientIDs []string, notifType, title, body, orderID string) error {
	if len(recipientIDs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	notifs := make([]Notification, 0, len(recipientIDs))
	seen := make(map[string]struct{}, len(recipientIDs))
	for _, id := range recipientIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		notifs = append(notifs, Notification{
			ID:               core.NewID(),
			RecipientID:      id,
			Title:            title,
			Body:             body,
			NotificationType: notifType,
			OrderID:          orderID,
			CreatedAt:        now,
		})
	}
	return svc.repo.CreateNotifications(ctx, notifs)
}

// Broadcast sends a general notification to the active users picked by b.
// It returns the number of recipients.
func (svc *Service) Broadcast(ctx context.Context, actor user.User, b Broadcast) (int, error) {
	if !actor.HasPerm(user.PermBroadcastNotifications) {
		return 0, core.ErrPermissionDenied
	}
	b.Title = core.CleanString(b.Title)
	b.Body = core.CleanString(b.Body)
	if err := svc.validate.Struct(b); err != nil {
		return 0, err
	}

	active := true
	var recipients []string
	if len(b.UserTypes) > 0 {
		usrs, err := svc.users.Query(ctx, &user.QueryFilter{UserTypes: b.UserTypes, IsActive: &active}, nil)
		if err != nil {
			return 0, err
		}
		for _, u := range usrs {
			recipients = append(recipients, u.ID)
		}
	}
	recipients = append(recipients, b.UserIDs...)
	if len(recipients) == 0 {
		return 0, core.NewValidationError(ErrNoRecipients, core.FieldError{Field: "user_ids", Error: ErrNoRecipients.Error()})
	}
	if err := svc.Notify(ctx, recipients, TypeGeneral, b.Title, b.Body, ""); err != nil {
		return 0, err
	}
	return len(uniq(recipients)), nil
}

func (svc *Service) List(ctx context.Context, recipient user.User, unreadOnly bool) ([]Notification, error) {
	return svc.repo.QueryNotifications(ctx, QueryFilter{RecipientID: recipient.ID, UnreadOnly: unreadOnly})
}

func (svc *Service) UnreadCount(ctx context.Context, recipient user.User) (int, error) {
	return svc.repo.CountUnread(ctx, recipient.ID)
}

// MarkRead marks the recipient's notifications matching ids read.
func (svc *Service) MarkRead(ctx context.Context, recipient user.User, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return svc.repo.MarkRead(ctx, recipient.ID, ids)
}

func (svc *Service) MarkAllRead(ctx context.Context, recipient user.User) (int, error) {
	return svc.repo.MarkRead(ctx, recipient.ID, nil)
}

func uniq(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !core.ContainsString(out, id) {
			out = append(out, id)
		}
	}
	return out
}
