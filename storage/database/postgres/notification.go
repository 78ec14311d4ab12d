package postgresdb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/kitab-bazar/server/core/notification"
)

const notificationColumns = `id, recipient_id, title, body, notification_type, order_id, is_read, created_at`

type (
	notificationRepository struct {
		db *DB
	}

	notificationRow struct {
		ID               string      `db:"id"`
		RecipientID      string      `db:"recipient_id"`
		Title            string      `db:"title"`
		Body             string      `db:"body"`
		NotificationType string      `db:"notification_type"`
		OrderID          null.String `db:"order_id"`
		IsRead           bool        `db:"is_read"`
		CreatedAt        time.Time   `db:"created_at"`
	}
)

var _ notification.Repository = (*notificationRepository)(nil)

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotifications(ctx context.Context, notifs []notification.Notification) error {
	if len(notifs) == 0 {
		return nil
	}
	rows := make([]notificationRow, 0, len(notifs))
	for _, n := range notifs {
		rows = append(rows, notificationRow{
			ID:               n.ID,
			RecipientID:      n.RecipientID,
			Title:            n.Title,
			Body:             n.Body,
			NotificationType: n.NotificationType,
			OrderID:          nullID(n.OrderID),
			IsRead:           n.IsRead,
			CreatedAt:        n.CreatedAt.UTC(),
		})
	}
	_, err := sqlxNamedExec(ctx, repo.db.getExec(ctx), `INSERT INTO notifications (`+notificationColumns+`) VALUES (
		:id, :recipient_id, :title, :body, :notification_type, :order_id, :is_read, :created_at)`, rows)
	return errors.Wrap(err, "inserting notifications")
}

func (repo *notificationRepository) QueryNotifications(ctx context.Context, filter notification.QueryFilter) ([]notification.Notification, error) {
	var w where
	if filter.RecipientID != "" {
		w.add("recipient_id = ?", filter.RecipientID)
	}
	if filter.UnreadOnly {
		w.add("NOT is_read")
	}
	var rows []notificationRow
	q := `SELECT ` + notificationColumns + ` FROM notifications` + w.String() + ` ORDER BY created_at DESC, id`
	if err := selectRows(ctx, repo.db.getExec(ctx), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	notifs := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		notifs = append(notifs, notification.Notification{
			ID:               row.ID,
			RecipientID:      row.RecipientID,
			Title:            row.Title,
			Body:             row.Body,
			NotificationType: row.NotificationType,
			OrderID:          row.OrderID.String,
			IsRead:           row.IsRead,
			CreatedAt:        row.CreatedAt.UTC(),
		})
	}
	return notifs, nil
}

func (repo *notificationRepository) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var cnt int
	err := getRow(ctx, repo.db.getExec(ctx), &cnt,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND NOT is_read`, recipientID)
	return cnt, errors.Wrap(err, "counting unread notifications")
}

func (repo *notificationRepository) MarkRead(ctx context.Context, recipientID string, notifIDs []string) (int, error) {
	q := `UPDATE notifications SET is_read = true WHERE recipient_id = ? AND NOT is_read`
	args := []interface{}{recipientID}
	if len(notifIDs) > 0 {
		q += ` AND id = ANY(?)`
		args = append(args, ids(notifIDs))
	}
	res, err := execQuery(ctx, repo.db.getExec(ctx), q, args...)
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications read")
	}
	cnt, err := res.RowsAffected()
	return int(cnt), errors.Wrap(err, "marking notifications read")
}
