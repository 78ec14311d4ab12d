package inmemdb

import (
	"context"
	"strings"

	"github.com/kitab-bazar/server/core/notification"
)

type notificationRepository struct {
	db *DB
}

var _ notification.Repository = (*notificationRepository)(nil)

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotifications(_ context.Context, notifs []notification.Notification) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	for _, n := range notifs {
		repo.db.t.notifications.put(n.ID, n)
	}
	return nil
}

func (repo *notificationRepository) QueryNotifications(_ context.Context, filter notification.QueryFilter) ([]notification.Notification, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	rows := repo.db.t.notifications.filter(filter.Match)
	sortRows(rows, nil, nil, func(a, b notification.Notification) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return rows, nil
}

func (repo *notificationRepository) CountUnread(_ context.Context, recipientID string) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	filter := notification.QueryFilter{RecipientID: recipientID, UnreadOnly: true}
	return len(repo.db.t.notifications.filter(filter.Match)), nil
}

func (repo *notificationRepository) MarkRead(_ context.Context, recipientID string, ids []string) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	set := inIDs(ids)
	filter := notification.QueryFilter{RecipientID: recipientID, UnreadOnly: true}
	n := 0
	for _, notif := range repo.db.t.notifications.filter(filter.Match) {
		if _, ok := set[notif.ID]; len(ids) > 0 && !ok {
			continue
		}
		notif.IsRead = true
		repo.db.t.notifications.put(notif.ID, notif)
		n++
	}
	return n, nil
}
