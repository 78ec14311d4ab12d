package inmemdb

import (
	"cmp"
	"context"
	"strings"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

var userComparators = comparators[user.User]{
	"full_name":  func(a, b user.User) int { return strings.Compare(a.FullName, b.FullName) },
	"email":      func(a, b user.User) int { return strings.Compare(a.Email, b.Email) },
	"user_type":  func(a, b user.User) int { return strings.Compare(a.UserType, b.UserType) },
	"is_active":  func(a, b user.User) int { return compareBool(a.IsActive, b.IsActive) },
	"created_at": func(a, b user.User) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"last_login": func(a, b user.User) int { return a.LastLogin.Compare(b.LastLogin) },
}

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, excludedUsers []user.User) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	excluded := make(map[string]struct{}, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded[u.ID] = struct{}{}
	}
	_, exists := repo.db.t.users.first(func(u user.User) bool {
		_, skip := excluded[u.ID]
		return !skip && u.Email == email
	})
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if usr.ID == "" {
		usr.ID = core.NewID()
	}
	repo.db.t.users.put(usr.ID, usr)
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := repo.db.t.users.filter(filter.Match)
	sortRows(users, ordering, userComparators, func(a, b user.User) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return users, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.t.users.get(filter.ID); ok && (filter.Email == "" || usr.Email == filter.Email) {
			return usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	if filter.Email != "" {
		if usr, ok := repo.db.t.users.first(func(u user.User) bool { return u.Email == filter.Email }); ok {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUsersByID(_ context.Context, ids []string) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	set := inIDs(ids)
	users := repo.db.t.users.filter(func(u user.User) bool { _, ok := set[u.ID]; return ok })
	sortRows(users, nil, userComparators, func(a, b user.User) int { return cmp.Compare(a.ID, b.ID) })
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.t.users.get(usr.ID); !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.t.users.put(usr.ID, usr)
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids []string) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	n := 0
	for _, id := range ids {
		if repo.db.t.users.del(id) {
			n++
		}
	}
	return n, nil
}
