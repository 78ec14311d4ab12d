package postgresdb

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/user"
)

const userColumns = `id, full_name, email, phone_number, user_type, publisher_id, school_id, institution_id,
	is_active, is_verified, password_hash, created_at, updated_at, last_login`

type (
	userRepository struct {
		db *DB
	}

	userRow struct {
		ID            string      `db:"id"`
		FullName      string      `db:"full_name"`
		Email         string      `db:"email"`
		PhoneNumber   string      `db:"phone_number"`
		UserType      string      `db:"user_type"`
		PublisherID   null.String `db:"publisher_id"`
		SchoolID      null.String `db:"school_id"`
		InstitutionID null.String `db:"institution_id"`
		IsActive      bool        `db:"is_active"`
		IsVerified    bool        `db:"is_verified"`
		PasswordHash  []byte      `db:"password_hash"`
		CreatedAt     time.Time   `db:"created_at"`
		UpdatedAt     time.Time   `db:"updated_at"`
		LastLogin     null.Time   `db:"last_login"`
	}
)

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func boilUser(usr user.User) userRow {
	return userRow{
		ID:            usr.ID,
		FullName:      usr.FullName,
		Email:         usr.Email,
		PhoneNumber:   usr.PhoneNumber,
		UserType:      usr.UserType,
		PublisherID:   nullID(usr.PublisherID),
		SchoolID:      nullID(usr.SchoolID),
		InstitutionID: nullID(usr.InstitutionID),
		IsActive:      usr.IsActive,
		IsVerified:    usr.IsVerified,
		PasswordHash:  usr.PasswordHash,
		CreatedAt:     usr.CreatedAt.UTC(),
		UpdatedAt:     usr.UpdatedAt.UTC(),
		LastLogin:     null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (row userRow) unboil() user.User {
	return user.User{
		ID:            row.ID,
		FullName:      row.FullName,
		Email:         row.Email,
		PhoneNumber:   row.PhoneNumber,
		UserType:      row.UserType,
		PublisherID:   row.PublisherID.String,
		SchoolID:      row.SchoolID.String,
		InstitutionID: row.InstitutionID.String,
		IsActive:      row.IsActive,
		IsVerified:    row.IsVerified,
		PasswordHash:  row.PasswordHash,
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
		LastLogin:     row.LastLogin.Time.UTC(),
	}
}

func unboilUsers(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.unboil())
	}
	return users
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []user.User) error {
	excl := make([]string, 0, len(excludedUsers))
	for _, u := range excludedUsers {
		excl = append(excl, u.ID)
	}
	var exists bool
	err := getRow(ctx, repo.db.getExec(ctx), &exists,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = ? AND NOT (id = ANY(?)))`, email, ids(excl))
	if err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	_, err := sqlxNamedExec(ctx, repo.db.getExec(ctx), `INSERT INTO users (`+userColumns+`) VALUES (
		:id, :full_name, :email, :phone_number, :user_type, :publisher_id, :school_id, :institution_id,
		:is_active, :is_verified, :password_hash, :created_at, :updated_at, :last_login)`, boilUser(usr))
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var w where
	if filter != nil {
		w.search(filter.Search, "full_name", "email", "phone_number")
		if len(filter.UserTypes) > 0 {
			w.add("user_type = ANY(?)", pq.StringArray(filter.UserTypes))
		}
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
		if filter.IsVerified != nil {
			w.add("is_verified = ?", *filter.IsVerified)
		}
		if filter.PublisherID != "" {
			w.add("publisher_id = ?", filter.PublisherID)
		}
		if filter.SchoolID != "" {
			w.add("school_id = ?", filter.SchoolID)
		}
		if filter.InstitutionID != "" {
			w.add("institution_id = ?", filter.InstitutionID)
		}
		if !filter.CreatedFrom.IsZero() {
			w.add("created_at >= ?", filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			w.add("created_at <= ?", filter.CreatedTo.UTC())
		}
	}

	var rows []userRow
	q := `SELECT ` + userColumns + ` FROM users` + w.String() + orderBy(ordering, "created_at DESC, id ASC")
	if err := selectRows(ctx, repo.db.getExec(ctx), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return unboilUsers(rows), nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var (
		row userRow
		err error
	)
	exec := repo.db.getExec(ctx)
	switch {
	case filter.ID != "":
		if !core.IsValidID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		err = getRow(ctx, exec, &row, `SELECT `+userColumns+` FROM users WHERE id = ?`, filter.ID)
	case filter.Email != "":
		err = getRow(ctx, exec, &row, `SELECT `+userColumns+` FROM users WHERE email = ?`, filter.Email)
	default:
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return row.unboil(), nil
}

func (repo *userRepository) GetUsersByID(ctx context.Context, userIDs []string) ([]user.User, error) {
	var rows []userRow
	q := `SELECT ` + userColumns + ` FROM users WHERE id = ANY(?) ORDER BY full_name, id`
	if err := selectRows(ctx, repo.db.getExec(ctx), &rows, q, ids(userIDs)); err != nil {
		return nil, errors.Wrap(err, "querying users by id")
	}
	return unboilUsers(rows), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	res, err := sqlxNamedExec(ctx, repo.db.getExec(ctx), `UPDATE users SET
		full_name = :full_name, email = :email, phone_number = :phone_number, user_type = :user_type,
		publisher_id = :publisher_id, school_id = :school_id, institution_id = :institution_id,
		is_active = :is_active, is_verified = :is_verified, password_hash = :password_hash,
		updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`, boilUser(usr))
	if err = checkAffected(res, err, user.ErrNotFound, "updating user"); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, userIDs []string) (int, error) {
	res, err := execQuery(ctx, repo.db.getExec(ctx), `DELETE FROM users WHERE id = ANY(?)`, ids(userIDs))
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	cnt, err := res.RowsAffected()
	return int(cnt), errors.Wrap(err, "deleting users")
}
