// Package postgresdb implements the repositories on PostgreSQL.
package postgresdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/boil"

	"github.com/kitab-bazar/server/core"
)

type (
	// executor is satisfied by both *sqlx.DB and *sqlx.Tx.
	executor interface {
		sqlx.ExtContext
		boil.ContextExecutor
	}

	// DB runs transactions. The *sqlx.Tx travels in the context so that repositories
	// called within RunInTx use it.
	DB struct {
		db     *sqlx.DB
		logger core.Logger
	}

	txKey struct{}

	// where collects AND-ed conditions written with "?" placeholders.
	where struct {
		conds []string
		args  []interface{}
	}
)

var _ core.TxRunner = (*DB)(nil)

func New(db *sqlx.DB, logger core.Logger) *DB {
	return &DB{db: db, logger: logger}
}

func (db *DB) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx) // join the outer transaction
	}

	tx, err := db.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error(fmt.Sprintf("postgresdb.RunInTx: rollback: %v", rbErr), rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func (db *DB) getExec(ctx context.Context) executor {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db.db
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// checkAffected maps an UPDATE / DELETE that touched no row to notFound.
func checkAffected(res sql.Result, err error, notFound error, msg string) error {
	if err != nil {
		return errors.Wrap(err, msg)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) search(val string, cols ...string) {
	if val == "" {
		return
	}
	like := "%" + val + "%"
	parts := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols))
	for _, col := range cols {
		parts = append(parts, col+" ILIKE ?")
		args = append(args, like)
	}
	w.add("("+strings.Join(parts, " OR ")+")", args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// orderBy renders ordering, whose fields are trusted column names, falling back to def.
func orderBy(ordering []core.DBOrdering, def string) string {
	if len(ordering) == 0 {
		return " ORDER BY " + def
	}
	list := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		list = append(list, ord.String())
	}
	list = append(list, "id ASC")
	return " ORDER BY " + strings.Join(list, ", ")
}

func selectRows(ctx context.Context, exec executor, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, exec, dest, exec.Rebind(query), args...)
}

func getRow(ctx context.Context, exec executor, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, exec, dest, exec.Rebind(query), args...)
}

func sqlxNamedExec(ctx context.Context, exec executor, query string, arg interface{}) (sql.Result, error) {
	return sqlx.NamedExecContext(ctx, exec, query, arg)
}

func execQuery(ctx context.Context, exec executor, query string, args ...interface{}) (sql.Result, error) {
	return exec.ExecContext(ctx, exec.Rebind(query), args...)
}

// nullID stores empty foreign keys as NULL.
func nullID(id string) null.String {
	return null.NewString(id, id != "")
}

// ids stores nil lists as empty arrays.
func ids(vals []string) pq.StringArray {
	if vals == nil {
		vals = []string{}
	}
	return pq.StringArray(vals)
}
