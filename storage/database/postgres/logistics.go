package postgresdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/types"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/logistics"
)

const packageColumns = `id, code, kind, owner_id, owner_name, order_window_id, status, total_quantity, total_price,
	is_eligible_for_incentive, incentive, books, order_ids, child_ids, created_at, updated_at`

type (
	packageRepository struct {
		db *DB
	}

	packageRow struct {
		ID                     string         `db:"id"`
		Code                   string         `db:"code"`
		Kind                   string         `db:"kind"`
		OwnerID                string         `db:"owner_id"`
		OwnerName              string         `db:"owner_name"`
		OrderWindowID          string         `db:"order_window_id"`
		Status                 string         `db:"status"`
		TotalQuantity          int            `db:"total_quantity"`
		TotalPrice             int            `db:"total_price"`
		IsEligibleForIncentive bool           `db:"is_eligible_for_incentive"`
		Incentive              int            `db:"incentive"`
		Books                  types.JSON     `db:"books"`
		OrderIDs               pq.StringArray `db:"order_ids"`
		ChildIDs               pq.StringArray `db:"child_ids"`
		CreatedAt              time.Time      `db:"created_at"`
		UpdatedAt              time.Time      `db:"updated_at"`
	}
)

var _ logistics.Repository = (*packageRepository)(nil)

func NewPackageRepository(db *DB) *packageRepository {
	return &packageRepository{db: db}
}

func boilPackage(p logistics.Package) (packageRow, error) {
	books := p.Books
	if books == nil {
		books = []logistics.PackageBook{}
	}
	data, err := json.Marshal(books)
	if err != nil {
		return packageRow{}, errors.Wrap(err, "encoding package books")
	}
	return packageRow{
		ID:                     p.ID,
		Code:                   p.Code,
		Kind:                   p.Kind,
		OwnerID:                p.OwnerID,
		OwnerName:              p.OwnerName,
		OrderWindowID:          p.OrderWindowID,
		Status:                 p.Status,
		TotalQuantity:          p.TotalQuantity,
		TotalPrice:             p.TotalPrice,
		IsEligibleForIncentive: p.IsEligibleForIncentive,
		Incentive:              p.Incentive,
		Books:                  types.JSON(data),
		OrderIDs:               ids(p.OrderIDs),
		ChildIDs:               ids(p.ChildIDs),
		CreatedAt:              p.CreatedAt.UTC(),
		UpdatedAt:              p.UpdatedAt.UTC(),
	}, nil
}

func (row packageRow) unboil() (logistics.Package, error) {
	p := logistics.Package{
		ID:                     row.ID,
		Code:                   row.Code,
		Kind:                   row.Kind,
		OwnerID:                row.OwnerID,
		OwnerName:              row.OwnerName,
		OrderWindowID:          row.OrderWindowID,
		Status:                 row.Status,
		TotalQuantity:          row.TotalQuantity,
		TotalPrice:             row.TotalPrice,
		IsEligibleForIncentive: row.IsEligibleForIncentive,
		Incentive:              row.Incentive,
		OrderIDs:               []string(row.OrderIDs),
		CreatedAt:              row.CreatedAt.UTC(),
		UpdatedAt:              row.UpdatedAt.UTC(),
	}
	if len(row.ChildIDs) > 0 {
		p.ChildIDs = []string(row.ChildIDs)
	}
	if err := row.Books.Unmarshal(&p.Books); err != nil {
		return logistics.Package{}, errors.Wrap(err, "decoding package books")
	}
	return p, nil
}

func (repo *packageRepository) CreatePackages(ctx context.Context, pkgs []logistics.Package) error {
	if len(pkgs) == 0 {
		return nil
	}
	rows := make([]packageRow, 0, len(pkgs))
	for _, p := range pkgs {
		row, err := boilPackage(p)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	_, err := sqlxNamedExec(ctx, repo.db.getExec(ctx), `INSERT INTO packages (`+packageColumns+`) VALUES (
		:id, :code, :kind, :owner_id, :owner_name, :order_window_id, :status, :total_quantity, :total_price,
		:is_eligible_for_incentive, :incentive, :books, :order_ids, :child_ids, :created_at, :updated_at)`, rows)
	return errors.Wrap(err, "inserting packages")
}

func (repo *packageRepository) GetPackage(ctx context.Context, id string) (logistics.Package, error) {
	var row packageRow
	if !core.IsValidID(id) {
		return logistics.Package{}, logistics.ErrNotFound
	}
	if err := getRow(ctx, repo.db.getExec(ctx), &row, `SELECT `+packageColumns+` FROM packages WHERE id = ?`, id); err != nil {
		return logistics.Package{}, trapNoRowsErr(err, logistics.ErrNotFound, "finding package")
	}
	return row.unboil()
}

func (repo *packageRepository) QueryPackages(ctx context.Context, filter logistics.QueryFilter) ([]logistics.Package, error) {
	var w where
	if len(filter.IDs) > 0 {
		w.add("id = ANY(?)", ids(filter.IDs))
	}
	if filter.OrderWindowID != "" {
		w.add("order_window_id = ?", filter.OrderWindowID)
	}
	if filter.Kind != "" {
		w.add("kind = ?", filter.Kind)
	}
	if filter.OwnerID != "" {
		w.add("owner_id = ?", filter.OwnerID)
	}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}

	var rows []packageRow
	q := `SELECT ` + packageColumns + ` FROM packages` + w.String() +
		` ORDER BY array_position(ARRAY['publisher','school','institution','courier']::varchar[], kind), owner_name, id`
	if err := selectRows(ctx, repo.db.getExec(ctx), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying packages")
	}
	pkgs := make([]logistics.Package, 0, len(rows))
	for _, row := range rows {
		p, err := row.unboil()
		if err != nil {
			return nil, err
		}
		pkgs = append(pkgs, p)
	}
	return pkgs, nil
}

func (repo *packageRepository) UpdatePackages(ctx context.Context, pkgs []logistics.Package) error {
	exec := repo.db.getExec(ctx)
	for _, p := range pkgs {
		row, err := boilPackage(p)
		if err != nil {
			return err
		}
		res, err := sqlxNamedExec(ctx, exec, `UPDATE packages SET
			status = :status, total_quantity = :total_quantity, total_price = :total_price,
			is_eligible_for_incentive = :is_eligible_for_incentive, incentive = :incentive, books = :books,
			order_ids = :order_ids, child_ids = :child_ids, updated_at = :updated_at
			WHERE id = :id`, row)
		if err = checkAffected(res, err, logistics.ErrNotFound, "updating package"); err != nil {
			return err
		}
	}
	return nil
}

func (repo *packageRepository) DeletePackages(ctx context.Context, pkgIDs []string) (int, error) {
	res, err := execQuery(ctx, repo.db.getExec(ctx), `DELETE FROM packages WHERE id = ANY(?)`, ids(pkgIDs))
	if err != nil {
		return 0, errors.Wrap(err, "deleting packages")
	}
	cnt, err := res.RowsAffected()
	return int(cnt), errors.Wrap(err, "deleting packages")
}
