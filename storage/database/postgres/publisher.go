package postgresdb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/publisher"
	"github.com/kitab-bazar/server/core/school"
)

const (
	publisherColumns = `id, name, email, phone_number, pan_number, vat_number, municipality_id, ward_number,
	local_address, created_at, updated_at`
	schoolColumns = `id, kind, name, school_code, pan_number, municipality_id, ward_number, local_address,
	is_verified, created_at, updated_at`
)

type (
	publisherRepository struct {
		db *DB
	}

	publisherRow struct {
		ID             string      `db:"id"`
		Name           string      `db:"name"`
		Email          string      `db:"email"`
		PhoneNumber    string      `db:"phone_number"`
		PanNumber      string      `db:"pan_number"`
		VatNumber      string      `db:"vat_number"`
		MunicipalityID null.String `db:"municipality_id"`
		WardNumber     int         `db:"ward_number"`
		LocalAddress   string      `db:"local_address"`
		CreatedAt      time.Time   `db:"created_at"`
		UpdatedAt      time.Time   `db:"updated_at"`
	}

	schoolRepository struct {
		db *DB
	}

	schoolRow struct {
		ID             string    `db:"id"`
		Kind           string    `db:"kind"`
		Name           string    `db:"name"`
		SchoolCode     string    `db:"school_code"`
		PanNumber      string    `db:"pan_number"`
		MunicipalityID string    `db:"municipality_id"`
		WardNumber     int       `db:"ward_number"`
		LocalAddress   string    `db:"local_address"`
		IsVerified     bool      `db:"is_verified"`
		CreatedAt      time.Time `db:"created_at"`
		UpdatedAt      time.Time `db:"updated_at"`
	}
)

var (
	_ publisher.Repository = (*publisherRepository)(nil)
	_ school.Repository    = (*schoolRepository)(nil)
)

func NewPublisherRepository(db *DB) *publisherRepository {
	return &publisherRepository{db: db}
}

func boilPublisher(p publisher.Publisher) publisherRow {
	return publisherRow{
		ID:             p.ID,
		Name:           p.Name,
		Email:          p.Email,
		PhoneNumber:    p.PhoneNumber,
		PanNumber:      p.PanNumber,
		VatNumber:      p.VatNumber,
		MunicipalityID: nullID(p.MunicipalityID),
		WardNumber:     p.WardNumber,
		LocalAddress:   p.LocalAddress,
		CreatedAt:      p.CreatedAt.UTC(),
		UpdatedAt:      p.UpdatedAt.UTC(),
	}
}

func (row publisherRow) unboil() publisher.Publisher {
	return publisher.Publisher{
		ID:             row.ID,
		Name:           row.Name,
		Email:          row.Email,
		PhoneNumber:    row.PhoneNumber,
		PanNumber:      row.PanNumber,
		VatNumber:      row.VatNumber,
		MunicipalityID: row.MunicipalityID.String,
		WardNumber:     row.WardNumber,
		LocalAddress:   row.LocalAddress,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
}

func unboilPublishers(rows []publisherRow) []publisher.Publisher {
	pubs := make([]publisher.Publisher, 0, len(rows))
	for _, row := range rows {
		pubs = append(pubs, row.unboil())
	}
	return pubs
}

func (repo *publisherRepository) CreatePublisher(ctx context.Context, p publisher.Publisher) (publisher.Publisher, error) {
	_, err := sqlxNamedExec(ctx, repo.db.getExec(ctx), `INSERT INTO publishers (`+publisherColumns+`) VALUES (
		:id, :name, :email, :phone_number, :pan_number, :vat_number, :municipality_id, :ward_number,
		:local_address, :created_at, :updated_at)`, boilPublisher(p))
	return p, errors.Wrap(err, "inserting publisher")
}

func (repo *publisherRepository) QueryPublishers(ctx context.Context, filter publisher.QueryFilter, ordering []core.DBOrdering) ([]publisher.Publisher, error) {
	var w where
	w.search(filter.Search, "name", "email", "pan_number")
	var rows []publisherRow
	q := `SELECT ` + publisherColumns + ` FROM publishers` + w.String() + orderBy(ordering, "name ASC, id ASC")
	if err := selectRows(ctx, repo.db.getExec(ctx), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying publishers")
	}
	return unboilPublishers(rows), nil
}

func (repo *publisherRepository) GetPublisher(ctx context.Context, id string) (publisher.Publisher, error) {
	var row publisherRow
	if !core.IsValidID(id) {
		return publisher.Publisher{}, publisher.ErrNotFound
	}
	if err := getRow(ctx, repo.db.getExec(ctx), &row, `SELECT `+publisherColumns+` FROM publishers WHERE id = ?`, id); err != nil {
		return publisher.Publisher{}, trapNoRowsErr(err, publisher.ErrNotFound, "finding publisher")
	}
	return row.unboil(), nil
}

func (repo *publisherRepository) GetPublisherByName(ctx context.Context, name string) (publisher.Publisher, error) {
	var row publisherRow
	q := `SELECT ` + publisherColumns + ` FROM publishers WHERE lower(name) = lower(?) ORDER BY created_at LIMIT 1`
	if err := getRow(ctx, repo.db.getExec(ctx), &row, q, name); err != nil {
		return publisher.Publisher{}, trapNoRowsErr(err, publisher.ErrNotFound, "finding publisher by name")
	}
	return row.unboil(), nil
}

func (repo *publisherRepository) GetPublishersByID(ctx context.Context, publisherIDs []string) ([]publisher.Publisher, error) {
	var rows []publisherRow
	q := `SELECT ` + publisherColumns + ` FROM publishers WHERE id = ANY(?) ORDER BY name, id`
	if err := selectRows(ctx, repo.db.getExec(ctx), &rows, q, ids(publisherIDs)); err != nil {
		return nil, errors.Wrap(err, "querying publishers by id")
	}
	return unboilPublishers(rows), nil
}

func (repo *publisherRepository) UpdatePublisher(ctx context.Context, p publisher.Publisher) (publisher.Publisher, error) {
	res, err := sqlxNamedExec(ctx, repo.db.getExec(ctx), `UPDATE publishers SET
		name = :name, email = :email, phone_number = :phone_number, pan_number = :pan_number,
		vat_number = :vat_number, municipality_id = :municipality_id, ward_number = :ward_number,
		local_address = :local_address, updated_at = :updated_at
		WHERE id = :id`, boilPublisher(p))
	if err = checkAffected(res, err, publisher.ErrNotFound, "updating publisher"); err != nil {
		return publisher.Publisher{}, err
	}
	return p, nil
}

func (repo *publisherRepository) DeletePublisher(ctx context.Context, id string) error {
	res, err := execQuery(ctx, repo.db.getExec(ctx), `DELETE FROM publishers WHERE id = ?`, id)
	return checkAffected(res, err, publisher.ErrNotFound, "deleting publisher")
}

// Schools & institutions

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db}
}

func boilSchool(s school.School) schoolRow {
	return schoolRow{
		ID:             s.ID,
		Kind:           s.Kind,
		Name:           s.Name,
		SchoolCode:     s.SchoolCode,
		PanNumber:      s.PanNumber,
		MunicipalityID: s.MunicipalityID,
		WardNumber:     s.WardNumber,
		LocalAddress:   s.LocalAddress,
		IsVerified:     s.IsVerified,
		CreatedAt:      s.CreatedAt.UTC(),
		UpdatedAt:      s.UpdatedAt.UTC(),
	}
}

func (row schoolRow) unboil() school.School {
	return school.School{
		ID:             row.ID,
		Kind:           row.Kind,
		Name:           row.Name,
		SchoolCode:     row.SchoolCode,
		PanNumber:      row.PanNumber,
		MunicipalityID: row.MunicipalityID,
		WardNumber:     row.WardNumber,
		LocalAddress:   row.LocalAddress,
		IsVerified:     row.IsVerified,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
}

func unboilSchools(rows []schoolRow) []school.School {
	schools := make([]school.School, 0, len(rows))
	for _, row := range rows {
		schools = append(schools, row.unboil())
	}
	return schools
}

func (repo *schoolRepository) CreateSchool(ctx context.Context, s school.School) (school.School, error) {
	_, err := sqlxNamedExec(ctx, repo.db.getExec(ctx), `INSERT INTO schools (`+schoolColumns+`) VALUES (
		:id, :kind, :name, :school_code, :pan_number, :municipality_id, :ward_number, :local_address,
		:is_verified, :created_at, :updated_at)`, boilSchool(s))
	return s, errors.Wrap(err, "inserting school")
}

func (repo *schoolRepository) QuerySchools(ctx context.Context, filter school.QueryFilter, ordering []core.DBOrdering) ([]school.School, error) {
	var w where
	w.search(filter.Search, "name", "school_code", "pan_number")
	if filter.Kind != "" {
		w.add("kind = ?", filter.Kind)
	}
	if filter.MunicipalityID != "" {
		w.add("municipality_id = ?", filter.MunicipalityID)
	}
	if filter.IsVerified != nil {
		w.add("is_verified = ?", *filter.IsVerified)
	}
	var rows []schoolRow
	q := `SELECT ` + schoolColumns + ` FROM schools` + w.String() + orderBy(ordering, "name ASC, id ASC")
	if err := selectRows(ctx, repo.db.getExec(ctx), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying schools")
	}
	return unboilSchools(rows), nil
}

func (repo *schoolRepository) GetSchool(ctx context.Context, kind, id string) (school.School, error) {
	var row schoolRow
	if !core.IsValidID(id) {
		return school.School{}, school.ErrNotFound
	}
	q := `SELECT ` + schoolColumns + ` FROM schools WHERE id = ? AND (? = '' OR kind = ?)`
	if err := getRow(ctx, repo.db.getExec(ctx), &row, q, id, kind, kind); err != nil {
		return school.School{}, trapNoRowsErr(err, school.ErrNotFound, "finding school")
	}
	return row.unboil(), nil
}

func (repo *schoolRepository) GetSchoolsByID(ctx context.Context, schoolIDs []string) ([]school.School, error) {
	var rows []schoolRow
	q := `SELECT ` + schoolColumns + ` FROM schools WHERE id = ANY(?) ORDER BY name, id`
	if err := selectRows(ctx, repo.db.getExec(ctx), &rows, q, ids(schoolIDs)); err != nil {
		return nil, errors.Wrap(err, "querying schools by id")
	}
	return unboilSchools(rows), nil
}

func (repo *schoolRepository) UpdateSchool(ctx context.Context, s school.School) (school.School, error) {
	res, err := sqlxNamedExec(ctx, repo.db.getExec(ctx), `UPDATE schools SET
		name = :name, school_code = :school_code, pan_number = :pan_number, municipality_id = :municipality_id,
		ward_number = :ward_number, local_address = :local_address, is_verified = :is_verified,
		updated_at = :updated_at
		WHERE id = :id`, boilSchool(s))
	if err = checkAffected(res, err, school.ErrNotFound, "updating school"); err != nil {
		return school.School{}, err
	}
	return s, nil
}

func (repo *schoolRepository) DeleteSchool(ctx context.Context, kind, id string) error {
	res, err := execQuery(ctx, repo.db.getExec(ctx), `DELETE FROM schools WHERE id = ? AND (? = '' OR kind = ?)`, id, kind, kind)
	return checkAffected(res, err, school.ErrNotFound, "deleting school")
}
