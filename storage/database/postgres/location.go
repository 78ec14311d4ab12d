package postgresdb

import (
	"context"

	"github.com/pkg/errors"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/location"
)

type locationRepository struct {
	db *DB
}

var _ location.Repository = (*locationRepository)(nil)

func NewLocationRepository(db *DB) *locationRepository {
	return &locationRepository{db: db}
}

func (repo *locationRepository) CreateProvince(ctx context.Context, p location.Province) (location.Province, error) {
	_, err := execQuery(ctx, repo.db.getExec(ctx), `INSERT INTO provinces (id, name) VALUES (?, ?)`, p.ID, p.Name)
	return p, errors.Wrap(err, "inserting province")
}

func (repo *locationRepository) QueryProvinces(ctx context.Context, filter location.QueryFilter) ([]location.Province, error) {
	var w where
	w.search(filter.Search, "name")
	provinces := make([]location.Province, 0)
	err := selectRows(ctx, repo.db.getExec(ctx), &provinces, `SELECT id, name FROM provinces`+w.String()+` ORDER BY name`, w.args...)
	return provinces, errors.Wrap(err, "querying provinces")
}

func (repo *locationRepository) GetProvince(ctx context.Context, id string) (location.Province, error) {
	var p location.Province
	if !core.IsValidID(id) {
		return p, location.ErrNotFound
	}
	if err := getRow(ctx, repo.db.getExec(ctx), &p, `SELECT id, name FROM provinces WHERE id = ?`, id); err != nil {
		return p, trapNoRowsErr(err, location.ErrNotFound, "finding province")
	}
	return p, nil
}

func (repo *locationRepository) GetProvinceByName(ctx context.Context, name string) (location.Province, error) {
	var p location.Province
	if err := getRow(ctx, repo.db.getExec(ctx), &p, `SELECT id, name FROM provinces WHERE lower(name) = lower(?)`, name); err != nil {
		return p, trapNoRowsErr(err, location.ErrNotFound, "finding province by name")
	}
	return p, nil
}

func (repo *locationRepository) CreateDistrict(ctx context.Context, d location.District) (location.District, error) {
	_, err := execQuery(ctx, repo.db.getExec(ctx),
		`INSERT INTO districts (id, name, province_id) VALUES (?, ?, ?)`, d.ID, d.Name, d.ProvinceID)
	return d, errors.Wrap(err, "inserting district")
}

func (repo *locationRepository) QueryDistricts(ctx context.Context, filter location.QueryFilter) ([]location.District, error) {
	var w where
	w.search(filter.Search, "name")
	if filter.ParentID != "" {
		w.add("province_id = ?", filter.ParentID)
	}
	districts := make([]location.District, 0)
	q := `SELECT id, name, province_id AS provinceid FROM districts` + w.String() + ` ORDER BY name`
	err := selectRows(ctx, repo.db.getExec(ctx), &districts, q, w.args...)
	return districts, errors.Wrap(err, "querying districts")
}

func (repo *locationRepository) GetDistrict(ctx context.Context, id string) (location.District, error) {
	var d location.District
	if !core.IsValidID(id) {
		return d, location.ErrNotFound
	}
	q := `SELECT id, name, province_id AS provinceid FROM districts WHERE id = ?`
	if err := getRow(ctx, repo.db.getExec(ctx), &d, q, id); err != nil {
		return d, trapNoRowsErr(err, location.ErrNotFound, "finding district")
	}
	return d, nil
}

func (repo *locationRepository) GetDistrictByName(ctx context.Context, provinceID, name string) (location.District, error) {
	var d location.District
	q := `SELECT id, name, province_id AS provinceid FROM districts WHERE province_id = ? AND lower(name) = lower(?)`
	if err := getRow(ctx, repo.db.getExec(ctx), &d, q, provinceID, name); err != nil {
		return d, trapNoRowsErr(err, location.ErrNotFound, "finding district by name")
	}
	return d, nil
}

func (repo *locationRepository) CreateMunicipality(ctx context.Context, m location.Municipality) (location.Municipality, error) {
	_, err := execQuery(ctx, repo.db.getExec(ctx),
		`INSERT INTO municipalities (id, name, district_id) VALUES (?, ?, ?)`, m.ID, m.Name, m.DistrictID)
	return m, errors.Wrap(err, "inserting municipality")
}

func (repo *locationRepository) QueryMunicipalities(ctx context.Context, filter location.QueryFilter) ([]location.Municipality, error) {
	var w where
	w.search(filter.Search, "name")
	if filter.ParentID != "" {
		w.add("district_id = ?", filter.ParentID)
	}
	municipalities := make([]location.Municipality, 0)
	q := `SELECT id, name, district_id AS districtid FROM municipalities` + w.String() + ` ORDER BY name`
	err := selectRows(ctx, repo.db.getExec(ctx), &municipalities, q, w.args...)
	return municipalities, errors.Wrap(err, "querying municipalities")
}

func (repo *locationRepository) GetMunicipality(ctx context.Context, id string) (location.Municipality, error) {
	var m location.Municipality
	if !core.IsValidID(id) {
		return m, location.ErrNotFound
	}
	q := `SELECT id, name, district_id AS districtid FROM municipalities WHERE id = ?`
	if err := getRow(ctx, repo.db.getExec(ctx), &m, q, id); err != nil {
		return m, trapNoRowsErr(err, location.ErrNotFound, "finding municipality")
	}
	return m, nil
}

func (repo *locationRepository) GetMunicipalitiesByID(ctx context.Context, municipalityIDs []string) ([]location.Municipality, error) {
	municipalities := make([]location.Municipality, 0)
	q := `SELECT id, name, district_id AS districtid FROM municipalities WHERE id = ANY(?) ORDER BY name`
	err := selectRows(ctx, repo.db.getExec(ctx), &municipalities, q, ids(municipalityIDs))
	return municipalities, errors.Wrap(err, "querying municipalities by id")
}

func (repo *locationRepository) GetMunicipalityByName(ctx context.Context, districtID, name string) (location.Municipality, error) {
	var m location.Municipality
	q := `SELECT id, name, district_id AS districtid FROM municipalities WHERE district_id = ? AND lower(name) = lower(?)`
	if err := getRow(ctx, repo.db.getExec(ctx), &m, q, districtID, name); err != nil {
		return m, trapNoRowsErr(err, location.ErrNotFound, "finding municipality by name")
	}
	return m, nil
}
