package inmemdb

import (
	"context"
	"strings"

	"github.com/kitab-bazar/server/core/location"
)

type locationRepository struct {
	db *DB
}

var _ location.Repository = (*locationRepository)(nil)

func NewLocationRepository(db *DB) *locationRepository {
	return &locationRepository{db: db}
}

func byName[T any](name func(T) string) func(a, b T) int {
	return func(a, b T) int { return strings.Compare(name(a), name(b)) }
}

func (repo *locationRepository) CreateProvince(_ context.Context, p location.Province) (location.Province, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.t.provinces.put(p.ID, p)
	return p, nil
}

func (repo *locationRepository) QueryProvinces(_ context.Context, filter location.QueryFilter) ([]location.Province, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	rows := repo.db.t.provinces.filter(func(p location.Province) bool { return filter.Matches(p.Name) })
	sortRows(rows, nil, nil, byName(func(p location.Province) string { return p.Name }))
	return rows, nil
}

func (repo *locationRepository) GetProvince(_ context.Context, id string) (location.Province, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if p, ok := repo.db.t.provinces.get(id); ok {
		return p, nil
	}
	return location.Province{}, location.ErrNotFound
}

func (repo *locationRepository) GetProvinceByName(_ context.Context, name string) (location.Province, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if p, ok := repo.db.t.provinces.first(func(p location.Province) bool { return strings.EqualFold(p.Name, name) }); ok {
		return p, nil
	}
	return location.Province{}, location.ErrNotFound
}

func (repo *locationRepository) CreateDistrict(_ context.Context, d location.District) (location.District, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.t.districts.put(d.ID, d)
	return d, nil
}

func (repo *locationRepository) QueryDistricts(_ context.Context, filter location.QueryFilter) ([]location.District, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	rows := repo.db.t.districts.filter(func(d location.District) bool {
		return (filter.ParentID == "" || d.ProvinceID == filter.ParentID) && filter.Matches(d.Name)
	})
	sortRows(rows, nil, nil, byName(func(d location.District) string { return d.Name }))
	return rows, nil
}

func (repo *locationRepository) GetDistrict(_ context.Context, id string) (location.District, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if d, ok := repo.db.t.districts.get(id); ok {
		return d, nil
	}
	return location.District{}, location.ErrNotFound
}

func (repo *locationRepository) GetDistrictByName(_ context.Context, provinceID, name string) (location.District, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	d, ok := repo.db.t.districts.first(func(d location.District) bool {
		return d.ProvinceID == provinceID && strings.EqualFold(d.Name, name)
	})
	if ok {
		return d, nil
	}
	return location.District{}, location.ErrNotFound
}

func (repo *locationRepository) CreateMunicipality(_ context.Context, m location.Municipality) (location.Municipality, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.t.municipalities.put(m.ID, m)
	return m, nil
}

func (repo *locationRepository) QueryMunicipalities(_ context.Context, filter location.QueryFilter) ([]location.Municipality, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	rows := repo.db.t.municipalities.filter(func(m location.Municipality) bool {
		return (filter.ParentID == "" || m.DistrictID == filter.ParentID) && filter.Matches(m.Name)
	})
	sortRows(rows, nil, nil, byName(func(m location.Municipality) string { return m.Name }))
	return rows, nil
}

func (repo *locationRepository) GetMunicipality(_ context.Context, id string) (location.Municipality, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if m, ok := repo.db.t.municipalities.get(id); ok {
		return m, nil
	}
	return location.Municipality{}, location.ErrNotFound
}

func (repo *locationRepository) GetMunicipalitiesByID(_ context.Context, ids []string) ([]location.Municipality, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	set := inIDs(ids)
	rows := repo.db.t.municipalities.filter(func(m location.Municipality) bool { _, ok := set[m.ID]; return ok })
	sortRows(rows, nil, nil, byName(func(m location.Municipality) string { return m.Name }))
	return rows, nil
}

func (repo *locationRepository) GetMunicipalityByName(_ context.Context, districtID, name string) (location.Municipality, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	m, ok := repo.db.t.municipalities.first(func(m location.Municipality) bool {
		return m.DistrictID == districtID && strings.EqualFold(m.Name, name)
	})
	if ok {
		return m, nil
	}
	return location.Municipality{}, location.ErrNotFound
}
