package inmemdb

import (
	"context"
	"strings"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/publisher"
	"github.com/kitab-bazar/server/core/school"
)

type publisherRepository struct {
	db *DB
}

var _ publisher.Repository = (*publisherRepository)(nil)

var publisherComparators = comparators[publisher.Publisher]{
	"name":       func(a, b publisher.Publisher) int { return strings.Compare(a.Name, b.Name) },
	"created_at": func(a, b publisher.Publisher) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

func NewPublisherRepository(db *DB) *publisherRepository {
	return &publisherRepository{db: db}
}

func (repo *publisherRepository) CreatePublisher(_ context.Context, p publisher.Publisher) (publisher.Publisher, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.t.publishers.put(p.ID, p)
	return p, nil
}

func (repo *publisherRepository) QueryPublishers(_ context.Context, filter publisher.QueryFilter, ordering []core.DBOrdering) ([]publisher.Publisher, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	rows := repo.db.t.publishers.filter(filter.Match)
	sortRows(rows, ordering, publisherComparators, publisherComparators["name"])
	return rows, nil
}

func (repo *publisherRepository) GetPublisher(_ context.Context, id string) (publisher.Publisher, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if p, ok := repo.db.t.publishers.get(id); ok {
		return p, nil
	}
	return publisher.Publisher{}, publisher.ErrNotFound
}

func (repo *publisherRepository) GetPublisherByName(_ context.Context, name string) (publisher.Publisher, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if p, ok := repo.db.t.publishers.first(func(p publisher.Publisher) bool { return strings.EqualFold(p.Name, name) }); ok {
		return p, nil
	}
	return publisher.Publisher{}, publisher.ErrNotFound
}

func (repo *publisherRepository) GetPublishersByID(_ context.Context, ids []string) ([]publisher.Publisher, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	set := inIDs(ids)
	rows := repo.db.t.publishers.filter(func(p publisher.Publisher) bool { _, ok := set[p.ID]; return ok })
	sortRows(rows, nil, nil, publisherComparators["name"])
	return rows, nil
}

func (repo *publisherRepository) UpdatePublisher(_ context.Context, p publisher.Publisher) (publisher.Publisher, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.t.publishers.get(p.ID); !ok {
		return publisher.Publisher{}, publisher.ErrNotFound
	}
	repo.db.t.publishers.put(p.ID, p)
	return p, nil
}

func (repo *publisherRepository) DeletePublisher(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if !repo.db.t.publishers.del(id) {
		return publisher.ErrNotFound
	}
	return nil
}

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil)

var schoolComparators = comparators[school.School]{
	"name":        func(a, b school.School) int { return strings.Compare(a.Name, b.Name) },
	"school_code": func(a, b school.School) int { return strings.Compare(a.SchoolCode, b.SchoolCode) },
	"created_at":  func(a, b school.School) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) CreateSchool(_ context.Context, s school.School) (school.School, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.t.schools.put(s.ID, s)
	return s, nil
}

func (repo *schoolRepository) QuerySchools(_ context.Context, filter school.QueryFilter, ordering []core.DBOrdering) ([]school.School, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	rows := repo.db.t.schools.filter(filter.Match)
	sortRows(rows, ordering, schoolComparators, schoolComparators["name"])
	return rows, nil
}

func (repo *schoolRepository) GetSchool(_ context.Context, kind, id string) (school.School, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if s, ok := repo.db.t.schools.get(id); ok && (kind == "" || s.Kind == kind) {
		return s, nil
	}
	return school.School{}, school.ErrNotFound
}

func (repo *schoolRepository) GetSchoolsByID(_ context.Context, ids []string) ([]school.School, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	set := inIDs(ids)
	rows := repo.db.t.schools.filter(func(s school.School) bool { _, ok := set[s.ID]; return ok })
	sortRows(rows, nil, nil, schoolComparators["name"])
	return rows, nil
}

func (repo *schoolRepository) UpdateSchool(_ context.Context, s school.School) (school.School, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.t.schools.get(s.ID); !ok {
		return school.School{}, school.ErrNotFound
	}
	repo.db.t.schools.put(s.ID, s)
	return s, nil
}

func (repo *schoolRepository) DeleteSchool(_ context.Context, kind, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if s, ok := repo.db.t.schools.get(id); !ok || (kind != "" && s.Kind != kind) {
		return school.ErrNotFound
	}
	repo.db.t.schools.del(id)
	return nil
}
