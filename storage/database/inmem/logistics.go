package inmemdb

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/kitab-bazar/server/core/logistics"
)

type packageRepository struct {
	db *DB
}

var _ logistics.Repository = (*packageRepository)(nil)

func NewPackageRepository(db *DB) *packageRepository {
	return &packageRepository{db: db}
}

func clonePackage(p logistics.Package) logistics.Package {
	p.Books = slices.Clone(p.Books)
	p.OrderIDs = slices.Clone(p.OrderIDs)
	p.ChildIDs = slices.Clone(p.ChildIDs)
	return p
}

func (repo *packageRepository) CreatePackages(_ context.Context, pkgs []logistics.Package) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	for _, p := range pkgs {
		repo.db.t.packages.put(p.ID, clonePackage(p))
	}
	return nil
}

func (repo *packageRepository) GetPackage(_ context.Context, id string) (logistics.Package, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if p, ok := repo.db.t.packages.get(id); ok {
		return clonePackage(p), nil
	}
	return logistics.Package{}, logistics.ErrNotFound
}

func (repo *packageRepository) QueryPackages(_ context.Context, filter logistics.QueryFilter) ([]logistics.Package, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	rows := repo.db.t.packages.filter(filter.Match)
	for i := range rows {
		rows[i] = clonePackage(rows[i])
	}
	kindRank := func(kind string) int { return slices.Index(logistics.Kinds, kind) }
	sortRows(rows, nil, nil, func(a, b logistics.Package) int {
		if c := cmp.Compare(kindRank(a.Kind), kindRank(b.Kind)); c != 0 {
			return c
		}
		if c := strings.Compare(a.OwnerName, b.OwnerName); c != 0 {
			return c
		}
		return strings.Compare(a.OwnerID, b.OwnerID)
	})
	return rows, nil
}

func (repo *packageRepository) UpdatePackages(_ context.Context, pkgs []logistics.Package) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	for _, p := range pkgs {
		if _, ok := repo.db.t.packages.get(p.ID); !ok {
			return logistics.ErrNotFound
		}
	}
	for _, p := range pkgs {
		repo.db.t.packages.put(p.ID, clonePackage(p))
	}
	return nil
}

func (repo *packageRepository) DeletePackages(_ context.Context, ids []string) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	n := 0
	for _, id := range ids {
		if repo.db.t.packages.del(id) {
			n++
		}
	}
	return n, nil
}
