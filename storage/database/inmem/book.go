package inmemdb

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/book"
)

type bookRepository struct {
	db *DB
}

var _ book.Repository = (*bookRepository)(nil)

var bookComparators = comparators[book.Book]{
	"title":          func(a, b book.Book) int { return strings.Compare(a.Title, b.Title) },
	"price":          func(a, b book.Book) int { return cmp.Compare(a.Price, b.Price) },
	"published_date": func(a, b book.Book) int { return a.PublishedDate.Compare(b.PublishedDate) },
	"created_at":     func(a, b book.Book) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

func NewBookRepository(db *DB) *bookRepository {
	return &bookRepository{db: db}
}

func cloneBook(b book.Book) book.Book {
	b.CategoryIDs = slices.Clone(b.CategoryIDs)
	b.TagIDs = slices.Clone(b.TagIDs)
	return b
}

func (repo *bookRepository) CreateBook(_ context.Context, b book.Book) (book.Book, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.t.books.put(b.ID, cloneBook(b))
	return b, nil
}

func (repo *bookRepository) QueryBooks(_ context.Context, filter *book.QueryFilter, ordering []core.DBOrdering) ([]book.Book, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	rows := repo.db.t.books.filter(filter.Match)
	for i := range rows {
		rows[i] = cloneBook(rows[i])
	}
	sortRows(rows, ordering, bookComparators, func(a, b book.Book) int {
		if c := strings.Compare(a.Title, b.Title); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return rows, nil
}

func (repo *bookRepository) GetBook(_ context.Context, id string) (book.Book, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if b, ok := repo.db.t.books.get(id); ok {
		return cloneBook(b), nil
	}
	return book.Book{}, book.ErrNotFound
}

func (repo *bookRepository) GetBookByISBN(_ context.Context, isbn string) (book.Book, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if b, ok := repo.db.t.books.first(func(b book.Book) bool { return b.ISBN == isbn }); ok {
		return cloneBook(b), nil
	}
	return book.Book{}, book.ErrNotFound
}

func (repo *bookRepository) GetBooksByID(_ context.Context, ids []string) ([]book.Book, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	set := inIDs(ids)
	rows := repo.db.t.books.filter(func(b book.Book) bool { _, ok := set[b.ID]; return ok })
	for i := range rows {
		rows[i] = cloneBook(rows[i])
	}
	sortRows(rows, nil, nil, bookComparators["title"])
	return rows, nil
}

func (repo *bookRepository) UpdateBook(_ context.Context, b book.Book) (book.Book, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.t.books.get(b.ID); !ok {
		return book.Book{}, book.ErrNotFound
	}
	repo.db.t.books.put(b.ID, cloneBook(b))
	return b, nil
}

func (repo *bookRepository) DeleteBook(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if !repo.db.t.books.del(id) {
		return book.ErrNotFound
	}
	return nil
}

func (repo *bookRepository) CreateCategory(_ context.Context, c book.Category) (book.Category, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.t.categories.put(c.ID, c)
	return c, nil
}

func (repo *bookRepository) QueryCategories(_ context.Context, search string) ([]book.Category, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	rows := repo.db.t.categories.filter(func(c book.Category) bool { return search == "" || core.ContainsFold(search, c.Name) })
	sortRows(rows, nil, nil, byName(func(c book.Category) string { return c.Name }))
	return rows, nil
}

func (repo *bookRepository) GetCategory(_ context.Context, id string) (book.Category, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if c, ok := repo.db.t.categories.get(id); ok {
		return c, nil
	}
	return book.Category{}, book.ErrCategoryNotFound
}

func (repo *bookRepository) GetCategoryByName(_ context.Context, name string) (book.Category, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if c, ok := repo.db.t.categories.first(func(c book.Category) bool { return strings.EqualFold(c.Name, name) }); ok {
		return c, nil
	}
	return book.Category{}, book.ErrCategoryNotFound
}

func (repo *bookRepository) CreateTag(_ context.Context, t book.Tag) (book.Tag, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.t.tags.put(t.ID, t)
	return t, nil
}

func (repo *bookRepository) QueryTags(_ context.Context, search string) ([]book.Tag, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	rows := repo.db.t.tags.filter(func(t book.Tag) bool { return search == "" || core.ContainsFold(search, t.Name) })
	sortRows(rows, nil, nil, byName(func(t book.Tag) string { return t.Name }))
	return rows, nil
}

func (repo *bookRepository) GetTag(_ context.Context, id string) (book.Tag, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if t, ok := repo.db.t.tags.get(id); ok {
		return t, nil
	}
	return book.Tag{}, book.ErrTagNotFound
}
