package postgresdb

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/book"
)

const bookColumns = `id, title, description, isbn, edition, language, grade, price, number_of_pages,
	published_date, publisher_id, category_ids, tag_ids, image, is_published, created_by_id, created_at, updated_at`

type (
	bookRepository struct {
		db *DB
	}

	bookRow struct {
		ID            string         `db:"id"`
		Title         string         `db:"title"`
		Description   string         `db:"description"`
		ISBN          string         `db:"isbn"`
		Edition       string         `db:"edition"`
		Language      string         `db:"language"`
		Grade         string         `db:"grade"`
		Price         int            `db:"price"`
		NumberOfPages int            `db:"number_of_pages"`
		PublishedDate null.Time      `db:"published_date"`
		PublisherID   string         `db:"publisher_id"`
		CategoryIDs   pq.StringArray `db:"category_ids"`
		TagIDs        pq.StringArray `db:"tag_ids"`
		Image         string         `db:"image"`
		IsPublished   bool           `db:"is_published"`
		CreatedByID   null.String    `db:"created_by_id"`
		CreatedAt     time.Time      `db:"created_at"`
		UpdatedAt     time.Time      `db:"updated_at"`
	}

	categoryRow struct {
		ID       string      `db:"id"`
		Name     string      `db:"name"`
		ParentID null.String `db:"parent_id"`
	}
)

var _ book.Repository = (*bookRepository)(nil)

func NewBookRepository(db *DB) *bookRepository {
	return &bookRepository{db: db}
}

func boilBook(b book.Book) bookRow {
	return bookRow{
		ID:            b.ID,
		Title:         b.Title,
		Description:   b.Description,
		ISBN:          b.ISBN,
		Edition:       b.Edition,
		Language:      b.Language,
		Grade:         b.Grade,
		Price:         b.Price,
		NumberOfPages: b.NumberOfPages,
		PublishedDate: null.NewTime(b.PublishedDate.UTC(), !b.PublishedDate.IsZero()),
		PublisherID:   b.PublisherID,
		CategoryIDs:   ids(b.CategoryIDs),
		TagIDs:        ids(b.TagIDs),
		Image:         b.Image,
		IsPublished:   b.IsPublished,
		CreatedByID:   nullID(b.CreatedByID),
		CreatedAt:     b.CreatedAt.UTC(),
		UpdatedAt:     b.UpdatedAt.UTC(),
	}
}

func (row bookRow) unboil() book.Book {
	b := book.Book{
		ID:            row.ID,
		Title:         row.Title,
		Description:   row.Description,
		ISBN:          row.ISBN,
		Edition:       row.Edition,
		Language:      row.Language,
		Grade:         row.Grade,
		Price:         row.Price,
		NumberOfPages: row.NumberOfPages,
		PublisherID:   row.PublisherID,
		CategoryIDs:   []string(row.CategoryIDs),
		TagIDs:        []string(row.TagIDs),
		Image:         row.Image,
		IsPublished:   row.IsPublished,
		CreatedByID:   row.CreatedByID.String,
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
	}
	if row.PublishedDate.Valid {
		b.PublishedDate = row.PublishedDate.Time.UTC()
	}
	return b
}

func unboilBooks(rows []bookRow) []book.Book {
	books := make([]book.Book, 0, len(rows))
	for _, row := range rows {
		books = append(books, row.unboil())
	}
	return books
}

func (repo *bookRepository) CreateBook(ctx context.Context, b book.Book) (book.Book, error) {
	_, err := sqlxNamedExec(ctx, repo.db.getExec(ctx), `INSERT INTO books (`+bookColumns+`) VALUES (
		:id, :title, :description, :isbn, :edition, :language, :grade, :price, :number_of_pages,
		:published_date, :publisher_id, :category_ids, :tag_ids, :image, :is_published, :created_by_id,
		:created_at, :updated_at)`, boilBook(b))
	return b, errors.Wrap(err, "inserting book")
}

func (repo *bookRepository) QueryBooks(ctx context.Context, filter *book.QueryFilter, ordering []core.DBOrdering) ([]book.Book, error) {
	var w where
	if filter == nil {
		w.add("is_published")
	} else {
		switch {
		case filter.AllUnpublished:
		case filter.UnpublishedOf != "":
			w.add("(is_published OR publisher_id = ?)", filter.UnpublishedOf)
		default:
			w.add("is_published")
		}
		w.search(filter.Search, "title", "isbn", "description")
		if filter.PublisherID != "" {
			w.add("publisher_id = ?", filter.PublisherID)
		}
		if filter.CategoryID != "" {
			w.add("? = ANY(category_ids)", filter.CategoryID)
		}
		if filter.TagID != "" {
			w.add("? = ANY(tag_ids)", filter.TagID)
		}
		if filter.Grade != "" {
			w.add("grade = ?", filter.Grade)
		}
		if filter.Language != "" {
			w.add("language = ?", filter.Language)
		}
		if filter.PriceMin != nil {
			w.add("price >= ?", *filter.PriceMin)
		}
		if filter.PriceMax != nil {
			w.add("price <= ?", *filter.PriceMax)
		}
		if filter.IsPublished != nil {
			w.add("is_published = ?", *filter.IsPublished)
		}
	}

	var rows []bookRow
	q := `SELECT ` + bookColumns + ` FROM books` + w.String() + orderBy(ordering, "title ASC, id ASC")
	if err := selectRows(ctx, repo.db.getExec(ctx), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying books")
	}
	return unboilBooks(rows), nil
}

func (repo *bookRepository) GetBook(ctx context.Context, id string) (book.Book, error) {
	var row bookRow
	if !core.IsValidID(id) {
		return book.Book{}, book.ErrNotFound
	}
	if err := getRow(ctx, repo.db.getExec(ctx), &row, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id); err != nil {
		return book.Book{}, trapNoRowsErr(err, book.ErrNotFound, "finding book")
	}
	return row.unboil(), nil
}

func (repo *bookRepository) GetBookByISBN(ctx context.Context, isbn string) (book.Book, error) {
	var row bookRow
	if err := getRow(ctx, repo.db.getExec(ctx), &row, `SELECT `+bookColumns+` FROM books WHERE isbn = ?`, isbn); err != nil {
		return book.Book{}, trapNoRowsErr(err, book.ErrNotFound, "finding book by isbn")
	}
	return row.unboil(), nil
}

func (repo *bookRepository) GetBooksByID(ctx context.Context, bookIDs []string) ([]book.Book, error) {
	var rows []bookRow
	q := `SELECT ` + bookColumns + ` FROM books WHERE id = ANY(?) ORDER BY title, id`
	if err := selectRows(ctx, repo.db.getExec(ctx), &rows, q, ids(bookIDs)); err != nil {
		return nil, errors.Wrap(err, "querying books by id")
	}
	return unboilBooks(rows), nil
}

func (repo *bookRepository) UpdateBook(ctx context.Context, b book.Book) (book.Book, error) {
	res, err := sqlxNamedExec(ctx, repo.db.getExec(ctx), `UPDATE books SET
		title = :title, description = :description, isbn = :isbn, edition = :edition, language = :language,
		grade = :grade, price = :price, number_of_pages = :number_of_pages, published_date = :published_date,
		publisher_id = :publisher_id, category_ids = :category_ids, tag_ids = :tag_ids, image = :image,
		is_published = :is_published, updated_at = :updated_at
		WHERE id = :id`, boilBook(b))
	if err = checkAffected(res, err, book.ErrNotFound, "updating book"); err != nil {
		return book.Book{}, err
	}
	return b, nil
}

func (repo *bookRepository) DeleteBook(ctx context.Context, id string) error {
	res, err := execQuery(ctx, repo.db.getExec(ctx), `DELETE FROM books WHERE id = ?`, id)
	return checkAffected(res, err, book.ErrNotFound, "deleting book")
}

// Categories & tags

func (row categoryRow) unboil() book.Category {
	return book.Category{ID: row.ID, Name: row.Name, ParentID: row.ParentID.String}
}

func (repo *bookRepository) CreateCategory(ctx context.Context, c book.Category) (book.Category, error) {
	_, err := execQuery(ctx, repo.db.getExec(ctx),
		`INSERT INTO categories (id, name, parent_id) VALUES (?, ?, ?)`, c.ID, c.Name, nullID(c.ParentID))
	return c, errors.Wrap(err, "inserting category")
}

func (repo *bookRepository) QueryCategories(ctx context.Context, search string) ([]book.Category, error) {
	var w where
	w.search(search, "name")
	var rows []categoryRow
	if err := selectRows(ctx, repo.db.getExec(ctx), &rows, `SELECT id, name, parent_id FROM categories`+w.String()+` ORDER BY name`, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying categories")
	}
	cats := make([]book.Category, 0, len(rows))
	for _, row := range rows {
		cats = append(cats, row.unboil())
	}
	return cats, nil
}

func (repo *bookRepository) GetCategory(ctx context.Context, id string) (book.Category, error) {
	var row categoryRow
	if !core.IsValidID(id) {
		return book.Category{}, book.ErrCategoryNotFound
	}
	if err := getRow(ctx, repo.db.getExec(ctx), &row, `SELECT id, name, parent_id FROM categories WHERE id = ?`, id); err != nil {
		return book.Category{}, trapNoRowsErr(err, book.ErrCategoryNotFound, "finding category")
	}
	return row.unboil(), nil
}

func (repo *bookRepository) GetCategoryByName(ctx context.Context, name string) (book.Category, error) {
	var row categoryRow
	q := `SELECT id, name, parent_id FROM categories WHERE lower(name) = lower(?) LIMIT 1`
	if err := getRow(ctx, repo.db.getExec(ctx), &row, q, name); err != nil {
		return book.Category{}, trapNoRowsErr(err, book.ErrCategoryNotFound, "finding category by name")
	}
	return row.unboil(), nil
}

func (repo *bookRepository) CreateTag(ctx context.Context, t book.Tag) (book.Tag, error) {
	_, err := execQuery(ctx, repo.db.getExec(ctx), `INSERT INTO tags (id, name) VALUES (?, ?)`, t.ID, t.Name)
	return t, errors.Wrap(err, "inserting tag")
}

func (repo *bookRepository) QueryTags(ctx context.Context, search string) ([]book.Tag, error) {
	var w where
	w.search(search, "name")
	tags := make([]book.Tag, 0)
	err := selectRows(ctx, repo.db.getExec(ctx), &tags, `SELECT id, name FROM tags`+w.String()+` ORDER BY name`, w.args...)
	return tags, errors.Wrap(err, "querying tags")
}

func (repo *bookRepository) GetTag(ctx context.Context, id string) (book.Tag, error) {
	var t book.Tag
	if !core.IsValidID(id) {
		return t, book.ErrTagNotFound
	}
	if err := getRow(ctx, repo.db.getExec(ctx), &t, `SELECT id, name FROM tags WHERE id = ?`, id); err != nil {
		return t, trapNoRowsErr(err, book.ErrTagNotFound, "finding tag")
	}
	return t, nil
}
