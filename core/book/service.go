package book

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/publisher"
	"github.com/kitab-bazar/server/core/user"
)

var (
	ErrNotFound         = errors.New("book not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrTagNotFound      = errors.New("tag not found")

	OrderingFields = map[string]string{
		"title":          "title",
		"price":          "price",
		"published_date": "published_date",
		"created_at":     "created_at",
	}
)

type (
	Repository interface {
		CreateBook(ctx context.Context, b Book) (Book, error)
		QueryBooks(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Book, error)
		GetBook(ctx context.Context, id string) (Book, error)
		GetBookByISBN(ctx context.Context, isbn string) (Book, error)
		GetBooksByID(ctx context.Context, ids []string) ([]Book, error)
		UpdateBook(ctx context.Context, b Book) (Book, error)
		DeleteBook(ctx context.Context, id string) error

		CreateCategory(ctx context.Context, c Category) (Category, error)
		QueryCategories(ctx context.Context, search string) ([]Category, error)
		GetCategory(ctx context.Context, id string) (Category, error)
		GetCategoryByName(ctx context.Context, name string) (Category, error)

		CreateTag(ctx context.Context, t Tag) (Tag, error)
		QueryTags(ctx context.Context, search string) ([]Tag, error)
		GetTag(ctx context.Context, id string) (Tag, error)
	}

	NewCategory struct {
		Name     string `json:"name" validate:"required,notblank,max=255"`
		ParentID string `json:"parent_id" validate:"omitempty,uuid"`
	}

	NewTag struct {
		Name string `json:"name" validate:"required,notblank,max=100"`
	}

	Service struct {
		repo       Repository
		tx         core.TxRunner
		publishers *publisher.Service
		validate   *validator.Validate
		logger     core.Logger
	}
)

func NewService(repo Repository, tx core.TxRunner, publishers *publisher.Service, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{repo: repo, tx: tx, publishers: publishers, validate: validate, logger: logger}
}

// canManage reports whether actor may modify b.
func canManage(actor user.User, b Book) bool {
	if actor.HasPerm(user.PermManageAllBooks) {
		return true
	}
	return actor.HasPerm(user.PermCreateBook) && actor.IsPublisher() && actor.PublisherID == b.PublisherID
}

// canView reports whether actor may see b.
func canView(actor user.User, b Book) bool {
	return b.IsPublished || canManage(actor, b)
}

func (svc *Service) checkISBN(ctx context.Context, isbn string, exclID string) error {
	b, err := svc.repo.GetBookByISBN(ctx, isbn)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil
		}
		return err
	}
	if b.ID != exclID {
		return core.NewFieldError("isbn", "a book with this isbn already exists")
	}
	return nil
}

func (svc *Service) checkRelations(ctx context.Context, categoryIDs, tagIDs []string) error {
	for _, id := range categoryIDs {
		if _, err := svc.repo.GetCategory(ctx, id); err != nil {
			if errors.Cause(err) == ErrCategoryNotFound {
				return core.NewFieldError("category_ids", "category does not exist")
			}
			return err
		}
	}
	for _, id := range tagIDs {
		if _, err := svc.repo.GetTag(ctx, id); err != nil {
			if errors.Cause(err) == ErrTagNotFound {
				return core.NewFieldError("tag_ids", "tag does not exist")
			}
			return err
		}
	}
	return nil
}

// Create adds a new book. Publishers may only create books of their own publisher.
func (svc *Service) Create(ctx context.Context, actor user.User, nb NewBook) (Book, error) {
	if !actor.HasAnyPerm(user.PermCreateBook, user.PermManageAllBooks) {
		return Book{}, core.ErrPermissionDenied
	}
	if !actor.HasPerm(user.PermManageAllBooks) {
		nb.PublisherID = actor.PublisherID
	}
	nb.Clean()
	if err := svc.validate.Struct(nb); err != nil {
		return Book{}, err
	}
	if _, err := svc.publishers.Get(ctx, nb.PublisherID); err != nil {
		if errors.Cause(err) == publisher.ErrNotFound {
			return Book{}, core.NewFieldError("publisher_id", "publisher does not exist")
		}
		return Book{}, err
	}
	if err := svc.checkISBN(ctx, nb.ISBN, ""); err != nil {
		return Book{}, err
	}
	if err := svc.checkRelations(ctx, nb.CategoryIDs, nb.TagIDs); err != nil {
		return Book{}, err
	}

	now := time.Now().UTC()
	return svc.repo.CreateBook(ctx, Book{
		ID:            core.NewID(),
		Title:         nb.Title,
		Description:   nb.Description,
		ISBN:          nb.ISBN,
		Edition:       nb.Edition,
		Language:      nb.Language,
		Grade:         nb.Grade,
		Price:         nb.Price,
		NumberOfPages: nb.NumberOfPages,
		PublishedDate: nb.PublishedDate.UTC(),
		PublisherID:   nb.PublisherID,
		CategoryIDs:   nb.CategoryIDs,
		TagIDs:        nb.TagIDs,
		Image:         nb.Image,
		IsPublished:   nb.IsPublished,
		CreatedByID:   actor.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

func (svc *Service) Update(ctx context.Context, actor user.User, id string, ub UpdateBook) (Book, error) {
	b, err := svc.getRaw(ctx, id)
	if err != nil {
		return Book{}, err
	}
	if !canManage(actor, b) {
		return Book{}, core.ErrPermissionDenied
	}
	if err = svc.validate.Struct(ub); err != nil {
		return Book{}, err
	}
	ub.Apply(&b)
	if err = svc.checkISBN(ctx, b.ISBN, b.ID); err != nil {
		return Book{}, err
	}
	if err = svc.checkRelations(ctx, b.CategoryIDs, b.TagIDs); err != nil {
		return Book{}, err
	}
	b.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateBook(ctx, b)
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	b, err := svc.getRaw(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(actor, b) {
		return core.ErrPermissionDenied
	}
	return svc.repo.DeleteBook(ctx, id)
}

func (svc *Service) getRaw(ctx context.Context, id string) (Book, error) {
	if !core.IsValidID(id) {
		return Book{}, ErrNotFound
	}
	return svc.repo.GetBook(ctx, id)
}

// Get returns the book if actor may see it; hidden books are reported as ErrNotFound.
func (svc *Service) Get(ctx context.Context, actor user.User, id string) (Book, error) {
	b, err := svc.getRaw(ctx, id)
	if err != nil {
		return Book{}, err
	}
	if !canView(actor, b) {
		return Book{}, ErrNotFound
	}
	return b, nil
}

// GetMany returns the books matching ids regardless of visibility.
func (svc *Service) GetMany(ctx context.Context, ids []string) ([]Book, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return svc.repo.GetBooksByID(ctx, ids)
}

// Query lists the books visible to actor.
func (svc *Service) Query(ctx context.Context, actor user.User, filter QueryFilter, ordering []core.DBOrdering) ([]Book, error) {
	filter.Clean()
	filter.AllUnpublished = actor.HasPerm(user.PermManageAllBooks)
	filter.UnpublishedOf = ""
	if actor.IsPublisher() && actor.HasPerm(user.PermCreateBook) {
		filter.UnpublishedOf = actor.PublisherID
	}
	return svc.repo.QueryBooks(ctx, &filter, ordering)
}

func (svc *Service) CreateCategory(ctx context.Context, nc NewCategory) (Category, error) {
	nc.Name = core.CleanString(nc.Name)
	if err := svc.validate.Struct(nc); err != nil {
		return Category{}, err
	}
	if nc.ParentID != "" {
		if _, err := svc.repo.GetCategory(ctx, nc.ParentID); err != nil {
			if errors.Cause(err) == ErrCategoryNotFound {
				return Category{}, core.NewFieldError("parent_id", "category does not exist")
			}
			return Category{}, err
		}
	}
	return svc.repo.CreateCategory(ctx, Category{ID: core.NewID(), Name: nc.Name, ParentID: nc.ParentID})
}

func (svc *Service) Categories(ctx context.Context, search string) ([]Category, error) {
	return svc.repo.QueryCategories(ctx, core.CleanString(search))
}

func (svc *Service) CreateTag(ctx context.Context, nt NewTag) (Tag, error) {
	nt.Name = core.CleanString(nt.Name)
	if err := svc.validate.Struct(nt); err != nil {
		return Tag{}, err
	}
	return svc.repo.CreateTag(ctx, Tag{ID: core.NewID(), Name: nt.Name})
}

func (svc *Service) Tags(ctx context.Context, search string) ([]Tag, error) {
	return svc.repo.QueryTags(ctx, core.CleanString(search))
}
