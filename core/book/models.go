package book

import (
	"time"

	"github.com/kitab-bazar/server/core"
)

// Languages
const (
	LanguageNepali  = "nepali"
	LanguageEnglish = "english"
	LanguageOther   = "other"
)

var Languages = []string{LanguageNepali, LanguageEnglish, LanguageOther}

type Book struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	ISBN          string    `json:"isbn"`
	Edition       string    `json:"edition"`
	Language      string    `json:"language"`
	Grade         string    `json:"grade"`
	Price         int       `json:"price"`
	NumberOfPages int       `json:"number_of_pages"`
	PublishedDate time.Time `json:"published_date"`
	PublisherID   string    `json:"publisher_id"`
	CategoryIDs   []string  `json:"category_ids"`
	TagIDs        []string  `json:"tag_ids"`
	Image         string    `json:"image"`
	IsPublished   bool      `json:"is_published"`
	CreatedByID   string    `json:"created_by_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
}

type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewBook contains information needed to create a new Book.
// PublisherID is forced to the publisher's own id when created by a publisher.
type NewBook struct {
	Title         string    `json:"title" validate:"required,notblank,max=255"`
	Description   string    `json:"description"`
	ISBN          string    `json:"isbn" validate:"required,notblank,max=20"`
	Edition       string    `json:"edition" validate:"omitempty,max=50"`
	Language      string    `json:"language" validate:"required,oneof=nepali english other"`
	Grade         string    `json:"grade" validate:"omitempty,max=20"`
	Price         int       `json:"price" validate:"gte=0"`
	NumberOfPages int       `json:"number_of_pages" validate:"gte=0"`
	PublishedDate time.Time `json:"published_date"`
	PublisherID   string    `json:"publisher_id" validate:"required,uuid"`
	CategoryIDs   []string  `json:"category_ids" validate:"dive,uuid"`
	TagIDs        []string  `json:"tag_ids" validate:"dive,uuid"`
	Image         string    `json:"image" validate:"omitempty,max=500"`
	IsPublished   bool      `json:"is_published"`
}

func (nb *NewBook) Clean() {
	nb.Title = core.CleanString(nb.Title)
	nb.Description = core.CleanString(nb.Description)
	nb.ISBN = cleanISBN(nb.ISBN)
	nb.Edition = core.CleanString(nb.Edition)
	nb.Language = core.CleanString(nb.Language, true /* lower */)
	nb.Grade = core.CleanString(nb.Grade)
	nb.Image = core.CleanString(nb.Image)
}

// UpdateBook defines what information may be provided to modify an existing Book.
type UpdateBook struct {
	Title         *string    `json:"title" validate:"omitempty,notblank,max=255"`
	Description   *string    `json:"description"`
	ISBN          *string    `json:"isbn" validate:"omitempty,notblank,max=20"`
	Edition       *string    `json:"edition" validate:"omitempty,max=50"`
	Language      *string    `json:"language" validate:"omitempty,oneof=nepali english other"`
	Grade         *string    `json:"grade" validate:"omitempty,max=20"`
	Price         *int       `json:"price" validate:"omitempty,gte=0"`
	NumberOfPages *int       `json:"number_of_pages" validate:"omitempty,gte=0"`
	PublishedDate *time.Time `json:"published_date"`
	CategoryIDs   *[]string  `json:"category_ids" validate:"omitempty,dive,uuid"`
	TagIDs        *[]string  `json:"tag_ids" validate:"omitempty,dive,uuid"`
	Image         *string    `json:"image" validate:"omitempty,max=500"`
	IsPublished   *bool      `json:"is_published"`
}

func (ub UpdateBook) Apply(b *Book) {
	if ub.Title != nil {
		b.Title = core.CleanString(*ub.Title)
	}
	if ub.Description != nil {
		b.Description = core.CleanString(*ub.Description)
	}
	if ub.ISBN != nil {
		b.ISBN = cleanISBN(*ub.ISBN)
	}
	if ub.Edition != nil {
		b.Edition = core.CleanString(*ub.Edition)
	}
	if ub.Language != nil {
		b.Language = core.CleanString(*ub.Language, true /* lower */)
	}
	if ub.Grade != nil {
		b.Grade = core.CleanString(*ub.Grade)
	}
	if ub.Price != nil {
		b.Price = *ub.Price
	}
	if ub.NumberOfPages != nil {
		b.NumberOfPages = *ub.NumberOfPages
	}
	if ub.PublishedDate != nil {
		b.PublishedDate = ub.PublishedDate.UTC()
	}
	if ub.CategoryIDs != nil {
		b.CategoryIDs = *ub.CategoryIDs
	}
	if ub.TagIDs != nil {
		b.TagIDs = *ub.TagIDs
	}
	if ub.Image != nil {
		b.Image = core.CleanString(*ub.Image)
	}
	if ub.IsPublished != nil {
		b.IsPublished = *ub.IsPublished
	}
}

type QueryFilter struct {
	Search      string
	PublisherID string
	CategoryID  string
	TagID       string
	Grade       string
	Language    string
	PriceMin    *int
	PriceMax    *int
	IsPublished *bool

	// visibility of unpublished books
	AllUnpublished bool   // admins
	UnpublishedOf  string // a publisher sees its own unpublished books
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Grade = core.CleanString(qf.Grade)
	qf.Language = core.CleanString(qf.Language, true /* lower */)
}

// Match reports whether b satisfies the filter (used by in-memory storage).
func (qf *QueryFilter) Match(b Book) bool {
	if qf == nil {
		return b.IsPublished
	}
	if !b.IsPublished && !qf.AllUnpublished && (qf.UnpublishedOf == "" || b.PublisherID != qf.UnpublishedOf) {
		return false
	}
	if qf.Search != "" && !core.ContainsFold(qf.Search, b.Title, b.ISBN, b.Description) {
		return false
	}
	if qf.PublisherID != "" && b.PublisherID != qf.PublisherID {
		return false
	}
	if qf.CategoryID != "" && !core.ContainsString(b.CategoryIDs, qf.CategoryID) {
		return false
	}
	if qf.TagID != "" && !core.ContainsString(b.TagIDs, qf.TagID) {
		return false
	}
	if qf.Grade != "" && b.Grade != qf.Grade {
		return false
	}
	if qf.Language != "" && b.Language != qf.Language {
		return false
	}
	if qf.PriceMin != nil && b.Price < *qf.PriceMin {
		return false
	}
	if qf.PriceMax != nil && b.Price > *qf.PriceMax {
		return false
	}
	if qf.IsPublished != nil && b.IsPublished != *qf.IsPublished {
		return false
	}
	return true
}

func cleanISBN(isbn string) string {
	isbn = core.CleanString(isbn)
	out := make([]rune, 0, len(isbn))
	for _, r := range isbn {
		if r != '-' && r != ' ' {
			out = append(out, r)
		}
	}
	return string(out)
}
