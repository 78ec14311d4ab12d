package book

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/publisher"
	"github.com/kitab-bazar/server/core/user"
)

// ImportColumns lists the columns read from a books CSV file.
var ImportColumns = []string{
	"title", "isbn", "price", "edition", "language", "grade",
	"number_of_pages", "published_date", "publisher", "category", "description",
}

var requiredImportColumns = []string{"title", "isbn", "price", "publisher"}

// ImportResult summarizes a books CSV import.
type ImportResult struct {
	Created int
	Updated int
	Errors  []string // "line N: reason"
}

// Import creates or updates books from a CSV file holding ImportColumns.
// Rows whose ISBN already exists update that book. A bad row is reported and skipped.
func (svc *Service) Import(ctx context.Context, actor user.User, r io.Reader) (ImportResult, error) {
	var res ImportResult
	if !actor.HasPerm(user.PermManageCatalog) {
		return res, core.ErrPermissionDenied
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return res, core.NewFieldError("file", "empty file")
		}
		return res, errors.Wrap(err, "reading csv header")
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(core.CleanString(name))] = i
	}
	for _, name := range requiredImportColumns {
		if _, ok := cols[name]; !ok {
			return res, core.NewFieldError("file", fmt.Sprintf("missing %q column", name))
		}
	}

	line := 1
	for {
		row, err := reader.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		get := func(name string) string {
			if i, ok := cols[name]; ok && i < len(row) {
				return core.CleanString(row[i])
			}
			return ""
		}

		created, err := svc.importRow(ctx, actor, get)
		switch {
		case err == nil && created:
			res.Created++
		case err == nil:
			res.Updated++
		case core.IsValidationError(err):
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: %s", line, describe(err)))
		default:
			return res, errors.Wrapf(err, "line %d", line)
		}
	}
	return res, nil
}

func (svc *Service) importRow(ctx context.Context, actor user.User, get func(string) string) (created bool, err error) {
	price, err := strconv.Atoi(get("price"))
	if err != nil {
		return false, core.NewFieldError("price", "invalid price")
	}
	pages := 0
	if v := get("number_of_pages"); v != "" {
		if pages, err = strconv.Atoi(v); err != nil {
			return false, core.NewFieldError("number_of_pages", "invalid number of pages")
		}
	}
	var published time.Time
	if v := get("published_date"); v != "" {
		if published, err = time.Parse("2006-01-02", v); err != nil {
			return false, core.NewFieldError("published_date", "invalid date, expected YYYY-MM-DD")
		}
	}
	language := strings.ToLower(get("language"))
	if language == "" {
		language = LanguageNepali
	}

	pub, err := svc.publishers.GetByName(ctx, get("publisher"))
	if err != nil {
		if errors.Cause(err) == publisher.ErrNotFound {
			return false, core.NewFieldError("publisher", fmt.Sprintf("unknown publisher %q", get("publisher")))
		}
		return false, err
	}

	var categoryIDs []string
	if name := get("category"); name != "" {
		cat, err := svc.repo.GetCategoryByName(ctx, name)
		if errors.Cause(err) == ErrCategoryNotFound {
			cat, err = svc.CreateCategory(ctx, NewCategory{Name: name})
		}
		if err != nil {
			return false, err
		}
		categoryIDs = []string{cat.ID}
	}

	nb := NewBook{
		Title:         get("title"),
		Description:   get("description"),
		ISBN:          get("isbn"),
		Edition:       get("edition"),
		Language:      language,
		Grade:         get("grade"),
		Price:         price,
		NumberOfPages: pages,
		PublishedDate: published,
		PublisherID:   pub.ID,
		CategoryIDs:   categoryIDs,
		IsPublished:   true,
	}

	existing, err := svc.repo.GetBookByISBN(ctx, cleanISBN(nb.ISBN))
	switch {
	case errors.Cause(err) == ErrNotFound:
		_, err = svc.Create(ctx, actor, nb)
		return true, err
	case err != nil:
		return false, err
	}

	nb.Clean()
	if err = svc.validate.Struct(nb); err != nil {
		return false, err
	}
	ub := UpdateBook{
		Title:         &nb.Title,
		Description:   &nb.Description,
		Edition:       &nb.Edition,
		Language:      &nb.Language,
		Grade:         &nb.Grade,
		Price:         &nb.Price,
		NumberOfPages: &nb.NumberOfPages,
		PublishedDate: &nb.PublishedDate,
	}
	if len(nb.CategoryIDs) > 0 {
		ub.CategoryIDs = &nb.CategoryIDs
	}
	_, err = svc.Update(ctx, actor, existing.ID, ub)
	return false, err
}

// describe renders a validation error as "field: message" pairs.
func describe(err error) string {
	if vErr, ok := errors.Cause(err).(*core.ValidationError); ok && len(vErr.Fields) > 0 {
		parts := make([]string, 0, len(vErr.Fields))
		for _, f := range vErr.Fields {
			parts = append(parts, f.Field+": "+f.Error)
		}
		return strings.Join(parts, ", ")
	}
	return err.Error()
}
