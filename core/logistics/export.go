package logistics

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Export sheet names
const (
	SheetPublisherPackages   = "Publisher Packages"
	SheetSchoolPackages      = "School Packages"
	SheetInstitutionPackages = "Institution Packages"
	SheetCourierPackages     = "Courier Packages"

	// DefaultSheet is the empty sheet a new workbook starts with.
	DefaultSheet = "Sheet1"

	maxSheetName = 31
)

var (
	packageHeader = []string{"Code", "Owner", "Status", "Books", "Total Quantity", "Total Price", "Incentive Eligible", "Incentive", "Orders"}
	billHeader    = []string{"Title", "ISBN", "Price", "Quantity", "Total Price"}

	sheetNameReplacer = strings.NewReplacer(":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", "(", "]", ")")
)

func (svc *Service) windowPackages(ctx context.Context, windowID string) ([]Package, error) {
	if _, err := svc.orders.GetWindow(ctx, windowID); err != nil {
		return nil, err
	}
	pkgs, err := svc.repo.QueryPackages(ctx, QueryFilter{OrderWindowID: windowID})
	if err != nil {
		return nil, err
	}
	if len(pkgs) == 0 {
		return nil, ErrNotFound
	}
	return pkgs, nil
}

// Export writes the packages of a window to wb, one sheet per package kind, then saves wb to w.
func (svc *Service) Export(ctx context.Context, windowID string, wb Workbook, w io.Writer) error {
	pkgs, err := svc.windowPackages(ctx, windowID)
	if err != nil {
		return err
	}

	sheets := []struct{ kind, name string }{
		{KindPublisher, SheetPublisherPackages},
		{KindSchool, SheetSchoolPackages},
		{KindInstitution, SheetInstitutionPackages},
		{KindCourier, SheetCourierPackages},
	}
	for _, sheet := range sheets {
		var rows [][]interface{}
		for _, p := range pkgs {
			if p.Kind != sheet.kind {
				continue
			}
			rows = append(rows, []interface{}{
				p.Code, p.OwnerName, p.Status, len(p.Books), p.TotalQuantity, p.TotalPrice,
				yesNo(p.IsEligibleForIncentive), p.Incentive, len(p.OrderIDs),
			})
		}
		if err = wb.AddSheet(sheet.name, packageHeader, rows); err != nil {
			return errors.Wrapf(err, "adding sheet %q", sheet.name)
		}
	}
	return errors.Wrap(wb.Write(w), "writing workbook")
}

// ExportBills writes one bill sheet per school or institution package of a window.
func (svc *Service) ExportBills(ctx context.Context, windowID string, wb Workbook, w io.Writer) error {
	pkgs, err := svc.windowPackages(ctx, windowID)
	if err != nil {
		return err
	}

	used := usedSheetNames()
	count := 0
	for _, p := range pkgs {
		if p.Kind != KindSchool && p.Kind != KindInstitution {
			continue
		}
		rows := make([][]interface{}, 0, len(p.Books)+3)
		for _, b := range p.Books {
			rows = append(rows, []interface{}{b.Title, b.ISBN, b.Price, b.Quantity, b.TotalPrice})
		}
		rows = append(rows,
			[]interface{}{},
			[]interface{}{"Total", "", "", p.TotalQuantity, p.TotalPrice},
			[]interface{}{"Incentive", "", "", p.Incentive, ""},
		)
		name := sheetName(fmt.Sprintf("%s %s", p.OwnerName, p.Code), used)
		if err = wb.AddSheet(name, billHeader, rows); err != nil {
			return errors.Wrapf(err, "adding sheet %q", name)
		}
		count++
	}
	if count == 0 {
		return ErrNotFound
	}
	return errors.Wrap(wb.Write(w), "writing workbook")
}

func usedSheetNames() map[string]struct{} {
	return map[string]struct{}{strings.ToLower(DefaultSheet): {}}
}

// sheetName returns a valid, unused sheet name derived from s.
func sheetName(s string, used map[string]struct{}) string {
	base := strings.TrimSpace(sheetNameReplacer.Replace(s))
	if base == "" {
		base = "Sheet"
	}
	name := truncate(base, maxSheetName)
	for i := 2; ; i++ {
		if _, ok := used[strings.ToLower(name)]; !ok {
			break
		}
		suffix := fmt.Sprintf(" (%d)", i)
		name = truncate(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = struct{}{}
	return name
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return strings.TrimSpace(string(r[:n]))
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
