package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/kitab-bazar/server/core/user"
	exportsvc "github.com/kitab-bazar/server/services/export"
)

func (cli *commandLine) importLocations(r io.Reader) error {
	res, err := cli.svc.Locations.Import(cli.ctx(), r)
	if err != nil {
		return errors.Wrap(err, "importing locations")
	}
	fmt.Fprintf(cli.out, "created %d provinces, %d districts, %d municipalities\n", res.Provinces, res.Districts, res.Municipalities)
	cli.printErrors(res.Errors)
	return nil
}

func (cli *commandLine) importBooks(r io.Reader, asEmail string) error {
	actor, err := cli.svc.Users.GetByEmail(cli.ctx(), asEmail)
	if err != nil {
		return errors.Wrapf(err, "finding user %q", asEmail)
	}
	if !actor.HasPerm(user.PermManageCatalog) {
		return errors.Errorf("%s cannot manage the catalog", actor.Email)
	}
	res, err := cli.svc.Books.Import(cli.ctx(), actor, r)
	if err != nil {
		return errors.Wrap(err, "importing books")
	}
	fmt.Fprintf(cli.out, "created %d books, updated %d books\n", res.Created, res.Updated)
	cli.printErrors(res.Errors)
	return nil
}

func (cli *commandLine) printErrors(errs []string) {
	if len(errs) > 0 {
		fmt.Fprintf(cli.out, "%d rows skipped:\n  %s\n", len(errs), strings.Join(errs, "\n  "))
	}
}

func (cli *commandLine) generatePackages(windowID string) error {
	pkgs, err := cli.svc.Logistics.Generate(cli.ctx(), windowID)
	if err != nil {
		return errors.Wrap(err, "generating packages")
	}
	fmt.Fprintf(cli.out, "generated %d packages\n", len(pkgs))
	for _, p := range pkgs {
		fmt.Fprintf(cli.out, "  %s %s: %d books\n", p.Code, p.OwnerName, p.TotalQuantity)
	}
	return nil
}

func (cli *commandLine) deletePackages(windowID string) error {
	n, err := cli.svc.Logistics.Delete(cli.ctx(), windowID)
	if err != nil {
		return errors.Wrap(err, "deleting packages")
	}
	fmt.Fprintf(cli.out, "deleted %d packages\n", n)
	return nil
}

func (cli *commandLine) exportPackages(windowID, path string, bills bool) (err error) {
	wb, err := exportsvc.NewWorkbook()
	if err != nil {
		return errors.Wrap(err, "creating workbook")
	}
	defer wb.Close()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cErr := f.Close(); err == nil {
			err = cErr
		}
	}()

	export := cli.svc.Logistics.Export
	if bills {
		export = cli.svc.Logistics.ExportBills
	}
	if err = export(cli.ctx(), windowID, wb, f); err != nil {
		return errors.Wrap(err, "exporting packages")
	}
	fmt.Fprintf(cli.out, "exported to %s\n", path)
	return nil
}
