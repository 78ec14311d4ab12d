package echoapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kitab-bazar/server/apps/shared"
	"github.com/kitab-bazar/server/core/logistics"
	"github.com/kitab-bazar/server/core/user"
	exportsvc "github.com/kitab-bazar/server/services/export"
)

type exportFunc func(ctx context.Context, windowID string, wb logistics.Workbook, w io.Writer) error

type packageApi struct {
	svc *logistics.Service
}

func registerPackageAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *shared.Services) {
	api := packageApi{svc: svc.Logistics}

	pg := g.Group("/packages/:window", jwt, permMiddleware(user.PermManagePackages))
	pg.GET("/export", api.export)
	pg.GET("/bills", api.exportBills)
}

func (api *packageApi) export(ctx echo.Context) error {
	return api.sendWorkbook(ctx, "packages", api.svc.Export)
}

func (api *packageApi) exportBills(ctx echo.Context) error {
	return api.sendWorkbook(ctx, "bills", api.svc.ExportBills)
}

func (api *packageApi) sendWorkbook(ctx echo.Context, name string, export exportFunc) error {
	windowID := ctx.Param("window")

	wb, err := exportsvc.NewWorkbook()
	if err != nil {
		return errors.Wrap(err, "creating workbook")
	}
	defer wb.Close()

	var buf bytes.Buffer
	if err = export(ctx.Request().Context(), windowID, wb, &buf); err != nil {
		return errors.Wrapf(err, "exporting %s", name)
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name+"-"+windowID+".xlsx"))
	return ctx.Blob(http.StatusOK, exportsvc.ContentType, buf.Bytes())
}
