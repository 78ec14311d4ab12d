// Package exportsvc renders logistics exports as xlsx workbooks.
package exportsvc

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/kitab-bazar/server/core/logistics"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	colWidth = 18
)

// Workbook is an xlsx file built sheet by sheet.
type Workbook struct {
	file        *excelize.File
	headerStyle int
	sheets      int
}

var _ logistics.Workbook = (*Workbook)(nil)

func NewWorkbook() (*Workbook, error) {
	f := excelize.NewFile()
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "creating header style")
	}
	return &Workbook{file: f, headerStyle: style}, nil
}

// AddSheet appends a sheet holding header on its first row followed by rows.
func (wb *Workbook) AddSheet(name string, header []string, rows [][]interface{}) error {
	idx, err := wb.file.NewSheet(name)
	if err != nil {
		return err
	}
	if wb.sheets == 0 {
		wb.file.SetActiveSheet(idx)
	}
	wb.sheets++

	if len(header) > 0 {
		cells := make([]interface{}, len(header))
		for i, h := range header {
			cells[i] = h
		}
		if err = wb.file.SetSheetRow(name, "A1", &cells); err != nil {
			return err
		}
		if err = wb.file.SetRowStyle(name, 1, 1, wb.headerStyle); err != nil {
			return err
		}
		lastCol, err := excelize.ColumnNumberToName(len(header))
		if err != nil {
			return err
		}
		if err = wb.file.SetColWidth(name, "A", lastCol, colWidth); err != nil {
			return err
		}
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err = wb.file.SetSheetRow(name, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// Write saves the workbook to w. The default empty sheet is dropped when other sheets exist.
func (wb *Workbook) Write(w io.Writer) error {
	if wb.sheets > 0 {
		if idx, err := wb.file.GetSheetIndex(logistics.DefaultSheet); err == nil && idx >= 0 {
			if err = wb.file.DeleteSheet(logistics.DefaultSheet); err != nil {
				return err
			}
		}
	}
	return wb.file.Write(w)
}

func (wb *Workbook) Close() error {
	return wb.file.Close()
}
