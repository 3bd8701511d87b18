package workbook

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mkondo/contractviz/internal/config"
)

// ErrUnreadableWorkbook indicates the input bytes are not a valid
// spreadsheet container.
var ErrUnreadableWorkbook = errors.New("unreadable workbook")

// dateLayout is the 8-digit numeric date format used by the utility
// exports, e.g. "20230115".
const dateLayout = "20060102"

// Workbook is one parsed spreadsheet: one Sheet per worksheet, in
// workbook order.
type Workbook struct {
	Sheets []Sheet
}

// Sheet is the raw table extracted from one worksheet. DateColumn is -1
// when the configured date column is missing; SlotColumns lists the
// indices of time-slot columns in header order. Rows whose date fails to
// parse are retained with a nil Date so the normalizer can drop them.
type Sheet struct {
	Name        string
	Columns     []string
	DateColumn  int
	SlotColumns []int
	Rows        []Row
}

// Row is one raw data row. Cells holds every cell as read, aligned with
// Columns; Date is the parsed value of the date cell, nil when invalid.
type Row struct {
	Date  *time.Time
	Cells []string
}

// Load parses raw bytes as a multi-sheet workbook, applying the given
// schema-detection policy to each sheet's header row.
func Load(data []byte, policy config.Schema) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	defer f.Close()

	wb := &Workbook{}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q: %w", name, err)
		}
		wb.Sheets = append(wb.Sheets, buildSheet(name, rows, policy))
	}

	return wb, nil
}

// buildSheet classifies the header row and parses date cells. A sheet
// with no rows at all yields an empty Sheet with DateColumn -1.
func buildSheet(name string, rows [][]string, policy config.Schema) Sheet {
	sheet := Sheet{Name: name, DateColumn: -1}
	if len(rows) == 0 {
		return sheet
	}

	sheet.Columns = rows[0]
	for i, col := range sheet.Columns {
		header := strings.TrimSpace(col)
		if header == policy.DateColumn {
			if sheet.DateColumn < 0 {
				sheet.DateColumn = i
			}
			continue
		}
		if strings.Contains(header, policy.SlotPattern) {
			sheet.SlotColumns = append(sheet.SlotColumns, i)
		}
	}

	for _, cells := range rows[1:] {
		row := Row{Cells: cells}
		if sheet.DateColumn >= 0 && sheet.DateColumn < len(cells) {
			if d, err := time.Parse(dateLayout, strings.TrimSpace(cells[sheet.DateColumn])); err == nil {
				row.Date = &d
			}
		}
		sheet.Rows = append(sheet.Rows, row)
	}

	return sheet
}

// SlotName returns the trimmed header of a slot column.
func (s *Sheet) SlotName(col int) string {
	return strings.TrimSpace(s.Columns[col])
}
