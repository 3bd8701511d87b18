package normalize

import (
	"strconv"
	"strings"

	"github.com/mkondo/contractviz/internal/workbook"
)

// Row is one long-format reading produced by melting a wide sheet.
type Row struct {
	Contract string
	Date     string // ISO 8601, "2006-01-02"
	Slot     string // "HH:MM:SS" boundary
	KWh      float64
}

// Melt reshapes a wide sheet (one row per date, one column per time
// slot) into long-format rows for the given contract. Rows without a
// valid date are dropped. A sheet with no date column or no slot
// columns yields nil: there is nothing to ingest, which is not an
// error. Duplicate (date, slot) pairs are passed through as-is; the
// store's upsert resolves them last-write-wins.
func Melt(sheet workbook.Sheet, contract string) []Row {
	if sheet.DateColumn < 0 || len(sheet.SlotColumns) == 0 {
		return nil
	}

	var out []Row
	for _, raw := range sheet.Rows {
		if raw.Date == nil {
			continue
		}
		date := raw.Date.Format("2006-01-02")
		for _, col := range sheet.SlotColumns {
			var cell string
			if col < len(raw.Cells) {
				cell = raw.Cells[col]
			}
			out = append(out, Row{
				Contract: contract,
				Date:     date,
				Slot:     sheet.SlotName(col),
				KWh:      coerce(cell),
			})
		}
	}

	return out
}

// coerce parses a cell as a float, substituting 0.0 for anything
// non-numeric (blank cells, annotations, stray text).
func coerce(cell string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return 0
	}
	return v
}
