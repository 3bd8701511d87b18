package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkondo/contractviz/internal/workbook"
)

func date(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return &d
}

func TestMeltWideToLong(t *testing.T) {
	sheet := workbook.Sheet{
		Name:        "A-1",
		Columns:     []string{"年月日", "00:00:00", "00:30:00"},
		DateColumn:  0,
		SlotColumns: []int{1, 2},
		Rows: []workbook.Row{
			{Date: date(t, "2023-01-15"), Cells: []string{"20230115", "1.5", "2.0"}},
		},
	}

	rows := Melt(sheet, "A-1")
	require.Len(t, rows, 2)
	assert.Equal(t, Row{Contract: "A-1", Date: "2023-01-15", Slot: "00:00:00", KWh: 1.5}, rows[0])
	assert.Equal(t, Row{Contract: "A-1", Date: "2023-01-15", Slot: "00:30:00", KWh: 2.0}, rows[1])
}

func TestMeltDropsInvalidDates(t *testing.T) {
	sheet := workbook.Sheet{
		Columns:     []string{"年月日", "00:00:00"},
		DateColumn:  0,
		SlotColumns: []int{1},
		Rows: []workbook.Row{
			{Date: nil, Cells: []string{"garbage", "1.0"}},
			{Date: date(t, "2023-01-15"), Cells: []string{"20230115", "2.0"}},
		},
	}

	rows := Melt(sheet, "A-1")
	require.Len(t, rows, 1)
	assert.Equal(t, "2023-01-15", rows[0].Date)
}

func TestMeltCoercesNonNumericToZero(t *testing.T) {
	sheet := workbook.Sheet{
		Columns:     []string{"年月日", "00:00:00", "00:30:00"},
		DateColumn:  0,
		SlotColumns: []int{1, 2},
		Rows: []workbook.Row{
			{Date: date(t, "2023-01-15"), Cells: []string{"20230115", "n/a", "2.0"}},
		},
	}

	rows := Melt(sheet, "A-1")
	require.Len(t, rows, 2)
	assert.Equal(t, 0.0, rows[0].KWh)
	assert.Equal(t, 2.0, rows[1].KWh)
}

func TestMeltShortRowsReadAsZero(t *testing.T) {
	// Trailing empty cells are trimmed by the loader; missing slot
	// cells coerce to zero rather than shifting values.
	sheet := workbook.Sheet{
		Columns:     []string{"年月日", "00:00:00", "00:30:00"},
		DateColumn:  0,
		SlotColumns: []int{1, 2},
		Rows: []workbook.Row{
			{Date: date(t, "2023-01-15"), Cells: []string{"20230115", "1.0"}},
		},
	}

	rows := Melt(sheet, "A-1")
	require.Len(t, rows, 2)
	assert.Equal(t, 1.0, rows[0].KWh)
	assert.Equal(t, 0.0, rows[1].KWh)
}

func TestMeltNonIngestableSheets(t *testing.T) {
	tests := []struct {
		name  string
		sheet workbook.Sheet
	}{
		{
			name: "no date column",
			sheet: workbook.Sheet{
				Columns:     []string{"memo", "00:00:00"},
				DateColumn:  -1,
				SlotColumns: []int{1},
				Rows:        []workbook.Row{{Cells: []string{"x", "1.0"}}},
			},
		},
		{
			name: "no slot columns",
			sheet: workbook.Sheet{
				Columns:    []string{"年月日", "合計"},
				DateColumn: 0,
				Rows:       []workbook.Row{{Date: date(t, "2023-01-15"), Cells: []string{"20230115", "48.0"}}},
			},
		},
		{
			name:  "empty sheet",
			sheet: workbook.Sheet{DateColumn: -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, Melt(tt.sheet, "A-1"))
		})
	}
}
