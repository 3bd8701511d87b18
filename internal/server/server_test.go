package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/mkondo/contractviz/internal/config"
	"github.com/mkondo/contractviz/internal/ingest"
	"github.com/mkondo/contractviz/internal/store"
	"github.com/mkondo/contractviz/pkg/models"
)

// setupTestController creates a controller over a fresh temp store.
func setupTestController(t *testing.T) *Controller {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	logger, _ := zap.NewDevelopment()
	policy := config.Schema{DateColumn: "年月日", SlotPattern: ":"}
	return NewController(s, ingest.New(s, policy), logger)
}

// fixtureXLSX builds a one-sheet workbook with two half-hour slots.
func fixtureXLSX(t *testing.T) []byte {
	t.Helper()

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", "A-1")
	for cell, v := range map[string]any{
		"A1": "年月日", "B1": "00:00:00", "C1": "00:30:00",
		"A2": "20230115", "B2": 1.5, "C2": 2.0,
	} {
		require.NoError(t, f.SetCellValue("A-1", cell, v))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func doRequest(c *Controller, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	c.NewRouter().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	c := setupTestController(t)

	rec := doRequest(c, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleContractsEmpty(t *testing.T) {
	c := setupTestController(t)

	rec := doRequest(c, http.MethodGet, "/contracts", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestIngestThenQuery(t *testing.T) {
	c := setupTestController(t)

	rec := doRequest(c, http.MethodPost, "/ingest?name=export.xlsx", fixtureXLSX(t))
	require.Equal(t, http.StatusOK, rec.Code)

	var res ingest.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, ingest.StatusIngested, res.Status)
	assert.Equal(t, 2, res.Readings)

	// Second upload of the same bytes is reported skipped, not an error.
	rec = doRequest(c, http.MethodPost, "/ingest?name=again.xlsx", fixtureXLSX(t))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, ingest.StatusSkipped, res.Status)

	rec = doRequest(c, http.MethodGet, "/contracts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var contracts []models.Contract
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &contracts))
	require.Len(t, contracts, 1)
	assert.Equal(t, "A-1", contracts[0].Name)

	key := contracts[0].ID

	rec = doRequest(c, http.MethodGet, fmt.Sprintf("/contracts/%d/dates", key), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dates []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dates))
	assert.Equal(t, []string{"2023-01-15"}, dates)

	rec = doRequest(c, http.MethodGet, fmt.Sprintf("/contracts/%d/series?date=2023-01-15", key), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var series []models.SeriesPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &series))
	require.Len(t, series, 2)
	assert.Equal(t, models.SeriesPoint{Slot: "00:00:00", KWh: 1.5}, series[0])
	assert.Equal(t, models.SeriesPoint{Slot: "00:30:00", KWh: 2.0}, series[1])

	// Empty day for a known contract is 200 with [].
	rec = doRequest(c, http.MethodGet, fmt.Sprintf("/contracts/%d/series?date=1999-01-01", key), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHandleSeriesRequiresDate(t *testing.T) {
	c := setupTestController(t)

	rec := doRequest(c, http.MethodPost, "/ingest", fixtureXLSX(t))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(c, http.MethodGet, "/contracts/1/series", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownContractIs404(t *testing.T) {
	c := setupTestController(t)

	rec := doRequest(c, http.MethodGet, "/contracts/42/dates", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(c, http.MethodGet, "/contracts/42/series?date=2023-01-15", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIngestRejectsGarbage(t *testing.T) {
	c := setupTestController(t)

	rec := doRequest(c, http.MethodPost, "/ingest?name=bad.bin", []byte("not a workbook"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Nothing committed.
	rec = doRequest(c, http.MethodGet, "/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sum models.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, int64(0), sum.SourceFiles)
}

func TestHandleSummary(t *testing.T) {
	c := setupTestController(t)

	rec := doRequest(c, http.MethodPost, "/ingest?name=export.xlsx", fixtureXLSX(t))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(c, http.MethodGet, "/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var sum models.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, int64(1), sum.SourceFiles)
	assert.Equal(t, int64(1), sum.Contracts)
	assert.Equal(t, int64(2), sum.Readings)
}

func TestHandleExport(t *testing.T) {
	c := setupTestController(t)

	rec := doRequest(c, http.MethodPost, "/ingest?name=export.xlsx", fixtureXLSX(t))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(c, http.MethodGet, "/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.Bytes()
	require.Greater(t, len(body), 16)
	assert.Equal(t, "SQLite format 3\x00", string(body[:16]))
}
