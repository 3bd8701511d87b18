package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mkondo/contractviz/internal/ingest"
	"github.com/mkondo/contractviz/internal/store"
	"github.com/mkondo/contractviz/pkg/models"
)

// maxUploadBytes caps ingest request bodies.
const maxUploadBytes = 64 << 20

// Controller exposes the ingest-and-query core over HTTP for the
// presentation layer. All query endpoints are read-only and reflect
// committed ingests only.
type Controller struct {
	Store    *store.Store
	Ingester *ingest.Ingester
	Logger   *zap.Logger
}

// NewController returns a new controller.
func NewController(s *store.Store, ing *ingest.Ingester, logger *zap.Logger) *Controller {
	return &Controller{Store: s, Ingester: ing, Logger: logger}
}

// NewRouter returns a new router with all the routes defined in this file.
func (c *Controller) NewRouter() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", c.HandleHealth).Methods("GET")
	r.HandleFunc("/contracts", c.HandleContracts).Methods("GET")
	r.HandleFunc("/contracts/{id:[0-9]+}/dates", c.HandleDates).Methods("GET")
	r.HandleFunc("/contracts/{id:[0-9]+}/series", c.HandleSeries).Methods("GET")
	r.HandleFunc("/summary", c.HandleSummary).Methods("GET")
	r.HandleFunc("/export", c.HandleExport).Methods("GET")
	r.HandleFunc("/ingest", c.HandleIngest).Methods("POST")

	return r
}

// Serve runs the HTTP server until it fails or the listener closes.
func (c *Controller) Serve(addr string) error {
	c.Logger.Info("starting server", zap.String("addr", addr))
	srv := &http.Server{Addr: addr, Handler: c.NewRouter()}
	return srv.ListenAndServe()
}

func (c *Controller) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		c.Logger.Error("encoding response", zap.Error(err))
	}
}

func (c *Controller) writeError(w http.ResponseWriter, status int, err error) {
	c.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// contractID resolves the {id} path variable to a known contract,
// writing a 404 when it does not exist.
func (c *Controller) contractID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		c.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid contract key"))
		return 0, false
	}
	if _, err := c.Store.GetContract(id); err != nil {
		if errors.Is(err, store.ErrUnknownContract) {
			c.writeError(w, http.StatusNotFound, err)
		} else {
			c.Logger.Error("looking up contract", zap.Error(err))
			c.writeError(w, http.StatusInternalServerError, err)
		}
		return 0, false
	}
	return id, true
}

func (c *Controller) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := c.Store.Summary(); err != nil {
		c.writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "errored", "error": "database error"})
		return
	}
	c.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (c *Controller) HandleContracts(w http.ResponseWriter, r *http.Request) {
	contracts, err := c.Store.ListContracts()
	if err != nil {
		c.Logger.Error("listing contracts", zap.Error(err))
		c.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if contracts == nil {
		contracts = []models.Contract{}
	}
	c.writeJSON(w, http.StatusOK, contracts)
}

func (c *Controller) HandleDates(w http.ResponseWriter, r *http.Request) {
	id, ok := c.contractID(w, r)
	if !ok {
		return
	}

	dates, err := c.Store.ListDates(id)
	if err != nil {
		c.Logger.Error("listing dates", zap.Error(err))
		c.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if dates == nil {
		dates = []string{}
	}
	c.writeJSON(w, http.StatusOK, dates)
}

func (c *Controller) HandleSeries(w http.ResponseWriter, r *http.Request) {
	id, ok := c.contractID(w, r)
	if !ok {
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		c.writeError(w, http.StatusBadRequest, fmt.Errorf("date query parameter is required"))
		return
	}

	series, err := c.Store.GetSeries(id, date)
	if err != nil {
		c.Logger.Error("querying series", zap.Error(err))
		c.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if series == nil {
		series = []models.SeriesPoint{}
	}
	c.writeJSON(w, http.StatusOK, series)
}

func (c *Controller) HandleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := c.Store.Summary()
	if err != nil {
		c.Logger.Error("querying summary", zap.Error(err))
		c.writeError(w, http.StatusInternalServerError, err)
		return
	}
	c.writeJSON(w, http.StatusOK, sum)
}

func (c *Controller) HandleExport(w http.ResponseWriter, r *http.Request) {
	data, err := c.Store.ExportBytes()
	if err != nil {
		c.Logger.Error("exporting store", zap.Error(err))
		c.writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="contractviz.db"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		c.Logger.Error("writing export", zap.Error(err))
	}
}

func (c *Controller) HandleIngest(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload.xlsx"
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		c.writeError(w, http.StatusBadRequest, fmt.Errorf("reading upload: %w", err))
		return
	}

	res, err := c.Ingester.Ingest(data, name)
	if err != nil {
		c.Logger.Warn("ingest failed", zap.String("name", name), zap.Error(err))
		c.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	c.Logger.Info("ingest",
		zap.String("name", name),
		zap.String("status", string(res.Status)),
		zap.Int("readings", res.Readings))
	c.writeJSON(w, http.StatusOK, res)
}
