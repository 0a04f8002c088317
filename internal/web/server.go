// Package web exposes the orchestration engine over HTTP: job submission,
// job polling, and the vendor inventory. The API never blocks on browser
// work; a submitted job runs on its own goroutine and clients poll.
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/itc-ops/invoice-orchestrator/internal/history"
	"github.com/itc-ops/invoice-orchestrator/internal/orchestrator"
	"github.com/itc-ops/invoice-orchestrator/models"
	"github.com/itc-ops/invoice-orchestrator/pkg/jobs"
)

// Server handles the HTTP API.
type Server struct {
	orch    *orchestrator.Orchestrator
	history *history.Store // optional
	log     *logrus.Entry
}

// New builds a server around an orchestrator. hist may be nil.
func New(orch *orchestrator.Orchestrator, hist *history.Store) *Server {
	return &Server{
		orch:    orch,
		history: hist,
		log:     logrus.WithField("component", "web"),
	}
}

// Router assembles the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/jobs", s.createJob)
		r.Get("/jobs/{jobID}", s.getJob)
		r.Get("/vendors", s.listVendors)
		r.Get("/history", s.listHistory)
	})
	return r
}

// jobRequest is the POST /api/jobs body. Mode "all" runs every configured
// unit; mode "single" runs one (vendor_code, account_index) pair.
type jobRequest struct {
	Mode         string `json:"mode"`
	VendorCode   string `json:"vendor_code,omitempty"`
	AccountIndex int    `json:"account_index,omitempty"`
	Recipient    string `json:"recipient,omitempty"`
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Recipient != "" && !strings.Contains(req.Recipient, "@") {
		writeError(w, http.StatusBadRequest, "recipient is not an email address")
		return
	}

	var (
		mode  jobs.Mode
		units []models.DownloadUnit
	)
	switch req.Mode {
	case "all":
		mode = jobs.ModeAllUnits
		units = s.orch.AllUnits()
		if len(units) == 0 {
			writeError(w, http.StatusUnprocessableEntity, "no vendors configured")
			return
		}
	case "single":
		mode = jobs.ModeSingleUnit
		units = []models.DownloadUnit{{VendorCode: req.VendorCode, AccountIndex: req.AccountIndex}}
	default:
		writeError(w, http.StatusBadRequest, `mode must be "all" or "single"`)
		return
	}

	job, err := s.orch.StartBatch(mode, units, req.Recipient)
	if err != nil {
		if errors.Is(err, jobs.ErrJobAlreadyRunning) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.log.Infof("job %s accepted (%s, %d units)", job.ID, job.Mode, len(job.Units))
	go s.orch.Run(job)

	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	snap, ok := s.orch.Manager().Snapshot(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown job "+id)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// vendorView is one vendor entry in GET /api/vendors.
type vendorView struct {
	VendorCode string                   `json:"vendor_code"`
	Accounts   []models.AccountMetadata `json:"accounts"`
}

func (s *Server) listVendors(w http.ResponseWriter, r *http.Request) {
	reg := s.orch.Registry()
	views := make([]vendorView, 0)
	for _, code := range reg.Codes() {
		wf, ok := reg.Lookup(code)
		if !ok {
			continue
		}
		views = append(views, vendorView{VendorCode: code, Accounts: wf.Accounts()})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history store not enabled")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	entries, err := s.history.Recent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
