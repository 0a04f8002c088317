package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/itc-ops/invoice-orchestrator/internal/history"
	"github.com/itc-ops/invoice-orchestrator/internal/orchestrator"
	"github.com/itc-ops/invoice-orchestrator/internal/vendors"
	"github.com/itc-ops/invoice-orchestrator/models"
	"github.com/itc-ops/invoice-orchestrator/pkg/artifact"
	"github.com/itc-ops/invoice-orchestrator/pkg/jobs"
)

// stubWorkflow satisfies the vendor contract without any portal behind it.
type stubWorkflow struct {
	profile  models.VendorProfile
	accounts []models.AccountMetadata
}

func (s *stubWorkflow) Profile() models.VendorProfile      { return s.profile }
func (s *stubWorkflow) Accounts() []models.AccountMetadata { return s.accounts }
func (s *stubWorkflow) LoginURL() string                   { return "https://portal.example/login" }
func (s *stubWorkflow) Authenticate(vendors.Browser, models.AccountMetadata) error {
	return nil
}
func (s *stubWorkflow) LocateInvoice(vendors.Browser, models.AccountMetadata) error {
	return nil
}
func (s *stubWorkflow) RetrieveInvoice(vendors.Browser, models.AccountMetadata) (vendors.Retrieval, error) {
	return vendors.Retrieval{}, nil
}

func testServer(t *testing.T) (*Server, *jobs.Manager) {
	t.Helper()
	dir := t.TempDir()

	cfg := &models.Config{
		DownloadDir: filepath.Join(dir, "downloads"),
		LogsDir:     filepath.Join(dir, "logs"),
		Headless:    true,
	}
	store, err := artifact.NewStore(cfg.DownloadDir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	hist, err := history.Open(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("history.Open() error = %v", err)
	}
	t.Cleanup(func() { hist.Close() })

	reg := vendors.NewRegistry()
	if err := reg.Register(&stubWorkflow{
		profile: models.VendorProfile{VendorCode: "STUB01", MaxAccounts: 1},
		accounts: []models.AccountMetadata{
			{AccountIndex: 0, AccountSuffix: "0001", GLCode: "68050-TST-00-000"},
		},
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	manager := jobs.NewManager()
	orch := orchestrator.New(cfg, reg, manager, store, hist, nil)
	return New(orch, hist), manager
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateJobRejectsBadMode(t *testing.T) {
	srv, _ := testServer(t)
	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/jobs", `{"mode":"everything"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCreateJobRejectsBadRecipient(t *testing.T) {
	srv, _ := testServer(t)
	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/jobs",
		`{"mode":"single","vendor_code":"STUB01","recipient":"not-an-address"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCreateJobUnknownVendor(t *testing.T) {
	srv, _ := testServer(t)
	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/jobs",
		`{"mode":"single","vendor_code":"NOPE00","account_index":0}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestCreateJobConflictWhileRunning(t *testing.T) {
	srv, manager := testServer(t)

	units := []models.DownloadUnit{{VendorCode: "STUB01", AccountIndex: 0}}
	if _, err := manager.CreateJob(jobs.ModeSingleUnit, units, ""); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}

	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/jobs",
		`{"mode":"single","vendor_code":"STUB01","account_index":0}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestGetJobRoundtrip(t *testing.T) {
	srv, manager := testServer(t)

	units := []models.DownloadUnit{{VendorCode: "STUB01", AccountIndex: 0}}
	job, err := manager.CreateJob(jobs.ModeSingleUnit, units, "")
	if err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}

	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/jobs/"+job.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var got jobs.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding job: %v", err)
	}
	if got.ID != job.ID {
		t.Errorf("job_id = %q, want %q", got.ID, job.ID)
	}
	if got.State != jobs.StateRunning {
		t.Errorf("state = %q, want %q", got.State, jobs.StateRunning)
	}
	if got.Progress.Total != 1 {
		t.Errorf("progress.total = %d, want 1", got.Progress.Total)
	}
}

func TestGetJobUnknown(t *testing.T) {
	srv, _ := testServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/jobs/no-such-id", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestListVendors(t *testing.T) {
	srv, _ := testServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/vendors", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var views []vendorView
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("decoding vendors: %v", err)
	}
	if len(views) != 1 || views[0].VendorCode != "STUB01" {
		t.Fatalf("vendors = %+v, want one STUB01 entry", views)
	}
	if len(views[0].Accounts) != 1 || views[0].Accounts[0].AccountSuffix != "0001" {
		t.Errorf("accounts = %+v, want one account with suffix 0001", views[0].Accounts)
	}
}

func TestListHistoryEmpty(t *testing.T) {
	srv, _ := testServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var entries []history.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decoding history: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %d, want 0", len(entries))
	}
}

func TestListHistoryBadLimit(t *testing.T) {
	srv, _ := testServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/history?limit=zero", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
