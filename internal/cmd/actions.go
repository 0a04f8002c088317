// Package cmd wires the CLI verbs to the orchestration engine. Each verb
// bootstraps the same dependency set from the config file and either runs
// a batch in-process or hands off to the HTTP server.
package cmd

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/itc-ops/invoice-orchestrator/internal/bbox"
	"github.com/itc-ops/invoice-orchestrator/internal/history"
	"github.com/itc-ops/invoice-orchestrator/internal/notify"
	"github.com/itc-ops/invoice-orchestrator/internal/orchestrator"
	"github.com/itc-ops/invoice-orchestrator/internal/vendors"
	"github.com/itc-ops/invoice-orchestrator/internal/web"
	"github.com/itc-ops/invoice-orchestrator/models"
	"github.com/itc-ops/invoice-orchestrator/pkg/artifact"
	"github.com/itc-ops/invoice-orchestrator/pkg/jobs"
)

// app is one bootstrapped engine instance.
type app struct {
	cfg  *models.Config
	orch *orchestrator.Orchestrator
	hist *history.Store
}

func bootstrap(c *cli.Context) (*app, error) {
	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.Bool("headed") {
		cfg.Headless = false
	}

	registry, err := vendors.Build(cfg)
	if err != nil {
		return nil, fmt.Errorf("building vendor registry: %w", err)
	}

	store, err := artifact.NewStore(cfg.DownloadDir)
	if err != nil {
		return nil, fmt.Errorf("preparing download dir: %w", err)
	}

	hist, err := history.Open(filepath.Join(cfg.LogsDir, "history.db"))
	if err != nil {
		return nil, fmt.Errorf("opening history store: %w", err)
	}

	orch := orchestrator.New(cfg, registry, jobs.NewManager(), store,
		hist, notify.New(cfg.SMTP))
	return &app{cfg: cfg, orch: orch, hist: hist}, nil
}

func (a *app) close() {
	if a.hist != nil {
		a.hist.Close()
	}
}

// DownloadAction runs one vendor account synchronously and reports the
// outcome on stdout. A failed unit exits nonzero.
func DownloadAction(c *cli.Context) error {
	a, err := bootstrap(c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	defer a.close()

	unit := models.DownloadUnit{
		VendorCode:   c.String("vendor"),
		AccountIndex: c.Int("account"),
	}
	job, err := a.orch.StartBatch(jobs.ModeSingleUnit,
		[]models.DownloadUnit{unit}, c.String("recipient"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	a.orch.Run(job)

	return reportJob(a, job.ID)
}

// BatchAction runs every configured vendor account in order.
func BatchAction(c *cli.Context) error {
	a, err := bootstrap(c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	defer a.close()

	units := a.orch.AllUnits()
	if len(units) == 0 {
		return cli.Exit("no vendors configured", 2)
	}
	job, err := a.orch.StartBatch(jobs.ModeAllUnits, units, c.String("recipient"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	a.orch.Run(job)

	return reportJob(a, job.ID)
}

func reportJob(a *app, jobID string) error {
	snap, ok := a.orch.Manager().Snapshot(jobID)
	if !ok {
		return cli.Exit("job vanished", 2)
	}

	failed := 0
	for _, out := range snap.Outcomes {
		if out.Failed() {
			failed++
			fmt.Printf("FAILED  %s  %s\n", out.Unit, out.FailureReason)
			continue
		}
		fmt.Printf("ok      %s  %s\n", out.Unit, out.ArtifactPath)
	}
	fmt.Printf("%d/%d succeeded\n", len(snap.Outcomes)-failed, len(snap.Units))

	if failed > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

// ServeAction starts the HTTP API and blocks.
func ServeAction(c *cli.Context) error {
	a, err := bootstrap(c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	defer a.close()

	addr := a.cfg.ListenAddr
	if c.IsSet("listen") {
		addr = c.String("listen")
	}

	srv := web.New(a.orch, a.hist)
	logrus.Infof("listening on %s", addr)
	if err := http.ListenAndServe(addr, srv.Router()); err != nil {
		return cli.Exit(err.Error(), 2)
	}
	return nil
}

// BboxAction prints the first page's text fragments with bounding boxes
// so operators can calibrate a vendor's date region.
func BboxAction(c *cli.Context) error {
	path := c.String("pdf")
	if path == "" {
		return cli.Exit("--pdf is required", 2)
	}
	frags, err := bbox.Scan(path)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	fmt.Fprint(os.Stdout, bbox.Report(frags))
	return nil
}

// HistoryAction lists recent download outcomes from the audit log.
func HistoryAction(c *cli.Context) error {
	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	hist, err := history.Open(filepath.Join(cfg.LogsDir, "history.db"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	defer hist.Close()

	entries, err := hist.Recent(c.Int("limit"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	for _, e := range entries {
		date := "-"
		if e.ExtractedDate != "" {
			date = e.ExtractedDate
		}
		fmt.Printf("%-8s #%d  %-9s  date=%-10s  %s\n",
			e.VendorCode, e.AccountIndex, e.Status, date, e.ArtifactPath)
	}
	return nil
}
