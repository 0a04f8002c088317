package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/itc-ops/invoice-orchestrator/internal/cmd"
)

func main() {
	app := &cli.App{
		Name:  "invoice-orchestrator",
		Usage: "download vendor invoices from billing portals",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "config.yaml",
				Usage: "path to the vendor configuration file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "download",
				Usage:  "download one vendor account's invoice",
				Action: cmd.DownloadAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "vendor", Required: true, Usage: "vendor code, e.g. ROGE04"},
					&cli.IntFlag{Name: "account", Usage: "account index, 0-based"},
					&cli.StringFlag{Name: "recipient", Usage: "override the report recipient"},
					&cli.BoolFlag{Name: "headed", Usage: "run the browser with a visible window"},
				},
			},
			{
				Name:   "batch",
				Usage:  "download every configured vendor account",
				Action: cmd.BatchAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "recipient", Usage: "override the report recipient"},
					&cli.BoolFlag{Name: "headed", Usage: "run the browser with a visible window"},
				},
			},
			{
				Name:   "serve",
				Usage:  "expose job submission and polling over HTTP",
				Action: cmd.ServeAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "listen", Usage: "listen address, overrides the config file"},
				},
			},
			{
				Name:   "bbox",
				Usage:  "list first-page text boxes of a PDF for date region calibration",
				Action: cmd.BboxAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "pdf", Required: true, Usage: "path to a sample invoice PDF"},
				},
			},
			{
				Name:   "history",
				Usage:  "show recent download outcomes",
				Action: cmd.HistoryAction,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 50, Usage: "maximum rows to show"},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
