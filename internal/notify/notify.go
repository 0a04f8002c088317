// Package notify emails the batch report after a job completes. Delivery
// is best effort: a mail failure is logged and never fails the batch.
package notify

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"

	"github.com/itc-ops/invoice-orchestrator/models"
	"github.com/itc-ops/invoice-orchestrator/pkg/jobs"
)

// Mailer sends batch reports over SMTP.
type Mailer struct {
	cfg models.SMTPConfig
	log *logrus.Entry
}

// New returns a mailer for the given SMTP settings.
func New(cfg models.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg, log: logrus.WithField("component", "notify")}
}

// SendBatchReport mails the job summary with every successful invoice
// attached. An unconfigured SMTP block is a silent no-op, not an error.
func (m *Mailer) SendBatchReport(job *jobs.Job) error {
	if !m.cfg.Configured() {
		m.log.Debug("smtp not configured, skipping batch report")
		return nil
	}

	recipients := m.cfg.To
	if job.RecipientOverride != "" {
		recipients = []string{job.RecipientOverride}
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("report sender address: %w", err)
	}
	if err := msg.To(recipients...); err != nil {
		return fmt.Errorf("report recipient address: %w", err)
	}
	msg.Subject(Subject(job))
	msg.SetBodyString(mail.TypeTextPlain, RenderReport(job))

	for _, out := range job.Outcomes {
		if out.Failed() || out.ArtifactPath == "" {
			continue
		}
		msg.AttachFile(out.ArtifactPath)
	}

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.EmailPassword()),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("send batch report: %w", err)
	}
	m.log.Infof("batch report sent to %s", strings.Join(recipients, ", "))
	return nil
}

// Subject summarizes the batch result in one line.
func Subject(job *jobs.Job) string {
	succeeded := 0
	for _, out := range job.Outcomes {
		if !out.Failed() {
			succeeded++
		}
	}
	return fmt.Sprintf("Invoice downloads: %d/%d succeeded", succeeded, len(job.Units))
}

// RenderReport builds the plain-text body: one line per unit with its
// result, then the failure reasons for anything that failed.
func RenderReport(job *jobs.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Batch %s (%s mode) finished.\n\n", job.ID, job.Mode)

	for _, out := range job.Outcomes {
		if out.Failed() {
			fmt.Fprintf(&b, "  FAILED  %s\n", out.Unit)
			continue
		}
		when := "current date (extraction missed)"
		if out.ExtractedDate != nil {
			when = out.ExtractedDate.Format("2006-01-02")
		}
		fmt.Fprintf(&b, "  ok      %s  invoice date %s\n", out.Unit, when)
	}

	failures := false
	for _, out := range job.Outcomes {
		if !out.Failed() {
			continue
		}
		if !failures {
			b.WriteString("\nFailure details:\n")
			failures = true
		}
		fmt.Fprintf(&b, "  %s: %s\n", out.Unit, out.FailureReason)
	}

	if !failures {
		b.WriteString("\nAll invoices are attached.\n")
	}
	return b.String()
}
