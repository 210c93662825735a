package notify

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

// sendFunc delivers a composed message
type sendFunc func(msg *mail.Msg) error

// EmailNotifier sends a plain-text summary by SMTP, with the HTML report
// attached when one was written.
type EmailNotifier struct {
	host         string
	port         int
	username     string
	password     string
	from         string
	to           []string
	attachReport bool
	send         sendFunc
	now          func() time.Time
}

// EmailOption is a functional option for EmailNotifier
type EmailOption func(*EmailNotifier)

// WithEmailAuth sets PLAIN auth credentials
func WithEmailAuth(username, password string) EmailOption {
	return func(e *EmailNotifier) {
		e.username = username
		e.password = password
	}
}

// WithEmailPort sets the SMTP port, 587 by default
func WithEmailPort(port int) EmailOption {
	return func(e *EmailNotifier) {
		if port > 0 {
			e.port = port
		}
	}
}

// WithEmailAttachReport toggles attaching the HTML report
func WithEmailAttachReport(attach bool) EmailOption {
	return func(e *EmailNotifier) {
		e.attachReport = attach
	}
}

// NewEmailNotifier creates a new email notifier
func NewEmailNotifier(host, from string, to []string, opts ...EmailOption) *EmailNotifier {
	e := &EmailNotifier{
		host:         host,
		port:         587,
		from:         from,
		to:           to,
		attachReport: true,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}
	e.send = e.deliver

	return e
}

// Name returns the name of the notifier
func (e *EmailNotifier) Name() string {
	return "email"
}

// Notify sends the summary email
func (e *EmailNotifier) Notify(summary *RunSummary) error {
	if len(e.to) == 0 {
		return fmt.Errorf("no recipients configured")
	}

	msg, err := e.buildMessage(summary)
	if err != nil {
		return err
	}

	if err := e.send(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// newClient configures an SMTP client for the notifier's server. STARTTLS is
// used when the server offers it; PLAIN auth only when a username is set.
func (e *EmailNotifier) newClient() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(e.port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(30 * time.Second),
	}
	if e.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(e.username),
			mail.WithPassword(e.password),
		)
	}
	return mail.NewClient(e.host, opts...)
}

func (e *EmailNotifier) deliver(msg *mail.Msg) error {
	client, err := e.newClient()
	if err != nil {
		return err
	}
	return client.DialAndSend(msg)
}

// subject carries the outcome and pass rate so it reads well in an inbox
func subject(summary *RunSummary) string {
	outcome := "PASSED"
	if summary.Cancelled {
		outcome = "CANCELLED"
	} else if !summary.Success() {
		outcome = "FAILED"
	} else if summary.IsRecovery {
		outcome = "RECOVERED"
	}
	return fmt.Sprintf("[hitcase] %s: %d/%d passed (%.1f%%)",
		outcome, summary.PassedTests, summary.TotalTests, summary.PassRate)
}

func textBody(summary *RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", headline(summary))
	if summary.Environment != "" {
		fmt.Fprintf(&b, "Environment: %s\n", summary.Environment)
	}
	fmt.Fprintf(&b, "Run:       %s\n", summary.RunID)
	fmt.Fprintf(&b, "Started:   %s\n", summary.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Duration:  %s\n", summary.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "Total:     %d\n", summary.TotalTests)
	fmt.Fprintf(&b, "Passed:    %d\n", summary.PassedTests)
	fmt.Fprintf(&b, "Failed:    %d\n", summary.FailedTests)
	fmt.Fprintf(&b, "Errors:    %d\n", summary.ErroredTests)
	fmt.Fprintf(&b, "Skipped:   %d\n", summary.SkippedTests)
	fmt.Fprintf(&b, "Pass rate: %.1f%%\n", summary.PassRate)

	if len(summary.FailedResults) > 0 {
		b.WriteString("\nFailed tests:\n")
		for _, ft := range summary.FailedResults {
			fmt.Fprintf(&b, "- %s", ft.Name)
			if ft.Scenario != "" {
				fmt.Fprintf(&b, " (%s)", ft.Scenario)
			}
			fmt.Fprintf(&b, " [%s]\n", ft.Status)
			for _, err := range ft.Errors {
				fmt.Fprintf(&b, "    %s\n", err)
			}
		}
	}
	return b.String()
}

func (e *EmailNotifier) buildMessage(summary *RunSummary) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(e.from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", e.from, err)
	}
	if err := msg.To(e.to...); err != nil {
		return nil, fmt.Errorf("invalid recipients: %w", err)
	}
	msg.Subject(subject(summary))
	msg.SetDateWithValue(e.now())
	msg.SetBodyString(mail.TypeTextPlain, textBody(summary))

	if e.attachReport && summary.ReportPath != "" {
		if _, err := os.Stat(summary.ReportPath); err != nil {
			return nil, fmt.Errorf("reading report attachment: %w", err)
		}
		msg.AttachFile(summary.ReportPath, mail.WithFileContentType(mail.TypeTextHTML))
	}

	return msg, nil
}
