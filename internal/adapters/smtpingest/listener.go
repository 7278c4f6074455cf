package smtpingest

import (
	"context"
	"io"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/sentinelsec/sentinel/internal/core"
	"go.uber.org/zap"
)

const maxMessageBytes = 10 * 1024 * 1024 // 10MB

// Listener accepts suspected-phishing emails forwarded over SMTP. Each
// accepted message becomes a pending report plus an enqueued analysis job;
// the analysis itself stays asynchronous.
type Listener struct {
	reports    core.ReportStore
	queue      core.JobQueue
	logger     *zap.Logger
	listenAddr string
	domain     string
	server     *smtp.Server
}

// NewListener creates a new SMTP intake listener
func NewListener(
	reports core.ReportStore,
	queue core.JobQueue,
	logger *zap.Logger,
	listenAddr string,
	domain string,
) *Listener {
	return &Listener{
		reports:    reports,
		queue:      queue,
		logger:     logger,
		listenAddr: listenAddr,
		domain:     domain,
	}
}

// Start starts the SMTP listener
func (l *Listener) Start() error {
	l.server = smtp.NewServer(&smtpBackend{listener: l})

	l.server.Addr = l.listenAddr
	l.server.Domain = l.domain
	l.server.ReadTimeout = 30 * time.Second
	l.server.WriteTimeout = 30 * time.Second
	l.server.MaxMessageBytes = maxMessageBytes
	l.server.MaxRecipients = 10
	l.server.AllowInsecureAuth = true

	l.logger.Info("SMTP intake starting", zap.String("address", l.listenAddr))

	go func() {
		if err := l.server.ListenAndServe(); err != nil {
			if err != smtp.ErrServerClosed {
				l.logger.Error("SMTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop stops the SMTP listener
func (l *Listener) Stop() error {
	if l.server != nil {
		return l.server.Close()
	}
	return nil
}

// submit stores the forwarded message as a pending report and enqueues it
func (l *Listener) submit(rawEmail string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	report := &core.AnalysisReport{
		ID:            uuid.NewString(),
		RawEmail:      rawEmail,
		Status:        core.StatusPending,
		ExtractedURLs: []string{},
		Enrichment:    map[string]core.ThreatSignal{},
		CreatedAt:     time.Now().UTC(),
	}

	if err := l.reports.InsertReport(ctx, report); err != nil {
		return err
	}
	if err := l.queue.Enqueue(ctx, report.ID); err != nil {
		return err
	}

	l.logger.Info("Accepted SMTP submission",
		zap.String("report_id", report.ID),
		zap.Int("size", len(rawEmail)))
	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	listener *Listener
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{listener: b.listener}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	listener *Listener
}

// Reset resets the session state
func (s *smtpSession) Reset() {}

// Logout handles session teardown
func (s *smtpSession) Logout() error {
	return nil
}

// AuthPlain handles PLAIN authentication (intake is unauthenticated)
func (s *smtpSession) AuthPlain(_, _ string) error {
	return smtp.ErrAuthUnsupported
}

// Mail accepts any sender
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	return nil
}

// Rcpt accepts any recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	return nil
}

// Data receives the message body and submits it for analysis
func (s *smtpSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return s.listener.submit(string(data))
}
