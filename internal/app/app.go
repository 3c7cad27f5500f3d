// Package app wires the configured backends into a sync pass.
package app

import (
	"context"
	"io"
	gosync "sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/jon-lip/G2SMS-Public/internal/cohere"
	"github.com/jon-lip/G2SMS-Public/internal/config"
	"github.com/jon-lip/G2SMS-Public/internal/dynamodb"
	"github.com/jon-lip/G2SMS-Public/internal/ledger"
	"github.com/jon-lip/G2SMS-Public/internal/logger"
	"github.com/jon-lip/G2SMS-Public/internal/mail/gmail"
	"github.com/jon-lip/G2SMS-Public/internal/mail/imap"
	mailtypes "github.com/jon-lip/G2SMS-Public/internal/mail/types"
	"github.com/jon-lip/G2SMS-Public/internal/notify"
	"github.com/jon-lip/G2SMS-Public/internal/rules"
	"github.com/jon-lip/G2SMS-Public/internal/summary"
	"github.com/jon-lip/G2SMS-Public/internal/sync"
	"github.com/jon-lip/G2SMS-Public/internal/textbelt"
	"github.com/jon-lip/G2SMS-Public/internal/twilio"
)

// Status is the outcome of the most recent pass.
type Status struct {
	LastRun  time.Time   `json:"lastRun"`
	Duration string      `json:"duration"`
	Report   sync.Report `json:"report"`
	Error    string      `json:"error,omitempty"`
}

type App struct {
	deps    sync.Deps
	closers []io.Closer

	mu     gosync.Mutex
	status *Status
}

// New builds every backend selected by cfg. The mail connection is opened
// here, so Close must be called even if no pass runs.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	rs, err := rules.LoadFile(cfg.RulesFile)
	if err != nil {
		return nil, err
	}
	if rs.IsEmpty() {
		logger.GetLogger().Infow("Rule set is empty, no message will be accepted",
			"rulesFile", cfg.RulesFile)
	}

	a := &App{}

	led, err := NewLedger(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, led)

	notifier, err := NewNotifier(cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	summarizer, err := NewSummarizer(cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	mail, err := NewMailService(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.closers = append(a.closers, mail)

	a.deps = sync.Deps{
		Mail:       mail,
		Rules:      rs,
		Summarizer: summarizer,
		Notifier:   notifier,
		Ledger:     led,
		Filters:    mailtypes.DefaultFilters(cfg.Label),
		MaxResults: cfg.MaxResults,
		DryRun:     cfg.DryRun,
	}

	return a, nil
}

// RunPass runs one sync pass and remembers its outcome for Status.
func (a *App) RunPass(ctx context.Context) (sync.Report, error) {
	start := time.Now()
	report, err := sync.Run(ctx, a.deps)

	st := &Status{
		LastRun:  start,
		Duration: time.Since(start).String(),
		Report:   report,
	}
	if err != nil {
		st.Error = err.Error()
	}

	a.mu.Lock()
	a.status = st
	a.mu.Unlock()

	return report, err
}

// Status returns the last pass outcome, or nil before the first pass.
func (a *App) Status() *Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

func (a *App) Close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i].Close())
	}
	a.closers = nil
	return err
}

func NewMailService(ctx context.Context, cfg *config.Config) (mailtypes.Service, error) {
	switch cfg.Source {
	case config.SourceGmail:
		return gmail.NewService(ctx, gmail.Config{
			ClientID:     cfg.Gmail.ClientID,
			ClientSecret: cfg.Gmail.ClientSecret,
			RedirectURI:  cfg.Gmail.RedirectURI,
			RefreshToken: cfg.Gmail.RefreshToken,
			TokenFile:    cfg.Gmail.TokenFile,
			Label:        cfg.Label,
			Query:        cfg.Gmail.Query,
		})
	case config.SourceIMAP:
		return imap.NewService(imap.Config{
			Addr:     cfg.IMAP.Addr,
			Username: cfg.IMAP.Username,
			Password: cfg.IMAP.Password,
			Mailbox:  cfg.IMAP.Mailbox,
			Keyword:  cfg.Label,
		})
	default:
		return nil, errors.Errorf("unknown mail source %q", cfg.Source)
	}
}

func NewNotifier(cfg *config.Config) (notify.Notifier, error) {
	switch cfg.NotifierKind() {
	case config.NotifierLog:
		return notify.NewLog(logger.GetLogger()), nil
	case config.NotifierTextbelt:
		return textbelt.NewClient(cfg.Notifier.TextbeltAPIKey, cfg.Notifier.TextbeltURL, cfg.Notifier.Phones())
	case config.NotifierTwilio:
		client, err := twilio.NewClient(cfg.Notifier.TwilioAccountSid, cfg.Notifier.TwilioAuthToken)
		if err != nil {
			return nil, err
		}
		return twilio.NewNotifier(client, cfg.Notifier.TwilioFromNumber, cfg.Notifier.Phones()), nil
	default:
		return nil, errors.Errorf("unknown notifier %q", cfg.Notifier.Kind)
	}
}

// NewSummarizer returns a summary service backed by Cohere. Without an API
// key every message is kept in its short form.
func NewSummarizer(cfg *config.Config) (*summary.Service, error) {
	if cfg.Cohere.APIKey == "" {
		return summary.NewService(nil), nil
	}

	client, err := cohere.NewClient(cfg.Cohere.APIKey, cfg.Cohere.URL)
	if err != nil {
		return nil, err
	}
	return summary.NewService(client), nil
}

func NewLedger(ctx context.Context, cfg *config.Config) (ledger.Ledger, error) {
	switch cfg.Ledger.Kind {
	case config.LedgerNone, "":
		return ledger.Nop(), nil
	case config.LedgerSQLite:
		return ledger.OpenSQLite(cfg.Ledger.Path)
	case config.LedgerDynamoDB:
		client, err := dynamodb.NewClient(ctx, cfg.Ledger.Region)
		if err != nil {
			return nil, err
		}
		return ledger.NewDynamoDB(client, cfg.Ledger.Table), nil
	default:
		return nil, errors.Errorf("unknown ledger %q", cfg.Ledger.Kind)
	}
}
