package sync

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/jon-lip/G2SMS-Public/internal/ledger"
	"github.com/jon-lip/G2SMS-Public/internal/logger"
	mailtypes "github.com/jon-lip/G2SMS-Public/internal/mail/types"
	"github.com/jon-lip/G2SMS-Public/internal/metrics"
	"github.com/jon-lip/G2SMS-Public/internal/notify"
	"github.com/jon-lip/G2SMS-Public/internal/rules"
)

type Summarizer interface {
	Summarize(ctx context.Context, content, from string) (string, error)
}

type Deps struct {
	Mail       mailtypes.Service
	Rules      *rules.RuleSet
	Summarizer Summarizer
	Notifier   notify.Notifier
	// Ledger may be nil.
	Ledger     ledger.Ledger
	Filters    []mailtypes.Filter
	MaxResults int64
	// DryRun leaves messages unmarked and unrecorded.
	DryRun bool
}

// Report counts what one pass did. Accepted messages end up in exactly one
// of Notified, Failed or Skipped.
type Report struct {
	Fetched     int `json:"fetched"`
	Accepted    int `json:"accepted"`
	Blacklisted int `json:"blacklisted"`
	Notified    int `json:"notified"`
	Failed      int `json:"failed"`
	Skipped     int `json:"skipped"`
}

// Run performs one pass: fetch unprocessed messages, classify them and
// deliver a summary of every accepted one. Only a failed fetch or a canceled
// context aborts the pass; any other failure is confined to its message.
func Run(ctx context.Context, deps Deps) (Report, error) {
	log := logger.GetLogger()
	defer log.Sync()

	start := time.Now()
	defer func() {
		metrics.PassDuration.Observe(time.Since(start).Seconds())
	}()

	var report Report

	msgs, err := deps.Mail.GetMessages(ctx, deps.Filters, deps.MaxResults)
	if err != nil {
		return report, errors.Wrap(err, "unable to fetch messages")
	}
	report.Fetched = len(msgs)
	metrics.MessagesFetched.Add(float64(len(msgs)))

	log.Infow("Fetched messages",
		"count", len(msgs),
		"query", mailtypes.Query(deps.Filters, ""),
	)

	decisions, err := ClassifyMessages(ctx, msgs, deps.Rules)
	if err != nil {
		return report, err
	}

	led := deps.Ledger
	if led == nil {
		led = ledger.Nop()
	}

	for _, d := range decisions {
		logDecision(log, d)

		switch {
		case d.Result.RejectedByBlacklist:
			report.Blacklisted++
			continue
		case !d.Result.Accepted:
			continue
		}
		report.Accepted++

		if err := ctx.Err(); err != nil {
			return report, err
		}

		switch deliver(ctx, deps, led, d) {
		case deliveryNotified:
			report.Notified++
		case deliverySkipped:
			report.Skipped++
		default:
			report.Failed++
		}
	}

	log.Infow("Finished pass",
		"fetched", report.Fetched,
		"accepted", report.Accepted,
		"blacklisted", report.Blacklisted,
		"notified", report.Notified,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"elapsed", time.Since(start),
	)

	return report, nil
}

func logDecision(log logger.Logger, d Decision) {
	log.Infow("Classified message",
		"msgId", d.Message.Id,
		"from", d.Message.From,
		"subject", d.Message.Subject,
		"result", d.Result.String(),
		"matched", d.Result.Matched,
		"blacklisted", d.Result.RejectedByBlacklist,
	)
}
