package sync

import (
	"context"
	"time"

	"github.com/jon-lip/G2SMS-Public/internal/ledger"
	"github.com/jon-lip/G2SMS-Public/internal/logger"
	"github.com/jon-lip/G2SMS-Public/internal/metrics"
)

type delivery int

const (
	deliveryFailed delivery = iota
	deliveryNotified
	deliverySkipped
)

// deliver summarizes and sends one accepted message, then marks it processed
// and records it in the ledger. Errors are logged, never returned.
func deliver(ctx context.Context, deps Deps, led ledger.Ledger, d Decision) delivery {
	log := logger.GetLogger()
	msg := d.Message

	seen, err := led.Seen(ctx, msg.Id)
	if err != nil {
		log.Errorw("could not check notification ledger, sending anyway",
			"error", err,
			"msgId", msg.Id,
		)
	}
	if seen {
		log.Infow("Message already notified, skipping",
			"msgId", msg.Id,
		)
		metrics.Notifications.WithLabelValues(metrics.StatusSkipped).Inc()
		// A previous pass sent it but failed to mark it.
		markProcessed(ctx, deps, msg.Id)
		return deliverySkipped
	}

	summary, err := deps.Summarizer.Summarize(ctx, d.Text, msg.From)
	if err != nil {
		log.Errorw("could not summarize message",
			"error", err,
			"msgId", msg.Id,
		)
		metrics.Notifications.WithLabelValues(metrics.StatusFailed).Inc()
		return deliveryFailed
	}

	if err := deps.Notifier.Notify(ctx, msg.From, summary); err != nil {
		log.Errorw("an error ocurred when sending notification sms",
			"error", err,
			"msgId", msg.Id,
		)
		metrics.Notifications.WithLabelValues(metrics.StatusFailed).Inc()
		return deliveryFailed
	}
	metrics.Notifications.WithLabelValues(metrics.StatusSent).Inc()

	log.Infow("Notification sent",
		"msgId", msg.Id,
		"from", msg.From,
	)

	markProcessed(ctx, deps, msg.Id)

	if deps.DryRun {
		return deliveryNotified
	}

	matched := make([]string, 0, len(d.Result.Matched))
	for _, c := range d.Result.Matched {
		matched = append(matched, string(c))
	}

	err = led.Record(ctx, ledger.Entry{
		MessageId:  msg.Id,
		From:       msg.From,
		Subject:    msg.Subject,
		Matched:    matched,
		NotifiedAt: time.Now(),
	})
	if err != nil {
		log.Errorw("could not record notification",
			"error", err,
			"msgId", msg.Id,
		)
	}

	return deliveryNotified
}

func markProcessed(ctx context.Context, deps Deps, id string) {
	if deps.DryRun {
		return
	}

	if err := deps.Mail.MarkProcessed(ctx, id); err != nil {
		logger.GetLogger().Errorw("could not mark message as processed",
			"error", err,
			"msgId", id,
		)
	}
}
