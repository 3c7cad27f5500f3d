// Package notify delivers message summaries to phones.
package notify

import (
	"context"
	"strings"

	"github.com/jon-lip/G2SMS-Public/internal/logger"
)

type Notifier interface {
	Notify(ctx context.Context, from, summary string) error
}

// SenderName returns the display name of a From header, e.g. "John Doe" for
// "John Doe <john@example.com>". Bare addresses are returned unchanged.
func SenderName(from string) string {
	name := strings.TrimSpace(strings.Split(from, "<")[0])
	name = strings.Trim(name, `"`)
	if name == "" {
		return strings.Trim(strings.TrimSpace(from), "<>")
	}
	return name
}

// Format builds the SMS text: the sender name in brackets then the summary.
func Format(from, summary string) string {
	return "[" + SenderName(from) + "] " + summary
}

// Log writes notifications to the logger instead of sending them.
type Log struct {
	log logger.Logger
}

func NewLog(log logger.Logger) *Log {
	return &Log{log: log}
}

func (l *Log) Notify(_ context.Context, from, summary string) error {
	l.log.Infow("SMS (dry run)",
		"message", Format(from, summary))
	return nil
}
