// Package summary turns an extracted message body into the short text sent
// by SMS.
package summary

import (
	"context"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// ShortContentLength is the cleaned length under which content is used as is
// instead of being summarized remotely.
const ShortContentLength = 250

// ErrTextTooShort is returned by a Summarizer that refuses its input for
// being too short.
var ErrTextTooShort = errors.New("text too short to summarize")

type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

type Service struct {
	summarizer Summarizer
}

// NewService returns a Service backed by summarizer. A nil summarizer keeps
// every message in the short form.
func NewService(summarizer Summarizer) *Service {
	return &Service{summarizer: summarizer}
}

// Summarize produces the notification text for a message body.
func (s *Service) Summarize(ctx context.Context, content, from string) (string, error) {
	cleaned := Clean(content)

	if len(cleaned) < ShortContentLength || s.summarizer == nil {
		return FormatShort(cleaned), nil
	}

	summary, err := s.summarizer.Summarize(ctx, cleaned)
	if errors.Is(err, ErrTextTooShort) {
		return FormatShort(cleaned), nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "unable to summarize message from %s", from)
	}

	return FormatSummary(summary), nil
}

var (
	replyHeader    = regexp.MustCompile(`(?m)On.*wrote:$`)
	quotedLine     = regexp.MustCompile(`(?m)^>.*$`)
	bracketed      = regexp.MustCompile(`\[.*?\]`)
	separatorLine  = regexp.MustCompile(`(?m)^-{2,}.*$`)
	signOffs       = regexp.MustCompile(`(?mi)(?:Best regards|Thanks|Sincerely),?.*$`)
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
	newlineRun     = regexp.MustCompile(`\n+`)
)

// Clean strips reply quotes, separators, sign-offs and forwarded header lines.
func Clean(content string) string {
	content = replyHeader.ReplaceAllString(content, "")
	content = quotedLine.ReplaceAllString(content, "")
	content = bracketed.ReplaceAllString(content, "")
	content = separatorLine.ReplaceAllString(content, "")
	content = signOffs.ReplaceAllString(content, "")
	content = excessNewlines.ReplaceAllString(content, "\n\n")

	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.Contains(line, "From:") || strings.Contains(line, "Sent:") || strings.Contains(line, "To:") {
			continue
		}
		kept = append(kept, line)
	}

	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// FormatShort joins the first two non-blank lines.
func FormatShort(content string) string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == 2 {
			break
		}
	}

	joined := strings.Join(lines, " ")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(joined, " "))
}

func FormatSummary(summary string) string {
	summary = newlineRun.ReplaceAllString(summary, " ")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(summary, " "))
}
