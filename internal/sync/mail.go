package sync

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/jon-lip/G2SMS-Public/internal/content"
	mailtypes "github.com/jon-lip/G2SMS-Public/internal/mail/types"
	"github.com/jon-lip/G2SMS-Public/internal/metrics"
	"github.com/jon-lip/G2SMS-Public/internal/rules"
)

// Decision is the classification of one fetched message.
type Decision struct {
	Message mailtypes.Message
	Text    string
	Result  rules.Result
}

// ClassifyMessages extracts and classifies msgs in parallel. Decisions are
// returned in the order of msgs.
func ClassifyMessages(ctx context.Context, msgs []mailtypes.Message, rs *rules.RuleSet) ([]Decision, error) {
	decisions := make([]Decision, len(msgs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i := range msgs {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			decisions[i] = classify(msgs[i], rs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, d := range decisions {
		recordDecision(d)
	}

	return decisions, nil
}

func classify(msg mailtypes.Message, rs *rules.RuleSet) Decision {
	text := content.ExtractText(msg.Body)
	return Decision{
		Message: msg,
		Text:    text,
		Result:  rules.Classify(msg.From, msg.Subject, text, rs),
	}
}

func recordDecision(d Decision) {
	if d.Text == "" {
		metrics.EmptyExtractions.Inc()
	}

	switch {
	case d.Result.RejectedByBlacklist:
		metrics.Classifications.WithLabelValues(metrics.OutcomeBlacklisted).Inc()
	case d.Result.Accepted:
		metrics.Classifications.WithLabelValues(metrics.OutcomeAccepted).Inc()
		for _, c := range d.Result.Matched {
			metrics.CriteriaMatched.WithLabelValues(string(c)).Inc()
		}
	default:
		metrics.Classifications.WithLabelValues(metrics.OutcomeRejected).Inc()
	}
}
