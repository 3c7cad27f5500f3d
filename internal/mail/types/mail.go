package types

import (
	"context"
	"fmt"
	"strings"

	"github.com/jon-lip/G2SMS-Public/internal/content"
)

const (
	InFilter FilterType = iota
	FromFilter
	AfterFilter
	LabelFilter
)

type FilterType int64

func (f FilterType) String() string {
	switch f {
	case InFilter:
		return "in"
	case FromFilter:
		return "from"
	case AfterFilter:
		return "after"
	case LabelFilter:
		return "label"
	}

	return "unknown"
}

type Filter struct {
	Type   FilterType
	Value  string
	Negate bool
}

func (f Filter) String() string {
	s := fmt.Sprintf("%s:%s", f.Type, f.Value)
	if f.Negate {
		return "-" + s
	}
	return s
}

// DefaultFilters selects inbox messages not sent by the account owner and
// not yet carrying the processed label.
func DefaultFilters(processedLabel string) []Filter {
	return []Filter{
		{Type: InFilter, Value: "inbox"},
		{Type: FromFilter, Value: "me", Negate: true},
		{Type: LabelFilter, Value: processedLabel, Negate: true},
	}
}

// Query renders filters as a Gmail search expression, followed by any extra
// free-form terms.
func Query(filters []Filter, extra string) string {
	res := make([]string, 0, len(filters)+1)
	for _, filter := range filters {
		res = append(res, filter.String())
	}
	if extra = strings.TrimSpace(extra); extra != "" {
		res = append(res, extra)
	}
	return strings.Join(res, " ")
}

type Message struct {
	Id       string
	ThreadId string
	Date     string
	From     string
	Subject  string
	Body     content.Node
}

type Service interface {
	GetMessages(ctx context.Context, filters []Filter, max int64) ([]Message, error)
	MarkProcessed(ctx context.Context, id string) error
	Close() error
}
