package rules

import "strings"

type Criterion string

const (
	ExactSender Criterion = "exactSender"
	Domain      Criterion = "domain"
	Subject     Criterion = "subject"
	Content     Criterion = "content"
)

func (c Criterion) String() string {
	return string(c)
}

// Result is the decision for one message plus the criteria that produced it.
// Matched is empty whenever Accepted is false.
type Result struct {
	Accepted            bool
	Matched             []Criterion
	RejectedByBlacklist bool
}

func (r Result) Has(c Criterion) bool {
	for _, m := range r.Matched {
		if m == c {
			return true
		}
	}
	return false
}

func (r Result) String() string {
	switch {
	case r.RejectedByBlacklist:
		return "rejected (blacklist)"
	case !r.Accepted:
		return "rejected (no match)"
	}

	names := make([]string, len(r.Matched))
	for i, m := range r.Matched {
		names[i] = m.String()
	}
	return "accepted (" + strings.Join(names, ",") + ")"
}

// ComparisonAddress returns the address inside the first <...> segment of a
// sender header, or the whole header when there is no such segment.
func ComparisonAddress(sender string) string {
	start := strings.IndexByte(sender, '<')
	if start < 0 {
		return sender
	}
	end := strings.IndexByte(sender[start+1:], '>')
	if end <= 0 {
		return sender
	}
	return sender[start+1 : start+1+end]
}

// Classify evaluates a message against rules. Blocked senders are rejected
// before any whitelist criterion is looked at; otherwise every whitelist
// criterion is evaluated and each one that matched is reported.
func Classify(sender, subject, content string, rules *RuleSet) Result {
	if rules == nil {
		rules = &RuleSet{}
	}

	address := strings.ToLower(ComparisonAddress(sender))

	if containsAny(address, rules.blockedSenders) {
		return Result{RejectedByBlacklist: true, Matched: []Criterion{}}
	}

	matched := []Criterion{}
	if equalsAny(address, rules.exactSenders) {
		matched = append(matched, ExactSender)
	}
	if containsAny(address, rules.senderDomains) {
		matched = append(matched, Domain)
	}
	if containsAny(strings.ToLower(subject), rules.subjectKeywords) {
		matched = append(matched, Subject)
	}
	if containsAny(strings.ToLower(content), rules.contentKeywords) {
		matched = append(matched, Content)
	}

	return Result{Accepted: len(matched) > 0, Matched: matched}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func equalsAny(s string, candidates []string) bool {
	for _, c := range candidates {
		if s == c {
			return true
		}
	}
	return false
}
