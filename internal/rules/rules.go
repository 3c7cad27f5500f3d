// Package rules decides whether a message is forwarded, based on sender,
// subject and body matching against an immutable RuleSet.
package rules

import "strings"

// Lists is the configuration form of a RuleSet.
type Lists struct {
	ExactSenders    []string `yaml:"exact_senders" json:"exact_senders"`
	SenderDomains   []string `yaml:"sender_domains" json:"sender_domains"`
	SubjectKeywords []string `yaml:"subject_keywords" json:"subject_keywords"`
	ContentKeywords []string `yaml:"content_keywords" json:"content_keywords"`
	BlockedSenders  []string `yaml:"blocked_senders" json:"blocked_senders"`
}

// RuleSet holds lower-cased rule entries. It is never modified after
// NewRuleSet returns and may be shared between goroutines.
type RuleSet struct {
	exactSenders    []string
	senderDomains   []string
	subjectKeywords []string
	contentKeywords []string
	blockedSenders  []string
}

func NewRuleSet(l Lists) *RuleSet {
	return &RuleSet{
		exactSenders:    normalizeEntries(l.ExactSenders),
		senderDomains:   normalizeEntries(l.SenderDomains),
		subjectKeywords: normalizeEntries(l.SubjectKeywords),
		contentKeywords: normalizeEntries(l.ContentKeywords),
		blockedSenders:  normalizeEntries(l.BlockedSenders),
	}
}

// Blank entries are dropped: an empty needle would match every input. Other
// entries keep their surrounding spaces.
func normalizeEntries(entries []string) []string {
	res := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e) == "" {
			continue
		}
		res = append(res, strings.ToLower(e))
	}
	return res
}

// Lists returns a copy of the (lower-cased) entries.
func (r *RuleSet) Lists() Lists {
	if r == nil {
		return Lists{}
	}
	return Lists{
		ExactSenders:    append([]string(nil), r.exactSenders...),
		SenderDomains:   append([]string(nil), r.senderDomains...),
		SubjectKeywords: append([]string(nil), r.subjectKeywords...),
		ContentKeywords: append([]string(nil), r.contentKeywords...),
		BlockedSenders:  append([]string(nil), r.blockedSenders...),
	}
}

func (r *RuleSet) IsEmpty() bool {
	return r == nil || len(r.exactSenders)+len(r.senderDomains)+len(r.subjectKeywords)+
		len(r.contentKeywords)+len(r.blockedSenders) == 0
}
