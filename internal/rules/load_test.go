package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRules = `
exact_senders:
  - example@domain.com
  - notifications@service.com
sender_domains:
  - company.com
  - school.edu
subject_keywords:
  - important
  - urgent
content_keywords:
  - critical
  - action required
blocked_senders:
  - spam@example.com
  - unwanted.domain.com
`

func TestParse(t *testing.T) {
	rs, err := Parse([]byte(sampleRules))
	require.NoError(t, err)

	l := rs.Lists()
	assert.Equal(t, []string{"example@domain.com", "notifications@service.com"}, l.ExactSenders)
	assert.Equal(t, []string{"company.com", "school.edu"}, l.SenderDomains)
	assert.Equal(t, []string{"important", "urgent"}, l.SubjectKeywords)
	assert.Equal(t, []string{"critical", "action required"}, l.ContentKeywords)
	assert.Equal(t, []string{"spam@example.com", "unwanted.domain.com"}, l.BlockedSenders)
}

func TestParse_EmptyDocument(t *testing.T) {
	rs, err := Parse(nil)
	require.NoError(t, err)
	assert.True(t, rs.IsEmpty())
}

func TestParse_PartialDocument(t *testing.T) {
	rs, err := Parse([]byte("subject_keywords: [invoice]\n"))
	require.NoError(t, err)

	assert.True(t, Classify("x@y.z", "Your INVOICE", "", rs).Accepted)
	assert.Empty(t, rs.Lists().SenderDomains)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("domain_whitelist: [company.com]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse rules")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRules), 0o600))

	rs, err := LoadFile(path)
	require.NoError(t, err)

	res := Classify("Spam <spam@example.com>", "urgent", "critical", rs)
	assert.True(t, res.RejectedByBlacklist)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read rules file")
}
