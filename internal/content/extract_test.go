package content

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestExtractText_SingleLeaf(t *testing.T) {
	root := NewLeaf("text/plain", "SGVsbG8=")
	assert.Equal(t, "Hello", ExtractText(root))
}

func TestExtractText_PrefersPlainTextSibling(t *testing.T) {
	root := NewContainer("multipart/alternative",
		NewLeaf("text/html", encode("<p>html body</p>")),
		NewLeaf("text/plain", encode("plain body")),
	)
	assert.Equal(t, "plain body", ExtractText(root))
}

func TestExtractText_FirstPlainTextInPreOrderWins(t *testing.T) {
	root := NewContainer("multipart/mixed",
		NewContainer("multipart/alternative",
			NewLeaf("text/html", encode("<b>x</b>")),
			NewLeaf("text/plain", encode("nested first")),
		),
		NewLeaf("text/plain", encode("top level second")),
	)
	assert.Equal(t, "nested first", ExtractText(root))
}

func TestExtractText_MediaTypeIsCaseInsensitive(t *testing.T) {
	root := NewContainer("multipart/mixed", NewLeaf("TEXT/Plain", encode("shout")))
	assert.Equal(t, "shout", ExtractText(root))
}

func TestExtractText_SkipsEmptyPlainTextLeaf(t *testing.T) {
	root := NewContainer("multipart/mixed",
		NewLeaf("text/plain", ""),
		NewLeaf("text/plain", encode("second")),
	)
	assert.Equal(t, "second", ExtractText(root))
}

func TestExtractText_RootLeafFallback(t *testing.T) {
	root := NewLeaf("text/html", encode("<p>only html</p>"))
	assert.Equal(t, "<p>only html</p>", ExtractText(root))
}

func TestExtractText_NoTextReturnsEmpty(t *testing.T) {
	tests := []struct {
		name string
		root Node
	}{
		{name: "nil root", root: nil},
		{name: "empty container", root: NewContainer("multipart/mixed")},
		{name: "html only inside container", root: NewContainer("multipart/alternative",
			NewLeaf("text/html", encode("<p>x</p>")))},
		{name: "root leaf without data", root: NewLeaf("text/plain", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, "", ExtractText(tt.root))
		})
	}
}

func TestExtractText_DecodeFailureDegradesToEmpty(t *testing.T) {
	root := NewContainer("multipart/mixed", NewLeaf("text/plain", "@@not base64@@"))
	assert.Equal(t, "", ExtractText(root))
}

func TestExtractText_Normalizes(t *testing.T) {
	raw := "\r\n  Line one\r\nLine two\r\n\r\n\r\n\r\nLine three  \n\n"
	root := NewLeaf("text/plain", encode(raw))
	assert.Equal(t, "Line one\nLine two\n\nLine three", ExtractText(root))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "padded", input: "SGVsbG8=", want: "Hello"},
		{name: "unpadded", input: "SGVsbG8", want: "Hello"},
		{name: "url alphabet", input: "Pz8_Pj4-", want: "???>>>"},
		{name: "standard alphabet", input: "Pz8/Pj4+", want: "???>>>"},
		{name: "utf8", input: encode("café ✓"), want: "café ✓"},
		{name: "invalid character", input: "SGV*bG8=", wantErr: true},
		{name: "truncated", input: "SGVsb", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_InvalidUTF8IsReplaced(t *testing.T) {
	got, err := Decode(base64.URLEncoding.EncodeToString([]byte{'o', 'k', 0xff}))
	require.NoError(t, err)
	assert.Equal(t, "ok\uFFFD", got)
}

func TestEncodeLeafRoundTrip(t *testing.T) {
	leaf := EncodeLeaf("text/plain", []byte("Body with ~~~ and ??? chars"))
	assert.Equal(t, "text/plain", MediaTypeOf(leaf))
	assert.Equal(t, "Body with ~~~ and ??? chars", ExtractText(leaf))
}

func TestMediaTypeOf(t *testing.T) {
	assert.Equal(t, "", MediaTypeOf(nil))
	assert.Equal(t, "multipart/mixed", MediaTypeOf(NewContainer("multipart/mixed")))
}
