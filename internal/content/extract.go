package content

import (
	"encoding/base64"
	"regexp"
	"strings"
)

const plainText = "text/plain"

var excessNewlines = regexp.MustCompile(`\n{3,}`)

// ExtractText returns the normalized plain text carried by a body tree. The
// first text/plain leaf in pre-order wins; a root leaf of any media type is
// used when no such leaf exists. Undecodable payloads yield "".
func ExtractText(root Node) string {
	leaf, ok := findPlainText(root)
	if !ok {
		leaf, ok = root.(Leaf)
		if !ok || leaf.Data == "" {
			return ""
		}
	}

	text, err := Decode(leaf.Data)
	if err != nil {
		return ""
	}

	return Normalize(text)
}

func findPlainText(n Node) (Leaf, bool) {
	switch node := n.(type) {
	case Leaf:
		if node.Data != "" && strings.EqualFold(node.MediaType, plainText) {
			return node, true
		}
	case Container:
		for _, child := range node.Children {
			if leaf, ok := findPlainText(child); ok {
				return leaf, true
			}
		}
	}

	return Leaf{}, false
}

// Decode decodes a URL-safe base64 payload. Standard alphabet characters and
// missing or present padding are both accepted.
func Decode(data string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '+':
			return '-'
		case '/':
			return '_'
		}
		return r
	}, data)
	cleaned = strings.TrimRight(cleaned, "=")

	decoded, err := base64.RawURLEncoding.DecodeString(cleaned)
	if err != nil {
		return "", err
	}

	return strings.ToValidUTF8(string(decoded), "\uFFFD"), nil
}

// Normalize converts CRLF to LF, collapses three or more newlines into two and
// trims surrounding whitespace.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = excessNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
