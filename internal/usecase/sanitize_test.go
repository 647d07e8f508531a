package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeContent(t *testing.T) {
	assert.Equal(t, "hello there", sanitizeContent("hello <b>there</b>"))
	assert.Equal(t, "", sanitizeContent("<script>alert(1)</script>"))
	assert.Equal(t, "", sanitizeContent("   \n\t  "))
	assert.Equal(t, "plain text", sanitizeContent("  plain text  "))
}

func TestFilterAttachments(t *testing.T) {
	got := filterAttachments([]string{
		"https://cdn.example.com/a.PNG",
		"https://cdn.example.com/b.jpeg",
		"http://cdn.example.com/c.png",
		"https://cdn.example.com/d.pdf",
		"https:///no-host.png",
		"not a url at all ://",
	})
	assert.Equal(t, []string{
		"https://cdn.example.com/a.PNG",
		"https://cdn.example.com/b.jpeg",
	}, got)
}

func TestFilterAttachmentsCapsAtFive(t *testing.T) {
	var many []string
	for i := 0; i < 8; i++ {
		many = append(many, "https://cdn.example.com/img.png")
	}
	assert.Len(t, filterAttachments(many), 5)
}

func TestTruncateBody(t *testing.T) {
	assert.Equal(t, "short", truncateBody("short", 100))

	long := strings.Repeat("a", 150)
	got := truncateBody(long, 100)
	assert.Len(t, []rune(got), 100)
	assert.True(t, strings.HasSuffix(got, "..."))

	// Multi-byte content is truncated at rune boundaries.
	nepali := strings.Repeat("न", 150)
	got = truncateBody(nepali, 100)
	assert.Len(t, []rune(got), 100)
	assert.True(t, strings.HasSuffix(got, "..."))
}
