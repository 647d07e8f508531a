package usecase

import (
	"net/url"
	"path"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Executable markup is stripped before persistence and broadcast.
var contentPolicy = bluemonday.StrictPolicy()

func sanitizeContent(content string) string {
	return strings.TrimSpace(contentPolicy.Sanitize(content))
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

const maxAttachments = 5

// filterAttachments keeps at most maxAttachments entries that are image
// references over HTTPS. Non-conforming entries are dropped, not rejected.
func filterAttachments(attachments []string) []string {
	var valid []string
	for _, raw := range attachments {
		if len(valid) == maxAttachments {
			break
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme != "https" || u.Host == "" {
			continue
		}
		if !imageExtensions[strings.ToLower(path.Ext(u.Path))] {
			continue
		}
		valid = append(valid, raw)
	}
	return valid
}

// truncateBody caps a push-notification body at limit characters, ending in
// "..." when the content was longer.
func truncateBody(content string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit-3]) + "..."
}
