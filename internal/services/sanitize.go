package services

import (
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var cardPolicy = bluemonday.UGCPolicy().
	AllowElements("sub", "sup", "span").
	AllowAttrs("class").OnElements("span") // for inline formula rendering

// SanitizeCardText strips unsafe markup from user- or AI-supplied card text.
// Returns an error when nothing useful survives sanitization.
func SanitizeCardText(input string) (string, error) {
	sanitized := strings.TrimSpace(cardPolicy.Sanitize(input))
	if sanitized == "" {
		return "", fmt.Errorf("text is empty or unsafe")
	}
	return sanitized, nil
}
