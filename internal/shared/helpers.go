// Package shared provides common utility functions used across multiple
// packages in the extension-mirror codebase.
package shared

import (
	"fmt"
	"strings"
)

// NormalizeExtensionID lowercases and trims an extension id. Marketplaces
// treat ids case-insensitively.
func NormalizeExtensionID(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// SplitList splits comma separated values, trimming blanks.
func SplitList(values ...string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// HTTPStatusErrorWithBody creates a formatted error that includes the
// response body for non-2xx HTTP responses.
func HTTPStatusErrorWithBody(status int, url string, body string) error {
	return fmt.Errorf("status=%d url=%s response=%s", status, url, body)
}
