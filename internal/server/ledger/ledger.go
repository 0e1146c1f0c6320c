// Package ledger moves admitted files into member containers and
// reconciles the recorded ledger with what storage actually holds.
package ledger

import (
	"context"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/memvault/internal/server/models"
)

// Recorder appends audit records.
type Recorder interface {
	Record(ctx context.Context, category models.AuditCategory, subject, object string,
		status models.AuditStatus, reason, action string) error
}

var (
	unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._ -]`)
	spaceRuns       = regexp.MustCompile(`\s+`)
)

// SanitizeName makes an object name safe to file. Whitespace runs become
// one space, any other character outside [A-Za-z0-9._ -] becomes '_', and
// the result is trimmed.
func SanitizeName(name string) string {
	name = spaceRuns.ReplaceAllString(name, " ")
	name = unsafeNameChars.ReplaceAllString(name, "_")
	return strings.TrimSpace(name)
}
