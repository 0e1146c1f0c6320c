// Package gate verifies that a submission comes from the registered owner
// of its unit before anything downstream is allowed to touch storage or
// the registry. The gate itself never writes.
package gate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/dmitrijs2005/memvault/internal/common"
	"github.com/dmitrijs2005/memvault/internal/logging"
	"github.com/dmitrijs2005/memvault/internal/server/models"
)

// Verdict is the gate's decision for a submission.
type Verdict int

const (
	Unknown Verdict = iota
	Mismatch
	Admitted
)

func (v Verdict) String() string {
	switch v {
	case Mismatch:
		return "mismatch"
	case Admitted:
		return "admitted"
	default:
		return "unknown"
	}
}

const reasonNotConfigured = "identity not configured"

// Decision carries the verdict and, for Mismatch and Admitted, the entry
// the submission resolved to.
type Decision struct {
	Verdict       Verdict
	NormalizedKey string
	Entry         *models.RegistryEntry
	Reason        string
}

// Err maps a rejecting decision to its sentinel error, or nil when admitted.
func (d Decision) Err() error {
	switch d.Verdict {
	case Unknown:
		return common.ErrUnknownUnit
	case Mismatch:
		return fmt.Errorf("%w: %s", common.ErrIdentityMismatch, d.Reason)
	default:
		return nil
	}
}

// EntryFinder looks entries up by their unique normalized key and returns
// common.ErrorNotFound when there is none.
type EntryFinder interface {
	FindByNormalizedKey(ctx context.Context, key string) (*models.RegistryEntry, error)
}

type Gate struct {
	entries EntryFinder
	log     logging.Logger
}

func New(entries EntryFinder, log logging.Logger) *Gate {
	return &Gate{entries: entries, log: log.With("module", "gate")}
}

// Admit decides whether sub may proceed. Only lookup failures other than
// a missing entry are returned as errors.
func (g *Gate) Admit(ctx context.Context, sub models.Submission) (Decision, error) {
	key := Normalize(sub.RawUnitKey)
	d := Decision{NormalizedKey: key}

	if key == "" {
		d.Reason = "empty unit key"
		return d, nil
	}

	entry, err := g.entries.FindByNormalizedKey(ctx, key)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			g.log.Info(ctx, "unknown unit", "unit", key)
			return d, nil
		}
		return d, fmt.Errorf("lookup %s: %w", key, err)
	}
	d.Entry = entry

	owner := NormalizeIdentity(entry.OwnerIdentity)
	submitter := NormalizeIdentity(sub.SubmitterIdentity)

	switch {
	case owner == "":
		d.Verdict = Mismatch
		d.Reason = reasonNotConfigured
	case owner != submitter:
		d.Verdict = Mismatch
		d.Reason = fmt.Sprintf("submitter %s != owner %s", submitter, owner)
	default:
		d.Verdict = Admitted
	}

	if d.Verdict == Mismatch {
		g.log.Warn(ctx, "identity mismatch", "unit", key, "reason", d.Reason)
	}
	return d, nil
}

// Normalize lowercases a unit key, removes every whitespace rune and
// folds en and em dashes into '-'.
func Normalize(raw string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return -1
		case r == '\u2013' || r == '\u2014':
			return '-'
		}
		return unicode.ToLower(r)
	}, raw)
}

// NormalizeIdentity trims and lowercases an identity.
func NormalizeIdentity(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// MinObjectIDLen is the shortest token accepted as an object id.
const MinObjectIDLen = 25

func isIDRune(r rune) bool {
	return r == '-' || r == '_' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// ExtractObjectIDs returns the maximal runs of [A-Za-z0-9_-] of at least
// MinObjectIDLen characters found in text, deduplicated, in order of first
// appearance. Links such as ".../d/<id>/view?usp=sharing" yield the id.
func ExtractObjectIDs(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool { return !isIDRune(r) })
	ids := models.NewIDSet()
	for _, f := range fields {
		if len(f) >= MinObjectIDLen {
			ids.Add(f)
		}
	}
	return ids.IDs()
}
