// Package numbering formats and parses human-readable document numbers of
// the form PREFIX-YYYYMMDD-NNNN. Sequences restart every day per prefix.
package numbering

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/fibc/backend/internal/domain/shared"
)

// Document prefixes
const (
	PrefixOrder       = "ORD"
	PrefixShift       = "SHF"
	PrefixConsumption = "CON"
	PrefixExtrusion   = "EXT"
	PrefixWeaving     = "WEV"
	PrefixLamination  = "LAM"
	PrefixCutting     = "CUT"
	PrefixSewing      = "SEW"
)

const dayLayout = "20060102"

var (
	prefixPattern = regexp.MustCompile(`^[A-Z]{2,8}$`)
	numberPattern = regexp.MustCompile(`^([A-Z]{2,8})-(\d{8})-(\d{4,})$`)
)

// DocumentNumber is a parsed document number
type DocumentNumber struct {
	Prefix   string
	Day      time.Time
	Sequence int
}

// String renders the number, padding the sequence to four digits
func (n DocumentNumber) String() string {
	return Format(n.Prefix, n.Day, n.Sequence)
}

// Format renders a document number
func Format(prefix string, day time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, day.Format(dayLayout), seq)
}

// Parse is the inverse of Format
func Parse(s string) (DocumentNumber, error) {
	m := numberPattern.FindStringSubmatch(s)
	if m == nil {
		return DocumentNumber{}, shared.NewValidationError("Malformed document number: " + s)
	}
	day, err := time.Parse(dayLayout, m[2])
	if err != nil {
		return DocumentNumber{}, shared.NewValidationError("Malformed document date: " + m[2])
	}
	seq, err := strconv.Atoi(m[3])
	if err != nil || seq < 1 {
		return DocumentNumber{}, shared.NewValidationError("Malformed document sequence: " + m[3])
	}
	return DocumentNumber{Prefix: m[1], Day: day, Sequence: seq}, nil
}

// Day truncates t to the calendar day in its own location
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SequenceRepository hands out per-prefix, per-day sequence values
type SequenceRepository interface {
	// Next atomically increments and returns the sequence for prefix on day, starting at 1
	Next(ctx context.Context, prefix string, day time.Time) (int, error)
}

// Generator produces document numbers backed by a SequenceRepository
type Generator struct {
	repo SequenceRepository
	now  func() time.Time
}

// NewGenerator creates a new Generator
func NewGenerator(repo SequenceRepository) *Generator {
	return &Generator{repo: repo, now: time.Now}
}

// WithClock overrides the clock, used by tests
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Next returns the next document number for prefix
func (g *Generator) Next(ctx context.Context, prefix string) (string, error) {
	if !prefixPattern.MatchString(prefix) {
		return "", shared.NewValidationError("Invalid document prefix: " + prefix)
	}
	day := Day(g.now())
	seq, err := g.repo.Next(ctx, prefix, day)
	if err != nil {
		return "", fmt.Errorf("next %s sequence: %w", prefix, err)
	}
	return Format(prefix, day, seq), nil
}
