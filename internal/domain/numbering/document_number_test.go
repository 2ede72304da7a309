package numbering

import (
	"context"
	"testing"
	"time"

	"github.com/fibc/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSequences struct {
	values map[string]int
}

func (m *memSequences) Next(_ context.Context, prefix string, day time.Time) (int, error) {
	key := prefix + day.Format(dayLayout)
	m.values[key]++
	return m.values[key], nil
}

func TestFormatAndParse(t *testing.T) {
	day := time.Date(2025, 3, 7, 15, 4, 0, 0, time.UTC)
	s := Format("WEV", day, 12)
	assert.Equal(t, "WEV-20250307-0012", s)

	n, err := Parse(s)
	require.NoError(t, err)
	assert.Equal(t, "WEV", n.Prefix)
	assert.Equal(t, 12, n.Sequence)
	assert.Equal(t, s, n.String())

	n, err = Parse("ORD-20250307-12345")
	require.NoError(t, err)
	assert.Equal(t, 12345, n.Sequence)
}

func TestParse_Invalid(t *testing.T) {
	tests := []string{"", "WEV-2025037-0001", "wev-20250307-0001", "WEV-20251307-0001", "WEV-20250307-0000", "WEV20250307-0001"}
	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			_, err := Parse(s)
			assert.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestGenerator_ResetsDaily(t *testing.T) {
	repo := &memSequences{values: map[string]int{}}
	now := time.Date(2025, 3, 7, 23, 59, 0, 0, time.UTC)
	g := NewGenerator(repo).WithClock(func() time.Time { return now })
	ctx := context.Background()

	first, err := g.Next(ctx, PrefixOrder)
	require.NoError(t, err)
	second, err := g.Next(ctx, PrefixOrder)
	require.NoError(t, err)
	other, err := g.Next(ctx, PrefixShift)
	require.NoError(t, err)

	assert.Equal(t, "ORD-20250307-0001", first)
	assert.Equal(t, "ORD-20250307-0002", second)
	assert.Equal(t, "SHF-20250307-0001", other)

	now = now.Add(2 * time.Minute)
	next, err := g.Next(ctx, PrefixOrder)
	require.NoError(t, err)
	assert.Equal(t, "ORD-20250308-0001", next)

	_, err = g.Next(ctx, "bad prefix")
	assert.ErrorIs(t, err, shared.ErrValidation)
}
