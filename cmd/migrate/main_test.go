package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMigrator struct {
	calls   []string
	steps   int
	version uint
	forced  int
}

func (f *fakeMigrator) Up() error {
	f.calls = append(f.calls, "up")
	return nil
}

func (f *fakeMigrator) Down() error {
	f.calls = append(f.calls, "down")
	return nil
}

func (f *fakeMigrator) Steps(n int) error {
	f.calls = append(f.calls, "steps")
	f.steps = n
	return nil
}

func (f *fakeMigrator) GoTo(v uint) error {
	f.calls = append(f.calls, "goto")
	f.version = v
	return nil
}

func (f *fakeMigrator) Version() (uint, bool, error) { return 2, false, nil }

func (f *fakeMigrator) Force(v int) error {
	f.calls = append(f.calls, "force")
	f.forced = v
	return nil
}

func TestApply(t *testing.T) {
	log := zap.NewNop()

	m := &fakeMigrator{}
	require.NoError(t, apply(m, []string{"up"}, log))
	require.NoError(t, apply(m, []string{"step", "-1"}, log))
	require.NoError(t, apply(m, []string{"goto", "2"}, log))
	require.NoError(t, apply(m, []string{"force", "1"}, log))
	require.NoError(t, apply(m, []string{"version"}, log))

	assert.Equal(t, []string{"up", "steps", "goto", "force"}, m.calls)
	assert.Equal(t, -1, m.steps)
	assert.Equal(t, uint(2), m.version)
	assert.Equal(t, 1, m.forced)
}

func TestApply_BadArguments(t *testing.T) {
	log := zap.NewNop()
	m := &fakeMigrator{}

	assert.ErrorIs(t, apply(m, []string{"step"}, log), errUsage)
	assert.ErrorIs(t, apply(m, []string{"rebuild"}, log), errUsage)
	assert.Error(t, apply(m, []string{"goto", "latest"}, log))
	assert.Empty(t, m.calls)
}

func TestRun_NoCommand(t *testing.T) {
	assert.True(t, errors.Is(run(nil, "", &bytes.Buffer{}, zap.NewNop()), errUsage))
}

func TestRun_ListEmbedded(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"list"}, "", &out, zap.NewNop()))
	assert.Equal(t, "000001_init_schema\n000002_seed_reference_data\n", out.String())
}

func TestRun_CreateThenList(t *testing.T) {
	dir := t.TempDir()
	log := zap.NewNop()

	require.NoError(t, run([]string{"create", "shift notes"}, dir, &bytes.Buffer{}, log))
	_, err := os.Stat(filepath.Join(dir, "000001_shift_notes.up.sql"))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, run([]string{"list"}, dir, &out, log))
	assert.Equal(t, "000001_shift_notes\n", out.String())

	assert.ErrorIs(t, run([]string{"create"}, dir, &out, log), errUsage)
}
