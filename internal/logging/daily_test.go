package logging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	assert.Equal(t, "error-2025-07-04.log", FileName(time.Date(2025, 7, 4, 23, 59, 0, 0, time.UTC)))
}

func TestDailyFile_SwitchesOnNewDay(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	w, err := NewDailyFile(dir)
	require.NoError(t, err)
	defer w.Close()

	first := time.Date(2025, 7, 4, 23, 59, 0, 0, time.Local)
	now := first
	w.now = func() time.Time { return now }

	_, err = w.Write([]byte("first\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("second\n"))
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = w.Write([]byte("third\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	b, err := os.ReadFile(filepath.Join(dir, FileName(first)))
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(b))

	b, err = os.ReadFile(filepath.Join(dir, FileName(now)))
	require.NoError(t, err)
	assert.Equal(t, "third\n", string(b))
}

func TestDailyFile_OnlyLogFilesInDir(t *testing.T) {
	dir := t.TempDir()
	w, err := NewDailyFile(dir)
	require.NoError(t, err)

	days := []time.Time{
		time.Date(2025, 12, 31, 12, 0, 0, 0, time.Local),
		time.Date(2026, 1, 1, 0, 0, 1, 0, time.Local),
	}
	for _, d := range days {
		w.now = func() time.Time { return d }
		_, err = w.Write([]byte("x\n"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{FileName(days[0]), FileName(days[1])}, names)
}

func TestDailyFile_Appends(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, FileName(time.Now()))
	require.NoError(t, os.WriteFile(name, []byte("old\n"), 0o640))

	w, err := NewDailyFile(dir)
	require.NoError(t, err)
	_, err = w.Write([]byte("new\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	b, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, "old\nnew\n", string(b))
}

func TestNewFileLogger(t *testing.T) {
	dir := t.TempDir()
	log, closeFn, err := NewFileLogger(dir, false)
	require.NoError(t, err)

	log.Info(context.Background(), "not written")
	log.Error(context.Background(), "connection lost")
	require.NoError(t, closeFn())

	b, err := os.ReadFile(filepath.Join(dir, FileName(time.Now())))
	require.NoError(t, err)
	assert.NotContains(t, string(b), "not written")
	assert.Contains(t, string(b), "connection lost")
}
