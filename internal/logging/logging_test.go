package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyFileRotatesOnDateChange(t *testing.T) {
	dir := t.TempDir()
	current := time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC)
	d := &DailyFile{dir: dir, retentionDays: 7, now: func() time.Time { return current }}
	require.NoError(t, d.rotate(current.Format(dateLayout)))
	defer d.Close()

	_, err := d.Write([]byte("first\n"))
	require.NoError(t, err)
	current = current.Add(2 * time.Minute)
	_, err = d.Write([]byte("second\n"))
	require.NoError(t, err)

	first, err := os.ReadFile(filepath.Join(dir, "app-2024-05-01.log"))
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(dir, "app-2024-05-02.log"))
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(first))
	assert.Equal(t, "second\n", string(second))
}

func TestCleanupOldLogsKeepsRetentionWindow(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"app-2024-04-20.log", "app-2024-04-25.log", "app-2024-05-01.log", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	cleanupOldLogs(dir, 7, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := []string{}
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	assert.ElementsMatch(t, []string{"app-2024-04-25.log", "app-2024-05-01.log", "notes.txt"}, names)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, _, err := New("loud", "", 7)
	require.Error(t, err)
}
