package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var auditLine = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3} - .+$`)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(raw), "\n"), "\n")
}

func TestAuditLogDrainsOnStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "system.log")
	audit := NewAuditLog(path, 20*time.Millisecond, nil)

	for i := 0; i < 50; i++ {
		audit.Log(fmt.Sprintf("entry %d", i))
	}
	audit.Start()
	audit.Stop()

	lines := readLines(t, path)
	require.Len(t, lines, 50)
	for i, line := range lines {
		assert.Regexp(t, auditLine, line)
		assert.True(t, strings.HasSuffix(line, fmt.Sprintf(" - entry %d", i)), line)
	}
	assert.Equal(t, 0, audit.Pending())
}

func TestAuditLogIgnoresEntriesAfterStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "system.log")
	audit := NewAuditLog(path, 20*time.Millisecond, nil)
	audit.Start()

	audit.Log("System started.")
	audit.Stop()
	audit.Log("too late")
	audit.Stop()

	assert.Equal(t, []string{"System started."}, stripTimestamps(readLines(t, path)))
}

func TestAuditLogWritesWhileRunning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "system.log")
	audit := NewAuditLog(path, 10*time.Millisecond, nil)
	audit.Start()
	defer audit.Stop()

	audit.Log("Order #1000 placed on Table 3")

	assert.Eventually(t, func() bool {
		raw, err := os.ReadFile(path)
		return err == nil && strings.Contains(string(raw), "Order #1000 placed on Table 3")
	}, time.Second, 10*time.Millisecond)
}

func TestAuditLogTimestampFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "system.log")
	audit := NewAuditLog(path, 10*time.Millisecond, nil)
	audit.now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 123_000_000, time.UTC) }

	audit.Log("Table 2 cleaned")
	audit.Stop()

	assert.Equal(t, []string{"2024-05-01T09:30:00.123 - Table 2 cleaned"}, readLines(t, path))
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerTo("ordering", "debug", &buf)

	log.Info("order_submitted", "req-1", "Order submitted")
	log.Error("save_failed", "req-2", "Save failed", errors.New("disk full"))
	require.NoError(t, log.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "ordering", entry["service"])
	assert.Equal(t, "order_submitted", entry["action"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "Order submitted", entry["message"])

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	assert.Equal(t, "disk full", entry["error"])
	assert.Equal(t, "error", entry["level"])
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerTo("ordering", "warn", &buf)

	log.Info("ignored", "", "not written")
	log.Debug("ignored", "", "not written")
	log.Warn("kept", "", "written")

	assert.Equal(t, 1, strings.Count(strings.TrimSpace(buf.String()), "\n")+1)
	assert.Contains(t, buf.String(), "written")
	assert.NotEmpty(t, GenerateRequestID())
}

func stripTimestamps(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, msg, ok := strings.Cut(line, " - "); ok {
			out = append(out, msg)
		}
	}
	return out
}
