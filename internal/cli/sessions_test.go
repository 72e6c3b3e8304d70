// ABOUTME: Tests for the sessions listing command.
// ABOUTME: Captures stdout to assert on the rendered table.

package cli

import (
	"io"
	"os"
	"strings"
	"testing"
)

// captureStdout runs fn with os.Stdout redirected and returns what it wrote.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()

	w.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading captured stdout: %v", err)
	}
	return string(data)
}

func TestSessionsCommandEmpty(t *testing.T) {
	isolateEnv(t)
	ts, _ := newTestBackend(t)

	output := captureStdout(t, func() {
		rootCmd.SetArgs([]string{"sessions", "--backend", ts.URL, "--limit", "20"})
		if err := rootCmd.Execute(); err != nil {
			t.Errorf("sessions failed: %v", err)
		}
	})

	if !strings.Contains(output, "No conversations yet") {
		t.Errorf("expected empty-state message, got:\n%s", output)
	}
}

func TestSessionsCommandListsConversations(t *testing.T) {
	isolateEnv(t)
	ts, _ := newTestBackend(t)
	sessionID := startCompletedConversation(t, ts.URL, "rotate the api keys")

	output := captureStdout(t, func() {
		rootCmd.SetArgs([]string{"sessions", "--backend", ts.URL, "--limit", "20"})
		if err := rootCmd.Execute(); err != nil {
			t.Errorf("sessions failed: %v", err)
		}
	})

	for _, want := range []string{"SESSION", "STATUS", sessionID, "completed", "rotate the api keys"} {
		if !strings.Contains(output, want) {
			t.Errorf("table missing %q:\n%s", want, output)
		}
	}
}

func TestSessionsCommandFlags(t *testing.T) {
	if sessionsCmd.Flag("limit") == nil {
		t.Error("sessions command should have --limit flag")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected unchanged string, got %q", got)
	}
	if got := truncate("a very long title that keeps going", 10); got != "a very ..." {
		t.Errorf("unexpected truncation %q", got)
	}
	if len(truncate("a very long title that keeps going", 10)) != 10 {
		t.Error("truncated string should be exactly maxLen")
	}
}
