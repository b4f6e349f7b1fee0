package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fidde/logexplorer/internal/config"
	"github.com/fidde/logexplorer/internal/session"
)

func writeTempFile(t *testing.T, lines []string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func newCache(t *testing.T) *session.Cache {
	t.Helper()
	c, err := session.New(config.Default().SessionCacheCapacity)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	return c
}

func TestRunDispatchesOverview(t *testing.T) {
	path := writeTempFile(t, []string{"one line", "two line"})

	reqLine, err := json.Marshal(request{
		ID:   json.RawMessage(`1`),
		Op:   "overview",
		Args: json.RawMessage(`{"File":"` + path + `"}`),
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	var out bytes.Buffer
	run(context.Background(), newCache(t), config.Default(), bytes.NewReader(reqLine), &out)

	var resp response
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp); err != nil {
		t.Fatalf("unmarshal response: %v (raw: %s)", err, out.String())
	}
	if resp.Error != "" {
		t.Fatalf("unexpected transport error: %s", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("Result is %T, want a decoded overview object", resp.Result)
	}
	if result["total_lines"].(float64) != 2 {
		t.Errorf("total_lines = %v, want 2", result["total_lines"])
	}
}

func TestRunUnknownOperation(t *testing.T) {
	reqLine := []byte(`{"op":"no_such_op","args":{}}`)

	var out bytes.Buffer
	run(context.Background(), newCache(t), config.Default(), bytes.NewReader(reqLine), &out)

	var resp response
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !strings.Contains(resp.Error, "unknown operation") {
		t.Errorf("Error = %q, want it to mention the unknown operation", resp.Error)
	}
}

func TestRunMalformedJSON(t *testing.T) {
	reqLine := []byte(`not json`)

	var out bytes.Buffer
	run(context.Background(), newCache(t), config.Default(), bytes.NewReader(reqLine), &out)

	var resp response
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !strings.Contains(resp.Error, "invalid request") {
		t.Errorf("Error = %q, want it to mention an invalid request", resp.Error)
	}
}

func TestRunSkipsBlankLines(t *testing.T) {
	reqLine := []byte("\n   \n" + `{"op":"no_such_op","args":{}}` + "\n")

	var out bytes.Buffer
	run(context.Background(), newCache(t), config.Default(), bytes.NewReader(reqLine), &out)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d response lines, want 1 (blank input lines should produce no output)", len(lines))
	}
}
