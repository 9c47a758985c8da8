package logx

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewLevelAndFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New(&buf, Config{Service: "svc"})
	l.Debug().Msg("hidden")
	l.Info().Str("thread_id", "t-1").Msg("visible")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("lines = %q", lines)
	}
	var entry map[string]any
	if err := json.Unmarshal(lines[0], &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry["service"] != "svc" || entry["thread_id"] != "t-1" || entry["level"] != "info" {
		t.Fatalf("entry = %v", entry)
	}
	if _, ok := entry["caller"]; !ok {
		t.Fatalf("caller missing: %v", entry)
	}
}

func TestNewDebug(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New(&buf, Config{Debug: true})
	l.Debug().Msg("shown")
	if !bytes.Contains(buf.Bytes(), []byte(`"message":"shown"`)) {
		t.Fatalf("debug line missing: %s", buf.String())
	}
}
