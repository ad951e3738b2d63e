package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/jmcleod/sqlconsole/audit"
)

func sampleEntries() []audit.Entry {
	return []audit.Entry{
		{
			ID:         "b2f1",
			Event:      "query_executed",
			RemoteAddr: "10.0.0.5:41812",
			CreatedAt:  "2026-08-28T10:15:00Z",
		},
		{
			ID:         "a0c3",
			Event:      "procedure_executed",
			RemoteAddr: "10.0.0.5:41812",
			Detail:     "finance.close_books",
			CreatedAt:  "2026-08-28T10:14:30Z",
		},
	}
}

func TestRenderEntriesTable(t *testing.T) {
	var buf bytes.Buffer
	if err := renderEntries(&buf, sampleEntries(), false); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header plus 2 entries:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "TIME") {
		t.Fatalf("missing header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "query_executed") {
		t.Fatalf("first entry not newest: %q", lines[1])
	}
	if !strings.Contains(lines[2], "finance.close_books") {
		t.Fatalf("detail column missing: %q", lines[2])
	}
}

func TestRenderEntriesJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := renderEntries(&buf, sampleEntries(), true); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	for _, line := range lines {
		var e audit.Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("line is not standalone JSON: %q: %v", line, err)
		}
	}
}

func TestRenderEntriesEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := renderEntries(&buf, nil, false); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "TIME") {
		t.Fatal("empty log still prints the header")
	}
}
