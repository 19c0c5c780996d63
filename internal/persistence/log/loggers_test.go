package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
)

func readLines(t *testing.T, path string) []EventEntry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	var out []EventEntry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var e EventEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func TestEventLogger_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	l := NewEventLogger(dir)
	now := time.Date(2025, 3, 1, 10, 59, 0, 0, time.UTC)
	l.w.now = func() time.Time { return now }

	if err := l.WriteEvent(EventEntry{Seq: 1, AtMs: 1, Event: "itemAdded"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.WriteEvent(EventEntry{Seq: 2, AtMs: 2, Event: "xpAdded"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if err := l.WriteEvent(EventEntry{Seq: 3, AtMs: 3, Event: "leveledUp"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	first := readLines(t, filepath.Join(dir, "events", "events-2025-03-01-10.jsonl.zst"))
	if len(first) != 2 || first[0].Event != "itemAdded" || first[1].Seq != 2 {
		t.Fatalf("first hour: %+v", first)
	}
	second := readLines(t, filepath.Join(dir, "events", "events-2025-03-01-11.jsonl.zst"))
	if len(second) != 1 || second[0].Event != "leveledUp" {
		t.Fatalf("second hour: %+v", second)
	}
}
