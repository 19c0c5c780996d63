package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// journalEntry mirrors the journal line layout; data stays raw.
type journalEntry struct {
	Seq   uint64          `json:"seq"`
	AtMs  int64           `json:"at_ms"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func eventsCmd(args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	event := fs.String("event", "", "only this notification type (optional)")
	sinceMs := fs.Int64("since_ms", 0, "only entries at or after this unix ms")
	summary := fs.Bool("summary", false, "print counts per notification type instead of entries")
	_ = fs.Parse(args)

	entries, err := readJournal(filepath.Join(*dataDir, "events"), strings.TrimSpace(*event), *sinceMs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read journal:", err)
		os.Exit(1)
	}
	if *summary {
		for _, line := range summarize(entries) {
			fmt.Println(line)
		}
		return
	}
	enc := json.NewEncoder(os.Stdout)
	for _, e := range entries {
		_ = enc.Encode(e)
	}
}

// readJournal decodes every hourly journal file in dir, oldest first.
func readJournal(dir, event string, sinceMs int64) ([]journalEntry, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "events-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var out []journalEntry
	for _, name := range names {
		path := filepath.Join(dir, name)
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		dec, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		sc := bufio.NewScanner(dec)
		sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
		for sc.Scan() {
			var e journalEntry
			if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
				dec.Close()
				_ = f.Close()
				return nil, fmt.Errorf("%s: unmarshal: %w", name, err)
			}
			if event != "" && e.Event != event {
				continue
			}
			if e.AtMs < sinceMs {
				continue
			}
			out = append(out, e)
		}
		err = sc.Err()
		dec.Close()
		_ = f.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func summarize(entries []journalEntry) []string {
	counts := map[string]int{}
	for _, e := range entries {
		counts[e.Event]++
	}
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Strings(names)
	lines := make([]string, 0, len(names))
	for _, n := range names {
		lines = append(lines, fmt.Sprintf("%-20s %d", n, counts[n]))
	}
	return lines
}
