package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestEditLoggerWritesReadableJSONL(t *testing.T) {
	dir := t.TempDir()
	lg := NewEditLogger(dir)

	entries := []EditEntry{
		{Rev: 1, Op: "PLACE", Session: "s1", PieceIDs: []string{"a"}, Type: "brick_2x4", AtUnix: 1700000000},
		{Rev: 2, Op: "RECOLOR", Session: "s1", PieceIDs: []string{"a"}, Color: "#c91a09", AtUnix: 1700000001},
	}
	for _, e := range entries {
		if err := lg.WriteEdit(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := lg.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "edits", "edits-*.jsonl.zst"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("log files = %v, err=%v", matches, err)
	}

	f, err := os.Open(matches[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	zr, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer zr.Close()

	var got []EditEntry
	sc := bufio.NewScanner(zr)
	for sc.Scan() {
		var e EditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		got = append(got, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("entries = %d, want %d", len(got), len(entries))
	}
	for i, e := range entries {
		if got[i].Rev != e.Rev || got[i].Op != e.Op || got[i].Color != e.Color {
			t.Fatalf("entry %d = %+v, want %+v", i, got[i], e)
		}
	}
}

func TestEditEntryOmitsEmptyFields(t *testing.T) {
	b, err := json.Marshal(EditEntry{Rev: 3, Op: "UNDO", AtUnix: 1})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	for _, field := range []string{"session", "piece_ids", "piece_type", "color"} {
		if strings.Contains(s, field) {
			t.Fatalf("field %q not omitted: %s", field, s)
		}
	}
}
