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

	persistlog "brickyard/internal/persistence/log"
	"brickyard/internal/persistence/snapshot"
)

// replay inspects a saved project and audits its edit log: it prints the
// project summary and checks that logged revisions are strictly increasing
// up to the save.

func main() {
	var (
		projPath = flag.String("snapshot", "", "path to .proj.zst")
		editsDir = flag.String("edits", "", "dir containing edits-*.jsonl.zst (optional)")
		fromRev  = flag.Uint64("from_rev", 0, "start auditing from rev (inclusive, optional)")
		toRev    = flag.Uint64("to_rev", 0, "stop at rev (inclusive, optional)")
	)
	flag.Parse()

	if *projPath == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}

	proj, err := snapshot.ReadProject(*projPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read project:", err)
		os.Exit(1)
	}

	fmt.Printf("project v%d id=%s rev=%d pieces=%d saved_unix=%d\n",
		proj.Header.Version, proj.Header.ProjectID, proj.Header.Rev, len(proj.Pieces), proj.Header.SavedUnix)

	if *editsDir == "" {
		return
	}

	files, err := listEditFiles(*editsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list edits:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no edit files found in", *editsDir)
		os.Exit(1)
	}

	opCounts := map[string]uint64{}
	var checked uint64
	var lastRev uint64
	for _, path := range files {
		if err := auditFile(path, *fromRev, *toRev, opCounts, &checked, &lastRev); err != nil {
			fmt.Fprintln(os.Stderr, "audit:", err)
			os.Exit(1)
		}
	}

	ops := make([]string, 0, len(opCounts))
	for op := range opCounts {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	for _, op := range ops {
		fmt.Printf("  %-16s %d\n", op, opCounts[op])
	}
	fmt.Printf("audit ok: checked=%d edits, last rev=%d (save rev=%d)\n", checked, lastRev, proj.Header.Rev)
	if lastRev > proj.Header.Rev {
		fmt.Printf("note: %d edits newer than the save\n", lastRev-proj.Header.Rev)
	}
}

func listEditFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "edits-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func auditFile(path string, fromRev, toRev uint64, opCounts map[string]uint64, checked, lastRev *uint64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	for sc.Scan() {
		var entry persistlog.EditEntry
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		if entry.Rev < fromRev {
			continue
		}
		if toRev != 0 && entry.Rev > toRev {
			return nil
		}
		if *lastRev != 0 && entry.Rev <= *lastRev {
			return fmt.Errorf("rev not increasing at %d (prev=%d, file=%s)", entry.Rev, *lastRev, filepath.Base(path))
		}
		*lastRev = entry.Rev
		opCounts[entry.Op]++
		*checked++
	}
	return sc.Err()
}
