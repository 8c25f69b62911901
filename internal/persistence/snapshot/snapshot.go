package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// Header is duplicated as a plain JSON first line so tools can identify a
// file without pulling in the gob decoder.
type Header struct {
	Version   int    `json:"version"`
	ProjectID string `json:"project_id"`
	Rev       uint64 `json:"rev"`
	SavedUnix int64  `json:"saved_unix"`
}

// ProjectV1 is a full saved project: the committed piece list plus the small
// session fields worth restoring (what was on the cursor when the user left).
type ProjectV1 struct {
	Header Header `json:"header"`

	Pieces []PieceV1 `json:"pieces"`

	SelectedType   string `json:"selected_type,omitempty"`
	SelectedRot    int    `json:"selected_rot,omitempty"`
	SelectedColor  string `json:"selected_color,omitempty"`
	SelectedAnchor int    `json:"selected_anchor,omitempty"`
}

type PieceV1 struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Pos         [3]float64 `json:"pos"`
	Rotation    int        `json:"rotation"`
	Orientation string     `json:"orientation,omitempty"`
	Color       string     `json:"color,omitempty"`
}

func WriteProject(path string, proj ProjectV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(proj.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&proj); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadProject(path string) (ProjectV1, error) {
	var proj ProjectV1
	f, err := os.Open(path)
	if err != nil {
		return proj, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return proj, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Skip the header line; gob carries the header too.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&proj); err != nil {
		return proj, fmt.Errorf("gob decode: %w", err)
	}
	return proj, nil
}
