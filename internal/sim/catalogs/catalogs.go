package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Piece heights in world units. A brick-height piece is exactly three
// plate heights tall.
const (
	BrickHeight = 1.2
	PlateHeight = 0.4
)

type Catalogs struct {
	Pieces PieceCatalog
}

type PieceCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]PieceDef
	PaletteDigest string
	DefsDigest    string
}

// Shape is the closed set of piece silhouettes. Every placement decision
// switches exhaustively over it; adding a shape means visiting each switch.
type Shape uint8

const (
	ShapeBlock Shape = iota
	ShapePlate
	ShapeTile
	ShapeSlope
	ShapeCornerSlope
)

func (s Shape) String() string {
	switch s {
	case ShapeBlock:
		return "block"
	case ShapePlate:
		return "plate"
	case ShapeTile:
		return "tile"
	case ShapeSlope:
		return "slope"
	case ShapeCornerSlope:
		return "corner_slope"
	}
	return fmt.Sprintf("shape(%d)", uint8(s))
}

func ParseShape(s string) (Shape, error) {
	switch s {
	case "block":
		return ShapeBlock, nil
	case "plate":
		return ShapePlate, nil
	case "tile":
		return ShapeTile, nil
	case "slope":
		return ShapeSlope, nil
	case "corner_slope":
		return ShapeCornerSlope, nil
	}
	return 0, fmt.Errorf("unknown shape %q", s)
}

// Plane tags a connection anchor as living on the top or bottom face.
type Plane string

const (
	PlaneTop    Plane = "top"
	PlaneBottom Plane = "bottom"
)

// Side-connector bits, one per lateral face.
const (
	SidePosX uint8 = 1 << iota
	SideNegX
	SidePosZ
	SideNegZ
)

// Anchor is one entry in a piece's connection-point cycle: a local (x,z)
// offset from the piece center, on the given plane. The active anchor is the
// point that snaps to the cursor.
type Anchor struct {
	DX    float64 `json:"dx"`
	DZ    float64 `json:"dz"`
	Plane Plane   `json:"plane"`
}

type PieceDef struct {
	ID       string
	Width    int // studs along local x
	Depth    int // studs along local z
	Shape    Shape
	Inverted bool
	Round    bool // cosmetic only
	Color    string
	SideMask uint8
	Anchors  []Anchor
}

// Height returns the piece's vertical extent in world units.
func (d PieceDef) Height() float64 {
	switch d.Shape {
	case ShapeBlock, ShapeSlope, ShapeCornerSlope:
		return BrickHeight
	case ShapePlate, ShapeTile:
		return PlateHeight
	}
	return BrickHeight
}

// HasTopStuds reports whether any part of the piece's top face carries
// connectors. Tiles are smooth; everything else exposes at least the
// slope's back row.
func (d PieceDef) HasTopStuds() bool {
	switch d.Shape {
	case ShapeTile:
		return false
	case ShapeBlock, ShapePlate, ShapeSlope, ShapeCornerSlope:
		return true
	}
	return false
}

// AnchorCycle returns the piece's connection-point cycle. Pieces that do not
// declare anchors get a single centered top point.
func (d PieceDef) AnchorCycle() []Anchor {
	if len(d.Anchors) > 0 {
		return d.Anchors
	}
	return []Anchor{{DX: 0, DZ: 0, Plane: PlaneTop}}
}

type pieceDefJSON struct {
	ID             string   `json:"id"`
	Width          int      `json:"width"`
	Depth          int      `json:"depth"`
	Shape          string   `json:"shape"`
	Inverted       bool     `json:"inverted,omitempty"`
	Round          bool     `json:"round,omitempty"`
	Color          string   `json:"color"`
	SideConnectors []string `json:"side_connectors,omitempty"`
	Anchors        []Anchor `json:"anchors,omitempty"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadPieces(filepath.Join(configDir, "pieces.json"), &c.Pieces); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadPieces(path string, out *PieceCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []pieceDefJSON
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("pieces.json: %w", err)
	}
	out.Defs = map[string]PieceDef{}
	for _, j := range defs {
		d, err := fromJSON(j)
		if err != nil {
			return fmt.Errorf("pieces.json: %w", err)
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("pieces.json: duplicate id %q", d.ID)
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func fromJSON(j pieceDefJSON) (PieceDef, error) {
	var d PieceDef
	if j.ID == "" {
		return d, fmt.Errorf("empty id")
	}
	if j.Width < 1 || j.Depth < 1 {
		return d, fmt.Errorf("%s: width/depth must be >= 1", j.ID)
	}
	shape, err := ParseShape(j.Shape)
	if err != nil {
		return d, fmt.Errorf("%s: %w", j.ID, err)
	}
	var mask uint8
	for _, s := range j.SideConnectors {
		switch s {
		case "+x":
			mask |= SidePosX
		case "-x":
			mask |= SideNegX
		case "+z":
			mask |= SidePosZ
		case "-z":
			mask |= SideNegZ
		default:
			return d, fmt.Errorf("%s: unknown side connector %q", j.ID, s)
		}
	}
	for _, a := range j.Anchors {
		if a.Plane != PlaneTop && a.Plane != PlaneBottom {
			return d, fmt.Errorf("%s: unknown anchor plane %q", j.ID, a.Plane)
		}
	}
	d = PieceDef{
		ID:       j.ID,
		Width:    j.Width,
		Depth:    j.Depth,
		Shape:    shape,
		Inverted: j.Inverted,
		Round:    j.Round,
		Color:    j.Color,
		SideMask: mask,
		Anchors:  j.Anchors,
	}
	return d, nil
}
