package ws

import (
	"brickyard/internal/protocol"
	"brickyard/internal/sim/catalogs"
)

// wireDef is the client-facing shape of a piece definition. It mirrors the
// pieces.json entry so clients can render and pick without a second fetch.
type wireDef struct {
	ID             string            `json:"id"`
	Width          int               `json:"width"`
	Depth          int               `json:"depth"`
	Shape          string            `json:"shape"`
	Inverted       bool              `json:"inverted,omitempty"`
	Round          bool              `json:"round,omitempty"`
	Color          string            `json:"color"`
	Height         float64           `json:"height"`
	SideConnectors []string          `json:"side_connectors,omitempty"`
	Anchors        []catalogs.Anchor `json:"anchors,omitempty"`
}

func pieceCatalogMsg(cat catalogs.PieceCatalog) protocol.CatalogMsg {
	defs := make([]wireDef, 0, len(cat.Palette))
	for _, id := range cat.Palette {
		d := cat.Defs[id]
		defs = append(defs, wireDef{
			ID:             d.ID,
			Width:          d.Width,
			Depth:          d.Depth,
			Shape:          d.Shape.String(),
			Inverted:       d.Inverted,
			Round:          d.Round,
			Color:          d.Color,
			Height:         d.Height(),
			SideConnectors: sideNames(d.SideMask),
			Anchors:        d.Anchors,
		})
	}
	return protocol.CatalogMsg{
		Type:            protocol.TypeCatalog,
		ProtocolVersion: protocol.Version,
		Name:            "piece_palette",
		Digest:          cat.DefsDigest,
		Data:            defs,
	}
}

func sideNames(mask uint8) []string {
	var out []string
	if mask&catalogs.SidePosX != 0 {
		out = append(out, "+x")
	}
	if mask&catalogs.SideNegX != 0 {
		out = append(out, "-x")
	}
	if mask&catalogs.SidePosZ != 0 {
		out = append(out, "+z")
	}
	if mask&catalogs.SideNegZ != 0 {
		out = append(out, "-z")
	}
	return out
}
