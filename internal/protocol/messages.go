package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
	Project         string `json:"project,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	ProjectID       string         `json:"project_id"`
	Params          SessionParams  `json:"params"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type SessionParams struct {
	GridUnit     float64 `json:"grid_unit"`
	MaxPieces    int     `json:"max_pieces"`
	MaxUndoDepth int     `json:"max_undo_depth"`
	MaxGroupSize int     `json:"max_group_size"`
}

type CatalogDigests struct {
	PiecePalette DigestRef `json:"piece_palette"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// CATALOG (server -> client): one catalog payload sent after WELCOME.
type CatalogMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Name            string      `json:"name"`   // e.g. "piece_palette"
	Digest          string      `json:"digest"` // sha256 hex
	Data            interface{} `json:"data"`
}

// CMD (client -> server): one editor command. Which fields are meaningful
// depends on Op; handlers validate and reject what they don't understand.
type CmdMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"` // echoed back in ACTION_RESULT
	Op              string `json:"op"`

	PieceType string      `json:"piece_type,omitempty"`
	Point     *[2]float64 `json:"point,omitempty"` // world-space cursor (x,z)
	Hit       *RaycastHit `json:"hit,omitempty"`
	Rotation  int         `json:"rotation,omitempty"`
	Color     string      `json:"color,omitempty"`
	IDs       []string    `json:"ids,omitempty"`
	Step      int         `json:"step,omitempty"` // CYCLE_LAYER / CYCLE_ANCHOR
	DX        int         `json:"dx,omitempty"`   // NUDGE, in studs
	DY        int         `json:"dy,omitempty"`   // NUDGE, in plate heights
	DZ        int         `json:"dz,omitempty"`   // NUDGE, in studs
}

// RaycastHit describes what the client's cursor ray struck. The piece is
// referenced by id only; the engine resolves it against the current world.
type RaycastHit struct {
	Point   [3]float64 `json:"point"`
	Normal  [3]float64 `json:"normal"`
	PieceID string     `json:"piece_id,omitempty"`
	Ground  bool       `json:"ground,omitempty"`
	TopFace bool       `json:"top_face,omitempty"`
}

// EVENT (server -> client)
type Event map[string]any

type EventMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Events          []Event `json:"events"`
}

// STATE (server -> client): the committed world.
type StateMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Rev             uint64       `json:"rev"`
	Pieces          []PieceState `json:"pieces"`
	Selection       []string     `json:"selection,omitempty"`
	CanUndo         bool         `json:"can_undo"`
	CanRedo         bool         `json:"can_redo"`
}

// GHOST (server -> client): a non-committed preview.
type GhostMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Pieces          []PieceState `json:"pieces"`
	Valid           bool         `json:"valid"`
	Fallback        bool         `json:"fallback,omitempty"`
}

type PieceState struct {
	ID          string     `json:"id"`
	PieceType   string     `json:"piece_type"`
	Pos         [3]float64 `json:"pos"`
	Rotation    int        `json:"rotation"`
	Orientation string     `json:"orientation"`
	Color       string     `json:"color"`
}
