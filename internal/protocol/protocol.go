package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeCatalog = "CATALOG"
	TypeCmd     = "CMD"
	TypeEvent   = "EVENT"
	TypeState   = "STATE"
	TypeGhost   = "GHOST"
)

// Command ops carried by CMD messages.
const (
	OpHover         = "HOVER"
	OpPlace         = "PLACE"
	OpSelect        = "SELECT"
	OpMoveBegin     = "MOVE_BEGIN"
	OpMoveUpdate    = "MOVE_UPDATE"
	OpMoveConfirm   = "MOVE_CONFIRM"
	OpMoveCancel    = "MOVE_CANCEL"
	OpCopy          = "COPY"
	OpPasteBegin    = "PASTE_BEGIN"
	OpPasteConfirm  = "PASTE_CONFIRM"
	OpRotatePreview = "ROTATE_PREVIEW"
	OpRotateGroup   = "ROTATE_GROUP"
	OpRotateInPlace = "ROTATE_IN_PLACE"
	OpCycleLayer    = "CYCLE_LAYER"
	OpCycleAnchor   = "CYCLE_ANCHOR"
	OpNudge         = "NUDGE"
	OpRecolor       = "RECOLOR"
	OpDelete        = "DELETE"
	OpUndo          = "UNDO"
	OpRedo          = "REDO"
	OpSave          = "SAVE"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
