package engine

import "fmt"

// Orientation is the world axis a piece's studs point along. Up is the
// default; the lateral orientations only occur on pieces hung off another
// piece's side connectors.
type Orientation uint8

const (
	OrientUp Orientation = iota
	OrientDown
	OrientPosX
	OrientNegX
	OrientPosZ
	OrientNegZ
)

func (o Orientation) String() string {
	switch o {
	case OrientUp:
		return "up"
	case OrientDown:
		return "down"
	case OrientPosX:
		return "+x"
	case OrientNegX:
		return "-x"
	case OrientPosZ:
		return "+z"
	case OrientNegZ:
		return "-z"
	}
	return fmt.Sprintf("orientation(%d)", uint8(o))
}

func ParseOrientation(s string) (Orientation, error) {
	switch s {
	case "up", "":
		return OrientUp, nil
	case "down":
		return OrientDown, nil
	case "+x":
		return OrientPosX, nil
	case "-x":
		return OrientNegX, nil
	case "+z":
		return OrientPosZ, nil
	case "-z":
		return OrientNegZ, nil
	}
	return 0, fmt.Errorf("unknown orientation %q", s)
}

// RotateOrientation turns a lateral orientation with the group when a rigid
// set is rotated. Up and down are unaffected.
func RotateOrientation(o Orientation, rot int) Orientation {
	if o == OrientUp || o == OrientDown {
		return o
	}
	// Clockwise quarter-turn cycle, matching RotateXZ: +x -> -z -> -x -> +z.
	cycle := [4]Orientation{OrientPosX, OrientNegZ, OrientNegX, OrientPosZ}
	idx := 0
	for i, c := range cycle {
		if c == o {
			idx = i
			break
		}
	}
	return cycle[(idx+NormalizeRotation(rot))&3]
}

// Piece is one placed piece. Pos is the piece center; x/z are always
// grid-quantized and y is always a resolved layer bottom plus half the
// piece's height.
type Piece struct {
	ID          string
	Type        string
	Pos         Vec3
	Rotation    int // quarter turns
	Orientation Orientation
	Color       string
}
