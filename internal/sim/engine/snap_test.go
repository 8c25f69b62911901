package engine_test

import (
	"testing"

	"brickyard/internal/sim/engine"
)

func TestSnap(t *testing.T) {
	cases := []struct {
		name           string
		x, z           float64
		width, depth   int
		rot            int
		wantX, wantZ   float64
	}{
		{"even_even_origin", 0.3, -0.2, 2, 4, 0, 0, 0},
		{"even_even_offset", 1.6, 2.4, 2, 4, 0, 2, 2},
		{"odd_odd", 0.3, 0.3, 1, 1, 0, 0.5, 0.5},
		{"odd_odd_negative", -0.2, -0.7, 1, 1, 0, 0.5, -0.5},
		{"odd_even", 0.1, 0.1, 1, 2, 0, 0.5, 0},
		{"odd_even_rot1_swaps", 0.1, 0.1, 1, 2, 0, 0.5, 0},
		{"rot_swaps_extents", 0.1, 0.1, 1, 2, 1, 0, 0.5},
		{"rot2_same_as_rot0", 0.1, 0.1, 1, 2, 2, 0.5, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gx, gz := engine.Snap(tc.x, tc.z, tc.width, tc.depth, tc.rot)
			if !approx(gx, tc.wantX) || !approx(gz, tc.wantZ) {
				t.Fatalf("Snap(%v,%v,%d,%d,rot=%d) = (%v,%v), want (%v,%v)",
					tc.x, tc.z, tc.width, tc.depth, tc.rot, gx, gz, tc.wantX, tc.wantZ)
			}
		})
	}
}

func TestSnapIdempotent(t *testing.T) {
	pts := []struct{ x, z float64 }{{0.3, -0.2}, {1.9, 7.4}, {-3.3, 0.0}, {0.5, 0.5}}
	for _, pt := range pts {
		for _, dims := range [][2]int{{1, 1}, {2, 4}, {1, 2}, {2, 2}} {
			for rot := 0; rot < 4; rot++ {
				x1, z1 := engine.Snap(pt.x, pt.z, dims[0], dims[1], rot)
				x2, z2 := engine.Snap(x1, z1, dims[0], dims[1], rot)
				if !approx(x1, x2) || !approx(z1, z2) {
					t.Fatalf("re-snap moved (%v,%v) dims=%v rot=%d: (%v,%v) -> (%v,%v)",
						pt.x, pt.z, dims, rot, x1, z1, x2, z2)
				}
			}
		}
	}
}

func TestNormalizeRotation(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 0}, {1, 1}, {3, 3}, {4, 0}, {5, 1}, {-1, 3}, {-5, 3},
		{90, 1}, {180, 2}, {270, 3}, {360, 0}, {-90, 3},
	}
	for _, tc := range cases {
		if got := engine.NormalizeRotation(tc.in); got != tc.want {
			t.Fatalf("NormalizeRotation(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestRotateXZ(t *testing.T) {
	x, z := 1.0, 0.0
	seen := [][2]float64{}
	for rot := 0; rot < 4; rot++ {
		rx, rz := engine.RotateXZ(x, z, rot)
		seen = append(seen, [2]float64{rx, rz})
	}
	want := [][2]float64{{1, 0}, {0, -1}, {-1, 0}, {0, 1}}
	for i := range want {
		if !approx(seen[i][0], want[i][0]) || !approx(seen[i][1], want[i][1]) {
			t.Fatalf("RotateXZ(1,0,%d) = %v, want %v", i, seen[i], want[i])
		}
	}
	// Four quarter-turns compose to identity.
	rx, rz := 1.3, -2.7
	for i := 0; i < 4; i++ {
		rx, rz = engine.RotateXZ(rx, rz, 1)
	}
	if !approx(rx, 1.3) || !approx(rz, -2.7) {
		t.Fatalf("four quarter turns moved the point: (%v,%v)", rx, rz)
	}
}
