package morton

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for x := uint32(0); x < 8; x++ {
		for y := uint32(0); y < 8; y++ {
			for z := uint32(0); z < 8; z++ {
				code := Encode(x, y, z)
				gx, gy, gz := Decode(code)
				if gx != x || gy != y || gz != z {
					t.Fatalf("Decode(Encode(%d,%d,%d)) = (%d,%d,%d)", x, y, z, gx, gy, gz)
				}
			}
		}
	}
}

// TestEncodeBijection checks that for all (xb,yb,zb) with each coord <
// 2^L, Encode is a bijection onto [0, 8^L).
func TestEncodeBijection(t *testing.T) {
	const l = 3 // 2^3 = 8 per axis
	n := 1 << l
	seen := make(map[uint32]bool, n*n*n)
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			for z := 0; z < n; z++ {
				code := Encode(uint32(x), uint32(y), uint32(z))
				if code >= uint32(n*n*n) {
					t.Fatalf("code %d out of range [0, %d)", code, n*n*n)
				}
				if seen[code] {
					t.Fatalf("duplicate code %d", code)
				}
				seen[code] = true
			}
		}
	}
	if len(seen) != n*n*n {
		t.Fatalf("got %d distinct codes, want %d", len(seen), n*n*n)
	}
}

func TestEncodeKnownValues(t *testing.T) {
	cases := []struct{ x, y, z, want uint32 }{
		{0, 0, 0, 0},
		{1, 0, 0, 1},
		{0, 1, 0, 2},
		{0, 0, 1, 4},
		{1, 1, 1, 7},
	}
	for _, c := range cases {
		got := Encode(c.x, c.y, c.z)
		if got != c.want {
			t.Fatalf("Encode(%d,%d,%d) = %d, want %d", c.x, c.y, c.z, got, c.want)
		}
	}
}
