package lvq

import "testing"

func TestEncodingRoundTrip(t *testing.T) {
	for _, signedness := range []Signedness{Unsigned, Signed} {
		for bits := 3; bits <= 8; bits++ {
			enc := MustNewEncoding(signedness, bits)
			t.Run(enc.String(), func(t *testing.T) {
				for v := enc.Min(); v <= enc.Max(); v++ {
					b, err := enc.Encode(v)
					if err != nil {
						t.Fatalf("encode(%d): %v", v, err)
					}
					got := enc.Decode(b)
					if got != v {
						t.Fatalf("decode(encode(%d))=%d, want %d", v, got, v)
					}
				}
				if enc.CheckBounds(enc.Max() + 1) {
					t.Fatalf("CheckBounds should reject %d", enc.Max()+1)
				}
				if enc.CheckBounds(enc.Min() - 1) {
					t.Fatalf("CheckBounds should reject %d", enc.Min()-1)
				}
			})
		}
	}
}

// S1 from spec §8: signed 4-bit, encode(-5) == 3, decode(3) == -5,
// check_bounds(8) == false.
func TestEncodingScenarioS1(t *testing.T) {
	enc := MustNewEncoding(Signed, 4)
	b, err := enc.Encode(-5)
	if err != nil {
		t.Fatalf("encode(-5): %v", err)
	}
	if b != 3 {
		t.Fatalf("encode(-5) = %d, want 3", b)
	}
	if enc.Decode(3) != -5 {
		t.Fatalf("decode(3) = %d, want -5", enc.Decode(3))
	}
	if enc.CheckBounds(8) {
		t.Fatalf("check_bounds(8) should be false for signed 4-bit")
	}
}

func TestEncodingSigned8IsTwosComplement(t *testing.T) {
	enc := MustNewEncoding(Signed, 8)
	b, err := enc.Encode(-1)
	if err != nil {
		t.Fatal(err)
	}
	if b != 0xff {
		t.Fatalf("encode(-1) = %#x, want 0xff", b)
	}
	if enc.Decode(0xff) != -1 {
		t.Fatalf("decode(0xff) = %d, want -1", enc.Decode(0xff))
	}
}
