package blake2b

import "testing"

func TestSum256Deterministic(t *testing.T) {
	a := Sum256([]byte("ethernity"))
	b := Sum256([]byte("ethernity"))
	if a != b {
		t.Fatal("Sum256 not deterministic")
	}
	c := Sum256([]byte("ethernity!"))
	if a == c {
		t.Fatal("Sum256 collided on trivially different input")
	}
}

func TestSum256Length(t *testing.T) {
	d := Sum256(nil)
	if len(d) != Size {
		t.Fatalf("got length %d want %d", len(d), Size)
	}
}
