package conn

import "testing"

func TestXidGeneratorStrictlyPositiveAndIncreasing(t *testing.T) {
	g := newXidGenerator()
	prev := int32(0)
	for i := 0; i < 1000; i++ {
		v := g.Next()
		if v <= 0 {
			t.Fatalf("xid %d not strictly positive", v)
		}
		if v <= prev {
			t.Fatalf("xid %d did not increase from %d", v, prev)
		}
		prev = v
	}
}

func TestXidGeneratorWrapsPastOverflow(t *testing.T) {
	g := &xidGenerator{next: 1<<31 - 2}
	first := g.Next()
	if first <= 0 {
		t.Fatalf("expected a strictly positive xid before wrap, got %d", first)
	}
	second := g.Next()
	if second <= 0 {
		t.Fatalf("expected a strictly positive xid after wrap, got %d", second)
	}
}
