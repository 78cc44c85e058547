package pagination

import "testing"

func TestNormalizeLimit(t *testing.T) {
	if got := NormalizeLimit(0); got != DefaultLimit {
		t.Fatalf("expected default for zero, got %d", got)
	}
	if got := NormalizeLimit(-5); got != DefaultLimit {
		t.Fatalf("expected default for negative, got %d", got)
	}
	if got := NormalizeLimit(1000); got != MaxLimit {
		t.Fatalf("expected cap, got %d", got)
	}
	if got := NormalizeLimit(10); got != 10 {
		t.Fatalf("expected passthrough, got %d", got)
	}
}

func TestNormalizeClampsOffset(t *testing.T) {
	p := Normalize(Params{Limit: 500, Offset: -1})
	if p.Limit != MaxLimit {
		t.Fatalf("expected capped limit, got %d", p.Limit)
	}
	if p.Offset != 0 {
		t.Fatalf("expected zero offset, got %d", p.Offset)
	}
}
