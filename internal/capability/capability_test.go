package capability

import "testing"

func TestCapability_Equal(t *testing.T) {
	tests := []struct {
		name  string
		a, b  string
		equal bool
	}{
		{"same case", "ALU", "ALU", true},
		{"different case", "alu", "ALU", true},
		{"mixed case", "Alu", "aLU", true},
		{"different capability", "ALU", "MEM", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := New(tt.a), New(tt.b)
			if a.Equal(b) != tt.equal {
				t.Errorf("New(%q).Equal(New(%q)) = %v, want %v", tt.a, tt.b, a.Equal(b), tt.equal)
			}
		})
	}
}

func TestCapability_String(t *testing.T) {
	c := New("Alu")
	if c.String() != "Alu" {
		t.Errorf("String() = %q, want original spelling %q", c.String(), "Alu")
	}
}

func TestSet_Contains(t *testing.T) {
	s := NewSet("ALU", "mem")

	if !s.Contains("alu") {
		t.Error("Contains(\"alu\") = false, want true (case-insensitive)")
	}
	if !s.Contains("MEM") {
		t.Error("Contains(\"MEM\") = false, want true (case-insensitive)")
	}
	if s.Contains("branch") {
		t.Error("Contains(\"branch\") = true, want false")
	}
}

func TestSet_Union(t *testing.T) {
	a := NewSet("ALU")
	b := NewSet("MEM")

	u := a.Union(b)
	if !u.Contains("ALU") || !u.Contains("MEM") {
		t.Errorf("Union() = %v, want both ALU and MEM", u)
	}
	if len(a) != 1 || len(b) != 1 {
		t.Error("Union() should not mutate its operands")
	}
}

func TestSet_Intersects(t *testing.T) {
	a := NewSet("ALU", "MEM")
	b := NewSet("mem", "Branch")
	c := NewSet("FPU")

	if !a.Intersects(b) {
		t.Error("Intersects() = false, want true (shared MEM capability)")
	}
	if a.Intersects(c) {
		t.Error("Intersects() = true, want false")
	}
}

func TestSet_Slice_Deterministic(t *testing.T) {
	s := NewSet("MEM", "ALU", "Branch")

	first := s.Slice()
	second := s.Slice()

	if len(first) != len(second) {
		t.Fatalf("Slice() lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Slice() is not deterministic across calls at index %d: %v vs %v", i, first[i], second[i])
		}
	}
}
