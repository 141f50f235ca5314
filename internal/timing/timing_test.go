package timing

import "testing"

func TestRangeContainsIsHalfOpen(t *testing.T) {
	r := Range{Start: 2, End: 5}

	if !r.Contains(2) {
		t.Error("range should contain its start")
	}
	if r.Contains(5) {
		t.Error("range should not contain its end")
	}
	if r.Duration() != 3 {
		t.Errorf("expected duration 3, got %v", r.Duration())
	}
}

func TestRangeValid(t *testing.T) {
	tests := []struct {
		name string
		r    Range
		want bool
	}{
		{"normal", Range{0, 5}, true},
		{"empty", Range{3, 3}, false},
		{"inverted", Range{4, 3}, false},
		{"negative start", Range{-1, 3}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLerpAndClamp(t *testing.T) {
	if got := Lerp(0, 10, 0.25); got != 2.5 {
		t.Errorf("Lerp = %v, want 2.5", got)
	}
	if got := Clamp(12, 0, 10); got != 10 {
		t.Errorf("Clamp high = %v, want 10", got)
	}
	if got := Clamp(-1, 0, 10); got != 0 {
		t.Errorf("Clamp low = %v, want 0", got)
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := map[float64]string{
		0:     "0",
		5:     "5",
		2.5:   "2.5",
		0.1:   "0.1",
		10.25: "10.25",
	}
	for in, want := range tests {
		if got := FormatSeconds(in); got != want {
			t.Errorf("FormatSeconds(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestMillis(t *testing.T) {
	if got := Millis(1.2345); got != 1235 {
		t.Errorf("Millis = %d, want 1235", got)
	}
	if got := Millis(3); got != 3000 {
		t.Errorf("Millis = %d, want 3000", got)
	}
}

func TestParseLength(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"40px", 40, true},
		{"50%", 50, true},
		{"-12.5px", -12.5, true},
		{" 3 ", 3, true},
		{"auto", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseLength(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseLength(%q) = %v,%v want %v,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
