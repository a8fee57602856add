package utils

import "testing"

func TestFormatRate(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{65000.12, "65000.1200"},
		{1, "1.0000"},
		{0.99999, "0.999990"},
		{0.0001, "0.000100"},
		{0.00009, "0.00009000"},
		{0.0000153846, "0.00001538"},
		{50000, "50000.0000"},
	}
	for _, tc := range cases {
		if got := FormatRate(tc.in); got != tc.want {
			t.Fatalf("FormatRate(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEscapeMarkdown(t *testing.T) {
	if got := EscapeMarkdown("a_b*c"); got != `a\_b\*c` {
		t.Fatalf("EscapeMarkdown = %q", got)
	}
}
