package report

import "testing"

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"500000", "500.000"},
		{"5000000", "5.000.000"},
		{"1", "1"},
		{"12", "12"},
		{"123", "123"},
		{"1234", "1.234"},
		{"1 200 000", "1.200.000"},
		{"1,200,000", "1.200.000"},
		{"sum 4500000", "4.500.000"},
	}
	for _, c := range cases {
		if got := FormatAmount(c.in); got != c.want {
			t.Errorf("FormatAmount(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatAmountIdempotent(t *testing.T) {
	once := FormatAmount("7250000")
	twice := FormatAmount(once)
	if once != twice {
		t.Errorf("FormatAmount not idempotent: %q -> %q", once, twice)
	}
}

func TestFormatAmountNoDigits(t *testing.T) {
	if got := FormatAmount("n/a"); got != "n/a" {
		t.Errorf("FormatAmount(%q) = %q, want input unchanged", "n/a", got)
	}
}
