package report

import "testing"

func TestValidText(t *testing.T) {
	if ValidText("ab", MinClientNameLen) {
		t.Error("two characters passed the client-name minimum")
	}
	if !ValidText("abc", MinClientNameLen) {
		t.Error("three characters failed the client-name minimum")
	}
	if ValidText("  a  ", MinProductLen) {
		t.Error("padding counted toward the minimum length")
	}
	if !ValidText("Tashkent, Chilonzor 5", MinLocationLen) {
		t.Error("a full address failed the location minimum")
	}
}

func TestValidTextCountsRunesNotBytes(t *testing.T) {
	// Cyrillic is two bytes per character; the minimums are character
	// counts, so byte length must not be what is measured.
	if ValidText("Ёж", MinClientNameLen) {
		t.Error("two Cyrillic characters passed the client-name minimum")
	}
	if !ValidText("Али", MinClientNameLen) {
		t.Error("three Cyrillic characters failed the client-name minimum")
	}
	if ValidText("Тошкент", MinLocationLen) {
		t.Error("a seven-character address passed the location minimum")
	}
	if !ValidText("Тошкент, Юнусобод", MinLocationLen) {
		t.Error("a full Cyrillic address failed the location minimum")
	}
}

func TestValidPhone(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"+998901234567", true},
		{"90 123 45 67", true}, // exactly 9 digits
		{"90 123 45 6", false}, // 8 digits
		{"901234567", true},
		{"(90) 123-45-678", true},
		{"call me", false},
		{"", false},
	}
	for _, c := range cases {
		if got := ValidPhone(c.in); got != c.want {
			t.Errorf("ValidPhone(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestValidAmount(t *testing.T) {
	if !ValidAmount("5000000") {
		t.Error("plain digits rejected")
	}
	if !ValidAmount("sum 500") {
		t.Error("digits with prose rejected")
	}
	if ValidAmount("soon") {
		t.Error("no digits accepted")
	}
}
