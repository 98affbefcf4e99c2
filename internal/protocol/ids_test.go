package protocol

import "testing"

func TestValidID(t *testing.T) {
	cases := []struct {
		id   string
		want bool
	}{
		{"aaaaaaaaaaaaaaaaaaaaaaaa", true},
		{"0123456789abcdef01234567", true},
		{"AAAAAAAAAAAAAAAAAAAAAAAA", false}, // uppercase not allowed
		{"short", false},
		{"aaaaaaaaaaaaaaaaaaaaaaaaa", false}, // 25 chars
		{"zzzzzzzzzzzzzzzzzzzzzzzz", false},  // not hex
		{"", false},
	}
	for _, c := range cases {
		if got := ValidID(c.id); got != c.want {
			t.Errorf("ValidID(%q) = %v, want %v", c.id, got, c.want)
		}
	}
}
