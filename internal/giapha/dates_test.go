package giapha

import "testing"

func TestNormalizeDate(t *testing.T) {
	tests := []struct{ in, want string }{
		{"15/3/1920", "1920-03-15"},
		{"5/12/2001", "2001-12-05"},
		{"15-3-1920", "1920-03-15"},
		{"1920", "1920-01-01"},
		{"chưa rõ", ""},
		{"Không rõ", ""},
		{"32/1/1920", ""},
		{"1/13/1920", ""},
		{"ngày rằm tháng giêng", ""},
		{"", ""},
		{"  1954  ", "1954-01-01"},
	}
	for _, tt := range tests {
		if got := NormalizeDate(tt.in); got != tt.want {
			t.Errorf("NormalizeDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseIntOr(t *testing.T) {
	tests := []struct {
		in       string
		fallback int
		want     int
	}{
		{"5", 0, 5},
		{"đời thứ 3", 0, 3},
		{"không rõ", 0, 0},
		{"", 7, 7},
	}
	for _, tt := range tests {
		if got := parseIntOr(tt.in, tt.fallback); got != tt.want {
			t.Errorf("parseIntOr(%q, %d) = %d, want %d", tt.in, tt.fallback, got, tt.want)
		}
	}
}
