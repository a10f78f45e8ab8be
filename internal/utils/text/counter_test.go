package text

import "testing"

func TestCountRunes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{name: "empty", in: "", want: 0},
		{name: "ascii", in: "Buy now", want: 7},
		{name: "accented", in: "café crème", want: 10},
		{name: "japanese", in: "こんにちは", want: 5},
		{name: "emoji", in: "Sale 🎉", want: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountRunes(tt.in); got != tt.want {
				t.Errorf("CountRunes(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
