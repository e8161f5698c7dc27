package cycle

import (
	"errors"
	"testing"
)

func TestAbsMod(t *testing.T) {
	tests := []struct {
		v, d, want int
	}{
		{-1, 4, 3},
		{5, 4, 1},
		{0, 4, 0},
		{-8, 4, 0},
		{-9, 4, 3},
	}
	for _, tt := range tests {
		if got := AbsMod(tt.v, tt.d); got != tt.want {
			t.Errorf("AbsMod(%d, %d) = %d, want %d", tt.v, tt.d, got, tt.want)
		}
	}
}

type phase string

var phases = []phase{"input", "update", "render"}

func TestNext(t *testing.T) {
	if got := Next(phases, "input"); got != "update" {
		t.Errorf("Next(input) = %q, want update", got)
	}
	if got := Next(phases, "render"); got != "input" {
		t.Errorf("Next(render) = %q, want input", got)
	}
	if got := Next(phases, "bogus"); got != "input" {
		t.Errorf("Next(bogus) = %q, want input", got)
	}
}

func TestPrev(t *testing.T) {
	got, err := Prev(phases, "input")
	if err != nil {
		t.Fatalf("Prev(input) error: %v", err)
	}
	if got != "render" {
		t.Errorf("Prev(input) = %q, want render", got)
	}

	if _, err := Prev(phases, "bogus"); !errors.Is(err, ErrValueNotFound) {
		t.Errorf("Prev(bogus) error = %v, want ErrValueNotFound", err)
	}
}
