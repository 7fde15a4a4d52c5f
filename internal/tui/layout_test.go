package tui

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestFitCellHandlesWideRunes(t *testing.T) {
	got := fitCell("微積分甲", 7)
	if runewidth.StringWidth(got) != 7 {
		t.Fatalf("expected width 7, got %d (%q)", runewidth.StringWidth(got), got)
	}
	if got != "微積分 " {
		t.Fatalf("unexpected cell %q", got)
	}
	if got := fitCell("Art", 6); got != "Art   " {
		t.Fatalf("unexpected padded cell %q", got)
	}
}

func TestTruncateLine(t *testing.T) {
	if got := truncateLine("Linear Algebra", 10); got != "Linear ..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := truncateLine("Art", 10); got != "Art" {
		t.Fatalf("expected short line untouched, got %q", got)
	}
	if got := truncateLine("Linear", 2); got != "Li" {
		t.Fatalf("unexpected narrow truncation %q", got)
	}
}

func TestFitLinesPadsAndClips(t *testing.T) {
	out := fitLines("a\nb\nc", 3, 2)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 || lines[0] != "a  " || lines[1] != "b  " {
		t.Fatalf("unexpected fit: %q", out)
	}
	out = fitLines("a", 2, 3)
	if strings.Count(out, "\n") != 2 {
		t.Fatalf("expected padding rows, got %q", out)
	}
}
