package colormap

import (
	"image/color"
	"testing"
)

func TestExpressionColormapEndpoints(t *testing.T) {
	t.Parallel()

	c0, ok := Expression.At(0).(color.RGBA)
	if !ok {
		t.Fatalf("expected color.RGBA at t=0")
	}
	if c0 != (color.RGBA{R: 0, G: 100, B: 255, A: 255}) {
		t.Fatalf("unexpected Expression.At(0): %#v", c0)
	}

	c1, ok := Expression.At(1).(color.RGBA)
	if !ok {
		t.Fatalf("expected color.RGBA at t=1")
	}
	if c1 != (color.RGBA{R: 255, G: 100, B: 0, A: 255}) {
		t.Fatalf("unexpected Expression.At(1): %#v", c1)
	}

	if got := CSS(Expression.At(0.5)); got != "rgb(127, 100, 127)" {
		t.Fatalf("unexpected midpoint %s", got)
	}
}

func TestHeatmapBands(t *testing.T) {
	t.Parallel()

	want := []string{"#e0f2fe", "#81d4fa", "#ffeb3b", "#ff9800", "#d32f2f"}
	for i, hex := range want {
		if got := Hex(Heatmap.AtIndex(i)); got != hex {
			t.Errorf("band %d: expected %s, got %s", i, hex, got)
		}
	}
	if got := Hex(Heatmap.At(0.79)); got != "#ff9800" {
		t.Errorf("0.79 should be orange, got %s", got)
	}
	if got := Hex(Heatmap.At(1)); got != "#d32f2f" {
		t.Errorf("1.0 should be dark red, got %s", got)
	}
	if got := Hex(Heatmap.AtIndex(9)); got != "#d32f2f" {
		t.Errorf("out of range band should clamp, got %s", got)
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	for _, name := range Names() {
		if _, ok := Lookup(name); !ok {
			t.Errorf("expected colormap %q", name)
		}
	}
	if _, ok := Lookup("Viridis"); !ok {
		t.Error("lookup should be case-insensitive")
	}
	if _, ok := Lookup("jet"); ok {
		t.Error("unexpected colormap jet")
	}
}
