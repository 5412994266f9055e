package sky

import (
	"math"
	"testing"
)

func TestBrightness(t *testing.T) {
	tests := []struct {
		alt  float64
		want float64
	}{
		{45, 1},
		{6, 1},
		{0, 0.5},
		{3, 0.75},
		{-6, 0},
		{-30, 0},
	}
	for _, tt := range tests {
		got := Brightness(tt.alt, DefaultTwilightLower, DefaultTwilightUpper)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Brightness(%v) = %v, want %v", tt.alt, got, tt.want)
		}
	}
}

func TestNightOpacity(t *testing.T) {
	if got := NightOpacity(1); got != 0 {
		t.Errorf("NightOpacity(1) = %v, want 0", got)
	}
	if got := NightOpacity(0); got != 1 {
		t.Errorf("NightOpacity(0) = %v, want 1", got)
	}
	if got := NightOpacity(0.25); got != 0.75 {
		t.Errorf("NightOpacity(0.25) = %v, want 0.75", got)
	}
}

func TestLookupsStayInRange(t *testing.T) {
	p := NewPalette(DefaultPaletteSpec(), nil)

	for i := 0; i <= 1000; i++ {
		b := float64(i) / 1000
		if idx := p.Sky.Index(b); idx < 0 || idx > len(p.Sky)-1 {
			t.Fatalf("sky index %d out of range for b=%v", idx, b)
		}
		if idx := MountainPaletteIndex(b, p.MountainLeft); idx < 0 || idx > len(p.MountainLeft)-1 {
			t.Fatalf("mountain index %d out of range for b=%v", idx, b)
		}
	}

	if got := SkyColor(0, p.Sky); got != NightColor {
		t.Errorf("SkyColor(0) = %s, want night %s", got, NightColor)
	}
	if got := SkyColor(1, p.Sky); got != p.Sky[len(p.Sky)-1] {
		t.Errorf("SkyColor(1) = %s, want last ramp entry", got)
	}
}

func TestSkyColorEmptyGradient(t *testing.T) {
	if got := SkyColor(0.7, Gradient{}); got != FallbackColor {
		t.Errorf("SkyColor on empty gradient = %s, want fallback", got)
	}
}

func TestScreenPosition(t *testing.T) {
	l := DefaultLayout()

	tests := []struct {
		alt   float64
		wantY float64
	}{
		{0, 70},
		{90, 20},
		{45, 45},
		{-45, 95},
	}
	for _, tt := range tests {
		p := l.Sun(tt.alt)
		if p.X != l.SunX {
			t.Errorf("x = %v, want fixed %v", p.X, l.SunX)
		}
		if math.Abs(p.Y-tt.wantY) > 1e-9 {
			t.Errorf("Sun(%v).Y = %v, want %v", tt.alt, p.Y, tt.wantY)
		}
	}
}

func TestStarFieldRotation(t *testing.T) {
	if got := StarFieldRotation(0); got != 180 {
		t.Errorf("rotation at midnight = %v, want 180", got)
	}
	if got := StarFieldRotation(700); got != 90 {
		t.Errorf("rotation at 700 = %v, want 90", got)
	}
	if StarFieldRotation(1000) >= StarFieldRotation(999) {
		t.Error("rotation should decrease monotonically through the day")
	}
}

func TestPaletteRebuild(t *testing.T) {
	spec := DefaultPaletteSpec()
	p := NewPalette(spec, nil)

	if p.Rebuild(spec, nil) != p {
		t.Error("Rebuild with identical spec should reuse palette")
	}

	spec.SkySize = 30
	q := p.Rebuild(spec, nil)
	if q == p {
		t.Fatal("Rebuild with new size should build a new palette")
	}
	if len(q.Sky) != 30 {
		t.Errorf("rebuilt sky len = %d, want 30", len(q.Sky))
	}
}

func TestPaletteSkyFor(t *testing.T) {
	p := NewPalette(DefaultPaletteSpec(), nil)
	if got := p.SkyFor(true); got[len(got)/2] == p.Sky[len(p.Sky)/2] {
		t.Error("evening ramp should differ from morning ramp mid-way")
	}

	spec := DefaultPaletteSpec()
	spec.SkyEvening = nil
	p = NewPalette(spec, nil)
	if got := p.SkyFor(true); len(got) != len(p.Sky) {
		t.Errorf("missing evening ramp should fall back to morning ramp")
	}
}

func TestPaletteMountains(t *testing.T) {
	p := NewPalette(DefaultPaletteSpec(), nil)
	left, right := p.Mountains(0)
	if left != p.MountainLeft[0] || right != p.MountainRight[0] {
		t.Errorf("night mountains = %s/%s", left, right)
	}
	left, _ = p.Mountains(1)
	if left != p.MountainLeft[len(p.MountainLeft)-1] {
		t.Errorf("day left mountain = %s", left)
	}
}
