package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-rise/internal/astro"
	"github.com/litescript/ls-rise/internal/scene"
	"github.com/litescript/ls-rise/internal/sky"
)

const (
	// Scene extent in layout units; sky.DefaultLayout draws into this box.
	sceneWidth  = 220.0
	sceneHeight = 140.0

	glyphSun = "☀"

	// Star glyphs by magnitude
	glyphStarBright = "✶" // mag < 1.0
	glyphStarMedium = "✸" // mag 1.0-2.0
	glyphStarDim    = "·" // mag > 2.0

	colorSun = "#ffd166"
)

var (
	starWhite = sky.MustParseHex("#ffffff")
	moonLit   = sky.MustParseHex("#f4f1de")
)

// mountain is a triangular silhouette. Centre and half-width are fractions
// of the canvas width, height a fraction of the rows below the horizon
// measured upward.
type mountain struct {
	center, halfWidth, height float64
}

var (
	leftMountain  = mountain{center: 0.25, halfWidth: 0.35, height: 0.45}
	rightMountain = mountain{center: 0.72, halfWidth: 0.30, height: 0.30}
)

// ridge returns how many rows above the horizon the mountain reaches at
// column x of a canvas width cells wide with horizonRows rows of sky.
func (mt mountain) ridge(x, width, horizonRows int) float64 {
	fx := (float64(x) + 0.5) / float64(width)
	d := math.Abs(fx-mt.center) / mt.halfWidth
	if d >= 1 {
		return 0
	}
	return (1 - d) * mt.height * float64(horizonRows)
}

// cell is one character position of the sky canvas. An empty glyph marks
// the second column of a wide glyph.
type cell struct {
	glyph string
	fg    sky.Color
	bg    sky.Color
}

// SkyView draws a rendered scene onto a character canvas.
type SkyView struct {
	stars astro.StarCatalog
}

// NewSkyView creates a sky view with the default star catalog.
func NewSkyView() SkyView {
	return SkyView{stars: astro.DefaultStarCatalog()}
}

// project maps a layout point to a canvas cell.
func project(p sky.Point, width, height int) (x, y int) {
	x = int(math.Floor(p.X / sceneWidth * float64(width)))
	y = int(math.Floor(p.Y / sceneHeight * float64(height)))
	return x, y
}

// horizonRow is the canvas row the horizon falls on.
func horizonRow(layout sky.Layout, height int) int {
	_, y := project(sky.Point{Y: layout.HorizonY}, 1, height)
	return y
}

// starGlyph returns the glyph for a star based on its magnitude.
func starGlyph(mag float64) string {
	switch {
	case mag < 1.0:
		return glyphStarBright
	case mag < 2.0:
		return glyphStarMedium
	default:
		return glyphStarDim
	}
}

// Render draws sc into a width x height canvas.
func (v SkyView) Render(sc scene.Scene, layout sky.Layout, width, height int) string {
	if width < 10 || height < 5 {
		return "Sky view requires larger terminal"
	}
	grid := v.paint(sc, layout, width, height)

	var b strings.Builder
	for y, row := range grid {
		for _, c := range row {
			if c.glyph == "" {
				continue
			}
			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(c.fg.Hex())).
				Background(lipgloss.Color(c.bg.Hex()))
			b.WriteString(style.Render(c.glyph))
		}
		if y < len(grid)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// paint lays out the scene back to front: sky, stars, sun, moon, mountains.
func (v SkyView) paint(sc scene.Scene, layout sky.Layout, width, height int) [][]cell {
	grid := make([][]cell, height)
	for y := range grid {
		grid[y] = make([]cell, width)
		for x := range grid[y] {
			grid[y][x] = cell{glyph: " ", fg: sc.SkyColor, bg: sc.SkyColor}
		}
	}

	horizon := horizonRow(layout, height)
	if horizon > height {
		horizon = height
	}

	if sc.NightOpacity > 0 && horizon > 0 {
		for _, s := range v.stars.Field(sc.StarRotation) {
			x := int(s.X * float64(width-1))
			y := int(s.Y * float64(horizon-1))
			grid[y][x].glyph = starGlyph(s.Mag)
			grid[y][x].fg = sc.SkyColor.Blend(starWhite, sc.NightOpacity)
		}
	}

	put := func(p sky.Point, glyph string, fg sky.Color) {
		x, y := project(p, width, height)
		if glyph == "" || x < 0 || x >= width || y < 0 || y >= height {
			return
		}
		wide := lipgloss.Width(glyph) > 1
		if wide && x == width-1 {
			// keep both halves on the canvas
			x = width - 2
		}
		if grid[y][x].glyph == "" {
			grid[y][x-1].glyph = " "
		}
		grid[y][x].glyph = glyph
		grid[y][x].fg = fg
		if wide {
			if x+2 < width && grid[y][x+2].glyph == "" {
				grid[y][x+2].glyph = " "
			}
			grid[y][x+1].glyph = ""
		}
	}

	put(sc.Sun.Point, glyphSun, sky.MustParseHex(colorSun))
	if sc.Moon.Opacity > 0 {
		put(sc.Moon.Point, sc.Moon.Glyph, sc.SkyColor.Blend(moonLit, sc.Moon.Opacity))
	}

	below := height - horizon
	for x := 0; x < width; x++ {
		left := leftMountain.ridge(x, width, below)
		right := rightMountain.ridge(x, width, below)
		top := horizon - int(math.Round(math.Max(left, right)))
		color := sc.MountainLeft
		if right > left {
			color = sc.MountainRight
		}
		for y := max(top, 0); y < height; y++ {
			if grid[y][x].glyph == "" && x > 0 {
				// a wide glyph straddles the ridge; blank its first half
				grid[y][x-1].glyph = " "
			}
			grid[y][x] = cell{glyph: " ", fg: color, bg: color}
		}
	}

	// ground drawn over the first half of a wide glyph orphans the second
	for y := range grid {
		for x, c := range grid[y] {
			if c.glyph == "" && (x == 0 || lipgloss.Width(grid[y][x-1].glyph) < 2) {
				grid[y][x].glyph = " "
			}
		}
	}
	return grid
}
