package viz

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hoversim/internal/dynamo"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Canvas is a Braille dot grid. World coordinates are mapped onto it with
// the same y-down convention the simulation uses.
type Canvas struct {
	Width, Height int
	Grid          [][]rune

	worldW, worldH float64
}

func NewCanvas(w, h int, worldW, worldH float64) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
		worldW: worldW,
		worldH: worldH,
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set turns on the dot at sub-pixel (x, y). The canvas is Width*2 by
// Height*4 dots; anything outside is ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

// IsSet reports whether the dot at sub-pixel (x, y) is on.
func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= c.Width || y/4 >= c.Height {
		return false
	}
	return c.Grid[y/4][x/2]&rune(pixelMap[y%4][x%2]) != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// Project maps a world point to sub-pixel coordinates.
func (c *Canvas) Project(p dynamo.Vec2) (int, int) {
	sx := float64(c.Width*2-1) / c.worldW
	sy := float64(c.Height*4-1) / c.worldH
	return int(math.Round(p.X() * sx)), int(math.Round(p.Y() * sy))
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// WorldLine draws a segment given in world coordinates.
func (c *Canvas) WorldLine(a, b dynamo.Vec2) {
	x0, y0 := c.Project(a)
	x1, y1 := c.Project(b)
	c.DrawLine(x0, y0, x1, y1)
}

// Polygon draws a closed outline through the world points.
func (c *Canvas) Polygon(pts []dynamo.Vec2) {
	for i := range pts {
		c.WorldLine(pts[i], pts[(i+1)%len(pts)])
	}
}

// Box draws a w×h rectangle centred at pos and rotated by angle.
func (c *Canvas) Box(pos dynamo.Vec2, angle, w, h float64) {
	rot := mgl64.Rotate2D(angle)
	hw, hh := w/2, h/2
	local := []dynamo.Vec2{{-hw, -hh}, {hw, -hh}, {hw, hh}, {-hw, hh}}
	pts := make([]dynamo.Vec2, len(local))
	for i, p := range local {
		pts[i] = pos.Add(rot.Mul2x1(p))
	}
	c.Polygon(pts)
}

// Cross marks a world point with a small plus sign of the given arm length.
func (c *Canvas) Cross(p dynamo.Vec2, arm float64) {
	c.WorldLine(p.Sub(dynamo.Vec2{arm, 0}), p.Add(dynamo.Vec2{arm, 0}))
	c.WorldLine(p.Sub(dynamo.Vec2{0, arm}), p.Add(dynamo.Vec2{0, arm}))
}

// Arrow draws from start along v with a two-stroke head.
func (c *Canvas) Arrow(start, v dynamo.Vec2) {
	end := start.Add(v)
	c.WorldLine(start, end)
	if v.Len() < 1e-9 {
		return
	}
	back := v.Normalize().Mul(-math.Min(12, v.Len()/2))
	c.WorldLine(end, end.Add(mgl64.Rotate2D(math.Pi/6).Mul2x1(back)))
	c.WorldLine(end, end.Add(mgl64.Rotate2D(-math.Pi/6).Mul2x1(back)))
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
