// Package export renders recorded runs into image formats.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/hoversim/internal/dynamo"
)

// PathStyle controls TrajectorySVG output.
type PathStyle struct {
	Width, Height int
	Background    string
	Border        string
	Flight        string
	Target        string
}

func DefaultPathStyle() PathStyle {
	return PathStyle{
		Width:      800,
		Height:     600,
		Background: "#0a0a0a",
		Border:     "#444466",
		Flight:     "#00ff88",
		Target:     "#ff00ff",
	}
}

// TrajectorySVG draws the flight path and the target path inside the world
// rectangle. World and SVG coordinates are both y-down, so no flip is needed.
func TrajectorySVG(w io.Writer, flight, target []dynamo.Vec2, worldW, worldH float64, style PathStyle) error {
	if len(flight) < 2 {
		return fmt.Errorf("trajectory needs at least 2 points, got %d", len(flight))
	}
	if worldW <= 0 || worldH <= 0 {
		return fmt.Errorf("world size must be positive, got %gx%g", worldW, worldH)
	}
	sx := float64(style.Width) / worldW
	sy := float64(style.Height) / worldH

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
<rect x="0.5" y="0.5" width="%d" height="%d" fill="none" stroke="%s"/>
`, style.Width, style.Height, style.Width, style.Height, style.Background, style.Width-1, style.Height-1, style.Border))

	if len(target) > 1 {
		writePath(&sb, target, sx, sy, style.Target, ` stroke-dasharray="6 4"`)
	}
	writePath(&sb, flight, sx, sy, style.Flight, "")

	start, end := flight[0], flight[len(flight)-1]
	sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="4" fill="%s"/>
<circle cx="%.1f" cy="%.1f" r="4" fill="none" stroke="%s"/>
</svg>
`, start.X()*sx, start.Y()*sy, style.Flight, end.X()*sx, end.Y()*sy, style.Flight))

	_, err := io.WriteString(w, sb.String())
	return err
}

func writePath(sb *strings.Builder, pts []dynamo.Vec2, sx, sy float64, color, extra string) {
	sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5"%s d="M`, color, extra))
	for i, p := range pts {
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", p.X()*sx, p.Y()*sy))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", p.X()*sx, p.Y()*sy))
		}
	}
	sb.WriteString("\"/>\n")
}

// Points zips two equal-length columns into world points.
func Points(xs, ys []float64) ([]dynamo.Vec2, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("column length mismatch: %d and %d", len(xs), len(ys))
	}
	pts := make([]dynamo.Vec2, len(xs))
	for i := range xs {
		pts[i] = dynamo.Vec2{xs[i], ys[i]}
	}
	return pts, nil
}
