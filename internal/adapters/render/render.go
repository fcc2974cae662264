// Package render draws comparison surfaces over a half-rink diagram as PNG.
package render

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"math"
	"time"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/okian/rinkxg/internal/domain/raster"
	"github.com/okian/rinkxg/internal/domain/types"
	"github.com/okian/rinkxg/pkg/metrics"
)

// Rink extent shown in the plot, in feet.
const (
	viewXMin = -0.5
	viewXMax = 100.5
	viewYMin = -43.0
	viewYMax = 43.0

	plotXMax     = 89.0 // cells are spread over the zone up to the goal line
	defaultSize  = 550
	margin       = 20.0
	legendHeight = 14.0
	legendTicks  = 5
)

// Renderer draws ComparisonResults.
type Renderer struct {
	size       int
	cellRadius float64
}

// New creates a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{size: defaultSize, cellRadius: 0.6}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Size returns the square image edge in pixels.
func (r *Renderer) Size() int { return r.size }

// PNG renders res and returns the encoded image.
func (r *Renderer) PNG(res types.ComparisonResult) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Encode(&buf, res); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode renders res as PNG into w.
func (r *Renderer) Encode(w io.Writer, res types.ComparisonResult) error {
	start := time.Now()
	dc, err := r.draw(res)
	if err == nil {
		err = dc.EncodePNG(w)
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.RecordPlotRender(outcome, float64(time.Since(start).Milliseconds()))
	if err != nil {
		return fmt.Errorf("render %s: %w", res.PlayerID, err)
	}
	return nil
}

// frame maps rink feet to image pixels.
type frame struct {
	left, top, scale float64
}

func (f frame) px(x, y float64) (float64, float64) {
	return f.left + (x-viewXMin)*f.scale, f.top + (viewYMax-y)*f.scale
}

func (r *Renderer) frame() frame {
	s := float64(r.size)
	scale := (s - 2*margin) / (viewXMax - viewXMin)
	return frame{left: margin, top: margin, scale: scale}
}

func (r *Renderer) draw(res types.ComparisonResult) (*gg.Context, error) {
	g := res.Grid
	if g.Rows <= 0 || g.Cols <= 0 || len(g.Values) != g.Rows*g.Cols {
		return nil, fmt.Errorf("invalid grid %dx%d", g.Rows, g.Cols)
	}

	dc := gg.NewContext(r.size, r.size)
	dc.SetColor(color.White)
	dc.Clear()

	f := r.frame()
	r.drawCells(dc, f, res)
	drawRink(dc, f)
	if res.ShowScale {
		r.drawLegend(dc, f, res)
	}
	return dc, nil
}

// drawCells plots every grid cell as a dot. Columns are spread over
// rounded positions between 0 and the goal line, rows over the rink width.
func (r *Renderer) drawCells(dc *gg.Context, f frame, res types.ComparisonResult) {
	g := res.Grid
	xs := raster.RoundedLinspace(0, plotXMax, g.Cols)
	ys := raster.RoundedLinspace(-42.5, 42.5, g.Rows)
	rad := r.cellRadius * f.scale
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			v := math.Round(g.At(row, col)*1e4) / 1e4
			dc.SetColor(Color(Normalize(v, res.Lower, res.Upper)))
			x, y := f.px(xs[col], ys[row])
			dc.DrawCircle(x, y, rad)
			dc.Fill()
		}
	}
}

var (
	rinkBlack = color.RGBA{20, 20, 20, 255}  //nolint:gochecknoglobals // palette
	rinkRed   = color.RGBA{200, 16, 46, 255} //nolint:gochecknoglobals // palette
	rinkBlue  = color.RGBA{0, 56, 168, 255}  //nolint:gochecknoglobals // palette
)

// polyline strokes a path given in rink feet.
func polyline(dc *gg.Context, f frame, pts [][2]float64) {
	for i, p := range pts {
		x, y := f.px(p[0], p[1])
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.Stroke()
}

// arc samples a circle arc in rink feet, angles in degrees counterclockwise.
func arc(cx, cy, r, from, to float64) [][2]float64 {
	const steps = 48
	pts := make([][2]float64, 0, steps+1)
	for i := 0; i <= steps; i++ {
		a := (from + (to-from)*float64(i)/steps) * math.Pi / 180
		pts = append(pts, [2]float64{cx + r*math.Cos(a), cy + r*math.Sin(a)})
	}
	return pts
}

func drawRink(dc *gg.Context, f frame) {
	const board = 25.0
	lw := func(feet float64) { dc.SetLineWidth(math.Max(1, feet*f.scale)) }

	// boards with rounded corners
	dc.SetColor(rinkBlack)
	lw(0.8)
	boards := [][2]float64{{0, 42.5}, {100 - board, 42.5}}
	boards = append(boards, arc(100-board, 42.5-board, board, 90, 0)...)
	boards = append(boards, [2]float64{100, -42.5 + board})
	boards = append(boards, arc(100-board, -42.5+board, board, 0, -90)...)
	boards = append(boards, [2]float64{0, -42.5})
	polyline(dc, f, boards)

	// goal line stops at the corner curve
	goalY := 42.5 - board + math.Sqrt(board*board-(89-(100-board))*(89-(100-board)))
	dc.SetColor(rinkRed)
	lw(0.4)
	polyline(dc, f, [][2]float64{{89, -goalY}, {89, goalY}})
	polyline(dc, f, [][2]float64{{0, -42.5}, {0, 42.5}})

	dc.SetColor(rinkBlue)
	lw(0.5)
	polyline(dc, f, [][2]float64{{25, -42.5}, {25, 42.5}})
	lw(0.4)
	polyline(dc, f, arc(0, 0, 16.5, -90, 90))

	dc.SetColor(rinkRed)
	lw(0.4)
	for _, cy := range []float64{22, -22} {
		polyline(dc, f, arc(69, cy, 15, 0, 360))
		for _, cx := range []float64{69, 22} {
			x, y := f.px(cx, cy)
			dc.DrawCircle(x, y, math.Max(2, 1*f.scale))
			dc.Fill()
		}
	}

	// crease faces centre ice; goal sits behind the line
	lw(0.3)
	polyline(dc, f, arc(89, 0, 3, 90, 270))
	gx, gy := f.px(89, 2)
	dc.DrawRectangle(gx, gy, 2*f.scale, 4*f.scale)
	dc.Stroke()
}

func (r *Renderer) drawLegend(dc *gg.Context, f frame, res types.ComparisonResult) {
	_, bottom := f.px(0, viewYMin)
	face := basicfont.Face7x13
	dc.SetFontFace(face)

	left := margin * 2
	width := float64(r.size) - 4*margin
	title := res.Mode.Legend()
	dc.SetColor(rinkBlack)
	dc.DrawStringAnchored(title, float64(r.size)/2, bottom+margin, 0.5, 0.5)

	barTop := bottom + margin*1.8
	for i := 0; i < int(width); i++ {
		dc.SetColor(Color(float64(i) / (width - 1)))
		dc.DrawRectangle(left+float64(i), barTop, 1, legendHeight)
		dc.Fill()
	}

	dc.SetColor(rinkBlack)
	for i := 0; i < legendTicks; i++ {
		t := float64(i) / (legendTicks - 1)
		v := res.Lower + t*(res.Upper-res.Lower)
		x := left + t*(width-1)
		dc.SetLineWidth(1)
		dc.DrawLine(x, barTop+legendHeight, x, barTop+legendHeight+4)
		dc.Stroke()
		dc.DrawStringAnchored(fmt.Sprintf("%.3f", v), x, barTop+legendHeight+14, 0.5, 0.5)
	}
}
