package raster

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/rinkxg/internal/domain/model"
)

// Default surface parameters.
const (
	DefaultCols  = 100
	DefaultRows  = 85
	DefaultXMin  = 0.0
	DefaultXMax  = 100.0
	DefaultYMin  = -42.5
	DefaultYMax  = 42.5
	DefaultSigma = 3.0

	// insideEps tolerates mesh points sitting on a triangle edge.
	insideEps = 1e-10
)

// Rasterizer interpolates scattered samples onto a fixed mesh.
type Rasterizer struct {
	cols, rows int
	xmin, xmax float64
	ymin, ymax float64
	smooth     bool
	sigma      float64
	mesh       Mesh
}

// New creates a Rasterizer with the 100×85 half-rink mesh and sigma 3
// smoothing unless overridden.
func New(opts ...Option) *Rasterizer {
	r := &Rasterizer{
		cols:   DefaultCols,
		rows:   DefaultRows,
		xmin:   DefaultXMin,
		xmax:   DefaultXMax,
		ymin:   DefaultYMin,
		ymax:   DefaultYMax,
		smooth: true,
		sigma:  DefaultSigma,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.mesh = NewMesh(r.xmin, r.xmax, r.cols, r.ymin, r.ymax, r.rows)
	return r
}

// Mesh returns the target mesh.
func (r *Rasterizer) Mesh() Mesh { return r.mesh }

// Shape returns rows and columns of produced grids.
func (r *Rasterizer) Shape() (int, int) { return r.rows, r.cols }

// Fingerprint identifies the parameters that influence output, for cache
// keys.
func (r *Rasterizer) Fingerprint() string {
	return fmt.Sprintf("%dx%d:%g,%g,%g,%g:%t:%g", r.cols, r.rows, r.xmin, r.xmax, r.ymin, r.ymax, r.smooth, r.sigma)
}

// Rasterize builds the surface for samples. Cells outside the convex hull
// are 0, negative overshoot is clamped to 0 and the result is optionally
// smoothed.
func (r *Rasterizer) Rasterize(ctx context.Context, samples []model.Sample) (Grid, error) {
	if len(samples) == 0 {
		return Grid{}, fmt.Errorf("rasterize: no samples: %w", model.ErrInsufficientData)
	}
	if err := ctx.Err(); err != nil {
		return Grid{}, err
	}

	pts, values := mergeLocations(samples)
	tr, err := triangulate(pts)
	if err != nil {
		return Grid{}, fmt.Errorf("rasterize %d samples at %d locations: %w", len(samples), len(pts), model.ErrInterpolationDegenerate)
	}
	if err := ctx.Err(); err != nil {
		return Grid{}, err
	}

	grid := r.interpolate(tr, values)
	for i, v := range grid.Values {
		if v < 0 {
			grid.Values[i] = 0
		}
	}
	if r.smooth {
		grid = smooth(grid, r.sigma)
	}
	return grid, nil
}

func (r *Rasterizer) interpolate(tr *triangulation, values []float64) Grid {
	grad := estimateGradients(tr, values)
	grid := NewGrid(r.rows, r.cols)
	filled := make([]bool, len(grid.Values))
	xs, ys := r.mesh.X, r.mesh.Y

	for t := range tr.triangles {
		v := tr.triangles[t].v
		p0, p1, p2 := tr.points[v[0]], tr.points[v[1]], tr.points[v[2]]
		minX, maxX := min(p0.x, p1.x, p2.x), max(p0.x, p1.x, p2.x)
		minY, maxY := min(p0.y, p1.y, p2.y), max(p0.y, p1.y, p2.y)

		i0 := sort.SearchFloat64s(xs, minX-insideEps)
		j0 := sort.SearchFloat64s(ys, minY-insideEps)
		var patch *cubicPatch
		for j := j0; j < len(ys) && ys[j] <= maxY+insideEps; j++ {
			for i := i0; i < len(xs) && xs[i] <= maxX+insideEps; i++ {
				idx := j*r.cols + i
				if filled[idx] {
					continue
				}
				b0, b1, b2 := tr.barycentric(t, point{xs[i], ys[j]})
				if b0 < -insideEps || b1 < -insideEps || b2 < -insideEps {
					continue
				}
				if patch == nil {
					p := newCubicPatch(tr, t, values, grad)
					patch = &p
				}
				grid.Values[idx] = patch.eval(b0, b1, b2)
				filled[idx] = true
			}
		}
	}
	return grid
}

// mergeLocations collapses samples sharing a location into one point
// carrying their mean value. Output is ordered by (x, y).
func mergeLocations(samples []model.Sample) ([]point, []float64) {
	sorted := make([]model.Sample, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	pts := make([]point, 0, len(sorted))
	values := make([]float64, 0, len(sorted))
	for i := 0; i < len(sorted); {
		j := i
		var sum float64
		for j < len(sorted) && sorted[j].X == sorted[i].X && sorted[j].Y == sorted[i].Y {
			sum += sorted[j].Value
			j++
		}
		pts = append(pts, point{sorted[i].X, sorted[i].Y})
		values = append(values, sum/float64(j-i))
		i = j
	}
	return pts, values
}
