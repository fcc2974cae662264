package raster

import "math"

// Gradient estimation parameters.
const (
	gradientTolerance     = 1e-6
	maxGradientIterations = 400
)

// estimateGradients finds per-vertex gradients that minimise the curvature
// of the piecewise cubic surface along every triangulation edge, solved
// with Gauss-Seidel sweeps over the vertices.
func estimateGradients(tr *triangulation, values []float64) [][2]float64 {
	pts := tr.points
	nbrs := tr.vertexNeighbors()
	grad := make([][2]float64, len(pts))

	for iter := 0; iter < maxGradientIterations; iter++ {
		var worst float64
		for i := range pts {
			var q0, q1, q3, s0, s1 float64
			for _, j := range nbrs[i] {
				ex, ey := pts[j].x-pts[i].x, pts[j].y-pts[i].y
				l := math.Hypot(ex, ey)
				l3 := l * l * l
				f1, f2 := values[i], values[j]
				df2 := -ex*grad[j][0] - ey*grad[j][1]

				q0 += 4 * ex * ex / l3
				q1 += 4 * ex * ey / l3
				q3 += 4 * ey * ey / l3
				s0 += (6*(f1-f2) - 2*df2) * ex / l3
				s1 += (6*(f1-f2) - 2*df2) * ey / l3
			}
			det := q0*q3 - q1*q1
			if det == 0 {
				continue
			}
			r0 := (q3*s0 - q1*s1) / det
			r1 := (-q1*s0 + q0*s1) / det

			change := math.Max(math.Abs(grad[i][0]+r0), math.Abs(grad[i][1]+r1))
			grad[i] = [2]float64{-r0, -r1}
			change /= math.Max(1, math.Max(math.Abs(r0), math.Abs(r1)))
			worst = math.Max(worst, change)
		}
		if worst < gradientTolerance {
			break
		}
	}
	return grad
}

// cubicPatch holds the Bernstein-Bezier control values of a Clough-Tocher
// split triangle. Index digits are the powers of (b0, b1, b2, centroid).
type cubicPatch struct {
	c3000, c0300, c0030, c0003 float64
	c2100, c2010, c1200, c0210 float64
	c1020, c0120, c2001, c0201 float64
	c0021, c1101, c1011, c0111 float64
	c1002, c0102, c0012        float64
}

func newCubicPatch(tr *triangulation, t int, values []float64, grad [][2]float64) cubicPatch {
	tri := tr.triangles[t]
	p0, p1, p2 := tr.points[tri.v[0]], tr.points[tri.v[1]], tr.points[tri.v[2]]
	g0, g1, g2 := grad[tri.v[0]], grad[tri.v[1]], grad[tri.v[2]]

	e12x, e12y := p1.x-p0.x, p1.y-p0.y
	e23x, e23y := p2.x-p1.x, p2.y-p1.y
	e31x, e31y := p0.x-p2.x, p0.y-p2.y

	df12 := g0[0]*e12x + g0[1]*e12y
	df21 := -(g1[0]*e12x + g1[1]*e12y)
	df23 := g1[0]*e23x + g1[1]*e23y
	df32 := -(g2[0]*e23x + g2[1]*e23y)
	df31 := g2[0]*e31x + g2[1]*e31y
	df13 := -(g0[0]*e31x + g0[1]*e31y)

	var c cubicPatch
	c.c3000 = values[tri.v[0]]
	c.c2100 = (df12 + 3*c.c3000) / 3
	c.c2010 = (df13 + 3*c.c3000) / 3
	c.c0300 = values[tri.v[1]]
	c.c1200 = (df21 + 3*c.c0300) / 3
	c.c0210 = (df23 + 3*c.c0300) / 3
	c.c0030 = values[tri.v[2]]
	c.c1020 = (df31 + 3*c.c0030) / 3
	c.c0120 = (df32 + 3*c.c0030) / 3

	c.c2001 = (c.c2100 + c.c2010 + c.c3000) / 3
	c.c0201 = (c.c1200 + c.c0300 + c.c0210) / 3
	c.c0021 = (c.c1020 + c.c0120 + c.c0030) / 3

	// Cross-boundary continuity weights from the neighbouring centroids.
	var g [3]float64
	for k := 0; k < 3; k++ {
		nb := tri.n[k]
		if nb < 0 {
			g[k] = -0.5
			continue
		}
		nv := tr.triangles[nb].v
		centroid := point{
			x: (tr.points[nv[0]].x + tr.points[nv[1]].x + tr.points[nv[2]].x) / 3,
			y: (tr.points[nv[0]].y + tr.points[nv[1]].y + tr.points[nv[2]].y) / 3,
		}
		b0, b1, b2 := tr.barycentric(t, centroid)
		switch k {
		case 0:
			g[k] = (2*b2 + b1 - 1) / (2 - 3*b2 - 3*b1)
		case 1:
			g[k] = (2*b0 + b2 - 1) / (2 - 3*b0 - 3*b2)
		case 2:
			g[k] = (2*b1 + b0 - 1) / (2 - 3*b1 - 3*b0)
		}
	}

	c.c0111 = (g[0]*(-c.c0300+3*c.c0210-3*c.c0120+c.c0030) +
		(-c.c0300 + 2*c.c0210 - c.c0120 + c.c0021 + c.c0201)) / 2
	c.c1011 = (g[1]*(-c.c0030+3*c.c1020-3*c.c2010+c.c3000) +
		(-c.c0030 + 2*c.c1020 - c.c2010 + c.c2001 + c.c0021)) / 2
	c.c1101 = (g[2]*(-c.c3000+3*c.c2100-3*c.c1200+c.c0300) +
		(-c.c3000 + 2*c.c2100 - c.c1200 + c.c2001 + c.c0201)) / 2

	c.c1002 = (c.c1101 + c.c1011 + c.c2001) / 3
	c.c0102 = (c.c1101 + c.c0111 + c.c0201) / 3
	c.c0012 = (c.c1011 + c.c0111 + c.c0021) / 3
	c.c0003 = (c.c1002 + c.c0102 + c.c0012) / 3
	return c
}

// eval evaluates the patch at barycentric coordinates (b0, b1, b2). The
// smallest coordinate picks the sub-triangle of the split.
func (c *cubicPatch) eval(b0, b1, b2 float64) float64 {
	m := math.Min(b0, math.Min(b1, b2))
	x1, x2, x3, x4 := b0-m, b1-m, b2-m, 3*m

	return x1*x1*x1*c.c3000 +
		3*x1*x1*x2*c.c2100 +
		3*x1*x1*x3*c.c2010 +
		3*x1*x1*x4*c.c2001 +
		3*x1*x2*x2*c.c1200 +
		6*x1*x2*x4*c.c1101 +
		3*x1*x3*x3*c.c1020 +
		6*x1*x3*x4*c.c1011 +
		3*x1*x4*x4*c.c1002 +
		x2*x2*x2*c.c0300 +
		3*x2*x2*x3*c.c0210 +
		3*x2*x2*x4*c.c0201 +
		3*x2*x3*x3*c.c0120 +
		6*x2*x3*x4*c.c0111 +
		3*x2*x4*x4*c.c0102 +
		x3*x3*x3*c.c0030 +
		3*x3*x3*x4*c.c0021 +
		3*x3*x4*x4*c.c0012 +
		x4*x4*x4*c.c0003
}
