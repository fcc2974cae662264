package raster

import (
	"errors"
	"math"
	"sort"
)

// superScale places the enclosing triangle far enough out that it rarely
// cuts into the convex hull of the samples. Hull dents it does leave behind
// are filled in finish.
const superScale = 20.0

// collinearTolerance is relative to the squared extent of the samples.
const collinearTolerance = 1e-12

var errNoTriangles = errors.New("no triangles")

type point struct {
	x, y float64
}

// triangle vertices are counter-clockwise. n[k] is the neighbour across the
// edge opposite v[k], or -1 on the hull.
type triangle struct {
	v    [3]int
	n    [3]int
	dead bool
}

type triangulation struct {
	points    []point
	triangles []triangle
}

func orient(a, b, c point) float64 {
	return (b.x-a.x)*(c.y-a.y) - (b.y-a.y)*(c.x-a.x)
}

// inCircle reports whether p lies strictly inside the circumcircle of the
// counter-clockwise triangle abc.
func inCircle(a, b, c, p point) bool {
	adx, ady := a.x-p.x, a.y-p.y
	bdx, bdy := b.x-p.x, b.y-p.y
	cdx, cdy := c.x-p.x, c.y-p.y
	det := (adx*adx+ady*ady)*(bdx*cdy-cdx*bdy) -
		(bdx*bdx+bdy*bdy)*(adx*cdy-cdx*ady) +
		(cdx*cdx+cdy*cdy)*(adx*bdy-bdx*ady)
	return det > 0
}

// triangulate builds the Delaunay triangulation of distinct points by
// incremental Bowyer-Watson insertion.
func triangulate(pts []point) (*triangulation, error) {
	n := len(pts)
	if n < 3 {
		return nil, errNoTriangles
	}
	minX, minY := pts[0].x, pts[0].y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX, maxX = math.Min(minX, p.x), math.Max(maxX, p.x)
		minY, maxY = math.Min(minY, p.y), math.Max(maxY, p.y)
	}
	span := math.Max(maxX-minX, maxY-minY)
	if span == 0 || collinear(pts, span) {
		return nil, errNoTriangles
	}

	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	all := make([]point, n, n+3)
	copy(all, pts)
	all = append(all,
		point{cx - superScale*span, cy - superScale*span},
		point{cx + superScale*span, cy - superScale*span},
		point{cx, cy + superScale*span},
	)

	b := &builder{
		pts:  all,
		tris: []triangle{{v: [3]int{n, n + 1, n + 2}, n: [3]int{-1, -1, -1}}},
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		pi, pj := pts[order[i]], pts[order[j]]
		if pi.x != pj.x {
			return pi.x < pj.x
		}
		return pi.y < pj.y
	})
	for _, i := range order {
		if !b.insert(i) {
			return nil, errNoTriangles
		}
	}
	return b.finish(n)
}

func collinear(pts []point, span float64) bool {
	a := pts[0]
	var b point
	found := false
	for _, p := range pts[1:] {
		if p != a {
			b, found = p, true
			break
		}
	}
	if !found {
		return true
	}
	tol := collinearTolerance * span * span
	for _, p := range pts {
		if math.Abs(orient(a, b, p)) > tol {
			return false
		}
	}
	return true
}

type builder struct {
	pts  []point
	tris []triangle
	free []int
	last int
}

type cavityEdge struct {
	a, b  int
	outer int
}

func (b *builder) contains(t int, p point) bool {
	tri := &b.tris[t]
	for k := 0; k < 3; k++ {
		if orient(b.pts[tri.v[(k+1)%3]], b.pts[tri.v[(k+2)%3]], p) < 0 {
			return false
		}
	}
	return true
}

// locate walks from the last created triangle toward p and falls back to a
// scan if the walk does not settle.
func (b *builder) locate(p point) int {
	t := b.last
	if t < 0 || t >= len(b.tris) || b.tris[t].dead {
		t = -1
		for i := range b.tris {
			if !b.tris[i].dead {
				t = i
				break
			}
		}
	}
	for steps := 0; t >= 0 && steps <= len(b.tris); steps++ {
		tri := &b.tris[t]
		next := -1
		for k := 0; k < 3; k++ {
			if orient(b.pts[tri.v[(k+1)%3]], b.pts[tri.v[(k+2)%3]], p) < 0 {
				next = tri.n[k]
				break
			}
		}
		if next == -1 {
			if b.contains(t, p) {
				return t
			}
			break
		}
		t = next
	}
	for i := range b.tris {
		if !b.tris[i].dead && b.contains(i, p) {
			return i
		}
	}
	return -1
}

func (b *builder) circumcontains(t int, p point) bool {
	v := b.tris[t].v
	return inCircle(b.pts[v[0]], b.pts[v[1]], b.pts[v[2]], p)
}

func (b *builder) alloc(tri triangle) int {
	if l := len(b.free); l > 0 {
		idx := b.free[l-1]
		b.free = b.free[:l-1]
		b.tris[idx] = tri
		return idx
	}
	b.tris = append(b.tris, tri)
	return len(b.tris) - 1
}

// relink points the edge a->b of triangle t (seen from t as b->a) at nb.
func (b *builder) relink(t, from, to, nb int) {
	tri := &b.tris[t]
	for k := 0; k < 3; k++ {
		if tri.v[(k+1)%3] == from && tri.v[(k+2)%3] == to {
			tri.n[k] = nb
			return
		}
	}
}

func (b *builder) insert(pi int) bool {
	p := b.pts[pi]
	start := b.locate(p)
	if start < 0 {
		return false
	}

	b.tris[start].dead = true
	cavity := []int{start}
	stack := []int{start}
	var boundary []cavityEdge
	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		tri := b.tris[t]
		for k := 0; k < 3; k++ {
			nb := tri.n[k]
			if nb >= 0 && b.tris[nb].dead {
				continue
			}
			if nb >= 0 && b.circumcontains(nb, p) {
				b.tris[nb].dead = true
				cavity = append(cavity, nb)
				stack = append(stack, nb)
				continue
			}
			boundary = append(boundary, cavityEdge{a: tri.v[(k+1)%3], b: tri.v[(k+2)%3], outer: nb})
		}
	}

	b.free = append(b.free, cavity...)
	startAt := make(map[int]int, len(boundary))
	endAt := make(map[int]int, len(boundary))
	created := make([]int, len(boundary))
	for j, e := range boundary {
		idx := b.alloc(triangle{v: [3]int{e.a, e.b, pi}, n: [3]int{-1, -1, e.outer}})
		if e.outer >= 0 {
			b.relink(e.outer, e.b, e.a, idx)
		}
		startAt[e.a] = idx
		endAt[e.b] = idx
		created[j] = idx
	}
	for j, e := range boundary {
		tri := &b.tris[created[j]]
		tri.n[0] = startAt[e.b]
		tri.n[1] = endAt[e.a]
	}
	b.last = created[len(created)-1]
	return true
}

type hullEdge struct {
	tri, k int
}

// finish drops triangles touching the enclosing vertices, fills hull dents
// and compacts the triangle list.
func (b *builder) finish(n int) (*triangulation, error) {
	for i := range b.tris {
		tri := &b.tris[i]
		if tri.dead {
			continue
		}
		if tri.v[0] >= n || tri.v[1] >= n || tri.v[2] >= n {
			tri.dead = true
		}
	}
	live := 0
	for i := range b.tris {
		tri := &b.tris[i]
		if tri.dead {
			continue
		}
		live++
		for k := 0; k < 3; k++ {
			if tri.n[k] >= 0 && b.tris[tri.n[k]].dead {
				tri.n[k] = -1
			}
		}
	}
	if live == 0 {
		return nil, errNoTriangles
	}

	b.pts = b.pts[:n]
	b.fillHull()

	remap := make([]int, len(b.tris))
	out := make([]triangle, 0, len(b.tris))
	for i := range b.tris {
		if b.tris[i].dead {
			remap[i] = -1
			continue
		}
		remap[i] = len(out)
		out = append(out, b.tris[i])
	}
	for i := range out {
		for k := 0; k < 3; k++ {
			if out[i].n[k] >= 0 {
				out[i].n[k] = remap[out[i].n[k]]
			}
		}
	}
	return &triangulation{points: b.pts, triangles: out}, nil
}

// fillHull adds ears at reflex boundary vertices until the boundary is
// convex.
func (b *builder) fillHull() {
	next := make(map[int]int)
	prev := make(map[int]int)
	owner := make(map[int]hullEdge)
	for i := range b.tris {
		tri := &b.tris[i]
		if tri.dead {
			continue
		}
		for k := 0; k < 3; k++ {
			if tri.n[k] != -1 {
				continue
			}
			from, to := tri.v[(k+1)%3], tri.v[(k+2)%3]
			if _, dup := next[from]; dup {
				// Pinched boundary; leave it alone.
				return
			}
			next[from] = to
			prev[to] = from
			owner[from] = hullEdge{tri: i, k: k}
		}
	}

	stack := make([]int, 0, len(next))
	for v := range next {
		stack = append(stack, v)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(stack)))

	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		c, ok := next[v]
		if !ok {
			continue
		}
		a := prev[v]
		if a == c || orient(b.pts[a], b.pts[v], b.pts[c]) >= 0 {
			continue
		}
		if b.earBlocked(a, v, c, next) {
			continue
		}

		ab, vc := owner[a], owner[v]
		idx := len(b.tris)
		b.tris = append(b.tris, triangle{v: [3]int{a, c, v}, n: [3]int{vc.tri, ab.tri, -1}})
		b.tris[ab.tri].n[ab.k] = idx
		b.tris[vc.tri].n[vc.k] = idx

		next[a] = c
		prev[c] = a
		owner[a] = hullEdge{tri: idx, k: 2}
		delete(next, v)
		delete(prev, v)
		delete(owner, v)
		stack = append(stack, a, c)
	}
}

// earBlocked reports whether another boundary vertex lies inside the ear
// (a, c, v).
func (b *builder) earBlocked(a, v, c int, boundary map[int]int) bool {
	pa, pc, pv := b.pts[a], b.pts[c], b.pts[v]
	for w := range boundary {
		if w == a || w == v || w == c {
			continue
		}
		pw := b.pts[w]
		if orient(pa, pc, pw) > 0 && orient(pc, pv, pw) > 0 && orient(pv, pa, pw) > 0 {
			return true
		}
	}
	return false
}

// vertexNeighbors lists, for every vertex, the vertices sharing an edge
// with it in ascending order.
func (tr *triangulation) vertexNeighbors() [][]int {
	out := make([][]int, len(tr.points))
	for _, t := range tr.triangles {
		for k := 0; k < 3; k++ {
			a, c := t.v[k], t.v[(k+1)%3]
			out[a] = append(out[a], c)
			out[c] = append(out[c], a)
		}
	}
	for i, nb := range out {
		sort.Ints(nb)
		uniq := nb[:0]
		for j, v := range nb {
			if j == 0 || v != nb[j-1] {
				uniq = append(uniq, v)
			}
		}
		out[i] = uniq
	}
	return out
}

// barycentric returns the coordinates of p relative to triangle t.
func (tr *triangulation) barycentric(t int, p point) (float64, float64, float64) {
	v := tr.triangles[t].v
	p0, p1, p2 := tr.points[v[0]], tr.points[v[1]], tr.points[v[2]]
	det := (p1.y-p2.y)*(p0.x-p2.x) + (p2.x-p1.x)*(p0.y-p2.y)
	b0 := ((p1.y-p2.y)*(p.x-p2.x) + (p2.x-p1.x)*(p.y-p2.y)) / det
	b1 := ((p2.y-p0.y)*(p.x-p2.x) + (p0.x-p2.x)*(p.y-p2.y)) / det
	return b0, b1, 1 - b0 - b1
}
