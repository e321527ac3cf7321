package cluster

import (
	"math"
	"math/rand/v2"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/s2"

	"github.com/couchcryptid/crime-map-etl/internal/domain"
)

// earthRadiusMeters converts s2 angles to surface distance.
const earthRadiusMeters = 6371008.8

// Options tune the k-means search.
type Options struct {
	MaxIter int    // Lloyd iteration cap per run
	Runs    int    // independent k-means++ restarts; the lowest inertia wins
	Seed    uint64 // seed for k-means++ initialisation
}

// DefaultOptions mirror the usual k-means library defaults.
func DefaultOptions() Options {
	return Options{MaxIter: 300, Runs: 10, Seed: 1}
}

func (o Options) normalized() Options {
	if o.MaxIter < 1 {
		o.MaxIter = 1
	}
	if o.Runs < 1 {
		o.Runs = 1
	}
	return o
}

// run is one converged (or capped) Lloyd's pass.
type run struct {
	centers []r2.Point
	assign  []int
	inertia float64
}

// KMeans partitions points into exactly k clusters. Coordinates are treated as
// planar (lon, lat) pairs with Euclidean distance. Every point is counted
// under its nearest final centroid; centroids that end up without members are
// reported with count zero.
func KMeans(points []domain.Coordinate, k int, opts Options) (domain.ClusterResult, error) {
	if err := validate(points, k); err != nil {
		return nil, err
	}
	opts = opts.normalized()

	pts := make([]r2.Point, len(points))
	for i, p := range points {
		pts[i] = r2.Point{X: p.Lon, Y: p.Lat}
	}

	var best *run
	for r := range opts.Runs {
		rng := rand.New(rand.NewPCG(opts.Seed, uint64(r)))
		cur := lloyd(pts, seedCenters(pts, k, rng), opts.MaxIter)
		if best == nil || cur.inertia < best.inertia {
			best = cur
		}
	}

	return summarize(pts, best), nil
}

func validate(points []domain.Coordinate, k int) error {
	if k < 1 {
		return ErrInvalidK
	}
	if len(points) == 0 {
		return ErrEmptyInput
	}
	if len(points) < k {
		return ErrTooFewPoints
	}
	for _, p := range points {
		if math.IsNaN(p.Lon) || math.IsNaN(p.Lat) || math.IsInf(p.Lon, 0) || math.IsInf(p.Lat, 0) {
			return ErrMalformedPoint
		}
	}
	return nil
}

// seedCenters picks k initial centers with k-means++: the first uniformly,
// each next one with probability proportional to its squared distance from
// the nearest center chosen so far.
func seedCenters(pts []r2.Point, k int, rng *rand.Rand) []r2.Point {
	centers := make([]r2.Point, 0, k)
	centers = append(centers, pts[rng.IntN(len(pts))])

	dist := make([]float64, len(pts))
	for i, p := range pts {
		dist[i] = sqDist(p, centers[0])
	}

	for len(centers) < k {
		var total float64
		for _, d := range dist {
			total += d
		}

		next := rng.IntN(len(pts))
		if total > 0 {
			target := rng.Float64() * total
			for i, d := range dist {
				target -= d
				if target < 0 {
					next = i
					break
				}
			}
		}
		c := pts[next]
		centers = append(centers, c)

		for i, p := range pts {
			if d := sqDist(p, c); d < dist[i] {
				dist[i] = d
			}
		}
	}
	return centers
}

// lloyd alternates assignment and mean update until no assignment changes or
// maxIter is reached. The returned assignment is always against the returned
// centers.
func lloyd(pts []r2.Point, centers []r2.Point, maxIter int) *run {
	k := len(centers)
	assign := make([]int, len(pts))
	for i := range assign {
		assign[i] = -1
	}

	converged := false
	for range maxIter {
		if !reassign(pts, centers, assign) {
			converged = true
			break
		}

		sums := make([]r2.Point, k)
		counts := make([]int, k)
		for i, p := range pts {
			c := assign[i]
			sums[c] = sums[c].Add(p)
			counts[c]++
		}
		for c := range centers {
			// An empty cluster keeps its previous center.
			if counts[c] > 0 {
				centers[c] = sums[c].Mul(1 / float64(counts[c]))
			}
		}
	}
	if !converged {
		reassign(pts, centers, assign)
	}

	var inertia float64
	for i, p := range pts {
		inertia += sqDist(p, centers[assign[i]])
	}
	return &run{centers: centers, assign: assign, inertia: inertia}
}

// reassign points each point at its nearest center (lowest index on ties)
// and reports whether any assignment changed.
func reassign(pts []r2.Point, centers []r2.Point, assign []int) bool {
	changed := false
	for i, p := range pts {
		nearest := 0
		bestDist := sqDist(p, centers[0])
		for c := 1; c < len(centers); c++ {
			if d := sqDist(p, centers[c]); d < bestDist {
				nearest, bestDist = c, d
			}
		}
		if assign[i] != nearest {
			assign[i] = nearest
			changed = true
		}
	}
	return changed
}

func summarize(pts []r2.Point, r *run) domain.ClusterResult {
	out := make(domain.ClusterResult, len(r.centers))
	origins := make([]s2.LatLng, len(r.centers))
	for c, center := range r.centers {
		out[c].Center = domain.Coordinate{Lon: center.X, Lat: center.Y}
		origins[c] = s2.LatLngFromDegrees(center.Y, center.X)
	}
	for i, p := range pts {
		c := r.assign[i]
		out[c].Count++
		d := origins[c].Distance(s2.LatLngFromDegrees(p.Y, p.X)).Radians() * earthRadiusMeters
		if d > out[c].SpreadMeters {
			out[c].SpreadMeters = d
		}
	}
	return out
}

func sqDist(a, b r2.Point) float64 {
	d := a.Sub(b)
	return d.Dot(d)
}
