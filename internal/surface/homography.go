package surface

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"surface-tracker/internal/markers"
)

// ErrDegenerate is returned when points do not constrain a homography.
var ErrDegenerate = errors.New("degenerate point configuration")

// rankTolerance is the smallest ratio of the eighth to the first singular
// value of the DLT system that still counts as full rank.
const rankTolerance = 1e-10

// Homography is a row-major 3x3 projective transform.
type Homography [9]float64

// Identity is the identity transform.
var Identity = Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}

func (h Homography) dense() *mat.Dense {
	return mat.NewDense(3, 3, h[:])
}

func fromDense(m mat.Matrix) Homography {
	var h Homography
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			h[i*3+j] = m.At(i, j)
		}
	}
	return h
}

// Apply maps p. ok is false when p maps to infinity.
func (h Homography) Apply(p markers.Point) (out markers.Point, ok bool) {
	var q mat.VecDense
	q.MulVec(h.dense(), mat.NewVecDense(3, []float64{p.X(), p.Y(), 1}))
	w := q.AtVec(2)
	if math.Abs(w) < 1e-12 {
		return markers.Point{}, false
	}
	return markers.Pt(q.AtVec(0)/w, q.AtVec(1)/w), true
}

// Mul returns h·o, the transform that applies o first.
func (h Homography) Mul(o Homography) Homography {
	var r mat.Dense
	r.Mul(h.dense(), o.dense())
	return fromDense(&r)
}

// Inverse returns the inverse transform.
func (h Homography) Inverse() (Homography, error) {
	var inv mat.Dense
	if err := inv.Inverse(h.dense()); err != nil {
		return Homography{}, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}
	return fromDense(&inv).normalized(), nil
}

func (h Homography) normalized() Homography {
	if math.Abs(h[8]) < 1e-15 {
		return h
	}
	s := h[8]
	for i := range h {
		h[i] /= s
	}
	return h
}

// similarity returns a transform that moves the centroid of pts to the
// origin and scales their mean distance to sqrt(2).
func similarity(pts []markers.Point) (Homography, error) {
	var cx, cy float64
	for _, p := range pts {
		cx += p.X()
		cy += p.Y()
	}
	n := float64(len(pts))
	cx /= n
	cy /= n

	var mean float64
	for _, p := range pts {
		mean += math.Hypot(p.X()-cx, p.Y()-cy)
	}
	mean /= n
	if mean < 1e-12 {
		return Homography{}, ErrDegenerate
	}

	s := math.Sqrt2 / mean
	return Homography{s, 0, -s * cx, 0, s, -s * cy, 0, 0, 1}, nil
}

// EstimateHomography fits the transform mapping src onto dst in the least
// squares sense with the normalised direct linear transform. At least
// four correspondences are required.
func EstimateHomography(src, dst []markers.Point) (Homography, error) {
	if len(src) != len(dst) || len(src) < 4 {
		return Homography{}, ErrDegenerate
	}

	ts, err := similarity(src)
	if err != nil {
		return Homography{}, err
	}
	td, err := similarity(dst)
	if err != nil {
		return Homography{}, err
	}

	a := mat.NewDense(2*len(src), 9, nil)
	for i := range src {
		s, _ := ts.Apply(src[i])
		d, _ := td.Apply(dst[i])
		x, y, u, v := s.X(), s.Y(), d.X(), d.Y()
		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}

	// The solution is the right singular vector of the smallest singular value.
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return Homography{}, fmt.Errorf("%w: SVD did not converge", ErrDegenerate)
	}
	values := svd.Values(nil)
	if values[0] == 0 || values[7]/values[0] < rankTolerance {
		return Homography{}, ErrDegenerate
	}
	var v mat.Dense
	svd.VTo(&v)

	var hn Homography
	for i := range hn {
		hn[i] = v.At(i, 8)
	}
	if math.Abs(hn[8]) < 1e-15 {
		return Homography{}, ErrDegenerate
	}

	tdInv, err := td.Inverse()
	if err != nil {
		return Homography{}, err
	}
	return tdInv.Mul(hn.normalized()).Mul(ts).normalized(), nil
}
