package surface

import (
	"gonum.org/v1/gonum/mat"

	"surface-tracker/internal/markers"
)

// CameraModel describes the world camera. A zero Intrinsics matrix means
// pixel coordinates are used without undistortion.
type CameraModel struct {
	Resolution [2]int        `json:"resolution"`
	Intrinsics [3][3]float64 `json:"intrinsics"`
	// Distortion holds k1, k2, p1, p2, k3. Missing values are zero.
	Distortion []float64 `json:"distortion"`
}

func (c CameraModel) hasIntrinsics() bool {
	return c.Intrinsics[0][0] != 0 && c.Intrinsics[1][1] != 0
}

func (c CameraModel) cameraMatrix() *mat.Dense {
	k := mat.NewDense(3, 3, nil)
	for i, row := range c.Intrinsics {
		k.SetRow(i, row[:])
	}
	return k
}

func (c CameraModel) coeff(i int) float64 {
	if i < len(c.Distortion) {
		return c.Distortion[i]
	}
	return 0
}

// Undistort removes lens distortion from a pixel position and returns
// the pixel position an ideal pinhole camera would have seen.
func (c CameraModel) Undistort(p markers.Point) markers.Point {
	if !c.hasIntrinsics() || len(c.Distortion) == 0 {
		return p
	}

	k := c.cameraMatrix()
	var norm mat.VecDense
	if err := norm.SolveVec(k, mat.NewVecDense(3, []float64{p.X(), p.Y(), 1})); err != nil {
		return p
	}
	xd, yd := norm.AtVec(0)/norm.AtVec(2), norm.AtVec(1)/norm.AtVec(2)
	k1, k2, p1, p2, k3 := c.coeff(0), c.coeff(1), c.coeff(2), c.coeff(3), c.coeff(4)
	x, y := xd, yd

	// Fixed-point iteration, as in OpenCV's undistortPoints.
	for range 8 {
		r2 := x*x + y*y
		radial := 1 + k1*r2 + k2*r2*r2 + k3*r2*r2*r2
		dx := 2*p1*x*y + p2*(r2+2*x*x)
		dy := p1*(r2+2*y*y) + 2*p2*x*y
		x = (xd - dx) / radial
		y = (yd - dy) / radial
	}

	var pix mat.VecDense
	pix.MulVec(k, mat.NewVecDense(3, []float64{x, y, 1}))
	return markers.Pt(pix.AtVec(0)/pix.AtVec(2), pix.AtVec(1)/pix.AtVec(2))
}

// Denormalize converts a normalised position with the origin at the
// bottom left into pixels.
func (c CameraModel) Denormalize(norm [2]float64) markers.Point {
	w, h := float64(c.Resolution[0]), float64(c.Resolution[1])
	return markers.Pt(norm[0]*w, (1-norm[1])*h)
}
