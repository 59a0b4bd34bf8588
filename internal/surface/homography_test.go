package surface

import (
	"errors"
	"math"
	"testing"

	"surface-tracker/internal/markers"
)

func near(a, b markers.Point, tol float64) bool {
	return math.Abs(a.X()-b.X()) <= tol && math.Abs(a.Y()-b.Y()) <= tol
}

func TestEstimateHomographyRecoversTransform(t *testing.T) {
	want := Homography{1.2, 0.1, 30, -0.05, 0.9, 12, 0.0004, -0.0002, 1}
	src := []markers.Point{
		markers.Pt(10, 10), markers.Pt(300, 20), markers.Pt(310, 240),
		markers.Pt(15, 250), markers.Pt(160, 130), markers.Pt(80, 200),
	}

	dst := make([]markers.Point, len(src))
	for i, p := range src {
		q, ok := want.Apply(p)
		if !ok {
			t.Fatalf("Expected test transform to map %v", p)
		}
		dst[i] = q
	}

	got, err := EstimateHomography(src, dst)
	if err != nil {
		t.Fatalf("EstimateHomography failed: %v", err)
	}
	for i, p := range src {
		q, ok := got.Apply(p)
		if !ok || !near(q, dst[i], 1e-6) {
			t.Errorf("Point %d: expected %v, got %v", i, dst[i], q)
		}
	}
}

func TestHomographyInverse(t *testing.T) {
	h := Homography{2, 0, 5, 0, 3, -1, 0, 0, 1}
	inv, err := h.Inverse()
	if err != nil {
		t.Fatalf("Inverse failed: %v", err)
	}

	p := markers.Pt(7, -3)
	q, _ := h.Apply(p)
	back, _ := inv.Apply(q)
	if !near(back, p, 1e-9) {
		t.Errorf("Expected %v after round trip, got %v", p, back)
	}

	id := h.Mul(inv)
	for i, v := range Identity {
		if math.Abs(id[i]-v) > 1e-9 {
			t.Errorf("Expected identity at %d, got %v", i, id)
			break
		}
	}
}

func TestEstimateHomographyDegenerate(t *testing.T) {
	tests := []struct {
		name     string
		src, dst []markers.Point
	}{
		{
			name: "too few points",
			src:  []markers.Point{markers.Pt(0, 0), markers.Pt(1, 0), markers.Pt(1, 1)},
			dst:  []markers.Point{markers.Pt(0, 0), markers.Pt(1, 0), markers.Pt(1, 1)},
		},
		{
			name: "coincident source points",
			src:  []markers.Point{markers.Pt(2, 2), markers.Pt(2, 2), markers.Pt(2, 2), markers.Pt(2, 2)},
			dst:  []markers.Point{markers.Pt(0, 0), markers.Pt(1, 0), markers.Pt(1, 1), markers.Pt(0, 1)},
		},
		{
			name: "repeated correspondence",
			src:  []markers.Point{markers.Pt(0, 0), markers.Pt(1, 0), markers.Pt(1, 1), markers.Pt(1, 1)},
			dst:  []markers.Point{markers.Pt(0, 0), markers.Pt(2, 0), markers.Pt(2, 2), markers.Pt(2, 2)},
		},
		{
			name: "length mismatch",
			src:  []markers.Point{markers.Pt(0, 0), markers.Pt(1, 0), markers.Pt(1, 1), markers.Pt(0, 1)},
			dst:  []markers.Point{markers.Pt(0, 0)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EstimateHomography(tt.src, tt.dst); !errors.Is(err, ErrDegenerate) {
				t.Errorf("Expected ErrDegenerate, got %v", err)
			}
		})
	}
}

func TestHomographyInverseSingular(t *testing.T) {
	h := Homography{1, 2, 3, 2, 4, 6, 0, 0, 1}
	if _, err := h.Inverse(); !errors.Is(err, ErrDegenerate) {
		t.Errorf("Expected ErrDegenerate, got %v", err)
	}
}

func TestEstimateHomographyFromFourCorners(t *testing.T) {
	src := []markers.Point{markers.Pt(100, 100), markers.Pt(150, 100), markers.Pt(150, 150), markers.Pt(100, 150)}
	dst := []markers.Point{markers.Pt(0, 1), markers.Pt(1, 1), markers.Pt(1, 0), markers.Pt(0, 0)}

	h, err := EstimateHomography(src, dst)
	if err != nil {
		t.Fatalf("EstimateHomography failed: %v", err)
	}
	if got, ok := h.Apply(markers.Pt(125, 125)); !ok || !near(got, markers.Pt(0.5, 0.5), 1e-9) {
		t.Errorf("Expected the centre to map to (0.5, 0.5), got %v", got)
	}
}

func TestUndistortWithoutModelIsIdentity(t *testing.T) {
	p := markers.Pt(123.5, 456.25)
	if got := (CameraModel{}).Undistort(p); got != p {
		t.Errorf("Expected %v, got %v", p, got)
	}
}

func TestUndistortInvertsDistortion(t *testing.T) {
	cam := CameraModel{
		Resolution: [2]int{1280, 720},
		Intrinsics: [3][3]float64{{800, 0, 640}, {0, 800, 360}, {0, 0, 1}},
		Distortion: []float64{-0.1, 0.01, 0, 0, 0},
	}

	// Distort an ideal point forward, then expect Undistort to recover it.
	ideal := markers.Pt(900, 500)
	x := (ideal.X() - 640) / 800
	y := (ideal.Y() - 360) / 800
	r2 := x*x + y*y
	radial := 1 - 0.1*r2 + 0.01*r2*r2
	distorted := markers.Pt(x*radial*800+640, y*radial*800+360)

	if got := cam.Undistort(distorted); !near(got, ideal, 1e-3) {
		t.Errorf("Expected %v, got %v", ideal, got)
	}
}

func TestDenormalizeFlipsY(t *testing.T) {
	cam := CameraModel{Resolution: [2]int{200, 100}}
	got := cam.Denormalize([2]float64{0.25, 0.75})
	if want := markers.Pt(50, 25); got != want {
		t.Errorf("Expected %v, got %v", want, got)
	}
}
