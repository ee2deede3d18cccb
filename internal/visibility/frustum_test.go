package visibility

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// lookFrustum returns a 90 degree square frustum at eye looking along dir.
func lookFrustum(eye, dir mgl32.Vec3, far float32) Frustum {
	proj := mgl32.Perspective(mgl32.DegToRad(90), 1, 0.1, far)
	view := mgl32.LookAtV(eye, eye.Add(dir), mgl32.Vec3{0, 1, 0})
	return NewFrustum(proj.Mul4(view))
}

func TestFrustumPlanesNormalized(t *testing.T) {
	f := lookFrustum(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}, 100)
	for i, p := range f.Planes {
		l := math.Sqrt(float64(p.A*p.A + p.B*p.B + p.C*p.C))
		if math.Abs(l-1) > 1e-4 {
			t.Fatalf("plane %d not normalized: |n|=%f", i, l)
		}
	}
	// Near plane faces forward, far plane faces back
	if f.Planes[4].C >= 0 || f.Planes[5].C <= 0 {
		t.Fatalf("unexpected near/far orientation: %+v %+v", f.Planes[4], f.Planes[5])
	}
}

func TestFrustumPoints(t *testing.T) {
	f := lookFrustum(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}, 100)
	cases := []struct {
		p    mgl32.Vec3
		want bool
	}{
		{mgl32.Vec3{0, 0, -10}, true},
		{mgl32.Vec3{5, -5, -10}, true},
		{mgl32.Vec3{0, 0, 10}, false},   // behind
		{mgl32.Vec3{0, 0, -150}, false}, // beyond far
		{mgl32.Vec3{20, 0, -10}, false}, // outside the 45 degree half-angle
		{mgl32.Vec3{0, 0, -0.01}, false},
	}
	for _, tc := range cases {
		if got := f.IntersectsSphere(tc.p, 0); got != tc.want {
			t.Errorf("IntersectsSphere(%v, 0) = %v, want %v", tc.p, got, tc.want)
		}
	}
}

func TestFrustumSphere(t *testing.T) {
	f := lookFrustum(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}, 100)
	if !f.IntersectsSphere(mgl32.Vec3{0, 0, 5}, 6) {
		t.Error("sphere straddling the near plane should intersect")
	}
	if f.IntersectsSphere(mgl32.Vec3{0, 0, 5}, 4) {
		t.Error("sphere fully behind the camera should not intersect")
	}
	if !f.IntersectsSphere(mgl32.Vec3{25, 0, -10}, 12) {
		t.Error("sphere overlapping the right plane should intersect")
	}
}

func TestFrustumAABB(t *testing.T) {
	f := lookFrustum(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}, 100)
	if !f.IntersectsAABB(mgl32.Vec3{-1, -1, -20}, mgl32.Vec3{1, 1, -10}) {
		t.Error("box ahead should intersect")
	}
	if f.IntersectsAABB(mgl32.Vec3{-1, -1, 10}, mgl32.Vec3{1, 1, 20}) {
		t.Error("box behind should not intersect")
	}
	if !f.IntersectsAABB(mgl32.Vec3{-50, -50, -50}, mgl32.Vec3{50, 50, 50}) {
		t.Error("box containing the camera should intersect")
	}
}
