package spatialmath

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

func TestNewPose(t *testing.T) {
	p := NewPose(r3.Vector{X: 1, Y: 2, Z: 3}, quat.Number{Real: 1})
	pt := p.Point()
	test.That(t, pt.X, test.ShouldAlmostEqual, 1)
	test.That(t, pt.Y, test.ShouldAlmostEqual, 2)
	test.That(t, pt.Z, test.ShouldAlmostEqual, 3)
	test.That(t, p.Rotation(), test.ShouldResemble, quat.Number{Real: 1})

	m := p.Mat4()
	test.That(t, m.At(0, 3), test.ShouldAlmostEqual, 1)
	test.That(t, m.At(1, 3), test.ShouldAlmostEqual, 2)
	test.That(t, m.At(2, 3), test.ShouldAlmostEqual, 3)
	test.That(t, m.At(3, 3), test.ShouldAlmostEqual, 1)
}

func TestZeroPose(t *testing.T) {
	test.That(t, Mat4Equal(NewZeroPose().Mat4(), mgl64.Ident4()), test.ShouldBeTrue)
}

func TestNormalizeRotation(t *testing.T) {
	// degenerate rotations fall back to identity
	test.That(t, NormalizeRotation(quat.Number{}), test.ShouldResemble, quat.Number{Real: 1})
	test.That(t, NormalizeRotation(quat.Number{Real: math.NaN()}), test.ShouldResemble, quat.Number{Real: 1})

	n := NormalizeRotation(quat.Number{Real: 2, Imag: 2})
	test.That(t, quat.Abs(n), test.ShouldAlmostEqual, 1)
	test.That(t, n.Real, test.ShouldAlmostEqual, math.Sqrt2/2)
	test.That(t, n.Imag, test.ShouldAlmostEqual, math.Sqrt2/2)
}

func TestComposeInvert(t *testing.T) {
	// 90 degrees about Z, then a translation
	rot := quat.Number{Real: math.Cos(math.Pi / 4), Kmag: math.Sin(math.Pi / 4)}
	p := NewPose(r3.Vector{X: 4, Y: -1, Z: 2}, rot)

	roundTrip := Compose(p, Invert(p)).Mat4()
	ident := mgl64.Ident4()
	for i := 0; i < 16; i++ {
		test.That(t, roundTrip[i], test.ShouldAlmostEqual, ident[i], 1e-12)
	}

	// rotating (1,0,0) by 90 degrees about Z gives (0,1,0) before translating
	moved := Compose(p, NewPose(r3.Vector{X: 1}, quat.Number{Real: 1})).Point()
	test.That(t, moved.X, test.ShouldAlmostEqual, 4, 1e-12)
	test.That(t, moved.Y, test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, moved.Z, test.ShouldAlmostEqual, 2, 1e-12)
}

func TestComposeMatchesMatrixProduct(t *testing.T) {
	a := NewPose(r3.Vector{X: 1, Y: 2, Z: 3}, quat.Number{Real: math.Cos(0.3), Kmag: math.Sin(0.3)})
	b := NewPose(r3.Vector{X: -2, Z: 5}, quat.Number{Real: math.Cos(0.7), Imag: math.Sin(0.7)})

	composed := Compose(a, b).Mat4()
	product := a.Mat4().Mul4(b.Mat4())
	for i := 0; i < 16; i++ {
		test.That(t, composed[i], test.ShouldAlmostEqual, product[i], 1e-12)
	}
}

func TestMat4Equal(t *testing.T) {
	a := NewPose(r3.Vector{X: 1}, quat.Number{Real: 1}).Mat4()
	b := NewPose(r3.Vector{X: 1}, quat.Number{Real: 1}).Mat4()
	c := NewPose(r3.Vector{X: 1.0000001}, quat.Number{Real: 1}).Mat4()
	test.That(t, Mat4Equal(a, b), test.ShouldBeTrue)
	test.That(t, Mat4Equal(a, c), test.ShouldBeFalse)
}
