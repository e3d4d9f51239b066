// Package spatialmath defines the rigid transform math used to place sensor data in space.
package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/dualquat"
	"gonum.org/v1/gonum/num/quat"
)

// Rotations whose norm is below this cannot be meaningfully normalized and
// fall back to the identity quaternion.
const normEpsilon = 1e-9

// Pose represents a rigid transform in 3D space: a translation and a unit
// quaternion rotation, no scale. It is backed by a dual quaternion with the
// convention dq = r + ε(1/2)tr, so poses compose by dual quaternion
// multiplication.
type Pose struct {
	quat dualquat.Number
}

// NewZeroPose returns the identity pose. The real part of a dual quaternion
// must be a unit quaternion, not all zeroes, so this should be used instead
// of &Pose{}.
func NewZeroPose() *Pose {
	return &Pose{dualquat.Number{
		Real: quat.Number{Real: 1},
		Dual: quat.Number{},
	}}
}

// NewPose returns a pose with the given translation and rotation. A rotation
// that is not a unit quaternion is normalized first; a degenerate rotation
// (near-zero norm, NaN or Inf components) falls back to the identity rotation
// rather than producing an error.
func NewPose(pt r3.Vector, rot quat.Number) *Pose {
	p := &Pose{dualquat.Number{Real: NormalizeRotation(rot)}}
	p.setTranslation(pt)
	return p
}

// NormalizeRotation scales a quaternion to unit norm, substituting the
// identity rotation when the input cannot be normalized.
func NormalizeRotation(rot quat.Number) quat.Number {
	n := quat.Abs(rot)
	if math.IsNaN(n) || math.IsInf(n, 0) || n < normEpsilon {
		return quat.Number{Real: 1}
	}
	if math.Abs(n-1) > normEpsilon {
		rot = quat.Scale(1/n, rot)
	}
	return rot
}

// setTranslation sets the dual part against the rotation.
func (p *Pose) setTranslation(pt r3.Vector) {
	p.quat.Dual = quat.Mul(quat.Number{Imag: pt.X / 2, Jmag: pt.Y / 2, Kmag: pt.Z / 2}, p.quat.Real)
}

// Point returns the translation component of the pose.
func (p *Pose) Point() r3.Vector {
	t := quat.Mul(p.quat.Dual, quat.Conj(p.quat.Real))
	return r3.Vector{X: 2 * t.Imag, Y: 2 * t.Jmag, Z: 2 * t.Kmag}
}

// Rotation returns the rotation component of the pose as a unit quaternion.
func (p *Pose) Rotation() quat.Number {
	return p.quat.Real
}

// Compose returns the pose equivalent to applying b within a's coordinate
// system, i.e. a then b.
func Compose(a, b *Pose) *Pose {
	return &Pose{dualquat.Mul(a.quat, b.quat)}
}

// Invert returns the inverse pose, such that Compose(p, Invert(p)) is the
// identity. For a unit dual quaternion this is the quaternion conjugate of
// both parts.
func Invert(p *Pose) *Pose {
	return &Pose{dualquat.Number{
		Real: quat.Conj(p.quat.Real),
		Dual: quat.Conj(p.quat.Dual),
	}}
}

// Mat4 converts the pose to a homogeneous 4x4 matrix with the translation in
// the fourth column.
func (p *Pose) Mat4() mgl64.Mat4 {
	r := p.quat.Real
	m := mgl64.Quat{W: r.Real, V: mgl64.Vec3{r.Imag, r.Jmag, r.Kmag}}.Mat4()
	pt := p.Point()
	m.SetCol(3, mgl64.Vec4{pt.X, pt.Y, pt.Z, 1})
	return m
}

// Mat4Equal reports whether two matrices are exactly equal in all 16
// elements.
func Mat4Equal(a, b mgl64.Mat4) bool {
	for i := 0; i < 16; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
