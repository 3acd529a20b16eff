package mmath

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// MMat4 は列優先の4x4行列
type MMat4 mgl64.Mat4

func NewMMat4() *MMat4 {
	m := MMat4(mgl64.Ident4())
	return &m
}

// NewMMat4ByTranslate は平行移動行列を返す
func NewMMat4ByTranslate(v *MVec3) *MMat4 {
	m := MMat4(mgl64.Translate3D(v.X, v.Y, v.Z))
	return &m
}

func (m *MMat4) mgl() mgl64.Mat4 {
	return mgl64.Mat4(*m)
}

// Muled は m * other を返す
func (m *MMat4) Muled(other *MMat4) *MMat4 {
	r := MMat4(m.mgl().Mul4(other.mgl()))
	return &r
}

// Mul は自身を m * other で更新する
func (m *MMat4) Mul(other *MMat4) *MMat4 {
	*m = MMat4(m.mgl().Mul4(other.mgl()))
	return m
}

// Translate は自身の右から平行移動を掛ける
func (m *MMat4) Translate(v *MVec3) *MMat4 {
	return m.Mul(NewMMat4ByTranslate(v))
}

// Rotate は自身の右から回転を掛ける
func (m *MMat4) Rotate(q *MQuaternion) *MMat4 {
	return m.Mul(q.ToMat4())
}

func (m *MMat4) Inverted() *MMat4 {
	r := MMat4(m.mgl().Inv())
	return &r
}

// MulVec3 は点として変換する
func (m *MMat4) MulVec3(v *MVec3) *MVec3 {
	r := m.mgl().Mul4x1(mgl64.Vec4{v.X, v.Y, v.Z, 1})
	return &MVec3{X: r[0], Y: r[1], Z: r[2]}
}

// Translation は平行移動成分
func (m *MMat4) Translation() *MVec3 {
	c := m.mgl().Col(3)
	return &MVec3{X: c[0], Y: c[1], Z: c[2]}
}

// Quaternion は回転成分
func (m *MMat4) Quaternion() *MQuaternion {
	q := mgl64.Mat4ToQuat(m.mgl()).Normalize()
	return &MQuaternion{X: q.V[0], Y: q.V[1], Z: q.V[2], W: q.W}
}

func (m *MMat4) Copy() *MMat4 {
	c := *m
	return &c
}

func (m *MMat4) NearEquals(other *MMat4, epsilon float64) bool {
	return m.mgl().ApproxEqualThreshold(other.mgl(), epsilon)
}

func (m *MMat4) String() string {
	return fmt.Sprintf("%v", m.mgl())
}
