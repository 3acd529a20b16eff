package mmath

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/num/quat"
)

// MQuaternion は回転を表すクォータニオン。成分の並びは VMD と同じ X,Y,Z,W
type MQuaternion struct {
	X float64
	Y float64
	Z float64
	W float64
}

var MQuaternionIdent = &MQuaternion{W: 1}

func NewMQuaternion() *MQuaternion {
	return &MQuaternion{W: 1}
}

func NewMQuaternionByValues(x, y, z, w float64) *MQuaternion {
	return &MQuaternion{X: x, Y: y, Z: z, W: w}
}

func (q *MQuaternion) number() quat.Number {
	return quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}

func fromNumber(n quat.Number) *MQuaternion {
	return &MQuaternion{X: n.Imag, Y: n.Jmag, Z: n.Kmag, W: n.Real}
}

// NewMQuaternionFromAxisAngles は軸と角度(ラジアン)から回転を生成する
func NewMQuaternionFromAxisAngles(axis *MVec3, rad float64) *MQuaternion {
	a := axis.Normalized()
	s := math.Sin(rad / 2)
	return &MQuaternion{X: a.X * s, Y: a.Y * s, Z: a.Z * s, W: math.Cos(rad / 2)}
}

// NewMQuaternionFromAxisAnglesDegrees は軸と角度(度)から回転を生成する
func NewMQuaternionFromAxisAnglesDegrees(axis *MVec3, deg float64) *MQuaternion {
	return NewMQuaternionFromAxisAngles(axis, DegToRad(deg))
}

// NewMQuaternionFromRadians はオイラー角(ラジアン)から回転を生成する。合成順は Y * X * Z
func NewMQuaternionFromRadians(x, y, z float64) *MQuaternion {
	qx := NewMQuaternionFromAxisAngles(MVec3UnitX, x)
	qy := NewMQuaternionFromAxisAngles(MVec3UnitY, y)
	qz := NewMQuaternionFromAxisAngles(MVec3UnitZ, z)
	return qy.Muled(qx).Muled(qz)
}

// NewMQuaternionFromDegrees はオイラー角(度)から回転を生成する
func NewMQuaternionFromDegrees(x, y, z float64) *MQuaternion {
	return NewMQuaternionFromRadians(DegToRad(x), DegToRad(y), DegToRad(z))
}

// NewMQuaternionRotate は from を to に向ける最短回転を返す
func NewMQuaternionRotate(from, to *MVec3) *MQuaternion {
	v0 := from.Normalized()
	v1 := to.Normalized()
	d := v0.Dot(v1) + 1.0

	// 反対向き
	if math.Abs(d) < 1e-8 {
		axis := MVec3UnitX.Cross(v0)
		if axis.LengthSqr() < 1e-8 {
			axis = MVec3UnitY.Cross(v0)
		}
		axis = axis.Normalized()
		return &MQuaternion{X: axis.X, Y: axis.Y, Z: axis.Z, W: 0}
	}

	d = math.Sqrt(2.0 * d)
	axis := v0.Cross(v1).DivedScalar(d)
	return (&MQuaternion{X: axis.X, Y: axis.Y, Z: axis.Z, W: d * 0.5}).Normalized()
}

// Muled は q * other を返す
func (q *MQuaternion) Muled(other *MQuaternion) *MQuaternion {
	return fromNumber(quat.Mul(q.number(), other.number()))
}

// Mul は自身を q * other で更新する
func (q *MQuaternion) Mul(other *MQuaternion) *MQuaternion {
	*q = *q.Muled(other)
	return q
}

func (q *MQuaternion) MuledScalar(s float64) *MQuaternion {
	return fromNumber(quat.Scale(s, q.number()))
}

func (q *MQuaternion) Added(other *MQuaternion) *MQuaternion {
	return fromNumber(quat.Add(q.number(), other.number()))
}

func (q *MQuaternion) Inverted() *MQuaternion {
	if q.Length() == 0 {
		return NewMQuaternion()
	}
	return fromNumber(quat.Inv(q.number()))
}

func (q *MQuaternion) Length() float64 {
	return quat.Abs(q.number())
}

func (q *MQuaternion) Normalized() *MQuaternion {
	l := q.Length()
	if l == 0 {
		return NewMQuaternion()
	}
	return q.MuledScalar(1 / l)
}

func (q *MQuaternion) Dot(other *MQuaternion) float64 {
	return q.X*other.X + q.Y*other.Y + q.Z*other.Z + q.W*other.W
}

func (q *MQuaternion) Negated() *MQuaternion {
	return &MQuaternion{X: -q.X, Y: -q.Y, Z: -q.Z, W: -q.W}
}

// Shorten は W が負の場合に符号を反転した同じ回転を返す
func (q *MQuaternion) Shorten() *MQuaternion {
	if q.W < 0 {
		return q.Negated()
	}
	return q.Copy()
}

func (q *MQuaternion) Copy() *MQuaternion {
	return &MQuaternion{X: q.X, Y: q.Y, Z: q.Z, W: q.W}
}

func (q *MQuaternion) IsIdent() bool {
	return q.NearEquals(MQuaternionIdent, 1e-6)
}

// NearEquals は同じ回転を表すかを返す。符号違いも同一とみなす
func (q *MQuaternion) NearEquals(other *MQuaternion, epsilon float64) bool {
	same := NearEquals(q.X, other.X, epsilon) && NearEquals(q.Y, other.Y, epsilon) &&
		NearEquals(q.Z, other.Z, epsilon) && NearEquals(q.W, other.W, epsilon)
	if same {
		return true
	}
	return NearEquals(q.X, -other.X, epsilon) && NearEquals(q.Y, -other.Y, epsilon) &&
		NearEquals(q.Z, -other.Z, epsilon) && NearEquals(q.W, -other.W, epsilon)
}

// ToRadian は回転量(ラジアン, 0..π)
func (q *MQuaternion) ToRadian() float64 {
	return 2 * math.Acos(Clamped(math.Abs(q.W), 0.0, 1.0))
}

// ToDegree は回転量(度, 0..180)
func (q *MQuaternion) ToDegree() float64 {
	return RadToDeg(q.ToRadian())
}

// AngleDegrees は other との差分回転量(度)
func (q *MQuaternion) AngleDegrees(other *MQuaternion) float64 {
	d := math.Abs(q.Normalized().Dot(other.Normalized()))
	return RadToDeg(2 * math.Acos(Clamped(d, 0.0, 1.0)))
}

// ToEulerAngles はオイラー角(ラジアン)を返す。X:pitch, Y:yaw, Z:roll
func (q *MQuaternion) ToEulerAngles() *MVec3 {
	n := q.Normalized()
	xx, yy, zz := n.X*n.X, n.Y*n.Y, n.Z*n.Z
	xy, xz, xw := n.X*n.Y, n.X*n.Z, n.X*n.W
	yz, yw, zw := n.Y*n.Z, n.Y*n.W, n.Z*n.W

	sinp := -2.0 * (yz - xw)
	if math.Abs(sinp) >= 1.0 {
		// ジンバルロック
		return &MVec3{
			X: math.Copysign(math.Pi/2, sinp),
			Y: 2.0 * math.Atan2(n.Y, n.W),
			Z: 0,
		}
	}

	return &MVec3{
		X: math.Asin(sinp),
		Y: math.Atan2(2.0*(xz+yw), 1.0-2.0*(xx+yy)),
		Z: math.Atan2(2.0*(xy+zw), 1.0-2.0*(xx+zz)),
	}
}

// ToEulerAnglesDegrees はオイラー角(度)を返す
func (q *MQuaternion) ToEulerAnglesDegrees() *MVec3 {
	return q.ToEulerAngles().RadToDeg()
}

// Slerp は球面線形補間。内積が負の場合は反対側を通らないよう符号を反転する
func (q *MQuaternion) Slerp(other *MQuaternion, t float64) *MQuaternion {
	if t <= 0 {
		return q.Copy()
	} else if t >= 1 {
		return other.Copy()
	}

	q2 := other.Copy()
	dot := q.Dot(other)
	if dot < 0 {
		q2 = q2.Negated()
		dot = -dot
	}

	factor1 := 1.0 - t
	factor2 := t
	if 1.0-dot > 1e-7 {
		angle := math.Acos(Clamped(dot, -1.0, 1.0))
		sinOfAngle := math.Sin(angle)
		if sinOfAngle > 1e-7 {
			factor1 = math.Sin((1.0-t)*angle) / sinOfAngle
			factor2 = math.Sin(t*angle) / sinOfAngle
		}
	}

	return q.MuledScalar(factor1).Added(q2.MuledScalar(factor2))
}

// MulVec3 はベクトルを回転させる
func (q *MQuaternion) MulVec3(v *MVec3) *MVec3 {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	n := q.Normalized().number()
	r := quat.Mul(quat.Mul(n, p), quat.Conj(n))
	return &MVec3{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// ToMat4 は回転行列を返す
func (q *MQuaternion) ToMat4() *MMat4 {
	n := q.Normalized()
	m := MMat4(mgl64.Quat{W: n.W, V: mgl64.Vec3{n.X, n.Y, n.Z}}.Mat4())
	return &m
}

// SeparateByAxis は軸(ローカルX)基準のローカル空間でオイラー分解し、
// グローバル空間に戻した X,Y,Z 各軸の回転と YZ の合成回転を返す。q = y * x * z
func (q *MQuaternion) SeparateByAxis(globalAxis *MVec3) (x, y, z, yz *MQuaternion) {
	localToGlobal := NewMQuaternionRotate(MVec3UnitX, globalAxis.Normalized())
	globalToLocal := localToGlobal.Inverted()
	localQ := globalToLocal.Muled(q).Muled(localToGlobal)

	euler := localQ.ToEulerAngles()
	lx := NewMQuaternionFromAxisAngles(MVec3UnitX, euler.X)
	ly := NewMQuaternionFromAxisAngles(MVec3UnitY, euler.Y)
	lz := NewMQuaternionFromAxisAngles(MVec3UnitZ, euler.Z)

	x = localToGlobal.Muled(lx).Muled(globalToLocal)
	y = localToGlobal.Muled(ly).Muled(globalToLocal)
	z = localToGlobal.Muled(lz).Muled(globalToLocal)
	yz = y.Muled(z)

	return x, y, z, yz
}

// SeparateTwistByAxis は軸周りの捩り成分とそれ以外の成分に分ける。q = swing * twist
func (q *MQuaternion) SeparateTwistByAxis(axis *MVec3) (twist, swing *MQuaternion) {
	a := axis.Normalized()
	v := &MVec3{X: q.X, Y: q.Y, Z: q.Z}
	p := a.MuledScalar(v.Dot(a))
	twist = (&MQuaternion{X: p.X, Y: p.Y, Z: p.Z, W: q.W}).Normalized()
	swing = q.Muled(twist.Inverted())
	return twist, swing
}

func (q *MQuaternion) Vector() []float64 {
	return []float64{q.X, q.Y, q.Z, q.W}
}

func (q *MQuaternion) String() string {
	return fmt.Sprintf("[x=%.7f, y=%.7f, z=%.7f, w=%.7f]", q.X, q.Y, q.Z, q.W)
}
