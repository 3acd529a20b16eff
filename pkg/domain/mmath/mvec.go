package mmath

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// MVec2 は2次元ベクトルを表す。
type MVec2 struct {
	X float64
	Y float64
}

func NewMVec2() *MVec2 {
	return &MVec2{}
}

func (v *MVec2) Added(other *MVec2) *MVec2 {
	return &MVec2{X: v.X + other.X, Y: v.Y + other.Y}
}

func (v *MVec2) Subed(other *MVec2) *MVec2 {
	return &MVec2{X: v.X - other.X, Y: v.Y - other.Y}
}

func (v *MVec2) MuledScalar(s float64) *MVec2 {
	return &MVec2{X: v.X * s, Y: v.Y * s}
}

// Lerp は線形補間したベクトルを返す
func (v *MVec2) Lerp(other *MVec2, t float64) *MVec2 {
	return &MVec2{X: Lerp(v.X, other.X, t), Y: Lerp(v.Y, other.Y, t)}
}

func (v *MVec2) Copy() *MVec2 {
	return &MVec2{X: v.X, Y: v.Y}
}

func (v *MVec2) NearEquals(other *MVec2, epsilon float64) bool {
	return NearEquals(v.X, other.X, epsilon) && NearEquals(v.Y, other.Y, epsilon)
}

func (v *MVec2) String() string {
	return fmt.Sprintf("[x=%.7f, y=%.7f]", v.X, v.Y)
}

// MVec3 は3次元ベクトルを表す。
type MVec3 struct {
	X float64
	Y float64
	Z float64
}

var (
	MVec3Zero     = &MVec3{}
	MVec3One      = &MVec3{X: 1, Y: 1, Z: 1}
	MVec3UnitX    = &MVec3{X: 1}
	MVec3UnitY    = &MVec3{Y: 1}
	MVec3UnitZ    = &MVec3{Z: 1}
	MVec3UnitXNeg = &MVec3{X: -1}
	MVec3UnitYNeg = &MVec3{Y: -1}
	MVec3UnitZNeg = &MVec3{Z: -1}
)

func NewMVec3() *MVec3 {
	return &MVec3{}
}

func (v *MVec3) toR3() r3.Vec {
	return r3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}

func fromR3(r r3.Vec) *MVec3 {
	return &MVec3{X: r.X, Y: r.Y, Z: r.Z}
}

func (v *MVec3) Added(other *MVec3) *MVec3 {
	return fromR3(r3.Add(v.toR3(), other.toR3()))
}

func (v *MVec3) Subed(other *MVec3) *MVec3 {
	return fromR3(r3.Sub(v.toR3(), other.toR3()))
}

// Muled は成分毎の積を返す
func (v *MVec3) Muled(other *MVec3) *MVec3 {
	return &MVec3{X: v.X * other.X, Y: v.Y * other.Y, Z: v.Z * other.Z}
}

func (v *MVec3) MuledScalar(s float64) *MVec3 {
	return fromR3(r3.Scale(s, v.toR3()))
}

func (v *MVec3) DivedScalar(s float64) *MVec3 {
	if s == 0 {
		return NewMVec3()
	}
	return fromR3(r3.Scale(1/s, v.toR3()))
}

// Add は自身に加算する
func (v *MVec3) Add(other *MVec3) *MVec3 {
	v.X += other.X
	v.Y += other.Y
	v.Z += other.Z
	return v
}

// Sub は自身から減算する
func (v *MVec3) Sub(other *MVec3) *MVec3 {
	v.X -= other.X
	v.Y -= other.Y
	v.Z -= other.Z
	return v
}

func (v *MVec3) Negated() *MVec3 {
	return &MVec3{X: -v.X, Y: -v.Y, Z: -v.Z}
}

func (v *MVec3) Dot(other *MVec3) float64 {
	return r3.Dot(v.toR3(), other.toR3())
}

func (v *MVec3) Cross(other *MVec3) *MVec3 {
	return fromR3(r3.Cross(v.toR3(), other.toR3()))
}

func (v *MVec3) Length() float64 {
	return r3.Norm(v.toR3())
}

func (v *MVec3) LengthSqr() float64 {
	return r3.Norm2(v.toR3())
}

// Normalized は単位ベクトルを返す。長さ0の場合はゼロベクトル
func (v *MVec3) Normalized() *MVec3 {
	if v.Length() == 0 {
		return NewMVec3()
	}
	return fromR3(r3.Unit(v.toR3()))
}

func (v *MVec3) Distance(other *MVec3) float64 {
	return r3.Norm(r3.Sub(v.toR3(), other.toR3()))
}

func (v *MVec3) Lerp(other *MVec3, t float64) *MVec3 {
	return &MVec3{X: Lerp(v.X, other.X, t), Y: Lerp(v.Y, other.Y, t), Z: Lerp(v.Z, other.Z, t)}
}

func (v *MVec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// NearEquals は各成分の差が epsilon 以下かを返す
func (v *MVec3) NearEquals(other *MVec3, epsilon float64) bool {
	return NearEquals(v.X, other.X, epsilon) &&
		NearEquals(v.Y, other.Y, epsilon) &&
		NearEquals(v.Z, other.Z, epsilon)
}

func (v *MVec3) Copy() *MVec3 {
	return &MVec3{X: v.X, Y: v.Y, Z: v.Z}
}

func (v *MVec3) Vector() []float64 {
	return []float64{v.X, v.Y, v.Z}
}

// Get は軸番号(0:X,1:Y,2:Z)の値を返す
func (v *MVec3) Get(axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func (v *MVec3) Set(axis int, value float64) {
	switch axis {
	case 0:
		v.X = value
	case 1:
		v.Y = value
	default:
		v.Z = value
	}
}

func (v *MVec3) Abs() *MVec3 {
	return &MVec3{X: math.Abs(v.X), Y: math.Abs(v.Y), Z: math.Abs(v.Z)}
}

// MaxAbs は各成分の絶対値の最大
func (v *MVec3) MaxAbs() float64 {
	return max(math.Abs(v.X), math.Abs(v.Y), math.Abs(v.Z))
}

func (v *MVec3) RadToDeg() *MVec3 {
	return &MVec3{X: RadToDeg(v.X), Y: RadToDeg(v.Y), Z: RadToDeg(v.Z)}
}

func (v *MVec3) DegToRad() *MVec3 {
	return &MVec3{X: DegToRad(v.X), Y: DegToRad(v.Y), Z: DegToRad(v.Z)}
}

func (v *MVec3) String() string {
	return fmt.Sprintf("[x=%.7f, y=%.7f, z=%.7f]", v.X, v.Y, v.Z)
}
