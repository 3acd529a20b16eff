package mmath

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const CURVE_MAX = 127.0

// Curve はキーフレーム間のベジェ補間曲線。始点(0,0)終点(127,127)固定で、制御点2つを 0..127 で持つ
type Curve struct {
	Start *MVec2
	End   *MVec2
}

// NewCurve は線形補間曲線
func NewCurve() *Curve {
	return &Curve{
		Start: &MVec2{X: 20, Y: 20},
		End:   &MVec2{X: 107, Y: 107},
	}
}

func NewCurveByValues(x1, y1, x2, y2 byte) *Curve {
	return &Curve{
		Start: &MVec2{X: float64(x1), Y: float64(y1)},
		End:   &MVec2{X: float64(x2), Y: float64(y2)},
	}
}

func (c *Curve) Copy() *Curve {
	return &Curve{Start: c.Start.Copy(), End: c.End.Copy()}
}

func (c *Curve) IsLinear() bool {
	return c.Start.X == c.Start.Y && c.End.X == c.End.Y
}

func (c *Curve) Equals(other *Curve) bool {
	return c.Start.NearEquals(other.Start, 1e-8) && c.End.NearEquals(other.End, 1e-8)
}

// Values は x1,y1,x2,y2 のバイト列
func (c *Curve) Values() [4]byte {
	return [4]byte{
		byte(Clamped(math.Round(c.Start.X), 0, CURVE_MAX)),
		byte(Clamped(math.Round(c.Start.Y), 0, CURVE_MAX)),
		byte(Clamped(math.Round(c.End.X), 0, CURVE_MAX)),
		byte(Clamped(math.Round(c.End.Y), 0, CURVE_MAX)),
	}
}

func bezier(t, p1, p2 float64) float64 {
	it := 1 - t
	return 3*it*it*t*p1 + 3*it*t*t*p2 + t*t*t
}

// solveT は x(t) = x となる t を二分法で求める
func solveT(x, x1, x2 float64) float64 {
	lo, hi := 0.0, 1.0
	t := x
	for loopIdx := 0; loopIdx < 50; loopIdx++ {
		v := bezier(t, x1, x2)
		if math.Abs(v-x) < 1e-12 {
			break
		}
		if v < x {
			lo = t
		} else {
			hi = t
		}
		t = (lo + hi) / 2
	}
	return t
}

// Evaluate は start から end までの区間の now 時点での x, y, t を返す
func (c *Curve) Evaluate(start, now, end int) (x, y, t float64) {
	if now <= start || end <= start {
		return 0, 0, 0
	}
	if now >= end {
		return 1, 1, 1
	}

	x = float64(now-start) / float64(end-start)
	if c.IsLinear() {
		return x, x, x
	}

	t = solveT(x, c.Start.X/CURVE_MAX, c.End.X/CURVE_MAX)
	y = bezier(t, c.Start.Y/CURVE_MAX, c.End.Y/CURVE_MAX)
	return x, y, t
}

// Split は now の時点で曲線を2つに分割する。分割後のそれぞれの形状は元の曲線と一致する
func (c *Curve) Split(start, now, end int) (*Curve, *Curve) {
	if now <= start || now >= end || c.IsLinear() {
		return NewCurve(), NewCurve()
	}

	x := float64(now-start) / float64(end-start)
	p1 := &MVec2{X: c.Start.X / CURVE_MAX, Y: c.Start.Y / CURVE_MAX}
	p2 := &MVec2{X: c.End.X / CURVE_MAX, Y: c.End.Y / CURVE_MAX}
	t := solveT(x, p1.X, p2.X)

	// de Casteljau
	p0 := &MVec2{}
	p3 := &MVec2{X: 1, Y: 1}
	p01 := p0.Lerp(p1, t)
	p12 := p1.Lerp(p2, t)
	p23 := p2.Lerp(p3, t)
	p012 := p01.Lerp(p12, t)
	p123 := p12.Lerp(p23, t)
	p0123 := p012.Lerp(p123, t)

	return newSplitCurve(NewMRect(p0, p0123), p01, p012), newSplitCurve(NewMRect(p0123, p3), p123, p23)
}

func newSplitCurve(rect *MRect, c1, c2 *MVec2) *Curve {
	if rect.Width() < 1e-6 || rect.Height() < 1e-6 {
		return NewCurve()
	}

	n1 := rect.Normalize(c1)
	n2 := rect.Normalize(c2)

	return &Curve{
		Start: &MVec2{X: quantize(n1.X), Y: quantize(n1.Y)},
		End:   &MVec2{X: quantize(n2.X), Y: quantize(n2.Y)},
	}
}

func quantize(v float64) float64 {
	return Clamped(math.Round(v*CURVE_MAX), 0, CURVE_MAX)
}

// NewCurveFromValues は等間隔に並んだ値の列を近似する補間曲線を求める。
// 近似誤差が threshold を超える場合は false
func NewCurveFromValues(values []float64, threshold float64) (*Curve, bool) {
	n := len(values) - 1
	if n <= 1 {
		return NewCurve(), true
	}

	v0 := values[0]
	diff := values[n] - v0

	if math.Abs(diff) < 1e-6 {
		// 始点と終点が同じ場合、途中も動いていなければ線形
		for _, v := range values {
			if math.Abs(v-v0) > threshold {
				return nil, false
			}
		}
		return NewCurve(), true
	}

	// 線形で収まる場合は線形を優先する
	linear := true
	for i := 1; i < n; i++ {
		if math.Abs(v0+diff*float64(i)/float64(n)-values[i]) > threshold {
			linear = false
			break
		}
	}
	if linear {
		return NewCurve(), true
	}

	a := mat.NewDense(n+1, 2, nil)
	b := mat.NewVecDense(n+1, nil)
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		it := 1 - t
		a.Set(i, 0, 3*it*it*t)
		a.Set(i, 1, 3*it*t*t)
		b.SetVec(i, (values[i]-v0)/diff-t*t*t)
	}

	var y1, y2 float64
	var handles mat.VecDense
	if err := handles.SolveVec(a, b); n < 3 || err != nil {
		// 制御点が1つに縮退する場合は対称解
		var num, den float64
		for i := 0; i <= n; i++ {
			s := a.At(i, 0) + a.At(i, 1)
			num += s * b.AtVec(i)
			den += s * s
		}
		if den == 0 {
			return nil, false
		}
		y1 = num / den
		y2 = y1
	} else {
		y1 = handles.AtVec(0)
		y2 = handles.AtVec(1)
	}

	// x はフレーム等間隔なので t と一致する制御点
	curve := &Curve{
		Start: &MVec2{X: quantize(1.0 / 3.0), Y: quantize(y1)},
		End:   &MVec2{X: quantize(2.0 / 3.0), Y: quantize(y2)},
	}

	for i := 1; i < n; i++ {
		_, y, _ := curve.Evaluate(0, i, n)
		if math.Abs(v0+diff*y-values[i]) > threshold {
			return nil, false
		}
	}

	return curve, true
}
