package mmath

import (
	"math"
	"testing"
)

func TestCurve_EvaluateLinear(t *testing.T) {
	c := NewCurve()
	for now := 0; now <= 10; now++ {
		x, y, _ := c.Evaluate(0, now, 10)
		if math.Abs(x-y) > 1e-12 {
			t.Errorf("linear Evaluate(%d) x=%f y=%f", now, x, y)
		}
	}
}

func TestCurve_EvaluateEaseIn(t *testing.T) {
	c := NewCurveByValues(64, 0, 127, 64)
	_, y, _ := c.Evaluate(0, 5, 10)
	if y >= 0.5 {
		t.Errorf("ease in y(0.5) = %f, want < 0.5", y)
	}

	prev := 0.0
	for now := 0; now <= 20; now++ {
		_, y, _ := c.Evaluate(0, now, 20)
		if y < prev-1e-12 {
			t.Errorf("Evaluate not monotonic at %d: %f < %f", now, y, prev)
		}
		prev = y
	}
}

func TestCurve_Split(t *testing.T) {
	c := NewCurveByValues(30, 10, 90, 120)
	start, mid, end := 0, 12, 30

	first, second := c.Split(start, mid, end)
	_, yMid, _ := c.Evaluate(start, mid, end)

	for now := start; now <= end; now++ {
		_, expected, _ := c.Evaluate(start, now, end)
		var actual float64
		if now <= mid {
			_, y, _ := first.Evaluate(start, now, mid)
			actual = y * yMid
		} else {
			_, y, _ := second.Evaluate(mid, now, end)
			actual = yMid + y*(1-yMid)
		}
		// 0..127 への量子化分の誤差を許容
		if math.Abs(actual-expected) > 0.02 {
			t.Errorf("split curve at %d = %f, want %f", now, actual, expected)
		}
	}
}

func TestNewCurveFromValues(t *testing.T) {
	src := NewCurveByValues(42, 5, 85, 110)
	values := make([]float64, 21)
	for i := range values {
		_, y, _ := src.Evaluate(0, i, 20)
		values[i] = 3 + 10*y
	}

	curve, ok := NewCurveFromValues(values, 0.05)
	if !ok {
		t.Fatalf("NewCurveFromValues() failed to fit")
	}
	for i := range values {
		_, y, _ := curve.Evaluate(0, i, 20)
		if math.Abs(3+10*y-values[i]) > 0.05 {
			t.Errorf("fitted value at %d = %f, want %f", i, 3+10*y, values[i])
		}
	}
}

func TestNewCurveFromValues_NotFittable(t *testing.T) {
	values := []float64{0, 5, 0, 5, 0, 5, 10}
	if _, ok := NewCurveFromValues(values, 0.01); ok {
		t.Errorf("NewCurveFromValues() should fail for zigzag values")
	}
}
