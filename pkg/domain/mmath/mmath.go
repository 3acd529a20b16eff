package mmath

import (
	"math"
	"slices"

	"golang.org/x/exp/constraints"
)

func Clamped[T constraints.Ordered](v, minV, maxV T) T {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func Lerp(v1, v2, t float64) float64 {
	return v1 + (v2-v1)*t
}

func NearEquals(v, other, epsilon float64) bool {
	return math.Abs(v-other) <= epsilon
}

// IsClose は相対誤差と絶対誤差を考慮した近似比較
func IsClose(a, b, rtol, atol float64) bool {
	return math.Abs(a-b) <= atol+rtol*math.Abs(b)
}

func Round(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}

func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func RadToDeg(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// IntRanges は 0 から max-1 までのフレーム番号を返す
func IntRanges(max int) []int {
	values := make([]int, 0, max)
	for i := 0; i < max; i++ {
		values = append(values, i)
	}
	return values
}

// IntRangesByStep は start から end までを step 間隔で返す。end は必ず含む
func IntRangesByStep(start, end, step int) []int {
	if step <= 0 {
		step = 1
	}
	values := make([]int, 0, (end-start)/step+2)
	for i := start; i < end; i += step {
		values = append(values, i)
	}
	values = append(values, end)
	return values
}

// UniqueSorted は重複を除いた昇順スライスを返す
func UniqueSorted[T constraints.Ordered](values []T) []T {
	if len(values) == 0 {
		return values
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return slices.Compact(sorted)
}
