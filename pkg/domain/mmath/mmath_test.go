package mmath

import (
	"slices"
	"testing"
)

func TestClamped(t *testing.T) {
	tests := []struct {
		name     string
		v        float64
		expected float64
	}{
		{name: "下限", v: -3, expected: 0},
		{name: "範囲内", v: 64, expected: 64},
		{name: "上限", v: 200, expected: CURVE_MAX},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if actual := Clamped(tt.v, 0, CURVE_MAX); actual != tt.expected {
				t.Errorf("Clamped(%v) = %v, expected %v", tt.v, actual, tt.expected)
			}
		})
	}

	if actual := Clamped[uint8](250, 10, 200); actual != 200 {
		t.Errorf("Clamped[uint8] = %v", actual)
	}
}

func TestIntRangesByStep(t *testing.T) {
	tests := []struct {
		name             string
		start, end, step int
		expected         []int
	}{
		{name: "割り切れる", start: 0, end: 10, step: 5, expected: []int{0, 5, 10}},
		{name: "端数", start: 2, end: 9, step: 3, expected: []int{2, 5, 8, 9}},
		{name: "間隔なし", start: 0, end: 3, step: 0, expected: []int{0, 1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if actual := IntRangesByStep(tt.start, tt.end, tt.step); !slices.Equal(actual, tt.expected) {
				t.Errorf("IntRangesByStep() = %v, expected %v", actual, tt.expected)
			}
		})
	}
}

func TestUniqueSorted(t *testing.T) {
	values := []int{10, 3, 5, 3, 0, 10}
	if actual := UniqueSorted(values); !slices.Equal(actual, []int{0, 3, 5, 10}) {
		t.Errorf("UniqueSorted() = %v", actual)
	}
	if values[0] != 10 {
		t.Errorf("input was modified: %v", values)
	}
}
