package vmd

import (
	"math"
	"sync"

	"github.com/miu200521358/motion_supporter/pkg/domain/mmath"
)

// BoneNameFrames は1ボーン分のキーフレーム
type BoneNameFrames struct {
	Name    string
	values  map[int]*BoneFrame
	indexes *FrameIndexes
	mu      sync.RWMutex
}

func NewBoneNameFrames(name string) *BoneNameFrames {
	return &BoneNameFrames{
		Name:    name,
		values:  make(map[int]*BoneFrame),
		indexes: NewFrameIndexes(),
	}
}

func (bnf *BoneNameFrames) Len() int {
	bnf.mu.RLock()
	defer bnf.mu.RUnlock()
	return len(bnf.values)
}

// Contains は index にキーが登録されているか
func (bnf *BoneNameFrames) Contains(index int) bool {
	bnf.mu.RLock()
	defer bnf.mu.RUnlock()
	_, ok := bnf.values[index]
	return ok
}

// IndexList は昇順のキーフレーム番号一覧
func (bnf *BoneNameFrames) IndexList() []int {
	bnf.mu.RLock()
	defer bnf.mu.RUnlock()
	return bnf.indexes.List()
}

func (bnf *BoneNameFrames) MinFrame() int {
	bnf.mu.RLock()
	defer bnf.mu.RUnlock()
	return bnf.indexes.Min()
}

func (bnf *BoneNameFrames) MaxFrame() int {
	bnf.mu.RLock()
	defer bnf.mu.RUnlock()
	return bnf.indexes.Max()
}

// Get は index 時点のキーフレームを返す。
// 登録キーがあればその複製、なければ前後のキーから補間した値
func (bnf *BoneNameFrames) Get(index int) *BoneFrame {
	bnf.mu.RLock()
	defer bnf.mu.RUnlock()
	return bnf.get(index)
}

func (bnf *BoneNameFrames) get(index int) *BoneFrame {
	if bf, ok := bnf.values[index]; ok {
		return bf.Copy()
	}

	prevIndex, hasPrev := bnf.indexes.Prev(index)
	nextIndex, hasNext := bnf.indexes.Next(index)

	if !hasPrev && !hasNext {
		bf := NewBoneFrame(index)
		return bf
	}
	if !hasPrev {
		// 最初のキーより前は最初のキーと同じ値
		bf := bnf.values[nextIndex].Copy()
		bf.SetIndex(index)
		bf.Registered = false
		bf.Read = false
		return bf
	}
	if !hasNext {
		bf := bnf.values[prevIndex].Copy()
		bf.SetIndex(index)
		bf.Registered = false
		bf.Read = false
		return bf
	}

	prev := bnf.values[prevIndex]
	next := bnf.values[nextIndex]
	return interpolate(prev, next, index)
}

// interpolate は prev と next の間の index 時点の値を next の補間曲線で求める
func interpolate(prev, next *BoneFrame, index int) *BoneFrame {
	curves := next.FilledCurves()
	bf := NewBoneFrame(index)
	bf.Curves = curves.Copy()

	_, ry, _ := curves.Rotate.Evaluate(prev.Index(), index, next.Index())
	if prev.Rotation != nil || next.Rotation != nil {
		bf.Rotation = prev.FilledRotation().Slerp(next.FilledRotation(), ry)
	}

	if prev.Position != nil || next.Position != nil {
		prevPos := prev.FilledPosition()
		nextPos := next.FilledPosition()
		bf.Position = mmath.NewMVec3()
		for axis := 0; axis < 3; axis++ {
			_, y, _ := curves.Translate(axis).Evaluate(prev.Index(), index, next.Index())
			bf.Position.Set(axis, mmath.Lerp(prevPos.Get(axis), nextPos.Get(axis), y))
		}
	}

	return bf
}

// Insert はキーを登録する。前後にキーがある場合、後キーの補間曲線を分割して形状を保つ
func (bnf *BoneNameFrames) Insert(bf *BoneFrame) {
	bnf.mu.Lock()
	defer bnf.mu.Unlock()

	index := bf.Index()
	bf.Registered = true

	if _, ok := bnf.values[index]; !ok {
		prevIndex, hasPrev := bnf.indexes.Prev(index)
		nextIndex, hasNext := bnf.indexes.Next(index)
		if hasPrev && hasNext {
			next := bnf.values[nextIndex]
			nextCurves := next.FilledCurves().Copy()

			curves := NewBoneCurves()
			curves.Rotate, nextCurves.Rotate = nextCurves.Rotate.Split(prevIndex, index, nextIndex)
			for axis := 0; axis < 3; axis++ {
				first, second := nextCurves.Translate(axis).Split(prevIndex, index, nextIndex)
				curves.SetTranslate(axis, first)
				nextCurves.SetTranslate(axis, second)
			}

			bf.Curves = curves
			next.Curves = nextCurves
		}
	}

	if bf.Curves == nil {
		bf.Curves = NewBoneCurves()
	}

	bnf.values[index] = bf
	bnf.indexes.Insert(index)
}

// Append は補間曲線を分割せずにキーを登録する
func (bnf *BoneNameFrames) Append(bf *BoneFrame) {
	bnf.mu.Lock()
	defer bnf.mu.Unlock()

	if bf.Curves == nil {
		bf.Curves = NewBoneCurves()
	}
	bnf.values[bf.Index()] = bf
	bnf.indexes.Insert(bf.Index())
}

func (bnf *BoneNameFrames) Delete(index int) {
	bnf.mu.Lock()
	defer bnf.mu.Unlock()

	delete(bnf.values, index)
	bnf.indexes.Delete(index)
}

// ForEach は登録キーを昇順に走査する。f が false を返したら中断
func (bnf *BoneNameFrames) ForEach(f func(index int, bf *BoneFrame) bool) {
	bnf.mu.RLock()
	defer bnf.mu.RUnlock()

	for _, index := range bnf.indexes.List() {
		if !f(index, bnf.values[index]) {
			return
		}
	}
}

// IsEmptyMotion は全キーが初期値(回転なし、移動なし)か
func (bnf *BoneNameFrames) IsEmptyMotion() bool {
	bnf.mu.RLock()
	defer bnf.mu.RUnlock()

	for _, bf := range bnf.values {
		if !bf.FilledRotation().IsIdent() || !bf.FilledPosition().NearEquals(mmath.MVec3Zero, 1e-6) {
			return false
		}
	}
	return true
}

// RemoveUnnecessary は [start, end] の範囲で、除去しても前後のキーの補間曲線で
// 許容誤差内に再現できるキーを除去する。除去できるキーがなくなるまで繰り返す。
// 誤差は除去前の曲線に対して判定するので、繰り返しても誤差は積み上がらない。
// 最初と最後のキーは残す
func (bnf *BoneNameFrames) RemoveUnnecessary(
	start, end int, rotatable, translatable bool, degreeTolerance, lengthTolerance float64,
) int {
	bnf.mu.Lock()
	defer bnf.mu.Unlock()

	if len(bnf.indexes.Range(start, end)) == 0 {
		return 0
	}
	originals := bnf.snapshot(start, end)

	removedCount := 0
	for {
		removed := false
		for _, index := range bnf.indexes.Range(start, end) {
			if bnf.tryRemove(originals, index, rotatable, translatable, degreeTolerance, lengthTolerance) {
				removed = true
				removedCount++
			}
		}
		if !removed {
			return removedCount
		}
	}
}

// frameSnapshot は除去前の各フレームの値
type frameSnapshot struct {
	start  int
	frames []*BoneFrame
}

func (s *frameSnapshot) get(index int) *BoneFrame {
	return s.frames[index-s.start]
}

// snapshot は範囲の前後のキーまで含めた除去前の値を保持する
func (bnf *BoneNameFrames) snapshot(start, end int) *frameSnapshot {
	if prev, ok := bnf.indexes.Prev(start); ok {
		start = prev
	}
	if next, ok := bnf.indexes.Next(end); ok {
		end = next
	}

	s := &frameSnapshot{start: start, frames: make([]*BoneFrame, 0, end-start+1)}
	for f := start; f <= end; f++ {
		s.frames = append(s.frames, bnf.get(f))
	}
	return s
}

func (bnf *BoneNameFrames) tryRemove(
	originals *frameSnapshot, index int, rotatable, translatable bool, degreeTolerance, lengthTolerance float64,
) bool {
	if _, ok := bnf.values[index]; !ok {
		return false
	}

	prevIndex, hasPrev := bnf.indexes.Prev(index)
	nextIndex, hasNext := bnf.indexes.Next(index)
	if !hasPrev || !hasNext {
		return false
	}

	prev := bnf.values[prevIndex]
	next := bnf.values[nextIndex]

	spans := make([]*BoneFrame, 0, nextIndex-prevIndex+1)
	for f := prevIndex; f <= nextIndex; f++ {
		spans = append(spans, originals.get(f))
	}

	curves := next.FilledCurves().Copy()

	if rotatable {
		rotateCurve, ok := fitRotationCurve(prev, next, spans, degreeTolerance)
		if !ok {
			return false
		}
		curves.Rotate = rotateCurve
	}

	if translatable {
		for axis := 0; axis < 3; axis++ {
			values := make([]float64, len(spans))
			for i, bf := range spans {
				values[i] = bf.FilledPosition().Get(axis)
			}
			curve, ok := mmath.NewCurveFromValues(values, lengthTolerance)
			if !ok {
				return false
			}
			curves.SetTranslate(axis, curve)
		}
	}

	next.Curves = curves
	delete(bnf.values, index)
	bnf.indexes.Delete(index)

	return true
}

// fitRotationCurve は prev から next への球面線形補間の進行度を近似する曲線を求める
func fitRotationCurve(prev, next *BoneFrame, spans []*BoneFrame, degreeTolerance float64) (*mmath.Curve, bool) {
	prevRot := prev.FilledRotation()
	nextRot := next.FilledRotation()
	total := prevRot.AngleDegrees(nextRot)

	if total < 1e-6 {
		for _, bf := range spans {
			if prevRot.AngleDegrees(bf.FilledRotation()) > degreeTolerance {
				return nil, false
			}
		}
		return mmath.NewCurve(), true
	}

	values := make([]float64, len(spans))
	for i, bf := range spans {
		values[i] = prevRot.AngleDegrees(bf.FilledRotation()) / total
	}
	values[0] = 0
	values[len(values)-1] = 1

	curve, ok := mmath.NewCurveFromValues(values, math.Max(degreeTolerance/total, 1e-4))
	if !ok {
		return nil, false
	}

	// 角度比だけでは軌道から外れた回転を判定できないので、実際の回転で検証する
	n := len(spans) - 1
	for i := 1; i < n; i++ {
		_, y, _ := curve.Evaluate(0, i, n)
		if prevRot.Slerp(nextRot, y).AngleDegrees(spans[i].FilledRotation()) > degreeTolerance {
			return nil, false
		}
	}

	return curve, true
}

func (bnf *BoneNameFrames) Copy() *BoneNameFrames {
	bnf.mu.RLock()
	defer bnf.mu.RUnlock()

	copied := NewBoneNameFrames(bnf.Name)
	for index, bf := range bnf.values {
		copied.values[index] = bf.Copy()
	}
	copied.indexes = bnf.indexes.Copy()
	return copied
}
