package vmd

import (
	"slices"
	"sync"

	"github.com/miu200521358/motion_supporter/pkg/domain/mmath"
)

type MorphFrame struct {
	index      int
	Ratio      float64
	Registered bool
	Read       bool
}

func NewMorphFrame(index int) *MorphFrame {
	return &MorphFrame{index: index}
}

func (mf *MorphFrame) Index() int {
	return mf.index
}

func (mf *MorphFrame) SetIndex(index int) {
	mf.index = index
}

func (mf *MorphFrame) Copy() *MorphFrame {
	return &MorphFrame{index: mf.index, Ratio: mf.Ratio, Registered: mf.Registered, Read: mf.Read}
}

// MorphNameFrames は1モーフ分のキーフレーム
type MorphNameFrames struct {
	Name    string
	values  map[int]*MorphFrame
	indexes *FrameIndexes
	mu      sync.RWMutex
}

func NewMorphNameFrames(name string) *MorphNameFrames {
	return &MorphNameFrames{
		Name:    name,
		values:  make(map[int]*MorphFrame),
		indexes: NewFrameIndexes(),
	}
}

func (mnf *MorphNameFrames) Len() int {
	mnf.mu.RLock()
	defer mnf.mu.RUnlock()
	return len(mnf.values)
}

func (mnf *MorphNameFrames) Contains(index int) bool {
	mnf.mu.RLock()
	defer mnf.mu.RUnlock()
	_, ok := mnf.values[index]
	return ok
}

func (mnf *MorphNameFrames) IndexList() []int {
	mnf.mu.RLock()
	defer mnf.mu.RUnlock()
	return mnf.indexes.List()
}

func (mnf *MorphNameFrames) MaxFrame() int {
	mnf.mu.RLock()
	defer mnf.mu.RUnlock()
	return mnf.indexes.Max()
}

// Get は index 時点のモーフ値。キー間は線形補間
func (mnf *MorphNameFrames) Get(index int) *MorphFrame {
	mnf.mu.RLock()
	defer mnf.mu.RUnlock()

	if mf, ok := mnf.values[index]; ok {
		return mf.Copy()
	}

	prevIndex, hasPrev := mnf.indexes.Prev(index)
	nextIndex, hasNext := mnf.indexes.Next(index)
	mf := NewMorphFrame(index)
	switch {
	case hasPrev && hasNext:
		t := float64(index-prevIndex) / float64(nextIndex-prevIndex)
		mf.Ratio = mmath.Lerp(mnf.values[prevIndex].Ratio, mnf.values[nextIndex].Ratio, t)
	case hasPrev:
		mf.Ratio = mnf.values[prevIndex].Ratio
	case hasNext:
		mf.Ratio = mnf.values[nextIndex].Ratio
	}
	return mf
}

// Insert は既存キーを置き換えるか新規に登録する
func (mnf *MorphNameFrames) Insert(mf *MorphFrame) {
	mnf.mu.Lock()
	defer mnf.mu.Unlock()

	mf.Registered = true
	mnf.values[mf.Index()] = mf
	mnf.indexes.Insert(mf.Index())
}

func (mnf *MorphNameFrames) Delete(index int) {
	mnf.mu.Lock()
	defer mnf.mu.Unlock()

	delete(mnf.values, index)
	mnf.indexes.Delete(index)
}

// ForEach は登録キーを昇順に走査する
func (mnf *MorphNameFrames) ForEach(f func(index int, mf *MorphFrame) bool) {
	mnf.mu.RLock()
	defer mnf.mu.RUnlock()

	for _, index := range mnf.indexes.List() {
		if !f(index, mnf.values[index]) {
			return
		}
	}
}

func (mnf *MorphNameFrames) Copy() *MorphNameFrames {
	mnf.mu.RLock()
	defer mnf.mu.RUnlock()

	copied := NewMorphNameFrames(mnf.Name)
	for index, mf := range mnf.values {
		copied.values[index] = mf.Copy()
	}
	copied.indexes = mnf.indexes.Copy()
	return copied
}

// MorphFrames はモーフ名ごとのキーフレーム
type MorphFrames struct {
	values map[string]*MorphNameFrames
	mu     sync.RWMutex
}

func NewMorphFrames() *MorphFrames {
	return &MorphFrames{values: make(map[string]*MorphNameFrames)}
}

func (mfs *MorphFrames) Contains(morphName string) bool {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	_, ok := mfs.values[morphName]
	return ok
}

// Get はモーフのキーフレーム。登録がない場合は空(登録はしない)
func (mfs *MorphFrames) Get(morphName string) *MorphNameFrames {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	if mnf, ok := mfs.values[morphName]; ok {
		return mnf
	}
	return NewMorphNameFrames(morphName)
}

func (mfs *MorphFrames) GetOrCreate(morphName string) *MorphNameFrames {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	if mnf, ok := mfs.values[morphName]; ok {
		return mnf
	}
	mnf := NewMorphNameFrames(morphName)
	mfs.values[morphName] = mnf
	return mnf
}

func (mfs *MorphFrames) Update(mnf *MorphNameFrames) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.values[mnf.Name] = mnf
}

func (mfs *MorphFrames) Delete(morphName string) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	delete(mfs.values, morphName)
}

func (mfs *MorphFrames) Names() []string {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	names := make([]string, 0, len(mfs.values))
	for name, mnf := range mfs.values {
		if mnf.Len() > 0 {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

func (mfs *MorphFrames) Len() int {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	count := 0
	for _, mnf := range mfs.values {
		count += mnf.Len()
	}
	return count
}

func (mfs *MorphFrames) MaxFrame() int {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	maxFrame := 0
	for _, mnf := range mfs.values {
		if mnf.Len() > 0 && mnf.MaxFrame() > maxFrame {
			maxFrame = mnf.MaxFrame()
		}
	}
	return maxFrame
}

func (mfs *MorphFrames) Copy() *MorphFrames {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	copied := NewMorphFrames()
	for name, mnf := range mfs.values {
		copied.values[name] = mnf.Copy()
	}
	return copied
}
