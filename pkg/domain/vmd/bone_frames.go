package vmd

import (
	"slices"
	"sync"
)

// BoneFrames はボーン名ごとのキーフレーム
type BoneFrames struct {
	values map[string]*BoneNameFrames
	mu     sync.RWMutex
}

func NewBoneFrames() *BoneFrames {
	return &BoneFrames{
		values: make(map[string]*BoneNameFrames),
	}
}

func (bfs *BoneFrames) Contains(boneName string) bool {
	bfs.mu.RLock()
	defer bfs.mu.RUnlock()
	_, ok := bfs.values[boneName]
	return ok
}

// Get はボーンのキーフレームを返す。登録がない場合は空のキーフレーム(登録はしない)
func (bfs *BoneFrames) Get(boneName string) *BoneNameFrames {
	bfs.mu.RLock()
	defer bfs.mu.RUnlock()

	if bnf, ok := bfs.values[boneName]; ok {
		return bnf
	}
	return NewBoneNameFrames(boneName)
}

// GetOrCreate はボーンのキーフレームを返す。登録がない場合は空のキーフレームを登録する
func (bfs *BoneFrames) GetOrCreate(boneName string) *BoneNameFrames {
	bfs.mu.Lock()
	defer bfs.mu.Unlock()

	if bnf, ok := bfs.values[boneName]; ok {
		return bnf
	}
	bnf := NewBoneNameFrames(boneName)
	bfs.values[boneName] = bnf
	return bnf
}

func (bfs *BoneFrames) Update(bnf *BoneNameFrames) {
	bfs.mu.Lock()
	defer bfs.mu.Unlock()
	bfs.values[bnf.Name] = bnf
}

func (bfs *BoneFrames) Delete(boneName string) {
	bfs.mu.Lock()
	defer bfs.mu.Unlock()
	delete(bfs.values, boneName)
}

// Names はキーが1つ以上あるボーン名の一覧(昇順)
func (bfs *BoneFrames) Names() []string {
	bfs.mu.RLock()
	defer bfs.mu.RUnlock()

	names := make([]string, 0, len(bfs.values))
	for name, bnf := range bfs.values {
		if bnf.Len() > 0 {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Len は全ボーンのキー数の合計
func (bfs *BoneFrames) Len() int {
	bfs.mu.RLock()
	defer bfs.mu.RUnlock()

	count := 0
	for _, bnf := range bfs.values {
		count += bnf.Len()
	}
	return count
}

func (bfs *BoneFrames) MinFrame() int {
	bfs.mu.RLock()
	defer bfs.mu.RUnlock()

	minFrame, found := 0, false
	for _, bnf := range bfs.values {
		if bnf.Len() == 0 {
			continue
		}
		if !found || bnf.MinFrame() < minFrame {
			minFrame = bnf.MinFrame()
			found = true
		}
	}
	return minFrame
}

func (bfs *BoneFrames) MaxFrame() int {
	bfs.mu.RLock()
	defer bfs.mu.RUnlock()

	maxFrame := 0
	for _, bnf := range bfs.values {
		if bnf.Len() > 0 && bnf.MaxFrame() > maxFrame {
			maxFrame = bnf.MaxFrame()
		}
	}
	return maxFrame
}

// IndexList は指定ボーン群のキーフレーム番号の和集合(昇順)
func (bfs *BoneFrames) IndexList(boneNames []string) []int {
	indexes := NewFrameIndexes()
	for _, name := range boneNames {
		if !bfs.Contains(name) {
			continue
		}
		for _, index := range bfs.Get(name).IndexList() {
			indexes.Insert(index)
		}
	}
	return indexes.List()
}

func (bfs *BoneFrames) Copy() *BoneFrames {
	bfs.mu.RLock()
	defer bfs.mu.RUnlock()

	copied := NewBoneFrames()
	for name, bnf := range bfs.values {
		copied.values[name] = bnf.Copy()
	}
	return copied
}
