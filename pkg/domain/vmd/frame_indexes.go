package vmd

import (
	"github.com/petar/GoLLRB/llrb"
)

// FrameIndexes はキーフレーム番号の順序付き集合
type FrameIndexes struct {
	tree *llrb.LLRB
}

func NewFrameIndexes() *FrameIndexes {
	return &FrameIndexes{tree: llrb.New()}
}

func (fi *FrameIndexes) Insert(index int) {
	fi.tree.ReplaceOrInsert(llrb.Int(index))
}

func (fi *FrameIndexes) Delete(index int) {
	fi.tree.Delete(llrb.Int(index))
}

func (fi *FrameIndexes) Has(index int) bool {
	return fi.tree.Has(llrb.Int(index))
}

func (fi *FrameIndexes) Len() int {
	return fi.tree.Len()
}

// Min は最小のキーフレーム番号。キーがない場合は0
func (fi *FrameIndexes) Min() int {
	if fi.tree.Len() == 0 {
		return 0
	}
	return int(fi.tree.Min().(llrb.Int))
}

// Max は最大のキーフレーム番号。キーがない場合は0
func (fi *FrameIndexes) Max() int {
	if fi.tree.Len() == 0 {
		return 0
	}
	return int(fi.tree.Max().(llrb.Int))
}

// Prev は index より前の直近のキーフレーム番号
func (fi *FrameIndexes) Prev(index int) (int, bool) {
	prev, found := 0, false
	fi.tree.DescendLessOrEqual(llrb.Int(index-1), func(item llrb.Item) bool {
		prev = int(item.(llrb.Int))
		found = true
		return false
	})
	return prev, found
}

// Next は index より後の直近のキーフレーム番号
func (fi *FrameIndexes) Next(index int) (int, bool) {
	next, found := 0, false
	fi.tree.AscendGreaterOrEqual(llrb.Int(index+1), func(item llrb.Item) bool {
		next = int(item.(llrb.Int))
		found = true
		return false
	})
	return next, found
}

// List は昇順のキーフレーム番号一覧
func (fi *FrameIndexes) List() []int {
	list := make([]int, 0, fi.tree.Len())
	if fi.tree.Len() == 0 {
		return list
	}
	fi.tree.AscendGreaterOrEqual(fi.tree.Min(), func(item llrb.Item) bool {
		list = append(list, int(item.(llrb.Int)))
		return true
	})
	return list
}

// Range は [start, end] に含まれるキーフレーム番号一覧
func (fi *FrameIndexes) Range(start, end int) []int {
	list := make([]int, 0)
	fi.tree.AscendRange(llrb.Int(start), llrb.Int(end+1), func(item llrb.Item) bool {
		list = append(list, int(item.(llrb.Int)))
		return true
	})
	return list
}

func (fi *FrameIndexes) Copy() *FrameIndexes {
	copied := NewFrameIndexes()
	for _, index := range fi.List() {
		copied.Insert(index)
	}
	return copied
}
